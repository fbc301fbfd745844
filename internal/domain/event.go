// Package domain contains core domain types for the relay.
package domain

// HookType classifies a provider event.
type HookType string

const (
	// HookInbox is a message written by the end user.
	HookInbox HookType = "inbox"
	// HookOutbox is an echo of a message sent by an operator or by the relay.
	HookOutbox HookType = "outbox"
)

// DefaultText replaces an absent message body.
const DefaultText = "No text provided"

// InboundEvent is a single message notification from the provider.
type InboundEvent struct {
	MessageID string    `json:"message_id"`
	HookType  HookType  `json:"hook_type"`
	Client    EventPeer `json:"client"`
	Text      *string   `json:"text"`
}

// EventPeer identifies the chat participant that produced the event.
type EventPeer struct {
	Phone string `json:"phone"`
}

// IsInbox reports whether the event carries a user-authored message.
func (e *InboundEvent) IsInbox() bool {
	return e.HookType == HookInbox
}

// MessageText returns the message body or DefaultText when it is absent.
func (e *InboundEvent) MessageText() string {
	if e.Text == nil {
		return DefaultText
	}
	return *e.Text
}
