package domain

import "time"

// RelayRecord is the journal entry for one processed inbound event.
type RelayRecord struct {
	ID        string    `json:"id"`
	MessageID string    `json:"message_id"`
	Phone     string    `json:"phone"`
	ClientID  ClientID  `json:"client_id,omitempty"`
	Status    Status    `json:"status"`
	RunStatus string    `json:"run_status,omitempty"`
	Reply     string    `json:"reply,omitempty"`
	Delivered bool      `json:"delivered"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
