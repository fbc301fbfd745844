package domain

import "encoding/json"

// Status is the outcome reported to the provider for an inbound event.
type Status string

const (
	StatusIgnored Status = "ignored"
	StatusSkipped Status = "skipped"
	StatusError   Status = "error"
	StatusSent    Status = "sent"
)

// Result is the body returned by the receive endpoint. A sent result always
// carries the response key, even when the reply is empty.
type Result struct {
	Status   Status `json:"status"`
	Message  string `json:"message,omitempty"`
	Response string `json:"response,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (r Result) MarshalJSON() ([]byte, error) {
	type plain Result
	if r.Status != StatusSent {
		return json.Marshal(plain(r))
	}
	return json.Marshal(struct {
		plain
		Response string `json:"response"`
	}{plain: plain(r), Response: r.Response})
}

// Ignored builds the result for a non-inbox event.
func Ignored() Result {
	return Result{Status: StatusIgnored, Message: "Non-inbox message ignored."}
}

// Skipped builds the result for a duplicate delivery.
func Skipped() Result {
	return Result{Status: StatusSkipped, Message: "Duplicate message, processing skipped."}
}

// Failed builds an error result with the given message.
func Failed(message string) Result {
	return Result{Status: StatusError, Message: message}
}

// Sent builds the result carrying the generated reply.
func Sent(reply string) Result {
	return Result{Status: StatusSent, Response: reply}
}
