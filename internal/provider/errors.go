package provider

import (
	"errors"
	"fmt"

	"github.com/ashureev/chatrelay/internal/domain"
)

var errNotInitialized = errors.New("provider client is not initialized")

// APIError is a non-success response from the provider.
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: provider returned %d: %s", e.Op, e.StatusCode, e.Body)
}

// ClientExistsError reports that a client for the phone number already
// exists. ClientID holds the identifier embedded in the error body.
type ClientExistsError struct {
	ClientID domain.ClientID
}

func (e *ClientExistsError) Error() string {
	return fmt.Sprintf("client already exists: %s", e.ClientID)
}
