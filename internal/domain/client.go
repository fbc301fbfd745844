package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ClientID is the provider-side identifier of a chat client.
// The provider sends it as a JSON number; it is kept as an opaque string.
type ClientID string

// UnmarshalJSON accepts both numeric and string identifiers.
func (c *ClientID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*c = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode client id: %w", err)
		}
		*c = ClientID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("decode client id: %w", err)
	}
	*c = ClientID(n.String())
	return nil
}

// String returns the identifier as sent to the provider.
func (c ClientID) String() string {
	return string(c)
}
