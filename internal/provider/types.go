package provider

import (
	"encoding/json"

	"github.com/ashureev/chatrelay/internal/domain"
)

// Webhook is a provider-side webhook subscription.
type Webhook struct {
	ID     json.Number `json:"id"`
	URL    string      `json:"url"`
	Name   string      `json:"name,omitempty"`
	Events []string    `json:"events,omitempty"`
}

// WebhookRequest creates a subscription.
type WebhookRequest struct {
	URL    string   `json:"url"`
	Name   string   `json:"name"`
	Events []string `json:"events"`
}

type clientRequest struct {
	Phone     string `json:"phone"`
	Transport string `json:"transport"`
}

type clientResponse struct {
	Data struct {
		ID domain.ClientID `json:"id"`
	} `json:"data"`
}

type webhookListResponse struct {
	Data []Webhook `json:"data"`
}
