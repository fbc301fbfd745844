// Package provider is a client for the Chat2Desk messaging API.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/ashureev/chatrelay/internal/domain"
)

const (
	// DefaultBaseURL is the public Chat2Desk API root.
	DefaultBaseURL = "https://api.chat2desk.com/v1"

	clientExistsMarker = "Client already exist"
	maxErrorBody       = 4 << 10
)

// Client calls the provider REST API with a static token.
type Client struct {
	http    *http.Client
	baseURL string
	token   string
}

// New creates a provider client. A nil httpClient gets a client without
// timeout; callers bound requests through the context instead.
func New(httpClient *http.Client, baseURL, token string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	baseURL = strings.TrimSpace(strings.TrimRight(baseURL, "/"))
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		http:    httpClient,
		baseURL: baseURL,
		token:   strings.TrimSpace(token),
	}
}

// SendMessage posts text to the chat of clientID over transport.
func (c *Client) SendMessage(ctx context.Context, clientID domain.ClientID, text, transport string) error {
	q := url.Values{}
	q.Set("text", text)
	q.Set("client_id", clientID.String())
	q.Set("transport", transport)

	resp, err := c.do(ctx, http.MethodPost, "/messages?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return newAPIError("send message", resp)
	}
	return nil
}

// CreateClient registers phone with the provider and returns the new client id.
// When the client already exists a *ClientExistsError carrying the existing
// id is returned.
func (c *Client) CreateClient(ctx context.Context, phone, transport string) (domain.ClientID, error) {
	resp, err := c.do(ctx, http.MethodPost, "/clients", clientRequest{Phone: phone, Transport: transport})
	if err != nil {
		return "", fmt.Errorf("create client: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read create client response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		var out clientResponse
		if err := json.Unmarshal(body, &out); err != nil {
			return "", fmt.Errorf("decode create client response: %w", err)
		}
		if out.Data.ID == "" {
			return "", fmt.Errorf("create client: response carries no id")
		}
		return out.Data.ID, nil

	case resp.StatusCode == http.StatusBadRequest && bytes.Contains(body, []byte(clientExistsMarker)):
		id, err := parseExistingClientID(body)
		if err != nil {
			return "", fmt.Errorf("create client: %w", err)
		}
		return "", &ClientExistsError{ClientID: id}

	default:
		return "", &APIError{Op: "create client", StatusCode: resp.StatusCode, Body: truncate(body)}
	}
}

// ListWebhooks returns the registered webhook subscriptions.
func (c *Client) ListWebhooks(ctx context.Context) ([]Webhook, error) {
	resp, err := c.do(ctx, http.MethodGet, "/webhooks", nil)
	if err != nil {
		return nil, fmt.Errorf("list webhooks: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, newAPIError("list webhooks", resp)
	}

	var out webhookListResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode webhooks: %w", err)
	}
	return out.Data, nil
}

// DeleteWebhook removes the subscription with the given id.
func (c *Client) DeleteWebhook(ctx context.Context, id string) error {
	resp, err := c.do(ctx, http.MethodDelete, "/webhooks/"+url.PathEscape(id), nil)
	if err != nil {
		return fmt.Errorf("delete webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError("delete webhook", resp)
	}
	return nil
}

// CreateWebhook registers a new subscription.
func (c *Client) CreateWebhook(ctx context.Context, req WebhookRequest) error {
	resp, err := c.do(ctx, http.MethodPost, "/webhooks", req)
	if err != nil {
		return fmt.Errorf("create webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return newAPIError("create webhook", resp)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, payload any) (*http.Response, error) {
	if c == nil || c.http == nil {
		return nil, errNotInitialized
	}

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal payload: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", c.token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.http.Do(req)
}

// parseExistingClientID extracts the id from an already-exists error body:
//
//	{"errors":{"client":["Client already exist","{\"id\":123, ...}"]}}
func parseExistingClientID(body []byte) (domain.ClientID, error) {
	var payload struct {
		Errors struct {
			Client []json.RawMessage `json:"client"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("decode client exists body: %w", err)
	}

	var embedded struct {
		ID domain.ClientID `json:"id"`
	}
	for _, raw := range payload.Errors.Client {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			raw = json.RawMessage(s)
		}
		if err := json.Unmarshal(raw, &embedded); err == nil && embedded.ID != "" {
			return embedded.ID, nil
		}
	}
	return "", errors.New("client exists body carries no id")
}

func newAPIError(op string, resp *http.Response) *APIError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &APIError{Op: op, StatusCode: resp.StatusCode, Body: string(body)}
}

func truncate(body []byte) string {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return string(body)
}
