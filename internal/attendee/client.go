// Package attendee is a client for the Attendee bot platform API. It covers
// the two calls the relay makes: exchanging a Zoom authorization code for a
// managed OAuth connection, and launching a meeting bot on behalf of a
// connected user.
package attendee

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 15 * time.Second

// APIError is an error response from the Attendee API. Status is the HTTP
// status the API returned; Message is the upstream error message when one
// could be extracted from the body.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("attendee API error (HTTP %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("attendee API error (HTTP %d)", e.Status)
}

// Client communicates with the Attendee API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the given base URL and API key.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

// ConnectionRequest carries the OAuth code exchange parameters.
type ConnectionRequest struct {
	AuthorizationCode              string `json:"authorization_code"`
	RedirectURI                    string `json:"redirect_uri"`
	IsLocalRecordingTokenSupported bool   `json:"is_local_recording_token_supported"`
	IsOnbehalfTokenSupported       bool   `json:"is_onbehalf_token_supported"`
}

// CreateConnection exchanges a Zoom authorization code for a managed OAuth
// connection. The returned document is the API response verbatim; userID is
// its user_id field, which keys the stored record. A 201 without a user_id
// is treated as a rejection.
func (c *Client) CreateConnection(ctx context.Context, req ConnectionRequest) (userID string, connection map[string]any, err error) {
	body, err := c.post(ctx, "/api/v1/zoom_oauth_connections", req, http.StatusCreated)
	if err != nil {
		return "", nil, err
	}

	if err := json.Unmarshal(body, &connection); err != nil {
		return "", nil, fmt.Errorf("decoding connection response: %w", err)
	}
	userID, _ = connection["user_id"].(string)
	if userID == "" {
		return "", nil, &APIError{Status: http.StatusCreated, Message: "no user_id in connection response"}
	}
	return userID, connection, nil
}

// BotRequest carries the bot launch parameters. UserID identifies the Zoom
// OAuth connection whose onbehalf token the bot should join with.
type BotRequest struct {
	MeetingURL string
	BotName    string
	UserID     string
}

// CreateBot launches a meeting bot and returns the API response verbatim.
func (c *Client) CreateBot(ctx context.Context, req BotRequest) (json.RawMessage, error) {
	payload := map[string]any{
		"meeting_url": req.MeetingURL,
		"bot_name":    req.BotName,
		"zoom_settings": map[string]any{
			"sdk": "web",
			"onbehalf_token": map[string]any{
				"zoom_oauth_connection_user_id": req.UserID,
			},
		},
	}
	return c.post(ctx, "/api/v1/bots", payload, http.StatusCreated)
}

func (c *Client) post(ctx context.Context, path string, payload any, wantStatus int) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Token "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling attendee API: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading attendee API response: %w", err)
	}

	if resp.StatusCode != wantStatus {
		return nil, &APIError{Status: resp.StatusCode, Message: extractMessage(respBody)}
	}
	return respBody, nil
}

// extractMessage pulls a human-readable error out of an Attendee error body.
// The API uses either an "error" or a "message" field; anything else is
// returned raw.
func extractMessage(body []byte) string {
	var parsed struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Error != "" {
			return parsed.Error
		}
		if parsed.Message != "" {
			return parsed.Message
		}
	}
	return strings.TrimSpace(string(body))
}
