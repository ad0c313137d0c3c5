package messenger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"
)

// Client talks to the Facebook Graph API (Messenger Platform).
// Documentation: https://developers.facebook.com/docs/messenger-platform
type Client struct {
	appID       string
	appSecret   string
	redirectURL string
	apiVersion  string
	graphURL    string
	dialogURL   string
	client      *http.Client
}

// ClientConfig holds configuration for the Graph API client
type ClientConfig struct {
	AppID       string `json:"app_id"`
	AppSecret   string `json:"app_secret"`
	RedirectURL string `json:"redirect_url"`
	APIVersion  string `json:"api_version"` // default: v19.0
}

// NewClient creates a new Graph API client
func NewClient(config ClientConfig) (*Client, error) {
	if config.AppID == "" {
		return nil, fmt.Errorf("app_id is required")
	}
	if config.AppSecret == "" {
		return nil, fmt.Errorf("app_secret is required")
	}

	if config.APIVersion == "" {
		config.APIVersion = "v19.0"
	}

	return &Client{
		appID:       config.AppID,
		appSecret:   config.AppSecret,
		redirectURL: config.RedirectURL,
		apiVersion:  config.APIVersion,
		graphURL:    fmt.Sprintf("https://graph.facebook.com/%s", config.APIVersion),
		dialogURL:   fmt.Sprintf("https://www.facebook.com/%s/dialog/oauth", config.APIVersion),
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// AuthorizationURL builds the consent dialog redirect target. state is
// echoed back on the callback and carries the tenant id.
func (c *Client) AuthorizationURL(state string) string {
	q := url.Values{}
	q.Set("client_id", c.appID)
	q.Set("redirect_uri", c.redirectURL)
	q.Set("state", state)
	q.Set("scope", "pages_show_list,pages_messaging,pages_manage_metadata")
	return c.dialogURL + "?" + q.Encode()
}

// ExchangeCode exchanges the callback code for a user access token
func (c *Client) ExchangeCode(ctx context.Context, code string) (string, error) {
	q := url.Values{}
	q.Set("client_id", c.appID)
	q.Set("client_secret", c.appSecret)
	q.Set("redirect_uri", c.redirectURL)
	q.Set("code", code)

	var result oauthTokenResponse
	if err := c.getJSON(ctx, "/oauth/access_token?"+q.Encode(), &result); err != nil {
		return "", err
	}
	if result.AccessToken == "" {
		return "", NewProviderError(CodeProviderAPIError, "empty access token in exchange response")
	}
	return result.AccessToken, nil
}

// ListPages returns the pages the user token administers, each with its own
// page access token
func (c *Client) ListPages(ctx context.Context, userToken string) ([]Page, error) {
	q := url.Values{}
	q.Set("access_token", userToken)
	q.Set("fields", "id,name,access_token")

	var result accountsResponse
	if err := c.getJSON(ctx, "/me/accounts?"+q.Encode(), &result); err != nil {
		return nil, err
	}
	return result.Data, nil
}

// SubscribePage subscribes the app to the page's messaging webhooks
func (c *Client) SubscribePage(ctx context.Context, pageID, pageToken string) error {
	q := url.Values{}
	q.Set("access_token", pageToken)
	q.Set("subscribed_fields", "messages,messaging_postbacks")

	endpoint := fmt.Sprintf("/%s/subscribed_apps?%s", pageID, q.Encode())
	return c.postJSON(ctx, endpoint, nil, nil)
}

// SendMessage sends a text message (plus optional attachments) through the
// Send API and returns the provider-assigned message id.
func (c *Client) SendMessage(ctx context.Context, pageToken, recipientID, text string, attachments []Attachment) (string, error) {
	q := url.Values{}
	q.Set("access_token", pageToken)

	var lastID string

	if text != "" {
		payload := map[string]interface{}{
			"recipient":      map[string]string{"id": recipientID},
			"messaging_type": "RESPONSE",
			"message":        map[string]string{"text": text},
		}
		var result sendResponse
		if err := c.postJSON(ctx, "/me/messages?"+q.Encode(), payload, &result); err != nil {
			return "", err
		}
		lastID = result.MessageID
	}

	// Attachments go out as separate Send API calls, one per media item
	for _, att := range attachments {
		payload := map[string]interface{}{
			"recipient":      map[string]string{"id": recipientID},
			"messaging_type": "RESPONSE",
			"message": map[string]interface{}{
				"attachment": map[string]interface{}{
					"type":    att.Type,
					"payload": map[string]interface{}{"url": att.URL, "is_reusable": true},
				},
			},
		}
		var result sendResponse
		if err := c.postJSON(ctx, "/me/messages?"+q.Encode(), payload, &result); err != nil {
			return lastID, err
		}
		lastID = result.MessageID
	}

	return lastID, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.graphURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) postJSON(ctx context.Context, endpoint string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
		body = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.graphURL+endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return &ProviderError{Code: CodeProviderUnavailable, Message: "graph api unreachable", Err: err}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return classifyGraphError(resp.StatusCode, respBody)
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	log.Printf("✅ Graph API request successful: %s %s", req.Method, req.URL.Path)
	return nil
}

// classifyGraphError maps Graph error envelopes onto the provider error
// taxonomy. Reference: https://developers.facebook.com/docs/graph-api/guides/error-handling
func classifyGraphError(status int, body []byte) error {
	var envelope graphErrorBody
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.Error.Code == 0 {
		return NewProviderError(CodeProviderAPIError, fmt.Sprintf("API error (status %d): %s", status, string(body)))
	}

	ge := envelope.Error
	switch ge.Code {
	case 190: // invalid or expired access token
		if ge.Subcode == 36007 || ge.Subcode == 36009 {
			return NewProviderError(CodeAuthorizationExpired, ge.Message)
		}
		return NewProviderError(CodeTokenInvalid, ge.Message)
	case 4, 17, 32, 613: // application/user/page throttling
		return NewProviderError(CodeRateLimited, ge.Message)
	case 100:
		if ge.Subcode == 36007 {
			return NewProviderError(CodeAuthorizationExpired, ge.Message)
		}
		return NewProviderError(CodeProviderAPIError, ge.Message)
	case 10, 200, 230: // permission errors: consent withdrawn or never granted
		return NewProviderError(CodeAuthorizationDenied, ge.Message)
	case 1, 2: // API unknown / API service
		return NewProviderError(CodeProviderUnavailable, ge.Message)
	default:
		return NewProviderError(CodeProviderAPIError, fmt.Sprintf("%s (code %d)", ge.Message, ge.Code))
	}
}
