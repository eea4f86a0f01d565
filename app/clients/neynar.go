package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

const neynarBaseURL = "https://api.neynar.com"

// FarcasterUser is one user returned by the Neynar search endpoint
type FarcasterUser struct {
	FID           int64    `json:"fid"`
	Username      string   `json:"username"`
	DisplayName   string   `json:"display_name"`
	Verifications []string `json:"verifications"`
	Profile       struct {
		Bio struct {
			Text string `json:"text"`
		} `json:"bio"`
	} `json:"profile"`
}

// NeynarClient looks up Farcaster users via the Neynar API
type NeynarClient struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
}

// NewNeynarClient creates a new Neynar client
func NewNeynarClient(httpClient *http.Client, apiKey string) *NeynarClient {
	return &NeynarClient{
		httpClient: httpClient,
		apiKey:     apiKey,
		baseURL:    neynarBaseURL,
	}
}

// Enabled reports whether the client has an API key configured
func (c *NeynarClient) Enabled() bool {
	return c.apiKey != ""
}

// SearchUsers searches Farcaster users by name or handle
func (c *NeynarClient) SearchUsers(ctx context.Context, query string, limit int) ([]FarcasterUser, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("neynar API key not configured")
	}

	endpoint := fmt.Sprintf("%s/v2/farcaster/user/search?q=%s&limit=%d",
		c.baseURL, url.QueryEscape(query), limit)

	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("api_key", c.apiKey)
	req.Header.Set("accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to search farcaster users: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var payload struct {
		Result struct {
			Users []FarcasterUser `json:"users"`
		} `json:"result"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}

	return payload.Result.Users, nil
}
