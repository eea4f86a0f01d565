package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defiLlamaBaseURL = "https://api.llama.fi"

// Raise is one funding round as reported by the DefiLlama raises endpoint.
// Amount is denominated in millions of USD.
type Raise struct {
	Name           string   `json:"name"`
	Round          string   `json:"round"`
	Amount         float64  `json:"amount"`
	Date           int64    `json:"date"`
	LeadInvestors  []string `json:"leadInvestors"`
	OtherInvestors []string `json:"otherInvestors"`
	Source         string   `json:"source"`
	Category       string   `json:"category"`
	CategoryGroup  string   `json:"categoryGroup"`
	Sector         string   `json:"sector"`
	Chains         []string `json:"chains"`
	Valuation      *float64 `json:"valuation"`
}

// AnnouncedOn converts the raise's unix date to a time, nil when absent
func (r Raise) AnnouncedOn() *time.Time {
	if r.Date == 0 {
		return nil
	}
	t := time.Unix(r.Date, 0).UTC()
	return &t
}

// Investors combines lead and other investors into one list, leads first
func (r Raise) Investors() []string {
	investors := make([]string, 0, len(r.LeadInvestors)+len(r.OtherInvestors))
	investors = append(investors, r.LeadInvestors...)
	investors = append(investors, r.OtherInvestors...)
	return investors
}

// DefiLlamaClient fetches funding rounds from the DefiLlama raises API
type DefiLlamaClient struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
}

// NewDefiLlamaClient creates a new DefiLlama client
func NewDefiLlamaClient(httpClient *http.Client, userAgent string) *DefiLlamaClient {
	return &DefiLlamaClient{
		httpClient: httpClient,
		baseURL:    defiLlamaBaseURL,
		userAgent:  userAgent,
	}
}

// FetchRaises retrieves all funding rounds from the raises endpoint
func (c *DefiLlamaClient) FetchRaises(ctx context.Context) ([]Raise, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/raises", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch raises: %w", err)
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
		Raises []Raise `json:"raises"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse raises response: %w", err)
	}

	return payload.Raises, nil
}

// FilterSince returns only raises announced on or after the cutoff
func FilterSince(raises []Raise, cutoff time.Time) []Raise {
	cutoffUnix := cutoff.Unix()
	filtered := make([]Raise, 0, len(raises))
	for _, r := range raises {
		if r.Date >= cutoffUnix {
			filtered = append(filtered, r)
		}
	}
	return filtered
}
