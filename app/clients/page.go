package clients

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
)

// teamPathHints are URL fragments that typically identify a team page
var teamPathHints = []string{"team", "people", "about", "partners", "who-we-are"}

// PageClient fetches web pages and extracts navigation links and readable
// text from them
type PageClient struct {
	httpClient *http.Client
	userAgent  string
}

// NewPageClient creates a new page client
func NewPageClient(httpClient *http.Client, userAgent string) *PageClient {
	return &PageClient{httpClient: httpClient, userAgent: userAgent}
}

// Fetch retrieves the raw HTML of a page
func (c *PageClient) Fetch(ctx context.Context, pageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}

// Probe checks that a URL is reachable. HEAD first; some sites reject HEAD,
// so a GET is retried on 405.
func (c *PageClient) Probe(ctx context.Context, pageURL string) bool {
	ok, status := c.probe(ctx, "HEAD", pageURL)
	if !ok && status == http.StatusMethodNotAllowed {
		ok, _ = c.probe(ctx, "GET", pageURL)
	}
	return ok
}

func (c *PageClient) probe(ctx context.Context, method, pageURL string) (bool, int) {
	req, err := http.NewRequestWithContext(ctx, method, pageURL, nil)
	if err != nil {
		return false, 0
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, 0
	}
	defer resp.Body.Close()

	return resp.StatusCode >= 200 && resp.StatusCode < 400, resp.StatusCode
}

// FindTeamLinks extracts links from a page that look like team pages,
// resolved against the base URL
func FindTeamLinks(data []byte, baseURL string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	seen := make(map[string]bool)
	var links []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		resolved := base.ResolveReference(ref)
		if resolved.Host != base.Host {
			return
		}

		path := strings.ToLower(resolved.Path)
		for _, hint := range teamPathHints {
			if strings.Contains(path, hint) {
				resolved.Fragment = ""
				link := resolved.String()
				if !seen[link] {
					seen[link] = true
					links = append(links, link)
				}
				break
			}
		}
	})

	return links, nil
}

// ExtractText extracts the readable text content of an HTML page
func ExtractText(data []byte, pageURL string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("HTML data is empty")
	}

	parsed, err := url.Parse(pageURL)
	if err != nil {
		parsed = nil
	}

	article, err := readability.FromReader(bytes.NewReader(data), parsed)
	if err != nil {
		return "", fmt.Errorf("failed to extract content: %w", err)
	}

	if article.TextContent == "" {
		return "", fmt.Errorf("no content extracted from HTML data")
	}

	slog.Debug("Content extracted successfully",
		"title", article.Title,
		"content_length", len(article.TextContent))

	return article.TextContent, nil
}
