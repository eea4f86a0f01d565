package clients

import (
	"context"
	"fmt"
	"time"

	"github.com/mmcdole/gofeed"
)

// NewsItem is one entry from a funding-news feed
type NewsItem struct {
	Title       string
	Link        string
	Description string
	PublishedAt *time.Time
}

// NewsFeedClient fetches RSS/Atom feeds carrying funding announcements
type NewsFeedClient struct {
	parser    *gofeed.Parser
	userAgent string
}

// NewNewsFeedClient creates a new news feed client
func NewNewsFeedClient(userAgent string) *NewsFeedClient {
	parser := gofeed.NewParser()
	parser.UserAgent = userAgent
	return &NewsFeedClient{parser: parser, userAgent: userAgent}
}

// Fetch retrieves and parses a feed URL
func (c *NewsFeedClient) Fetch(ctx context.Context, url string) ([]NewsItem, error) {
	feed, err := c.parser.ParseURLWithContext(url, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed %s: %w", url, err)
	}

	items := make([]NewsItem, 0, len(feed.Items))
	for _, item := range feed.Items {
		items = append(items, NewsItem{
			Title:       item.Title,
			Link:        item.Link,
			Description: item.Description,
			PublishedAt: item.PublishedParsed,
		})
	}

	return items, nil
}
