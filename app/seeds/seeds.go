package seeds

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SeedOrganization is one manually curated organization from the seed file
type SeedOrganization struct {
	Name    string   `yaml:"name"`
	Kind    string   `yaml:"kind"`
	Website string   `yaml:"website"`
	Focus   []string `yaml:"focus"`
}

// SeedFeed is one funding-news feed from the seed file
type SeedFeed struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// File is the parsed seed file
type File struct {
	Organizations []SeedOrganization `yaml:"organizations"`
	NewsFeeds     []SeedFeed         `yaml:"news_feeds"`
}

// Load reads and parses a seed file
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}

	for i, org := range file.Organizations {
		if org.Name == "" {
			return nil, fmt.Errorf("seed organization %d has no name", i)
		}
	}
	for i, feed := range file.NewsFeeds {
		if feed.URL == "" {
			return nil, fmt.Errorf("seed feed %d (%s) has no url", i, feed.Name)
		}
	}

	return &file, nil
}
