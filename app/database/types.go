package database

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// JSONB column wrappers. Each semi-structured field is an explicit tagged
// struct rather than a free-form map, so business logic never pattern-matches
// on ad hoc string keys.

// SourceRecord is one provenance entry on an organization or deal.
type SourceRecord struct {
	Type       string    `json:"type"`
	URL        string    `json:"url,omitempty"`
	ImportedAt time.Time `json:"imported_at"`
}

// SameOrigin reports whether two source records describe the same origin,
// ignoring the import timestamp.
func (s SourceRecord) SameOrigin(other SourceRecord) bool {
	return s.Type == other.Type && s.URL == other.URL
}

type SourceList []SourceRecord

// SocialProfile is one platform entry in a socials map.
type SocialProfile struct {
	Handle     string  `json:"handle"`
	Confidence float64 `json:"confidence,omitempty"`
	Source     string  `json:"source,omitempty"`
	FID        int64   `json:"fid,omitempty"`
	URL        string  `json:"url,omitempty"`
}

// SocialMap maps a platform name ("twitter", "farcaster", "linkedin",
// "profile") to the discovered profile.
type SocialMap map[string]SocialProfile

// EnrichmentEvent is one append-only entry in an entity's enrichment
// history: which stage touched which fields, plus a conflict note when an
// observation disagreed with stored data and was preserved instead of
// applied.
type EnrichmentEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Stage     string    `json:"stage"`
	Fields    []string  `json:"fields,omitempty"`
	Conflict  string    `json:"conflict,omitempty"`
}

type EnrichmentLog []EnrichmentEvent

// DiscoveredFrom records how a person entered the system.
type DiscoveredFrom struct {
	Stage string `json:"stage"`
	OrgID string `json:"org_id,omitempty"`
	URL   string `json:"url,omitempty"`
}

// Location is a coarse geographic descriptor for an organization.
type Location struct {
	City    string `json:"city,omitempty"`
	Region  string `json:"region,omitempty"`
	Country string `json:"country,omitempty"`
}

// Params holds loosely structured run input parameters, output summaries
// and intro context snapshots.
type Params map[string]interface{}

// StringList is a JSONB-backed list of strings (focus tags, investors).
type StringList []string

func (s SourceRecord) Value() (driver.Value, error)  { return jsonValue(s) }
func (s *SourceRecord) Scan(src interface{}) error   { return jsonScan(src, s) }
func (s SourceList) Value() (driver.Value, error)    { return jsonValue(s) }
func (s *SourceList) Scan(src interface{}) error     { return jsonScan(src, s) }
func (m SocialMap) Value() (driver.Value, error)     { return jsonValue(m) }
func (m *SocialMap) Scan(src interface{}) error      { return jsonScan(src, m) }
func (l EnrichmentLog) Value() (driver.Value, error) { return jsonValue(l) }
func (l *EnrichmentLog) Scan(src interface{}) error  { return jsonScan(src, l) }
func (d DiscoveredFrom) Value() (driver.Value, error) {
	return jsonValue(d)
}
func (d *DiscoveredFrom) Scan(src interface{}) error { return jsonScan(src, d) }
func (l Location) Value() (driver.Value, error)      { return jsonValue(l) }
func (l *Location) Scan(src interface{}) error       { return jsonScan(src, l) }
func (p Params) Value() (driver.Value, error)        { return jsonValue(p) }
func (p *Params) Scan(src interface{}) error         { return jsonScan(src, p) }
func (s StringList) Value() (driver.Value, error)    { return jsonValue(s) }
func (s *StringList) Scan(src interface{}) error     { return jsonScan(src, s) }

func jsonValue(v interface{}) (driver.Value, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSONB value: %w", err)
	}
	return data, nil
}

func jsonScan(src, dest interface{}) error {
	if src == nil {
		return nil
	}

	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported JSONB source type %T", src)
	}

	if len(data) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to unmarshal JSONB value: %w", err)
	}
	return nil
}
