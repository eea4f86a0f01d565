package resolve

import (
	"testing"
	"time"
)

func TestIsStale(t *testing.T) {
	now := time.Now()
	recent := now.Add(-1 * time.Hour)
	old := now.Add(-45 * 24 * time.Hour)
	ttl := 30 * 24 * time.Hour

	tests := []struct {
		name          string
		updatedAt     time.Time
		lastProcessed *time.Time
		force         bool
		expected      bool
	}{
		{"never processed", recent, nil, false, true},
		{"fresh", recent, &recent, false, false},
		{"expired ttl", old, &old, false, true},
		{"force overrides fresh", recent, &recent, true, true},
		{"force overrides never processed", recent, nil, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsStale(tt.updatedAt, tt.lastProcessed, ttl, tt.force)
			if got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}
