package tasks

import (
	"math"
	"testing"

	"github.com/sche/vc-agents/app/clients"
)

func farcasterUser(displayName, bio string, verifications ...string) clients.FarcasterUser {
	var user clients.FarcasterUser
	user.DisplayName = displayName
	user.Verifications = verifications
	user.Profile.Bio.Text = bio
	return user
}

func TestFarcasterConfidence(t *testing.T) {
	tests := []struct {
		name        string
		fullName    string
		orgName     string
		emailDomain string
		user        clients.FarcasterUser
		expected    float64
	}{
		{
			name:     "exact name match",
			fullName: "Alex Chen",
			user:     farcasterUser("Alex Chen", ""),
			expected: 0.5,
		},
		{
			name:     "partial name match",
			fullName: "Alex Chen",
			user:     farcasterUser("Alex Chen | investing", ""),
			expected: 0.3,
		},
		{
			name:        "name plus verified domain",
			fullName:    "Alex Chen",
			emailDomain: "example.com",
			user:        farcasterUser("Alex Chen", "", "alex@example.com"),
			expected:    0.9,
		},
		{
			name:     "name plus org in bio",
			fullName: "Alex Chen",
			orgName:  "Example VC",
			user:     farcasterUser("Alex Chen", "Partner at Example VC"),
			expected: 0.7,
		},
		{
			name:        "all signals capped at 1.0",
			fullName:    "Alex Chen",
			orgName:     "Example VC",
			emailDomain: "example.com",
			user:        farcasterUser("Alex Chen", "Partner at Example VC", "alex@example.com"),
			expected:    1.0,
		},
		{
			name:     "no signals",
			fullName: "Alex Chen",
			user:     farcasterUser("Somebody Else", ""),
			expected: 0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := farcasterConfidence(tt.fullName, tt.orgName, tt.emailDomain, tt.user)
			if math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("Expected confidence %.2f, got %.2f", tt.expected, got)
			}
		})
	}
}

func TestInferTelegram(t *testing.T) {
	tests := []struct {
		name               string
		farcaster          string
		twitter            string
		expectedHandle     string
		expectedConfidence float64
	}{
		{"handle parity", "alexchen", "AlexChen", "alexchen", 0.6},
		{"farcaster only", "alexchen", "", "alexchen", 0.5},
		{"twitter only", "", "alexchen", "alexchen", 0.5},
		{"differing handles fall back to farcaster", "alexchen", "alex_c", "alexchen", 0.5},
		{"nothing to infer", "", "", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handle, confidence := inferTelegram(tt.farcaster, tt.twitter)
			if handle != tt.expectedHandle {
				t.Errorf("Expected handle %q, got %q", tt.expectedHandle, handle)
			}
			if confidence != tt.expectedConfidence {
				t.Errorf("Expected confidence %.2f, got %.2f", tt.expectedConfidence, confidence)
			}
		})
	}
}
