package tasks

import (
	"strings"

	"github.com/sche/vc-agents/app/clients"
)

// farcasterConfidence scores how likely a Farcaster search result is the
// person we are looking for. Name match carries the most weight, a verified
// address on the person's email domain is strong corroboration, the
// organization appearing in the bio is weak corroboration.
func farcasterConfidence(fullName, orgName, emailDomain string, user clients.FarcasterUser) float64 {
	confidence := 0.0

	displayName := strings.ToLower(user.DisplayName)
	personName := strings.ToLower(fullName)

	if displayName == personName {
		confidence += 0.5
	} else if displayName != "" && (strings.Contains(displayName, personName) || strings.Contains(personName, displayName)) {
		confidence += 0.3
	}

	if emailDomain != "" {
		for _, addr := range user.Verifications {
			if strings.Contains(strings.ToLower(addr), emailDomain) {
				confidence += 0.4
				break
			}
		}
	}

	bio := strings.ToLower(user.Profile.Bio.Text)
	if orgName != "" && strings.Contains(bio, strings.ToLower(orgName)) {
		confidence += 0.2
	}

	if confidence > 1.0 {
		confidence = 1.0
	}
	return confidence
}

// inferTelegram guesses a Telegram handle from a person's other handles.
// Matching Farcaster and Twitter handles is a reasonable signal that the same
// handle is used on Telegram; a single handle alone is a weaker guess.
func inferTelegram(farcasterHandle, twitterHandle string) (string, float64) {
	if farcasterHandle != "" && twitterHandle != "" &&
		strings.EqualFold(farcasterHandle, twitterHandle) {
		return farcasterHandle, 0.6
	}
	if farcasterHandle != "" {
		return farcasterHandle, 0.5
	}
	if twitterHandle != "" {
		return twitterHandle, 0.5
	}
	return "", 0
}
