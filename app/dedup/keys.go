package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// Canonical keys are sha256 digests over "|"-joined normalized identifying
// fields. They are the only mechanism the pipeline uses to decide whether an
// observation refers to an entity it has already seen, so derivation must be
// deterministic and total: equivalent-but-differently-formatted inputs yield
// identical keys, and missing optional fields degrade to empty segments.

// OrganizationKey derives the dedup key for an organization. When a website
// is known the key is normalized name + normalized website; otherwise it
// falls back to name + kind, so a VC and a startup sharing a name do not
// collide.
func OrganizationKey(name, website, kind string) string {
	normalizedName := NormalizeOrgName(name)
	normalizedWebsite := NormalizeURL(website)

	if normalizedWebsite != "" {
		return hashKey(normalizedName, normalizedWebsite)
	}
	return hashKey(normalizedName, strings.ToLower(strings.TrimSpace(kind)))
}

// DealKey derives the idempotency key for a funding round from the recipient
// organization name, announcement date, round label and normalized amount.
// Re-ingesting the same raw record always resolves to the same key.
func DealKey(orgName string, announcedOn time.Time, round string, amountUSD float64) string {
	dateStr := ""
	if !announcedOn.IsZero() {
		dateStr = announcedOn.UTC().Format("2006-01-02")
	}

	amountStr := "0"
	if amountUSD != 0 {
		amountStr = fmt.Sprintf("%.2f", amountUSD)
	}

	return hashKey(NormalizeOrgName(orgName), dateStr, strings.ToLower(strings.TrimSpace(round)), amountStr)
}

// PersonKey derives the dedup key for a person from the normalized full name
// plus a disambiguating signal. The disambiguator is the organization id the
// person was first discovered at, or the email domain when no discovery
// organization is known; without it two different people sharing a name
// would collapse into one record.
func PersonKey(fullName, disambiguator string) string {
	return hashKey(NormalizePersonName(fullName), strings.ToLower(strings.TrimSpace(disambiguator)))
}

func hashKey(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}
