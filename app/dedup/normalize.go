package dedup

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	legalSuffixRe = regexp.MustCompile(`(?i)\s+(inc\.?|llc\.?|ltd\.?|limited|corp\.?|corporation|ventures?|capital|partners?)$`)
	nonAlnumRe    = regexp.MustCompile(`[^a-z0-9\s]`)
	whitespaceRe  = regexp.MustCompile(`\s+`)
)

// foldDiacritics decomposes accented characters and drops the combining
// marks, so "Sequoïa" and "Sequoia" normalize to the same form.
var foldDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeOrgName maps a human-entered organization name to its canonical
// form: lowercase, diacritics folded, legal suffixes stripped, punctuation
// removed, whitespace collapsed. Total: empty input yields "".
func NormalizeOrgName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return ""
	}

	if folded, _, err := transform.String(foldDiacritics, name); err == nil {
		name = folded
	}

	// Strip stacked legal suffixes ("Acme Capital Partners" -> "acme")
	for {
		stripped := legalSuffixRe.ReplaceAllString(name, "")
		if stripped == name {
			break
		}
		name = stripped
	}

	name = nonAlnumRe.ReplaceAllString(name, "")
	name = whitespaceRe.ReplaceAllString(name, " ")

	return strings.TrimSpace(name)
}

// NormalizeURL maps a website URL to its canonical form: lowercase, scheme
// and "www." prefix stripped, query string, fragment and trailing slashes
// removed. Total: empty input yields "".
func NormalizeURL(rawURL string) string {
	u := strings.ToLower(strings.TrimSpace(rawURL))
	if u == "" {
		return ""
	}

	if idx := strings.Index(u, "://"); idx != -1 {
		u = u[idx+3:]
	}
	u = strings.TrimPrefix(u, "www.")

	if idx := strings.IndexAny(u, "?#"); idx != -1 {
		u = u[:idx]
	}

	return strings.TrimRight(u, "/")
}

// NormalizePersonName lowercases and collapses whitespace. Person names keep
// hyphens and apostrophes, but diacritics are folded so byline variants of
// the same name converge.
func NormalizePersonName(fullName string) string {
	name := strings.ToLower(strings.TrimSpace(fullName))
	if name == "" {
		return ""
	}

	if folded, _, err := transform.String(foldDiacritics, name); err == nil {
		name = folded
	}

	return whitespaceRe.ReplaceAllString(name, " ")
}

// EmailDomain extracts the lowercased domain of an email address, or ""
// when the input does not look like an address.
func EmailDomain(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return ""
	}
	return email[at+1:]
}
