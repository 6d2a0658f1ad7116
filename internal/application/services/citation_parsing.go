package services

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/zatekoja/visibilityscore/internal/domain/entities"
	"github.com/zatekoja/visibilityscore/pkg/textmatch"
	"golang.org/x/net/publicsuffix"
	"mvdan.cc/xurls/v2"
)

const maxCandidateRunes = 80

var (
	strictURLs = xurls.Strict()

	listItemPattern = regexp.MustCompile(`^\s*(?:[-*•]|\d{1,2}[.)])\s+(.+)$`)
	headingPattern  = regexp.MustCompile(`^\s*#{1,6}\s+(.+)$`)
	boldPattern     = regexp.MustCompile(`\*\*([^*\n]+)\*\*|__([^_\n]+)__`)
	nameSeparators  = []string{" - ", " – ", " — ", ": ", " (", " | ", ", located", " is ", " offers "}
)

// extractCandidates pulls business-name candidates out of a free-text answer:
// bold spans, list item leads and headings.
func extractCandidates(text string) []string {
	var out []string
	seen := make(map[string]struct{})

	for _, m := range boldPattern.FindAllStringSubmatch(text, -1) {
		name := m[1]
		if name == "" {
			name = m[2]
		}
		out = appendCandidate(out, seen, name)
	}

	for _, line := range strings.Split(text, "\n") {
		if m := listItemPattern.FindStringSubmatch(line); m != nil {
			out = appendCandidate(out, seen, leadName(m[1]))
			continue
		}
		if m := headingPattern.FindStringSubmatch(line); m != nil {
			out = appendCandidate(out, seen, leadName(m[1]))
		}
	}
	return out
}

// leadName cuts a list item down to the name before any description.
func leadName(item string) string {
	item = strings.TrimSpace(item)
	if m := boldPattern.FindStringSubmatch(item); m != nil && strings.HasPrefix(item, m[0]) {
		if m[1] != "" {
			return m[1]
		}
		return m[2]
	}
	cut := len(item)
	for _, sep := range nameSeparators {
		if i := strings.Index(item, sep); i > 0 && i < cut {
			cut = i
		}
	}
	return item[:cut]
}

func appendCandidate(out []string, seen map[string]struct{}, name string) []string {
	name = strings.Trim(strings.TrimSpace(name), `*_"'.,;:!?`)
	name = strings.TrimSpace(strings.TrimSuffix(strings.TrimSuffix(name, ")"), "("))
	if name == "" || len([]rune(name)) > maxCandidateRunes {
		return out
	}
	key := textmatch.Normalize(name)
	if key == "" {
		return out
	}
	if _, dup := seen[key]; dup {
		return out
	}
	seen[key] = struct{}{}
	return append(out, name)
}

func firstURL(text string) string {
	for _, found := range strictURLs.FindAllString(text, -1) {
		if u := normalizeCitation(found); u != "" {
			return u
		}
	}
	return ""
}

// normalizeCitation returns raw as an absolute http(s) URL, or "".
func normalizeCitation(raw string) string {
	raw = strings.TrimRight(strings.TrimSpace(raw), ".,;:)]}>\"'")
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ""
	}
	return u.String()
}

// registrableDomain returns the eTLD+1 of a URL or bare host.
func registrableDomain(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(strings.ToLower(u.Hostname()))
	if err != nil {
		return ""
	}
	return domain
}

func sameSite(citation, website string) bool {
	a, b := registrableDomain(citation), registrableDomain(website)
	return a != "" && a == b
}

// detectCitation decides whether the answer cites the business and which
// other businesses it surfaced.
func detectCitation(answer *EngineAnswer, business entities.BusinessContext) (cited bool, others []string) {
	others = []string{}
	for _, candidate := range answer.Candidates {
		if textmatch.Match(candidate, business.Name) {
			cited = true
			continue
		}
		others = append(others, candidate)
	}
	if !cited && textmatch.MentionedIn(business.Name, answer.Text) {
		cited = true
	}
	return cited, others
}
