package credibility

import (
	"fmt"
	"net/url"
	"strings"
	"unicode"

	"github.com/DeafMist/news-verifier/internal/models"
)

// Baseline adjustments.
const (
	lowTrustDomainPenalty = 5
	missingDatePenalty    = 1
	shoutingPenalty       = 2
)

type heuristics struct {
	lowTrust []string
	phrases  []string
}

func newHeuristics(cfg Config) heuristics {
	h := heuristics{
		lowTrust: make([]string, 0, len(cfg.LowTrustDomains)),
		phrases:  make([]string, 0, len(cfg.SensationalPhrases)),
	}
	for _, d := range cfg.LowTrustDomains {
		if d = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(d)), "www."); d != "" {
			h.lowTrust = append(h.lowTrust, d)
		}
	}
	for _, p := range cfg.SensationalPhrases {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			h.phrases = append(h.phrases, p)
		}
	}
	return h
}

// baseline scores item from its source trust and content red flags.
func (h heuristics) baseline(item models.NewsItem, sourceTrust int) models.VerifiedItem {
	score := sourceTrust
	reasons := []string{fmt.Sprintf("Source trust: %d", sourceTrust)}

	if domain, ok := h.lowTrustDomain(item.Link); ok {
		score -= lowTrustDomainPenalty
		reasons = append(reasons, fmt.Sprintf("Low-trust domain %s (-%d)", domain, lowTrustDomainPenalty))
	}

	if found := h.sensational(item.Title + " " + item.Summary); len(found) > 0 {
		score -= len(found)
		reasons = append(reasons, fmt.Sprintf("Sensational language: %s (-%d)", strings.Join(found, ", "), len(found)))
	}

	if _, ok := item.Published(); !ok {
		score -= missingDatePenalty
		reasons = append(reasons, fmt.Sprintf("Missing publication date (-%d)", missingDatePenalty))
	}

	if shouting(item.Title) {
		score -= shoutingPenalty
		reasons = append(reasons, fmt.Sprintf("Shouting headline (-%d)", shoutingPenalty))
	}

	score = clamp(score)
	return models.VerifiedItem{
		NewsItem:            item,
		Credibility:         score,
		CredibilityOriginal: score,
		CredibilityReasons:  reasons,
	}
}

// lowTrustDomain matches the link host against the list, subdomains included.
func (h heuristics) lowTrustDomain(link string) (string, bool) {
	host := linkHost(link)
	if host == "" {
		return "", false
	}
	for _, d := range h.lowTrust {
		if host == d || strings.HasSuffix(host, "."+d) {
			return d, true
		}
	}
	return "", false
}

// sensational returns the distinct phrases present in text, in list order.
func (h heuristics) sensational(text string) []string {
	lower := strings.ToLower(text)
	var found []string
	for _, p := range h.phrases {
		if strings.Contains(lower, p) {
			found = append(found, p)
		}
	}
	return found
}

func linkHost(link string) string {
	link = strings.TrimSpace(link)
	if link == "" {
		return ""
	}
	if !strings.Contains(link, "://") {
		link = "http://" + link
	}
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// shouting reports an all-caps title or one with more than one '!'.
func shouting(title string) bool {
	if strings.Count(title, "!") > 1 {
		return true
	}
	hasLetter := false
	for _, r := range title {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsLetter(r) {
			hasLetter = true
		}
	}
	return hasLetter
}

func clamp(v int) int {
	if v < MinScore {
		return MinScore
	}
	if v > MaxScore {
		return MaxScore
	}
	return v
}
