package models

import (
	"strings"
	"time"
)

// NewsItem is a single report as delivered by an input provider.
type NewsItem struct {
	ID          string `json:"id,omitempty"`
	Title       string `json:"title"`
	Summary     string `json:"summary"`
	SourceID    string `json:"source_id"`
	Link        string `json:"link"`
	PublishedAt string `json:"published_at,omitempty"`
	Language    string `json:"language,omitempty"`
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses an ISO-8601 style timestamp. A zero time means the
// value was empty or malformed.
func ParseTimestamp(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}

	for _, f := range timestampLayouts {
		if ts, err := time.Parse(f, raw); err == nil {
			return ts
		}
	}

	return time.Time{}
}

// Published returns the parsed publication time. ok is false when the
// timestamp is missing or unparseable.
func (n NewsItem) Published() (ts time.Time, ok bool) {
	ts = ParseTimestamp(n.PublishedAt)
	return ts, !ts.IsZero()
}

// CrossReference summarizes how an item was corroborated by other sources.
type CrossReference struct {
	ClusterID         string `json:"cluster_id"`
	SourceCount       int    `json:"source_count"`
	UniqueSources     int    `json:"unique_sources"`
	Confirmed         bool   `json:"confirmed"`
	HasContradictions bool   `json:"has_contradictions"`
}

// Contradiction records two same-cluster reports whose summaries disagree.
type Contradiction struct {
	SourceA    string  `json:"source_a"`
	SourceB    string  `json:"source_b"`
	Similarity float64 `json:"similarity"`
	ExcerptA   string  `json:"excerpt_a"`
	ExcerptB   string  `json:"excerpt_b"`
}

// VerifiedItem is a NewsItem annotated with its credibility assessment.
type VerifiedItem struct {
	NewsItem
	Credibility         int            `json:"credibility"`
	CredibilityOriginal int            `json:"credibility_original"`
	Confident           bool           `json:"confident"`
	CredibilityReasons  []string       `json:"credibility_reasons"`
	CrossReference      CrossReference `json:"cross_reference"`
}

// WithReasons returns a copy of v with reasons appended. The receiver's
// reason slice is never shared with the result.
func (v VerifiedItem) WithReasons(reasons ...string) VerifiedItem {
	merged := make([]string, 0, len(v.CredibilityReasons)+len(reasons))
	merged = append(merged, v.CredibilityReasons...)
	merged = append(merged, reasons...)
	v.CredibilityReasons = merged
	return v
}

// NewsDocument represents the canonical structure stored in Elasticsearch.
type NewsDocument struct {
	ID                  string         `json:"id"`
	Title               string         `json:"title"`
	Text                string         `json:"text"`
	Timestamp           time.Time      `json:"timestamp"`
	Keywords            []string       `json:"keywords"`
	Source              string         `json:"source"`
	URLs                []string       `json:"urls"`
	Language            string         `json:"language,omitempty"`
	Credibility         int            `json:"credibility"`
	CredibilityOriginal int            `json:"credibility_original"`
	Confident           bool           `json:"confident"`
	Reasons             []string       `json:"reasons"`
	CrossReference      CrossReference `json:"cross_reference"`
}
