package processing

import (
	"cmp"
	"crypto/sha1"
	"encoding/hex"
	"html"
	"regexp"
	"slices"
	"strings"
	"time"
	"unicode/utf8"
)

var (
	urlPattern = regexp.MustCompile(`https?://[^\s]+`)
	nonAlnum   = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
)

// ExtractURLs returns the distinct http(s) links in input, in order of appearance.
func ExtractURLs(input string) []string {
	var urls []string
	for _, u := range urlPattern.FindAllString(input, -1) {
		if !slices.Contains(urls, u) {
			urls = append(urls, u)
		}
	}
	return urls
}

// RemoveURLs blanks out every link in input.
func RemoveURLs(input string) string {
	return urlPattern.ReplaceAllString(input, " ")
}

// CleanText decodes HTML entities and reduces input to words separated by
// single spaces. Links and punctuation are dropped.
func CleanText(input string) string {
	text := RemoveURLs(html.UnescapeString(input))
	text = nonAlnum.ReplaceAllString(text, " ")
	return strings.Join(strings.Fields(text), " ")
}

// TopKeywords ranks the non-stopword tokens of text by frequency, ties in
// lexical order, and keeps at most limit of them (limit <= 0 keeps all).
func TopKeywords(text, lang string, limit, minLen int) []string {
	stop := stopwordsFor(lang)
	freq := make(map[string]int)
	for _, token := range strings.Fields(strings.ToLower(CleanText(text))) {
		if utf8.RuneCountInString(token) < minLen {
			continue
		}
		if _, skip := stop[token]; skip {
			continue
		}
		freq[token]++
	}
	if len(freq) == 0 {
		return nil
	}

	words := make([]string, 0, len(freq))
	for w := range freq {
		words = append(words, w)
	}
	slices.SortFunc(words, func(a, b string) int {
		if c := cmp.Compare(freq[b], freq[a]); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})

	if limit > 0 && limit < len(words) {
		words = words[:limit]
	}
	return words
}

// BuildDocumentID hashes the reporting source with the report's content and
// publication time. The same story from two sources gets two IDs.
func BuildDocumentID(sourceID, title, text string, ts time.Time) string {
	stamp := ""
	if !ts.IsZero() {
		stamp = ts.UTC().Format(time.RFC3339)
	}
	sum := sha1.Sum([]byte(strings.Join([]string{sourceID, title, text, stamp}, "|")))
	return hex.EncodeToString(sum[:])
}

// Truncate shortens s to at most limit runes, marking the cut with "...".
func Truncate(s string, limit int) string {
	rs := []rune(s)
	if limit <= 0 || len(rs) <= limit {
		return s
	}
	return string(rs[:limit]) + "..."
}

// GenerateTitleFromText derives a headline from the first sentence of text,
// capped at maxWords words with a "..." marker. maxWords <= 0 means no cap.
func GenerateTitleFromText(text string, maxWords int) string {
	sentence := RemoveURLs(text)
	if end := strings.IndexAny(sentence, ".!?"); end > 0 {
		sentence = sentence[:end]
	}

	words := strings.Fields(sentence)
	if maxWords > 0 && len(words) > maxWords {
		return strings.Join(words[:maxWords], " ") + "..."
	}
	return strings.Join(words, " ")
}
