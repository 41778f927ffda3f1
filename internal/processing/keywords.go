package processing

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/DeafMist/news-verifier/internal/dedupe"
)

// minKeywordRunes is exclusive: tokens need more runes than this to count.
const minKeywordRunes = 3

// KeywordExtractor derives the keyword and entity set of a text.
type KeywordExtractor struct {
	normalizer *Normalizer
	cache      *dedupe.Cache[[]string]
}

// NewKeywordExtractor builds an extractor that normalizes through n.
func NewKeywordExtractor(n *Normalizer, cacheSize int) *KeywordExtractor {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	return &KeywordExtractor{
		normalizer: n,
		cache:      dedupe.NewCache[[]string](cacheSize, 0),
	}
}

// Extract returns the normalized tokens longer than three runes plus the
// canonical names of every entity alias found in the original text. The
// returned set is owned by the caller.
func (k *KeywordExtractor) Extract(text, lang string) map[string]struct{} {
	words := k.words(text, lang)
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// Reset clears the memoization cache.
func (k *KeywordExtractor) Reset() {
	k.cache.Reset()
}

func (k *KeywordExtractor) words(text, lang string) []string {
	if text == "" {
		return nil
	}

	key := lang + "\x00" + text
	if cached, ok := k.cache.Get(key); ok {
		return cached
	}

	seen := make(map[string]struct{})
	for _, tok := range strings.Fields(k.normalizer.Normalize(text, lang)) {
		if utf8.RuneCountInString(tok) > minKeywordRunes {
			seen[tok] = struct{}{}
		}
	}
	for _, entity := range ExtractEntities(text) {
		seen[entity] = struct{}{}
	}

	words := make([]string, 0, len(seen))
	for w := range seen {
		words = append(words, w)
	}
	sort.Strings(words)

	k.cache.Set(key, words)
	return words
}
