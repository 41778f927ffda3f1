package processing

import (
	"regexp"
	"strings"

	"github.com/DeafMist/news-verifier/internal/dedupe"
)

// DefaultCacheSize bounds the memoization caches of Normalizer and KeywordExtractor.
const DefaultCacheSize = 1000

// nonWord matches everything outside the word/space class; it is removed,
// not replaced, so "$100k" normalizes to "100k".
var nonWord = regexp.MustCompile(`[^\p{L}\p{N}_\s]+`)

type wordSet map[string]struct{}

func newWordSet(words ...string) wordSet {
	s := make(wordSet, len(words))
	for _, w := range words {
		s[w] = struct{}{}
	}
	return s
}

var stopwords = map[string]wordSet{
	"en": newWordSet(
		"a", "an", "the", "and", "or", "but", "if", "of", "at", "by", "for",
		"with", "about", "to", "from", "in", "on", "into", "over", "after",
		"is", "are", "was", "were", "be", "been", "being", "has", "have", "had",
		"it", "its", "this", "that", "these", "those", "as", "than", "then",
		"so", "not", "no", "can", "will", "would", "could", "should", "may",
		"he", "she", "they", "we", "you", "i", "his", "her", "their", "our",
		"what", "which", "who", "whom", "when", "where", "why", "how",
		"all", "any", "both", "each", "more", "most", "other", "some", "such",
		"do", "does", "did", "just", "also", "very", "up", "out", "new",
	),
	"ru": newWordSet(
		"и", "в", "во", "не", "что", "он", "на", "я", "с", "со", "как", "а",
		"то", "все", "она", "так", "его", "но", "да", "ты", "к", "у", "же",
		"вы", "за", "бы", "по", "только", "ее", "мне", "было", "вот", "от",
		"меня", "еще", "нет", "о", "из", "ему", "теперь", "когда", "даже",
		"ну", "ли", "если", "уже", "или", "ни", "быть", "был", "него", "до",
		"вас", "нибудь", "опять", "уж", "вам", "ведь", "там", "потом", "себя",
		"это", "этот", "эта", "эти", "для", "при", "без", "над", "под", "про",
	),
}

func stopwordsFor(lang string) wordSet {
	return stopwords[strings.ToLower(strings.TrimSpace(lang))]
}

// Normalizer canonicalizes text for comparison. Results are memoized per
// (language, text) pair in a bounded cache owned by the Normalizer.
type Normalizer struct {
	defaultLang string
	cache       *dedupe.Cache[string]
}

// NewNormalizer builds a Normalizer. An empty language passed to Normalize
// falls back to defaultLang; a language without a stopword list removes no
// stopwords.
func NewNormalizer(defaultLang string, cacheSize int) *Normalizer {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	return &Normalizer{
		defaultLang: defaultLang,
		cache:       dedupe.NewCache[string](cacheSize, 0),
	}
}

// Normalize lower-cases text, strips punctuation, collapses whitespace and
// drops the stopwords of lang.
func (n *Normalizer) Normalize(text, lang string) string {
	if text == "" {
		return ""
	}
	if lang == "" {
		lang = n.defaultLang
	}

	key := lang + "\x00" + text
	if cached, ok := n.cache.Get(key); ok {
		return cached
	}

	out := normalize(text, stopwordsFor(lang))
	n.cache.Set(key, out)
	return out
}

// Reset clears the memoization cache.
func (n *Normalizer) Reset() {
	n.cache.Reset()
}

func normalize(text string, stop wordSet) string {
	lowered := strings.ToLower(text)
	stripped := nonWord.ReplaceAllString(lowered, "")

	tokens := strings.Fields(stripped)
	kept := tokens[:0]
	for _, tok := range tokens {
		if _, skip := stop[tok]; skip {
			continue
		}
		kept = append(kept, tok)
	}
	return strings.Join(kept, " ")
}
