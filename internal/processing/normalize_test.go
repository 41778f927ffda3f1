package processing_test

import (
	"sort"
	"testing"

	"github.com/DeafMist/news-verifier/internal/processing"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	n := processing.NewNormalizer("en", 16)

	tests := []struct {
		name  string
		input string
		lang  string
		want  string
	}{
		{name: "empty", input: "", lang: "en", want: ""},
		{name: "punctuation removed", input: "Bitcoin hits $100k!", lang: "en", want: "bitcoin hits 100k"},
		{name: "stopwords dropped", input: "The SEC, approves   an ETF.", lang: "en", want: "sec approves etf"},
		{name: "default language", input: "The halving is here", lang: "", want: "halving here"},
		{name: "russian", input: "Биткоин и эфир — растут!", lang: "ru", want: "биткоин эфир растут"},
		{name: "unknown language keeps stopwords", input: "The cat", lang: "xx", want: "the cat"},
		{name: "only stopwords", input: "The and of", lang: "en", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, n.Normalize(tt.input, tt.lang))
		})
	}
}

func TestNormalizeIsMemoizedAndPure(t *testing.T) {
	n := processing.NewNormalizer("en", 2)

	first := n.Normalize("Ether rallies!", "en")
	second := n.Normalize("Ether rallies!", "en")
	require.Equal(t, first, second)

	n.Normalize("one", "en")
	n.Normalize("two", "en")
	n.Normalize("three", "en")
	require.Equal(t, first, n.Normalize("Ether rallies!", "en"))

	n.Reset()
	require.Equal(t, first, n.Normalize("Ether rallies!", "en"))
}

func TestNormalizeLanguageSeparatesCacheEntries(t *testing.T) {
	n := processing.NewNormalizer("en", 16)
	require.Equal(t, "cat", n.Normalize("the cat", "en"))
	require.Equal(t, "the cat", n.Normalize("the cat", "xx"))
}

func keys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func TestKeywordExtractor(t *testing.T) {
	k := processing.NewKeywordExtractor(processing.NewNormalizer("en", 16), 16)

	tests := []struct {
		name string
		text string
		want []string
	}{
		{name: "empty", text: "", want: []string{}},
		{name: "short tokens dropped", text: "Bitcoin hits $100k", want: []string{"100k", "bitcoin", "hits"}},
		{name: "ticker aliases", text: "BTC ETF approved by SEC", want: []string{"approved", "bitcoin", "sec"}},
		{name: "person alias", text: "Saylor buys more", want: []string{"buys", "microstrategy", "saylor"}},
		{name: "dollar ticker", text: "$ETH slips", want: []string{"ethereum", "slips"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, keys(k.Extract(tt.text, "en")))
		})
	}
}

func TestKeywordExtractorReturnsFreshSets(t *testing.T) {
	k := processing.NewKeywordExtractor(processing.NewNormalizer("en", 16), 16)

	first := k.Extract("Solana outage resolved", "en")
	first["mutated"] = struct{}{}

	second := k.Extract("Solana outage resolved", "en")
	_, ok := second["mutated"]
	require.False(t, ok)
	require.Equal(t, []string{"outage", "resolved", "solana"}, keys(second))
}

func TestExtractEntitiesWordBoundaries(t *testing.T) {
	tests := []struct {
		text string
		want []string
	}{
		{text: "Ethernet cables and subsections", want: nil},
		{text: "The SEC sued Binance", want: []string{"binance", "sec"}},
		{text: "Changpeng Zhao steps down", want: []string{"binance"}},
		{text: "XRP and DOGE rally", want: []string{"ripple", "dogecoin"}},
		{text: "", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			require.Equal(t, tt.want, processing.ExtractEntities(tt.text))
		})
	}
}
