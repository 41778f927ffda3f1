package processing

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// entityAlias maps a canonical entity to the surface forms that mention it.
type entityAlias struct {
	canonical string
	aliases   []string
}

// entityAliases is scanned in order so extraction output is deterministic.
var entityAliases = []entityAlias{
	{"bitcoin", []string{"bitcoin", "btc", "xbt", "satoshi"}},
	{"ethereum", []string{"ethereum", "eth", "ether", "vitalik", "buterin"}},
	{"solana", []string{"solana", "sol"}},
	{"ripple", []string{"ripple", "xrp", "garlinghouse"}},
	{"binance", []string{"binance", "bnb", "changpeng zhao"}},
	{"tether", []string{"tether", "usdt"}},
	{"dogecoin", []string{"dogecoin", "doge"}},
	{"cardano", []string{"cardano", "ada"}},
	{"coinbase", []string{"coinbase"}},
	{"sec", []string{"sec", "gensler"}},
	{"blackrock", []string{"blackrock", "ibit"}},
	{"microstrategy", []string{"microstrategy", "mstr", "saylor"}},
}

// ExtractEntities returns the canonical entity names whose aliases appear in
// text as whole words, matched case-insensitively on the raw text.
func ExtractEntities(text string) []string {
	if text == "" {
		return nil
	}
	lower := strings.ToLower(text)

	var found []string
	for _, e := range entityAliases {
		for _, alias := range e.aliases {
			if containsWord(lower, alias) {
				found = append(found, e.canonical)
				break
			}
		}
	}
	return found
}

// containsWord reports whether word occurs in text bounded by non-alphanumerics.
func containsWord(text, word string) bool {
	for offset := 0; offset < len(text); {
		idx := strings.Index(text[offset:], word)
		if idx < 0 {
			return false
		}
		start := offset + idx
		end := start + len(word)

		leftOK := start == 0
		if !leftOK {
			r, _ := utf8.DecodeLastRuneInString(text[:start])
			leftOK = !isWordRune(r)
		}
		rightOK := end == len(text)
		if !rightOK {
			r, _ := utf8.DecodeRuneInString(text[end:])
			rightOK = !isWordRune(r)
		}
		if leftOK && rightOK {
			return true
		}
		offset = start + 1
	}
	return false
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
