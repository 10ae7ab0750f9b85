package identity

import (
	"strings"
)

// Organization names arrive typed by hand, so identity matching needs a
// tolerant comparison. The score is layered: exact match, then full
// containment, then Jaccard overlap of significant words, with a bonus
// when both names share an institutional keyword ("school" etc.) —
// institutions are the dominant duplicate source in intake data.

const (
	scoreExact       = 1.0
	scoreContainment = 0.9
	keywordBonus     = 0.2

	// minTokenLen filters connective words ("of", "the") out of the
	// Jaccard token sets.
	minTokenLen = 2
)

// institutionalKeywords mark names that refer to schools and similar
// bodies; sharing one is weak evidence two spellings mean the same
// organization.
var institutionalKeywords = []string{
	"school", "high", "middle", "elementary", "academy",
	"university", "college", "district",
}

// Similarity scores two organization names in [0, 1].
func Similarity(a, b string) float64 {
	na, nb := normalizeName(a), normalizeName(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return scoreExact
	}
	if strings.Contains(na, nb) || strings.Contains(nb, na) {
		return scoreContainment
	}

	score := jaccard(tokenize(na), tokenize(nb))
	if hasInstitutionalKeyword(na) && hasInstitutionalKeyword(nb) {
		score += keywordBonus
	}
	if score > 1 {
		score = 1
	}
	return score
}

func normalizeName(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(s))), " ")
}

// FoldKey returns the comparison form of a human-entered name: lowered,
// trimmed, inner whitespace collapsed. Two strings with equal FoldKeys
// are considered the same name.
func FoldKey(s string) string {
	return normalizeName(s)
}

// tokenize splits a normalized name into its significant words.
func tokenize(s string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, w := range strings.Fields(s) {
		if len(w) > minTokenLen {
			tokens[w] = struct{}{}
		}
	}
	return tokens
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for w := range a {
		if _, ok := b[w]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

func hasInstitutionalKeyword(s string) bool {
	for _, w := range strings.Fields(s) {
		for _, kw := range institutionalKeywords {
			if w == kw {
				return true
			}
		}
	}
	return false
}
