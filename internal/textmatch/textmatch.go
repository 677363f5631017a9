// Package textmatch decides whether a free-text answer is close enough to an
// expected one. Everything here is pure; malformed or empty input yields a
// zeroed Result instead of an error.
package textmatch

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// DefaultKeywordThreshold is the share of reference keywords that must be matched.
	DefaultKeywordThreshold = 0.7

	minKeywordRunes      = 3
	keywordMatchMin      = 80.0
	strictSimilarityMin  = 85
	lenientSimilarityMin = 75
	lenientKeywordMin    = 60
)

// Result is a similarity verdict. Similarity and Confidence are in [0, 100].
type Result struct {
	IsCorrect  bool `json:"isCorrect"`
	Similarity int  `json:"similarity"`
	Confidence int  `json:"confidence"`
}

// Match is the outcome of ValidateAgainstMultiple.
type Match struct {
	Result
	// Candidate is the index of the candidate that produced Result, -1 when none was evaluated.
	Candidate int
	// Evaluated counts candidates compared before returning.
	Evaluated int
}

// Normalize lowercases, drops every rune that is not a letter, digit or space,
// collapses runs of whitespace and trims.
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	pendingSpace := false
	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
			pendingSpace = b.Len() > 0
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if pendingSpace {
				b.WriteByte(' ')
				pendingSpace = false
			}
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// EditDistance is the Levenshtein distance between a and b counted in runes.
func EditDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

// Similarity scores two strings after normalization. Two empty strings are
// identical and score 100.
func Similarity(a, b string) float64 {
	return similarityNormalized(Normalize(a), Normalize(b))
}

func similarityNormalized(a, b string) float64 {
	if a == b {
		return 100
	}
	maxLen := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if maxLen == 0 {
		return 100
	}
	score := 100 * float64(maxLen-EditDistance(a, b)) / float64(maxLen)
	return math.Max(0, math.Min(100, score))
}

// KeywordOverlap reports whether at least threshold of the reference keywords
// (tokens longer than two runes) have a close counterpart in the user text.
func KeywordOverlap(user, correct string, threshold float64) bool {
	want := keywords(Normalize(correct))
	if len(want) == 0 {
		return false
	}
	have := keywords(Normalize(user))

	matches := 0
	for _, w := range want {
		for _, h := range have {
			if similarityNormalized(h, w) >= keywordMatchMin {
				matches++
				break
			}
		}
	}
	return float64(matches)/float64(len(want)) >= threshold
}

func keywords(normalized string) []string {
	var out []string
	for _, tok := range strings.Fields(normalized) {
		if utf8.RuneCountInString(tok) >= minKeywordRunes {
			out = append(out, tok)
		}
	}
	return out
}

// Validate compares a user answer with the reference answer. Strict mode needs
// both high similarity and keyword coverage; lenient mode accepts either high
// similarity or moderate similarity with keyword coverage.
func Validate(user, correct string, strict bool) Result {
	nu, nc := Normalize(user), Normalize(correct)
	if nu == "" || nc == "" {
		return Result{}
	}
	if nu == nc {
		return Result{IsCorrect: true, Similarity: 100, Confidence: 100}
	}

	sim := round(similarityNormalized(nu, nc))
	kw := KeywordOverlap(nu, nc, DefaultKeywordThreshold)

	if strict {
		if sim >= strictSimilarityMin && kw {
			return Result{IsCorrect: true, Similarity: sim, Confidence: min(sim, 95)}
		}
		return Result{Similarity: sim, Confidence: round(math.Max(float64(sim)*0.6, 20))}
	}

	switch {
	case sim >= lenientSimilarityMin:
		return Result{IsCorrect: true, Similarity: sim, Confidence: min(sim, 90)}
	case sim >= lenientKeywordMin && kw:
		return Result{IsCorrect: true, Similarity: sim, Confidence: min(sim+15, 85)}
	default:
		return Result{Similarity: sim, Confidence: round(math.Max(float64(sim)*0.7, 15))}
	}
}

// ValidateAgainstMultiple tries candidates in order, keeps the most confident
// result and stops at the first correct one.
func ValidateAgainstMultiple(user string, candidates []string, strict bool) Match {
	best := Match{Candidate: -1}
	for i, candidate := range candidates {
		res := Validate(user, candidate, strict)
		best.Evaluated = i + 1
		if best.Candidate < 0 || res.Confidence > best.Confidence || (res.IsCorrect && !best.IsCorrect) {
			best.Result = res
			best.Candidate = i
		}
		if res.IsCorrect {
			break
		}
	}
	return best
}

func round(f float64) int {
	return int(math.Round(f))
}
