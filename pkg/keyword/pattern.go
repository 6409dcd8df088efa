package keyword

import (
	"regexp"
	"strings"

	"github.com/groupwarden/warden/pkg/canonical"
)

// Matcher is a tolerant single-keyword matcher built from a canonical
// keyword. It matches the keyword's letters in order while permitting
// arbitrary non-letter characters between consecutive letters (defeating
// spacing and punctuation insertion) and requires a word-like boundary on
// both sides. A candidate span is accepted only when the number of
// letters inside it equals the keyword's letter count, which rejects
// matches that are substrings of longer benign words.
//
// The compact variant matches the keyword with its own spaces removed;
// running it against whitespace-stripped text catches "tangina" when the
// configured keyword is "tang ina".
type Matcher struct {
	Keyword       string // canonical form the matcher was built from
	re            *regexp.Regexp
	compactRe     *regexp.Regexp
	expectedCount int
}

// Build compiles a tolerant matcher for an already-canonicalized keyword.
func Build(canonicalKeyword string) *Matcher {
	re, letters := compile(canonicalKeyword)
	m := &Matcher{
		Keyword:       canonicalKeyword,
		re:            re,
		compactRe:     re,
		expectedCount: letters,
	}
	if compact := canonical.Compact(canonicalKeyword); compact != canonicalKeyword {
		m.compactRe, _ = compile(compact)
	}
	return m
}

func compile(kw string) (*regexp.Regexp, int) {
	var pat strings.Builder
	letters := 0
	runes := []rune(kw)
	for i, r := range runes {
		switch {
		case r == ' ':
			pat.WriteString(`\s+`)
		case r >= 'a' && r <= 'z':
			letters++
			pat.WriteRune(r)
			if i != len(runes)-1 {
				pat.WriteString(`[^a-z]*`)
			}
		default:
			pat.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	return regexp.MustCompile(`(?i)(?:^|\s)(` + pat.String() + `)(?:\s|$)`), letters
}

// Match reports whether text contains the keyword at a word-like
// boundary with exactly the expected number of letters in the span.
func (m *Matcher) Match(text string) bool {
	return m.matchWith(m.re, text)
}

// MatchCompact runs the space-free variant of the keyword, intended for
// text that has itself been whitespace-stripped.
func (m *Matcher) MatchCompact(text string) bool {
	return m.matchWith(m.compactRe, text)
}

func (m *Matcher) matchWith(re *regexp.Regexp, text string) bool {
	sub := re.FindStringSubmatch(text)
	if sub == nil {
		return false
	}
	matched := sub[1]
	if matched == "" {
		matched = sub[0]
	}
	return canonical.LetterCount(matched) == m.expectedCount
}

// ExpectedLetterCount exposes the letter count the matcher enforces.
func (m *Matcher) ExpectedLetterCount() int {
	return m.expectedCount
}
