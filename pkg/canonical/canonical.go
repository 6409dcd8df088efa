// Package canonical reduces chat text to a canonical lower-case form used
// for keyword comparison. The pipeline defeats the usual obfuscation
// tricks: invisible characters, unicode look-alikes, diacritics, currency
// and symbol substitution, leetspeak digits, character repetition, and
// phonetic respelling. All functions are pure and deterministic.
package canonical

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldPasses is the number of iterations of the inner fold loop. Each
// pass is idempotent-seeking; running a fixed number of passes absorbs
// layered obfuscation, e.g. an accented leetspeak digit that decodes to
// another accented letter.
const foldPasses = 7

// Normalize returns the canonical form of text.
//
// Stages, in order: strip invisible code points, fold decorative unicode
// letters to ASCII, lower-case, run the fold loop foldPasses times, apply
// keyboard-proximity substitutions, expand known abbreviations, and apply
// phonetic folding. The output contains only a-z and single spaces.
func Normalize(text string) string {
	s := stripInvisible(text)
	s = foldFancy(s)
	s = strings.ToLower(s)
	for i := 0; i < foldPasses; i++ {
		s = foldPass(s)
	}
	s = proximityFold(s)
	s = expandAbbreviations(s)
	return phoneticFold(s)
}

// Compact strips all whitespace from s. Matching both the normalized and
// compact forms catches keywords split with spaces.
func Compact(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// OriginalWords splits raw message text into lower-cased letter-only
// words, preserving the author's actual spelling. Safe-word checks run
// against these, not against canonical forms.
func OriginalWords(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	words := make([]string, 0, len(fields))
	for _, f := range fields {
		w := strings.Map(func(r rune) rune {
			if r < 'a' || r > 'z' {
				return -1
			}
			return r
		}, f)
		if w != "" {
			words = append(words, w)
		}
	}
	return words
}

// LetterCount reports the number of ASCII letters in s.
func LetterCount(s string) int {
	n := 0
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			n++
		}
	}
	return n
}

func stripInvisible(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 0x200B && r <= 0x200D: // zero-width space/joiners
			return -1
		case r == 0xFEFF: // BOM / zero-width no-break
			return -1
		case r >= 0x2060 && r <= 0x206F: // word joiner, invisible operators
			return -1
		case r >= 0xFE00 && r <= 0xFE0F: // variation selectors
			return -1
		case r >= 0x202A && r <= 0x202E: // bidi embedding controls
			return -1
		}
		return r
	}, s)
}

func foldFancy(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		folded := false
		for _, fr := range fancyRanges {
			if r >= fr.lo && r <= fr.hi {
				off := r - fr.lo
				if fr.modulo {
					off %= 26
				}
				b.WriteRune(fr.base + off)
				folded = true
				break
			}
		}
		if folded {
			continue
		}
		if rep, ok := lookalikes[r]; ok {
			b.WriteString(rep)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// foldPass runs one iteration of the inner fold loop: decomposition and
// mark stripping, table folds, punctuation stripping, digraph and
// leetspeak decoding, run-length de-escalation, whitespace collapse.
func foldPass(s string) string {
	s = stripMarks(s)
	s = strings.Map(func(r rune) rune {
		if strippedPunct[r] {
			return -1
		}
		if l, ok := latinFold[r]; ok {
			return l
		}
		if l, ok := symbolFold[r]; ok {
			return l
		}
		return r
	}, s)
	for _, d := range [][2]string{{"ph", "f"}, {"ck", "k"}, {"qu", "kw"}} {
		s = strings.ReplaceAll(s, d[0], d[1])
	}
	s = strings.Map(func(r rune) rune {
		if l, ok := leetFold[r]; ok {
			return l
		}
		return r
	}, s)
	s = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, s)
	s = collapseRuns(s, 4, 2)
	s = collapseRuns(s, 3, 1)
	return strings.Join(strings.Fields(s), " ")
}

// stripMarks applies NFD decomposition and drops combining marks, so an
// accent stacked onto a letter cannot hide it.
func stripMarks(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// collapseRuns shortens any run of a repeated rune of length >= threshold
// down to keep repetitions.
func collapseRuns(s string, threshold, keep int) string {
	var b strings.Builder
	b.Grow(len(s))
	var prev rune = -1
	run := 0
	rs := []rune(s)
	flush := func() {
		if run == 0 {
			return
		}
		n := run
		if run >= threshold {
			n = keep
		}
		for i := 0; i < n; i++ {
			b.WriteRune(prev)
		}
	}
	for _, r := range rs {
		if r == prev {
			run++
			continue
		}
		flush()
		prev = r
		run = 1
	}
	flush()
	return b.String()
}

// proximityReplacer rewrites letter sequences that render near-identically
// to a single letter in most chat fonts. Single-pass so replacements are
// not themselves rescanned.
var proximityReplacer = strings.NewReplacer(
	"vv", "w",
	"rn", "m",
	"cl", "d",
	"ii", "u",
	"nn", "m",
	"uu", "w",
)

func proximityFold(s string) string {
	return proximityReplacer.Replace(s)
}

func expandAbbreviations(s string) string {
	words := strings.Fields(s)
	changed := false
	for i, w := range words {
		if full, ok := abbreviations[w]; ok {
			words[i] = full
			changed = true
		}
	}
	if !changed {
		return s
	}
	return strings.Join(words, " ")
}

// phoneticDigraphs are applied in order; later entries may consume the
// output of earlier ones, which is intentional (many spellings of one
// sound funnel into one canonical spelling).
var phoneticDigraphs = [][2]string{
	{"ph", "f"}, {"ck", "k"}, {"ks", "x"}, {"qu", "kw"}, {"kn", "n"},
	{"wr", "r"}, {"gh", "g"}, {"ps", "s"}, {"pn", "n"}, {"pt", "t"},
	{"tch", "ch"}, {"dge", "j"}, {"xc", "ks"}, {"sc", "s"}, {"sh", "s"},
	{"th", "t"}, {"wh", "w"},
}

var phoneticSingles = [][2]string{
	{"v", "f"}, {"w", "v"}, {"x", "ks"}, {"z", "s"}, {"c", "k"}, {"q", "k"},
}

// phoneticFold collapses alternate spellings of the same sound. The
// single-letter folds iterate to a fixed point (w -> v -> f) so that
// re-canonicalizing a canonical form leaves it unchanged.
func phoneticFold(s string) string {
	for _, d := range phoneticDigraphs {
		s = strings.ReplaceAll(s, d[0], d[1])
	}
	for i := 0; i < 4; i++ {
		prev := s
		for _, d := range phoneticSingles {
			s = strings.ReplaceAll(s, d[0], d[1])
		}
		if s == prev {
			break
		}
	}
	return s
}
