// Package keyword holds the moderation keyword list: validation rules for
// new keywords, the tolerant matcher compiled from each keyword, and the
// safe-word allow-list used to discard false positives on harmless
// carrier words.
package keyword

import (
	"errors"
	"fmt"
	"strings"

	"github.com/groupwarden/warden/pkg/canonical"
)

// ErrInvalidKeyword is wrapped by all keyword validation failures.
var ErrInvalidKeyword = errors.New("invalid keyword")

// MinKeywordLength is the minimum canonical length accepted at insertion.
const MinKeywordLength = 3

// commonWords are frequent short English words. A keyword whose canonical
// form is exactly one of these would fire on ordinary conversation, so it
// is rejected at insertion and treated as safe during matching.
var commonWords = map[string]bool{
	"a": true, "an": true, "as": true, "at": true, "be": true, "by": true,
	"do": true, "go": true, "he": true, "hi": true, "i": true, "if": true,
	"in": true, "is": true, "it": true, "me": true, "my": true, "no": true,
	"of": true, "ok": true, "on": true, "or": true, "so": true, "to": true,
	"up": true, "us": true, "we": true,
	"all": true, "and": true, "are": true, "but": true, "can": true,
	"did": true, "for": true, "get": true, "had": true, "has": true,
	"her": true, "him": true, "his": true, "how": true, "its": true,
	"may": true, "new": true, "not": true, "now": true, "off": true,
	"old": true, "one": true, "our": true, "out": true, "own": true,
	"put": true, "run": true, "say": true, "see": true, "set": true,
	"she": true, "the": true, "too": true, "two": true, "use": true,
	"was": true, "way": true, "who": true, "why": true, "will": true,
	"with": true, "you": true, "your": true,
}

// safeWords are carrier words whose canonical form collides with common
// keywords ("duck" folds into the same shape as a slur) but whose original
// spelling is innocent. Checked with s/ed/ing/er suffix forms.
var safeWords = []string{
	"click", "clicks", "clicked", "clicking", "clicker",
	"clock", "clocks",
	"back", "backs", "backed", "backing",
	"bucket", "buckets",
	"duck", "ducks",
	"luck", "lucky", "luckily",
	"suck", "sucks", "sucker",
	"truck", "trucks",
	"stuck",
	"sit", "sits", "sitting",
}

// Validate rejects keywords that would cause high false-positive rates:
// canonical form shorter than MinKeywordLength, or a single common word.
func Validate(raw string) error {
	normalized := canonical.Normalize(raw)
	if len(normalized) < MinKeywordLength {
		return fmt.Errorf("%w: %q too short (minimum %d characters after normalization)",
			ErrInvalidKeyword, raw, MinKeywordLength)
	}
	words := strings.Fields(normalized)
	if len(words) == 1 && commonWords[words[0]] {
		return fmt.Errorf("%w: %q is a common word that would cause false positives",
			ErrInvalidKeyword, raw)
	}
	return nil
}

// IsSafeWord reports whether a word from the original message text is on
// the allow-list. The word is reduced to its letters before comparison;
// common words count as safe.
func IsSafeWord(word string) bool {
	clean := strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' {
			return r
		}
		if r >= 'A' && r <= 'Z' {
			return r + ('a' - 'A')
		}
		return -1
	}, strings.TrimSpace(word))

	if commonWords[clean] {
		return true
	}
	for _, safe := range safeWords {
		if clean == safe || clean == safe+"s" || clean == safe+"ed" ||
			clean == safe+"ing" || clean == safe+"er" {
			return true
		}
	}
	return false
}
