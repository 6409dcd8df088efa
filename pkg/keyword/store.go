package keyword

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/groupwarden/warden/pkg/canonical"
	"github.com/groupwarden/warden/pkg/docstore"
)

type wordListDoc struct {
	Words []string `json:"words"`
}

// Store manages the keyword lists (global plus per-conversation) and a
// compiled-matcher cache. Lists are persisted in the docstore as whole
// documents of canonical keywords; matchers are compiled once per
// canonical keyword and shared across conversations.
type Store struct {
	docs docstore.Store

	mu       sync.RWMutex
	compiled map[string]*Matcher
	safe     map[string]bool
}

func NewStore(docs docstore.Store) *Store {
	return &Store{
		docs:     docs,
		compiled: make(map[string]*Matcher),
		safe:     make(map[string]bool),
	}
}

// Add validates, canonicalizes and stores words on the conversation's
// list (docstore.GlobalScope for the global list). It reports which
// inputs were added and which were skipped as invalid or duplicate.
func (s *Store) Add(ctx context.Context, conversationID string, words []string) (added, skipped []string, err error) {
	var doc wordListDoc
	if _, err := s.docs.Get(ctx, docstore.KindKeywords, conversationID, &doc); err != nil {
		return nil, nil, err
	}
	existing := make(map[string]bool, len(doc.Words))
	for _, w := range doc.Words {
		existing[w] = true
	}

	for _, raw := range words {
		if err := Validate(raw); err != nil {
			skipped = append(skipped, raw)
			continue
		}
		normalized := canonical.Normalize(raw)
		if existing[normalized] {
			skipped = append(skipped, raw)
			continue
		}
		existing[normalized] = true
		doc.Words = append(doc.Words, normalized)
		added = append(added, raw)
	}
	if len(added) == 0 {
		return added, skipped, nil
	}
	sort.Strings(doc.Words)
	if err := s.docs.Put(ctx, docstore.KindKeywords, conversationID, doc); err != nil {
		return nil, nil, fmt.Errorf("storing keyword list: %w", err)
	}
	return added, skipped, nil
}

// Remove deletes words from the conversation's list, matching on
// canonical form. It reports which inputs were removed and which were
// not on the list.
func (s *Store) Remove(ctx context.Context, conversationID string, words []string) (removed, notFound []string, err error) {
	var doc wordListDoc
	if _, err := s.docs.Get(ctx, docstore.KindKeywords, conversationID, &doc); err != nil {
		return nil, nil, err
	}
	existing := make(map[string]bool, len(doc.Words))
	for _, w := range doc.Words {
		existing[w] = true
	}

	for _, raw := range words {
		normalized := canonical.Normalize(raw)
		if existing[normalized] {
			delete(existing, normalized)
			removed = append(removed, raw)
		} else {
			notFound = append(notFound, raw)
		}
	}
	if len(removed) == 0 {
		return removed, notFound, nil
	}
	doc.Words = doc.Words[:0]
	for w := range existing {
		doc.Words = append(doc.Words, w)
	}
	sort.Strings(doc.Words)
	if err := s.docs.Put(ctx, docstore.KindKeywords, conversationID, doc); err != nil {
		return nil, nil, fmt.Errorf("storing keyword list: %w", err)
	}
	return removed, notFound, nil
}

// List returns the global list and the conversation's own list, both in
// canonical form.
func (s *Store) List(ctx context.Context, conversationID string) (global, scoped []string, err error) {
	var doc wordListDoc
	if _, err := s.docs.Get(ctx, docstore.KindKeywords, docstore.GlobalScope, &doc); err != nil {
		return nil, nil, err
	}
	global = doc.Words
	if conversationID != docstore.GlobalScope {
		doc = wordListDoc{}
		if _, err := s.docs.Get(ctx, docstore.KindKeywords, conversationID, &doc); err != nil {
			return nil, nil, err
		}
		scoped = doc.Words
	}
	return global, scoped, nil
}

// Matchers returns compiled matchers for every keyword visible to the
// conversation (global list plus the conversation's own).
func (s *Store) Matchers(ctx context.Context, conversationID string) ([]*Matcher, error) {
	global, scoped, err := s.List(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(global)+len(scoped))
	matchers := make([]*Matcher, 0, len(global)+len(scoped))
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, kw := range append(append([]string{}, global...), scoped...) {
		if seen[kw] {
			continue
		}
		seen[kw] = true
		m, ok := s.compiled[kw]
		if !ok {
			m = Build(kw)
			s.compiled[kw] = m
		}
		matchers = append(matchers, m)
	}
	return matchers, nil
}

// SeedSafeWords adds operator-configured safe words on top of the
// built-in allow-list and persists them on the global scope.
func (s *Store) SeedSafeWords(ctx context.Context, words []string) error {
	var doc wordListDoc
	if _, err := s.docs.Get(ctx, docstore.KindSafeWords, docstore.GlobalScope, &doc); err != nil {
		return err
	}
	existing := make(map[string]bool, len(doc.Words))
	for _, w := range doc.Words {
		existing[w] = true
	}
	changed := false
	for _, w := range words {
		if !existing[w] {
			existing[w] = true
			doc.Words = append(doc.Words, w)
			changed = true
		}
	}
	if changed {
		sort.Strings(doc.Words)
		if err := s.docs.Put(ctx, docstore.KindSafeWords, docstore.GlobalScope, doc); err != nil {
			return fmt.Errorf("storing safe words: %w", err)
		}
	}
	s.mu.Lock()
	for w := range existing {
		s.safe[w] = true
	}
	s.mu.Unlock()
	return nil
}

// IsSafe reports whether a word from the original message text is on
// the built-in allow-list or the operator-configured one.
func (s *Store) IsSafe(word string) bool {
	if IsSafeWord(word) {
		return true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.safe[word]
}
