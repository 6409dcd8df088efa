package detect

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/groupwarden/warden/pkg/cachestore"
	"github.com/groupwarden/warden/pkg/canonical"
	"github.com/groupwarden/warden/pkg/connector"
	"github.com/groupwarden/warden/pkg/docstore"
	"github.com/groupwarden/warden/pkg/keyword"
)

const (
	cacheKindRecent   = "recent"
	cacheKindMessages = "messages"

	recentWindow    = 30 * time.Second
	recentMaxSize   = 10
	messageCacheTTL = 60 * time.Second
)

type settingsDoc struct {
	Extreme bool `json:"extreme"`
}

type rolesDoc struct {
	Elevated  []string `json:"elevated,omitempty"`
	Protected []string `json:"protected,omitempty"`
}

type recentEntry struct {
	Canonical string    `json:"canonical"`
	Original  string    `json:"original"`
	At        time.Time `json:"at"`
}

type recentWindowDoc struct {
	Entries []recentEntry `json:"entries"`
}

// Detector runs the keyword pipeline over inbound messages.
type Detector struct {
	keywords *keyword.Store
	cache    cachestore.Store
	docs     docstore.Store
	logger   *slog.Logger

	// BotNicknames are the references to the bot that do not count as
	// mention abuse.
	BotNicknames []string
}

func NewDetector(keywords *keyword.Store, cache cachestore.Store, docs docstore.Store, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{keywords: keywords, cache: cache, docs: docs, logger: logger}
}

// Detect runs the full pipeline over one message and returns the first
// violation found, or nil. Order: suspension and protection gates,
// direct match on normalized and compact forms, bump re-check of the
// quoted body, cross-message window.
func (d *Detector) Detect(ctx context.Context, msg connector.Message) (*Violation, error) {
	suspended, err := d.suspended(ctx, msg.ConversationID)
	if err != nil {
		return nil, err
	}
	if suspended {
		return nil, nil
	}
	protected, err := d.Protected(ctx, msg.ConversationID, msg.SenderID)
	if err != nil {
		return nil, err
	}
	if protected {
		return nil, nil
	}

	matchers, err := d.keywords.Matchers(ctx, msg.ConversationID)
	if err != nil {
		return nil, fmt.Errorf("loading keyword matchers: %w", err)
	}
	if len(matchers) == 0 {
		return nil, nil
	}

	if v := d.checkText(msg, matchers, msg.Body, false); v != nil {
		d.logViolation(v)
		return v, nil
	}

	// A content-less bump resurfaces the quoted message, so the quoted
	// body is checked as if it had been sent again.
	if msg.QuotedBody != "" && (strings.TrimSpace(msg.Body) == "" || msg.Body == msg.QuotedBody) {
		if v := d.checkText(msg, matchers, msg.QuotedBody, true); v != nil {
			d.logViolation(v)
			return v, nil
		}
	}

	v, err := d.checkCrossMessage(ctx, msg, matchers)
	if err != nil {
		return nil, err
	}
	if v != nil {
		d.logViolation(v)
	}
	return v, nil
}

// checkText matches one body against the matchers, covering the direct,
// space-bypass and mention-abuse reasons plus the safe-word check.
func (d *Detector) checkText(msg connector.Message, matchers []*keyword.Matcher, body string, bump bool) *Violation {
	normalized := canonical.Normalize(body)
	compact := canonical.Compact(normalized)
	words := canonical.OriginalWords(body)

	for _, m := range matchers {
		if m.Match(normalized) {
			if d.falsePositive(m, words) {
				continue
			}
			return newViolation(msg.ConversationID, msg.SenderID, msg.ID,
				d.reasonFor(msg, body, bump, ReasonDirect), SeverityNormal, m.Keyword)
		}
		if m.MatchCompact(compact) {
			return newViolation(msg.ConversationID, msg.SenderID, msg.ID,
				d.reasonFor(msg, body, bump, ReasonSpaceBypass), SeverityNormal, m.Keyword)
		}
	}
	return nil
}

// reasonFor picks the most specific reason tag: bump re-checks keep the
// bump tag, a keyword aimed at the bot is mention abuse unless the
// message uses an allowed nickname.
func (d *Detector) reasonFor(msg connector.Message, body string, bump bool, base Reason) Reason {
	if bump {
		return ReasonBump
	}
	if msg.MentionsBot && !d.allowedNickname(body) {
		return ReasonMentionAbuse
	}
	return base
}

func (d *Detector) allowedNickname(body string) bool {
	lower := strings.ToLower(body)
	for _, nick := range d.BotNicknames {
		if nick != "" && strings.Contains(lower, strings.ToLower(nick)) {
			return true
		}
	}
	return false
}

// falsePositive reports whether the match is explained entirely by
// safe-listed words in the author's original spelling. Words are
// compared after canonicalization so "duck" accounts for a "duk" hit.
func (d *Detector) falsePositive(m *keyword.Matcher, originalWords []string) bool {
	found := false
	for _, w := range originalWords {
		if !m.Match(canonical.Normalize(w)) {
			continue
		}
		if !d.keywords.IsSafe(w) {
			return false
		}
		found = true
	}
	return found
}

// checkCrossMessage appends the message to the sender's recent window
// and matches the concatenation of the window, catching keywords split
// across consecutive messages. Both the canonical join and the
// re-normalized join of the original texts are checked; folds that act
// on letter pairs (ph, ck) only fire when the halves meet again in the
// original spelling. A hit fires once and clears the window.
func (d *Detector) checkCrossMessage(ctx context.Context, msg connector.Message, matchers []*keyword.Matcher) (*Violation, error) {
	key := msg.ConversationID + "/" + msg.SenderID
	var win recentWindowDoc
	if _, err := d.cache.Get(ctx, cacheKindRecent, key, &win); err != nil {
		return nil, err
	}
	cutoff := time.Now().UTC().Add(-recentWindow)
	kept := win.Entries[:0]
	for _, entry := range win.Entries {
		if entry.At.After(cutoff) {
			kept = append(kept, entry)
		}
	}
	win.Entries = append(kept, recentEntry{
		Canonical: canonical.Normalize(msg.Body),
		Original:  msg.Body,
		At:        time.Now().UTC(),
	})
	if len(win.Entries) > recentMaxSize {
		win.Entries = win.Entries[len(win.Entries)-recentMaxSize:]
	}
	if err := d.cache.Set(ctx, cacheKindRecent, key, win, recentWindow); err != nil {
		return nil, err
	}
	if len(win.Entries) < 2 {
		return nil, nil
	}

	var canonicals, originals []string
	for _, entry := range win.Entries {
		canonicals = append(canonicals, entry.Canonical)
		originals = append(originals, entry.Original)
	}
	candidates := []string{
		strings.Join(canonicals, ""),
		canonical.Normalize(strings.Join(originals, "")),
	}
	for _, m := range matchers {
		for _, joined := range candidates {
			if m.Match(joined) || m.MatchCompact(canonical.Compact(joined)) {
				if err := d.cache.Delete(ctx, cacheKindRecent, key); err != nil {
					return nil, err
				}
				return newViolation(msg.ConversationID, msg.SenderID, msg.ID,
					ReasonCrossMessage, SeverityNormal, m.Keyword), nil
			}
		}
	}
	return nil, nil
}

// RememberMessage caches the message body so a later unsend can still
// be inspected. Called for every inbound message.
func (d *Detector) RememberMessage(ctx context.Context, msg connector.Message) error {
	return d.cache.Set(ctx, cacheKindMessages, msg.ConversationID+"/"+msg.ID, msg, messageCacheTTL)
}

// RecallMessage returns the cached message for an unsend event, if it
// is still within the cache window.
func (d *Detector) RecallMessage(ctx context.Context, conversationID, messageID string) (*connector.Message, bool, error) {
	var msg connector.Message
	found, err := d.cache.Get(ctx, cacheKindMessages, conversationID+"/"+messageID, &msg)
	if err != nil || !found {
		return nil, false, err
	}
	return &msg, true, nil
}

// SetSuspended toggles the conversation's detection-suspended mode.
func (d *Detector) SetSuspended(ctx context.Context, conversationID string, suspended bool) error {
	return d.docs.Put(ctx, docstore.KindSettings, conversationID, settingsDoc{Extreme: suspended})
}

func (d *Detector) suspended(ctx context.Context, conversationID string) (bool, error) {
	var doc settingsDoc
	if _, err := d.docs.Get(ctx, docstore.KindSettings, conversationID, &doc); err != nil {
		return false, err
	}
	return doc.Extreme, nil
}

// Protect adds a participant to the conversation's protected list
// (docstore.GlobalScope protects across every conversation).
func (d *Detector) Protect(ctx context.Context, conversationID, participantID string) error {
	var doc rolesDoc
	if _, err := d.docs.Get(ctx, docstore.KindRoles, conversationID, &doc); err != nil {
		return err
	}
	for _, id := range doc.Protected {
		if id == participantID {
			return nil
		}
	}
	doc.Protected = append(doc.Protected, participantID)
	return d.docs.Put(ctx, docstore.KindRoles, conversationID, doc)
}

// Unprotect removes a participant from the conversation's protected
// list. Removing from one scope does not touch the other.
func (d *Detector) Unprotect(ctx context.Context, conversationID, participantID string) error {
	var doc rolesDoc
	if _, err := d.docs.Get(ctx, docstore.KindRoles, conversationID, &doc); err != nil {
		return err
	}
	kept := doc.Protected[:0]
	for _, id := range doc.Protected {
		if id != participantID {
			kept = append(kept, id)
		}
	}
	doc.Protected = kept
	return d.docs.Put(ctx, docstore.KindRoles, conversationID, doc)
}

// Protected reports whether the participant is shielded from detection
// and punishment, either globally or in this conversation. Callers that
// feed the spam counters use the same gate.
func (d *Detector) Protected(ctx context.Context, conversationID, participantID string) (bool, error) {
	for _, scope := range []string{docstore.GlobalScope, conversationID} {
		var doc rolesDoc
		if _, err := d.docs.Get(ctx, docstore.KindRoles, scope, &doc); err != nil {
			return false, err
		}
		for _, id := range doc.Protected {
			if id == participantID {
				return true, nil
			}
		}
	}
	return false, nil
}

func (d *Detector) logViolation(v *Violation) {
	d.logger.Info("violation detected",
		"conversation", v.ConversationID,
		"participant", v.ParticipantID,
		"reason", v.Reason,
		"keyword", v.Keyword)
}
