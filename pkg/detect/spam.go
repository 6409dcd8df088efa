package detect

import (
	"context"
	"time"

	"github.com/groupwarden/warden/pkg/cachestore"
)

const (
	cacheKindSpam = "spam"

	repeatWindow = 10 * time.Second
	unsendWindow = 60 * time.Second

	softWarnAt  = 3
	violationAt = 5
)

type spamCounterDoc struct {
	Body     string    `json:"body,omitempty"`
	Start    time.Time `json:"start"`
	Count    int       `json:"count"`
	Notified bool      `json:"notified"`
}

// SpamResult is the outcome of recording one spam-relevant event.
// SoftWarn fires exactly once per window, Violation at most once, after
// which the window is cleared.
type SpamResult struct {
	SoftWarn  bool
	Violation *Violation
}

// SpamDetector tracks repetition per (conversation, participant): the
// same message sent again and again, invalid commands hammered at the
// bot, and rapid unsends. All three share one policy; only the window
// length differs for unsends.
type SpamDetector struct {
	cache cachestore.Store

	now func() time.Time
}

func NewSpamDetector(cache cachestore.Store) *SpamDetector {
	return &SpamDetector{cache: cache, now: time.Now}
}

// RecordMessage counts consecutive identical messages. A different body
// resets the streak.
func (s *SpamDetector) RecordMessage(ctx context.Context, conversationID, participantID, messageID, body string) (*SpamResult, error) {
	return s.bump(ctx, "repeat/"+conversationID+"/"+participantID, conversationID, participantID, messageID, body, repeatWindow)
}

// RecordInvalidCommand counts unknown-command attempts.
func (s *SpamDetector) RecordInvalidCommand(ctx context.Context, conversationID, participantID string) (*SpamResult, error) {
	return s.bump(ctx, "badcmd/"+conversationID+"/"+participantID, conversationID, participantID, "", "", repeatWindow)
}

// RecordUnsend counts rapid message unsends.
func (s *SpamDetector) RecordUnsend(ctx context.Context, conversationID, participantID string) (*SpamResult, error) {
	return s.bump(ctx, "unsend/"+conversationID+"/"+participantID, conversationID, participantID, "", "", unsendWindow)
}

func (s *SpamDetector) bump(ctx context.Context, key, conversationID, participantID, messageID, body string, window time.Duration) (*SpamResult, error) {
	var doc spamCounterDoc
	if _, err := s.cache.Get(ctx, cacheKindSpam, key, &doc); err != nil {
		return nil, err
	}
	// The window is anchored at its first item. A slow drip of repeats
	// starts over instead of keeping the old window alive.
	now := s.now().UTC()
	if body != doc.Body || doc.Start.IsZero() || now.Sub(doc.Start) > window {
		doc = spamCounterDoc{Body: body, Start: now}
	}
	doc.Count++

	res := &SpamResult{}
	switch {
	case doc.Count >= violationAt:
		res.Violation = newViolation(conversationID, participantID, messageID,
			ReasonSpam, SeverityPermanent, "")
		if err := s.cache.Delete(ctx, cacheKindSpam, key); err != nil {
			return nil, err
		}
		return res, nil
	case doc.Count == softWarnAt && !doc.Notified:
		res.SoftWarn = true
		doc.Notified = true
	}
	if err := s.cache.Set(ctx, cacheKindSpam, key, doc, window); err != nil {
		return nil, err
	}
	return res, nil
}
