package moderation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/groupwarden/warden/pkg/connector"
	"github.com/groupwarden/warden/pkg/docstore"
	"github.com/groupwarden/warden/pkg/syncutil"
)

// WarningLimit is the countable-warning threshold that converts into a
// ban.
const WarningLimit = 3

// Engine drives warnings, bans and attendance for every conversation.
// Every mutating operation holds the conversation's lock for its
// read-modify-write, which is the no-concurrent-mutation guarantee the
// docstore relies on. HTTP handlers and the timers share the same
// engine, so the lock lives here rather than at the callers.
type Engine struct {
	docs   docstore.Store
	conn   connector.Connector
	logger *slog.Logger
	locks  *syncutil.KeyedLock

	// TopActor is the only identity allowed to lift permanent bans and
	// remove permanent warnings.
	TopActor string

	// EffectPause is the delay between side-effect steps.
	EffectPause time.Duration

	now func() time.Time
}

func NewEngine(docs docstore.Store, conn connector.Connector, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		docs:        docs,
		conn:        conn,
		logger:      logger,
		locks:       syncutil.NewKeyedLock(),
		EffectPause: 2 * time.Second,
		now:         time.Now,
	}
}

func (e *Engine) lock(ctx context.Context, conversationID string) (func(), error) {
	if err := e.locks.Acquire(ctx, conversationID); err != nil {
		return nil, err
	}
	return func() { e.locks.Release(conversationID) }, nil
}

func (e *Engine) loadWarnings(ctx context.Context, conversationID string) (*warningsDoc, error) {
	doc := &warningsDoc{}
	if _, err := e.docs.Get(ctx, docstore.KindWarnings, conversationID, doc); err != nil {
		return nil, err
	}
	if doc.Records == nil {
		doc.Records = make(map[string]*WarningRecord)
	}
	return doc, nil
}

func (e *Engine) loadBans(ctx context.Context, conversationID string) (*bansDoc, error) {
	doc := &bansDoc{}
	if _, err := e.docs.Get(ctx, docstore.KindBans, conversationID, doc); err != nil {
		return nil, err
	}
	if doc.Records == nil {
		doc.Records = make(map[string]*BanRecord)
	}
	return doc, nil
}

func (e *Engine) loadBanCounts(ctx context.Context, conversationID string) (*banCountsDoc, error) {
	doc := &banCountsDoc{}
	if _, err := e.docs.Get(ctx, docstore.KindBanCounts, conversationID, doc); err != nil {
		return nil, err
	}
	if doc.Counts == nil {
		doc.Counts = make(map[string]int)
	}
	return doc, nil
}

// IssueWarning records a warning and returns the countable total. A
// non-empty sourceMessageID makes the call idempotent: re-processing
// the same message never double-counts. Reaching WarningLimit converts
// the warnings into a ban atomically; the returned BanRecord is non-nil
// in that case and the warning record is cleared, permanent entries
// included.
func (e *Engine) IssueWarning(ctx context.Context, conversationID, participantID, nickname, reason, sourceMessageID string, permanent bool) (int, *BanRecord, error) {
	unlock, err := e.lock(ctx, conversationID)
	if err != nil {
		return 0, nil, err
	}
	defer unlock()
	return e.issueWarning(ctx, conversationID, participantID, nickname, reason, sourceMessageID, permanent, true)
}

// issueWarning needs the conversation lock held. removeNow controls
// whether an escalation ban removes the participant inline or leaves
// the removal to the caller's notification chain.
func (e *Engine) issueWarning(ctx context.Context, conversationID, participantID, nickname, reason, sourceMessageID string, permanent, removeNow bool) (int, *BanRecord, error) {
	doc, err := e.loadWarnings(ctx, conversationID)
	if err != nil {
		return 0, nil, err
	}
	rec := doc.Records[participantID]
	if rec == nil {
		rec = &WarningRecord{}
		doc.Records[participantID] = rec
	}
	if nickname != "" {
		rec.Nickname = nickname
	}
	if sourceMessageID != "" {
		for _, entry := range rec.Entries {
			if entry.SourceMessageID == sourceMessageID {
				return rec.Count(), nil, nil
			}
		}
	}
	rec.Entries = append(rec.Entries, WarningEntry{
		Key:             newRecordKey(),
		Reason:          reason,
		SourceMessageID: sourceMessageID,
		Permanent:       permanent,
		IssuedAt:        e.now().UTC(),
	})
	count := rec.Count()

	if !permanent && count >= WarningLimit {
		// The ban replaces the warnings; the record does not survive,
		// permanent entries included.
		delete(doc.Records, participantID)
		if err := e.docs.Put(ctx, docstore.KindWarnings, conversationID, doc); err != nil {
			return 0, nil, err
		}
		ban, err := e.ban(ctx, conversationID, participantID, nickname,
			fmt.Sprintf("reached %d warnings (last: %s)", WarningLimit, reason), "system", removeNow)
		if err != nil {
			return count, nil, err
		}
		return count, ban, nil
	}

	if err := e.docs.Put(ctx, docstore.KindWarnings, conversationID, doc); err != nil {
		return 0, nil, err
	}
	e.logger.Info("warning issued",
		"conversation", conversationID,
		"participant", participantID,
		"count", count,
		"permanent", permanent,
		"reason", reason)
	return count, nil, nil
}

// DeductWarning removes the newest countable warning. An elevated actor
// may also remove permanent entries when no countable ones remain.
func (e *Engine) DeductWarning(ctx context.Context, conversationID, participantID string, elevated bool) (int, error) {
	unlock, err := e.lock(ctx, conversationID)
	if err != nil {
		return 0, err
	}
	defer unlock()
	doc, err := e.loadWarnings(ctx, conversationID)
	if err != nil {
		return 0, err
	}
	rec := doc.Records[participantID]
	if rec == nil || len(rec.Entries) == 0 {
		return 0, ErrNotFound
	}
	idx := -1
	for i := len(rec.Entries) - 1; i >= 0; i-- {
		if !rec.Entries[i].Permanent {
			idx = i
			break
		}
	}
	if idx == -1 {
		if !elevated {
			return 0, ErrNotFound
		}
		idx = len(rec.Entries) - 1
	}
	rec.Entries = append(rec.Entries[:idx], rec.Entries[idx+1:]...)
	if len(rec.Entries) == 0 {
		delete(doc.Records, participantID)
	}
	if err := e.docs.Put(ctx, docstore.KindWarnings, conversationID, doc); err != nil {
		return 0, err
	}
	return rec.Count(), nil
}

// Warnings returns the participant's warning record, or nil.
func (e *Engine) Warnings(ctx context.Context, conversationID, participantID string) (*WarningRecord, error) {
	doc, err := e.loadWarnings(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	return doc.Records[participantID], nil
}

// Ban creates an active ban. The duration follows the participant's
// lifetime offense count in the conversation: first 3 days, second
// 7 days, third and later permanent. The attendance entry is dropped so
// the rollover stops counting the banned participant. The connector
// removal is attempted once; a failure is logged and left for
// reconciliation, the record stands either way.
func (e *Engine) Ban(ctx context.Context, conversationID, participantID, nickname, reason, bannedBy string) (*BanRecord, error) {
	unlock, err := e.lock(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	defer unlock()
	return e.ban(ctx, conversationID, participantID, nickname, reason, bannedBy, true)
}

// ban needs the conversation lock held.
func (e *Engine) ban(ctx context.Context, conversationID, participantID, nickname, reason, bannedBy string, removeNow bool) (*BanRecord, error) {
	bans, err := e.loadBans(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if _, exists := bans.Records[participantID]; exists {
		return nil, ErrAlreadyBanned
	}
	counts, err := e.loadBanCounts(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	counts.Counts[participantID]++
	n := counts.Counts[participantID]

	now := e.now().UTC()
	rec := &BanRecord{
		UID:            e.uniqueUID(bans),
		ConversationID: conversationID,
		ParticipantID:  participantID,
		Nickname:       nickname,
		Reason:         reason,
		BannedBy:       bannedBy,
		BanCount:       n,
		BannedAt:       now,
	}
	switch n {
	case 1:
		rec.DurationType = DurationThreeDays
		lift := now.Add(3 * 24 * time.Hour)
		rec.LiftAt = &lift
	case 2:
		rec.DurationType = DurationSevenDays
		lift := now.Add(7 * 24 * time.Hour)
		rec.LiftAt = &lift
	default:
		rec.DurationType = DurationPermanent
	}
	bans.Records[participantID] = rec

	if err := e.docs.Put(ctx, docstore.KindBans, conversationID, bans); err != nil {
		return nil, err
	}
	if err := e.docs.Put(ctx, docstore.KindBanCounts, conversationID, counts); err != nil {
		return nil, err
	}
	if err := e.removeFromAttendance(ctx, conversationID, participantID); err != nil {
		return nil, err
	}

	if removeNow {
		if err := e.conn.RemoveParticipant(ctx, conversationID, participantID); err != nil {
			e.logger.Error("ban removal failed, leaving for reconciliation",
				"conversation", conversationID,
				"participant", participantID,
				"error", err)
		}
	}
	e.logger.Info("participant banned",
		"conversation", conversationID,
		"participant", participantID,
		"uid", rec.UID,
		"duration", rec.DurationType,
		"banCount", n)
	return rec, nil
}

func (e *Engine) uniqueUID(bans *bansDoc) string {
	for {
		uid := newBanUID()
		taken := false
		for _, rec := range bans.Records {
			if rec.UID == uid {
				taken = true
				break
			}
		}
		if !taken {
			return uid
		}
	}
}

// Unban lifts a ban addressed by its 6-char uid or by participant ID.
// Permanent bans require the top-level actor.
func (e *Engine) Unban(ctx context.Context, conversationID, identifier, actor string) (*BanRecord, error) {
	unlock, err := e.lock(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	defer unlock()
	bans, err := e.loadBans(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	var rec *BanRecord
	for _, r := range bans.Records {
		if r.UID == identifier || r.ParticipantID == identifier {
			rec = r
			break
		}
	}
	if rec == nil {
		return nil, ErrNotFound
	}
	if rec.DurationType == DurationPermanent && actor != e.TopActor {
		return nil, ErrPermanentBan
	}
	delete(bans.Records, rec.ParticipantID)
	if err := e.docs.Put(ctx, docstore.KindBans, conversationID, bans); err != nil {
		return nil, err
	}
	if err := e.conn.AddParticipant(ctx, conversationID, rec.ParticipantID); err != nil {
		e.logger.Error("unban re-add failed",
			"conversation", conversationID,
			"participant", rec.ParticipantID,
			"error", err)
	}
	return rec, nil
}

// ActiveBan returns the participant's active ban, or nil.
func (e *Engine) ActiveBan(ctx context.Context, conversationID, participantID string) (*BanRecord, error) {
	bans, err := e.loadBans(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	return bans.Records[participantID], nil
}

// LiftExpired sweeps every conversation and lifts bans whose LiftAt has
// passed. Running it twice in a row lifts nothing the second time.
func (e *Engine) LiftExpired(ctx context.Context) ([]BanRecord, error) {
	convs, err := e.docs.List(ctx, docstore.KindBans)
	if err != nil {
		return nil, err
	}
	now := e.now().UTC()
	var lifted []BanRecord
	for _, conv := range convs {
		expired, err := e.liftExpiredIn(ctx, conv, now)
		if err != nil {
			return lifted, err
		}
		lifted = append(lifted, expired...)
	}
	for _, rec := range lifted {
		if err := e.conn.AddParticipant(ctx, rec.ConversationID, rec.ParticipantID); err != nil {
			e.logger.Error("expired-ban re-add failed",
				"conversation", rec.ConversationID,
				"participant", rec.ParticipantID,
				"error", err)
		}
		e.logger.Info("ban lifted",
			"conversation", rec.ConversationID,
			"participant", rec.ParticipantID,
			"uid", rec.UID)
	}
	return lifted, nil
}

func (e *Engine) liftExpiredIn(ctx context.Context, conversationID string, now time.Time) ([]BanRecord, error) {
	unlock, err := e.lock(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	defer unlock()
	bans, err := e.loadBans(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	var lifted []BanRecord
	for pid, rec := range bans.Records {
		if rec.LiftAt == nil || rec.LiftAt.After(now) {
			continue
		}
		delete(bans.Records, pid)
		lifted = append(lifted, *rec)
	}
	if len(lifted) == 0 {
		return nil, nil
	}
	if err := e.docs.Put(ctx, docstore.KindBans, conversationID, bans); err != nil {
		return nil, err
	}
	return lifted, nil
}

// ResetBans wipes the conversation's active bans and zeroes the
// lifetime counts of the participants it wiped.
func (e *Engine) ResetBans(ctx context.Context, conversationID string) error {
	unlock, err := e.lock(ctx, conversationID)
	if err != nil {
		return err
	}
	defer unlock()
	bans, err := e.loadBans(ctx, conversationID)
	if err != nil {
		return err
	}
	counts, err := e.loadBanCounts(ctx, conversationID)
	if err != nil {
		return err
	}
	for pid := range bans.Records {
		delete(counts.Counts, pid)
	}
	if err := e.docs.Delete(ctx, docstore.KindBans, conversationID); err != nil {
		return err
	}
	return e.docs.Put(ctx, docstore.KindBanCounts, conversationID, counts)
}

// ResetWarnings wipes the conversation's warning records.
func (e *Engine) ResetWarnings(ctx context.Context, conversationID string) error {
	unlock, err := e.lock(ctx, conversationID)
	if err != nil {
		return err
	}
	defer unlock()
	return e.docs.Delete(ctx, docstore.KindWarnings, conversationID)
}
