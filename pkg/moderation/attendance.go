package moderation

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/groupwarden/warden/pkg/connector"
	"github.com/groupwarden/warden/pkg/docstore"
)

// attendanceZone anchors the daily cycle. The communities this serves
// live on Philippine time.
var attendanceZone = time.FixedZone("UTC+8", 8*60*60)

const (
	absenceWarnAt = 2
	absenceBanAt  = 3
)

func dayKey(t time.Time) string {
	return t.In(attendanceZone).Format("2006-01-02")
}

func (e *Engine) loadAttendance(ctx context.Context, conversationID string) (*attendanceDoc, error) {
	doc := &attendanceDoc{}
	if _, err := e.docs.Get(ctx, docstore.KindAttendance, conversationID, doc); err != nil {
		return nil, err
	}
	if doc.Entries == nil {
		doc.Entries = make(map[string]*AttendanceEntry)
	}
	return doc, nil
}

func (e *Engine) loadExclusions(ctx context.Context, conversationID string) (*exclusionsDoc, error) {
	doc := &exclusionsDoc{}
	if _, err := e.docs.Get(ctx, docstore.KindExclusions, conversationID, doc); err != nil {
		return nil, err
	}
	if doc.Excluded == nil {
		doc.Excluded = make(map[string]time.Time)
	}
	return doc, nil
}

// lazyDayReset clears present flags when a new calendar day is observed
// before the rollover ran. It never increments absence counters; only
// DailyRollover does that.
func (e *Engine) lazyDayReset(doc *attendanceDoc) bool {
	today := dayKey(e.now())
	if doc.DayKey == today {
		return false
	}
	if doc.DayKey != "" {
		for _, entry := range doc.Entries {
			entry.Present = false
		}
	}
	doc.DayKey = today
	return true
}

// Track creates or refreshes the participant's attendance entry.
func (e *Engine) Track(ctx context.Context, conversationID, participantID, nickname string) error {
	unlock, err := e.lock(ctx, conversationID)
	if err != nil {
		return err
	}
	defer unlock()
	doc, err := e.loadAttendance(ctx, conversationID)
	if err != nil {
		return err
	}
	e.lazyDayReset(doc)
	entry := doc.Entries[participantID]
	if entry == nil {
		entry = &AttendanceEntry{}
		doc.Entries[participantID] = entry
	}
	if nickname != "" {
		entry.Nickname = nickname
	}
	return e.docs.Put(ctx, docstore.KindAttendance, conversationID, doc)
}

// MarkPresent records the participant for today and clears their
// absence streak. It reports whether they had already checked in.
func (e *Engine) MarkPresent(ctx context.Context, conversationID, participantID, nickname string) (alreadyPresent bool, err error) {
	unlock, err := e.lock(ctx, conversationID)
	if err != nil {
		return false, err
	}
	defer unlock()
	doc, err := e.loadAttendance(ctx, conversationID)
	if err != nil {
		return false, err
	}
	changed := e.lazyDayReset(doc)
	entry := doc.Entries[participantID]
	if entry == nil {
		entry = &AttendanceEntry{}
		doc.Entries[participantID] = entry
		changed = true
	}
	if nickname != "" && entry.Nickname != nickname {
		entry.Nickname = nickname
		changed = true
	}
	if entry.Present {
		// Day-boundary resets and nickname updates still land in the
		// store, matching Snapshot.
		if changed {
			if err := e.docs.Put(ctx, docstore.KindAttendance, conversationID, doc); err != nil {
				return false, err
			}
		}
		return true, nil
	}
	entry.Present = true
	entry.ConsecutiveAbsences = 0
	return false, e.docs.Put(ctx, docstore.KindAttendance, conversationID, doc)
}

// DailyRollover closes the day: absence counters advance for everyone
// who did not check in and is not excluded, and the lists of
// participants that crossed the warning and ban thresholds are
// returned. All present flags reset for the new day.
func (e *Engine) DailyRollover(ctx context.Context, conversationID string) (toWarn, toBan []string, err error) {
	unlock, err := e.lock(ctx, conversationID)
	if err != nil {
		return nil, nil, err
	}
	defer unlock()
	return e.dailyRollover(ctx, conversationID)
}

// dailyRollover needs the conversation lock held.
func (e *Engine) dailyRollover(ctx context.Context, conversationID string) (toWarn, toBan []string, err error) {
	doc, err := e.loadAttendance(ctx, conversationID)
	if err != nil {
		return nil, nil, err
	}
	excl, err := e.loadExclusions(ctx, conversationID)
	if err != nil {
		return nil, nil, err
	}
	for pid, entry := range doc.Entries {
		if _, excluded := excl.Excluded[pid]; excluded {
			continue
		}
		if !entry.Present {
			entry.ConsecutiveAbsences++
			switch {
			case entry.ConsecutiveAbsences == absenceWarnAt:
				toWarn = append(toWarn, pid)
			case entry.ConsecutiveAbsences >= absenceBanAt:
				toBan = append(toBan, pid)
			}
		}
		entry.Present = false
	}
	sort.Strings(toWarn)
	sort.Strings(toBan)
	doc.DayKey = dayKey(e.now())
	if err := e.docs.Put(ctx, docstore.KindAttendance, conversationID, doc); err != nil {
		return nil, nil, err
	}
	return toWarn, toBan, nil
}

// RunDailyCycle performs the rollover and applies its outcomes: an
// advisory group notice for everyone at the warning threshold, a ban
// for everyone at or past the ban threshold. The notice is a message
// only; it never touches the warning ladder.
func (e *Engine) RunDailyCycle(ctx context.Context, conversationID string) error {
	unlock, err := e.lock(ctx, conversationID)
	if err != nil {
		return err
	}
	defer unlock()
	toWarn, toBan, err := e.dailyRollover(ctx, conversationID)
	if err != nil {
		return err
	}
	if len(toWarn) == 0 && len(toBan) == 0 {
		return nil
	}
	doc, err := e.loadAttendance(ctx, conversationID)
	if err != nil {
		return err
	}
	name := func(pid string) string {
		if entry := doc.Entries[pid]; entry != nil && entry.Nickname != "" {
			return entry.Nickname
		}
		return pid
	}
	for _, pid := range toWarn {
		if err := e.conn.SendMessage(ctx, conversationID, absenceNotice(name(pid))); err != nil {
			e.logger.Error("absence notice failed",
				"conversation", conversationID, "participant", pid, "error", err)
		}
	}
	for _, pid := range toBan {
		if _, err := e.ban(ctx, conversationID, pid, name(pid), "absent three days in a row", "system", true); err != nil {
			e.logger.Error("attendance ban failed",
				"conversation", conversationID, "participant", pid, "error", err)
		}
	}
	return nil
}

func absenceNotice(name string) string {
	return fmt.Sprintf("%s has been absent %d days in a row. One more day means an automatic ban.", name, absenceWarnAt)
}

// Exclude suspends attendance tracking for the participant; the entry
// and its counters stay untouched.
func (e *Engine) Exclude(ctx context.Context, conversationID, participantID string) error {
	unlock, err := e.lock(ctx, conversationID)
	if err != nil {
		return err
	}
	defer unlock()
	doc, err := e.loadExclusions(ctx, conversationID)
	if err != nil {
		return err
	}
	if _, ok := doc.Excluded[participantID]; ok {
		return nil
	}
	doc.Excluded[participantID] = e.now().UTC()
	return e.docs.Put(ctx, docstore.KindExclusions, conversationID, doc)
}

// Include resumes attendance tracking.
func (e *Engine) Include(ctx context.Context, conversationID, participantID string) error {
	unlock, err := e.lock(ctx, conversationID)
	if err != nil {
		return err
	}
	defer unlock()
	doc, err := e.loadExclusions(ctx, conversationID)
	if err != nil {
		return err
	}
	if _, ok := doc.Excluded[participantID]; !ok {
		return nil
	}
	delete(doc.Excluded, participantID)
	return e.docs.Put(ctx, docstore.KindExclusions, conversationID, doc)
}

// RemoveFromAttendance drops the participant's entry, used when they
// leave or are banned.
func (e *Engine) RemoveFromAttendance(ctx context.Context, conversationID, participantID string) error {
	unlock, err := e.lock(ctx, conversationID)
	if err != nil {
		return err
	}
	defer unlock()
	return e.removeFromAttendance(ctx, conversationID, participantID)
}

// removeFromAttendance needs the conversation lock held.
func (e *Engine) removeFromAttendance(ctx context.Context, conversationID, participantID string) error {
	doc, err := e.loadAttendance(ctx, conversationID)
	if err != nil {
		return err
	}
	if _, ok := doc.Entries[participantID]; !ok {
		return nil
	}
	delete(doc.Entries, participantID)
	return e.docs.Put(ctx, docstore.KindAttendance, conversationID, doc)
}

// SyncRoster reconciles the attendance entries with the live roster:
// members without an entry get one, entries for departed members are
// dropped.
func (e *Engine) SyncRoster(ctx context.Context, conversationID string, roster []connector.Participant) error {
	unlock, err := e.lock(ctx, conversationID)
	if err != nil {
		return err
	}
	defer unlock()
	doc, err := e.loadAttendance(ctx, conversationID)
	if err != nil {
		return err
	}
	e.lazyDayReset(doc)
	live := make(map[string]connector.Participant, len(roster))
	for _, p := range roster {
		live[p.ID] = p
	}
	for pid := range doc.Entries {
		if _, ok := live[pid]; !ok {
			delete(doc.Entries, pid)
		}
	}
	for pid, p := range live {
		entry := doc.Entries[pid]
		if entry == nil {
			entry = &AttendanceEntry{}
			doc.Entries[pid] = entry
		}
		if p.Nickname != "" {
			entry.Nickname = p.Nickname
		}
	}
	return e.docs.Put(ctx, docstore.KindAttendance, conversationID, doc)
}

// Missed returns the participants with a non-zero absence streak,
// sorted by participant ID.
func (e *Engine) Missed(ctx context.Context, conversationID string) (map[string]*AttendanceEntry, error) {
	doc, err := e.loadAttendance(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*AttendanceEntry)
	for pid, entry := range doc.Entries {
		if entry.ConsecutiveAbsences > 0 {
			out[pid] = entry
		}
	}
	return out, nil
}

// Snapshot returns the full attendance state after applying the lazy
// day-boundary reset.
func (e *Engine) Snapshot(ctx context.Context, conversationID string) (map[string]*AttendanceEntry, error) {
	unlock, err := e.lock(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	defer unlock()
	doc, err := e.loadAttendance(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if e.lazyDayReset(doc) {
		if err := e.docs.Put(ctx, docstore.KindAttendance, conversationID, doc); err != nil {
			return nil, err
		}
	}
	return doc.Entries, nil
}
