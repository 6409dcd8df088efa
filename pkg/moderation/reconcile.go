package moderation

import (
	"context"
)

// Reconcile diffs the persisted state against the live platform and
// repairs the drift that accumulates while the engine is down or the
// platform misbehaves: banned participants who are still (or again) in
// the conversation are removed, and participants whose absence streak
// crossed the ban threshold without a rollover acting on it are banned.
func (e *Engine) Reconcile(ctx context.Context) error {
	convs, err := e.conn.ListConversations(ctx)
	if err != nil {
		return err
	}
	for _, conv := range convs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.reconcileConversation(ctx, conv); err != nil {
			e.logger.Error("reconciliation failed for conversation",
				"conversation", conv, "error", err)
		}
	}
	return nil
}

func (e *Engine) reconcileConversation(ctx context.Context, conversationID string) error {
	unlock, err := e.lock(ctx, conversationID)
	if err != nil {
		return err
	}
	defer unlock()
	roster, err := e.conn.GetConversationRoster(ctx, conversationID)
	if err != nil {
		return err
	}
	present := make(map[string]bool, len(roster))
	for _, p := range roster {
		present[p.ID] = true
	}

	bans, err := e.loadBans(ctx, conversationID)
	if err != nil {
		return err
	}
	for pid, rec := range bans.Records {
		if !present[pid] {
			continue
		}
		if err := e.conn.RemoveParticipant(ctx, conversationID, pid); err != nil {
			e.logger.Error("re-removal of banned participant failed",
				"conversation", conversationID,
				"participant", pid,
				"uid", rec.UID,
				"error", err)
		} else {
			e.logger.Info("re-removed banned participant",
				"conversation", conversationID,
				"participant", pid,
				"uid", rec.UID)
		}
	}

	att, err := e.loadAttendance(ctx, conversationID)
	if err != nil {
		return err
	}
	excl, err := e.loadExclusions(ctx, conversationID)
	if err != nil {
		return err
	}
	for pid, entry := range att.Entries {
		if entry.ConsecutiveAbsences < absenceBanAt {
			continue
		}
		if _, excluded := excl.Excluded[pid]; excluded {
			continue
		}
		if _, banned := bans.Records[pid]; banned {
			continue
		}
		if _, err := e.ban(ctx, conversationID, pid, entry.Nickname,
			"absent three days in a row", "system", true); err != nil {
			e.logger.Error("reconciliation ban failed",
				"conversation", conversationID,
				"participant", pid,
				"error", err)
		}
	}
	return nil
}
