package moderation

import (
	"context"
	"fmt"

	"github.com/groupwarden/warden/pkg/detect"
)

// HandleViolation applies a detected violation: a permanent-severity
// violation records a terminal warning entry, a normal one advances the
// counter and bans at the limit. The conversation is notified through
// an ordered effect chain; its failure does not undo the recorded
// state.
func (e *Engine) HandleViolation(ctx context.Context, v *detect.Violation, nickname string) (*BanRecord, error) {
	permanent := v.Severity == detect.SeverityPermanent
	unlock, err := e.lock(ctx, v.ConversationID)
	if err != nil {
		return nil, err
	}
	// Removal waits for the notification chain: the participant must see
	// the notices before they are taken out of the conversation.
	count, ban, err := e.issueWarning(ctx, v.ConversationID, v.ParticipantID, nickname,
		string(v.Reason), v.MessageID, permanent, false)
	unlock()
	if err != nil {
		return nil, err
	}

	name := nickname
	if name == "" {
		name = v.ParticipantID
	}
	chain := NewChain(e.logger).
		Then("notify", func(ctx context.Context) error {
			return e.conn.SendMessage(ctx, v.ConversationID, violationNotice(name, v, count, permanent))
		}).
		Pause(e.EffectPause).
		Then("taunt", func(ctx context.Context) error {
			return e.conn.SendMessage(ctx, v.ConversationID, tauntFor(v.Reason))
		})
	if ban != nil {
		chain.Pause(e.EffectPause).
			Then("ban-notice", func(ctx context.Context) error {
				return e.conn.SendMessage(ctx, v.ConversationID,
					fmt.Sprintf("%s is banned (%s, id %s).", name, ban.DurationType, ban.UID))
			}).
			Then("remove", func(ctx context.Context) error {
				// A failure here leaves the record standing; the next
				// reconciliation retries the removal.
				return e.conn.RemoveParticipant(ctx, v.ConversationID, v.ParticipantID)
			})
	}
	if err := chain.Execute(ctx); err != nil {
		e.logger.Error("violation effects incomplete",
			"conversation", v.ConversationID,
			"participant", v.ParticipantID,
			"error", err)
	}
	return ban, nil
}

func violationNotice(name string, v *detect.Violation, count int, permanent bool) string {
	if permanent {
		return fmt.Sprintf("%s has been permanently flagged (%s).", name, v.Reason)
	}
	return fmt.Sprintf("%s, warning %d of %d (%s).", name, count, WarningLimit, v.Reason)
}

func tauntFor(reason detect.Reason) string {
	switch reason {
	case detect.ReasonSpam:
		return "Give the send button a rest."
	case detect.ReasonMentionAbuse:
		return "I heard that."
	case detect.ReasonCrossMessage:
		return "Splitting it up does not make it polite."
	default:
		return "Language."
	}
}
