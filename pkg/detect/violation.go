// Package detect decides whether an inbound message violates the
// conversation's rules. It covers keyword detection (direct, spacing
// bypass, content-less bumps, cross-message assembly, mention abuse)
// and repetition-based spam. Detection is read-mostly; the only state
// it keeps lives in the cachestore with short TTLs.
package detect

import (
	"time"

	"github.com/google/uuid"
)

// Reason tags why a violation fired.
type Reason string

const (
	ReasonDirect       Reason = "direct"
	ReasonSpaceBypass  Reason = "space-bypass"
	ReasonBump         Reason = "bump"
	ReasonCrossMessage Reason = "cross-message"
	ReasonMentionAbuse Reason = "mention-abuse"
	ReasonSpam         Reason = "spam"
)

// Severity selects the escalation path: normal violations go through
// the warning counter, permanent ones skip straight to a terminal
// warning entry.
type Severity string

const (
	SeverityNormal    Severity = "normal"
	SeverityPermanent Severity = "permanent"
)

// Violation is one detected rule violation, ready for the escalation
// engine.
type Violation struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	ParticipantID  string    `json:"participantId"`
	MessageID      string    `json:"messageId,omitempty"`
	Reason         Reason    `json:"reason"`
	Severity       Severity  `json:"severity"`
	Keyword        string    `json:"keyword,omitempty"`
	DetectedAt     time.Time `json:"detectedAt"`
}

func newViolation(conversationID, participantID, messageID string, reason Reason, severity Severity, kw string) *Violation {
	return &Violation{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		ParticipantID:  participantID,
		MessageID:      messageID,
		Reason:         reason,
		Severity:       severity,
		Keyword:        kw,
		DetectedAt:     time.Now().UTC(),
	}
}
