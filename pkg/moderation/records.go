// Package moderation is the stateful escalation engine: warnings that
// escalate into bans, ban lifetimes derived from repeat offenses,
// attendance tracking with its own warning and ban surface, ordered
// side-effect chains, and reconciliation against the live roster.
//
// All state lives in the docstore as one document per (kind,
// conversation). The engine is the only writer per key; operations
// load a document, mutate it in memory, and write it back whole.
package moderation

import (
	"crypto/rand"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when an operation targets a participant
	// with no matching record.
	ErrNotFound = errors.New("moderation: record not found")

	// ErrAlreadyBanned is returned when a participant already has an
	// active ban in the conversation.
	ErrAlreadyBanned = errors.New("moderation: participant already banned")

	// ErrPermanentBan is returned when someone other than the top-level
	// actor tries to lift a permanent ban.
	ErrPermanentBan = errors.New("moderation: permanent ban can only be lifted by the top-level actor")
)

// WarningEntry is one issued warning.
type WarningEntry struct {
	Key             string    `json:"key"` // 24-char record key
	Reason          string    `json:"reason"`
	SourceMessageID string    `json:"sourceMessageId,omitempty"`
	Permanent       bool      `json:"permanent,omitempty"`
	IssuedAt        time.Time `json:"issuedAt"`
}

// WarningRecord holds a participant's warnings in one conversation.
type WarningRecord struct {
	Nickname string         `json:"nickname,omitempty"`
	Entries  []WarningEntry `json:"entries"`
}

// Count is the number of countable (non-permanent) warnings. Permanent
// warnings are terminal markers and never advance the counter.
func (r *WarningRecord) Count() int {
	n := 0
	for _, e := range r.Entries {
		if !e.Permanent {
			n++
		}
	}
	return n
}

// Ban duration types.
const (
	DurationThreeDays = "3d"
	DurationSevenDays = "7d"
	DurationPermanent = "permanent"
)

// BanRecord is one active ban.
type BanRecord struct {
	UID            string     `json:"uid"` // 6-char id, unique per conversation
	ConversationID string     `json:"conversationId"`
	ParticipantID  string     `json:"participantId"`
	Nickname       string     `json:"nickname,omitempty"`
	Reason         string     `json:"reason"`
	BannedBy       string     `json:"bannedBy"`
	BanCount       int        `json:"banCount"` // lifetime offense number
	DurationType   string     `json:"durationType"`
	BannedAt       time.Time  `json:"bannedAt"`
	LiftAt         *time.Time `json:"liftAt,omitempty"` // nil for permanent
}

// AttendanceEntry tracks one participant's daily presence.
type AttendanceEntry struct {
	Nickname            string `json:"nickname,omitempty"`
	Present             bool   `json:"present"`
	ConsecutiveAbsences int    `json:"consecutiveAbsences"`
}

type warningsDoc struct {
	Records map[string]*WarningRecord `json:"records"`
}

type bansDoc struct {
	Records map[string]*BanRecord `json:"records"` // by participant ID
}

type banCountsDoc struct {
	Counts map[string]int `json:"counts"` // by participant ID
}

type attendanceDoc struct {
	DayKey  string                      `json:"dayKey"`
	Entries map[string]*AttendanceEntry `json:"entries"`
}

type exclusionsDoc struct {
	Excluded map[string]time.Time `json:"excluded"` // participant ID -> since
}

const recordKeyLen = 24

const uidAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// newRecordKey returns a 24-char hex key for a warning entry.
func newRecordKey() string {
	const hexDigits = "0123456789abcdef"
	buf := make([]byte, recordKeyLen)
	raw := make([]byte, recordKeyLen)
	if _, err := rand.Read(raw); err != nil {
		panic(err)
	}
	for i, b := range raw {
		buf[i] = hexDigits[int(b)%len(hexDigits)]
	}
	return string(buf)
}

// newBanUID returns a 6-char ban id over A-Z0-9.
func newBanUID() string {
	raw := make([]byte, 6)
	if _, err := rand.Read(raw); err != nil {
		panic(err)
	}
	buf := make([]byte, 6)
	for i, b := range raw {
		buf[i] = uidAlphabet[int(b)%len(uidAlphabet)]
	}
	return string(buf)
}
