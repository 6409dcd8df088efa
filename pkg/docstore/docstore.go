// Package docstore is the durable document store. Moderation state is
// persisted as whole JSON documents keyed by (kind, conversation ID):
// one document holds, say, every warning record for one conversation.
// Documents are read, mutated in memory, and written back whole; the
// engine guarantees no concurrent mutation per key, so the store needs
// no document-level locking beyond its own internals.
package docstore

import (
	"context"
	"errors"
)

// Document kinds. Each kind maps to one JSON document per conversation.
const (
	KindKeywords   = "keywords"
	KindSafeWords  = "safewords"
	KindWarnings   = "warnings"
	KindBans       = "bans"
	KindBanCounts  = "bancounts"
	KindAttendance = "attendance"
	KindExclusions = "exclusions"
	KindRoles      = "roles"
	KindSettings   = "settings"
)

// GlobalScope is the conversation ID used for documents that apply to
// every conversation (the global keyword list, protected roles).
const GlobalScope = "_global"

// ErrNotFound is returned by operations that require an existing document.
var ErrNotFound = errors.New("docstore: document not found")

// Store reads and writes whole JSON documents.
type Store interface {
	// Get unmarshals the document for (kind, conversationID) into out.
	// Returns false with a nil error when the document does not exist.
	Get(ctx context.Context, kind, conversationID string, out any) (bool, error)

	// Put marshals doc and stores it under (kind, conversationID),
	// replacing any previous version.
	Put(ctx context.Context, kind, conversationID string, doc any) error

	// Delete removes the document. Deleting a missing document is not
	// an error.
	Delete(ctx context.Context, kind, conversationID string) error

	// List returns the conversation IDs that have a document of kind.
	List(ctx context.Context, kind string) ([]string, error)
}
