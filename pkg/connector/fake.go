package connector

import (
	"context"
	"sync"
)

// Call records one invocation on the Fake, in order.
type Call struct {
	Op             string // "send", "remove", "add", "setRole"
	ConversationID string
	ParticipantID  string
	Text           string
	Role           string
}

// Fake is an in-memory Connector that records every call and serves a
// configurable roster. Individual operations can be made to fail by
// setting the corresponding error.
type Fake struct {
	mu sync.Mutex

	Rosters   map[string][]Participant
	History   map[string][]Message
	Calls     []Call
	SendErr   error
	RemoveErr error
	AddErr    error
	RoleErr   error
}

var _ Connector = (*Fake)(nil)

func NewFake() *Fake {
	return &Fake{
		Rosters: make(map[string][]Participant),
		History: make(map[string][]Message),
	}
}

func (f *Fake) record(c Call) {
	f.mu.Lock()
	f.Calls = append(f.Calls, c)
	f.mu.Unlock()
}

func (f *Fake) SendMessage(ctx context.Context, conversationID, text string) error {
	f.record(Call{Op: "send", ConversationID: conversationID, Text: text})
	return f.SendErr
}

func (f *Fake) RemoveParticipant(ctx context.Context, conversationID, participantID string) error {
	f.record(Call{Op: "remove", ConversationID: conversationID, ParticipantID: participantID})
	if f.RemoveErr != nil {
		return f.RemoveErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	roster := f.Rosters[conversationID]
	for i, p := range roster {
		if p.ID == participantID {
			f.Rosters[conversationID] = append(roster[:i:i], roster[i+1:]...)
			break
		}
	}
	return nil
}

func (f *Fake) AddParticipant(ctx context.Context, conversationID, participantID string) error {
	f.record(Call{Op: "add", ConversationID: conversationID, ParticipantID: participantID})
	if f.AddErr != nil {
		return f.AddErr
	}
	f.mu.Lock()
	f.Rosters[conversationID] = append(f.Rosters[conversationID], Participant{ID: participantID, Role: "member"})
	f.mu.Unlock()
	return nil
}

func (f *Fake) SetRole(ctx context.Context, conversationID, participantID, role string) error {
	f.record(Call{Op: "setRole", ConversationID: conversationID, ParticipantID: participantID, Role: role})
	return f.RoleErr
}

func (f *Fake) ListConversations(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(f.Rosters))
	for id := range f.Rosters {
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *Fake) GetConversationRoster(ctx context.Context, conversationID string) ([]Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Participant{}, f.Rosters[conversationID]...), nil
}

func (f *Fake) GetHistory(ctx context.Context, conversationID string, limit int) ([]Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msgs := f.History[conversationID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return append([]Message{}, msgs...), nil
}

// CallsFor filters the recorded calls by operation.
func (f *Fake) CallsFor(op string) []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Call
	for _, c := range f.Calls {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}
