package detect

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groupwarden/warden/pkg/cachestore"
)

func TestSpamIdenticalMessages(t *testing.T) {
	s := NewSpamDetector(cachestore.NewMemStore())
	ctx := context.Background()

	send := func(i int, body string) *SpamResult {
		t.Helper()
		res, err := s.RecordMessage(ctx, "conv1", "user1", fmt.Sprintf("m%d", i), body)
		require.NoError(t, err)
		return res
	}

	assert.False(t, send(1, "buy now").SoftWarn)
	assert.False(t, send(2, "buy now").SoftWarn)

	res := send(3, "buy now")
	assert.True(t, res.SoftWarn, "third repetition warns")
	assert.Nil(t, res.Violation)

	res = send(4, "buy now")
	assert.False(t, res.SoftWarn, "the soft warning fires only once")
	assert.Nil(t, res.Violation)

	res = send(5, "buy now")
	require.NotNil(t, res.Violation, "fifth repetition is a violation")
	assert.Equal(t, ReasonSpam, res.Violation.Reason)
	assert.Equal(t, SeverityPermanent, res.Violation.Severity)

	// The window cleared with the violation; the count restarts.
	res = send(6, "buy now")
	assert.False(t, res.SoftWarn)
	assert.Nil(t, res.Violation)
}

func TestSpamDifferentBodyResets(t *testing.T) {
	s := NewSpamDetector(cachestore.NewMemStore())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := s.RecordMessage(ctx, "conv1", "user1", "m", "aaa")
		require.NoError(t, err)
	}
	res, err := s.RecordMessage(ctx, "conv1", "user1", "m", "bbb")
	require.NoError(t, err)
	assert.False(t, res.SoftWarn, "a different body restarts the streak")

	// Two more identical sends reach the warning threshold again.
	_, err = s.RecordMessage(ctx, "conv1", "user1", "m", "bbb")
	require.NoError(t, err)
	res, err = s.RecordMessage(ctx, "conv1", "user1", "m", "bbb")
	require.NoError(t, err)
	assert.True(t, res.SoftWarn)
}

func TestSpamInvalidCommandsAndUnsends(t *testing.T) {
	s := NewSpamDetector(cachestore.NewMemStore())
	ctx := context.Background()

	record := map[string]func() (*SpamResult, error){
		"invalid commands": func() (*SpamResult, error) {
			return s.RecordInvalidCommand(ctx, "conv1", "user1")
		},
		"unsends": func() (*SpamResult, error) {
			return s.RecordUnsend(ctx, "conv1", "user1")
		},
	}
	for name, bump := range record {
		t.Run(name, func(t *testing.T) {
			var last *SpamResult
			for i := 1; i <= 5; i++ {
				res, err := bump()
				require.NoError(t, err)
				if i == 3 {
					assert.True(t, res.SoftWarn)
				} else {
					assert.False(t, res.SoftWarn)
				}
				last = res
			}
			require.NotNil(t, last.Violation)
			assert.Equal(t, SeverityPermanent, last.Violation.Severity)
		})
	}
}

func TestSpamWindowAnchoredAtFirstItem(t *testing.T) {
	s := NewSpamDetector(cachestore.NewMemStore())
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := start
	s.now = func() time.Time { return now }

	send := func(body string) *SpamResult {
		t.Helper()
		res, err := s.RecordMessage(ctx, "conv1", "user1", "m", body)
		require.NoError(t, err)
		return res
	}

	// Repeats 8s apart each land within the previous one, but the
	// window expires 10s after its first item.
	assert.False(t, send("hello").SoftWarn)
	now = start.Add(8 * time.Second)
	assert.False(t, send("hello").SoftWarn)
	now = start.Add(16 * time.Second)
	res := send("hello")
	assert.False(t, res.SoftWarn, "a slow drip restarts the window")
	assert.Nil(t, res.Violation)

	// Within a single window the third repeat still warns.
	now = start.Add(20 * time.Second)
	assert.False(t, send("hello").SoftWarn)
	now = start.Add(24 * time.Second)
	assert.True(t, send("hello").SoftWarn)
}

func TestSpamParticipantsIsolated(t *testing.T) {
	s := NewSpamDetector(cachestore.NewMemStore())
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := s.RecordMessage(ctx, "conv1", "user1", "m", "same")
		require.NoError(t, err)
	}
	res, err := s.RecordMessage(ctx, "conv1", "user2", "m", "same")
	require.NoError(t, err)
	assert.False(t, res.SoftWarn)
	assert.Nil(t, res.Violation)
}
