package moderation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groupwarden/warden/pkg/connector"
	"github.com/groupwarden/warden/pkg/docstore"
)

func newTestEngine(t *testing.T) (*Engine, *connector.Fake) {
	t.Helper()
	fake := connector.NewFake()
	e := NewEngine(docstore.NewMemStore(), fake, nil)
	e.EffectPause = 0
	e.TopActor = "root"
	return e, fake
}

func TestIssueWarningEscalatesToBan(t *testing.T) {
	e, fake := newTestEngine(t)
	ctx := context.Background()

	count, ban, err := e.IssueWarning(ctx, "conv1", "user1", "Juan", "direct", "m1", false)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Nil(t, ban)

	count, ban, err = e.IssueWarning(ctx, "conv1", "user1", "Juan", "direct", "m2", false)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Nil(t, ban)

	count, ban, err = e.IssueWarning(ctx, "conv1", "user1", "Juan", "direct", "m3", false)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	require.NotNil(t, ban, "third warning converts into a ban")
	assert.Equal(t, DurationThreeDays, ban.DurationType)
	assert.Equal(t, 1, ban.BanCount)
	assert.Len(t, ban.UID, 6)

	// The warning record did not survive the conversion.
	rec, err := e.Warnings(ctx, "conv1", "user1")
	require.NoError(t, err)
	assert.Nil(t, rec)

	removals := fake.CallsFor("remove")
	require.Len(t, removals, 1)
	assert.Equal(t, "user1", removals[0].ParticipantID)
}

func TestIssueWarningIdempotentOnSourceMessage(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	count, _, err := e.IssueWarning(ctx, "conv1", "user1", "", "direct", "m1", false)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// Reprocessing the same message does not double-count.
	count, ban, err := e.IssueWarning(ctx, "conv1", "user1", "", "direct", "m1", false)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Nil(t, ban)

	rec, err := e.Warnings(ctx, "conv1", "user1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Len(t, rec.Entries, 1)
	assert.Len(t, rec.Entries[0].Key, 24)
}

func TestIssueWarningPermanentBypassesCounter(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	count, ban, err := e.IssueWarning(ctx, "conv1", "user1", "", "spam", "m1", true)
	require.NoError(t, err)
	assert.Equal(t, 0, count, "permanent warnings do not advance the counter")
	assert.Nil(t, ban)

	count, _, err = e.IssueWarning(ctx, "conv1", "user1", "", "direct", "m2", false)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	rec, err := e.Warnings(ctx, "conv1", "user1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Len(t, rec.Entries, 2)
}

func TestConcurrentWarningsAllRecorded(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	// Permanent warnings never escalate, so every entry must survive.
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, err := e.IssueWarning(ctx, "conv1", "user1", "", "spam", fmt.Sprintf("m%d", i), true)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	rec, err := e.Warnings(ctx, "conv1", "user1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Len(t, rec.Entries, 100, "concurrent warnings must not overwrite each other")
}

func TestDeductWarning(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := e.DeductWarning(ctx, "conv1", "user1", false)
	assert.ErrorIs(t, err, ErrNotFound)

	_, _, err = e.IssueWarning(ctx, "conv1", "user1", "", "direct", "m1", false)
	require.NoError(t, err)
	_, _, err = e.IssueWarning(ctx, "conv1", "user1", "", "direct", "m2", false)
	require.NoError(t, err)

	count, err := e.DeductWarning(ctx, "conv1", "user1", false)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestDeductWarningPermanentNeedsElevation(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	_, _, err := e.IssueWarning(ctx, "conv1", "user1", "", "spam", "m1", true)
	require.NoError(t, err)

	_, err = e.DeductWarning(ctx, "conv1", "user1", false)
	assert.ErrorIs(t, err, ErrNotFound, "a plain actor cannot remove a permanent warning")

	count, err := e.DeductWarning(ctx, "conv1", "user1", true)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	rec, err := e.Warnings(ctx, "conv1", "user1")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestBanDurationLadder(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	e.now = func() time.Time { return start }

	ban, err := e.Ban(ctx, "conv1", "user1", "Juan", "keyword", "admin")
	require.NoError(t, err)
	assert.Equal(t, DurationThreeDays, ban.DurationType)
	require.NotNil(t, ban.LiftAt)
	assert.Equal(t, start.Add(72*time.Hour), *ban.LiftAt)

	_, err = e.Unban(ctx, "conv1", "user1", "admin")
	require.NoError(t, err)

	ban, err = e.Ban(ctx, "conv1", "user1", "Juan", "keyword", "admin")
	require.NoError(t, err)
	assert.Equal(t, DurationSevenDays, ban.DurationType)
	assert.Equal(t, 2, ban.BanCount)
	require.NotNil(t, ban.LiftAt)
	assert.Equal(t, start.Add(7*24*time.Hour), *ban.LiftAt)

	_, err = e.Unban(ctx, "conv1", "user1", "admin")
	require.NoError(t, err)

	ban, err = e.Ban(ctx, "conv1", "user1", "Juan", "keyword", "admin")
	require.NoError(t, err)
	assert.Equal(t, DurationPermanent, ban.DurationType)
	assert.Equal(t, 3, ban.BanCount)
	assert.Nil(t, ban.LiftAt)
}

func TestBanAlreadyBanned(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := e.Ban(ctx, "conv1", "user1", "", "keyword", "admin")
	require.NoError(t, err)
	_, err = e.Ban(ctx, "conv1", "user1", "", "keyword", "admin")
	assert.ErrorIs(t, err, ErrAlreadyBanned)
}

func TestBanDropsAttendanceEntry(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.Track(ctx, "conv1", "user1", "Juan"))
	_, err := e.Ban(ctx, "conv1", "user1", "Juan", "keyword", "admin")
	require.NoError(t, err)

	entries, err := e.Snapshot(ctx, "conv1")
	require.NoError(t, err)
	assert.NotContains(t, entries, "user1")
}

func TestBanSurvivesConnectorFailure(t *testing.T) {
	e, fake := newTestEngine(t)
	fake.RemoveErr = connector.ErrUnavailable
	ctx := context.Background()

	ban, err := e.Ban(ctx, "conv1", "user1", "", "keyword", "admin")
	require.NoError(t, err, "a failed removal does not roll back the ban")
	require.NotNil(t, ban)

	active, err := e.ActiveBan(ctx, "conv1", "user1")
	require.NoError(t, err)
	assert.NotNil(t, active)
}

func TestUnbanByUIDAndPermanentGate(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	ban, err := e.Ban(ctx, "conv1", "user1", "", "keyword", "admin")
	require.NoError(t, err)

	lifted, err := e.Unban(ctx, "conv1", ban.UID, "admin")
	require.NoError(t, err)
	assert.Equal(t, "user1", lifted.ParticipantID)

	_, err = e.Unban(ctx, "conv1", "user1", "admin")
	assert.ErrorIs(t, err, ErrNotFound)

	// Walk the ladder to a permanent ban.
	_, err = e.Ban(ctx, "conv1", "user1", "", "keyword", "admin")
	require.NoError(t, err)
	_, err = e.Unban(ctx, "conv1", "user1", "admin")
	require.NoError(t, err)
	perm, err := e.Ban(ctx, "conv1", "user1", "", "keyword", "admin")
	require.NoError(t, err)
	require.Equal(t, DurationPermanent, perm.DurationType)

	_, err = e.Unban(ctx, "conv1", "user1", "admin")
	assert.ErrorIs(t, err, ErrPermanentBan)

	_, err = e.Unban(ctx, "conv1", "user1", "root")
	require.NoError(t, err)
}

func TestLiftExpired(t *testing.T) {
	e, fake := newTestEngine(t)
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := start
	e.now = func() time.Time { return now }

	_, err := e.Ban(ctx, "conv1", "user1", "", "keyword", "admin")
	require.NoError(t, err)
	_, err = e.Ban(ctx, "conv2", "user2", "", "keyword", "admin")
	require.NoError(t, err)

	lifted, err := e.LiftExpired(ctx)
	require.NoError(t, err)
	assert.Empty(t, lifted, "nothing expires before its lift time")

	now = start.Add(73 * time.Hour)
	lifted, err = e.LiftExpired(ctx)
	require.NoError(t, err)
	assert.Len(t, lifted, 2)
	assert.Len(t, fake.CallsFor("add"), 2)

	// The sweep is repeat-safe.
	lifted, err = e.LiftExpired(ctx)
	require.NoError(t, err)
	assert.Empty(t, lifted)
}

func TestLiftExpiredSkipsPermanent(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := start
	e.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		_, err := e.Ban(ctx, "conv1", "user1", "", "keyword", "admin")
		require.NoError(t, err)
		_, err = e.Unban(ctx, "conv1", "user1", "admin")
		require.NoError(t, err)
	}
	_, err := e.Ban(ctx, "conv1", "user1", "", "keyword", "admin")
	require.NoError(t, err)

	now = start.Add(365 * 24 * time.Hour)
	lifted, err := e.LiftExpired(ctx)
	require.NoError(t, err)
	assert.Empty(t, lifted)
}

func TestResetBansZeroesCounts(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := e.Ban(ctx, "conv1", "user1", "", "keyword", "admin")
	require.NoError(t, err)
	require.NoError(t, e.ResetBans(ctx, "conv1"))

	active, err := e.ActiveBan(ctx, "conv1", "user1")
	require.NoError(t, err)
	assert.Nil(t, active)

	// The offense ladder starts over after the reset.
	ban, err := e.Ban(ctx, "conv1", "user1", "", "keyword", "admin")
	require.NoError(t, err)
	assert.Equal(t, 1, ban.BanCount)
	assert.Equal(t, DurationThreeDays, ban.DurationType)
}

func TestResetWarnings(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	_, _, err := e.IssueWarning(ctx, "conv1", "user1", "", "direct", "m1", false)
	require.NoError(t, err)
	require.NoError(t, e.ResetWarnings(ctx, "conv1"))

	rec, err := e.Warnings(ctx, "conv1", "user1")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestChainStopsOnCancel(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ran := false
	chain := NewChain(e.logger).Then("step", func(context.Context) error {
		ran = true
		return nil
	})
	err := chain.Execute(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, ran)
}
