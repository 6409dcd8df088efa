package moderation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groupwarden/warden/pkg/connector"
)

func TestMarkPresent(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	already, err := e.MarkPresent(ctx, "conv1", "user1", "Juan")
	require.NoError(t, err)
	assert.False(t, already)

	already, err = e.MarkPresent(ctx, "conv1", "user1", "Juan")
	require.NoError(t, err)
	assert.True(t, already)
}

func TestDailyRolloverThresholds(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.Track(ctx, "conv1", "user1", "Juan"))
	require.NoError(t, e.Track(ctx, "conv1", "user2", "Maria"))

	// Day 1: both absent, below every threshold.
	toWarn, toBan, err := e.DailyRollover(ctx, "conv1")
	require.NoError(t, err)
	assert.Empty(t, toWarn)
	assert.Empty(t, toBan)

	// Day 2: both cross the warning threshold.
	toWarn, toBan, err = e.DailyRollover(ctx, "conv1")
	require.NoError(t, err)
	assert.Equal(t, []string{"user1", "user2"}, toWarn)
	assert.Empty(t, toBan)

	// user1 checks in; user2 stays silent and crosses the ban threshold.
	_, err = e.MarkPresent(ctx, "conv1", "user1", "")
	require.NoError(t, err)
	toWarn, toBan, err = e.DailyRollover(ctx, "conv1")
	require.NoError(t, err)
	assert.Empty(t, toWarn)
	assert.Equal(t, []string{"user2"}, toBan)

	// Checking in reset user1's streak entirely.
	entries, err := e.Snapshot(ctx, "conv1")
	require.NoError(t, err)
	assert.Equal(t, 0, entries["user1"].ConsecutiveAbsences)
	assert.Equal(t, 3, entries["user2"].ConsecutiveAbsences)
}

func TestDailyRolloverSkipsExcluded(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.Track(ctx, "conv1", "user1", ""))
	require.NoError(t, e.Exclude(ctx, "conv1", "user1"))

	for i := 0; i < 4; i++ {
		toWarn, toBan, err := e.DailyRollover(ctx, "conv1")
		require.NoError(t, err)
		assert.Empty(t, toWarn)
		assert.Empty(t, toBan)
	}

	// Counters were preserved, not reset, while excluded.
	entries, err := e.Snapshot(ctx, "conv1")
	require.NoError(t, err)
	assert.Equal(t, 0, entries["user1"].ConsecutiveAbsences)

	// Including the participant again resumes counting.
	require.NoError(t, e.Include(ctx, "conv1", "user1"))
	_, _, err = e.DailyRollover(ctx, "conv1")
	require.NoError(t, err)
	entries, err = e.Snapshot(ctx, "conv1")
	require.NoError(t, err)
	assert.Equal(t, 1, entries["user1"].ConsecutiveAbsences)
}

func TestLazyDayResetDoesNotIncrement(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	day1 := time.Date(2026, 3, 1, 20, 0, 0, 0, attendanceZone)
	now := day1
	e.now = func() time.Time { return now }

	_, err := e.MarkPresent(ctx, "conv1", "user1", "")
	require.NoError(t, err)

	// A new calendar day observed on read clears the present flag but
	// leaves the absence counter alone.
	now = day1.Add(24 * time.Hour)
	entries, err := e.Snapshot(ctx, "conv1")
	require.NoError(t, err)
	assert.False(t, entries["user1"].Present)
	assert.Equal(t, 0, entries["user1"].ConsecutiveAbsences)
}

func TestRunDailyCycleBansAfterThreeAbsences(t *testing.T) {
	e, fake := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.Track(ctx, "conv1", "user1", "Juan"))
	for i := 0; i < 3; i++ {
		require.NoError(t, e.RunDailyCycle(ctx, "conv1"))
	}

	ban, err := e.ActiveBan(ctx, "conv1", "user1")
	require.NoError(t, err)
	require.NotNil(t, ban)
	assert.Equal(t, "system", ban.BannedBy)
	assert.NotEmpty(t, fake.CallsFor("remove"))

	// The second day sent an advisory notice only; no warning record
	// ever existed.
	rec, err := e.Warnings(ctx, "conv1", "user1")
	require.NoError(t, err)
	assert.Nil(t, rec)
	sends := fake.CallsFor("send")
	require.NotEmpty(t, sends)
	assert.Contains(t, sends[0].Text, "absent 2 days")
	assert.Contains(t, sends[0].Text, "Juan")
}

func TestAbsenceNoticeLeavesWarningLadderAlone(t *testing.T) {
	e, fake := newTestEngine(t)
	ctx := context.Background()

	// Two keyword warnings on record; a third countable one would ban.
	for _, id := range []string{"m1", "m2"} {
		_, _, err := e.IssueWarning(ctx, "conv1", "user1", "Juan", "direct", id, false)
		require.NoError(t, err)
	}
	require.NoError(t, e.Track(ctx, "conv1", "user1", "Juan"))

	require.NoError(t, e.RunDailyCycle(ctx, "conv1"))
	require.NoError(t, e.RunDailyCycle(ctx, "conv1"))

	rec, err := e.Warnings(ctx, "conv1", "user1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 2, rec.Count(), "the absence notice is not a warning")

	active, err := e.ActiveBan(ctx, "conv1", "user1")
	require.NoError(t, err)
	assert.Nil(t, active)
	require.Len(t, fake.CallsFor("send"), 1)
}

func TestMarkPresentPersistsNicknameWhenAlreadyPresent(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	already, err := e.MarkPresent(ctx, "conv1", "user1", "old")
	require.NoError(t, err)
	assert.False(t, already)

	already, err = e.MarkPresent(ctx, "conv1", "user1", "new")
	require.NoError(t, err)
	assert.True(t, already)

	entries, err := e.Snapshot(ctx, "conv1")
	require.NoError(t, err)
	require.Contains(t, entries, "user1")
	assert.Equal(t, "new", entries["user1"].Nickname)
}

func TestSyncRoster(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.Track(ctx, "conv1", "gone", ""))
	roster := []connector.Participant{
		{ID: "user1", Nickname: "Juan"},
		{ID: "user2", Nickname: "Maria"},
	}
	require.NoError(t, e.SyncRoster(ctx, "conv1", roster))

	entries, err := e.Snapshot(ctx, "conv1")
	require.NoError(t, err)
	assert.NotContains(t, entries, "gone")
	require.Contains(t, entries, "user1")
	require.Contains(t, entries, "user2")
	assert.Equal(t, "Juan", entries["user1"].Nickname)
}

func TestMissed(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.Track(ctx, "conv1", "user1", ""))
	require.NoError(t, e.Track(ctx, "conv1", "user2", ""))
	_, err := e.MarkPresent(ctx, "conv1", "user2", "")
	require.NoError(t, err)

	_, _, err = e.DailyRollover(ctx, "conv1")
	require.NoError(t, err)

	missed, err := e.Missed(ctx, "conv1")
	require.NoError(t, err)
	assert.Contains(t, missed, "user1")
	assert.NotContains(t, missed, "user2")
}
