package reminder

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(unix int64) func() time.Time {
	return func() time.Time { return time.Unix(unix, 0) }
}

func jobsByType(t *testing.T, store *Store) map[Type]Job {
	var all []Job
	require.NoError(t, store.DB.Find(&all).Error)
	out := make(map[Type]Job, len(all))
	for _, j := range all {
		out[j.ReminderType] = j
	}
	return out
}

func TestEnroller_TrialSeries(t *testing.T) {
	store := &Store{DB: setupTestDB(t)}
	ctx := context.Background()

	enrollAt := int64(1_700_000_000)
	trialEnd := enrollAt + 8*daySeconds
	e := &Enroller{Store: store, Now: fixedClock(enrollAt)}

	require.NoError(t, e.EnrollTrialSeries(ctx, "lead@example.com", trialEnd))

	assert.Equal(t, int64(3), countJobs(t, store.DB))
	byType := jobsByType(t, store)
	assert.Equal(t, trialEnd-7*daySeconds, byType[TypeTrial7].ScheduledAt)
	assert.Equal(t, trialEnd-3*daySeconds, byType[TypeTrial3].ScheduledAt)
	assert.Equal(t, trialEnd-1*daySeconds, byType[TypeTrial1].ScheduledAt)
	for _, j := range byType {
		assert.GreaterOrEqual(t, j.ScheduledAt, enrollAt+enrollGuardSeconds)
		assert.Equal(t, "lead@example.com", j.RecipientEmail)
	}
}

func TestEnroller_TrialSeries_Idempotent(t *testing.T) {
	store := &Store{DB: setupTestDB(t)}
	ctx := context.Background()

	enrollAt := int64(1_700_000_000)
	trialEnd := enrollAt + 14*daySeconds
	e := &Enroller{Store: store, Now: fixedClock(enrollAt)}

	require.NoError(t, e.EnrollTrialSeries(ctx, "lead@example.com", trialEnd))
	require.NoError(t, e.EnrollTrialSeries(ctx, "lead@example.com", trialEnd))

	assert.Equal(t, int64(3), countJobs(t, store.DB))
}

func TestEnroller_TrialSeries_ClampsShortTrial(t *testing.T) {
	store := &Store{DB: setupTestDB(t)}
	ctx := context.Background()

	// Trial ends in 2 days: all three computed times are already in the
	// past, so every job clamps to now+60. Types differ, so the unique
	// constraint keeps all three.
	enrollAt := int64(1_700_000_000)
	trialEnd := enrollAt + 2*daySeconds
	e := &Enroller{Store: store, Now: fixedClock(enrollAt)}

	require.NoError(t, e.EnrollTrialSeries(ctx, "lead@example.com", trialEnd))

	assert.Equal(t, int64(3), countJobs(t, store.DB))
	byType := jobsByType(t, store)
	for _, typ := range []Type{TypeTrial7, TypeTrial3, TypeTrial1} {
		assert.Equal(t, enrollAt+enrollGuardSeconds, byType[typ].ScheduledAt)
	}

	due, err := store.SelectDue(ctx, enrollAt+120, 0)
	require.NoError(t, err)
	assert.Len(t, due, 3)
}

func TestEnroller_TrialSeries_PartialClamp(t *testing.T) {
	store := &Store{DB: setupTestDB(t)}
	ctx := context.Background()

	// Trial ends in 5 days: the 7-day mark is past and clamps, the
	// 3-day and 1-day marks stay where computed.
	enrollAt := int64(1_700_000_000)
	trialEnd := enrollAt + 5*daySeconds
	e := &Enroller{Store: store, Now: fixedClock(enrollAt)}

	require.NoError(t, e.EnrollTrialSeries(ctx, "lead@example.com", trialEnd))

	byType := jobsByType(t, store)
	assert.Equal(t, enrollAt+enrollGuardSeconds, byType[TypeTrial7].ScheduledAt)
	assert.Equal(t, trialEnd-3*daySeconds, byType[TypeTrial3].ScheduledAt)
	assert.Equal(t, trialEnd-1*daySeconds, byType[TypeTrial1].ScheduledAt)
}

func TestEnroller_TrialSeries_MissingData(t *testing.T) {
	store := &Store{DB: setupTestDB(t)}
	ctx := context.Background()
	e := &Enroller{Store: store, Now: fixedClock(1_700_000_000)}

	require.NoError(t, e.EnrollTrialSeries(ctx, "", 1_700_000_000))
	require.NoError(t, e.EnrollTrialSeries(ctx, "lead@example.com", 0))

	assert.Equal(t, int64(0), countJobs(t, store.DB))
}
