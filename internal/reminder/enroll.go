package reminder

import (
	"context"
	"strings"
	"time"
)

const daySeconds = int64(86400)

// Every enrolled job fires at least this far in the future, so a reminder
// computed from an already-elapsed trial window is not stranded in the past.
const enrollGuardSeconds = int64(60)

var trialSeries = []struct {
	Type       Type
	DaysBefore int64
}{
	{TypeTrial7, 7},
	{TypeTrial3, 3},
	{TypeTrial1, 1},
}

type Enroller struct {
	Store *Store

	// Now overrides the clock in tests; nil means time.Now.
	Now func() time.Time
}

// EnrollTrialSeries turns one "trial started, ends at trialEnd" event into
// the 7-day/3-day/1-day-before reminder jobs. Missing email or trial end is
// a silent no-op, and repeated enrollment with identical inputs is absorbed
// by the store's unique constraint.
func (e *Enroller) EnrollTrialSeries(ctx context.Context, email string, trialEnd int64) error {
	if strings.TrimSpace(email) == "" || trialEnd == 0 {
		return nil
	}

	floor := e.now().Unix() + enrollGuardSeconds
	for _, s := range trialSeries {
		at := trialEnd - s.DaysBefore*daySeconds
		if at < floor {
			at = floor
		}
		if err := e.Store.Enqueue(ctx, email, s.Type, at, nil); err != nil {
			return err
		}
	}
	return nil
}

func (e *Enroller) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}
