package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const defaultSendTimeout = 10 * time.Second

// Mailer is the outbound email collaborator. One call per delivery attempt;
// a non-nil error counts as a failed attempt.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

type Result struct {
	Processed int `json:"processed"`
	Sent      int `json:"sent"`
}

// Runner sweeps due, unsent reminders and delivers them. It is purely
// reactive: the hosting process owns the periodic invocation.
type Runner struct {
	Store  *Store
	Mailer Mailer
	Log    zerolog.Logger

	BatchLimit  int
	SendTimeout time.Duration
}

// RunDue delivers all currently-due unsent reminders as of now. A failed
// delivery is logged, counted, and left pending for the next sweep; only a
// store fault on the due query aborts the run.
func (r *Runner) RunDue(ctx context.Context, now time.Time) (Result, error) {
	due, err := r.Store.SelectDue(ctx, now.Unix(), r.BatchLimit)
	if err != nil {
		return Result{}, fmt.Errorf("select due reminders: %w", err)
	}

	var res Result
	if len(due) == 0 {
		return res, nil
	}

	log := r.Log.With().Str("run_id", uuid.NewString()).Logger()

	for _, job := range due {
		claimed, err := r.Store.Claim(ctx, job.ID, now)
		if err != nil {
			log.Error().Err(err).Uint64("job_id", job.ID).Msg("claim failed")
			continue
		}
		if !claimed {
			// Another sweep holds this job; skip rather than double-send.
			log.Debug().Uint64("job_id", job.ID).Msg("job already claimed")
			continue
		}
		res.Processed++

		msg := Compose(job)
		if err := r.deliver(ctx, job, msg); err != nil {
			log.Warn().Err(err).
				Uint64("job_id", job.ID).
				Str("recipient", job.RecipientEmail).
				Str("type", string(job.ReminderType)).
				Msg("reminder delivery failed")
			if err := r.Store.BumpAttempts(ctx, job.ID); err != nil {
				log.Error().Err(err).Uint64("job_id", job.ID).Msg("bump attempts failed")
			}
			continue
		}

		if err := r.Store.MarkSent(ctx, job.ID, now.Unix()); err != nil {
			log.Error().Err(err).Uint64("job_id", job.ID).Msg("mark sent failed")
			continue
		}
		res.Sent++
	}

	log.Info().Int("processed", res.Processed).Int("sent", res.Sent).Msg("reminder sweep finished")
	return res, nil
}

// deliver bounds one attempt so a hanging SMTP connection cannot stall the
// whole batch; a timeout is just another failed attempt.
func (r *Runner) deliver(ctx context.Context, job Job, msg Message) error {
	timeout := r.SendTimeout
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	sendCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return r.Mailer.Send(sendCtx, job.RecipientEmail, msg.Subject, msg.HTML)
}
