package reminder

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultDueLimit bounds the work done per sweep.
const DefaultDueLimit = 200

// Locks older than this are considered stuck and may be re-claimed.
const lockStaleAfter = 5 * time.Minute

type Store struct {
	DB *gorm.DB
}

// Enqueue inserts one reminder job. Missing recipient or scheduled time is a
// silent no-op: enrollment runs off webhook payloads where upstream data can
// be incomplete. A row with the same (recipient, type, scheduled_at) already
// present is absorbed without error or update.
func (s *Store) Enqueue(ctx context.Context, email string, t Type, scheduledAt int64, payload []byte) error {
	email = strings.TrimSpace(email)
	if email == "" || scheduledAt == 0 {
		return nil
	}

	j := Job{
		RecipientEmail: email,
		ReminderType:   t,
		ScheduledAt:    scheduledAt,
		Payload:        payload,
	}
	return s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "recipient_email"},
				{Name: "reminder_type"},
				{Name: "scheduled_at"},
			},
			DoNothing: true,
		}).
		Create(&j).Error
}

// SelectDue returns unsent jobs with scheduled_at <= now, earliest first.
func (s *Store) SelectDue(ctx context.Context, now int64, limit int) ([]Job, error) {
	if limit <= 0 {
		limit = DefaultDueLimit
	}

	var due []Job
	err := s.DB.WithContext(ctx).
		Where("sent = ? AND scheduled_at <= ?", false, now).
		Order("scheduled_at asc").
		Limit(limit).
		Find(&due).Error
	if err != nil {
		return nil, err
	}
	return due, nil
}

// Pending returns unsent jobs regardless of due time, earliest first.
// Read-only, used by the ops inspection endpoint.
func (s *Store) Pending(ctx context.Context, limit int) ([]Job, error) {
	if limit <= 0 {
		limit = DefaultDueLimit
	}

	var pending []Job
	err := s.DB.WithContext(ctx).
		Where("sent = ?", false).
		Order("scheduled_at asc").
		Limit(limit).
		Find(&pending).Error
	if err != nil {
		return nil, err
	}
	return pending, nil
}

// Claim marks a job as in-progress for this sweep. Returns false when the job
// is already sent or another sweep holds a fresh lock, so overlapping trigger
// invocations cannot double-send the same reminder.
func (s *Store) Claim(ctx context.Context, id uint64, now time.Time) (bool, error) {
	res := s.DB.WithContext(ctx).Model(&Job{}).
		Where("id = ? AND sent = ? AND (locked_at IS NULL OR locked_at < ?)",
			id, false, now.Add(-lockStaleAfter)).
		Update("locked_at", now)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// MarkSent records a successful delivery: sent flag, sent_at, one more
// attempt, lock released. Single UPDATE, atomic per job.
func (s *Store) MarkSent(ctx context.Context, id uint64, sentAt int64) error {
	return s.DB.WithContext(ctx).Model(&Job{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"sent":      true,
			"sent_at":   sentAt,
			"attempts":  gorm.Expr("attempts + 1"),
			"locked_at": nil,
		}).Error
}

// BumpAttempts counts a failed delivery attempt and releases the lock; the
// job stays unsent and gets retried on the next sweep.
func (s *Store) BumpAttempts(ctx context.Context, id uint64) error {
	return s.DB.WithContext(ctx).Model(&Job{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"attempts":  gorm.Expr("attempts + 1"),
			"locked_at": nil,
		}).Error
}
