package reminder

import "time"

// Type identifies which templated message a job sends.
type Type string

const (
	TypeTrial7 Type = "trial_7"
	TypeTrial3 Type = "trial_3"
	TypeTrial1 Type = "trial_1"
	TypeCustom Type = "custom"
)

func ParseType(s string) (Type, bool) {
	switch Type(s) {
	case TypeTrial7, TypeTrial3, TypeTrial1, TypeCustom:
		return Type(s), true
	}
	return "", false
}

type Job struct {
	ID uint64 `gorm:"primaryKey"`

	RecipientEmail string `gorm:"type:text;not null;uniqueIndex:uq_reminder_jobs_key"`
	ReminderType   Type   `gorm:"type:text;not null;uniqueIndex:uq_reminder_jobs_key"`

	// Epoch seconds; when the job becomes eligible to run.
	ScheduledAt int64 `gorm:"not null;uniqueIndex:uq_reminder_jobs_key"`

	Sent     bool   `gorm:"not null;default:false"`
	SentAt   *int64 `gorm:"type:bigint"`
	Attempts int    `gorm:"not null;default:0"`

	// Claim timestamp for the current sweep; stale locks get re-claimed.
	LockedAt *time.Time `gorm:"type:timestamptz"`

	Payload []byte `gorm:"type:jsonb"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (Job) TableName() string { return "reminder_jobs" }
