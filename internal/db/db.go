package db

import (
	"fmt"

	"nightdesk/internal/reminder"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func Connect(dsn string) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	return gdb, nil
}

func AutoMigrateAndIndexes(gdb *gorm.DB) error {
	// Tables. The unique (recipient_email, reminder_type, scheduled_at)
	// constraint comes from the model tags; duplicate enrollment relies on it.
	if err := gdb.AutoMigrate(&reminder.Job{}); err != nil {
		return err
	}

	// Due scan: WHERE sent=false AND scheduled_at<=? ORDER BY scheduled_at
	stmts := []string{
		`create index if not exists idx_reminder_jobs_due on reminder_jobs(sent, scheduled_at);`,
	}
	for _, s := range stmts {
		if err := gdb.Exec(s).Error; err != nil {
			return fmt.Errorf("index exec failed: %w (sql=%s)", err, s)
		}
	}

	return nil
}
