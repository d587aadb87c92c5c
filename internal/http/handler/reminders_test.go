package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"nightdesk/internal/reminder"
)

type okMailer struct{ calls int }

func (m *okMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	m.calls++
	return nil
}

func setupReminderHandler(t *testing.T) (*ReminderHandler, *reminder.Store, *okMailer) {
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(&reminder.Job{}))

	store := &reminder.Store{DB: gdb}
	mailer := &okMailer{}
	runner := &reminder.Runner{Store: store, Mailer: mailer, Log: zerolog.Nop()}
	return &ReminderHandler{Store: store, Runner: runner}, store, mailer
}

func TestReminderHandler_Run(t *testing.T) {
	h, store, mailer := setupReminderHandler(t)

	t.Run("empty due set", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.Run(rr, httptest.NewRequest(http.MethodPost, "/ops/reminders/run", nil))

		require.Equal(t, http.StatusOK, rr.Code)
		var res reminder.Result
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
		assert.Equal(t, reminder.Result{Processed: 0, Sent: 0}, res)
		assert.Zero(t, mailer.calls)
	})

	t.Run("delivers due jobs", func(t *testing.T) {
		// far in the past, always due
		require.NoError(t, store.Enqueue(context.Background(), "lead@example.com", reminder.TypeTrial1, 1000, nil))

		rr := httptest.NewRecorder()
		h.Run(rr, httptest.NewRequest(http.MethodPost, "/ops/reminders/run", nil))

		require.Equal(t, http.StatusOK, rr.Code)
		var res reminder.Result
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
		assert.Equal(t, reminder.Result{Processed: 1, Sent: 1}, res)
		assert.Equal(t, 1, mailer.calls)
	})

	t.Run("store fault is a 500", func(t *testing.T) {
		require.NoError(t, store.DB.Exec(`drop table reminder_jobs`).Error)

		rr := httptest.NewRecorder()
		h.Run(rr, httptest.NewRequest(http.MethodPost, "/ops/reminders/run", nil))
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}

func TestReminderHandler_Pending(t *testing.T) {
	h, store, _ := setupReminderHandler(t)
	ctx := context.Background()

	require.NoError(t, store.Enqueue(ctx, "b@example.com", reminder.TypeTrial3, 2000, nil))
	require.NoError(t, store.Enqueue(ctx, "a@example.com", reminder.TypeTrial7, 1000, nil))

	rr := httptest.NewRecorder()
	h.Pending(rr, httptest.NewRequest(http.MethodGet, "/ops/reminders/pending", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var items []pendingItem
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &items))
	require.Len(t, items, 2)
	assert.Equal(t, "a@example.com", items[0].RecipientEmail)
	assert.Equal(t, int64(1000), items[0].ScheduledAt)
	assert.Equal(t, "b@example.com", items[1].RecipientEmail)
}

func TestReminderHandler_Enqueue(t *testing.T) {
	h, store, _ := setupReminderHandler(t)

	post := func(body string) *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/ops/reminders", strings.NewReader(body))
		h.Enqueue(rr, req)
		return rr
	}

	t.Run("queues a custom job", func(t *testing.T) {
		rr := post(`{"recipient_email":"lead@example.com","scheduled_at":5000,"payload":{"note":"vip"}}`)
		require.Equal(t, http.StatusCreated, rr.Code)

		jobs, err := store.Pending(context.Background(), 0)
		require.NoError(t, err)
		require.Len(t, jobs, 1)
		assert.Equal(t, reminder.TypeCustom, jobs[0].ReminderType)
		assert.JSONEq(t, `{"note":"vip"}`, string(jobs[0].Payload))
	})

	t.Run("explicit type", func(t *testing.T) {
		rr := post(`{"recipient_email":"lead@example.com","reminder_type":"trial_1","scheduled_at":5000}`)
		require.Equal(t, http.StatusCreated, rr.Code)
	})

	t.Run("rejects bad json", func(t *testing.T) {
		rr := post(`{`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("rejects missing email", func(t *testing.T) {
		rr := post(`{"scheduled_at":5000}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("rejects missing scheduled_at", func(t *testing.T) {
		rr := post(`{"recipient_email":"lead@example.com"}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("rejects unknown type", func(t *testing.T) {
		rr := post(`{"recipient_email":"lead@example.com","reminder_type":"weekly","scheduled_at":5000}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}
