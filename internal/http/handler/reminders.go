package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"nightdesk/internal/reminder"
)

type ReminderHandler struct {
	Store  *reminder.Store
	Runner *reminder.Runner
}

// Run triggers one sweep at server "now" and returns the aggregate counts.
// Individual delivery failures never surface here; only a store fault on the
// due query turns into a 500, so the caller's scheduler can alert on it.
func (h *ReminderHandler) Run(w http.ResponseWriter, r *http.Request) {
	res, err := h.Runner.RunDue(r.Context(), time.Now())
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(res)
}

type pendingItem struct {
	ID             uint64        `json:"id"`
	RecipientEmail string        `json:"recipient_email"`
	ReminderType   reminder.Type `json:"reminder_type"`
	ScheduledAt    int64         `json:"scheduled_at"`
	Sent           bool          `json:"sent"`
	Attempts       int           `json:"attempts"`
}

// Pending lists up to 200 unsent jobs, earliest scheduled first. Read-only,
// for operational visibility.
func (h *ReminderHandler) Pending(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.Store.Pending(r.Context(), reminder.DefaultDueLimit)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	items := make([]pendingItem, 0, len(jobs))
	for _, j := range jobs {
		items = append(items, pendingItem{
			ID:             j.ID,
			RecipientEmail: j.RecipientEmail,
			ReminderType:   j.ReminderType,
			ScheduledAt:    j.ScheduledAt,
			Sent:           j.Sent,
			Attempts:       j.Attempts,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(items)
}

type enqueueReq struct {
	RecipientEmail string          `json:"recipient_email"`
	ReminderType   string          `json:"reminder_type"`
	ScheduledAt    int64           `json:"scheduled_at"`
	Payload        json.RawMessage `json:"payload"`
}

// Enqueue queues one ad-hoc reminder job. Unlike the webhook path, this is
// an operator surface, so missing fields are rejected instead of ignored.
func (h *ReminderHandler) Enqueue(w http.ResponseWriter, r *http.Request) {
	var req enqueueReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}

	req.RecipientEmail = strings.TrimSpace(req.RecipientEmail)
	if req.RecipientEmail == "" {
		http.Error(w, "recipient_email required", http.StatusBadRequest)
		return
	}
	if req.ScheduledAt <= 0 {
		http.Error(w, "scheduled_at required (epoch seconds)", http.StatusBadRequest)
		return
	}

	rtype := reminder.TypeCustom
	if strings.TrimSpace(req.ReminderType) != "" {
		t, ok := reminder.ParseType(req.ReminderType)
		if !ok {
			http.Error(w, "invalid reminder_type", http.StatusBadRequest)
			return
		}
		rtype = t
	}

	if err := h.Store.Enqueue(r.Context(), req.RecipientEmail, rtype, req.ScheduledAt, req.Payload); err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
}
