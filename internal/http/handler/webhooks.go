package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"nightdesk/internal/billing"
)

// Stripe webhook payloads are small; anything larger is rejected outright.
const maxWebhookPayloadSize = 65536

type StripeWebhookHandler struct {
	Svc *billing.WebhookService
}

func (h *StripeWebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	// Signature verification needs the raw body.
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookPayloadSize+1))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	if len(payload) > maxWebhookPayloadSize {
		http.Error(w, "payload too large", http.StatusRequestEntityTooLarge)
		return
	}

	signature := r.Header.Get("Stripe-Signature")
	if signature == "" {
		http.Error(w, "missing Stripe-Signature header", http.StatusUnauthorized)
		return
	}

	result, err := h.Svc.ProcessWebhook(r.Context(), payload, signature)
	if err != nil {
		if errors.Is(err, billing.ErrBadSignature) {
			http.Error(w, "invalid signature", http.StatusUnauthorized)
			return
		}
		// Processing errors are still acknowledged with 200 so Stripe does
		// not retry events that retrying will not fix.
		result.Message = "webhook received but processing encountered an issue"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(result)
}
