package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/customer"
	"github.com/stripe/stripe-go/v81/webhook"

	"nightdesk/internal/reminder"
)

var ErrBadSignature = errors.New("webhook signature verification failed")

type WebhookResult struct {
	Received  bool   `json:"received"`
	EventID   string `json:"event_id,omitempty"`
	EventType string `json:"event_type,omitempty"`
	Message   string `json:"message,omitempty"`
}

// WebhookService turns Stripe subscription events into trial reminder
// enrollment. Everything else Stripe sends is acknowledged and ignored.
type WebhookService struct {
	Secret   string
	Enroller *reminder.Enroller
	Log      zerolog.Logger

	// LookupCustomer resolves a customer when the event does not embed an
	// email. Nil means no lookup (e.g. no API key configured).
	LookupCustomer func(id string) (*stripe.Customer, error)
}

// LiveCustomerLookup fetches the customer through the Stripe API using the
// globally configured key.
func LiveCustomerLookup(id string) (*stripe.Customer, error) {
	return customer.Get(id, nil)
}

func (s *WebhookService) ProcessWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error) {
	event, err := webhook.ConstructEvent(payload, signature, s.Secret)
	if err != nil {
		s.Log.Warn().Err(err).Msg("stripe webhook signature rejected")
		return nil, fmt.Errorf("%w: %v", ErrBadSignature, err)
	}

	result := &WebhookResult{
		Received:  true,
		EventID:   event.ID,
		EventType: string(event.Type),
	}

	switch event.Type {
	case "customer.subscription.created", "customer.subscription.updated":
		err = s.handleSubscription(ctx, event)
	default:
		s.Log.Debug().Str("event_type", string(event.Type)).Msg("unhandled stripe event type")
		result.Message = "event type not handled"
	}

	if err != nil {
		s.Log.Error().Err(err).
			Str("event_id", event.ID).
			Str("event_type", string(event.Type)).
			Msg("stripe webhook processing failed")
		result.Message = err.Error()
		return result, err
	}
	return result, nil
}

// handleSubscription enrolls the trial reminder series when a subscription
// is trialing with a known end time. Incomplete payloads (no email, no
// trial end) are acknowledged no-ops: webhooks may arrive before checkout
// data is complete, and acknowledging prevents provider retries.
func (s *WebhookService) handleSubscription(ctx context.Context, event stripe.Event) error {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return fmt.Errorf("unmarshal subscription: %w", err)
	}

	if sub.Status != stripe.SubscriptionStatusTrialing || sub.TrialEnd <= 0 {
		s.Log.Debug().
			Str("subscription_id", sub.ID).
			Str("status", string(sub.Status)).
			Msg("subscription is not a running trial, skipping")
		return nil
	}

	email := s.recipientEmail(&sub)
	if email == "" {
		s.Log.Warn().
			Str("subscription_id", sub.ID).
			Msg("no recipient email resolvable for trial subscription, skipping")
		return nil
	}

	if err := s.Enroller.EnrollTrialSeries(ctx, email, sub.TrialEnd); err != nil {
		return fmt.Errorf("enroll trial series: %w", err)
	}

	s.Log.Info().
		Str("subscription_id", sub.ID).
		Str("recipient", email).
		Int64("trial_end", sub.TrialEnd).
		Msg("trial reminder series enrolled")
	return nil
}

func (s *WebhookService) recipientEmail(sub *stripe.Subscription) string {
	if sub.Customer == nil {
		return ""
	}
	if sub.Customer.Email != "" {
		return sub.Customer.Email
	}
	if sub.Customer.ID == "" || s.LookupCustomer == nil {
		return ""
	}

	cust, err := s.LookupCustomer(sub.Customer.ID)
	if err != nil {
		s.Log.Warn().Err(err).
			Str("customer_id", sub.Customer.ID).
			Msg("stripe customer lookup failed")
		return ""
	}
	return cust.Email
}
