package http

import (
	"net/http"

	"nightdesk/internal/auth"
	"nightdesk/internal/billing"
	"nightdesk/internal/config"
	"nightdesk/internal/http/handler"
	mw "nightdesk/internal/http/middleware"
	"nightdesk/internal/reminder"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

type Deps struct {
	Store      *reminder.Store
	Runner     *reminder.Runner
	WebhookSvc *billing.WebhookService
	OpsToken   *auth.OpsToken
}

func NewRouter(cfg config.Config, deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(mw.CORS(cfg.CORSAllowedOrigins, cfg.CORSAllowCredentials))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	wh := &handler.StripeWebhookHandler{Svc: deps.WebhookSvc}
	r.Post("/webhooks/stripe", wh.Handle)

	rh := &handler.ReminderHandler{Store: deps.Store, Runner: deps.Runner}
	r.Route("/ops/reminders", func(r chi.Router) {
		r.Use(auth.RequireOps(deps.OpsToken))

		r.Post("/run", rh.Run)
		r.Get("/pending", rh.Pending)
		r.Post("/", rh.Enqueue)
	})

	return r
}
