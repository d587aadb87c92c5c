package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v81"

	"nightdesk/internal/auth"
	"nightdesk/internal/billing"
	"nightdesk/internal/config"
	"nightdesk/internal/db"
	httpx "nightdesk/internal/http"
	"nightdesk/internal/mail"
	"nightdesk/internal/reminder"
)

func main() {
	printOpsToken := flag.Bool("ops-token", false, "print a signed ops token and exit")
	opsTokenTTL := flag.Duration("ops-token-ttl", 720*time.Hour, "ttl for -ops-token")
	flag.Parse()

	cfg, _ := config.Load()
	log := newLogger(cfg)

	opsToken := auth.NewOpsToken(cfg.OpsJWTSecret)
	if *printOpsToken {
		tok, err := opsToken.Sign(*opsTokenTTL)
		if err != nil {
			log.Fatal().Err(err).Msg("sign ops token")
		}
		fmt.Println(tok)
		return
	}

	gdb, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("connect database")
	}
	if err := db.AutoMigrateAndIndexes(gdb); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	var mailer reminder.Mailer
	if cfg.SMTPHost != "" {
		mailer = mail.NewSMTP(mail.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.MailFrom,
		})
	} else {
		mailer = &mail.LogMailer{Log: log}
	}

	store := &reminder.Store{DB: gdb}
	runner := &reminder.Runner{
		Store:       store,
		Mailer:      mailer,
		Log:         log,
		BatchLimit:  cfg.ReminderBatchLimit,
		SendTimeout: cfg.SendTimeout,
	}
	enroller := &reminder.Enroller{Store: store}

	webhookSvc := &billing.WebhookService{
		Secret:   cfg.StripeWebhookSecret,
		Enroller: enroller,
		Log:      log,
	}
	if cfg.StripeAPIKey != "" {
		stripe.Key = cfg.StripeAPIKey
		webhookSvc.LookupCustomer = billing.LiveCustomerLookup
	}

	r := httpx.NewRouter(cfg, httpx.Deps{
		Store:      store,
		Runner:     runner,
		WebhookSvc: webhookSvc,
		OpsToken:   opsToken,
	})

	ctx, cancel := context.WithCancel(context.Background())

	// The periodic sweep trigger lives here, not in the reminder core.
	var c *cron.Cron
	if cfg.ReminderCron != "" {
		c = cron.New()
		_, err := c.AddFunc(cfg.ReminderCron, func() {
			if _, err := runner.RunDue(ctx, time.Now()); err != nil {
				log.Error().Err(err).Msg("scheduled reminder sweep failed")
			}
		})
		if err != nil {
			log.Fatal().Err(err).Str("spec", cfg.ReminderCron).Msg("invalid REMINDER_CRON")
		}
		c.Start()
		log.Info().Str("spec", cfg.ReminderCron).Msg("reminder cron started")
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	// graceful shutdown
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch

	cancel()
	if c != nil {
		<-c.Stop().Done()
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
}

func newLogger(cfg config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var l zerolog.Logger
	if cfg.LogJSON {
		l = zerolog.New(os.Stderr)
	} else {
		l = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	return l.Level(level).With().Timestamp().Logger()
}
