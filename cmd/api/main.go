package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/receivables/internal/auth"
	"github.com/MrJamesThe3rd/receivables/internal/backend"
	"github.com/MrJamesThe3rd/receivables/internal/bulk"
	"github.com/MrJamesThe3rd/receivables/internal/config"
	receivablesHttp "github.com/MrJamesThe3rd/receivables/internal/http"
	authHandler "github.com/MrJamesThe3rd/receivables/internal/http/auth"
	"github.com/MrJamesThe3rd/receivables/internal/http/middleware"
	reminderHandler "github.com/MrJamesThe3rd/receivables/internal/http/reminder"
	reportHandler "github.com/MrJamesThe3rd/receivables/internal/http/report"
	unitHandler "github.com/MrJamesThe3rd/receivables/internal/http/unit"
	"github.com/MrJamesThe3rd/receivables/internal/logging"
	"github.com/MrJamesThe3rd/receivables/internal/reminder"
	"github.com/MrJamesThe3rd/receivables/internal/reminder/amqp"
	"github.com/MrJamesThe3rd/receivables/internal/reminder/notify"
	"github.com/MrJamesThe3rd/receivables/internal/unit"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.App.LogFormat, cfg.App.LogLevel)

	if err := run(cfg, logger); err != nil {
		slog.Error("api failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	policy, err := cfg.Policy()
	if err != nil {
		return err
	}

	clock, err := cfg.Clock()
	if err != nil {
		return err
	}

	secret, err := cfg.TokenSecret()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := backend.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	publisher, closePublisher, err := newPublisher(cfg, logger)
	if err != nil {
		return err
	}
	defer closePublisher()

	var (
		unitService     = unit.NewService(store.Units, unit.WithPolicy(policy), unit.WithClock(clock))
		authService     = auth.NewService(store.Users, auth.NewTokens(secret, cfg.Auth.TokenTTL))
		bulkService     = bulk.NewService(unitService)
		reminderService = reminder.NewService(unitService, publisher, store.History)
		authn           = middleware.NewAuthenticator(authService)
	)

	if cfg.Reminder.Schedule != "" {
		scheduler, err := reminder.NewScheduler(reminderService, cfg.Reminder.Schedule)
		if err != nil {
			return err
		}

		scheduler.Start()
		defer scheduler.Stop()

		slog.Info("reminder schedule active", "schedule", cfg.Reminder.Schedule, "next", scheduler.Next())
	}

	router := receivablesHttp.New(
		cfg.App.CORSOrigins,
		authHandler.NewHandler(authService, cfg.Auth.TokenTTL),
		unitHandler.NewHandler(unitService, bulkService, authn),
		reportHandler.NewHandler(unitService, authn),
		reminderHandler.NewHandler(reminderService, authn),
	)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}

	errCh := make(chan error, 1)

	go func() {
		slog.Info("starting server", "port", srv.Addr, "store", cfg.App.Store)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving: %w", err)
		}
	case <-ctx.Done():
		slog.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down: %w", err)
		}
	}

	return nil
}

// newPublisher fans reminders out to RabbitMQ and to the SendGrid and Twilio
// channels that are configured. With none of them set reminders are only logged.
func newPublisher(cfg *config.Config, logger *slog.Logger) (reminder.Publisher, func(), error) {
	var (
		fanout  reminder.Fanout
		closeFn = func() {}
	)

	if cfg.AMQP.URL != "" {
		pub, err := amqp.Dial(amqp.Config{
			URL:        cfg.AMQP.URL,
			Exchange:   cfg.AMQP.Exchange,
			RoutingKey: cfg.AMQP.RoutingKey,
		})
		if err != nil {
			return nil, nil, err
		}

		fanout = append(fanout, pub)
		closeFn = func() {
			if err := pub.Close(); err != nil {
				slog.Warn("closing amqp publisher", "error", err)
			}
		}
	}

	direct := notify.New(notify.Config{
		SendGridAPIKey:   cfg.Notify.SendGridAPIKey,
		FromEmail:        cfg.Notify.FromEmail,
		FromName:         cfg.Notify.FromName,
		Sandbox:          cfg.Notify.Sandbox,
		TwilioAccountSID: cfg.Notify.TwilioAccountSID,
		TwilioAuthToken:  cfg.Notify.TwilioAuthToken,
		FromPhone:        cfg.Notify.FromPhone,
	})
	if direct.Enabled() {
		fanout = append(fanout, direct)
	}

	if len(fanout) == 0 {
		slog.Warn("no reminder channel configured, reminders will only be logged")
		return reminder.NewLogPublisher(logger), closeFn, nil
	}

	return fanout, closeFn, nil
}
