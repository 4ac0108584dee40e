// Package state wires the application together: store, sessions,
// notifiers, fan-out, unlock service, scheduler, HTTP router.
package state

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/posthog/posthog-go"

	"memorylane.app/core/appview/assistant"
	"memorylane.app/core/appview/capsules"
	"memorylane.app/core/appview/config"
	"memorylane.app/core/appview/db"
	"memorylane.app/core/appview/email"
	"memorylane.app/core/appview/fanout"
	"memorylane.app/core/appview/notify"
	posthognotify "memorylane.app/core/appview/notify/posthog"
	"memorylane.app/core/appview/scheduler"
	"memorylane.app/core/appview/session"
	"memorylane.app/core/appview/unlock"
	"memorylane.app/core/log"
)

type State struct {
	Db        *db.DB
	Config    *config.Config
	Sessions  *session.Store
	Unlock    *unlock.Service
	Scheduler *scheduler.Scheduler
	Assistant *assistant.Assistant
	Notifier  notify.Notifier
	Logger    *slog.Logger

	posthog posthog.Client
}

func Make(ctx context.Context, cfg *config.Config) (*State, error) {
	logger := log.FromContext(ctx)

	d, err := db.Make(cfg.Core.DbPath)
	if err != nil {
		return nil, err
	}

	sessions := session.NewStore(cfg.Core.CookieSecret, cfg.Core.Dev)

	var sender email.Sender = email.NewResendSender(cfg.Resend.ApiKey)
	if cfg.Core.Dev {
		sender = &logSender{logger: log.New("email")}
	}

	fan := &fanout.Fanout{
		Sender:      sender,
		Logger:      log.New("fanout"),
		Concurrency: cfg.Fanout.Concurrency,
		Timeout:     cfg.Fanout.DispatchTimeout,
		Attempts:    cfg.Fanout.Attempts,
	}

	notifiers := []notify.Notifier{}
	var phClient posthog.Client
	if cfg.Posthog.ApiKey != "" {
		phClient, err = posthog.NewWithConfig(cfg.Posthog.ApiKey, posthog.Config{
			Endpoint: cfg.Posthog.Endpoint,
		})
		if err != nil {
			logger.Error("failed to set up posthog, analytics disabled", "err", err)
		} else {
			notifiers = append(notifiers, posthognotify.NewPosthogNotifier(phClient))
		}
	}
	notifier := notify.NewMergedNotifier(log.New("notify"), notifiers...)

	unlockSvc := &unlock.Service{
		Db:       d,
		Fanout:   fan,
		Notifier: notifier,
		Logger:   log.New("unlock"),
		AppHost:  cfg.Core.AppHost,
		SentFrom: cfg.Resend.SentFrom,
	}

	sched := &scheduler.Scheduler{
		Db:           d,
		Unlock:       unlockSvc,
		Logger:       log.New("scheduler"),
		Interval:     cfg.Scheduler.Interval,
		SweepTimeout: cfg.Scheduler.SweepTimeout,
		Concurrency:  cfg.Scheduler.Concurrency,
	}

	assist, err := assistant.New(cfg.Gemini.ApiKey, cfg.Gemini.Endpoint, log.New("assistant"))
	if err != nil {
		return nil, err
	}

	return &State{
		Db:        d,
		Config:    cfg,
		Sessions:  sessions,
		Unlock:    unlockSvc,
		Scheduler: sched,
		Assistant: assist,
		Notifier:  notifier,
		Logger:    logger,
		posthog:   phClient,
	}, nil
}

func (s *State) Router() http.Handler {
	caps := &capsules.Capsules{
		Db:        s.Db,
		Sessions:  s.Sessions,
		Unlock:    s.Unlock,
		Fanout:    s.Unlock.Fanout,
		Assistant: s.Assistant,
		Notifier:  s.Notifier,
		Logger:    log.New("capsules"),
		AppHost:   s.Config.Core.AppHost,
		SentFrom:  s.Config.Resend.SentFrom,
	}

	r := chi.NewRouter()
	r.Mount("/capsules", caps.Router())
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return r
}

func (s *State) Close() error {
	if s.posthog != nil {
		s.posthog.Close()
	}
	return s.Db.Close()
}
