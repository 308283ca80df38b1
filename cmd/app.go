package main

import (
	"context"
	"os"

	"github.com/rs/zerolog"

	"todoweb/internal/config"
	"todoweb/internal/logging"
	"todoweb/internal/store"
	"todoweb/pkg/mq"
)

// app bundles what every subcommand needs.
type app struct {
	cfg *config.Config
	log zerolog.Logger
	mgr *store.Manager
	st  *store.Store
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr).With().Str("mode", string(cfg.Mode)).Logger()

	dialect, err := store.DialectFor(cfg.DB.Driver)
	if err != nil {
		return nil, err
	}
	mgr, err := store.NewManager(ctx, store.Options{
		Dialect:         dialect,
		DSN:             cfg.DB.DSN,
		Reuse:           cfg.ReuseHandles(),
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
	}, log)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, log: log, mgr: mgr, st: store.New(mgr)}, nil
}

func (a *app) publisher() mq.Publisher {
	log := a.log.With().Str("component", "events").Logger()
	switch a.cfg.Events {
	case "log":
		return mq.LogPublisher{Log: log}
	case "memory":
		m := mq.NewMemory()
		for _, topic := range []string{mq.TopicTodoCreated, mq.TopicTodoToggled, mq.TopicTodoDeleted} {
			topic := topic
			_ = m.Subscribe(topic, func(payload []byte) error {
				log.Debug().Str("topic", topic).RawJSON("payload", payload).Msg("event")
				return nil
			})
		}
		return m
	default:
		return mq.Noop{}
	}
}

func (a *app) Close() {
	_ = a.mgr.Close()
	_ = store.CloseShared()
}
