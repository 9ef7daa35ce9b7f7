package main

import (
	"fmt"
	"log/slog"

	"github.com/msyamsudin/S-Trade-Executor/internal/adapters/combo"
	"github.com/msyamsudin/S-Trade-Executor/internal/app"
	"github.com/msyamsudin/S-Trade-Executor/internal/core/macro"
	"github.com/msyamsudin/S-Trade-Executor/internal/store"
)

// session is one running instance: store, backend, engine, registry and controller.
type session struct {
	logger     *slog.Logger
	store      *store.Store
	backend    *backend
	engine     *macro.Engine
	registry   *macro.Registry
	controller *app.Controller
	// loadWarning is set when the config file could not be parsed.
	loadWarning string
}

func startSession(cfg config, logger *slog.Logger, observer macro.Observer, onStatus func(string)) (*session, error) {
	s := &session{logger: logger}

	st, err := store.Open(cfg.configPath)
	if err != nil {
		// Keep the broken file untouched until the user saves over it.
		s.loadWarning = fmt.Sprintf("Failed to load %s: %v", cfg.configPath, err)
		logger.Warn("Config unreadable, starting with defaults", "path", cfg.configPath, "err", err)
		st = store.New(cfg.configPath)
	}
	s.store = st

	policy := cfg.duplicate
	if !cfg.duplicateSet {
		saved := st.String(store.KeyDuplicatePolicy, policy.String())
		if parsed, err := macro.ParseDuplicatePolicy(saved); err == nil {
			policy = parsed
		} else {
			logger.Warn("Ignoring saved duplicate policy", "value", saved, "err", err)
		}
	}

	b, err := openBackend(cfg, logger)
	if err != nil {
		return nil, explainBackendError(err)
	}
	s.backend = b

	engineCfg := macro.DefaultEngineConfig()
	engineCfg.CancelOnMove = st.Bool(store.KeyCancelOnMouseMove, false)
	engine, err := macro.NewEngine(engineCfg, b.port, observer, logger)
	if err != nil {
		b.Close()
		return nil, err
	}
	s.engine = engine

	registry, err := macro.NewRegistry(b.binder, engine, policy, logger)
	if err != nil {
		engine.Close()
		b.Close()
		return nil, err
	}
	s.registry = registry

	controller, err := app.New(app.Config{
		Settings:     st,
		Registry:     registry,
		Engine:       engine,
		Cursor:       b.port,
		Capturer:     b.capturer,
		Canonicalize: combo.Canonical,
		OnStatus:     onStatus,
		Logger:       logger,
	})
	if err != nil {
		s.Close()
		return nil, err
	}
	s.controller = controller

	logger.Info("Backend", "name", b.name)
	logger.Info("Config", "path", st.Path())
	logger.Info("Duplicate policy", "policy", policy.String())
	if st.HasLegacyProfiles() {
		logger.Info("Legacy profiles found; the first profile is loaded and replaces them on next save")
	}

	controller.Load()
	return s, nil
}

// Close unregisters every hotkey, cancels running sessions and releases the backend.
func (s *session) Close() {
	if s.registry != nil {
		s.registry.Close()
	}
	if s.engine != nil {
		s.engine.Close()
	}
	if s.backend != nil {
		s.backend.Close()
	}
}
