package main

import (
	"context"
	"io"
)

func runHeadless(ctx context.Context, cfg config, out io.Writer) error {
	logger := newSlogLogger(cfg.logLevel, nil)
	console := newConsoleObserver(out)

	sess, err := startSession(cfg, logger, console, console.Status)
	if err != nil {
		return err
	}
	defer sess.Close()

	if sess.loadWarning != "" {
		console.Status("WARNING " + sess.loadWarning)
	}
	printActions(out, sess.store)
	console.Status("Listening for hotkeys. Press Ctrl+C to stop")

	watchErr := make(chan error, 1)
	go func() {
		watchErr <- sess.store.Watch(ctx, 0, logger, func() {
			console.Status("Config changed on disk, reloading")
			sess.controller.Load()
		})
	}()

	select {
	case <-ctx.Done():
	case err := <-watchErr:
		if err != nil {
			logger.Warn("Config watcher stopped", "path", sess.store.Path(), "err", err)
		}
		<-ctx.Done()
	}

	console.Status("Stopping")
	return nil
}
