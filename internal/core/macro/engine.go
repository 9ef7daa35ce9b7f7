package macro

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

type EngineConfig struct {
	CancelOnMove    bool
	MoveThreshold   int
	WaitSlice       time.Duration
	MultiClickPause time.Duration
}

func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		MoveThreshold:   MoveThreshold,
		WaitSlice:       WaitSlice,
		MultiClickPause: MultiClickPause,
	}
}

// Engine runs click sequences. Trigger may be called from any number of goroutines; each
// call owns its own session state. Click steps of concurrent sessions are serialized so a
// move+click pair is never interleaved with another session's, but waits are not.
type Engine struct {
	input    InputPort
	observer Observer
	logger   Logger

	cancelOnMove atomic.Bool
	threshold    int
	slice        time.Duration
	pause        time.Duration
	sleep        func(ctx context.Context, d time.Duration) bool

	clickMu sync.Mutex

	mu       sync.Mutex
	closed   bool
	ctx      context.Context
	cancel   context.CancelFunc
	sessions sync.WaitGroup
	running  atomic.Int32
}

func NewEngine(cfg EngineConfig, input InputPort, observer Observer, logger Logger) (*Engine, error) {
	if input == nil {
		return nil, fmt.Errorf("input port is nil")
	}
	if observer == nil {
		return nil, fmt.Errorf("observer is nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is nil")
	}
	if cfg.MoveThreshold <= 0 {
		cfg.MoveThreshold = MoveThreshold
	}
	if cfg.WaitSlice <= 0 {
		cfg.WaitSlice = WaitSlice
	}
	if cfg.MultiClickPause < 0 {
		cfg.MultiClickPause = 0
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		input:     input,
		observer:  observer,
		logger:    logger,
		threshold: cfg.MoveThreshold,
		slice:     cfg.WaitSlice,
		pause:     cfg.MultiClickPause,
		sleep:     sleepContext,
		ctx:       ctx,
		cancel:    cancel,
	}
	e.cancelOnMove.Store(cfg.CancelOnMove)
	return e, nil
}

func (e *Engine) SetCancelOnMove(enabled bool) {
	e.cancelOnMove.Store(enabled)
}

func (e *Engine) CancelOnMove() bool {
	return e.cancelOnMove.Load()
}

// Running reports how many sessions are currently in flight.
func (e *Engine) Running() int {
	return int(e.running.Load())
}

// Close cancels every running session and waits for them to emit ExecutionEnded.
// Triggers after Close are ignored.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.mu.Unlock()

	e.cancel()
	e.sessions.Wait()
}

// Trigger runs one session to completion or cancellation on the calling goroutine.
// Outcomes are reported only through the Observer.
func (e *Engine) Trigger(ctx context.Context, provider DataProvider) {
	if provider == nil {
		e.logger.Warn("Trigger ignored: no data provider")
		return
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		e.logger.Debug("Trigger ignored: engine closed")
		return
	}
	e.sessions.Add(1)
	e.mu.Unlock()
	defer e.sessions.Done()

	if ctx == nil {
		ctx = context.Background()
	}
	sessionCtx, cancel := context.WithCancel(e.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	if ctx.Err() != nil {
		cancel()
	}

	e.running.Add(1)
	defer e.running.Add(-1)

	s := &session{
		engine: e,
		ctx:    sessionCtx,
		record: Normalize(provider()),
	}
	s.run()
}

type session struct {
	engine *Engine
	ctx    context.Context
	record ActionRecord

	cancelled    bool
	reference    Point
	hasReference bool
	step         int
}

func (s *session) run() {
	e := s.engine
	name := s.record.Name
	coords := s.record.Coordinates
	total := len(coords)

	if e.CancelOnMove() {
		s.captureReference()
	}

	e.observer.ExecutionStarted()
	defer e.observer.ExecutionEnded()

	e.logger.Debug("Session started", "action", name, "steps", total, "mode", s.record.Mode, "delay_ms", s.record.DelayMs)
	if total > 1 {
		e.observer.Status(fmt.Sprintf("%s: %d clicks, %dms delay", name, total, s.record.DelayMs))
	} else {
		e.observer.Status("Executing: " + name)
	}

	for s.step = 0; s.step < total; s.step++ {
		if s.interrupted() {
			break
		}

		target := coords[s.step]
		if total > 1 {
			e.observer.Status(fmt.Sprintf("%s: Click %d/%d @ %d,%d", name, s.step+1, total, target.X, target.Y))
		}
		e.observer.ClickIndicator(target.X, target.Y)

		if err := s.click(target); err != nil {
			e.logger.Warn("Click failed", "action", name, "step", s.step+1, "err", err)
			e.observer.Status(fmt.Sprintf("%s: click %d/%d failed", name, s.step+1, total))
		}

		if e.CancelOnMove() {
			s.captureReference()
		}

		if s.step < total-1 {
			if !s.wait(s.record.DelayMs) {
				break
			}
		}
	}

	if !s.cancelled {
		e.observer.Status(fmt.Sprintf("Done: %s (%d clicks)", name, total))
		e.logger.Debug("Session finished", "action", name, "steps", total)
	}
}

// wait sleeps delayMs in bounded slices, polling for cancellation at the start of each
// slice. It returns false when the session was cancelled.
func (s *session) wait(delayMs int) bool {
	e := s.engine
	total := len(s.record.Coordinates)
	sliceMs := int(e.slice / time.Millisecond)
	if sliceMs < 1 {
		sliceMs = 1
	}

	remaining := delayMs
	for remaining > 0 {
		if s.interrupted() {
			return false
		}
		e.observer.Status(fmt.Sprintf("%s: ⏱ %s → Click %d/%d", s.record.Name, FormatRemaining(remaining), s.step+2, total))

		chunk := min(sliceMs, remaining)
		if !e.sleep(s.ctx, time.Duration(chunk)*time.Millisecond) {
			s.cancel("Cancelled: execution stopped")
			return false
		}
		remaining -= chunk
	}
	return true
}

func (s *session) interrupted() bool {
	if s.ctx.Err() != nil {
		s.cancel("Cancelled: execution stopped")
		return true
	}
	if s.movedAway() {
		s.cancel("⚠ Cancelled: mouse moved")
		return true
	}
	return false
}

func (s *session) cancel(message string) {
	s.cancelled = true
	s.engine.observer.Status(message)
	s.engine.logger.Info("Session cancelled", "action", s.record.Name, "step", s.step+1, "reason", message)
}

func (s *session) movedAway() bool {
	e := s.engine
	if !s.hasReference || !e.CancelOnMove() {
		return false
	}
	current, err := e.input.CursorPosition()
	if err != nil {
		e.logger.Debug("Cursor position unavailable", "err", err)
		return false
	}
	dx := abs(current.X - s.reference.X)
	dy := abs(current.Y - s.reference.Y)
	return dx > e.threshold || dy > e.threshold
}

func (s *session) captureReference() {
	pos, err := s.engine.input.CursorPosition()
	if err != nil {
		s.engine.logger.Debug("Cursor position unavailable", "err", err)
		return
	}
	s.reference = pos
	s.hasReference = true
}

func (s *session) click(target Point) error {
	e := s.engine
	e.clickMu.Lock()
	defer e.clickMu.Unlock()

	if err := e.input.SetCursorPosition(target.X, target.Y); err != nil {
		return fmt.Errorf("move cursor to %d,%d: %w", target.X, target.Y, err)
	}

	button := s.record.Button
	clicks := s.record.ClicksPerStep()
	for i := 0; i < clicks; i++ {
		if err := e.input.ButtonDown(button); err != nil {
			return fmt.Errorf("%s button down: %w", button, err)
		}
		if err := e.input.ButtonUp(button); err != nil {
			// A button left down would turn the next move into a drag.
			if retryErr := e.input.ButtonUp(button); retryErr != nil {
				e.logger.Warn("Button may still be held", "button", button, "err", retryErr)
			}
			return fmt.Errorf("%s button up: %w", button, err)
		}
		if clicks > 1 && i < clicks-1 && e.pause > 0 {
			if !e.sleep(s.ctx, e.pause) {
				return nil
			}
		}
	}
	return nil
}

// FormatRemaining renders a countdown as seconds with one decimal from 1000ms up,
// milliseconds below.
func FormatRemaining(ms int) string {
	if ms >= 1000 {
		return fmt.Sprintf("%.1fs", float64(ms)/1000)
	}
	return fmt.Sprintf("%dms", ms)
}

func sleepContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
