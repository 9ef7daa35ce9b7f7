package macro

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// DuplicatePolicy decides what happens when a hotkey fires again while a session started
// by the same hotkey is still running.
type DuplicatePolicy int

const (
	// DuplicateCoalesce drops the repeat trigger.
	DuplicateCoalesce DuplicatePolicy = iota
	// DuplicateQueue runs the repeat after the current session ends.
	DuplicateQueue
	// DuplicateOverlap starts a second concurrent session.
	DuplicateOverlap
)

func ParseDuplicatePolicy(value string) (DuplicatePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "coalesce", "drop":
		return DuplicateCoalesce, nil
	case "queue", "serialize":
		return DuplicateQueue, nil
	case "overlap", "allow":
		return DuplicateOverlap, nil
	default:
		return DuplicateCoalesce, fmt.Errorf("invalid duplicate policy %q (expected coalesce|queue|overlap)", value)
	}
}

func (p DuplicatePolicy) String() string {
	switch p {
	case DuplicateQueue:
		return "queue"
	case DuplicateOverlap:
		return "overlap"
	default:
		return "coalesce"
	}
}

// Executor runs one trigger. *Engine satisfies it.
type Executor interface {
	Trigger(ctx context.Context, provider DataProvider)
}

// gate holds the duplicate-policy state of one hotkey id. It outlives re-registration so
// a refresh while a session runs cannot open a second concurrent session.
type gate struct {
	running atomic.Bool
	queueMu sync.Mutex
}

type binding struct {
	id       string
	provider DataProvider
	gate     *gate
}

// Registry maps hotkey ids to data providers. It stores accessors, never record values:
// the provider is invoked when the hotkey fires, so the session always sees the latest
// configuration at trigger time.
type Registry struct {
	binder   HotkeyBinder
	executor Executor
	logger   Logger
	policy   DuplicatePolicy

	mu      sync.Mutex
	entries map[string]*binding
	gates   map[string]*gate

	// lifeMu is separate from mu so binder callbacks never wait on a Bind in progress.
	lifeMu   sync.Mutex
	closed   bool
	ctx      context.Context
	cancel   context.CancelFunc
	inflight sync.WaitGroup
}

func NewRegistry(binder HotkeyBinder, executor Executor, policy DuplicatePolicy, logger Logger) (*Registry, error) {
	if binder == nil {
		return nil, fmt.Errorf("hotkey binder is nil")
	}
	if executor == nil {
		return nil, fmt.Errorf("executor is nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Registry{
		binder:   binder,
		executor: executor,
		logger:   logger,
		policy:   policy,
		entries:  make(map[string]*binding),
		gates:    make(map[string]*gate),
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Register binds hotkeyID to provider, replacing any previous binding for the same id.
// It returns false and logs when the binder rejects the id.
func (r *Registry) Register(hotkeyID string, provider DataProvider) bool {
	hotkeyID = strings.TrimSpace(hotkeyID)
	if hotkeyID == "" || provider == nil {
		r.logger.Warn("Failed to register hotkey", "hotkey", hotkeyID, "err", "empty hotkey or nil provider")
		return false
	}

	if r.isClosed() {
		r.logger.Warn("Failed to register hotkey", "hotkey", hotkeyID, "err", "registry closed")
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[hotkeyID]; ok {
		r.unbindLocked(hotkeyID)
	}

	g, ok := r.gates[hotkeyID]
	if !ok {
		g = &gate{}
		r.gates[hotkeyID] = g
	}
	b := &binding{id: hotkeyID, provider: provider, gate: g}
	if err := r.binder.Bind(hotkeyID, func() { r.fire(b) }); err != nil {
		r.logger.Warn("Failed to register hotkey", "hotkey", hotkeyID, "err", err)
		return false
	}
	r.entries[hotkeyID] = b
	r.logger.Debug("Registered hotkey", "hotkey", hotkeyID)
	return true
}

func (r *Registry) Unregister(hotkeyID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[hotkeyID]; !ok {
		return false
	}
	r.unbindLocked(hotkeyID)
	return true
}

// UnregisterAll releases every binding. It is safe on an empty or already cleared registry.
func (r *Registry) UnregisterAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id := range r.entries {
		r.unbindLocked(id)
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *Registry) Hotkeys() []string {
	r.mu.Lock()
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	r.mu.Unlock()
	sort.Strings(ids)
	return ids
}

// Close unregisters everything, cancels in-flight sessions and waits for them to end.
func (r *Registry) Close() {
	r.lifeMu.Lock()
	if r.closed {
		r.lifeMu.Unlock()
		return
	}
	r.closed = true
	r.lifeMu.Unlock()

	r.UnregisterAll()
	r.cancel()
	r.inflight.Wait()
}

func (r *Registry) isClosed() bool {
	r.lifeMu.Lock()
	defer r.lifeMu.Unlock()
	return r.closed
}

func (r *Registry) unbindLocked(id string) {
	if err := r.binder.Unbind(id); err != nil {
		r.logger.Warn("Failed to release hotkey", "hotkey", id, "err", err)
	}
	delete(r.entries, id)
}

// fire is invoked by the binder. Binder callbacks may run on an OS hook thread that must
// return quickly, so the session always runs on its own goroutine.
func (r *Registry) fire(b *binding) {
	r.lifeMu.Lock()
	if r.closed {
		r.lifeMu.Unlock()
		return
	}
	r.inflight.Add(1)
	r.lifeMu.Unlock()

	switch r.policy {
	case DuplicateCoalesce:
		if !b.gate.running.CompareAndSwap(false, true) {
			r.inflight.Done()
			r.logger.Info("Hotkey ignored while its action is running", "hotkey", b.id)
			return
		}
		go func() {
			defer r.inflight.Done()
			defer b.gate.running.Store(false)
			r.executor.Trigger(r.ctx, b.provider)
		}()
	case DuplicateQueue:
		go func() {
			defer r.inflight.Done()
			b.gate.queueMu.Lock()
			defer b.gate.queueMu.Unlock()
			if r.ctx.Err() != nil {
				return
			}
			r.executor.Trigger(r.ctx, b.provider)
		}()
	default:
		go func() {
			defer r.inflight.Done()
			r.executor.Trigger(r.ctx, b.provider)
		}()
	}
}
