package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/msyamsudin/S-Trade-Executor/internal/adapters/combo"
	"github.com/msyamsudin/S-Trade-Executor/internal/core/macro"
	"github.com/msyamsudin/S-Trade-Executor/internal/store"
)

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

type fakeRegistry struct {
	mu        sync.Mutex
	providers map[string]macro.DataProvider
	reject    map[string]bool
	clears    int
	// registered lists every Register call since the last UnregisterAll.
	registered []string
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{providers: map[string]macro.DataProvider{}, reject: map[string]bool{}}
}

func (r *fakeRegistry) Register(id string, provider macro.DataProvider) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.registered = append(r.registered, id)
	if r.reject[id] {
		return false
	}
	r.providers[id] = provider
	return true
}

func (r *fakeRegistry) UnregisterAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clears++
	r.providers = map[string]macro.DataProvider{}
	r.registered = nil
}

func (r *fakeRegistry) ids() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.providers))
	for id := range r.providers {
		out = append(out, id)
	}
	return out
}

func (r *fakeRegistry) provider(id string) macro.DataProvider {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.providers[id]
}

type fakeEngine struct {
	cancelOnMove bool
}

func (e *fakeEngine) SetCancelOnMove(enabled bool) { e.cancelOnMove = enabled }
func (e *fakeEngine) CancelOnMove() bool           { return e.cancelOnMove }

type fixedCursor struct {
	pos macro.Point
	err error
}

func (c fixedCursor) CursorPosition() (macro.Point, error) { return c.pos, c.err }

type scriptedCapturer struct {
	hotkey string
	err    error
}

func (c scriptedCapturer) CaptureNextHotkey(context.Context, time.Duration) (string, error) {
	return c.hotkey, c.err
}

// sequenceCapturer returns its ids in order, then an error.
type sequenceCapturer struct {
	mu  sync.Mutex
	ids []string
}

func (c *sequenceCapturer) CaptureNextHotkey(context.Context, time.Duration) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.ids) == 0 {
		return "", errors.New("timed out")
	}
	id := c.ids[0]
	c.ids = c.ids[1:]
	return id, nil
}

type harness struct {
	ctrl     *Controller
	store    *store.Store
	registry *fakeRegistry
	engine   *fakeEngine
	statuses []string
}

func (h *harness) lastStatus() string {
	if len(h.statuses) == 0 {
		return ""
	}
	return h.statuses[len(h.statuses)-1]
}

func newHarness(t *testing.T, document string) *harness {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	s := store.New(path)
	if document != "" {
		require.NoError(t, writeDocument(path, document))
		var err error
		s, err = store.Open(path)
		require.NoError(t, err)
	}

	h := &harness{store: s, registry: newFakeRegistry(), engine: &fakeEngine{}}
	ctrl, err := New(Config{
		Settings:     s,
		Registry:     h.registry,
		Engine:       h.engine,
		Cursor:       fixedCursor{pos: macro.Point{X: 640, Y: 360}},
		Capturer:     scriptedCapturer{hotkey: "shift+ctrl+q"},
		Canonicalize: combo.Canonical,
		OnStatus:     func(msg string) { h.statuses = append(h.statuses, msg) },
		Logger:       noopLogger{},
	})
	require.NoError(t, err)
	ctrl.sleep = func(ctx context.Context, _ time.Duration) bool { return ctx.Err() == nil }
	h.ctrl = ctrl
	return h
}

func writeDocument(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o600)
}

const sampleDocument = `{
	"actions": [
		{"name": "Buy", "hotkey": "f1", "coords": [{"x": 10, "y": 20}]},
		{"name": "Sell", "hotkey": "f2", "enabled": false},
		{"name": "Draft", "hotkey": "Bind Key"},
		{"name": "Close", "hotkey": "ctrl+f3"}
	],
	"cancel_on_mouse_move": true
}`

func TestLoadRegistersEligibleActions(t *testing.T) {
	h := newHarness(t, sampleDocument)
	h.ctrl.Load()

	require.ElementsMatch(t, []string{"f1", "ctrl+f3"}, h.registry.ids())
	require.True(t, h.engine.cancelOnMove)
	require.Equal(t, "Ready - 2/4 shortcut(s) active", h.lastStatus())
}

func TestStandbyWithoutShortcuts(t *testing.T) {
	h := newHarness(t, "")
	h.ctrl.Load()

	require.Equal(t, StatusStandby, h.lastStatus())

	_, err := h.ctrl.Add(NewAction())
	require.NoError(t, err)
	require.Empty(t, h.registry.ids())
	require.Equal(t, StatusStandby, h.ctrl.StateLine())
}

func TestProviderSeesEditsAfterRegistration(t *testing.T) {
	h := newHarness(t, sampleDocument)
	h.ctrl.Load()

	provider := h.registry.provider("f1")
	require.NotNil(t, provider)

	require.NoError(t, h.ctrl.Update(0, func(r *macro.ActionRecord) {
		r.DelayMs = 2500
		r.Coordinates = append(r.Coordinates, macro.Point{X: 30, Y: 40})
	}))

	record := provider()
	require.Equal(t, 2500, record.DelayMs)
	require.Len(t, record.Coordinates, 2)
}

func TestPauseUnregistersAndResumeRestores(t *testing.T) {
	h := newHarness(t, sampleDocument)
	h.ctrl.Load()

	require.True(t, h.ctrl.TogglePause())
	require.Empty(t, h.registry.ids())
	require.Equal(t, StatusPaused, h.lastStatus())

	// Edits while paused must not re-register anything.
	require.NoError(t, h.ctrl.SetEnabled(1, true))
	require.Empty(t, h.registry.ids())

	require.False(t, h.ctrl.TogglePause())
	require.ElementsMatch(t, []string{"f1", "f2", "ctrl+f3"}, h.registry.ids())
}

func TestEditsArePersisted(t *testing.T) {
	h := newHarness(t, sampleDocument)
	h.ctrl.Load()

	require.NoError(t, h.ctrl.Remove(2))
	index, err := h.ctrl.Add(NewAction())
	require.NoError(t, err)
	require.Equal(t, 3, index)

	reopened, err := store.Open(h.store.Path())
	require.NoError(t, err)
	actions := reopened.Actions()
	require.Len(t, actions, 4)
	require.Equal(t, "New Action", actions[3].Name)
	require.Equal(t, 1000, actions[3].DelayMs)
	require.Equal(t, PlaceholderKey, actions[3].Hotkey)
}

func TestBindHotkeyCanonicalizes(t *testing.T) {
	h := newHarness(t, sampleDocument)
	h.ctrl.Load()

	require.NoError(t, h.ctrl.BindHotkey(2, "Alt+Shift+P"))
	record, err := h.ctrl.Action(2)
	require.NoError(t, err)
	require.Equal(t, "shift+alt+p", record.Hotkey)
	require.Contains(t, h.registry.ids(), "shift+alt+p")

	require.Error(t, h.ctrl.BindHotkey(2, "ctrl+shift"))
	record, _ = h.ctrl.Action(2)
	require.Equal(t, "shift+alt+p", record.Hotkey)
}

func TestLoadCanonicalizesHotkeys(t *testing.T) {
	h := newHarness(t, `{"actions": [
		{"name": "Upper", "hotkey": "Ctrl+A"},
		{"name": "Lower", "hotkey": "ctrl+a"},
		{"name": "Spaced", "hotkey": " Shift+Ctrl+F9 "}
	]}`)
	h.ctrl.Load()

	h.registry.mu.Lock()
	registered := append([]string(nil), h.registry.registered...)
	h.registry.mu.Unlock()
	require.Equal(t, []string{"ctrl+a", "ctrl+a", "ctrl+shift+f9"}, registered)
	require.ElementsMatch(t, []string{"ctrl+a", "ctrl+shift+f9"}, h.registry.ids())

	// The later action owns the shared hotkey.
	require.Equal(t, "Lower", h.registry.provider("ctrl+a")().Name)

	record, err := h.ctrl.Action(0)
	require.NoError(t, err)
	require.Equal(t, "ctrl+a", record.Hotkey)
}

func TestRegistrationFailureIsReported(t *testing.T) {
	h := newHarness(t, sampleDocument)
	h.registry.reject["ctrl+f3"] = true
	h.ctrl.Load()

	require.ElementsMatch(t, []string{"f1"}, h.registry.ids())
	found := false
	for _, msg := range h.statuses {
		if strings.Contains(msg, "Failed to bind ctrl+f3") {
			found = true
		}
	}
	require.True(t, found, "statuses: %v", h.statuses)
}

func TestCaptureHotkeyBindsResult(t *testing.T) {
	h := newHarness(t, sampleDocument)
	h.ctrl.Load()

	hotkey, err := h.ctrl.CaptureHotkey(context.Background(), 2, time.Second)
	require.NoError(t, err)
	require.Equal(t, "ctrl+shift+q", hotkey)
	require.Contains(t, h.registry.ids(), "ctrl+shift+q")

	h.ctrl.capturer = scriptedCapturer{err: errors.New("timed out")}
	_, err = h.ctrl.CaptureHotkey(context.Background(), 2, time.Second)
	require.Error(t, err)
	require.Equal(t, "Hotkey capture failed: timed out", h.lastStatus())
}

func TestPickCoordinateStoresCursor(t *testing.T) {
	h := newHarness(t, sampleDocument)
	h.ctrl.Load()

	p, err := h.ctrl.PickCoordinate(context.Background(), 0, 1, 2*time.Second)
	require.NoError(t, err)
	require.Equal(t, macro.Point{X: 640, Y: 360}, p)

	record, err := h.ctrl.Action(0)
	require.NoError(t, err)
	require.Equal(t, []macro.Point{{X: 10, Y: 20}, {X: 640, Y: 360}}, record.Coordinates)
	require.Equal(t, "✅ Coordinate set: 640,360", h.lastStatus())

	_, err = h.ctrl.PickCoordinate(context.Background(), 0, 5, time.Second)
	require.Error(t, err)
}

func TestPickByClickWaitsForMiddleButton(t *testing.T) {
	h := newHarness(t, sampleDocument)
	h.ctrl.Load()
	h.ctrl.capturer = &sequenceCapturer{ids: []string{"mouse5", "ctrl+mouse3", "mouse3"}}

	p, err := h.ctrl.Pick(context.Background(), 0, 0)
	require.NoError(t, err)
	require.Equal(t, macro.Point{X: 640, Y: 360}, p)

	record, _ := h.ctrl.Action(0)
	require.Equal(t, []macro.Point{{X: 640, Y: 360}}, record.Coordinates)
	require.Contains(t, h.statuses, "🎯 mouse5 ignored, middle-click the target position...")
	require.Equal(t, "✅ Coordinate set: 640,360", h.lastStatus())
}

func TestPickByClickGivesUpWhenCaptureFails(t *testing.T) {
	h := newHarness(t, sampleDocument)
	h.ctrl.Load()
	h.ctrl.capturer = &sequenceCapturer{ids: []string{"f4"}}

	_, err := h.ctrl.PickCoordinateByClick(context.Background(), 0, 0, time.Second)
	require.Error(t, err)
	record, _ := h.ctrl.Action(0)
	require.Equal(t, []macro.Point{{X: 10, Y: 20}}, record.Coordinates)
}

func TestPickFallsBackToCountdownWithoutCapturer(t *testing.T) {
	h := newHarness(t, sampleDocument)
	h.ctrl.Load()
	h.ctrl.capturer = nil

	_, err := h.ctrl.Pick(context.Background(), 0, 1)
	require.NoError(t, err)
	record, _ := h.ctrl.Action(0)
	require.Len(t, record.Coordinates, 2)
}

func TestSetupBindsHotkeyThenPicks(t *testing.T) {
	h := newHarness(t, "")
	h.ctrl.Load()
	index, err := h.ctrl.Add(NewAction())
	require.NoError(t, err)
	h.ctrl.capturer = &sequenceCapturer{ids: []string{"Shift+Ctrl+F5", "mouse3"}}

	require.NoError(t, h.ctrl.Setup(context.Background(), index))

	record, err := h.ctrl.Action(index)
	require.NoError(t, err)
	require.Equal(t, "ctrl+shift+f5", record.Hotkey)
	require.Equal(t, []macro.Point{{X: 640, Y: 360}}, record.Coordinates)
	require.Equal(t, []string{"ctrl+shift+f5"}, h.registry.ids())
	require.Equal(t, "✅ New Action ready on ctrl+shift+f5", h.lastStatus())
}

func TestPickCoordinateCancelled(t *testing.T) {
	h := newHarness(t, sampleDocument)
	h.ctrl.Load()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := h.ctrl.PickCoordinate(ctx, 0, 0, time.Second)
	require.ErrorIs(t, err, context.Canceled)

	record, _ := h.ctrl.Action(0)
	require.Equal(t, []macro.Point{{X: 10, Y: 20}}, record.Coordinates)
}

func TestRemoveCoordinateKeepsLastRow(t *testing.T) {
	h := newHarness(t, sampleDocument)
	h.ctrl.Load()

	require.Error(t, h.ctrl.RemoveCoordinate(0, 0))
	require.NoError(t, h.ctrl.AddCoordinate(0))
	require.NoError(t, h.ctrl.RemoveCoordinate(0, 0))

	record, _ := h.ctrl.Action(0)
	require.Equal(t, []macro.Point{{X: 0, Y: 0}}, record.Coordinates)
}

func TestPreviewToggles(t *testing.T) {
	h := newHarness(t, sampleDocument)
	h.ctrl.Load()

	coords, err := h.ctrl.Test(0)
	require.NoError(t, err)
	require.Equal(t, []macro.Point{{X: 10, Y: 20}}, coords)
	require.Equal(t, "Testing 1 coordinate(s): #1 10,20", h.lastStatus())

	coords, err = h.ctrl.Test(0)
	require.NoError(t, err)
	require.Nil(t, coords)
	require.Equal(t, "Test cleared", h.lastStatus())
}

func TestSetCancelOnMovePersists(t *testing.T) {
	h := newHarness(t, "")
	h.ctrl.Load()

	require.NoError(t, h.ctrl.SetCancelOnMove(true))
	require.True(t, h.ctrl.CancelOnMove())

	reopened, err := store.Open(h.store.Path())
	require.NoError(t, err)
	require.True(t, reopened.Bool(store.KeyCancelOnMouseMove, false))
}

func TestOutOfRangeIndex(t *testing.T) {
	h := newHarness(t, "")
	h.ctrl.Load()

	require.Error(t, h.ctrl.Update(0, func(*macro.ActionRecord) {}))
	require.Error(t, h.ctrl.Remove(-1))
	_, err := h.ctrl.Test(3)
	require.Error(t, err)
}
