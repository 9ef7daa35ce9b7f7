// Package app owns the editable action list and keeps hotkey registrations, the engine
// and the persisted document in step with it. Both the Fyne UI and the CLI drive it.
package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/msyamsudin/S-Trade-Executor/internal/core/macro"
	"github.com/msyamsudin/S-Trade-Executor/internal/store"
)

const (
	StatusPaused   = "Paused"
	StatusStandby  = "Standby - No active shortcuts"
	PlaceholderKey = "Bind Key"

	// PickButton is the hotkey id of the click that records a coordinate.
	PickButton = "mouse3"

	defaultPickCountdown = 3 * time.Second
	defaultCaptureWait   = 10 * time.Second
	defaultPickWait      = 30 * time.Second
)

// placeholders are hotkey values the editor shows before a key is bound.
var placeholders = map[string]struct{}{
	"":         {},
	"None":     {},
	"Bind Key": {},
	"Press...": {},
}

// Settings is the persistence surface; *store.Store satisfies it.
type Settings interface {
	Actions() []macro.ActionRecord
	SaveActions(actions []macro.ActionRecord) error
	Bool(key string, def bool) bool
	Set(key string, value any) error
}

// Registrar is the registry surface; *macro.Registry satisfies it.
type Registrar interface {
	Register(hotkeyID string, provider macro.DataProvider) bool
	UnregisterAll()
}

// CancelToggle is the engine surface; *macro.Engine satisfies it.
type CancelToggle interface {
	SetCancelOnMove(enabled bool)
	CancelOnMove() bool
}

type CursorReader interface {
	CursorPosition() (macro.Point, error)
}

type Config struct {
	Settings Settings
	Registry Registrar
	Engine   CancelToggle
	Cursor   CursorReader
	// Capturer is optional; CaptureHotkey fails without it.
	Capturer macro.HotkeyCapturer
	// Canonicalize normalizes user-typed hotkeys. Nil keeps them verbatim.
	Canonicalize func(hotkey string) (string, error)
	OnStatus     func(message string)
	Logger       macro.Logger
}

type entry struct {
	record macro.ActionRecord
}

type Controller struct {
	settings     Settings
	registry     Registrar
	engine       CancelToggle
	cursor       CursorReader
	capturer     macro.HotkeyCapturer
	canonicalize func(string) (string, error)
	onStatus     func(string)
	logger       macro.Logger
	sleep        func(ctx context.Context, d time.Duration) bool

	mu         sync.Mutex
	entries    []*entry
	paused     bool
	previewing int
}

func New(cfg Config) (*Controller, error) {
	if cfg.Settings == nil {
		return nil, fmt.Errorf("settings are nil")
	}
	if cfg.Registry == nil {
		return nil, fmt.Errorf("registry is nil")
	}
	if cfg.Engine == nil {
		return nil, fmt.Errorf("engine is nil")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is nil")
	}
	c := &Controller{
		settings:     cfg.Settings,
		registry:     cfg.Registry,
		engine:       cfg.Engine,
		cursor:       cfg.Cursor,
		capturer:     cfg.Capturer,
		canonicalize: cfg.Canonicalize,
		onStatus:     cfg.OnStatus,
		logger:       cfg.Logger,
		sleep:        sleepContext,
		previewing:   -1,
	}
	if c.onStatus == nil {
		c.onStatus = func(string) {}
	}
	return c, nil
}

// Load replaces the in-memory list with the persisted one and re-registers hotkeys.
// It also runs after an external edit of the config file.
func (c *Controller) Load() {
	records := c.settings.Actions()
	c.engine.SetCancelOnMove(c.settings.Bool(store.KeyCancelOnMouseMove, c.engine.CancelOnMove()))

	c.mu.Lock()
	c.entries = make([]*entry, 0, len(records))
	for _, record := range records {
		record.Hotkey = c.canonicalHotkey(record.Hotkey)
		c.entries = append(c.entries, &entry{record: record})
	}
	c.previewing = -1
	c.mu.Unlock()

	c.logger.Info("Loaded actions", "count", len(records))
	c.Refresh()
}

func (c *Controller) Actions() []macro.ActionRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) Action(index int) (macro.ActionRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, err := c.entryLocked(index)
	if err != nil {
		return macro.ActionRecord{}, err
	}
	return cloneRecord(e.record), nil
}

func (c *Controller) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// NewAction is the record a freshly added card starts from.
func NewAction() macro.ActionRecord {
	return macro.ActionRecord{
		Name:        "New Action",
		Hotkey:      PlaceholderKey,
		Coordinates: []macro.Point{{X: 0, Y: 0}},
		Mode:        macro.ModeSingle,
		BurstCount:  5,
		DelayMs:     1000,
		Button:      macro.ButtonLeft,
		Enabled:     true,
	}
}

// Add appends record and returns its index.
func (c *Controller) Add(record macro.ActionRecord) (int, error) {
	c.mu.Lock()
	c.entries = append(c.entries, &entry{record: macro.Normalize(record)})
	index := len(c.entries) - 1
	c.mu.Unlock()

	return index, c.commit()
}

func (c *Controller) Remove(index int) error {
	c.mu.Lock()
	if _, err := c.entryLocked(index); err != nil {
		c.mu.Unlock()
		return err
	}
	c.entries = append(c.entries[:index], c.entries[index+1:]...)
	switch {
	case c.previewing == index:
		c.previewing = -1
	case c.previewing > index:
		c.previewing--
	}
	c.mu.Unlock()

	return c.commit()
}

// Update applies edit to the action at index, then saves and re-registers. Providers
// read the edited record on the next trigger; a running session keeps its own copy.
func (c *Controller) Update(index int, edit func(record *macro.ActionRecord)) error {
	c.mu.Lock()
	e, err := c.entryLocked(index)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	record := cloneRecord(e.record)
	edit(&record)
	e.record = macro.Normalize(record)
	c.mu.Unlock()

	return c.commit()
}

func (c *Controller) SetEnabled(index int, enabled bool) error {
	return c.Update(index, func(r *macro.ActionRecord) { r.Enabled = enabled })
}

// BindHotkey validates hotkey with the backend grammar and stores it.
func (c *Controller) BindHotkey(index int, hotkey string) error {
	hotkey = strings.TrimSpace(hotkey)
	if c.canonicalize != nil && !isPlaceholder(hotkey) {
		canonical, err := c.canonicalize(hotkey)
		if err != nil {
			return err
		}
		hotkey = canonical
	}
	return c.Update(index, func(r *macro.ActionRecord) { r.Hotkey = hotkey })
}

// CaptureHotkey waits for the user to press a combination and binds it to index.
func (c *Controller) CaptureHotkey(ctx context.Context, index int, timeout time.Duration) (string, error) {
	if c.capturer == nil {
		return "", fmt.Errorf("hotkey capture is not available on this backend")
	}
	if _, err := c.Action(index); err != nil {
		return "", err
	}
	if timeout <= 0 {
		timeout = defaultCaptureWait
	}

	c.onStatus("⌨ Press the key combination to bind...")
	hotkey, err := c.capturer.CaptureNextHotkey(ctx, timeout)
	if err != nil {
		c.onStatus("Hotkey capture failed: " + err.Error())
		return "", err
	}
	if err := c.BindHotkey(index, hotkey); err != nil {
		c.onStatus("Hotkey rejected: " + err.Error())
		return "", err
	}
	record, err := c.Action(index)
	if err != nil {
		return "", err
	}
	c.logger.Info("Captured hotkey", "index", index, "hotkey", record.Hotkey)
	return record.Hotkey, nil
}

func (c *Controller) AddCoordinate(index int) error {
	return c.Update(index, func(r *macro.ActionRecord) {
		r.Coordinates = append(r.Coordinates, macro.Point{})
	})
}

// RemoveCoordinate deletes one row. The last row is kept so every action has a target.
func (c *Controller) RemoveCoordinate(index, coord int) error {
	record, err := c.Action(index)
	if err != nil {
		return err
	}
	if coord < 0 || coord >= len(record.Coordinates) {
		return fmt.Errorf("coordinate %d out of range", coord)
	}
	if len(record.Coordinates) == 1 {
		return fmt.Errorf("an action needs at least one coordinate")
	}
	return c.Update(index, func(r *macro.ActionRecord) {
		r.Coordinates = append(r.Coordinates[:coord], r.Coordinates[coord+1:]...)
	})
}

func (c *Controller) SetCoordinate(index, coord int, p macro.Point) error {
	record, err := c.Action(index)
	if err != nil {
		return err
	}
	if coord < 0 || coord > len(record.Coordinates) {
		return fmt.Errorf("coordinate %d out of range", coord)
	}
	return c.Update(index, func(r *macro.ActionRecord) {
		if coord == len(r.Coordinates) {
			r.Coordinates = append(r.Coordinates, p)
			return
		}
		r.Coordinates[coord] = p
	})
}

// PickCoordinate counts down so the user can park the cursor on the target, then stores
// the cursor position into the given row. coord == len(coordinates) appends a row.
func (c *Controller) PickCoordinate(ctx context.Context, index, coord int, countdown time.Duration) (macro.Point, error) {
	if c.cursor == nil {
		return macro.Point{}, fmt.Errorf("cursor position is not available on this backend")
	}
	if _, err := c.Action(index); err != nil {
		return macro.Point{}, err
	}
	if countdown <= 0 {
		countdown = defaultPickCountdown
	}

	for remaining := countdown; remaining > 0; remaining -= time.Second {
		c.onStatus(fmt.Sprintf("🎯 Move the cursor to the target... %s", macro.FormatRemaining(int(remaining/time.Millisecond))))
		step := min(remaining, time.Second)
		if !c.sleep(ctx, step) {
			c.onStatus("Pick cancelled")
			return macro.Point{}, ctx.Err()
		}
	}

	p, err := c.cursor.CursorPosition()
	if err != nil {
		c.onStatus("Pick failed: " + err.Error())
		return macro.Point{}, fmt.Errorf("read cursor position: %w", err)
	}
	if err := c.SetCoordinate(index, coord, p); err != nil {
		return macro.Point{}, err
	}
	c.onStatus(fmt.Sprintf("✅ Coordinate set: %d,%d", p.X, p.Y))
	return p, nil
}

// Pick records a coordinate by middle-click when the backend can capture input, and by
// countdown otherwise.
func (c *Controller) Pick(ctx context.Context, index, coord int) (macro.Point, error) {
	if c.capturer != nil {
		return c.PickCoordinateByClick(ctx, index, coord, 0)
	}
	return c.PickCoordinate(ctx, index, coord, 0)
}

// PickCoordinateByClick waits for a middle-click anywhere on screen and stores the cursor
// position at that moment. Other keys and buttons are ignored until timeout.
func (c *Controller) PickCoordinateByClick(ctx context.Context, index, coord int, timeout time.Duration) (macro.Point, error) {
	if c.capturer == nil || c.cursor == nil {
		return macro.Point{}, fmt.Errorf("click picking is not available on this backend")
	}
	if _, err := c.Action(index); err != nil {
		return macro.Point{}, err
	}
	if timeout <= 0 {
		timeout = defaultPickWait
	}

	deadline := time.Now().Add(timeout)
	c.onStatus("🎯 Middle-click the target position...")
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			c.onStatus("Pick timed out")
			return macro.Point{}, fmt.Errorf("timed out waiting for a middle-click")
		}
		id, err := c.capturer.CaptureNextHotkey(ctx, remaining)
		if err != nil {
			if ctx.Err() != nil {
				c.onStatus("Pick cancelled")
				return macro.Point{}, ctx.Err()
			}
			c.onStatus("Pick failed: " + err.Error())
			return macro.Point{}, err
		}
		if c.canonicalHotkey(id) == PickButton {
			break
		}
		c.onStatus(fmt.Sprintf("🎯 %s ignored, middle-click the target position...", id))
	}

	p, err := c.cursor.CursorPosition()
	if err != nil {
		c.onStatus("Pick failed: " + err.Error())
		return macro.Point{}, fmt.Errorf("read cursor position: %w", err)
	}
	if err := c.SetCoordinate(index, coord, p); err != nil {
		return macro.Point{}, err
	}
	c.onStatus(fmt.Sprintf("✅ Coordinate set: %d,%d", p.X, p.Y))
	return p, nil
}

// Setup walks a new action through binding its hotkey and picking its first target.
func (c *Controller) Setup(ctx context.Context, index int) error {
	if _, err := c.CaptureHotkey(ctx, index, 0); err != nil {
		return err
	}
	if _, err := c.Pick(ctx, index, 0); err != nil {
		return err
	}
	record, err := c.Action(index)
	if err != nil {
		return err
	}
	c.onStatus(fmt.Sprintf("✅ %s ready on %s", record.Name, record.Hotkey))
	return nil
}

// Test previews an action's targets without clicking. Calling it again for the same
// action clears the preview. It returns the coordinates to highlight.
func (c *Controller) Test(index int) ([]macro.Point, error) {
	c.mu.Lock()
	e, err := c.entryLocked(index)
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	if c.previewing == index {
		c.previewing = -1
		c.mu.Unlock()
		c.onStatus("Test cleared")
		return nil, nil
	}
	c.previewing = index
	coords := append([]macro.Point(nil), e.record.Coordinates...)
	c.mu.Unlock()

	parts := make([]string, 0, len(coords))
	for i, p := range coords {
		parts = append(parts, fmt.Sprintf("#%d %d,%d", i+1, p.X, p.Y))
	}
	c.onStatus(fmt.Sprintf("Testing %d coordinate(s): %s", len(coords), strings.Join(parts, "  ")))
	return coords, nil
}

func (c *Controller) TogglePause() bool {
	c.mu.Lock()
	c.paused = !c.paused
	paused := c.paused
	c.mu.Unlock()

	c.logger.Info("Pause toggled", "paused", paused)
	c.Refresh()
	return paused
}

func (c *Controller) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

func (c *Controller) SetCancelOnMove(enabled bool) error {
	c.engine.SetCancelOnMove(enabled)
	if err := c.settings.Set(store.KeyCancelOnMouseMove, enabled); err != nil {
		c.logger.Warn("Failed to save cancel-on-move", "err", err)
		return err
	}
	return nil
}

func (c *Controller) CancelOnMove() bool {
	return c.engine.CancelOnMove()
}

// Refresh re-registers every enabled action with a real hotkey. Nothing is registered
// while paused.
func (c *Controller) Refresh() {
	c.registry.UnregisterAll()

	c.mu.Lock()
	paused := c.paused
	type pending struct {
		hotkey   string
		name     string
		provider macro.DataProvider
	}
	var toRegister []pending
	if !paused {
		for _, e := range c.entries {
			if !eligible(e.record) {
				continue
			}
			toRegister = append(toRegister, pending{hotkey: c.canonicalHotkey(e.record.Hotkey), name: e.record.Name, provider: c.provider(e)})
		}
	}
	c.mu.Unlock()

	seen := make(map[string]string, len(toRegister))
	for _, p := range toRegister {
		if other, dup := seen[p.hotkey]; dup {
			c.logger.Warn("Hotkey shared by several actions; the later one wins", "hotkey", p.hotkey, "replaced", other, "action", p.name)
		}
		seen[p.hotkey] = p.name
		if !c.registry.Register(p.hotkey, p.provider) {
			c.onStatus(fmt.Sprintf("Failed to bind %s for %s", p.hotkey, p.name))
		}
	}

	c.onStatus(c.StateLine())
}

// StateLine summarizes how many shortcuts are live.
func (c *Controller) StateLine() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.paused {
		return StatusPaused
	}
	active := 0
	for _, e := range c.entries {
		if eligible(e.record) {
			active++
		}
	}
	if active == 0 {
		return StatusStandby
	}
	return fmt.Sprintf("Ready - %d/%d shortcut(s) active", active, len(c.entries))
}

// provider reads the entry at trigger time so edits apply to the next run.
func (c *Controller) provider(e *entry) macro.DataProvider {
	return func() macro.ActionRecord {
		c.mu.Lock()
		defer c.mu.Unlock()
		return cloneRecord(e.record)
	}
}

func (c *Controller) commit() error {
	c.mu.Lock()
	snapshot := c.snapshotLocked()
	c.mu.Unlock()

	err := c.settings.SaveActions(snapshot)
	if err != nil {
		c.logger.Error("Failed to save actions", "err", err)
	}
	c.Refresh()
	return err
}

func (c *Controller) snapshotLocked() []macro.ActionRecord {
	out := make([]macro.ActionRecord, len(c.entries))
	for i, e := range c.entries {
		out[i] = cloneRecord(e.record)
	}
	return out
}

func (c *Controller) entryLocked(index int) (*entry, error) {
	if index < 0 || index >= len(c.entries) {
		return nil, fmt.Errorf("action %d out of range", index)
	}
	return c.entries[index], nil
}

// canonicalHotkey returns the form binders key on, so "Ctrl+A" and "ctrl+a" are one
// hotkey everywhere. Unparseable values are kept and rejected later by the registry.
func (c *Controller) canonicalHotkey(hotkey string) string {
	hotkey = strings.TrimSpace(hotkey)
	if c.canonicalize == nil || isPlaceholder(hotkey) {
		return hotkey
	}
	canonical, err := c.canonicalize(hotkey)
	if err != nil {
		c.logger.Warn("Hotkey not recognized", "hotkey", hotkey, "err", err)
		return hotkey
	}
	return canonical
}

func eligible(record macro.ActionRecord) bool {
	return record.Enabled && !isPlaceholder(record.Hotkey)
}

func isPlaceholder(hotkey string) bool {
	_, ok := placeholders[strings.TrimSpace(hotkey)]
	return ok
}

func cloneRecord(record macro.ActionRecord) macro.ActionRecord {
	record.Coordinates = append([]macro.Point(nil), record.Coordinates...)
	return record
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
