package macro

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"
)

type portEvent struct {
	Kind   string
	X, Y   int
	Button Button
}

type recordingPort struct {
	mu      sync.Mutex
	events  []portEvent
	pos     Point
	queries int

	// nudgeAtQuery shifts the cursor by 50px on that CursorPosition call, as if the user
	// grabbed the mouse.
	nudgeAtQuery int
	failMoveTo   map[Point]error
	// failUps fails that many ButtonUp calls before succeeding.
	failUps int
	upCalls int
}

func (p *recordingPort) SetCursorPosition(x, y int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.failMoveTo[Point{X: x, Y: y}]; err != nil {
		return err
	}
	p.pos = Point{X: x, Y: y}
	p.events = append(p.events, portEvent{Kind: "move", X: x, Y: y})
	return nil
}

func (p *recordingPort) ButtonDown(button Button) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, portEvent{Kind: "down", Button: button})
	return nil
}

func (p *recordingPort) ButtonUp(button Button) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.upCalls++
	if p.failUps > 0 {
		p.failUps--
		return errors.New("button up rejected")
	}
	p.events = append(p.events, portEvent{Kind: "up", Button: button})
	return nil
}

func (p *recordingPort) CursorPosition() (Point, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queries++
	if p.nudgeAtQuery > 0 && p.queries == p.nudgeAtQuery {
		p.pos.X += 50
	}
	return p.pos, nil
}

func (p *recordingPort) snapshot() []portEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]portEvent, len(p.events))
	copy(out, p.events)
	return out
}

func (p *recordingPort) queryCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queries
}

type recordingObserver struct {
	mu       sync.Mutex
	statuses []string
	clicks   []Point
	starts   int
	ends     int
}

func (o *recordingObserver) Status(message string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.statuses = append(o.statuses, message)
}

func (o *recordingObserver) ClickIndicator(x, y int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.clicks = append(o.clicks, Point{X: x, Y: y})
}

func (o *recordingObserver) ExecutionStarted() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.starts++
}

func (o *recordingObserver) ExecutionEnded() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ends++
}

func (o *recordingObserver) lastStatus() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.statuses) == 0 {
		return ""
	}
	return o.statuses[len(o.statuses)-1]
}

func (o *recordingObserver) statusSnapshot() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]string, len(o.statuses))
	copy(out, o.statuses)
	return out
}

func (o *recordingObserver) bracketCounts() (int, int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.starts, o.ends
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// fakeSleeper records requested waits and returns immediately.
type fakeSleeper struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (f *fakeSleeper) sleep(ctx context.Context, d time.Duration) bool {
	f.mu.Lock()
	f.waits = append(f.waits, d)
	f.mu.Unlock()
	return ctx.Err() == nil
}

func (f *fakeSleeper) total(excluding time.Duration) time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	var sum time.Duration
	for _, d := range f.waits {
		if d == excluding {
			continue
		}
		sum += d
	}
	return sum
}

func (f *fakeSleeper) count(d time.Duration) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, w := range f.waits {
		if w == d {
			n++
		}
	}
	return n
}

func newTestEngine(t *testing.T, cfg EngineConfig, port *recordingPort) (*Engine, *recordingObserver, *fakeSleeper) {
	t.Helper()
	observer := &recordingObserver{}
	engine, err := NewEngine(cfg, port, observer, noopLogger{})
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	sleeper := &fakeSleeper{}
	engine.sleep = sleeper.sleep
	t.Cleanup(engine.Close)
	return engine, observer, sleeper
}

func staticProvider(record ActionRecord) DataProvider {
	return func() ActionRecord { return record }
}

func countKind(events []portEvent, kind string) int {
	n := 0
	for _, ev := range events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

func TestTriggerClicksEveryCoordinateInOrder(t *testing.T) {
	port := &recordingPort{}
	engine, observer, sleeper := newTestEngine(t, DefaultEngineConfig(), port)

	engine.Trigger(context.Background(), staticProvider(ActionRecord{
		Name:        "Two",
		Coordinates: []Point{{X: 10, Y: 10}, {X: 20, Y: 20}},
		Mode:        ModeSingle,
		DelayMs:     0,
	}))

	want := []portEvent{
		{Kind: "move", X: 10, Y: 10},
		{Kind: "down", Button: ButtonLeft},
		{Kind: "up", Button: ButtonLeft},
		{Kind: "move", X: 20, Y: 20},
		{Kind: "down", Button: ButtonLeft},
		{Kind: "up", Button: ButtonLeft},
	}
	got := port.snapshot()
	if len(got) != len(want) {
		t.Fatalf("events = %#v, want %#v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event %d = %#v, want %#v", i, got[i], want[i])
		}
	}
	if status := observer.lastStatus(); status != "Done: Two (2 clicks)" {
		t.Fatalf("last status = %q", status)
	}
	if total := sleeper.total(0); total != 0 {
		t.Fatalf("expected no waits for delay 0, slept %v", total)
	}
	if len(observer.clicks) != 2 || observer.clicks[0] != (Point{X: 10, Y: 10}) || observer.clicks[1] != (Point{X: 20, Y: 20}) {
		t.Fatalf("click indicators = %#v", observer.clicks)
	}
}

func TestTriggerIssuesPairsPerMode(t *testing.T) {
	tests := []struct {
		name   string
		mode   ClickMode
		burst  int
		pairs  int
		button Button
	}{
		{name: "single", mode: ModeSingle, burst: 7, pairs: 1, button: ButtonLeft},
		{name: "double", mode: ModeDouble, burst: 7, pairs: 2, button: ButtonRight},
		{name: "burst", mode: ModeBurst, burst: 4, pairs: 4, button: ButtonLeft},
		{name: "burst clamped", mode: ModeBurst, burst: 0, pairs: 1, button: ButtonLeft},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			port := &recordingPort{}
			engine, _, sleeper := newTestEngine(t, DefaultEngineConfig(), port)

			engine.Trigger(context.Background(), staticProvider(ActionRecord{
				Name:        tc.name,
				Coordinates: []Point{{X: 1, Y: 1}, {X: 2, Y: 2}, {X: 3, Y: 3}},
				Mode:        tc.mode,
				BurstCount:  tc.burst,
				Button:      tc.button,
			}))

			events := port.snapshot()
			if moves := countKind(events, "move"); moves != 3 {
				t.Fatalf("moves = %d, want 3", moves)
			}
			if downs := countKind(events, "down"); downs != 3*tc.pairs {
				t.Fatalf("downs = %d, want %d", downs, 3*tc.pairs)
			}
			if ups := countKind(events, "up"); ups != 3*tc.pairs {
				t.Fatalf("ups = %d, want %d", ups, 3*tc.pairs)
			}
			for _, ev := range events {
				if ev.Kind != "move" && ev.Button != tc.button {
					t.Fatalf("unexpected button %q in %#v", ev.Button, ev)
				}
			}
			if pauses := sleeper.count(MultiClickPause); pauses != 3*(tc.pairs-1) {
				t.Fatalf("inter-click pauses = %d, want %d", pauses, 3*(tc.pairs-1))
			}
		})
	}
}

func TestTriggerStatusMessages(t *testing.T) {
	port := &recordingPort{}
	engine, observer, _ := newTestEngine(t, DefaultEngineConfig(), port)

	engine.Trigger(context.Background(), staticProvider(ActionRecord{Name: "Solo", Coordinates: []Point{{X: 5, Y: 6}}}))
	statuses := observer.statusSnapshot()
	if len(statuses) != 2 || statuses[0] != "Executing: Solo" || statuses[1] != "Done: Solo (1 clicks)" {
		t.Fatalf("statuses = %#v", statuses)
	}

	observer.mu.Lock()
	observer.statuses = nil
	observer.mu.Unlock()

	engine.Trigger(context.Background(), staticProvider(ActionRecord{
		Name:        "Multi",
		Coordinates: []Point{{X: 1, Y: 2}, {X: 3, Y: 4}},
		DelayMs:     100,
	}))
	statuses = observer.statusSnapshot()
	want := []string{
		"Multi: 2 clicks, 100ms delay",
		"Multi: Click 1/2 @ 1,2",
		"Multi: ⏱ 100ms → Click 2/2",
		"Multi: Click 2/2 @ 3,4",
		"Done: Multi (2 clicks)",
	}
	if strings.Join(statuses, "|") != strings.Join(want, "|") {
		t.Fatalf("statuses = %#v, want %#v", statuses, want)
	}
}

func TestTriggerCountdownUsesSlices(t *testing.T) {
	port := &recordingPort{}
	engine, observer, sleeper := newTestEngine(t, DefaultEngineConfig(), port)

	engine.Trigger(context.Background(), staticProvider(ActionRecord{
		Name:        "Slow",
		Coordinates: []Point{{X: 0, Y: 0}, {X: 1, Y: 1}},
		DelayMs:     1500,
	}))

	if total := sleeper.total(MultiClickPause); total != 1500*time.Millisecond {
		t.Fatalf("total wait = %v, want 1.5s", total)
	}
	if slices := sleeper.count(WaitSlice); slices != 15 {
		t.Fatalf("slices = %d, want 15", slices)
	}

	statuses := observer.statusSnapshot()
	joined := strings.Join(statuses, "\n")
	if !strings.Contains(joined, "Slow: ⏱ 1.5s → Click 2/2") {
		t.Fatalf("missing 1.5s countdown in %q", joined)
	}
	if !strings.Contains(joined, "Slow: ⏱ 900ms → Click 2/2") {
		t.Fatalf("missing millisecond countdown in %q", joined)
	}
}

func TestTriggerWaitsRealDelay(t *testing.T) {
	port := &recordingPort{}
	observer := &recordingObserver{}
	engine, err := NewEngine(DefaultEngineConfig(), port, observer, noopLogger{})
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	defer engine.Close()

	start := time.Now()
	engine.Trigger(context.Background(), staticProvider(ActionRecord{
		Name:        "Timed",
		Coordinates: []Point{{X: 0, Y: 0}, {X: 1, Y: 1}},
		DelayMs:     250,
	}))
	elapsed := time.Since(start)
	if elapsed < 240*time.Millisecond {
		t.Fatalf("session finished after %v, want at least the 250ms delay", elapsed)
	}
	if elapsed > 2*time.Second {
		t.Fatalf("session took too long: %v", elapsed)
	}
}

func TestCancelOnMoveSkipsRemainingSteps(t *testing.T) {
	// Queries: 1 start reference, 2 step-1 check, 3 post-click recapture, 4 step-2 check.
	port := &recordingPort{nudgeAtQuery: 4}
	cfg := DefaultEngineConfig()
	cfg.CancelOnMove = true
	engine, observer, _ := newTestEngine(t, cfg, port)

	engine.Trigger(context.Background(), staticProvider(ActionRecord{
		Name:        "Guarded",
		Coordinates: []Point{{X: 100, Y: 100}, {X: 200, Y: 200}, {X: 300, Y: 300}},
	}))

	events := port.snapshot()
	if downs := countKind(events, "down"); downs != 1 {
		t.Fatalf("downs = %d, want 1 (later steps must be skipped)", downs)
	}
	if len(observer.clicks) != 1 {
		t.Fatalf("click indicators after cancel: %#v", observer.clicks)
	}
	if status := observer.lastStatus(); !strings.Contains(status, "Cancelled: mouse moved") {
		t.Fatalf("last status = %q", status)
	}
	for _, status := range observer.statusSnapshot() {
		if strings.HasPrefix(status, "Done:") {
			t.Fatalf("unexpected completion status %q", status)
		}
	}
	starts, ends := observer.bracketCounts()
	if starts != 1 || ends != 1 {
		t.Fatalf("start/end = %d/%d, want 1/1", starts, ends)
	}
}

func TestCancelOnMoveDuringWait(t *testing.T) {
	// Queries: 1 start, 2 step-1 check, 3 recapture, 4 first slice, 5 second slice.
	port := &recordingPort{nudgeAtQuery: 5}
	cfg := DefaultEngineConfig()
	cfg.CancelOnMove = true
	engine, observer, sleeper := newTestEngine(t, cfg, port)

	engine.Trigger(context.Background(), staticProvider(ActionRecord{
		Name:        "Wait",
		Coordinates: []Point{{X: 10, Y: 10}, {X: 20, Y: 20}},
		DelayMs:     1000,
	}))

	if downs := countKind(port.snapshot(), "down"); downs != 1 {
		t.Fatalf("downs = %d, want 1", downs)
	}
	if slices := sleeper.count(WaitSlice); slices != 1 {
		t.Fatalf("slices = %d, want 1 before cancellation", slices)
	}
	if status := observer.lastStatus(); !strings.Contains(status, "Cancelled: mouse moved") {
		t.Fatalf("last status = %q", status)
	}
	if _, ends := observer.bracketCounts(); ends != 1 {
		t.Fatalf("ExecutionEnded calls = %d, want 1", ends)
	}
}

func TestOwnCursorMovesDoNotCancel(t *testing.T) {
	port := &recordingPort{}
	cfg := DefaultEngineConfig()
	cfg.CancelOnMove = true
	engine, observer, _ := newTestEngine(t, cfg, port)

	provider := func() ActionRecord {
		port.mu.Lock()
		port.pos = Point{X: 500, Y: 500}
		port.mu.Unlock()
		return ActionRecord{Name: "Drift", Coordinates: []Point{{X: 1, Y: 1}, {X: 2, Y: 2}}}
	}
	engine.Trigger(context.Background(), provider)

	if status := observer.lastStatus(); status != "Done: Drift (2 clicks)" {
		t.Fatalf("last status = %q", status)
	}
}

func TestCancelOnMoveDisabledNeverQueriesCursor(t *testing.T) {
	port := &recordingPort{nudgeAtQuery: 1}
	engine, observer, _ := newTestEngine(t, DefaultEngineConfig(), port)

	engine.Trigger(context.Background(), staticProvider(ActionRecord{
		Name:        "Free",
		Coordinates: []Point{{X: 1, Y: 1}, {X: 2, Y: 2}},
	}))

	if n := port.queryCount(); n != 0 {
		t.Fatalf("cursor queried %d times with cancel-on-move disabled", n)
	}
	if status := observer.lastStatus(); status != "Done: Free (2 clicks)" {
		t.Fatalf("last status = %q", status)
	}
}

func TestClickFailureContinuesWithNextStep(t *testing.T) {
	port := &recordingPort{failMoveTo: map[Point]error{{X: 1, Y: 1}: errors.New("access denied")}}
	engine, observer, _ := newTestEngine(t, DefaultEngineConfig(), port)

	engine.Trigger(context.Background(), staticProvider(ActionRecord{
		Name:        "Flaky",
		Coordinates: []Point{{X: 1, Y: 1}, {X: 2, Y: 2}},
	}))

	events := port.snapshot()
	if countKind(events, "down") != 1 || events[0] != (portEvent{Kind: "move", X: 2, Y: 2}) {
		t.Fatalf("events = %#v, want only the second step", events)
	}
	statuses := strings.Join(observer.statusSnapshot(), "\n")
	if !strings.Contains(statuses, "Flaky: click 1/2 failed") {
		t.Fatalf("missing failure status in %q", statuses)
	}
	if status := observer.lastStatus(); status != "Done: Flaky (2 clicks)" {
		t.Fatalf("last status = %q", status)
	}
}

func TestFailedButtonUpIsRetried(t *testing.T) {
	port := &recordingPort{failUps: 1}
	engine, observer, _ := newTestEngine(t, DefaultEngineConfig(), port)

	engine.Trigger(context.Background(), staticProvider(ActionRecord{
		Name:        "Sticky",
		Coordinates: []Point{{X: 1, Y: 1}, {X: 2, Y: 2}},
	}))

	want := []portEvent{
		{Kind: "move", X: 1, Y: 1},
		{Kind: "down", Button: ButtonLeft},
		{Kind: "up", Button: ButtonLeft},
		{Kind: "move", X: 2, Y: 2},
		{Kind: "down", Button: ButtonLeft},
		{Kind: "up", Button: ButtonLeft},
	}
	if got := port.snapshot(); !reflect.DeepEqual(got, want) {
		t.Fatalf("events = %#v, want %#v", got, want)
	}
	if port.upCalls != 3 {
		t.Fatalf("ButtonUp calls = %d, want 3", port.upCalls)
	}
	statuses := strings.Join(observer.statusSnapshot(), "\n")
	if !strings.Contains(statuses, "Sticky: click 1/2 failed") {
		t.Fatalf("missing failure status in %q", statuses)
	}
}

func TestTriggerReadsProviderEveryTime(t *testing.T) {
	port := &recordingPort{}
	engine, _, _ := newTestEngine(t, DefaultEngineConfig(), port)

	calls := 0
	record := ActionRecord{Name: "Live", Coordinates: []Point{{X: 1, Y: 1}}}
	provider := func() ActionRecord {
		calls++
		return record
	}

	engine.Trigger(context.Background(), provider)
	record.Coordinates = []Point{{X: 9, Y: 9}}
	engine.Trigger(context.Background(), provider)

	if calls != 2 {
		t.Fatalf("provider calls = %d, want 2", calls)
	}
	events := port.snapshot()
	if last := events[len(events)-3]; last != (portEvent{Kind: "move", X: 9, Y: 9}) {
		t.Fatalf("second trigger did not use fresh coordinates: %#v", events)
	}
}

func TestTriggerFallsBackToOrigin(t *testing.T) {
	port := &recordingPort{}
	engine, observer, _ := newTestEngine(t, DefaultEngineConfig(), port)

	engine.Trigger(context.Background(), staticProvider(ActionRecord{Name: "Empty"}))

	events := port.snapshot()
	if len(events) != 3 || events[0] != (portEvent{Kind: "move", X: 0, Y: 0}) {
		t.Fatalf("events = %#v", events)
	}
	if status := observer.lastStatus(); status != "Done: Empty (1 clicks)" {
		t.Fatalf("last status = %q", status)
	}
}

func TestLegacyRecordPerformsOneClick(t *testing.T) {
	record, err := DecodeRecord([]byte(`{"name":"Legacy","coords":[],"x":5,"y":7}`))
	if err != nil {
		t.Fatalf("DecodeRecord() error = %v", err)
	}

	port := &recordingPort{}
	engine, _, _ := newTestEngine(t, DefaultEngineConfig(), port)
	engine.Trigger(context.Background(), staticProvider(record))

	events := port.snapshot()
	if countKind(events, "down") != 1 || events[0] != (portEvent{Kind: "move", X: 5, Y: 7}) {
		t.Fatalf("events = %#v, want one click at 5,7", events)
	}
}

func TestCloseCancelsRunningSession(t *testing.T) {
	port := &recordingPort{}
	observer := &recordingObserver{}
	engine, err := NewEngine(DefaultEngineConfig(), port, observer, noopLogger{})
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		engine.Trigger(context.Background(), staticProvider(ActionRecord{
			Name:        "Long",
			Coordinates: []Point{{X: 1, Y: 1}, {X: 2, Y: 2}},
			DelayMs:     10000,
		}))
	}()

	deadline := time.Now().Add(time.Second)
	for countKind(port.snapshot(), "up") == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if engine.Running() != 1 {
		t.Fatalf("Running() = %d, want 1", engine.Running())
	}
	engine.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("session did not stop after Close")
	}

	if countKind(port.snapshot(), "down") != 1 {
		t.Fatalf("second step ran after Close")
	}
	if status := observer.lastStatus(); status != "Cancelled: execution stopped" {
		t.Fatalf("last status = %q", status)
	}
	starts, ends := observer.bracketCounts()
	if starts != 1 || ends != 1 {
		t.Fatalf("start/end = %d/%d, want 1/1", starts, ends)
	}

	engine.Trigger(context.Background(), staticProvider(ActionRecord{Name: "After"}))
	if starts, _ := observer.bracketCounts(); starts != 1 {
		t.Fatalf("trigger after Close started a session")
	}
}

func TestTriggerContextCancellation(t *testing.T) {
	port := &recordingPort{}
	engine, observer, _ := newTestEngine(t, DefaultEngineConfig(), port)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	engine.Trigger(ctx, staticProvider(ActionRecord{Name: "Gone", Coordinates: []Point{{X: 1, Y: 1}}}))

	if downs := countKind(port.snapshot(), "down"); downs != 0 {
		t.Fatalf("downs = %d, want 0 for a cancelled context", downs)
	}
	starts, ends := observer.bracketCounts()
	if starts != 1 || ends != 1 {
		t.Fatalf("start/end = %d/%d, want 1/1", starts, ends)
	}
}

func TestSetCancelOnMove(t *testing.T) {
	engine, _, _ := newTestEngine(t, DefaultEngineConfig(), &recordingPort{})
	if engine.CancelOnMove() {
		t.Fatalf("cancel-on-move should default to off")
	}
	engine.SetCancelOnMove(true)
	if !engine.CancelOnMove() {
		t.Fatalf("SetCancelOnMove(true) not applied")
	}
}

func TestNewEngineRejectsNilCollaborators(t *testing.T) {
	if _, err := NewEngine(DefaultEngineConfig(), nil, &recordingObserver{}, noopLogger{}); err == nil {
		t.Fatalf("expected error for nil input port")
	}
	if _, err := NewEngine(DefaultEngineConfig(), &recordingPort{}, nil, noopLogger{}); err == nil {
		t.Fatalf("expected error for nil observer")
	}
	if _, err := NewEngine(DefaultEngineConfig(), &recordingPort{}, &recordingObserver{}, nil); err == nil {
		t.Fatalf("expected error for nil logger")
	}
}

func TestFormatRemaining(t *testing.T) {
	tests := []struct {
		ms   int
		want string
	}{
		{ms: 1500, want: "1.5s"},
		{ms: 1000, want: "1.0s"},
		{ms: 999, want: "999ms"},
		{ms: 100, want: "100ms"},
		{ms: 12345, want: "12.3s"},
	}
	for _, tc := range tests {
		if got := FormatRemaining(tc.ms); got != tc.want {
			t.Fatalf("FormatRemaining(%d) = %q, want %q", tc.ms, got, tc.want)
		}
	}
}
