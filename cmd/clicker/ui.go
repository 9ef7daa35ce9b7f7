package main

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/msyamsudin/S-Trade-Executor/internal/app"
	"github.com/msyamsudin/S-Trade-Executor/internal/core/macro"
	"github.com/msyamsudin/S-Trade-Executor/internal/store"
)

const (
	maxUILogLines = 50
	editDebounce  = 400 * time.Millisecond
)

// debouncer delays an edit until typing pauses. Pending edits are flushed before any
// change that shifts action or coordinate indexes.
type debouncer struct {
	mu      sync.Mutex
	timer   *time.Timer
	pending func()
}

func (d *debouncer) run(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.pending = fn
	d.timer = time.AfterFunc(editDebounce, func() {
		fyne.Do(d.flush)
	})
}

func (d *debouncer) flush() {
	d.mu.Lock()
	fn := d.pending
	d.pending = nil
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.mu.Unlock()
	if fn != nil {
		fn()
	}
}

type editor struct {
	window fyne.Window
	fApp   fyne.App
	cfg    config
	ctx    context.Context

	sess      *session
	edits     []*debouncer
	previewAt int
	preview   []macro.Point
	running   int

	statusLabel    *widget.Label
	lastClickLabel *widget.Label
	errorText      *canvas.Text
	runProgress    *widget.ProgressBarInfinite
	initProgress   *widget.ProgressBarInfinite
	pauseBtn       *widget.Button
	cancelMoveChk  *widget.Check
	themeSelect    *widget.Select
	addBtn         *widget.Button
	cards          *fyne.Container
	logGrid        *widget.TextGrid
	logScroll      *container.Scroll

	logMu    sync.Mutex
	logLines []string
}

func runUI(cfg config) error {
	fApp := fyneapp.New()
	fApp.Settings().SetTheme(newClickerTheme(themeDark))

	window := fApp.NewWindow("S-Trade Executor")
	window.Resize(fyne.NewSize(860, 680))
	window.CenterOnScreen()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ed := &editor{
		window:    window,
		fApp:      fApp,
		cfg:       cfg,
		ctx:       ctx,
		previewAt: -1,
		logLines:  make([]string, 0, maxUILogLines),
	}
	rootContent := ed.build()

	var closeOnce sync.Once
	cleanup := func() {
		closeOnce.Do(func() {
			ed.flushEdits()
			cancel()
			if ed.sess != nil {
				ed.sess.Close()
			}
		})
	}

	requestQuit := func() {
		fyne.Do(func() {
			cleanup()
			if currentApp := fyne.CurrentApp(); currentApp != nil {
				currentApp.Quit()
				return
			}
			window.SetCloseIntercept(nil)
			window.Close()
		})
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			requestQuit()
		case <-ctx.Done():
		}
	}()

	// Some GUI backends can leave Ctrl+C as raw ETX byte instead of SIGINT.
	go func() {
		buf := make([]byte, 1)
		for {
			n, err := os.Stdin.Read(buf)
			if err != nil {
				return
			}
			if n == 1 && buf[0] == 3 {
				requestQuit()
				return
			}
		}
	}()

	window.SetCloseIntercept(func() {
		cleanup()
		if currentApp := fyne.CurrentApp(); currentApp != nil {
			currentApp.Quit()
			return
		}
		window.SetCloseIntercept(nil)
		window.Close()
	})

	ed.start()

	window.SetContent(rootContent)
	window.ShowAndRun()
	cleanup()
	return nil
}

func (ed *editor) build() fyne.CanvasObject {
	titleText := canvas.NewText("S-TRADE EXECUTOR", color.NRGBA{R: 0x4f, G: 0xc0, B: 0x8d, A: 0xff})
	titleText.TextStyle = fyne.TextStyle{Bold: true}
	titleText.TextSize = 24

	accentLine := canvas.NewRectangle(color.NRGBA{R: 0x2e, G: 0xa0, B: 0x6f, A: 0xff})
	accentLine.SetMinSize(fyne.NewSize(220, 3))

	ed.statusLabel = widget.NewLabel("Starting...")
	ed.statusLabel.TextStyle = fyne.TextStyle{Bold: true}
	ed.statusLabel.Wrapping = fyne.TextTruncate
	ed.lastClickLabel = widget.NewLabel("Last click: -")

	ed.errorText = canvas.NewText("", theme.Color(theme.ColorNameError))

	ed.runProgress = widget.NewProgressBarInfinite()
	ed.runProgress.Hide()
	ed.initProgress = widget.NewProgressBarInfinite()

	ed.pauseBtn = widget.NewButton("Pause", ed.togglePause)
	ed.pauseBtn.Importance = widget.HighImportance

	ed.cancelMoveChk = widget.NewCheck("Cancel on mouse move", nil)

	ed.themeSelect = widget.NewSelect([]string{themeDark, themeLight}, nil)
	ed.themeSelect.SetSelected(themeDark)

	ed.addBtn = widget.NewButtonWithIcon("Add Action", theme.ContentAddIcon(), ed.addAction)

	for _, w := range []fyne.Disableable{ed.pauseBtn, ed.cancelMoveChk, ed.themeSelect, ed.addBtn} {
		w.Disable()
	}

	header := container.NewVBox(
		container.NewBorder(nil, nil, titleText, container.NewHBox(ed.themeSelect, ed.addBtn)),
		accentLine,
		container.NewBorder(nil, nil, nil, container.NewHBox(ed.cancelMoveChk, ed.pauseBtn), ed.statusLabel),
		ed.lastClickLabel,
		ed.errorText,
		ed.initProgress,
		ed.runProgress,
	)

	ed.cards = container.NewVBox()
	body := container.NewBorder(header, nil, nil, nil, container.NewVScroll(ed.cards))
	mainPanel := container.NewPadded(body)

	if !debugLogsEnabled() {
		return mainPanel
	}
	ed.logGrid = widget.NewTextGrid()
	ed.logScroll = container.NewVScroll(ed.logGrid)
	ed.logScroll.SetMinSize(fyne.NewSize(0, 120))
	split := container.NewVSplit(mainPanel, widget.NewCard("Logs", "", ed.logScroll))
	split.SetOffset(0.78)
	return split
}

// start opens the session off the UI goroutine; backends may block while connecting.
func (ed *editor) start() {
	ed.appendLogLine("INFO Initializing input backend...")
	go func() {
		logger := newSlogLogger(ed.cfg.logLevel, ed.appendLogLine)
		observer := macro.ObserverFuncs{
			OnStatus: ed.setStatus,
			OnClick: func(x, y int) {
				fyne.Do(func() { ed.lastClickLabel.SetText(fmt.Sprintf("Last click: %d,%d", x, y)) })
			},
			OnStart: func() { fyne.Do(func() { ed.adjustRunning(1) }) },
			OnEnd:   func() { fyne.Do(func() { ed.adjustRunning(-1) }) },
		}

		sess, err := startSession(ed.cfg, logger, observer, ed.setStatus)
		if err == nil && ed.ctx.Err() != nil {
			// The window closed while the backend was opening.
			sess.Close()
			return
		}
		fyne.Do(func() {
			ed.initProgress.Hide()
			if err != nil {
				ed.showError(err)
				ed.statusLabel.SetText("Backend unavailable")
				return
			}
			ed.sess = sess
			ed.onSessionReady()
		})
		if err != nil {
			return
		}

		if werr := sess.store.Watch(ed.ctx, 0, logger, func() {
			ed.setStatus("Config changed on disk, reloading")
			fyne.DoAndWait(ed.flushEdits)
			sess.controller.Load()
			fyne.Do(func() {
				ed.previewAt = -1
				ed.preview = nil
				ed.reload()
			})
		}); werr != nil {
			logger.Warn("Config watcher stopped", "path", sess.store.Path(), "err", werr)
		}
	}()
}

func (ed *editor) onSessionReady() {
	st := ed.sess.store
	if ed.sess.loadWarning != "" {
		ed.showError(errors.New(ed.sess.loadWarning))
		ed.appendLogLine("WARNING " + ed.sess.loadWarning)
	}

	themeName := st.String(store.KeyTheme, themeDark)
	ed.fApp.Settings().SetTheme(newClickerTheme(themeName))
	if strings.EqualFold(themeName, themeLight) {
		ed.themeSelect.SetSelected(themeLight)
	}
	ed.themeSelect.OnChanged = func(name string) {
		ed.fApp.Settings().SetTheme(newClickerTheme(name))
		if err := st.Set(store.KeyTheme, name); err != nil {
			ed.showError(err)
		}
	}

	ed.cancelMoveChk.SetChecked(ed.sess.controller.CancelOnMove())
	ed.cancelMoveChk.OnChanged = func(enabled bool) {
		if err := ed.sess.controller.SetCancelOnMove(enabled); err != nil {
			ed.showError(err)
		}
	}

	for _, w := range []fyne.Disableable{ed.pauseBtn, ed.cancelMoveChk, ed.themeSelect, ed.addBtn} {
		w.Enable()
	}
	ed.appendLogLine("INFO Initialization complete")
	ed.reload()
	ed.statusLabel.SetText(ed.sess.controller.StateLine())
}

// reload rebuilds every action card from the controller.
func (ed *editor) reload() {
	if ed.sess == nil {
		return
	}
	ed.flushEdits()
	ed.edits = nil

	actions := ed.sess.controller.Actions()
	if ed.previewAt >= len(actions) {
		ed.previewAt = -1
		ed.preview = nil
	}
	objects := make([]fyne.CanvasObject, 0, len(actions)+1)
	for i, record := range actions {
		objects = append(objects, ed.actionCard(i, record))
	}
	if len(actions) == 0 {
		objects = append(objects, widget.NewLabel("No actions yet. Use Add Action to create one."))
	}
	ed.cards.Objects = objects
	ed.cards.Refresh()
}

func (ed *editor) actionCard(index int, record macro.ActionRecord) fyne.CanvasObject {
	ctrl := ed.sess.controller

	nameEdit := ed.newEdit()
	nameEntry := widget.NewEntry()
	nameEntry.SetText(record.Name)
	nameEntry.OnChanged = func(text string) {
		nameEdit.run(func() {
			ed.report(ctrl.Update(index, func(r *macro.ActionRecord) { r.Name = strings.TrimSpace(text) }))
		})
	}

	enabledChk := widget.NewCheck("Enabled", nil)
	enabledChk.SetChecked(record.Enabled)
	enabledChk.OnChanged = func(enabled bool) {
		ed.report(ctrl.SetEnabled(index, enabled))
	}

	hotkeyEntry := widget.NewEntry()
	hotkeyEntry.SetPlaceHolder("ctrl+shift+f1")
	hotkeyBtn := widget.NewButtonWithIcon(hotkeyLabel(record.Hotkey), theme.MediaRecordIcon(), nil)
	hotkeyBtn.OnTapped = func() {
		ed.flushEdits()
		hotkeyBtn.SetText("Press...")
		hotkeyBtn.Disable()
		go func() {
			hotkey, err := ctrl.CaptureHotkey(ed.ctx, index, 0)
			fyne.Do(func() {
				hotkeyBtn.Enable()
				if err != nil {
					hotkeyBtn.SetText(hotkeyLabel(record.Hotkey))
					ed.showError(err)
					return
				}
				ed.reload()
				ed.setStatus(fmt.Sprintf("Bound %s", hotkey))
			})
		}()
	}
	hotkeyEntry.OnSubmitted = func(text string) {
		if err := ctrl.BindHotkey(index, text); err != nil {
			ed.showError(err)
			return
		}
		ed.reload()
	}

	burstEdit := ed.newEdit()
	burstEntry := widget.NewEntry()
	burstEntry.SetText(strconv.Itoa(record.BurstCount))
	burstEntry.OnChanged = func(text string) {
		burstEdit.run(func() {
			n, err := strconv.Atoi(strings.TrimSpace(text))
			if err != nil || n < 1 {
				ed.showError(fmt.Errorf("burst count must be a whole number of at least 1"))
				return
			}
			ed.report(ctrl.Update(index, func(r *macro.ActionRecord) { r.BurstCount = n }))
		})
	}
	if record.Mode != macro.ModeBurst {
		burstEntry.Disable()
	}

	modeSelect := widget.NewSelect([]string{string(macro.ModeSingle), string(macro.ModeDouble), string(macro.ModeBurst)}, nil)
	modeSelect.SetSelected(string(record.Mode))
	modeSelect.OnChanged = func(value string) {
		mode := macro.ParseClickMode(value)
		if mode == macro.ModeBurst {
			burstEntry.Enable()
		} else {
			burstEntry.Disable()
		}
		ed.report(ctrl.Update(index, func(r *macro.ActionRecord) { r.Mode = mode }))
	}

	delayEdit := ed.newEdit()
	delayEntry := widget.NewEntry()
	delayEntry.SetText(strconv.Itoa(record.DelayMs))
	delayEntry.OnChanged = func(text string) {
		delayEdit.run(func() {
			ms, err := strconv.Atoi(strings.TrimSpace(text))
			if err != nil || ms < 0 {
				ed.showError(fmt.Errorf("delay must be a whole number of milliseconds"))
				return
			}
			ed.report(ctrl.Update(index, func(r *macro.ActionRecord) { r.DelayMs = ms }))
		})
	}

	buttonSelect := widget.NewSelect([]string{string(macro.ButtonLeft), string(macro.ButtonRight)}, nil)
	buttonSelect.SetSelected(string(record.Button))
	buttonSelect.OnChanged = func(value string) {
		button := macro.ParseButton(value)
		ed.report(ctrl.Update(index, func(r *macro.ActionRecord) { r.Button = button }))
	}

	settings := widget.NewForm(
		widget.NewFormItem("Name", nameEntry),
		widget.NewFormItem("Hotkey", container.NewGridWithColumns(2, hotkeyBtn, hotkeyEntry)),
		widget.NewFormItem("Mode", container.NewGridWithColumns(2, modeSelect, burstEntry)),
		widget.NewFormItem("Delay (ms)", delayEntry),
		widget.NewFormItem("Button", buttonSelect),
	)

	coordRows := container.NewVBox()
	for j, p := range record.Coordinates {
		coordRows.Add(ed.coordinateRow(index, j, p, len(record.Coordinates) > 1))
	}
	addCoordBtn := widget.NewButtonWithIcon("Add coordinate", theme.ContentAddIcon(), func() {
		ed.flushEdits()
		ed.report(ctrl.AddCoordinate(index))
		ed.reload()
	})

	testLabel := "Test"
	if ed.previewAt == index {
		testLabel = "Clear test"
	}
	testBtn := widget.NewButtonWithIcon(testLabel, theme.VisibilityIcon(), func() {
		ed.flushEdits()
		coords, err := ctrl.Test(index)
		if err != nil {
			ed.showError(err)
			return
		}
		if coords == nil {
			ed.previewAt = -1
		} else {
			ed.previewAt = index
		}
		ed.preview = coords
		ed.reload()
	})
	deleteBtn := widget.NewButtonWithIcon("Delete", theme.DeleteIcon(), func() {
		dialog.ShowConfirm("Delete action", fmt.Sprintf("Delete %q?", record.Name), func(ok bool) {
			if !ok {
				return
			}
			ed.flushEdits()
			ed.report(ctrl.Remove(index))
			switch {
			case ed.previewAt == index:
				ed.previewAt = -1
				ed.preview = nil
			case ed.previewAt > index:
				ed.previewAt--
			}
			ed.reload()
		}, ed.window)
	})
	deleteBtn.Importance = widget.DangerImportance

	content := container.NewVBox(
		settings,
		widget.NewLabelWithStyle("Targets", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		coordRows,
	)
	if ed.previewAt == index && len(ed.preview) > 0 {
		content.Add(widget.NewLabel(previewText(ed.preview)))
	}
	content.Add(container.NewHBox(addCoordBtn, testBtn, deleteBtn))

	subtitle := fmt.Sprintf("%s · %d click(s) x %d target(s)", hotkeyLabel(record.Hotkey), record.ClicksPerStep(), len(record.Coordinates))
	return widget.NewCard("", subtitle, container.NewBorder(nil, nil, nil, enabledChk, content))
}

func (ed *editor) coordinateRow(index, coord int, p macro.Point, removable bool) fyne.CanvasObject {
	ctrl := ed.sess.controller

	xEntry := widget.NewEntry()
	xEntry.SetText(strconv.Itoa(p.X))
	yEntry := widget.NewEntry()
	yEntry.SetText(strconv.Itoa(p.Y))

	edit := ed.newEdit()
	onChanged := func(string) {
		edit.run(func() {
			x, errX := strconv.Atoi(strings.TrimSpace(xEntry.Text))
			y, errY := strconv.Atoi(strings.TrimSpace(yEntry.Text))
			if errX != nil || errY != nil {
				ed.showError(fmt.Errorf("coordinates must be whole numbers"))
				return
			}
			ed.report(ctrl.SetCoordinate(index, coord, macro.Point{X: x, Y: y}))
		})
	}
	xEntry.OnChanged = onChanged
	yEntry.OnChanged = onChanged

	pickBtn := widget.NewButtonWithIcon("Pick", theme.SearchIcon(), nil)
	pickBtn.OnTapped = func() {
		ed.flushEdits()
		pickBtn.Disable()
		go func() {
			_, err := ctrl.Pick(ed.ctx, index, coord)
			fyne.Do(func() {
				pickBtn.Enable()
				if err != nil {
					ed.showError(err)
					return
				}
				ed.reload()
			})
		}()
	}

	removeBtn := widget.NewButtonWithIcon("", theme.ContentRemoveIcon(), func() {
		ed.flushEdits()
		ed.report(ctrl.RemoveCoordinate(index, coord))
		ed.reload()
	})
	if !removable {
		removeBtn.Disable()
	}

	label := widget.NewLabel(fmt.Sprintf("#%d", coord+1))
	fields := container.NewGridWithColumns(2, xEntry, yEntry)
	return container.NewBorder(nil, nil, label, container.NewHBox(pickBtn, removeBtn), fields)
}

func (ed *editor) addAction() {
	if ed.sess == nil {
		return
	}
	ed.flushEdits()
	ctrl := ed.sess.controller
	index, err := ctrl.Add(app.NewAction())
	if err != nil {
		ed.showError(err)
	}
	ed.reload()
	if err != nil || ed.sess.backend.capturer == nil {
		return
	}

	// Guided setup: press the hotkey, then middle-click the first target.
	ed.addBtn.Disable()
	go func() {
		setupErr := ctrl.Setup(ed.ctx, index)
		fyne.Do(func() {
			ed.addBtn.Enable()
			if setupErr != nil {
				ed.showError(setupErr)
			}
			ed.reload()
		})
	}()
}

func (ed *editor) togglePause() {
	if ed.sess == nil {
		return
	}
	if ed.sess.controller.TogglePause() {
		ed.pauseBtn.SetText("Resume")
	} else {
		ed.pauseBtn.SetText("Pause")
	}
}

func (ed *editor) newEdit() *debouncer {
	d := &debouncer{}
	ed.edits = append(ed.edits, d)
	return d
}

func (ed *editor) flushEdits() {
	for _, d := range ed.edits {
		d.flush()
	}
}

func (ed *editor) adjustRunning(delta int) {
	ed.running += delta
	if ed.running < 0 {
		ed.running = 0
	}
	if ed.running > 0 {
		ed.runProgress.Show()
		return
	}
	ed.runProgress.Hide()
}

func (ed *editor) setStatus(message string) {
	fyne.Do(func() {
		ed.statusLabel.SetText(message)
	})
}

// report shows err in the error line; a nil err clears it.
func (ed *editor) report(err error) {
	if err != nil {
		ed.showError(err)
		return
	}
	if ed.errorText.Text != "" {
		ed.errorText.Text = ""
		ed.errorText.Refresh()
	}
}

func (ed *editor) showError(err error) {
	text := err.Error()
	switch {
	case isPermissionError(err):
		text = permissionDeniedHint()
	case errors.Is(err, syscall.EBUSY) || strings.Contains(strings.ToLower(text), "device or resource busy"):
		text = "Input device is in use by another app. Close the other app and try again."
	}
	ed.errorText.Text = firstLine(text)
	ed.errorText.Refresh()
	ed.appendLogLine("ERROR " + text)
}

func (ed *editor) appendLogLine(line string) {
	if !debugLogsEnabled() {
		return
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}

	ed.logMu.Lock()
	ed.logLines = append(ed.logLines, line)
	if len(ed.logLines) > maxUILogLines {
		ed.logLines = ed.logLines[len(ed.logLines)-maxUILogLines:]
	}
	logText := strings.Join(ed.logLines, "\n")
	ed.logMu.Unlock()

	fyne.Do(func() {
		if ed.logGrid == nil {
			return
		}
		ed.logGrid.SetText(logText)
		ed.logScroll.ScrollToBottom()
	})
}

func hotkeyLabel(hotkey string) string {
	hotkey = strings.TrimSpace(hotkey)
	if hotkey == "" || hotkey == "None" {
		return app.PlaceholderKey
	}
	return hotkey
}

func previewText(coords []macro.Point) string {
	parts := make([]string, 0, len(coords))
	for i, p := range coords {
		parts = append(parts, fmt.Sprintf("#%d → %d,%d", i+1, p.X, p.Y))
	}
	return "Testing: " + strings.Join(parts, "   ")
}

func firstLine(text string) string {
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		return text[:i]
	}
	return text
}
