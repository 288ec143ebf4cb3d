// Package tui is a terminal front end for one workspace.
package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"c4arch/assistant"
	"c4arch/canvas"
	"c4arch/diagram"
	"c4arch/editor"
	"c4arch/workspace"
)

// HelpLine lists the key bindings shown when nothing else is reported.
const HelpLine = "a add  c connect  enter click  d delete  u/r undo/redo  R reset  g generate  m message  q quit"

var (
	styleHeader   = tcell.StyleDefault.Reverse(true)
	styleTitle    = tcell.StyleDefault.Bold(true)
	styleCursor   = tcell.StyleDefault.Reverse(true)
	styleSelected = tcell.StyleDefault.Foreground(tcell.ColorYellow)
	styleError    = tcell.StyleDefault.Foreground(tcell.ColorRed)
	styleDim      = tcell.StyleDefault.Foreground(tcell.ColorGray)
)

// App owns the screen and the event loop.
type App struct {
	screen tcell.Screen
	ws     *workspace.Workspace
	logger *slog.Logger
	ctx    context.Context

	cursor int
	prompt *prompt
	status string
	failed bool

	wg sync.WaitGroup
}

// prompt is a one-line text input at the bottom of the screen.
type prompt struct {
	label  string
	buf    []rune
	submit func(string)
}

// Option configures an App.
type Option func(*App)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *App) {
		if l != nil {
			a.logger = l
		}
	}
}

// New creates an app drawing ws on screen. The screen must be initialised.
func New(screen tcell.Screen, ws *workspace.Workspace, opts ...Option) *App {
	a := &App{
		screen: screen,
		ws:     ws,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		ctx:    context.Background(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Notifier returns a workspace update hook that wakes the event loop.
func Notifier(screen tcell.Screen) func() {
	return func() {
		ev := &redraw{}
		ev.SetEventNow()
		_ = screen.PostEvent(ev)
	}
}

type redraw struct {
	tcell.EventTime
}

// remoteDone reports a finished background call.
type remoteDone struct {
	tcell.EventTime
	operation string
	err       error
}

// Run draws and handles events until q is pressed or ctx is done.
// Remote calls still in flight are cancelled and waited for before it returns.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	a.ctx = ctx
	stop := context.AfterFunc(ctx, func() {
		_ = a.screen.PostEvent(tcell.NewEventInterrupt(nil))
	})
	defer func() {
		stop()
		cancel()
		a.wg.Wait()
	}()

	for {
		a.draw()
		a.screen.Show()

		ev := a.screen.PollEvent()
		if ev == nil {
			return nil
		}
		if a.handleEvent(ev) {
			return nil
		}
	}
}

// handleEvent applies one event and reports whether the loop should end.
func (a *App) handleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		a.screen.Sync()
	case *tcell.EventKey:
		return a.handleKey(ev)
	case *tcell.EventInterrupt:
		return a.ctx.Err() != nil
	case *remoteDone:
		a.finish(ev)
	}
	return false
}

func (a *App) handleKey(ev *tcell.EventKey) bool {
	if a.prompt != nil {
		a.handlePromptKey(ev)
		return false
	}

	switch ev.Key() {
	case tcell.KeyCtrlC:
		return true
	case tcell.KeyUp:
		a.moveCursor(-1)
	case tcell.KeyDown:
		a.moveCursor(1)
	case tcell.KeyEnter:
		if id := a.current(); id != "" {
			a.dispatch(editor.ClickEntity{ID: id})
		}
	case tcell.KeyEscape:
		a.dispatch(editor.CancelEdit{})
		a.dispatch(editor.SetMode{Mode: editor.ModeSelect})
	case tcell.KeyRune:
		return a.handleRune(ev.Rune())
	}
	return false
}

func (a *App) handleRune(r rune) bool {
	switch r {
	case 'q':
		return true
	case 'j':
		a.moveCursor(1)
	case 'k':
		a.moveCursor(-1)
	case 'a':
		a.dispatch(editor.AddNode{})
		a.cursor = len(a.entities()) - 1
	case 'c':
		a.dispatch(editor.SetMode{Mode: editor.ModeAddConnection})
	case 'd':
		if id := a.current(); id != "" {
			a.dispatch(editor.DeleteEntity{ID: id})
			a.moveCursor(0)
		}
	case 'u':
		a.dispatch(editor.Undo{})
		a.moveCursor(0)
	case 'r':
		a.dispatch(editor.Redo{})
		a.moveCursor(0)
	case 'R':
		a.dispatch(editor.Reset{})
		a.cursor = 0
	case 'e':
		a.editLabel()
	case 'g':
		a.ask("requirements", "", func(text string) {
			a.async("generate", func(ctx context.Context) error {
				return a.ws.Generate(ctx, text)
			})
		})
	case 'm':
		a.ask("message", "", func(text string) {
			a.async("assistant", func(ctx context.Context) error {
				return a.ws.SendMessage(ctx, text)
			})
		})
	case '1', '2', '3', '4', '5':
		if len(a.ws.View().Suggestions) == 0 {
			return false
		}
		i := int(r - '1')
		a.async("assistant", func(ctx context.Context) error {
			return a.ws.SelectSuggestion(ctx, i)
		})
	}
	return false
}

// editLabel opens the label prompt for the entity in the edit dialog. In
// select mode the entity under the cursor is opened first.
func (a *App) editLabel() {
	v := a.ws.View()
	if v.Editing == "" {
		if v.Mode != editor.ModeSelect || a.current() == "" {
			return
		}
		a.dispatch(editor.ClickEntity{ID: a.current()})
		v = a.ws.View()
	}
	id := v.Editing
	e, ok := v.Snapshot.Entity(id)
	if !ok {
		return
	}
	a.ask("label", e.Label, func(label string) {
		a.dispatch(editor.UpdateLabel{ID: id, Label: label})
	})
}

func (a *App) handlePromptKey(ev *tcell.EventKey) {
	p := a.prompt
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		a.prompt = nil
	case tcell.KeyEnter:
		a.prompt = nil
		p.submit(string(p.buf))
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		if len(p.buf) > 0 {
			p.buf = p.buf[:len(p.buf)-1]
		}
	case tcell.KeyCtrlU:
		p.buf = p.buf[:0]
	case tcell.KeyRune:
		p.buf = append(p.buf, ev.Rune())
	}
}

func (a *App) ask(label, initial string, submit func(string)) {
	a.prompt = &prompt{label: label, buf: []rune(initial), submit: submit}
}

func (a *App) dispatch(action editor.Action) {
	if err := a.ws.Dispatch(action); err != nil {
		a.report(err.Error(), true)
		return
	}
	a.report("", false)
}

// async runs a remote call off the event loop. Completion is posted back
// as an event.
func (a *App) async(operation string, fn func(context.Context) error) {
	a.report(operation+"...", false)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ev := &remoteDone{operation: operation, err: fn(a.ctx)}
		ev.SetEventNow()
		if err := a.screen.PostEvent(ev); err != nil {
			a.logger.Warn("dropped completion event", "operation", operation, "error", err)
		}
	}()
}

func (a *App) finish(ev *remoteDone) {
	switch {
	case ev.err == nil:
		a.report(ev.operation+" done", false)
	case errors.Is(ev.err, workspace.ErrSuperseded):
		// A newer request owns the status line.
	default:
		msg := a.ws.Notice()
		if msg == "" {
			msg = ev.err.Error()
		}
		a.ws.ClearNotice()
		a.report(msg, true)
	}
	a.moveCursor(0)
}

func (a *App) report(msg string, failed bool) {
	a.status = msg
	a.failed = failed
}

func (a *App) entities() []diagram.Entity {
	if s := a.ws.Snapshot(); s != nil {
		return s.Nodes
	}
	return nil
}

// current returns the id of the entity under the cursor.
func (a *App) current() string {
	nodes := a.entities()
	if a.cursor < 0 || a.cursor >= len(nodes) {
		return ""
	}
	return nodes[a.cursor].ID
}

// moveCursor moves by delta and clamps to the entity list.
func (a *App) moveCursor(delta int) {
	n := len(a.entities())
	a.cursor += delta
	if a.cursor >= n {
		a.cursor = n - 1
	}
	if a.cursor < 0 {
		a.cursor = 0
	}
}

func (a *App) draw() {
	a.screen.Clear()
	a.screen.HideCursor()
	w, h := a.screen.Size()
	if w < 20 || h < 8 {
		a.text(0, 0, w, tcell.StyleDefault, "terminal too small")
		return
	}
	v := a.ws.View()

	a.drawHeader(w, v)

	listW := min(34, w/3)
	body := h - 2
	a.drawEntities(0, 1, listW, body, v)

	x := listW + 1
	pw := w - x
	ph := body / 2
	a.text(x, 1, pw, styleTitle, "Preview")
	for i, line := range strings.Split(a.ws.Preview(pw, ph-1), "\n") {
		if i >= ph-1 {
			break
		}
		a.text(x, 2+i, pw, tcell.StyleDefault, line)
	}

	cy := 1 + ph
	cw := pw / 2
	a.drawCode(x, cy, cw-1, body-ph, v)
	a.drawTranscript(x+cw, cy, pw-cw, body-ph, v)

	if v.Editing != "" {
		a.drawEditDialog(w, h, v)
	}
	a.drawFooter(w, h-1, v)
}

func (a *App) drawHeader(w int, v workspace.View) {
	header := fmt.Sprintf(" C4 Architect | mode: %s | history %d/%d", v.Mode, v.History.Index+1, v.History.Length)
	if v.Mode == editor.ModeAddConnection {
		if v.ConnectionSource != "" {
			header += " | from " + v.ConnectionSource
		} else {
			header += " | pick source"
		}
	}
	if v.Processing || v.Thinking {
		header += " | processing..."
	}
	a.text(0, 0, w, styleHeader, padRight(header, w))
}

func (a *App) drawEntities(x, y, w, h int, v workspace.View) {
	a.text(x, y, w, styleTitle, "Entities")
	row := y + 1
	var nodes []diagram.Entity
	var edges []diagram.Relation
	if v.Snapshot != nil {
		nodes, edges = v.Snapshot.Nodes, v.Snapshot.Edges
	}
	if len(nodes) == 0 {
		a.text(x, row, w, styleDim, "(empty)")
		return
	}
	for i, n := range nodes {
		if row >= y+h {
			return
		}
		style := tcell.StyleDefault
		if n.ID == v.Selected || n.ID == v.ConnectionSource {
			style = styleSelected
		}
		if i == a.cursor {
			style = styleCursor
		}
		a.text(x, row, w, style, fmt.Sprintf(" %s [%s]", n.Label, n.EntityType))
		row++
	}

	row++
	if row < y+h {
		a.text(x, row, w, styleTitle, "Relations")
		row++
	}
	for _, e := range edges {
		if row >= y+h {
			return
		}
		a.text(x, row, w, tcell.StyleDefault, fmt.Sprintf(" %s → %s: %s", e.Source, e.Target, e.Label))
		row++
	}
}

func (a *App) drawCode(x, y, w, h int, v workspace.View) {
	title := "Code"
	if v.Code.Modified {
		title += " (modified)"
	}
	a.text(x, y, w, styleTitle, title)
	lines := strings.Split(v.Code.Draft, "\n")
	for i := 0; i < len(lines) && i < h-1; i++ {
		a.text(x, y+1+i, w, tcell.StyleDefault, lines[i])
	}
}

func (a *App) drawTranscript(x, y, w, h int, v workspace.View) {
	a.text(x, y, w, styleTitle, "Assistant")
	var lines []string
	var styles []tcell.Style
	for _, e := range v.Transcript {
		style := tcell.StyleDefault
		if e.Failed {
			style = styleError
		}
		prefix := "assistant: "
		if e.Role == assistant.User {
			prefix = "you: "
		}
		lines = append(lines, prefix+e.Text)
		styles = append(styles, style)
	}
	for i, s := range v.Suggestions {
		lines = append(lines, fmt.Sprintf("  %d. %s", i+1, s))
		styles = append(styles, styleDim)
	}

	// Newest entries win when space runs out.
	start := max(0, len(lines)-(h-1))
	for i := start; i < len(lines); i++ {
		a.text(x, y+1+i-start, w, styles[i], lines[i])
	}
}

func (a *App) drawEditDialog(w, h int, v workspace.View) {
	e, ok := v.Snapshot.Entity(v.Editing)
	if !ok {
		return
	}
	lines := []string{
		"Edit " + e.Label,
		"e edit label   esc close",
	}
	dw := 4
	for _, l := range lines {
		dw = max(dw, runewidth.StringWidth(l)+4)
	}
	dw = min(dw, w)
	dh := len(lines) + 2
	x, y := (w-dw)/2, (h-dh)/2

	m := canvas.NewMatrix(dw, dh)
	m.DrawBox(0, 0, dw, dh, canvas.DefaultBoxStyle)
	for i, l := range lines {
		m.DrawText(2, 1+i, canvas.Truncate(l, dw-4))
	}
	for i, row := range strings.Split(m.String(), "\n") {
		a.text(x, y+i, dw, tcell.StyleDefault, padRight(row, dw))
	}
}

func (a *App) drawFooter(w, y int, v workspace.View) {
	switch {
	case a.prompt != nil:
		line := a.prompt.label + ": " + string(a.prompt.buf)
		a.text(0, y, w, tcell.StyleDefault, line)
		a.screen.ShowCursor(min(runewidth.StringWidth(line), w-1), y)
	case v.Notice != "":
		a.text(0, y, w, styleError, v.Notice)
	case a.status != "":
		style := tcell.StyleDefault
		if a.failed {
			style = styleError
		}
		a.text(0, y, w, style, a.status)
	default:
		a.text(0, y, w, styleDim, HelpLine)
	}
}

// text draws s at (x, y), clipped to w cells.
func (a *App) text(x, y, w int, style tcell.Style, s string) {
	col := 0
	for _, r := range s {
		rw := runewidth.RuneWidth(r)
		if rw == 0 {
			continue
		}
		if col+rw > w {
			return
		}
		a.screen.SetContent(x+col, y, r, nil, style)
		col += rw
	}
}

func padRight(s string, w int) string {
	if n := runewidth.StringWidth(s); n < w {
		return s + strings.Repeat(" ", w-n)
	}
	return s
}
