// Package workspace wires one orchestrator, canvas adapter, code panel and
// assistant panel to the remote diagram service. It is the unit a session,
// the HTTP API and the terminal UI drive.
package workspace

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"

	"c4arch/assistant"
	"c4arch/canvas"
	"c4arch/client"
	"c4arch/codepanel"
	"c4arch/diagram"
	"c4arch/editor"
	"c4arch/internal/metrics"
	"c4arch/layout"
)

var (
	// ErrEmptyRequirements is returned by Generate for blank input.
	ErrEmptyRequirements = errors.New("requirements text is empty")
	// ErrSuperseded is returned when a response arrives after a newer
	// request was issued. The response is discarded.
	ErrSuperseded = errors.New("superseded by a newer request")
)

// User-facing notices for failed remote calls.
const (
	NoticeGenerate   = "Failed to process requirements. Please try again."
	NoticeCode       = "Failed to process code. Please check the syntax."
	NoticeAssistant  = "Failed to process AI request."
	NoticeExamples   = "Failed to load examples."
	NoticeSuperseded = "This request was superseded by a newer one."
)

// Remote is the diagram service as seen by a workspace.
type Remote interface {
	Generate(ctx context.Context, text string) (*client.GenerateResult, error)
	ParseCode(ctx context.Context, code string) (*diagram.Snapshot, error)
	ApplyAction(ctx context.Context, action string, current *diagram.Snapshot, code string) (*client.ActionResult, error)
	ListExamples(ctx context.Context) ([]client.Example, error)
	LoadExample(ctx context.Context, id string) (string, error)
}

// Workspace serialises every transition behind one mutex. The mutex is not
// held while a remote call is in flight, so calls may overlap; request
// tickets decide which response wins.
type Workspace struct {
	mu sync.Mutex

	editor    *editor.Orchestrator
	canvas    *canvas.Adapter
	code      *codepanel.Panel
	assistant *assistant.Panel

	remote  Remote
	layout  layout.Engine
	logger  *slog.Logger
	metrics *metrics.Metrics

	editorOpts   []editor.Option
	canvasOpts   []canvas.Option
	requirements string
	notice       string
	onUpdate     func()

	// lastMessage is the ticket of the newest assistant request.
	lastMessage editor.Ticket
}

// Option configures a Workspace.
type Option func(*Workspace)

// WithLogger sets the logger for the workspace and its components.
func WithLogger(l *slog.Logger) Option {
	return func(w *Workspace) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithMetrics records history and request metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Workspace) {
		w.metrics = m
	}
}

// WithLayout replaces the grid layout.
func WithLayout(e layout.Engine) Option {
	return func(w *Workspace) {
		if e != nil {
			w.layout = e
		}
	}
}

// WithEditorOptions passes options to the orchestrator.
func WithEditorOptions(opts ...editor.Option) Option {
	return func(w *Workspace) {
		w.editorOpts = append(w.editorOpts, opts...)
	}
}

// WithCanvasOptions passes options to the canvas adapter.
func WithCanvasOptions(opts ...canvas.Option) Option {
	return func(w *Workspace) {
		w.canvasOpts = append(w.canvasOpts, opts...)
	}
}

// WithOnUpdate registers a callback fired, without the lock held, after a
// remote call completes.
func WithOnUpdate(fn func()) Option {
	return func(w *Workspace) {
		w.onUpdate = fn
	}
}

// New creates a workspace with no diagram.
func New(remote Remote, opts ...Option) *Workspace {
	w := &Workspace{
		remote:    remote,
		layout:    layout.NewGridLayout(),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		code:      codepanel.New(),
		assistant: assistant.New(),
	}
	for _, opt := range opts {
		opt(w)
	}

	eopts := []editor.Option{editor.WithLogger(w.logger.With("component", "editor"))}
	if w.metrics != nil {
		eopts = append(eopts, editor.WithHooks(w.metrics.EditorHooks()))
	}
	w.editor = editor.New(append(eopts, w.editorOpts...)...)

	copts := []canvas.Option{canvas.WithLogger(w.logger.With("component", "canvas"))}
	w.canvas = canvas.NewAdapter(w.onCanvasChange, append(copts, w.canvasOpts...)...)
	return w
}

// Generate sends requirements text to the service and commits the laid-out
// result together with its code.
func (w *Workspace) Generate(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyRequirements
	}

	w.mu.Lock()
	w.requirements = text
	w.notice = ""
	ticket := w.editor.BeginRequest()
	w.mu.Unlock()

	res, err := w.remote.Generate(ctx, text)

	defer w.updated()
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.finish(ticket, "generate") {
		return ErrSuperseded
	}
	if err != nil {
		w.fail(NoticeGenerate, "generate", err)
		return err
	}

	w.editor.CommitFrom(editor.SourceRemote, w.layout.Layout(res.Snapshot.Nodes, res.Snapshot.Edges))
	w.editor.SetCode(res.Code)
	w.sync()
	return nil
}

// ApplyCode sends the code draft to the service. When the panel refuses to
// apply, nothing is sent.
func (w *Workspace) ApplyCode(ctx context.Context) error {
	w.mu.Lock()
	draft, err := w.code.Apply()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	w.notice = ""
	ticket := w.editor.BeginRequest()
	w.mu.Unlock()

	s, err := w.remote.ParseCode(ctx, draft)

	defer w.updated()
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.finish(ticket, "apply_code") {
		return ErrSuperseded
	}
	if err != nil {
		w.fail(NoticeCode, "apply_code", err)
		return err
	}

	w.editor.CommitFrom(editor.SourceCode, w.layout.Layout(s.Nodes, s.Edges))
	w.editor.SetCode(draft)
	w.sync()
	return nil
}

// SendMessage sends a conversational action to the service.
func (w *Workspace) SendMessage(ctx context.Context, text string) error {
	return w.converse(ctx, func() (string, error) { return w.assistant.Send(text) })
}

// SelectSuggestion sends the i-th predefined suggestion.
func (w *Workspace) SelectSuggestion(ctx context.Context, i int) error {
	return w.converse(ctx, func() (string, error) { return w.assistant.SelectSuggestion(i) })
}

func (w *Workspace) converse(ctx context.Context, send func() (string, error)) error {
	w.mu.Lock()
	intent, err := send()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	w.notice = ""
	ticket := w.editor.BeginRequest()
	w.lastMessage = ticket
	current, code := w.editor.Snapshot(), w.editor.Code()
	w.mu.Unlock()

	res, err := w.remote.ApplyAction(ctx, intent, current, code)

	defer w.updated()
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.finish(ticket, "assistant") {
		if ticket == w.lastMessage {
			w.assistant.Fail(NoticeSuperseded)
		} else {
			w.assistant.Note(NoticeSuperseded)
		}
		return ErrSuperseded
	}
	if err != nil {
		w.assistant.Fail(NoticeAssistant)
		w.fail(NoticeAssistant, "assistant", err)
		return err
	}

	if res.Snapshot != nil {
		w.editor.CommitFrom(editor.SourceAssistant, w.layout.Layout(res.Snapshot.Nodes, res.Snapshot.Edges))
	}
	if res.HasCode {
		w.editor.SetCode(res.Code)
	}
	w.assistant.Resolve(res.Reply)
	w.sync()
	return nil
}

// ListExamples returns the service's example requirement sets.
func (w *Workspace) ListExamples(ctx context.Context) ([]client.Example, error) {
	list, err := w.remote.ListExamples(ctx)
	if err != nil {
		w.mu.Lock()
		w.fail(NoticeExamples, "list_examples", err)
		w.mu.Unlock()
		return nil, err
	}
	return list, nil
}

// LoadExample fetches one example and installs it as the requirements
// draft.
func (w *Workspace) LoadExample(ctx context.Context, id string) (string, error) {
	text, err := w.remote.LoadExample(ctx, id)

	w.mu.Lock()
	defer w.mu.Unlock()
	if err != nil {
		w.fail(NoticeExamples, "load_example", err)
		return "", err
	}
	w.requirements = text
	return text, nil
}

// Dispatch applies an orchestrator action and re-synchronises the panels.
func (w *Workspace) Dispatch(a editor.Action) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	err := w.editor.Dispatch(a)
	w.sync()
	return err
}

// EditCode replaces the code draft.
func (w *Workspace) EditCode(draft string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.code.Edit(draft)
}

// SetRequirements replaces the requirements draft.
func (w *Workspace) SetRequirements(text string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.requirements = text
}

// ApplyNodeChanges forwards node deltas to the canvas.
func (w *Workspace) ApplyNodeChanges(changes ...canvas.NodeChange) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.canvas.ApplyNodeChanges(changes...)
}

// ApplyEdgeChanges forwards edge deltas to the canvas.
func (w *Workspace) ApplyEdgeChanges(changes ...canvas.EdgeChange) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.canvas.ApplyEdgeChanges(changes...)
}

// Connect forwards a drawn connection to the canvas.
func (w *Workspace) Connect(c canvas.Connection) (diagram.Relation, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.canvas.Connect(c)
}

// ShowImage switches the canvas to a pre-rendered image.
func (w *Workspace) ShowImage(ref string) {
	w.canvas.ShowImage(ref)
}

// ShowStructured switches the canvas back to the diagram.
func (w *Workspace) ShowStructured() {
	w.canvas.ShowStructured()
}

// LoadImage loads the canvas image. The workspace lock is not held.
func (w *Workspace) LoadImage(ctx context.Context, loader canvas.ImageLoader) error {
	return w.canvas.LoadImage(ctx, loader)
}

// Preview renders the canvas working copy as text.
func (w *Workspace) Preview(width, height int) string {
	return w.canvas.Preview(width, height)
}

// Snapshot returns the committed snapshot. It must not be modified.
func (w *Workspace) Snapshot() *diagram.Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.editor.Snapshot()
}

// Code returns the committed code.
func (w *Workspace) Code() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.editor.Code()
}

// Processing reports whether the latest remote request is outstanding.
func (w *Workspace) Processing() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.editor.Processing()
}

// Notice returns the last user-facing failure notice.
func (w *Workspace) Notice() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.notice
}

// ClearNotice dismisses the notice.
func (w *Workspace) ClearNotice() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.notice = ""
}

// onCanvasChange runs inside a canvas call made with w.mu held.
func (w *Workspace) onCanvasChange(nodes []diagram.Entity, edges []diagram.Relation) {
	w.editor.ReplaceGraph(nodes, edges)
	w.sync()
}

// sync pushes committed state to the canvas and code panel. The code draft
// is only reset when the committed code changed.
func (w *Workspace) sync() {
	w.canvas.SetSnapshot(w.editor.Snapshot())
	if w.code.Committed() != w.editor.Code() {
		w.code.SetCode(w.editor.Code())
	}
}

// finish closes a request and reports whether its response may be used.
func (w *Workspace) finish(ticket editor.Ticket, operation string) bool {
	if w.editor.EndRequest(ticket) {
		return true
	}
	w.logger.Info("discarding stale response", "operation", operation, "ticket", uint64(ticket))
	w.metrics.Stale(operation)
	return false
}

func (w *Workspace) fail(notice, operation string, err error) {
	w.notice = notice
	w.logger.Error("remote call failed", "operation", operation, "error", err)
}

func (w *Workspace) updated() {
	if w.onUpdate != nil {
		w.onUpdate()
	}
}
