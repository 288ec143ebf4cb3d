package workspace

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"c4arch/assistant"
	"c4arch/canvas"
	"c4arch/client"
	"c4arch/codepanel"
	"c4arch/diagram"
	"c4arch/editor"
	"c4arch/internal/metrics"
	"c4arch/layout"
)

var errUpstream = errors.New("upstream down")

// fakeRemote records calls and serves canned results. When gate is set,
// Generate blocks until a value arrives on it.
type fakeRemote struct {
	mu    sync.Mutex
	calls map[string]int

	generate  func(text string) (*client.GenerateResult, error)
	parse     func(code string) (*diagram.Snapshot, error)
	action    func(action string, current *diagram.Snapshot, code string) (*client.ActionResult, error)
	examples  []client.Example
	example   string
	remoteErr error

	gate    chan struct{}
	entered chan string
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{calls: map[string]int{}}
}

func (f *fakeRemote) record(op string) {
	f.mu.Lock()
	f.calls[op]++
	f.mu.Unlock()
}

func (f *fakeRemote) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeRemote) Generate(ctx context.Context, text string) (*client.GenerateResult, error) {
	f.record("generate")
	if f.entered != nil {
		f.entered <- text
	}
	if f.gate != nil && text == "slow" {
		<-f.gate
	}
	if f.generate != nil {
		return f.generate(text)
	}
	return nil, f.remoteErr
}

func (f *fakeRemote) ParseCode(ctx context.Context, code string) (*diagram.Snapshot, error) {
	f.record("parse")
	if f.parse != nil {
		return f.parse(code)
	}
	return nil, f.remoteErr
}

func (f *fakeRemote) ApplyAction(ctx context.Context, action string, current *diagram.Snapshot, code string) (*client.ActionResult, error) {
	f.record("action")
	if f.action != nil {
		return f.action(action, current, code)
	}
	return nil, f.remoteErr
}

func (f *fakeRemote) ListExamples(ctx context.Context) ([]client.Example, error) {
	f.record("examples")
	return f.examples, f.remoteErr
}

func (f *fakeRemote) LoadExample(ctx context.Context, id string) (string, error) {
	f.record("example")
	return f.example, f.remoteErr
}

func graph(labels ...string) *diagram.Snapshot {
	s := diagram.Empty()
	for _, l := range labels {
		s.Nodes = append(s.Nodes, diagram.Entity{ID: l, Label: l, EntityType: diagram.Container})
	}
	for i := 1; i < len(labels); i++ {
		s.Edges = append(s.Edges, diagram.Relation{ID: "e" + labels[i], Source: labels[0], Target: labels[i], Label: "uses"})
	}
	return s
}

func generating(s *diagram.Snapshot, code string) func(string) (*client.GenerateResult, error) {
	return func(string) (*client.GenerateResult, error) {
		return &client.GenerateResult{Snapshot: s.Clone(), Code: code}, nil
	}
}

const shopCode = "@startuml\nSystem(shop, \"Shop\")\nRel(web, api, \"uses\")\n@enduml"

func TestGenerateCommitsLaidOutSnapshot(t *testing.T) {
	remote := newFakeRemote()
	remote.generate = generating(graph("web", "api", "db"), shopCode)
	w := New(remote)

	require.NoError(t, w.Generate(context.Background(), "An online shop"))

	s := w.Snapshot()
	require.NotNil(t, s)
	require.Len(t, s.Nodes, 3)
	grid := layout.NewGridLayout()
	for i, n := range s.Nodes {
		assert.Equal(t, grid.Position(i), n.Position, "node %s", n.ID)
	}
	for _, e := range s.Edges {
		assert.True(t, e.Animated)
	}

	v := w.View()
	assert.Equal(t, shopCode, v.Code.Committed)
	assert.Equal(t, shopCode, v.Code.Draft)
	assert.False(t, v.Code.Modified)
	assert.Len(t, v.Canvas.Nodes, 3)
	assert.Equal(t, 1, v.History.Length)
	assert.False(t, v.Processing)
	assert.Equal(t, "An online shop", v.Requirements)
}

func TestGenerateRejectsBlankText(t *testing.T) {
	remote := newFakeRemote()
	w := New(remote)

	assert.ErrorIs(t, w.Generate(context.Background(), "  \n"), ErrEmptyRequirements)
	assert.Zero(t, remote.count("generate"))
}

func TestGenerateFailureKeepsState(t *testing.T) {
	remote := newFakeRemote()
	remote.generate = generating(graph("a"), shopCode)
	w := New(remote)
	require.NoError(t, w.Generate(context.Background(), "first"))
	before := w.Snapshot()

	remote.generate = nil
	remote.remoteErr = errUpstream
	err := w.Generate(context.Background(), "second")
	require.ErrorIs(t, err, errUpstream)

	assert.Same(t, before, w.Snapshot())
	assert.Equal(t, NoticeGenerate, w.Notice())
	assert.False(t, w.Processing())

	w.ClearNotice()
	assert.Empty(t, w.Notice())
}

func TestApplyCodeRequiresPassingCheck(t *testing.T) {
	remote := newFakeRemote()
	w := New(remote)

	w.EditCode("just some text")
	assert.ErrorIs(t, w.ApplyCode(context.Background()), codepanel.ErrApplyDisabled)
	assert.Zero(t, remote.count("parse"), "failing check must not reach the service")
	assert.NotEmpty(t, w.View().Code.Issues)
}

func TestApplyCodeCommits(t *testing.T) {
	remote := newFakeRemote()
	remote.generate = generating(graph("web"), shopCode)
	remote.parse = func(code string) (*diagram.Snapshot, error) { return graph("web", "api"), nil }
	w := New(remote)
	require.NoError(t, w.Generate(context.Background(), "shop"))

	edited := shopCode + "\nRel(api, db)"
	w.EditCode(edited)
	require.NoError(t, w.ApplyCode(context.Background()))

	v := w.View()
	assert.Equal(t, edited, v.Code.Committed)
	assert.False(t, v.Code.Modified)
	assert.Equal(t, 2, v.History.Length)
	assert.Len(t, v.Snapshot.Nodes, 2)
}

func TestApplyCodeFailureNotice(t *testing.T) {
	remote := newFakeRemote()
	remote.remoteErr = errUpstream
	w := New(remote)

	w.EditCode(shopCode)
	require.Error(t, w.ApplyCode(context.Background()))
	assert.Equal(t, NoticeCode, w.Notice())
	assert.Nil(t, w.Snapshot())
}

func TestSendMessage(t *testing.T) {
	remote := newFakeRemote()
	remote.action = func(action string, current *diagram.Snapshot, code string) (*client.ActionResult, error) {
		assert.Equal(t, "Add a cache", action)
		return &client.ActionResult{Snapshot: graph("web", "cache"), Reply: "Added a cache."}, nil
	}
	w := New(remote)

	require.NoError(t, w.SendMessage(context.Background(), "  Add a cache "))

	v := w.View()
	require.Len(t, v.Transcript, 3)
	assert.Equal(t, assistant.Entry{Role: assistant.User, Text: "Add a cache"}, v.Transcript[1])
	assert.Equal(t, "Added a cache.", v.Transcript[2].Text)
	assert.Empty(t, v.Suggestions)
	assert.False(t, v.Thinking)
	assert.Len(t, v.Snapshot.Nodes, 2)
	assert.Empty(t, v.Code.Committed, "no code in reply leaves code untouched")
}

func TestSendMessageCodeOnlyReply(t *testing.T) {
	remote := newFakeRemote()
	remote.generate = generating(graph("web"), shopCode)
	remote.action = func(string, *diagram.Snapshot, string) (*client.ActionResult, error) {
		return &client.ActionResult{Code: "@startuml\nSystem(x)\n@enduml", HasCode: true}, nil
	}
	w := New(remote)
	require.NoError(t, w.Generate(context.Background(), "shop"))
	before := w.Snapshot()

	require.NoError(t, w.SelectSuggestion(context.Background(), 0))

	v := w.View()
	assert.Same(t, before, v.Snapshot)
	assert.Equal(t, "@startuml\nSystem(x)\n@enduml", v.Code.Committed)
	assert.Equal(t, assistant.DefaultReply, v.Transcript[len(v.Transcript)-1].Text)
}

func TestSendMessageFailure(t *testing.T) {
	remote := newFakeRemote()
	remote.remoteErr = errUpstream
	w := New(remote)

	require.Error(t, w.SendMessage(context.Background(), "hello"))
	v := w.View()
	last := v.Transcript[len(v.Transcript)-1]
	assert.True(t, last.Failed)
	assert.Equal(t, NoticeAssistant, v.Notice)
	assert.False(t, v.Thinking)

	assert.ErrorIs(t, w.SendMessage(context.Background(), " "), assistant.ErrEmptyMessage)
	assert.ErrorIs(t, w.SelectSuggestion(context.Background(), 99), assistant.ErrNoSuggestion)
	assert.Equal(t, 1, remote.count("action"))
}

func TestStaleResponseIsDiscarded(t *testing.T) {
	remote := newFakeRemote()
	remote.gate = make(chan struct{})
	remote.entered = make(chan string, 2)
	remote.generate = func(text string) (*client.GenerateResult, error) {
		return &client.GenerateResult{Snapshot: graph(text), Code: shopCode}, nil
	}
	m := metrics.New()
	w := New(remote, WithMetrics(m))

	slow := make(chan error, 1)
	go func() { slow <- w.Generate(context.Background(), "slow") }()
	require.Equal(t, "slow", <-remote.entered)
	assert.True(t, w.Processing())

	require.NoError(t, w.Generate(context.Background(), "fast"))
	<-remote.entered
	close(remote.gate)

	assert.ErrorIs(t, <-slow, ErrSuperseded)
	s := w.Snapshot()
	require.Len(t, s.Nodes, 1)
	assert.Equal(t, "fast", s.Nodes[0].ID)
	assert.Equal(t, 1, w.View().History.Length)
	assert.False(t, w.Processing())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StaleResponses.WithLabelValues("generate")))
}

func TestOverlappingMessagesKeepThinking(t *testing.T) {
	remote := newFakeRemote()
	gates := map[string]chan struct{}{"one": make(chan struct{}), "two": make(chan struct{})}
	entered := make(chan string, 2)
	remote.action = func(action string, current *diagram.Snapshot, code string) (*client.ActionResult, error) {
		entered <- action
		<-gates[action]
		return &client.ActionResult{Reply: "reply to " + action}, nil
	}
	w := New(remote)

	first := make(chan error, 1)
	go func() { first <- w.SendMessage(context.Background(), "one") }()
	require.Equal(t, "one", <-entered)

	second := make(chan error, 1)
	go func() { second <- w.SendMessage(context.Background(), "two") }()
	require.Equal(t, "two", <-entered)

	close(gates["one"])
	assert.ErrorIs(t, <-first, ErrSuperseded)
	v := w.View()
	assert.True(t, v.Processing)
	assert.True(t, v.Thinking, "the newer message is still pending")
	assert.True(t, v.Transcript[len(v.Transcript)-1].Failed)

	close(gates["two"])
	require.NoError(t, <-second)
	v = w.View()
	assert.False(t, v.Thinking)
	assert.Equal(t, "reply to two", v.Transcript[len(v.Transcript)-1].Text)
}

func TestMessageSupersededByGenerate(t *testing.T) {
	remote := newFakeRemote()
	gate := make(chan struct{})
	entered := make(chan struct{}, 1)
	remote.action = func(string, *diagram.Snapshot, string) (*client.ActionResult, error) {
		entered <- struct{}{}
		<-gate
		return &client.ActionResult{Reply: "late"}, nil
	}
	remote.generate = generating(graph("web"), shopCode)
	w := New(remote)

	pending := make(chan error, 1)
	go func() { pending <- w.SendMessage(context.Background(), "hello") }()
	<-entered
	require.NoError(t, w.Generate(context.Background(), "shop"))

	close(gate)
	assert.ErrorIs(t, <-pending, ErrSuperseded)
	v := w.View()
	assert.False(t, v.Thinking)
	assert.Equal(t, NoticeSuperseded, v.Transcript[len(v.Transcript)-1].Text)
}

func TestCanvasEditsCommit(t *testing.T) {
	remote := newFakeRemote()
	remote.generate = generating(graph("web", "api", "db"), shopCode)
	w := New(remote)
	require.NoError(t, w.Generate(context.Background(), "shop"))

	require.NoError(t, w.ApplyNodeChanges(canvas.NodeChange{Kind: canvas.NodePosition, ID: "web", Position: diagram.Point{X: 10, Y: 20}}))
	s := w.Snapshot()
	assert.Equal(t, diagram.Point{X: 10, Y: 20}, s.Nodes[0].Position)
	assert.Equal(t, 2, w.View().History.Length)

	rel, err := w.Connect(canvas.Connection{Source: "api", Target: "db"})
	require.NoError(t, err)
	assert.True(t, w.Snapshot().HasRelation(rel.ID))

	require.NoError(t, w.ApplyNodeChanges(canvas.NodeChange{Kind: canvas.NodeRemove, ID: "api"}))
	s = w.Snapshot()
	assert.False(t, s.HasEntity("api"))
	for _, e := range s.Edges {
		assert.False(t, e.Touches("api"), "dangling edge %s", e.ID)
	}

	require.NoError(t, w.ApplyEdgeChanges(canvas.EdgeChange{ID: "edb"}))
	assert.Empty(t, w.Snapshot().Edges)

	require.ErrorIs(t, w.ApplyNodeChanges(canvas.NodeChange{Kind: canvas.NodeRemove, ID: "ghost"}), canvas.ErrUnknownElement)
}

func TestDispatchSyncsCanvas(t *testing.T) {
	remote := newFakeRemote()
	remote.generate = generating(graph("web"), shopCode)
	w := New(remote)
	require.NoError(t, w.Generate(context.Background(), "shop"))

	require.NoError(t, w.Dispatch(editor.AddNode{}))
	assert.Len(t, w.View().Canvas.Nodes, 2)

	require.NoError(t, w.Dispatch(editor.Undo{}))
	v := w.View()
	assert.Len(t, v.Canvas.Nodes, 1)
	assert.True(t, v.History.CanRedo)

	require.NoError(t, w.Dispatch(editor.Reset{}))
	v = w.View()
	assert.Nil(t, v.Snapshot)
	assert.Empty(t, v.Canvas.Nodes)
	assert.Empty(t, v.Code.Committed)
}

func TestExamples(t *testing.T) {
	remote := newFakeRemote()
	remote.examples = []client.Example{{ID: "1", Title: "Shop"}}
	remote.example = "Customers browse products."
	w := New(remote)

	list, err := w.ListExamples(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 1)

	text, err := w.LoadExample(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, text, w.View().Requirements)

	remote.remoteErr = errUpstream
	_, err = w.LoadExample(context.Background(), "2")
	require.Error(t, err)
	assert.Equal(t, NoticeExamples, w.Notice())
	assert.Equal(t, text, w.View().Requirements, "failed load keeps the draft")
}

func TestStateRestore(t *testing.T) {
	remote := newFakeRemote()
	remote.generate = generating(graph("web", "api"), shopCode)
	remote.action = func(string, *diagram.Snapshot, string) (*client.ActionResult, error) {
		return &client.ActionResult{Reply: "ok"}, nil
	}
	w := New(remote)
	require.NoError(t, w.Generate(context.Background(), "shop"))
	require.NoError(t, w.Dispatch(editor.AddNode{}))
	require.NoError(t, w.SendMessage(context.Background(), "hi"))
	w.EditCode("draft in progress")

	st := w.State()

	other := New(newFakeRemote())
	require.NoError(t, other.Restore(st))

	v := other.View()
	assert.True(t, v.Snapshot.Equal(w.Snapshot()))
	assert.Equal(t, 2, v.History.Length)
	assert.Equal(t, "draft in progress", v.Code.Draft)
	assert.True(t, v.Code.Modified)
	assert.Len(t, v.Transcript, 3)
	assert.Equal(t, "shop", v.Requirements)
	assert.Len(t, v.Canvas.Nodes, 3)

	bad := st
	bad.Editor.History = []*diagram.Snapshot{{Nodes: []diagram.Entity{{ID: ""}}}}
	assert.Error(t, other.Restore(bad))
}

func TestPreviewAndImageMode(t *testing.T) {
	remote := newFakeRemote()
	remote.generate = generating(graph("web"), shopCode)
	w := New(remote)
	require.NoError(t, w.Generate(context.Background(), "shop"))

	assert.Contains(t, w.Preview(120, 30), "web")

	w.ShowImage("missing.png")
	v := w.View()
	require.NotNil(t, v.Canvas.Image)
	assert.Equal(t, "pending", v.Canvas.Image.State)
	assert.ErrorIs(t, w.ApplyNodeChanges(canvas.NodeChange{Kind: canvas.NodeRemove, ID: "web"}), canvas.ErrReadOnly)

	w.ShowStructured()
	assert.Nil(t, w.View().Canvas.Image)
}
