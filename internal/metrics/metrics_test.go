package metrics

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"c4arch/editor"
)

func TestEditorHooksCountCommits(t *testing.T) {
	m := New()
	o := editor.New(editor.WithHooks(m.EditorHooks()))

	o.AddNode()
	o.AddNode()
	o.Undo()
	o.Redo()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Commits.WithLabelValues("add_node")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HistoryMoves.WithLabelValues("undo")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HistoryMoves.WithLabelValues("redo")))
}

func TestObserveRemote(t *testing.T) {
	m := New()
	m.ObserveRemote("/process", time.Now(), nil)
	m.ObserveRemote("/process", time.Now(), errors.New("down"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RemoteRequests.WithLabelValues("/process", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RemoteRequests.WithLabelValues("/process", "error")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveRemote("/process", time.Now(), nil)
	m.Stale("generate")
	m.SessionOpened()
	m.SessionClosed()
	assert.Nil(t, m.EditorHooks().OnCommit)
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.SessionOpened()
	m.Stale("generate")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "c4arch_sessions_live 1")
	assert.Contains(t, body, `c4arch_stale_responses_total{operation="generate"} 1`)
}
