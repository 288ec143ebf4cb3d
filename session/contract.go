package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"c4arch/assistant"
	"c4arch/codepanel"
	"c4arch/diagram"
	"c4arch/editor"
	"c4arch/workspace"
)

func contractState(code string) *workspace.State {
	s := &diagram.Snapshot{
		Nodes: []diagram.Entity{
			{ID: "web", Label: "Web App", EntityType: diagram.Container, Position: diagram.Point{X: 50, Y: 50}},
			{ID: "db", Label: "Database", EntityType: diagram.Container, Position: diagram.Point{X: 400, Y: 50}},
		},
		Edges: []diagram.Relation{{ID: "e1", Source: "web", Target: "db", Label: "reads", Animated: true}},
	}
	return &workspace.State{
		Editor: editor.State{
			History:        []*diagram.Snapshot{s},
			Index:          0,
			Code:           code,
			Mode:           editor.ModeAddConnection,
			ConnectionType: "reads",
		},
		Code: codepanel.State{Committed: code, Draft: code + "\nRel(a, b)", Modified: true},
		Transcript: []assistant.Entry{
			{Role: assistant.Assistant, Text: assistant.Greeting},
			{Role: assistant.User, Text: "Add a cache"},
		},
		Requirements: "An online shop",
	}
}

// RunStoreContract checks the behaviour every Store must provide.
func RunStoreContract(t *testing.T, store Store) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		state := contractState("@startuml\nSystem(web)\n@enduml")
		require.NoError(t, store.Save(ctx, sessionID, state), "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, state.Editor.Code, loaded.Editor.Code)
		assert.Equal(t, editor.ModeAddConnection, loaded.Editor.Mode)
		assert.Equal(t, "reads", loaded.Editor.ConnectionType)
		assert.Equal(t, state.Code, loaded.Code)
		assert.Equal(t, state.Transcript, loaded.Transcript)
		assert.Equal(t, state.Requirements, loaded.Requirements)
		require.Len(t, loaded.Editor.History, 1)
		assert.True(t, state.Editor.History[0].Equal(loaded.Editor.History[0]), "snapshot should survive persistence")
	})

	t.Run("Load returns a copy", func(t *testing.T) {
		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		loaded.Transcript[0].Text = "mutated"
		loaded.Editor.History[0].Nodes[0].Label = "mutated"

		again, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, assistant.Greeting, again.Transcript[0].Text)
		assert.Equal(t, "Web App", again.Editor.History[0].Nodes[0].Label)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, sessionID, contractState("")))
		require.NoError(t, store.Delete(ctx, sessionID), "Delete should not return error")

		_, err := store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		_ = store.Save(ctx, id1, contractState(""))
		_ = store.Save(ctx, id2, contractState(""))
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}
