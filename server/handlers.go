package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"c4arch/canvas"
	"c4arch/diagram"
	"c4arch/editor"
	"c4arch/export"
	"c4arch/workspace"
)

var errUnknownFormat = errors.New("unknown export format")

// mutate runs fn on the session in the URL, persists, and replies with the
// resulting view.
func (s *Server) mutate(w http.ResponseWriter, r *http.Request, fn func(context.Context, *workspace.Workspace) error) {
	var ws *workspace.Workspace
	err := s.sessions.Update(r.Context(), chi.URLParam(r, "id"), func(ctx context.Context, target *workspace.Workspace) error {
		ws = target
		return fn(ctx, target)
	})
	if err != nil {
		notice := ""
		if ws != nil {
			notice = ws.Notice()
		}
		s.writeError(w, err, notice)
		return
	}
	writeJSON(w, http.StatusOK, ws.View())
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.sessions.List(r.Context())
	if err != nil {
		s.writeError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": ids})
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	id, ws, err := s.sessions.Create(r.Context())
	if err != nil {
		s.writeError(w, err, "")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": id, "view": ws.View()})
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	ws, err := s.sessions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, ws.View())
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, err, "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type textRequest struct {
	Text string `json:"text"`
}

func (s *Server) generate(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, err, "")
		return
	}
	s.mutate(w, r, func(ctx context.Context, ws *workspace.Workspace) error {
		return ws.Generate(ctx, req.Text)
	})
}

func (s *Server) editCode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Draft string `json:"draft"`
	}
	if err := decode(r, &req); err != nil {
		s.writeError(w, err, "")
		return
	}
	s.mutate(w, r, func(ctx context.Context, ws *workspace.Workspace) error {
		ws.EditCode(req.Draft)
		return nil
	})
}

func (s *Server) applyCode(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, func(ctx context.Context, ws *workspace.Workspace) error {
		return ws.ApplyCode(ctx)
	})
}

func (s *Server) sendMessage(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, err, "")
		return
	}
	s.mutate(w, r, func(ctx context.Context, ws *workspace.Workspace) error {
		return ws.SendMessage(ctx, req.Text)
	})
}

func (s *Server) selectSuggestion(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(chi.URLParam(r, "n"))
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: suggestion index must be a number", errBadRequest), "")
		return
	}
	s.mutate(w, r, func(ctx context.Context, ws *workspace.Workspace) error {
		return ws.SelectSuggestion(ctx, n)
	})
}

func (s *Server) dispatch(w http.ResponseWriter, r *http.Request) {
	var fields map[string]any
	if err := decode(r, &fields); err != nil {
		s.writeError(w, err, "")
		return
	}
	action, err := editor.DecodeAction(fields)
	if err != nil {
		s.writeError(w, err, "")
		return
	}
	s.mutate(w, r, func(ctx context.Context, ws *workspace.Workspace) error {
		return ws.Dispatch(action)
	})
}

// nodeChange is the wire form of a canvas node delta.
type nodeChange struct {
	Kind     string         `json:"kind"`
	ID       string         `json:"id"`
	Position *diagram.Point `json:"position,omitempty"`
	Size     *diagram.Size  `json:"size,omitempty"`
}

func (c nodeChange) toCanvas() (canvas.NodeChange, error) {
	out := canvas.NodeChange{ID: c.ID}
	switch c.Kind {
	case "position":
		if c.Position == nil {
			return out, fmt.Errorf("%w: position change for %q has no position", errBadRequest, c.ID)
		}
		out.Kind = canvas.NodePosition
		out.Position = *c.Position
	case "dimensions":
		if c.Size == nil {
			return out, fmt.Errorf("%w: dimensions change for %q has no size", errBadRequest, c.ID)
		}
		out.Kind = canvas.NodeDimensions
		out.Size = *c.Size
	case "remove":
		out.Kind = canvas.NodeRemove
	default:
		return out, fmt.Errorf("%w: unknown node change %q", errBadRequest, c.Kind)
	}
	return out, nil
}

func (s *Server) nodeChanges(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Changes []nodeChange `json:"changes"`
	}
	if err := decode(r, &req); err != nil {
		s.writeError(w, err, "")
		return
	}
	changes := make([]canvas.NodeChange, 0, len(req.Changes))
	for _, c := range req.Changes {
		change, err := c.toCanvas()
		if err != nil {
			s.writeError(w, err, "")
			return
		}
		changes = append(changes, change)
	}
	s.mutate(w, r, func(ctx context.Context, ws *workspace.Workspace) error {
		return ws.ApplyNodeChanges(changes...)
	})
}

func (s *Server) edgeChanges(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Changes []struct {
			ID string `json:"id"`
		} `json:"changes"`
	}
	if err := decode(r, &req); err != nil {
		s.writeError(w, err, "")
		return
	}
	changes := make([]canvas.EdgeChange, 0, len(req.Changes))
	for _, c := range req.Changes {
		changes = append(changes, canvas.EdgeChange{ID: c.ID})
	}
	s.mutate(w, r, func(ctx context.Context, ws *workspace.Workspace) error {
		return ws.ApplyEdgeChanges(changes...)
	})
}

func (s *Server) connect(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Source string `json:"source"`
		Target string `json:"target"`
	}
	if err := decode(r, &req); err != nil {
		s.writeError(w, err, "")
		return
	}
	s.mutate(w, r, func(ctx context.Context, ws *workspace.Workspace) error {
		_, err := ws.Connect(canvas.Connection{Source: req.Source, Target: req.Target})
		return err
	})
}

func (s *Server) export(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("format")
	if name == "" {
		name = string(export.FormatPlantUML)
	}
	format, err := export.ParseFormat(name)
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: %w", errUnknownFormat, err), "")
		return
	}

	ws, err := s.sessions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err, "")
		return
	}

	var exporter export.Exporter
	if format == export.FormatPNG {
		png := export.NewPNGExporter()
		png.FontPath = s.fontPath
		exporter = png
	} else if exporter, err = export.NewExporter(format); err != nil {
		s.writeError(w, fmt.Errorf("%w: %w", errUnknownFormat, err), "")
		return
	}

	data, err := exporter.Export(ws.Snapshot())
	if err != nil {
		s.writeError(w, err, "")
		return
	}
	w.Header().Set("Content-Type", exporter.GetContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"diagram%s\"", exporter.GetFileExtension()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) listExamples(w http.ResponseWriter, r *http.Request) {
	list, err := s.remote.ListExamples(r.Context())
	if err != nil {
		s.writeError(w, err, workspace.NoticeExamples)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) loadExample(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	text, err := s.remote.LoadExample(r.Context(), id)
	if err != nil {
		s.writeError(w, err, workspace.NoticeExamples)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "text": text})
}
