package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/monorkin/stone-hub/internal/grid"
	"github.com/monorkin/stone-hub/internal/metrics"
	"github.com/monorkin/stone-hub/internal/scene"
	"github.com/monorkin/stone-hub/internal/selection"
)

type checklistEntry struct {
	URN     string `json:"urn"`
	Name    string `json:"name"`
	Checked bool   `json:"checked"`
}

type addSelectionRequest struct {
	VersionID string `json:"versionId"`
	ItemName  string `json:"itemName"`
	Version   string `json:"version"`
}

type sceneRequest struct {
	// Loaded is what the browser viewer currently shows.
	Loaded []scene.LoadedModel `json:"loaded"`
	// URNs to load. Empty means the whole selection.
	URNs []string `json:"urns"`
}

type sceneResponse struct {
	Models []scene.LoadedModel `json:"models"`
	Ops    []scene.Op          `json:"ops"`
}

type focusRequest struct {
	DBID int `json:"dbId"`
}

// handleModels lists the selection as checklist entries. Repeated "loaded"
// query values name the urns the viewer currently shows.
func (ws *WebServer) handleModels(w http.ResponseWriter, r *http.Request) {
	models, err := ws.SelectedModels()
	if err != nil {
		ws.log(r.Context()).Error("Failed to list selection", "error", err)
		JSONError(w, "Failed to list selected models", http.StatusInternalServerError)
		return
	}

	var loaded []scene.LoadedModel
	for i, urn := range r.URL.Query()["loaded"] {
		loaded = append(loaded, scene.LoadedModel{ID: i + 1, URN: urn})
	}

	checked, err := scene.CheckedURNs(r.Context(), scene.NewRecorder(loaded...), selection.URNs(models))
	if err != nil {
		JSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	entries := make([]checklistEntry, 0, len(models))
	for _, model := range models {
		entries = append(entries, checklistEntry{
			URN:     model.URN,
			Name:    model.String(),
			Checked: checked[model.URN],
		})
	}

	writeJSON(w, http.StatusOK, entries)
}

func (ws *WebServer) handleListSelection(w http.ResponseWriter, r *http.Request) {
	models, err := ws.SelectedModels()
	if err != nil {
		ws.log(r.Context()).Error("Failed to list selection", "error", err)
		JSONError(w, "Failed to list selected models", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, models)
}

func (ws *WebServer) handleAddSelection(w http.ResponseWriter, r *http.Request) {
	var request addSelectionRequest
	if err := decodeJSON(r, &request); err != nil {
		JSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	model, err := selection.FromVersionID(request.VersionID, request.ItemName, request.Version)
	if err != nil {
		JSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	added, err := ws.AddSelection(r.Context(), model)
	if err != nil {
		JSONError(w, "Failed to add selected model", http.StatusInternalServerError)
		return
	}

	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}
	writeJSON(w, status, map[string]any{"added": added, "model": model})
}

func (ws *WebServer) handleClearSelection(w http.ResponseWriter, r *http.Request) {
	if err := ws.ClearSelection(r.Context()); err != nil {
		JSONError(w, "Failed to clear selected models", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SelectedModels reads the persisted selection.
func (ws *WebServer) SelectedModels() ([]selection.Model, error) {
	set, err := ws.selection.Load()
	if err != nil {
		return nil, err
	}

	return set.List(), nil
}

// AddSelection and ClearSelection are the only writers of the selection, so
// every caller goes through the same change notification.
func (ws *WebServer) AddSelection(ctx context.Context, model selection.Model) (bool, error) {
	ws.selectionMutex.Lock()
	defer ws.selectionMutex.Unlock()

	added, err := ws.selection.Add(model)
	if err != nil {
		ws.log(ctx).Error("Failed to add selection", "error", err)
		return false, err
	}

	if added {
		ws.log(ctx).Info("Model selected", "model", model.String(), "pattern", model.Pattern)
		ws.selectionChanged(ctx)
	}

	return added, nil
}

func (ws *WebServer) ClearSelection(ctx context.Context) error {
	ws.selectionMutex.Lock()
	defer ws.selectionMutex.Unlock()

	if err := ws.selection.Clear(); err != nil {
		ws.log(ctx).Error("Failed to clear selection", "error", err)
		return err
	}

	ws.log(ctx).Info("Selection cleared")
	ws.selectionChanged(ctx)
	return nil
}

func (ws *WebServer) selectionChanged(ctx context.Context) {
	models, err := ws.selection.List()
	if err != nil {
		ws.log(ctx).Warn("Failed to reload selection", "error", err)
		return
	}

	metrics.SelectedModels.Set(float64(len(models)))
	if ws.options.OnSelectionChanged != nil {
		ws.options.OnSelectionChanged(models)
	}
}

// handleReplaceScene plans a whole-scene replacement against what the
// browser reports as loaded. The returned ops are replayed in order by the
// viewer.
func (ws *WebServer) handleReplaceScene(w http.ResponseWriter, r *http.Request) {
	var request sceneRequest
	if err := decodeJSON(r, &request); err != nil {
		JSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	urns := request.URNs
	if len(urns) == 0 {
		models, err := ws.SelectedModels()
		if err != nil {
			JSONError(w, "Failed to list selected models", http.StatusInternalServerError)
			return
		}
		urns = selection.URNs(models)
	}

	recorder := scene.NewRecorder(request.Loaded...)
	loaded, err := scene.ReplaceScene(r.Context(), recorder, urns, ws.log(r.Context()))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, scene.ErrEmptyURN) {
			status = http.StatusBadRequest
		}
		JSONError(w, err.Error(), status)
		return
	}

	writeJSON(w, http.StatusOK, sceneResponse{Models: loaded, Ops: recorder.Ops()})
}

func (ws *WebServer) handleFocus(w http.ResponseWriter, r *http.Request) {
	var request focusRequest
	if err := decodeJSON(r, &request); err != nil {
		JSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	recorder := scene.NewRecorder()
	panel := grid.NewPanel(ws.log(r.Context()))
	if err := panel.RowClick(r.Context(), recorder, grid.Row{DBID: request.DBID}); err != nil {
		JSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, sceneResponse{Models: []scene.LoadedModel{}, Ops: recorder.Ops()})
}
