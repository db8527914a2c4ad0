package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/monorkin/stone-hub/internal/grid"
	"github.com/monorkin/stone-hub/internal/heatmap"
	"github.com/monorkin/stone-hub/internal/metrics"
	"github.com/monorkin/stone-hub/internal/props"
	"github.com/monorkin/stone-hub/internal/scene"
)

const (
	GRID_EXTENSION_ID    = "DataGridExtension"
	HEATMAP_EXTENSION_ID = "HeatmapExtension"
)

// errPanelSetup marks failures of the panel itself, as opposed to failures
// fetching the model's properties.
var errPanelSetup = errors.New("failed to open panel")

type updatablePanel interface {
	scene.Panel
	Update(ctx context.Context, source props.Source, dbIDs []int) error
}

type gridRequest struct {
	Filters []grid.FilterSpec `json:"filters"`
	Sort    string            `json:"sort"`
	Desc    bool              `json:"desc"`
	DBIDs   []int             `json:"dbIds"`
}

type gridResponse struct {
	grid.View
	FilterOptions map[string][]string `json:"filterOptions"`
}

type heatmapResponse struct {
	Channels []string                         `json:"channels"`
	Channel  string                           `json:"channel"`
	Legend   heatmap.Legend                   `json:"legend"`
	Warning  string                           `json:"warning,omitempty"`
	Shading  heatmap.ShadingConfig            `json:"shading"`
	Stats    map[string]*heatmap.ChannelStats `json:"stats"`
}

type heatmapValuesResponse struct {
	Channel  string            `json:"channel"`
	Warning  string            `json:"warning,omitempty"`
	Readings []heatmap.Reading `json:"readings"`
}

// openPanel registers the panel with a request-scoped owner, shows it and
// fills it from the model's properties. The returned func closes it.
func (ws *WebServer) openPanel(r *http.Request, id string, panel updatablePanel, dbIDs []int) (func(), error) {
	extensions := scene.NewExtensions()
	if err := extensions.Register(id, panel); err != nil {
		return nil, fmt.Errorf("%w: %w", errPanelSetup, err)
	}
	closePanel := func() { extensions.Unregister(id) }

	if _, err := extensions.Toggle(id); err != nil {
		closePanel()
		return nil, fmt.Errorf("%w: %w", errPanelSetup, err)
	}

	source := ws.options.Sources(pathVar(r, "urn"), sessionFrom(r.Context()).Internal.AccessToken)

	timer := metrics.NewTimer()
	if err := panel.Update(r.Context(), source, dbIDs); err != nil {
		closePanel()
		return nil, err
	}
	metrics.RecordPropertyFetch(id, elementCount(panel), timer.Duration())

	return closePanel, nil
}

// panelError reports a failed openPanel: setup failures are ours, the rest
// come from the property source.
func (ws *WebServer) panelError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	if errors.Is(err, errPanelSetup) {
		ws.log(r.Context()).Error("Failed to open panel", "operation", operation, "error", err)
		JSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	ws.upstreamError(w, r, operation, err)
}

func elementCount(panel updatablePanel) int {
	switch panel := panel.(type) {
	case *grid.Panel:
		return len(panel.Rows())
	case *heatmap.Panel:
		return len(panel.Values())
	default:
		return 0
	}
}

func (ws *WebServer) handleGridConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, grid.DefaultConfig())
}

func (ws *WebServer) handleGrid(w http.ResponseWriter, r *http.Request) {
	var request gridRequest
	if err := decodeJSON(r, &request); err != nil {
		JSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	panel := grid.NewPanel(ws.log(r.Context()))

	closePanel, err := ws.openPanel(r, GRID_EXTENSION_ID, panel, request.DBIDs)
	if err != nil {
		ws.panelError(w, r, "grid_properties", err)
		return
	}
	defer closePanel()

	for _, spec := range request.Filters {
		if err := panel.SetFilter(spec); err != nil {
			JSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	var sortBy *grid.SortOptions
	if request.Sort != "" {
		sortBy = &grid.SortOptions{Field: request.Sort, Desc: request.Desc}
	}

	view, err := panel.View(sortBy)
	if err != nil {
		JSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, gridResponse{
		View: view,
		FilterOptions: map[string][]string{
			grid.FieldComments:       panel.FilterOptions(grid.FieldComments),
			grid.FieldShippingStatus: panel.FilterOptions(grid.FieldShippingStatus),
		},
	})
}

// heatmapPanel opens a heatmap panel over the elements named by repeated
// "dbId" query values, or the whole model.
func (ws *WebServer) heatmapPanel(w http.ResponseWriter, r *http.Request) (*heatmap.Panel, func(), bool) {
	dbIDs, err := intsFromQuery(r.URL.Query()["dbId"])
	if err != nil {
		JSONError(w, err.Error(), http.StatusBadRequest)
		return nil, nil, false
	}

	panel := heatmap.NewPanel(ws.options.Shading, ws.log(r.Context()))

	closePanel, err := ws.openPanel(r, HEATMAP_EXTENSION_ID, panel, dbIDs)
	if err != nil {
		ws.panelError(w, r, "heatmap_properties", err)
		return nil, nil, false
	}
	return panel, closePanel, true
}

// selectChannel applies the "channel" query value. A channel without data
// is reported as a warning, not an error.
func selectChannel(w http.ResponseWriter, r *http.Request, panel *heatmap.Panel) (heatmap.Legend, string, bool) {
	channel := r.URL.Query().Get("channel")
	if channel == "" {
		channel = panel.Channel()
	}

	legend, err := panel.SelectChannel(channel)
	switch {
	case errors.Is(err, heatmap.ErrNoChannelData):
		return legend, err.Error(), true
	case err != nil:
		JSONError(w, err.Error(), http.StatusBadRequest)
		return legend, "", false
	}

	return legend, "", true
}

func (ws *WebServer) handleHeatmap(w http.ResponseWriter, r *http.Request) {
	panel, closePanel, ok := ws.heatmapPanel(w, r)
	if !ok {
		return
	}
	defer closePanel()

	legend, warning, ok := selectChannel(w, r, panel)
	if !ok {
		return
	}

	stats := make(map[string]*heatmap.ChannelStats)
	for _, channel := range panel.Channels() {
		if channelStats, found := panel.Stats(channel); found {
			stats[channel] = channelStats
		}
	}

	writeJSON(w, http.StatusOK, heatmapResponse{
		Channels: panel.Channels(),
		Channel:  panel.Channel(),
		Legend:   legend,
		Warning:  warning,
		Shading:  panel.Shading(),
		Stats:    stats,
	})
}

func (ws *WebServer) handleHeatmapValues(w http.ResponseWriter, r *http.Request) {
	panel, closePanel, ok := ws.heatmapPanel(w, r)
	if !ok {
		return
	}
	defer closePanel()

	_, warning, ok := selectChannel(w, r, panel)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, heatmapValuesResponse{
		Channel:  panel.Channel(),
		Warning:  warning,
		Readings: panel.Values(),
	})
}
