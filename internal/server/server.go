// Package server exposes the hub browser, selection and panel engines over
// HTTP for the viewer extensions.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/monorkin/stone-hub/aps/api"
	"github.com/monorkin/stone-hub/internal/heatmap"
	"github.com/monorkin/stone-hub/internal/metrics"
	"github.com/monorkin/stone-hub/internal/props"
	"github.com/monorkin/stone-hub/internal/selection"
)

const (
	READ_HEADER_TIMEOUT = 10 * time.Second
	MAX_BODY_BYTES      = 1 << 20
)

// SourceFunc returns the property source for one model.
type SourceFunc func(urn, accessToken string) props.Source

type Options struct {
	Addr          string
	SessionSecret string
	SecureCookies bool
	WWWRoot       string
	Shading       heatmap.ShadingConfig
	// Sources overrides where element properties come from. Defaults to
	// the model derivative service.
	Sources SourceFunc
	// OnSelectionChanged is called after the selection was modified.
	OnSelectionChanged func([]selection.Model)
}

// WebServer handles HTTP requests
type WebServer struct {
	server    *http.Server
	router    *mux.Router
	aps       *api.Client
	sessions  *sessionStore
	selection *selection.Repository
	options   Options
	logger    *slog.Logger
	now       func() time.Time

	// Serializes selection writes so the change callback sees them in order.
	selectionMutex sync.Mutex
}

// NewWebServer creates a new web server. The selection and the sessions are
// both kept in db.
func NewWebServer(client *api.Client, db *gorm.DB, options Options, logger *slog.Logger) *WebServer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if options.Shading == (heatmap.ShadingConfig{}) {
		options.Shading = heatmap.DefaultShadingConfig()
	}

	ws := &WebServer{
		aps:       client,
		sessions:  newSessionStore(db, options.SessionSecret, options.SecureCookies),
		selection: selection.NewRepository(db),
		options:   options,
		logger:    logger,
		now:       time.Now,
	}

	if ws.options.Sources == nil {
		ws.options.Sources = func(urn, accessToken string) props.Source {
			return api.PropertySource{Client: client, URN: urn, AccessToken: accessToken}
		}
	}

	ws.router = ws.routes()
	ws.server = &http.Server{
		Addr:              options.Addr,
		Handler:           ws.router,
		ReadHeaderTimeout: READ_HEADER_TIMEOUT,
	}

	return ws
}

func (ws *WebServer) routes() *mux.Router {
	router := mux.NewRouter().UseEncodedPath()
	router.Use(ws.requestLogger)

	router.HandleFunc("/api/auth/login", ws.handleLogin).Methods(http.MethodGet)
	router.HandleFunc("/api/auth/callback", ws.handleCallback).Methods(http.MethodGet)
	router.HandleFunc("/api/auth/logout", ws.handleLogout).Methods(http.MethodGet)

	router.HandleFunc("/api/models", ws.handleModels).Methods(http.MethodGet)
	router.HandleFunc("/api/selection", ws.handleListSelection).Methods(http.MethodGet)
	router.HandleFunc("/api/selection", ws.handleAddSelection).Methods(http.MethodPost)
	router.HandleFunc("/api/selection", ws.handleClearSelection).Methods(http.MethodDelete)
	router.HandleFunc("/api/scene", ws.handleReplaceScene).Methods(http.MethodPost)
	router.HandleFunc("/api/scene/focus", ws.handleFocus).Methods(http.MethodPost)
	router.HandleFunc("/api/grid/config", ws.handleGridConfig).Methods(http.MethodGet)

	authenticated := router.PathPrefix("/api").Subrouter()
	authenticated.Use(ws.authRefresh)
	authenticated.HandleFunc("/auth/token", ws.handleToken).Methods(http.MethodGet)
	authenticated.HandleFunc("/auth/profile", ws.handleProfile).Methods(http.MethodGet)

	authenticated.HandleFunc("/hubs", ws.handleHubs).Methods(http.MethodGet)
	authenticated.HandleFunc("/hubs/{hub}/projects", ws.handleProjects).Methods(http.MethodGet)
	authenticated.HandleFunc("/hubs/{hub}/projects/{project}/contents", ws.handleContents).Methods(http.MethodGet)
	authenticated.HandleFunc("/hubs/{hub}/projects/{project}/contents/{item}/versions", ws.handleVersions).Methods(http.MethodGet)

	authenticated.HandleFunc("/models/{urn}/grid", ws.handleGrid).Methods(http.MethodPost)
	authenticated.HandleFunc("/models/{urn}/heatmap", ws.handleHeatmap).Methods(http.MethodGet)
	authenticated.HandleFunc("/models/{urn}/heatmap/values", ws.handleHeatmapValues).Methods(http.MethodGet)

	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	if ws.options.WWWRoot != "" {
		router.PathPrefix("/").Handler(http.FileServer(http.Dir(ws.options.WWWRoot)))
	}

	return router
}

// Handler exposes the router, mostly for tests.
func (ws *WebServer) Handler() http.Handler {
	return ws.router
}

// Start starts the web server
func (ws *WebServer) Start() error {
	ws.logger.Info("Starting web server", "addr", ws.options.Addr)

	err := ws.server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("web server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the web server
func (ws *WebServer) Shutdown(ctx context.Context) error {
	ws.logger.Info("Shutting down web server")
	return ws.server.Shutdown(ctx)
}

func (ws *WebServer) log(ctx context.Context) *slog.Logger {
	if requestID, ok := ctx.Value(requestIDKey).(string); ok {
		return ws.logger.With("request_id", requestID)
	}

	return ws.logger
}

// JSONError sends a JSON formatted error response with the given status code and message
func JSONError(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, statusCode, struct {
		Error string `json:"error"`
	}{
		Error: message,
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	jsonBytes, err := json.Marshal(body)
	if err != nil {
		http.Error(w, `{"error":"Internal server error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	w.Write(jsonBytes)
}

func decodeJSON(r *http.Request, out any) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, MAX_BODY_BYTES))
	if err := decoder.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid request body: %w", err)
	}

	return nil
}

// upstreamError maps an APS failure onto a response.
func (ws *WebServer) upstreamError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	metrics.RecordUpstreamError(operation)
	ws.log(r.Context()).Error("APS request failed", "operation", operation, "error", err)

	var statusErr *api.StatusError
	switch {
	case errors.Is(err, api.ErrUnauthorized):
		JSONError(w, "Unauthorized", http.StatusUnauthorized)
	case errors.Is(err, api.ErrNotReady):
		JSONError(w, err.Error(), http.StatusServiceUnavailable)
	case errors.Is(err, api.ErrNoViewable):
		JSONError(w, err.Error(), http.StatusNotFound)
	case errors.As(err, &statusErr):
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"error":  statusErr.Body,
			"status": statusErr.StatusCode,
		})
	default:
		JSONError(w, "Upstream request failed: "+err.Error(), http.StatusBadGateway)
	}
}

func intsFromQuery(values []string) ([]int, error) {
	ids := make([]int, 0, len(values))
	for _, value := range values {
		id, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("invalid element id %q", value)
		}
		ids = append(ids, id)
	}

	return ids, nil
}
