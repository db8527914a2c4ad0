package server

import (
	"context"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/monorkin/stone-hub/internal/metrics"
)

const (
	REQUEST_ID_HEADER = "X-Request-ID"

	requestIDKey contextKey = "request_id"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (recorder *statusRecorder) WriteHeader(status int) {
	recorder.status = status
	recorder.ResponseWriter.WriteHeader(status)
}

// requestLogger tags each request with an id, logs it and records metrics
// under the matched route template.
func (ws *WebServer) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		timer := metrics.NewTimer()

		requestID := r.Header.Get(REQUEST_ID_HEADER)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(REQUEST_ID_HEADER, requestID)

		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)

		next.ServeHTTP(recorder, r.WithContext(ctx))

		route := "unmatched"
		if current := mux.CurrentRoute(r); current != nil {
			if template, err := current.GetPathTemplate(); err == nil {
				route = template
			}
		}

		metrics.RecordRequest(route, r.Method, strconv.Itoa(recorder.status), timer.Duration())
		ws.log(ctx).Debug("Request served",
			"method", r.Method,
			"route", route,
			"status", recorder.status,
			"duration", timer.Duration(),
		)
	})
}
