package server

import (
	"net/http"
	"net/url"

	"github.com/gorilla/mux"
)

// pathVar returns a decoded route variable. The router matches on the
// encoded path so ids may contain escaped slashes.
func pathVar(r *http.Request, name string) string {
	value := mux.Vars(r)[name]
	if decoded, err := url.PathUnescape(value); err == nil {
		return decoded
	}

	return value
}

func (ws *WebServer) handleHubs(w http.ResponseWriter, r *http.Request) {
	hubs, err := ws.aps.Hubs(r.Context(), sessionFrom(r.Context()).Internal.AccessToken)
	if err != nil {
		ws.upstreamError(w, r, "hubs", err)
		return
	}

	writeJSON(w, http.StatusOK, hubs)
}

func (ws *WebServer) handleProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := ws.aps.Projects(r.Context(), pathVar(r, "hub"), sessionFrom(r.Context()).Internal.AccessToken)
	if err != nil {
		ws.upstreamError(w, r, "projects", err)
		return
	}

	writeJSON(w, http.StatusOK, projects)
}

func (ws *WebServer) handleContents(w http.ResponseWriter, r *http.Request) {
	contents, err := ws.aps.ProjectContents(
		r.Context(),
		pathVar(r, "hub"),
		pathVar(r, "project"),
		r.URL.Query().Get("folder_id"),
		sessionFrom(r.Context()).Internal.AccessToken,
	)
	if err != nil {
		ws.upstreamError(w, r, "contents", err)
		return
	}

	writeJSON(w, http.StatusOK, contents)
}

func (ws *WebServer) handleVersions(w http.ResponseWriter, r *http.Request) {
	versions, err := ws.aps.ItemVersions(r.Context(), pathVar(r, "project"), pathVar(r, "item"), sessionFrom(r.Context()).Internal.AccessToken)
	if err != nil {
		ws.upstreamError(w, r, "versions", err)
		return
	}

	writeJSON(w, http.StatusOK, versions)
}
