package server

import (
	"net/http"
)

func (ws *WebServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, ws.aps.AuthorizeURL(), http.StatusFound)
}

// handleCallback exchanges the authorization code and derives the public
// token, the same way a refresh does.
func (ws *WebServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		JSONError(w, "Missing authorization code", http.StatusBadRequest)
		return
	}

	token, err := ws.aps.ExchangeCode(r.Context(), code)
	if err != nil {
		ws.upstreamError(w, r, "exchange_code", err)
		return
	}

	internal, public, err := ws.aps.RefreshTokens(r.Context(), token.RefreshToken)
	if err != nil {
		ws.upstreamError(w, r, "refresh_tokens", err)
		return
	}

	if err := ws.sessions.save(w, &Session{Internal: internal, Public: public}); err != nil {
		ws.log(r.Context()).Error("Failed to save session", "error", err)
		JSONError(w, "Failed to save session", http.StatusInternalServerError)
		return
	}

	ws.log(r.Context()).Info("User logged in")
	http.Redirect(w, r, "/", http.StatusFound)
}

func (ws *WebServer) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := ws.sessions.clear(w, r); err != nil {
		ws.log(r.Context()).Error("Failed to clear session", "error", err)
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

func (ws *WebServer) handleToken(w http.ResponseWriter, r *http.Request) {
	public := sessionFrom(r.Context()).Public

	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": public.AccessToken,
		"expires_in":   public.RemainingSeconds(ws.now()),
	})
}

func (ws *WebServer) handleProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := ws.aps.Profile(r.Context(), sessionFrom(r.Context()).Internal.AccessToken)
	if err != nil {
		ws.upstreamError(w, r, "profile", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"name": profile.Name})
}
