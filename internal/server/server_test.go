package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monorkin/stone-hub/aps/api"
	"github.com/monorkin/stone-hub/internal/database"
	"github.com/monorkin/stone-hub/internal/grid"
	"github.com/monorkin/stone-hub/internal/heatmap"
	"github.com/monorkin/stone-hub/internal/metrics"
	"github.com/monorkin/stone-hub/internal/models"
	"github.com/monorkin/stone-hub/internal/props"
	"github.com/monorkin/stone-hub/internal/scene"
	"github.com/monorkin/stone-hub/internal/selection"
)

const versionID = "urn:adsk.wipprod:fs.file:vf.abc123?version=1"

func elements() []props.Element {
	return []props.Element{
		{DBID: 1, Name: "Panel [1]", Properties: []props.Property{
			{DisplayName: "Weight", DisplayValue: props.Number(50), Units: "lb"},
			{DisplayName: "Volume", DisplayValue: props.Number(1)},
			{DisplayName: "Comments", DisplayValue: props.Text("P2-3")},
			{DisplayName: "Level", DisplayValue: props.Text("Level 1"), DisplayCategory: "Constraints"},
		}},
		{DBID: 2, Name: "Panel [2]", Properties: []props.Property{
			{DisplayName: "Weight", DisplayValue: props.Number(150), Units: "lb"},
			{DisplayName: "Volume", DisplayValue: props.Number(3)},
			{DisplayName: "Comments", DisplayValue: props.Text("P1-1")},
			{DisplayName: "Level", DisplayValue: props.Text("Level 1"), DisplayCategory: "Constraints"},
		}},
	}
}

type testServer struct {
	*WebServer
	aps     *http.ServeMux
	changes [][]selection.Model
}

func newTestServer(t *testing.T, configure ...func(*Options)) *testServer {
	t.Helper()

	db, err := database.Open(filepath.Join(t.TempDir(), "test.sqlite"))
	require.NoError(t, err)

	apsMux := http.NewServeMux()
	apsServer := httptest.NewServer(apsMux)
	t.Cleanup(apsServer.Close)

	client := api.NewClient(api.Config{
		ClientID:     "client",
		ClientSecret: "secret",
		CallbackURL:  "http://localhost:8080/api/auth/callback",
		BaseURL:      apsServer.URL,
		ProfileURL:   apsServer.URL + "/userinfo",
	})

	ts := &testServer{aps: apsMux}
	options := Options{
		SessionSecret: "test-secret",
		Sources: func(urn, accessToken string) props.Source {
			return props.StaticSource(elements())
		},
		OnSelectionChanged: func(models []selection.Model) {
			ts.changes = append(ts.changes, models)
		},
	}
	for _, apply := range configure {
		apply(&options)
	}
	ts.WebServer = NewWebServer(client, db, options, nil)

	return ts
}

func (ts *testServer) sessionCookie(t *testing.T, expiresAt time.Time) *http.Cookie {
	t.Helper()

	recorder := httptest.NewRecorder()
	require.NoError(t, ts.sessions.save(recorder, &Session{
		Internal: &api.Token{AccessToken: "internal", RefreshToken: "refresh", ExpiresAt: expiresAt},
		Public:   &api.Token{AccessToken: "public", ExpiresAt: expiresAt},
	}))

	cookies := recorder.Result().Cookies()
	require.Len(t, cookies, 1)
	return cookies[0]
}

func (ts *testServer) do(t *testing.T, method, target string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	request := httptest.NewRequest(method, target, reader)
	if cookie != nil {
		request.AddCookie(cookie)
	}

	recorder := httptest.NewRecorder()
	ts.Handler().ServeHTTP(recorder, request)
	return recorder
}

func decode[T any](t *testing.T, recorder *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &out), recorder.Body.String())
	return out
}

func TestGridConfig(t *testing.T) {
	ts := newTestServer(t)

	response := ts.do(t, http.MethodGet, "/api/grid/config", nil, nil)
	require.Equal(t, http.StatusOK, response.Code)

	config := decode[grid.Config](t, response)
	assert.Equal(t, grid.FieldLevel, config.GroupBy)
	assert.Equal(t, grid.ShippingStatuses, config.ShippingStatuses)
	assert.NotEmpty(t, response.Header().Get(REQUEST_ID_HEADER))
}

func TestSelectionLifecycle(t *testing.T) {
	ts := newTestServer(t)
	body := addSelectionRequest{VersionID: versionID, ItemName: "Tower.rvt", Version: "V1"}

	response := ts.do(t, http.MethodPost, "/api/selection", body, nil)
	require.Equal(t, http.StatusCreated, response.Code)

	response = ts.do(t, http.MethodPost, "/api/selection", body, nil)
	require.Equal(t, http.StatusOK, response.Code)
	assert.Equal(t, false, decode[map[string]any](t, response)["added"])

	models := decode[[]selection.Model](t, ts.do(t, http.MethodGet, "/api/selection", nil, nil))
	require.Len(t, models, 1)
	urn := models[0].URN

	entries := decode[[]checklistEntry](t, ts.do(t, http.MethodGet, "/api/models?loaded="+urn, nil, nil))
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Checked)
	assert.Equal(t, "Tower.rvt (V1)", entries[0].Name)

	response = ts.do(t, http.MethodDelete, "/api/selection", nil, nil)
	require.Equal(t, http.StatusNoContent, response.Code)

	models = decode[[]selection.Model](t, ts.do(t, http.MethodGet, "/api/selection", nil, nil))
	assert.Empty(t, models)

	require.Len(t, ts.changes, 2)
	assert.Len(t, ts.changes[0], 1)
	assert.Empty(t, ts.changes[1])
}

func TestAddSelectionRejectsMissingPattern(t *testing.T) {
	ts := newTestServer(t)

	response := ts.do(t, http.MethodPost, "/api/selection", addSelectionRequest{
		VersionID: "urn:adsk.wipprod:dm.lineage:xyz",
		ItemName:  "Tower.rvt",
		Version:   "V1",
	}, nil)

	assert.Equal(t, http.StatusBadRequest, response.Code)
	assert.Contains(t, response.Body.String(), selection.ErrNoPattern.Error())
}

func TestReplaceScene(t *testing.T) {
	ts := newTestServer(t)

	response := ts.do(t, http.MethodPost, "/api/scene", sceneRequest{
		Loaded: []scene.LoadedModel{{ID: 1, URN: "old"}, {ID: 2, URN: "a"}},
		URNs:   []string{"a", "b"},
	}, nil)
	require.Equal(t, http.StatusOK, response.Code)

	result := decode[sceneResponse](t, response)
	require.Len(t, result.Ops, 4)
	assert.Equal(t, scene.OpUnload, result.Ops[0].Kind)
	assert.Equal(t, scene.OpUnload, result.Ops[1].Kind)
	assert.Equal(t, scene.OpLoad, result.Ops[2].Kind)
	assert.Equal(t, scene.OpLoad, result.Ops[3].Kind)
	require.Len(t, result.Models, 2)
	assert.Equal(t, "a", result.Models[0].URN)
	assert.Equal(t, "b", result.Models[1].URN)
}

func TestReplaceSceneRejectsEmptyURN(t *testing.T) {
	ts := newTestServer(t)

	response := ts.do(t, http.MethodPost, "/api/scene", sceneRequest{URNs: []string{""}}, nil)
	assert.Equal(t, http.StatusBadRequest, response.Code)
}

func TestFocus(t *testing.T) {
	ts := newTestServer(t)

	response := ts.do(t, http.MethodPost, "/api/scene/focus", focusRequest{DBID: 7}, nil)
	require.Equal(t, http.StatusOK, response.Code)

	result := decode[sceneResponse](t, response)
	require.Len(t, result.Ops, 2)
	assert.Equal(t, scene.OpIsolate, result.Ops[0].Kind)
	assert.Equal(t, scene.OpFitToView, result.Ops[1].Kind)
	assert.Equal(t, []int{7}, result.Ops[1].DBIDs)
}

func TestGridRequiresSession(t *testing.T) {
	ts := newTestServer(t)

	response := ts.do(t, http.MethodPost, "/api/models/dXJu/grid", gridRequest{}, nil)
	assert.Equal(t, http.StatusUnauthorized, response.Code)
}

func TestGrid(t *testing.T) {
	ts := newTestServer(t)
	cookie := ts.sessionCookie(t, time.Now().Add(time.Hour))

	response := ts.do(t, http.MethodPost, "/api/models/dXJu/grid", gridRequest{
		Filters: []grid.FilterSpec{{Param: "weight", Compare: ">", Value: "100"}},
	}, cookie)
	require.Equal(t, http.StatusOK, response.Code, response.Body.String())

	result := decode[struct {
		Total         int                 `json:"total"`
		Shown         int                 `json:"shown"`
		Groups        []grid.Group        `json:"groups"`
		FilterOptions map[string][]string `json:"filterOptions"`
	}](t, response)
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 1, result.Shown)
	require.Len(t, result.Groups, 1)
	assert.Equal(t, "Level 1", result.Groups[0].Key)
	assert.Equal(t, []string{"P1-1", "P2-3"}, result.FilterOptions[grid.FieldComments])

	response = ts.do(t, http.MethodPost, "/api/models/dXJu/grid", gridRequest{
		Filters: []grid.FilterSpec{{Param: "weight", Compare: ">="}},
	}, cookie)
	assert.Equal(t, http.StatusBadRequest, response.Code)
}

func TestGridSort(t *testing.T) {
	ts := newTestServer(t)
	cookie := ts.sessionCookie(t, time.Now().Add(time.Hour))

	response := ts.do(t, http.MethodPost, "/api/models/dXJu/grid", gridRequest{Sort: grid.FieldComments}, cookie)
	require.Equal(t, http.StatusOK, response.Code)

	view := decode[grid.View](t, response)
	require.Len(t, view.Groups, 1)
	require.Len(t, view.Groups[0].Rows, 2)
	assert.Equal(t, 2, view.Groups[0].Rows[0].DBID)

	response = ts.do(t, http.MethodPost, "/api/models/dXJu/grid", gridRequest{Sort: "colour"}, cookie)
	assert.Equal(t, http.StatusBadRequest, response.Code)
}

func TestHeatmap(t *testing.T) {
	ts := newTestServer(t)
	cookie := ts.sessionCookie(t, time.Now().Add(time.Hour))

	response := ts.do(t, http.MethodGet, "/api/models/dXJu/heatmap?channel=Weight", nil, cookie)
	require.Equal(t, http.StatusOK, response.Code, response.Body.String())

	result := decode[heatmapResponse](t, response)
	assert.Equal(t, "Weight", result.Channel)
	assert.Equal(t, []string{"50.000 lb", "100.00 lb", "150.000 lb"}, result.Legend.Labels)
	assert.Equal(t, heatmap.DefaultShadingConfig(), result.Shading)
	assert.Empty(t, result.Warning)

	response = ts.do(t, http.MethodGet, "/api/models/dXJu/heatmap?channel=Cavity", nil, cookie)
	require.Equal(t, http.StatusOK, response.Code)
	assert.NotEmpty(t, decode[heatmapResponse](t, response).Warning)

	response = ts.do(t, http.MethodGet, "/api/models/dXJu/heatmap?channel=Colour", nil, cookie)
	assert.Equal(t, http.StatusBadRequest, response.Code)
}

func TestHeatmapValues(t *testing.T) {
	ts := newTestServer(t)
	cookie := ts.sessionCookie(t, time.Now().Add(time.Hour))

	response := ts.do(t, http.MethodGet, "/api/models/dXJu/heatmap/values?channel=Volume&dbId=1&dbId=2", nil, cookie)
	require.Equal(t, http.StatusOK, response.Code, response.Body.String())

	result := decode[heatmapValuesResponse](t, response)
	require.Len(t, result.Readings, 2)
	require.NotNil(t, result.Readings[0].Value)
	require.NotNil(t, result.Readings[1].Value)
	assert.Equal(t, 0.0, *result.Readings[0].Value)
	assert.Equal(t, 1.0, *result.Readings[1].Value)

	response = ts.do(t, http.MethodGet, "/api/models/dXJu/heatmap/values?dbId=x", nil, cookie)
	assert.Equal(t, http.StatusBadRequest, response.Code)
}

func TestTokenRefreshesExpiredSession(t *testing.T) {
	ts := newTestServer(t)
	ts.aps.HandleFunc("/authentication/v2/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		scope := r.Form.Get("scope")
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "new-" + strings.ReplaceAll(scope, ":", "-"),
			"refresh_token": "refresh-2",
			"expires_in":    3600,
		})
	})
	cookie := ts.sessionCookie(t, time.Now().Add(-time.Minute))

	response := ts.do(t, http.MethodGet, "/api/auth/token", nil, cookie)
	require.Equal(t, http.StatusOK, response.Code, response.Body.String())

	token := decode[map[string]any](t, response)
	assert.Equal(t, "new-viewables-read", token["access_token"])
	assert.InDelta(t, 3600, token["expires_in"], 2)

	var refreshed *http.Cookie
	for _, c := range response.Result().Cookies() {
		if c.Name == SESSION_COOKIE {
			refreshed = c
		}
	}
	require.NotNil(t, refreshed)
}

func TestTokenRefreshFailureClearsSession(t *testing.T) {
	ts := newTestServer(t)
	ts.aps.HandleFunc("/authentication/v2/token", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid_grant", http.StatusBadRequest)
	})
	cookie := ts.sessionCookie(t, time.Now().Add(-time.Minute))

	response := ts.do(t, http.MethodGet, "/api/auth/token", nil, cookie)
	assert.Equal(t, http.StatusUnauthorized, response.Code)
}

func TestHubsUpstreamError(t *testing.T) {
	ts := newTestServer(t)
	ts.aps.HandleFunc("/project/v1/hubs", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	})
	cookie := ts.sessionCookie(t, time.Now().Add(time.Hour))

	response := ts.do(t, http.MethodGet, "/api/hubs", nil, cookie)
	require.Equal(t, http.StatusBadGateway, response.Code)

	body := decode[map[string]any](t, response)
	assert.Equal(t, "forbidden", body["error"])
	assert.Equal(t, float64(http.StatusForbidden), body["status"])
}

func TestHubs(t *testing.T) {
	ts := newTestServer(t)
	ts.aps.HandleFunc("/project/v1/hubs", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer internal", r.Header.Get("Authorization"))
		w.Write([]byte(`{"data":[{"id":"b.1","type":"hubs","attributes":{"name":"Stone"}}]}`))
	})
	cookie := ts.sessionCookie(t, time.Now().Add(time.Hour))

	response := ts.do(t, http.MethodGet, "/api/hubs", nil, cookie)
	require.Equal(t, http.StatusOK, response.Code)

	hubs := decode[[]api.Resource](t, response)
	require.Len(t, hubs, 1)
	assert.Equal(t, "Stone", hubs[0].Attributes.Name)
}

func TestLoginAndLogout(t *testing.T) {
	ts := newTestServer(t)

	response := ts.do(t, http.MethodGet, "/api/auth/login", nil, nil)
	require.Equal(t, http.StatusFound, response.Code)
	assert.Contains(t, response.Header().Get("Location"), "/authentication/v2/authorize?")

	response = ts.do(t, http.MethodGet, "/api/auth/logout", nil, nil)
	require.Equal(t, http.StatusFound, response.Code)
	cookies := response.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

func TestLogoutDeletesSession(t *testing.T) {
	ts := newTestServer(t)
	cookie := ts.sessionCookie(t, time.Now().Add(time.Hour))

	require.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/auth/token", nil, cookie).Code)

	response := ts.do(t, http.MethodGet, "/api/auth/logout", nil, cookie)
	require.Equal(t, http.StatusFound, response.Code)

	var count int64
	require.NoError(t, ts.sessions.db.Model(&models.Session{}).Count(&count).Error)
	assert.Zero(t, count)

	// The old cookie no longer resolves to a session.
	assert.Equal(t, http.StatusUnauthorized, ts.do(t, http.MethodGet, "/api/auth/token", nil, cookie).Code)
}

func TestSessionCookieCarriesOnlyTheID(t *testing.T) {
	ts := newTestServer(t)
	expiresAt := time.Now().Add(time.Hour)
	session := &Session{
		Internal: &api.Token{AccessToken: strings.Repeat("i", 1200), RefreshToken: strings.Repeat("r", 1200), ExpiresAt: expiresAt},
		Public:   &api.Token{AccessToken: strings.Repeat("p", 1200), RefreshToken: strings.Repeat("q", 1200), ExpiresAt: expiresAt},
	}

	recorder := httptest.NewRecorder()
	require.NoError(t, ts.sessions.save(recorder, session))
	require.NotEmpty(t, session.ID)

	header := recorder.Header().Get("Set-Cookie")
	assert.Less(t, len(header), 512)
	assert.NotContains(t, header, "iiii")

	request := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, cookie := range recorder.Result().Cookies() {
		request.AddCookie(cookie)
	}

	loaded, err := ts.sessions.load(request)
	require.NoError(t, err)
	assert.Equal(t, session.ID, loaded.ID)
	assert.Equal(t, session.Internal.AccessToken, loaded.Internal.AccessToken)
	assert.Equal(t, session.Public.RefreshToken, loaded.Public.RefreshToken)

	// Saving again keeps the id and replaces the tokens.
	session.Public.AccessToken = "rotated"
	require.NoError(t, ts.sessions.save(httptest.NewRecorder(), session))
	loaded, err = ts.sessions.load(request)
	require.NoError(t, err)
	assert.Equal(t, "rotated", loaded.Public.AccessToken)
}

func TestSessionRejectsForgedCookie(t *testing.T) {
	ts := newTestServer(t)

	response := ts.do(t, http.MethodGet, "/api/auth/token", nil, &http.Cookie{Name: SESSION_COOKIE, Value: "forged"})
	assert.Equal(t, http.StatusUnauthorized, response.Code)
}

func TestExpiredSessionIsGone(t *testing.T) {
	ts := newTestServer(t)
	cookie := ts.sessionCookie(t, time.Now().Add(time.Hour))

	ts.sessions.now = func() time.Time { return time.Now().UTC().Add(SESSION_MAX_AGE + time.Hour) }

	response := ts.do(t, http.MethodGet, "/api/auth/token", nil, cookie)
	assert.Equal(t, http.StatusUnauthorized, response.Code)
}

func TestPanelSetupFailureIsInternal(t *testing.T) {
	ts := newTestServer(t, func(options *Options) {
		options.Shading = heatmap.ShadingConfig{Confidence: 50, PowerParameter: 2, Alpha: 2}
	})
	cookie := ts.sessionCookie(t, time.Now().Add(time.Hour))
	upstreamErrors := testutil.ToFloat64(metrics.UpstreamErrorsTotal.WithLabelValues("heatmap_properties"))

	response := ts.do(t, http.MethodGet, "/api/models/dXJu/heatmap", nil, cookie)
	assert.Equal(t, http.StatusInternalServerError, response.Code)
	assert.Contains(t, response.Body.String(), "alpha")
	assert.Equal(t, upstreamErrors, testutil.ToFloat64(metrics.UpstreamErrorsTotal.WithLabelValues("heatmap_properties")))
}

func TestSelectionWritersShareChangePath(t *testing.T) {
	ts := newTestServer(t)
	model, err := selection.FromVersionID(versionID, "Tower.rvt", "V1")
	require.NoError(t, err)

	added, err := ts.AddSelection(context.Background(), model)
	require.NoError(t, err)
	assert.True(t, added)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SelectedModels))

	require.NoError(t, ts.ClearSelection(context.Background()))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.SelectedModels))

	require.Len(t, ts.changes, 2)
	assert.Empty(t, ts.changes[1])

	listed, err := ts.SelectedModels()
	require.NoError(t, err)
	assert.NotNil(t, listed)
	assert.Empty(t, listed)
}

func TestCallbackRequiresCode(t *testing.T) {
	ts := newTestServer(t)

	response := ts.do(t, http.MethodGet, "/api/auth/callback", nil, nil)
	assert.Equal(t, http.StatusBadRequest, response.Code)
}
