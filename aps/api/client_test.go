package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(Config{
		ClientID:     "client",
		ClientSecret: "secret",
		CallbackURL:  "http://localhost:8080/api/auth/callback",
		BaseURL:      server.URL,
		ProfileURL:   server.URL + "/userinfo",
	})
}

func writeJSON(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

func TestAuthorizeURL(t *testing.T) {
	client := NewClient(Config{ClientID: "abc", CallbackURL: "http://localhost:8080/api/auth/callback"})

	url := client.AuthorizeURL()
	assert.Contains(t, url, BASE_URL+AUTHORIZE_PATH+"?")
	assert.Contains(t, url, "redirect_uri=http%3A%2F%2Flocalhost%3A8080%2Fapi%2Fauth%2Fcallback")
	assert.Contains(t, url, "client_id=abc")
	assert.Contains(t, url, "response_type=code")
	assert.Contains(t, url, "scope=data%3Aread")
}

func TestRefreshTokens(t *testing.T) {
	var scopes []string
	mux := http.NewServeMux()
	mux.HandleFunc(TOKEN_PATH, func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "client", user)
		assert.Equal(t, "secret", pass)

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.Form.Get("grant_type"))

		// Without a scope the grant keeps the scopes of the login.
		scope := r.Form.Get("scope")
		scopes = append(scopes, scope)
		if scope == "" {
			scope = "data:read"
		}
		writeJSON(w, map[string]any{
			"access_token":  "access-" + scope,
			"refresh_token": "refresh-" + scope,
			"token_type":    "Bearer",
			"expires_in":    3600,
		})
	})
	client := newTestClient(t, mux)

	internal, public, err := client.RefreshTokens(context.Background(), "old")
	require.NoError(t, err)
	assert.Equal(t, []string{"", "viewables:read"}, scopes)
	assert.Equal(t, "access-data:read", internal.AccessToken)
	assert.Equal(t, "access-viewables:read", public.AccessToken)
	assert.Equal(t, "refresh-viewables:read", internal.RefreshToken)
	assert.False(t, internal.Expired(time.Now(), time.Minute))
	assert.False(t, public.Expired(time.Now(), time.Minute))
	assert.InDelta(t, 3600, public.RemainingSeconds(time.Now()), 2)
}

func TestExchangeCode(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, TOKEN_PATH, r.URL.Path)

		user, _, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "client", user)

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.Form.Get("grant_type"))
		assert.Equal(t, "code-1", r.Form.Get("code"))
		assert.Equal(t, "http://localhost:8080/api/auth/callback", r.Form.Get("redirect_uri"))

		writeJSON(w, map[string]any{
			"access_token":  "access",
			"refresh_token": "refresh",
			"token_type":    "Bearer",
			"expires_in":    1800,
		})
	}))

	token, err := client.ExchangeCode(context.Background(), "code-1")
	require.NoError(t, err)
	assert.Equal(t, "access", token.AccessToken)
	assert.Equal(t, "refresh", token.RefreshToken)
	assert.InDelta(t, 1800, token.RemainingSeconds(time.Now()), 2)
	assert.Equal(t, token.ExpiresAt, token.OAuth2().Expiry)
}

func TestExchangeCodeUnauthorized(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad client", http.StatusUnauthorized)
	}))

	_, err := client.ExchangeCode(context.Background(), "code")
	assert.ErrorIs(t, err, ErrUnauthorized)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, "bad client", statusErr.Body)
}

func TestTokenExpired(t *testing.T) {
	now := time.Now()

	assert.True(t, (*Token)(nil).Expired(now, 0))
	assert.True(t, (&Token{AccessToken: "x", ExpiresAt: now.Add(30 * time.Second)}).Expired(now, time.Minute))
	assert.False(t, (&Token{AccessToken: "x", ExpiresAt: now.Add(time.Hour)}).Expired(now, time.Minute))
}

func TestProfile(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/userinfo", r.URL.Path)
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		writeJSON(w, map[string]any{"name": "Jo Doe", "email": "jo@example.com"})
	}))

	profile, err := client.Profile(context.Background(), "token")
	require.NoError(t, err)
	assert.Equal(t, "Jo Doe", profile.Name)
}

func TestHubsFollowsPagination(t *testing.T) {
	var serverURL string
	mux := http.NewServeMux()
	mux.HandleFunc("/project/v1/hubs", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			writeJSON(w, map[string]any{"data": []map[string]any{{"id": "b.2", "type": "hubs", "attributes": map[string]any{"name": "Second"}}}})
			return
		}
		writeJSON(w, map[string]any{
			"data":  []map[string]any{{"id": "b.1", "type": "hubs", "attributes": map[string]any{"name": "First"}}},
			"links": map[string]any{"next": map[string]any{"href": serverURL + "/project/v1/hubs?page=2"}},
		})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	serverURL = server.URL

	client := NewClient(Config{BaseURL: server.URL})
	hubs, err := client.Hubs(context.Background(), "token")
	require.NoError(t, err)
	require.Len(t, hubs, 2)
	assert.Equal(t, "First", hubs[0].Attributes.Name)
	assert.Equal(t, "Second", hubs[1].Attributes.Name)
}

func TestProjectContents(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/project/v1/hubs/h1/projects/p1/topFolders", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"data": []map[string]any{{"id": "f1", "type": "folders"}}})
	})
	mux.HandleFunc("/data/v1/projects/p1/folders/f1/contents", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"data": []map[string]any{{"id": "i1", "type": "items", "attributes": map[string]any{"displayName": "Tower.rvt"}}}})
	})
	client := newTestClient(t, mux)

	top, err := client.ProjectContents(context.Background(), "h1", "p1", "", "token")
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.True(t, top[0].IsFolder())

	contents, err := client.ProjectContents(context.Background(), "h1", "p1", "f1", "token")
	require.NoError(t, err)
	require.Len(t, contents, 1)
	assert.False(t, contents[0].IsFolder())
	assert.Equal(t, "Tower.rvt", contents[0].Attributes.DisplayName)
}

func TestSplitMeasure(t *testing.T) {
	tests := []struct {
		input  string
		number float64
		unit   string
		text   bool
	}{
		{"150.000 lb", 150, "lb", false},
		{"2.5 ft^3", 2.5, "ft^3", false},
		{"-3 mm", -3, "mm", false},
		{"12", 12, "", false},
		{"P1-1", 0, "", true},
		{"150lb", 0, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			value, unit := SplitMeasure(tt.input)
			assert.Equal(t, tt.unit, unit)
			if tt.text {
				assert.True(t, value.IsText())
				return
			}
			require.True(t, value.IsNumber())
			number, _ := value.Float()
			assert.Equal(t, tt.number, number)
		})
	}
}

func TestSafeURN(t *testing.T) {
	assert.Equal(t, "ab-c_d", SafeURN("ab+c/d=="))
}

func TestPropertySource(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/modelderivative/v2/designdata/dXJu/metadata", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"data": map[string]any{"metadata": []map[string]any{
			{"name": "Sheet", "role": "2d", "guid": "g2"},
			{"name": "{3D}", "role": "3d", "guid": "g3", "isMasterView": true},
		}}})
	})
	mux.HandleFunc("/modelderivative/v2/designdata/dXJu/metadata/g3/properties", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "true", r.URL.Query().Get("forceget"))
		fmt.Fprint(w, `{"data":{"collection":[
			{"objectid":1,"name":"Panel [1]","properties":{
				"Constraints":{"Level":"Level 1"},
				"Dimensions":{"Volume":"2.500 ft^3","Weight":"150.000 lb"},
				"Identity Data":{"Comments":"P1-1"},
				"__internal__":{"Weight":"1"}
			}},
			{"objectid":2,"name":"Panel [2]","properties":{"Dimensions":{"Weight":90}}}
		]}}`)
	})
	client := newTestClient(t, mux)

	source := PropertySource{Client: client, URN: "dXJu", AccessToken: "token"}
	elements, err := source.BulkProperties(context.Background(), []int{1}, []string{"Level", "Weight", "Comments"})
	require.NoError(t, err)
	require.Len(t, elements, 1)

	element := elements[0]
	assert.Equal(t, "Panel [1]", element.Name)
	require.Len(t, element.Properties, 3)

	level, ok := element.Find("Level")
	require.True(t, ok)
	assert.Equal(t, "Constraints", level.DisplayCategory)

	weight, ok := element.Find("Weight")
	require.True(t, ok)
	assert.Equal(t, "lb", weight.Units)
	assert.Equal(t, "Dimensions", weight.DisplayCategory)
}

func TestPropertySourceNotReady(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))

	_, err := PropertySource{Client: client, URN: "dXJu"}.BulkProperties(context.Background(), nil, nil)
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestMasterViewable(t *testing.T) {
	viewable, err := MasterViewable([]Viewable{{Role: "2d", GUID: "a"}, {Role: "3d", GUID: "b"}})
	require.NoError(t, err)
	assert.Equal(t, "b", viewable.GUID)

	_, err = MasterViewable([]Viewable{{Role: "2d"}})
	assert.ErrorIs(t, err, ErrNoViewable)
}

func TestInstanceURL(t *testing.T) {
	assert.Equal(t, "http://192.168.1.20:8080/", Instance{IP: "192.168.1.20", Port: 8080}.URL())
	assert.Equal(t, "http://[fe80::1]:8080/", Instance{IP: "fe80::1", Port: 8080}.URL())
}
