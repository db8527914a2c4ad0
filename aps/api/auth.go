package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const (
	AUTHORIZE_PATH = "/authentication/v2/authorize"
	TOKEN_PATH     = "/authentication/v2/token"
)

var (
	InternalScopes = []string{"data:read"}
	PublicScopes   = []string{"viewables:read"}
)

// Token is the part of an oauth2.Token the session keeps.
type Token struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
}

func newToken(token *oauth2.Token) *Token {
	return &Token{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.TokenType,
		ExpiresAt:    token.Expiry,
	}
}

// OAuth2 converts the token back for use with an oauth2.TokenSource.
func (token *Token) OAuth2() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.TokenType,
		Expiry:       token.ExpiresAt,
	}
}

// Expired reports whether the token is past its expiry, or will be within
// margin.
func (token *Token) Expired(now time.Time, margin time.Duration) bool {
	return token == nil || token.AccessToken == "" || !now.Add(margin).Before(token.ExpiresAt)
}

// RemainingSeconds is the expires_in value to hand to the viewer.
func (token *Token) RemainingSeconds(now time.Time) int {
	remaining := int(token.ExpiresAt.Sub(now).Seconds())
	return max(remaining, 0)
}

type Profile struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

func (client *Client) oauthConfig(scopes []string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     client.config.ClientID,
		ClientSecret: client.config.ClientSecret,
		RedirectURL:  client.config.CallbackURL,
		Scopes:       scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   client.config.BaseURL + AUTHORIZE_PATH,
			TokenURL:  client.config.BaseURL + TOKEN_PATH,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
}

// oauthContext makes x/oauth2 use the client's timeout and transport.
func (client *Client) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, &client.httpClient)
}

// AuthorizeURL is where users are sent to log in with their Autodesk account.
func (client *Client) AuthorizeURL() string {
	return client.oauthConfig(InternalScopes).AuthCodeURL("")
}

// ExchangeCode trades an authorization code for an internal token.
func (client *Client) ExchangeCode(ctx context.Context, code string) (*Token, error) {
	token, err := client.oauthConfig(InternalScopes).Exchange(client.oauthContext(ctx), code)
	if err != nil {
		return nil, tokenError(err)
	}

	client.log(slog.LevelDebug, "Token issued", "grant_type", "authorization_code", "expires_at", token.Expiry)
	return newToken(token), nil
}

// RefreshTokens renews the internal token and derives a public token with
// viewer-only scopes from the new refresh token.
func (client *Client) RefreshTokens(ctx context.Context, refreshToken string) (internal *Token, public *Token, err error) {
	source := client.oauthConfig(InternalScopes).TokenSource(client.oauthContext(ctx), &oauth2.Token{RefreshToken: refreshToken})

	renewed, err := source.Token()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to refresh internal token: %w", tokenError(err))
	}
	internal = newToken(renewed)
	client.log(slog.LevelDebug, "Token issued", "grant_type", "refresh_token", "expires_at", renewed.Expiry)

	public, err = client.refreshScoped(ctx, internal.RefreshToken, PublicScopes)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to refresh public token: %w", err)
	}

	// The public refresh supersedes the internal one.
	internal.RefreshToken = public.RefreshToken

	return internal, public, nil
}

// refreshScoped runs a refresh grant that narrows the scopes. The
// oauth2.TokenSource refresh never sends a scope parameter.
func (client *Client) refreshScoped(ctx context.Context, refreshToken string, scopes []string) (*Token, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	form.Set("scope", strings.Join(scopes, " "))

	request, err := client.newRequest(ctx, http.MethodPost, client.config.BaseURL+TOKEN_PATH, "", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	request.SetBasicAuth(url.QueryEscape(client.config.ClientID), url.QueryEscape(client.config.ClientSecret))

	var token oauth2.Token
	if _, err := client.do(request, &token); err != nil {
		return nil, err
	}
	if token.AccessToken == "" {
		return nil, errors.New("token response without access_token")
	}
	if token.ExpiresIn > 0 {
		token.Expiry = time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
	}

	client.log(slog.LevelDebug, "Token issued", "grant_type", "refresh_token", "scope", form.Get("scope"), "expires_in", token.ExpiresIn)
	return newToken(&token), nil
}

// tokenError turns an oauth2 token endpoint failure into a *StatusError.
func tokenError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
		return &StatusError{
			StatusCode: retrieveErr.Response.StatusCode,
			Status:     retrieveErr.Response.Status,
			Body:       strings.TrimSpace(string(retrieveErr.Body)),
		}
	}

	return err
}

func (client *Client) Profile(ctx context.Context, accessToken string) (*Profile, error) {
	var profile Profile
	if _, err := client.getJSON(ctx, client.config.ProfileURL, accessToken, &profile); err != nil {
		return nil, err
	}

	return &profile, nil
}

