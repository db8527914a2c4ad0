package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	BASE_URL        = "https://developer.api.autodesk.com"
	PROFILE_URL     = "https://api.userprofile.autodesk.com/userinfo"
	USER_AGENT      = "Stone Hub/1.0.0"
	REQUEST_TIMEOUT = 30 * time.Second
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotReady     = errors.New("model properties are still being processed")
)

// StatusError is returned when APS answers with an unexpected status.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("aps request failed: %s", e.Status)
	}
	return fmt.Sprintf("aps request failed: %s: %s", e.Status, e.Body)
}

func (e *StatusError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return nil
}

type Config struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
	BaseURL      string
	ProfileURL   string
}

type Client struct {
	httpClient http.Client
	config     Config
	logger     *slog.Logger
}

func NewClient(config Config) *Client {
	return NewClientWithLogger(config, nil)
}

func NewClientWithLogger(config Config, logger *slog.Logger) *Client {
	if config.BaseURL == "" {
		config.BaseURL = BASE_URL
	}
	if config.ProfileURL == "" {
		config.ProfileURL = PROFILE_URL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	return &Client{
		httpClient: http.Client{
			Timeout: REQUEST_TIMEOUT,
		},
		config: config,
		logger: logger,
	}
}

func (client *Client) log(level slog.Level, msg string, args ...any) {
	if client.logger != nil {
		client.logger.Log(context.Background(), level, msg, args...)
	}
}

func (client *Client) endpoint(path string, segments ...any) string {
	escaped := make([]any, len(segments))
	for i, segment := range segments {
		escaped[i] = url.PathEscape(fmt.Sprint(segment))
	}

	return client.config.BaseURL + fmt.Sprintf(path, escaped...)
}

func (client *Client) newRequest(ctx context.Context, method, url, token string, body io.Reader) (*http.Request, error) {
	request, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	request.Header.Set("User-Agent", USER_AGENT)
	request.Header.Set("Accept", "application/json")
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}

	return request, nil
}

// do sends the request and decodes a 200 response into out. Any other
// status comes back as a *StatusError.
func (client *Client) do(request *http.Request, out any) (int, error) {
	started := time.Now()

	response, err := client.httpClient.Do(request)
	if err != nil {
		return 0, fmt.Errorf("failed to call %s: %w", request.URL.Path, err)
	}
	defer response.Body.Close()

	client.log(slog.LevelDebug, "APS request completed",
		"method", request.Method,
		"path", request.URL.Path,
		"status", response.StatusCode,
		"duration", time.Since(started),
	)

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return response.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return response.StatusCode, &StatusError{
			StatusCode: response.StatusCode,
			Status:     response.Status,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	if out == nil || response.StatusCode == http.StatusAccepted || len(body) == 0 {
		return response.StatusCode, nil
	}

	if err := json.Unmarshal(body, out); err != nil {
		return response.StatusCode, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return response.StatusCode, nil
}

func (client *Client) getJSON(ctx context.Context, url, token string, out any) (int, error) {
	request, err := client.newRequest(ctx, http.MethodGet, url, token, nil)
	if err != nil {
		return 0, err
	}

	return client.do(request, out)
}
