package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const DEFAULT_PORT = 8080

var requiredEnv = []string{"APS_CLIENT_ID", "APS_CLIENT_SECRET", "SERVER_SESSION_SECRET"}

var ErrInvalidCallbackURL = errors.New("APS_CALLBACK_URL must be an absolute http(s) URL")

// Env is the server configuration taken from the environment and an
// optional .env file.
type Env struct {
	ClientID      string
	ClientSecret  string
	CallbackURL   string
	SessionSecret string
	Port          int
}

// MissingEnvError lists required variables that were not set.
type MissingEnvError struct {
	Keys []string
}

func (e *MissingEnvError) Error() string {
	return "missing some of the required environment variables: " + strings.Join(e.Keys, ", ")
}

// LoadEnv reads envFile (if it exists) and then the process environment,
// which takes precedence.
func LoadEnv(envFile string) (*Env, error) {
	v := viper.New()
	v.SetDefault("PORT", DEFAULT_PORT)

	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			v.SetConfigFile(envFile)
			v.SetConfigType("env")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read %s: %w", envFile, err)
			}
		}
	}

	v.AutomaticEnv()

	env := &Env{
		ClientID:      v.GetString("APS_CLIENT_ID"),
		ClientSecret:  v.GetString("APS_CLIENT_SECRET"),
		CallbackURL:   v.GetString("APS_CALLBACK_URL"),
		SessionSecret: v.GetString("SERVER_SESSION_SECRET"),
		Port:          v.GetInt("PORT"),
	}

	if env.Port <= 0 {
		env.Port = DEFAULT_PORT
	}

	if env.CallbackURL == "" {
		env.CallbackURL = fmt.Sprintf("http://localhost:%d/api/auth/callback", env.Port)
	}

	if err := validateCallbackURL(env.CallbackURL); err != nil {
		return env, err
	}

	var missing []string
	for _, key := range requiredEnv {
		if strings.TrimSpace(v.GetString(key)) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return env, &MissingEnvError{Keys: missing}
	}

	return env, nil
}

// The callback is derived from PORT unless APS_CALLBACK_URL overrides it,
// so it is always present but may be malformed.
func validateCallbackURL(callbackURL string) error {
	parsed, err := url.Parse(callbackURL)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return fmt.Errorf("%w, got %q", ErrInvalidCallbackURL, callbackURL)
	}

	return nil
}

func IsMissingEnv(err error) bool {
	var missing *MissingEnvError
	return errors.As(err, &missing)
}

func (env *Env) Addr() string {
	return fmt.Sprintf(":%d", env.Port)
}
