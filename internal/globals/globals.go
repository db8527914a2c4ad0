package globals

import (
	"log/slog"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"go.uber.org/zap/zapcore"

	"github.com/monorkin/stone-hub/internal/config"
	"github.com/monorkin/stone-hub/internal/database"
)

const (
	LOG_FORMAT_CONSOLE = "console"
	LOG_FORMAT_JSON    = "json"
)

var (
	// Global instances
	Settings *config.Settings
	Logger   *slog.Logger

	// Ensure initialization happens only once
	initOnce sync.Once
)

// Initialize sets up global instances exactly once
func Initialize(verbose bool, logFormat string) {
	initOnce.Do(func() {
		// Setup logger first
		setupLogger(verbose, logFormat)

		Logger.Debug("Initializing global instances")

		// Load or create settings
		newSettings, settingsLoaded := config.LoadOrInitializeSettingsFromDefaultLocation()
		Settings = settingsLoaded
		if newSettings {
			Logger.Debug("Created new settings file")
			if err := Settings.Save(); err != nil {
				Logger.Error("Failed to save new settings", "error", err)
			}
		} else {
			Logger.Debug("Loaded existing settings")
		}

		// Initialize database
		if err := database.Init(); err != nil {
			Logger.Error("Failed to initialize database", "error", err)
		} else {
			Logger.Debug("Database initialized")
		}

		Logger.Info("Global initialization completed", "verbose", verbose)
	})
}

// NewLogger builds a slog front over a zap core writing to stderr.
func NewLogger(verbose bool, logFormat string) *slog.Logger {
	level := zap.InfoLevel
	if verbose {
		level = zap.DebugLevel
	}

	var zapConfig zap.Config
	if verbose {
		zapConfig = zap.NewDevelopmentConfig()
	} else {
		zapConfig = zap.NewProductionConfig()
	}
	zapConfig.Level = zap.NewAtomicLevelAt(level)

	encoderConfig := zapConfig.EncoderConfig
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if logFormat == LOG_FORMAT_JSON {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(os.Stderr)), zapConfig.Level)

	return slog.New(zapslog.NewHandler(core, zapslog.WithCaller(verbose)))
}

// setupLogger configures the global logger
func setupLogger(verbose bool, logFormat string) {
	Logger = NewLogger(verbose, logFormat)

	// Set as default logger
	slog.SetDefault(Logger)
}

// MustBeInitialized panics if globals haven't been initialized
func MustBeInitialized() {
	if Settings == nil || Logger == nil {
		panic("globals not initialized - call globals.Initialize() first")
	}
}
