package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/monorkin/stone-hub/internal/app"
	"github.com/monorkin/stone-hub/internal/config"
	"github.com/monorkin/stone-hub/internal/database"
	"github.com/monorkin/stone-hub/internal/globals"
)

var wwwRoot string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP server for the viewer extensions.

APS_CLIENT_ID, APS_CLIENT_SECRET and SERVER_SESSION_SECRET must be set in the
environment or in the .env file. PORT defaults to 8080.`,
	Run: runServe,
}

func runServe(cmd *cobra.Command, args []string) {
	env, err := config.LoadEnv(envFile)
	if config.IsMissingEnv(err) {
		globals.Logger.Warn("Missing some of the required environment variables", "error", err)
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		os.Exit(1)
	}
	if err != nil {
		fail("Failed to load environment", err)
	}

	if database.DB == nil {
		fail("Database is not available", database.Init())
	}

	settings := *globals.Settings
	if wwwRoot != "" {
		settings.WWWRoot = wwwRoot
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application := app.NewApp(env, &settings, database.DB, globals.Logger)
	if err := application.Run(ctx); err != nil {
		fail("Server stopped", err)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&wwwRoot, "wwwroot", "", "Directory with the browser extensions to serve at /")
}
