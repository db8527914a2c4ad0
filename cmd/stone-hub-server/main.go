package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/monorkin/stone-hub/internal/app"
	"github.com/monorkin/stone-hub/internal/config"
	"github.com/monorkin/stone-hub/internal/database"
	"github.com/monorkin/stone-hub/internal/globals"
)

// Runs the server with settings and environment only, for deployments that
// do not need the CLI.
func main() {
	globals.Initialize(os.Getenv("STONE_HUB_VERBOSE") != "", os.Getenv("STONE_HUB_LOG_FORMAT"))

	env, err := config.LoadEnv(".env")
	if config.IsMissingEnv(err) {
		globals.Logger.Warn("Missing some of the required environment variables", "error", err)
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		os.Exit(1)
	}
	if err != nil {
		globals.Logger.Error("Failed to load environment", "error", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if database.DB == nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", database.Init())
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.NewApp(env, globals.Settings, database.DB, globals.Logger).Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
