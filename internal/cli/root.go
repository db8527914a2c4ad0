package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/monorkin/stone-hub/internal/globals"
)

var (
	verbose   bool
	logFormat string
	envFile   string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "stone-hub",
	Short: "APS viewer extension server",
	Long: `A server for the Stone Hub viewer extensions.

It relays Autodesk Platform Services logins to the browser, proxies hub and
project listings, keeps the model selection and serves the data grid and
heatmap panels built from model properties.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		globals.Initialize(verbose, logFormat)
	},
	Run: func(cmd *cobra.Command, args []string) {
		// Default behavior: start the server
		runServe(cmd, args)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose (debug) logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", globals.LOG_FORMAT_CONSOLE, "Log format (console or json)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Path to a .env file with the APS credentials")
}

// fail logs err and exits the way every command reports failures
func fail(message string, err error) {
	globals.Logger.Error(message, "error", err)
	fmt.Fprintf(os.Stderr, "Error: %s: %v\n", message, err)
	os.Exit(1)
}
