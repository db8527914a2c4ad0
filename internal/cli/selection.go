package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/monorkin/stone-hub/internal/database"
	"github.com/monorkin/stone-hub/internal/globals"
	"github.com/monorkin/stone-hub/internal/selection"
)

// selectionCmd represents the selection command
var selectionCmd = &cobra.Command{
	Use:     "selection",
	Aliases: []string{"s", "sel"},
	Short:   "Manage the selected models",
	Long:    `Commands for listing and changing the models picked in the hub browser.`,
}

// selectionListCmd represents the selection list command
var selectionListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List the selected models",
	Long:    `List the selected models with their item name, version, pattern and viewer urn.`,
	Run:     runSelectionList,
}

var selectionAddCmd = &cobra.Command{
	Use:   "add <version_id> <item_name> <version>",
	Short: "Select a model version",
	Long: `Select a model version by its data management version id.

Examples:
  stone-hub selection add "urn:adsk.wipprod:fs.file:vf.abc123?version=2" Tower.rvt V2`,
	Args: cobra.ExactArgs(3),
	Run:  runSelectionAdd,
}

var selectionClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every selected model",
	Run:   runSelectionClear,
}

func repository() *selection.Repository {
	if database.DB == nil {
		fail("Database is not available", database.Init())
	}

	return selection.NewRepository(database.DB)
}

func runSelectionList(cmd *cobra.Command, args []string) {
	globals.Logger.Debug("Fetching selected models from database")

	set, err := repository().Load()
	if err != nil {
		fail("Failed to fetch selected models", err)
	}

	if set.Len() == 0 {
		fmt.Println("No models selected.")
		return
	}

	// Create tabwriter for aligned output
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "ITEM\tVERSION\tPATTERN\tURN")
	fmt.Fprintln(w, "----\t-------\t-------\t---")

	for _, model := range set.List() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", model.ItemName, model.Version, model.Pattern, model.URN)
	}

	globals.Logger.Debug("Selection list completed", "count", set.Len())
}

func runSelectionAdd(cmd *cobra.Command, args []string) {
	model, err := selection.FromVersionID(args[0], args[1], args[2])
	if err != nil {
		fail("Invalid model", err)
	}

	added, err := repository().Add(model)
	if err != nil {
		fail("Failed to add model", err)
	}

	if !added {
		fmt.Printf("%s is already selected.\n", model)
		return
	}

	fmt.Printf("Selected %s.\n", model)
}

func runSelectionClear(cmd *cobra.Command, args []string) {
	if err := repository().Clear(); err != nil {
		fail("Failed to clear selection", err)
	}

	fmt.Println("Selection cleared.")
}

func init() {
	rootCmd.AddCommand(selectionCmd)

	selectionCmd.AddCommand(selectionListCmd)
	selectionCmd.AddCommand(selectionAddCmd)
	selectionCmd.AddCommand(selectionClearCmd)
}
