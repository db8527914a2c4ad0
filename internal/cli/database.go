package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/monorkin/stone-hub/internal/config"
	"github.com/monorkin/stone-hub/internal/database"
	"github.com/monorkin/stone-hub/internal/globals"
)

// dbCmd represents the db command
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Inspect and maintain the local database",
	Long: `Commands for the sqlite database holding the selection and the login sessions.

The database is migrated to the latest schema whenever stone-hub starts.`,
}

var dbStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the database path and the applied migrations",
	Run:   runDBStatus,
}

var dbRollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Revert the most recent migration",
	Long: `Revert the most recent migration.

The next start of stone-hub applies it again, so this is only useful right
before downgrading or when inspecting a migration by hand.`,
	Run: runDBRollback,
}

func db() *gorm.DB {
	if database.DB == nil {
		fail("Database is not available", database.Init())
	}

	return database.DB
}

func runDBStatus(cmd *cobra.Command, args []string) {
	current := database.CurrentSchemaVersion(db())

	all, err := database.MigrationsNewerThan(0)
	if err != nil {
		fail("Failed to read migrations", err)
	}

	fmt.Printf("Database: %s\n", config.DBPath())
	fmt.Printf("Schema version: %d\n\n", current)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "VERSION\tMIGRATION\tSTATUS")
	fmt.Fprintln(w, "-------\t---------\t------")

	for _, migration := range all {
		status := "pending"
		if migration.Version <= current {
			status = "applied"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\n", migration.Version, migration.DirName(), status)
	}
}

func runDBRollback(cmd *cobra.Command, args []string) {
	conn := db()
	before := database.CurrentSchemaVersion(conn)
	if before == 0 {
		fmt.Println("Nothing to roll back.")
		return
	}

	if err := database.Rollback(conn); err != nil {
		fail("Failed to roll back migration", err)
	}

	globals.Logger.Info("Migration rolled back", "from", before, "to", database.CurrentSchemaVersion(conn))
	fmt.Printf("Rolled back migration %d.\n", before)
}

func init() {
	rootCmd.AddCommand(dbCmd)

	dbCmd.AddCommand(dbStatusCmd)
	dbCmd.AddCommand(dbRollbackCmd)
}
