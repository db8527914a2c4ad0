package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/monorkin/stone-hub/aps/api"
	"github.com/monorkin/stone-hub/internal/globals"
)

var discoverTimeout time.Duration

// discoverCmd represents the discover command
var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Find servers on the local network",
	Long:  `Browse the local network over mDNS for servers that advertise themselves.`,
	Run:   runDiscover,
}

func runDiscover(cmd *cobra.Command, args []string) {
	globals.Logger.Debug("Starting discovery", "timeout", discoverTimeout)

	instances, err := api.Discover(context.Background(), discoverTimeout, globals.Logger)
	if err != nil {
		fail("Discovery failed", err)
	}

	if len(instances) == 0 {
		fmt.Println("No servers found.")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "NAME\tHOSTNAME\tURL")
	fmt.Fprintln(w, "----\t--------\t---")

	for _, instance := range instances {
		fmt.Fprintf(w, "%s\t%s\t%s\n", instance.Name, instance.Hostname, instance.URL())
	}
}

func init() {
	rootCmd.AddCommand(discoverCmd)

	discoverCmd.Flags().DurationVar(&discoverTimeout, "timeout", api.DISCOVERY_TIMEOUT, "How long to browse")
}
