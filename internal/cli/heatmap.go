package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/monorkin/stone-hub/internal/globals"
	"github.com/monorkin/stone-hub/internal/heatmap"
	"github.com/monorkin/stone-hub/internal/props"
)

var heatmapChannel string

// heatmapCmd represents the heatmap command
var heatmapCmd = &cobra.Command{
	Use:     "heatmap",
	Aliases: []string{"hm"},
	Short:   "Inspect heatmap channels of exported model properties",
}

var heatmapChannelsCmd = &cobra.Command{
	Use:   "channels <properties.json>",
	Short: "List channel statistics",
	Args:  cobra.ExactArgs(1),
	Run:   runHeatmapChannels,
}

var heatmapValuesCmd = &cobra.Command{
	Use:   "values <properties.json>",
	Short: "Print normalized readings of a channel as JSON",
	Args:  cobra.ExactArgs(1),
	Run:   runHeatmapValues,
}

var heatmapLegendCmd = &cobra.Command{
	Use:   "legend <properties.json>",
	Short: "Print the legend labels of a channel",
	Args:  cobra.ExactArgs(1),
	Run:   runHeatmapLegend,
}

func loadHeatmap(path string) *heatmap.Panel {
	panel := heatmap.NewPanel(globals.Settings.Heatmap, globals.Logger)
	if err := panel.Initialize(); err != nil {
		fail("Invalid heatmap settings", err)
	}
	panel.SetVisible(true)

	if err := panel.Update(context.Background(), props.FileSource{Path: path}, nil); err != nil {
		fail("Failed to load properties", err)
	}

	return panel
}

// selectHeatmapChannel warns instead of failing when the channel has no data.
func selectHeatmapChannel(panel *heatmap.Panel) heatmap.Legend {
	legend, err := panel.SelectChannel(heatmapChannel)
	if errors.Is(err, heatmap.ErrNoChannelData) {
		globals.Logger.Warn("Channel has no numeric data", "channel", heatmapChannel)
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		return legend
	}
	if err != nil {
		fail("Invalid channel", err)
	}

	return legend
}

func runHeatmapChannels(cmd *cobra.Command, args []string) {
	panel := loadHeatmap(args[0])

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "CHANNEL\tREADINGS\tUNIT\tMIN\tMAX")
	fmt.Fprintln(w, "-------\t--------\t----\t---\t---")

	for _, channel := range panel.Channels() {
		stats, ok := panel.Stats(channel)
		if !ok {
			fmt.Fprintf(w, "%s\t0\t\t-\t-\n", channel)
			continue
		}
		if !stats.Numeric {
			fmt.Fprintf(w, "%s\t%d\t%s\t-\t-\n", channel, len(stats.Values), stats.Unit)
			continue
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n", channel, len(stats.Values), stats.Unit,
			props.FormatNumber(stats.MinValue), props.FormatNumber(stats.MaxValue))
	}
}

func runHeatmapValues(cmd *cobra.Command, args []string) {
	panel := loadHeatmap(args[0])
	selectHeatmapChannel(panel)

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(panel.Values()); err != nil {
		fail("Failed to write readings", err)
	}
}

func runHeatmapLegend(cmd *cobra.Command, args []string) {
	panel := loadHeatmap(args[0])
	legend := selectHeatmapChannel(panel)

	fmt.Printf("Channel: %s\n", legend.Channel)
	fmt.Printf("Colors:  %s\n", strings.Join(legend.ColorStops, " -> "))
	fmt.Printf("Labels:  %s\n", strings.Join(legend.Labels, " | "))
}

func init() {
	rootCmd.AddCommand(heatmapCmd)

	heatmapCmd.PersistentFlags().StringVarP(&heatmapChannel, "channel", "c", heatmap.RequiredProps[0], "Channel to display")

	heatmapCmd.AddCommand(heatmapChannelsCmd)
	heatmapCmd.AddCommand(heatmapValuesCmd)
	heatmapCmd.AddCommand(heatmapLegendCmd)
}
