package heatmap

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"

	"github.com/monorkin/stone-hub/internal/props"
	"github.com/monorkin/stone-hub/internal/scene"
)

// Panel owns the channel statistics of one model and the channel currently
// shown.
type Panel struct {
	scene.Visibility

	store   *Store
	channel string
	shading ShadingConfig
	dbIDs   []int
	logger  *slog.Logger
}

// Reading is the normalized value of one shading point. A nil Value means
// the point gets no color.
type Reading struct {
	DBID  int      `json:"dbId"`
	Value *float64 `json:"value"`
}

func NewPanel(shading ShadingConfig, logger *slog.Logger) *Panel {
	return &Panel{
		store:   NewStore(),
		channel: RequiredProps[0],
		shading: shading,
		logger:  logger,
	}
}

func (panel *Panel) Initialize() error {
	return panel.shading.Validate()
}

func (panel *Panel) Uninitialize() {
	panel.store.Reset()
	panel.dbIDs = nil
}

// SetVisible drops the shading data when the panel is hidden so the next
// show scans the model again.
func (panel *Panel) SetVisible(visible bool) {
	panel.Visibility.SetVisible(visible)
	if !visible {
		panel.store.Reset()
		panel.dbIDs = nil
	}
}

// Update scans the given elements and folds their readings into the store.
func (panel *Panel) Update(ctx context.Context, source props.Source, dbIDs []int) error {
	elements, err := source.BulkProperties(ctx, dbIDs, RequiredProps)
	if err != nil {
		panel.log(slog.LevelError, "Failed to fetch bulk properties", "error", err)
		return fmt.Errorf("failed to fetch properties: %w", err)
	}

	panel.store.Update(elements)

	panel.dbIDs = panel.dbIDs[:0]
	for _, element := range elements {
		panel.dbIDs = append(panel.dbIDs, element.DBID)
	}

	panel.log(slog.LevelDebug, "Heatmap channels updated", "elements_count", len(elements), "channels", panel.store.Names())
	return nil
}

func (panel *Panel) Channels() []string {
	return slices.Clone(RequiredProps)
}

func (panel *Panel) Channel() string {
	return panel.channel
}

// SelectChannel switches the displayed channel and returns its legend. A
// channel without data is still selected, and ErrNoChannelData is returned
// so the caller can warn.
func (panel *Panel) SelectChannel(channel string) (Legend, error) {
	if !slices.Contains(RequiredProps, channel) {
		return Legend{}, fmt.Errorf("unknown channel %q", channel)
	}

	panel.channel = channel
	return NewLegend(channel, panel.store.Snapshot())
}

func (panel *Panel) Stats(channel string) (*ChannelStats, bool) {
	return panel.store.Channel(channel)
}

func (panel *Panel) Shading() ShadingConfig {
	return panel.shading
}

// Value is the renderer callback: the normalized reading of one element in
// the current channel.
func (panel *Panel) Value(dbID int) float64 {
	return panel.store.Normalize(dbID, panel.channel)
}

// Values evaluates every scanned element in the current channel.
func (panel *Panel) Values() []Reading {
	readings := make([]Reading, 0, len(panel.dbIDs))
	for _, dbID := range panel.dbIDs {
		reading := Reading{DBID: dbID}
		if value := panel.Value(dbID); !math.IsNaN(value) {
			reading.Value = &value
		}
		readings = append(readings, reading)
	}

	return readings
}

func (panel *Panel) log(level slog.Level, msg string, args ...any) {
	if panel.logger != nil {
		panel.logger.Log(context.Background(), level, msg, args...)
	}
}
