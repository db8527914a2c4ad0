package heatmap

import (
	"fmt"
	"strconv"
)

// ColorStops are the default stops of the surface shading gradient.
var ColorStops = []string{"blue", "green", "yellow", "red"}

type Legend struct {
	Channel    string   `json:"channel"`
	Labels     []string `json:"labels"`
	ColorStops []string `json:"colorStops"`
}

// ShadingConfig is passed through to the surface shading renderer.
type ShadingConfig struct {
	// Distance from a point over which its value still affects the map,
	// in model world units.
	Confidence float64 `json:"confidence"`
	// Greater values give closer points more influence.
	PowerParameter float64 `json:"powerParameter"`
	// 0 is fully transparent, 1 fully opaque.
	Alpha float64 `json:"alpha"`
}

func DefaultShadingConfig() ShadingConfig {
	return ShadingConfig{
		Confidence:     50.0,
		PowerParameter: 2.0,
		Alpha:          1.0,
	}
}

func (config ShadingConfig) Validate() error {
	if config.Confidence <= 0 {
		return fmt.Errorf("confidence must be positive, got %v", config.Confidence)
	}
	if config.PowerParameter <= 0 {
		return fmt.Errorf("power parameter must be positive, got %v", config.PowerParameter)
	}
	if config.Alpha < 0 || config.Alpha > 1 {
		return fmt.Errorf("alpha must be within [0, 1], got %v", config.Alpha)
	}

	return nil
}

// NewLegend labels the gradient with the channel's minimum, midpoint and
// maximum.
func NewLegend(channel string, stats map[string]*ChannelStats) (Legend, error) {
	channelStats, ok := stats[channel]
	if !ok || channelStats == nil || !channelStats.Numeric {
		return Legend{Channel: channel, Labels: []string{}, ColorStops: ColorStops}, fmt.Errorf("%w '%s'", ErrNoChannelData, channel)
	}

	unit := displayUnit(channel, channelStats.Unit)
	mid := (channelStats.MaxValue + channelStats.MinValue) / 2

	return Legend{
		Channel: channel,
		Labels: []string{
			toFixed(channelStats.MinValue, 3) + unit,
			toFixed(mid, 2) + unit,
			toFixed(channelStats.MaxValue, 3) + unit,
		},
		ColorStops: ColorStops,
	}, nil
}

func displayUnit(channel, unit string) string {
	if channel == "Weight" {
		return " lb"
	}

	return unit
}

func toFixed(value float64, digits int) string {
	return strconv.FormatFloat(value, 'f', digits, 64)
}
