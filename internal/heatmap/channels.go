package heatmap

import (
	"errors"
	"maps"
	"math"
	"sort"
	"sync"

	"github.com/monorkin/stone-hub/internal/props"
)

var ErrNoChannelData = errors.New("no data associated with channel")

// RequiredProps are the channels offered in the heatmap dropdown.
var RequiredProps = []string{"Volume", "Weight", "Cavity"}

// ChannelStats holds every reading of one property across a batch of
// elements. MinValue and MaxValue only cover numeric readings and are only
// meaningful when Numeric is set.
type ChannelStats struct {
	Values   map[int]props.Value `json:"values"`
	Unit     string              `json:"unit"`
	MaxValue float64             `json:"maxValue"`
	MinValue float64             `json:"minValue"`
	Numeric  bool                `json:"numeric"`
}

// AggregateChannels folds a batch into per-channel statistics.
func AggregateChannels(batch []props.Element) map[string]*ChannelStats {
	channels := make(map[string]*ChannelStats)

	for _, element := range batch {
		for _, property := range element.Properties {
			stats, ok := channels[property.DisplayName]
			if !ok {
				stats = &ChannelStats{
					Values: make(map[int]props.Value),
					Unit:   property.Units,
				}
				channels[property.DisplayName] = stats
			}

			stats.Values[element.DBID] = property.DisplayValue
		}
	}

	for _, stats := range channels {
		stats.computeRange()
	}

	return channels
}

func (stats *ChannelStats) computeRange() {
	stats.Numeric = false
	stats.MinValue = 0
	stats.MaxValue = 0

	minValue := math.Inf(1)
	maxValue := math.Inf(-1)

	for _, value := range stats.Values {
		if !value.IsNumber() {
			continue
		}
		reading, _ := value.Float()
		minValue = math.Min(minValue, reading)
		maxValue = math.Max(maxValue, reading)
		stats.Numeric = true
	}

	if stats.Numeric {
		stats.MinValue = minValue
		stats.MaxValue = maxValue
	}
}

// Normalize maps an element's reading onto [0, 1] within its channel. It
// returns NaN when there is nothing to color: an unknown channel, a missing
// reading or a non-numeric one. A channel whose readings are all equal
// normalizes to 0.5.
func Normalize(elementID int, channel string, stats map[string]*ChannelStats) float64 {
	channelStats, ok := stats[channel]
	if !ok || channelStats == nil || !channelStats.Numeric {
		return math.NaN()
	}

	value, ok := channelStats.Values[elementID]
	if !ok || !value.IsNumber() {
		return math.NaN()
	}

	reading, _ := value.Float()

	span := channelStats.MaxValue - channelStats.MinValue
	if span == 0 {
		return 0.5
	}

	return clamp((reading-channelStats.MinValue)/span, 0, 1)
}

func clamp(value, lower, upper float64) float64 {
	return math.Max(lower, math.Min(value, upper))
}

// Store keeps the statistics of the last scanned batches. A new batch
// replaces every channel it mentions and leaves the others alone.
type Store struct {
	mu       sync.RWMutex
	channels map[string]*ChannelStats
}

func NewStore() *Store {
	return &Store{
		channels: make(map[string]*ChannelStats),
	}
}

func (store *Store) Update(batch []props.Element) {
	aggregated := AggregateChannels(batch)

	store.mu.Lock()
	defer store.mu.Unlock()

	maps.Copy(store.channels, aggregated)
}

func (store *Store) Reset() {
	store.mu.Lock()
	defer store.mu.Unlock()

	store.channels = make(map[string]*ChannelStats)
}

func (store *Store) Normalize(elementID int, channel string) float64 {
	store.mu.RLock()
	defer store.mu.RUnlock()

	return Normalize(elementID, channel, store.channels)
}

func (store *Store) Channel(name string) (*ChannelStats, bool) {
	store.mu.RLock()
	defer store.mu.RUnlock()

	stats, ok := store.channels[name]
	return stats, ok
}

func (store *Store) Names() []string {
	store.mu.RLock()
	defer store.mu.RUnlock()

	names := make([]string, 0, len(store.channels))
	for name := range store.channels {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// Snapshot returns the channel map as it is now. The stats themselves are
// shared and must not be modified.
func (store *Store) Snapshot() map[string]*ChannelStats {
	store.mu.RLock()
	defer store.mu.RUnlock()

	return maps.Clone(store.channels)
}
