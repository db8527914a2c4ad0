// Package selection tracks the model versions picked in the hub browser.
package selection

import (
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"sync"
)

var (
	ErrNoPattern   = errors.New("unique pattern not found for this model")
	ErrMissingInfo = errors.New("item name and version info not found for this model")
)

// patternRegex captures everything between "vf." and "?version".
var patternRegex = regexp.MustCompile(`vf\.(.*?)(?:\?|$)`)

// Model is one selected model version.
type Model struct {
	Pattern  string `json:"pattern"`
	ItemName string `json:"itemName"`
	Version  string `json:"version"`
	URN      string `json:"modelURN"`
}

// Same reports whether both entries refer to the same model version.
func (model Model) Same(other Model) bool {
	return model.Pattern == other.Pattern && model.Version == other.Version
}

// FromVersionID builds a selection entry from a version id such as
// "urn:adsk.wipprod:fs.file:vf.abc123?version=2".
func FromVersionID(versionID, itemName, version string) (Model, error) {
	pattern := Pattern(versionID)
	if pattern == "" {
		return Model{}, ErrNoPattern
	}

	itemName = strings.TrimSpace(itemName)
	version = strings.TrimSpace(version)
	if itemName == "" || version == "" {
		return Model{}, ErrMissingInfo
	}

	return Model{
		Pattern:  pattern,
		ItemName: itemName,
		Version:  version,
		URN:      URN(versionID),
	}, nil
}

// Pattern extracts the lineage identifier shared by all versions of an item.
func Pattern(versionID string) string {
	match := patternRegex.FindStringSubmatch(versionID)
	if len(match) != 2 {
		return ""
	}

	return match[1]
}

// URN is the viewer document urn: base64 of the version id without padding.
func URN(versionID string) string {
	return base64.RawStdEncoding.EncodeToString([]byte(versionID))
}

// Set is the in-memory selection list. Entries are unique by pattern and
// version.
type Set struct {
	mu     sync.RWMutex
	models []Model
}

func NewSet(models ...Model) *Set {
	set := &Set{}
	for _, model := range models {
		set.Add(model)
	}

	return set
}

// Add appends model unless an entry with the same pattern and version is
// already present. It reports whether the set changed.
func (set *Set) Add(model Model) bool {
	set.mu.Lock()
	defer set.mu.Unlock()

	if slices.ContainsFunc(set.models, model.Same) {
		return false
	}

	set.models = append(set.models, model)
	return true
}

func (set *Set) Clear() {
	set.mu.Lock()
	defer set.mu.Unlock()

	set.models = nil
}

// List copies the entries in insertion order. It is never nil.
func (set *Set) List() []Model {
	set.mu.RLock()
	defer set.mu.RUnlock()

	return append(make([]Model, 0, len(set.models)), set.models...)
}

func (set *Set) Len() int {
	set.mu.RLock()
	defer set.mu.RUnlock()

	return len(set.models)
}

// URNs returns the document urns in selection order.
func URNs(models []Model) []string {
	urns := make([]string, 0, len(models))
	for _, model := range models {
		urns = append(urns, model.URN)
	}

	return urns
}

func (model Model) String() string {
	return fmt.Sprintf("%s (%s)", model.ItemName, model.Version)
}
