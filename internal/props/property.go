package props

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"slices"
)

// Property is one named attribute of a model element, as returned by a
// bulk property lookup.
type Property struct {
	DisplayName     string `json:"displayName"`
	DisplayValue    Value  `json:"displayValue"`
	DisplayCategory string `json:"displayCategory,omitempty"`
	Units           string `json:"units,omitempty"`
}

// Element is a single bulk property record.
type Element struct {
	DBID       int        `json:"dbId"`
	Name       string     `json:"name"`
	Properties []Property `json:"properties"`
}

// Find returns the first property with the given display name.
func (e Element) Find(displayName string) (Property, bool) {
	for _, property := range e.Properties {
		if property.DisplayName == displayName {
			return property, true
		}
	}

	return Property{}, false
}

// Source looks up named properties for a set of elements. An empty dbIDs
// slice means every element the source knows about.
type Source interface {
	BulkProperties(ctx context.Context, dbIDs []int, propFilter []string) ([]Element, error)
}

// Filter keeps only elements in dbIDs (all when empty) and only properties
// whose display name is in propFilter (all when empty). The special filter
// entry "name" refers to the element name and never removes properties.
func Filter(elements []Element, dbIDs []int, propFilter []string) []Element {
	result := make([]Element, 0, len(elements))

	for _, element := range elements {
		if len(dbIDs) > 0 && !slices.Contains(dbIDs, element.DBID) {
			continue
		}

		if len(propFilter) == 0 {
			result = append(result, element)
			continue
		}

		filtered := Element{DBID: element.DBID, Name: element.Name}
		for _, property := range element.Properties {
			if slices.Contains(propFilter, property.DisplayName) {
				filtered.Properties = append(filtered.Properties, property)
			}
		}
		result = append(result, filtered)
	}

	return result
}

// FileSource serves bulk properties from an exported JSON array of
// elements.
type FileSource struct {
	Path string
}

func (source FileSource) BulkProperties(ctx context.Context, dbIDs []int, propFilter []string) ([]Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(source.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read properties file: %w", err)
	}

	var elements []Element
	if err := json.Unmarshal(data, &elements); err != nil {
		return nil, fmt.Errorf("failed to parse properties file: %w", err)
	}

	return Filter(elements, dbIDs, propFilter), nil
}

// StaticSource serves a fixed batch of elements.
type StaticSource []Element

func (source StaticSource) BulkProperties(ctx context.Context, dbIDs []int, propFilter []string) ([]Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return Filter(source, dbIDs, propFilter), nil
}
