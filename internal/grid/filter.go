package grid

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/monorkin/stone-hub/internal/picco"
)

var ErrInvalidFilter = errors.New("invalid filter")

var (
	// FilterParams lists the columns a filter may target.
	FilterParams     = []string{FieldVolume, FieldWeight, FieldCavity, FieldComments, FieldShippingStatus}
	numericParams    = []string{FieldVolume, FieldWeight, FieldCavity}
	Operators        = []string{"=", ">", "<"}
	ShippingStatuses = []string{"Pending", "In Progress", "Completed"}
)

// FilterSpec is a single "param compare value" condition.
type FilterSpec struct {
	Param   string `json:"param"`
	Compare string `json:"compare"`
	Value   string `json:"value"`
}

func (spec FilterSpec) String() string {
	return fmt.Sprintf("%s %s %s", spec.Param, spec.Compare, spec.Value)
}

// UnmarshalJSON accepts the threshold either as a string or as a number.
func (spec *FilterSpec) UnmarshalJSON(data []byte) error {
	var raw struct {
		Param   string          `json:"param"`
		Compare string          `json:"compare"`
		Value   json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	spec.Param = raw.Param
	spec.Compare = raw.Compare
	spec.Value = ""

	if len(raw.Value) == 0 || string(raw.Value) == "null" {
		return nil
	}

	var text string
	if err := json.Unmarshal(raw.Value, &text); err == nil {
		spec.Value = text
		return nil
	}

	var number json.Number
	if err := json.Unmarshal(raw.Value, &number); err != nil {
		return fmt.Errorf("filter value must be a string or a number: %w", err)
	}
	spec.Value = number.String()

	return nil
}

func IsNumericParam(param string) bool {
	return slices.Contains(numericParams, param)
}

// Validate rejects partially filled or malformed specs.
func (spec FilterSpec) Validate() error {
	if spec.Param == "" {
		return fmt.Errorf("%w: please select a parameter", ErrInvalidFilter)
	}
	if !slices.Contains(FilterParams, spec.Param) {
		return fmt.Errorf("%w: unknown parameter %q", ErrInvalidFilter, spec.Param)
	}
	if spec.Compare == "" {
		return fmt.Errorf("%w: please select a comparison", ErrInvalidFilter)
	}
	if !slices.Contains(Operators, spec.Compare) {
		return fmt.Errorf("%w: unknown comparison %q", ErrInvalidFilter, spec.Compare)
	}

	value := strings.TrimSpace(spec.Value)

	if IsNumericParam(spec.Param) {
		threshold, err := strconv.ParseFloat(value, 64)
		if value == "" || err != nil || threshold < 0 {
			return fmt.Errorf("%w: please enter a valid threshold", ErrInvalidFilter)
		}
		return nil
	}

	if value == "" {
		return fmt.Errorf("%w: please select a valid value", ErrInvalidFilter)
	}
	if spec.Param == FieldShippingStatus && !slices.Contains(ShippingStatuses, value) {
		return fmt.Errorf("%w: unknown shipping status %q", ErrInvalidFilter, value)
	}

	return nil
}

// Matches evaluates the filter against a row. It must already be valid.
func (spec FilterSpec) Matches(row Row) bool {
	value := row.Field(spec.Param)
	if value.IsAbsent() {
		return false
	}

	switch {
	case spec.Param == FieldComments:
		return picco.MatchesThreshold(value.String(), spec.Compare, spec.Value)
	case IsNumericParam(spec.Param):
		threshold, err := strconv.ParseFloat(strings.TrimSpace(spec.Value), 64)
		if err != nil {
			return false
		}
		reading, ok := value.Float()
		if !ok {
			return false
		}
		return compareWith(cmp.Compare(reading, threshold), spec.Compare)
	default:
		return compareWith(strings.Compare(value.String(), spec.Value), spec.Compare)
	}
}

func compareWith(c int, op string) bool {
	switch op {
	case "=":
		return c == 0
	case ">":
		return c > 0
	case "<":
		return c < 0
	default:
		return false
	}
}

type Predicate func(Row) bool

// BuildCompoundFilter ANDs every spec together. No specs accept every row.
func BuildCompoundFilter(specs []FilterSpec) Predicate {
	frozen := slices.Clone(specs)

	return func(row Row) bool {
		for _, spec := range frozen {
			if !spec.Matches(row) {
				return false
			}
		}
		return true
	}
}

// Apply returns the rows accepted by every spec, in their original order.
func Apply(rows []Row, specs []FilterSpec) []Row {
	predicate := BuildCompoundFilter(specs)

	result := make([]Row, 0, len(rows))
	for _, row := range rows {
		if predicate(row) {
			result = append(result, row)
		}
	}

	return result
}

// FilterSet is the ordered collection of active filters. Only valid specs
// get in.
type FilterSet struct {
	specs []FilterSpec
}

func NewFilterSet(specs ...FilterSpec) (*FilterSet, error) {
	set := &FilterSet{}
	for _, spec := range specs {
		if err := set.Add(spec); err != nil {
			return nil, err
		}
	}

	return set, nil
}

func (set *FilterSet) Add(spec FilterSpec) error {
	if err := spec.Validate(); err != nil {
		return err
	}

	spec.Value = strings.TrimSpace(spec.Value)
	set.specs = append(set.specs, spec)
	return nil
}

func (set *FilterSet) Remove(index int) error {
	if index < 0 || index >= len(set.specs) {
		return fmt.Errorf("filter index %d out of range", index)
	}

	set.specs = slices.Delete(set.specs, index, index+1)
	return nil
}

func (set *FilterSet) Clear() {
	set.specs = nil
}

func (set *FilterSet) Len() int {
	return len(set.specs)
}

// Specs copies the active filters. It is never nil.
func (set *FilterSet) Specs() []FilterSpec {
	return append(make([]FilterSpec, 0, len(set.specs)), set.specs...)
}

// Predicate rebuilds the compound filter from the current specs.
func (set *FilterSet) Predicate() Predicate {
	return BuildCompoundFilter(set.specs)
}

// ParseFilter reads "param op value", e.g. "weight>100" or
// "shipping_status=In Progress".
func ParseFilter(expression string) (FilterSpec, error) {
	for i, r := range expression {
		if !strings.ContainsRune("=<>", r) {
			continue
		}

		return FilterSpec{
			Param:   strings.TrimSpace(expression[:i]),
			Compare: string(r),
			Value:   strings.TrimSpace(expression[i+1:]),
		}, nil
	}

	return FilterSpec{}, fmt.Errorf("%w: missing comparison in %q", ErrInvalidFilter, expression)
}

// Describe formats active filters for display.
func Describe(specs []FilterSpec) string {
	parts := make([]string, 0, len(specs))
	for _, spec := range specs {
		parts = append(parts, spec.String())
	}

	return strings.Join(parts, " AND ")
}
