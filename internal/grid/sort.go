package grid

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/monorkin/stone-hub/internal/picco"
	"github.com/monorkin/stone-hub/internal/props"
)

// SortRows returns a sorted copy of rows. Absent values sort first in
// ascending order. Ties keep their input order.
func SortRows(rows []Row, field string, desc bool) ([]Row, error) {
	col, ok := column(field)
	if !ok {
		return nil, fmt.Errorf("unknown sort field %q", field)
	}

	compare := comparator(col.Sorter)

	sorted := slices.Clone(rows)
	slices.SortStableFunc(sorted, func(a, b Row) int {
		c := compareAbsent(a.Field(field), b.Field(field), compare)
		if desc {
			return -c
		}
		return c
	})

	return sorted, nil
}

func comparator(kind SorterKind) func(a, b props.Value) int {
	switch kind {
	case SorterPicco:
		return func(a, b props.Value) int {
			return picco.Compare(a.String(), b.String())
		}
	case SorterNumber:
		return func(a, b props.Value) int {
			x, okX := a.Float()
			y, okY := b.Float()
			switch {
			case okX && okY:
				return cmp.Compare(x, y)
			case okX:
				return 1
			case okY:
				return -1
			default:
				return strings.Compare(a.String(), b.String())
			}
		}
	default:
		return func(a, b props.Value) int {
			return strings.Compare(a.String(), b.String())
		}
	}
}

func compareAbsent(a, b props.Value, compare func(a, b props.Value) int) int {
	switch {
	case a.IsAbsent() && b.IsAbsent():
		return 0
	case a.IsAbsent():
		return -1
	case b.IsAbsent():
		return 1
	default:
		return compare(a, b)
	}
}

type Group struct {
	Key  string `json:"key"`
	Rows []Row  `json:"rows"`
}

// GroupBy buckets rows by the string form of a field, in first-seen order.
// An empty field puts every row into one unnamed group. No rows give no
// groups.
func GroupBy(rows []Row, field string) []Group {
	groups := []Group{}
	if len(rows) == 0 {
		return groups
	}

	if field == "" {
		return append(groups, Group{Rows: rows})
	}

	index := make(map[string]int)

	for _, row := range rows {
		key := row.Field(field).String()

		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, Group{Key: key})
		}
		groups[i].Rows = append(groups[i].Rows, row)
	}

	return groups
}
