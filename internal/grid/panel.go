package grid

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/monorkin/stone-hub/internal/picco"
	"github.com/monorkin/stone-hub/internal/props"
	"github.com/monorkin/stone-hub/internal/scene"
)

// Panel holds the grid rows for one model and the filters applied to them.
type Panel struct {
	scene.Visibility

	config  Config
	rows    []Row
	filters *FilterSet
	logger  *slog.Logger
}

// View is what the panel renders: filtered, sorted and grouped rows.
type View struct {
	Filters []FilterSpec `json:"filters"`
	Total   int          `json:"total"`
	Shown   int          `json:"shown"`
	Groups  []Group      `json:"groups"`
}

type SortOptions struct {
	Field string `json:"field"`
	Desc  bool   `json:"desc"`
}

func NewPanel(logger *slog.Logger) *Panel {
	return &Panel{
		config:  DefaultConfig(),
		filters: &FilterSet{},
		logger:  logger,
	}
}

func (panel *Panel) Initialize() error {
	panel.rows = nil
	panel.filters.Clear()
	return nil
}

func (panel *Panel) Uninitialize() {
	panel.rows = nil
	panel.filters.Clear()
}

func (panel *Panel) Config() Config {
	return panel.config
}

// Update replaces the rows with fresh projections of the given elements. On
// failure the previous rows stay in place.
func (panel *Panel) Update(ctx context.Context, source props.Source, dbIDs []int) error {
	elements, err := source.BulkProperties(ctx, dbIDs, panel.config.RequiredProps)
	if err != nil {
		panel.log(slog.LevelError, "Failed to fetch bulk properties", "error", err)
		return fmt.Errorf("failed to fetch properties: %w", err)
	}

	panel.rows = ProjectRows(elements)
	panel.log(slog.LevelDebug, "Grid rows replaced", "rows_count", len(panel.rows))

	return nil
}

func (panel *Panel) Rows() []Row {
	return slices.Clone(panel.rows)
}

func (panel *Panel) SetFilter(spec FilterSpec) error {
	if err := panel.filters.Add(spec); err != nil {
		return err
	}

	panel.log(slog.LevelDebug, "Filter added", "filter", spec.String())
	return nil
}

func (panel *Panel) RemoveFilter(index int) error {
	return panel.filters.Remove(index)
}

func (panel *Panel) ClearFilter() {
	panel.filters.Clear()
}

func (panel *Panel) Filters() []FilterSpec {
	return panel.filters.Specs()
}

// View applies the active filters, sorts and groups the result.
func (panel *Panel) View(sortBy *SortOptions) (View, error) {
	predicate := panel.filters.Predicate()

	shown := make([]Row, 0, len(panel.rows))
	for _, row := range panel.rows {
		if predicate(row) {
			shown = append(shown, row)
		}
	}

	if sortBy != nil && sortBy.Field != "" {
		sorted, err := SortRows(shown, sortBy.Field, sortBy.Desc)
		if err != nil {
			return View{}, err
		}
		shown = sorted
	}

	return View{
		Filters: panel.filters.Specs(),
		Total:   len(panel.rows),
		Shown:   len(shown),
		Groups:  GroupBy(shown, panel.config.GroupBy),
	}, nil
}

// FilterOptions lists the selectable threshold values for a categorical
// parameter. Numeric parameters take free input and have none.
func (panel *Panel) FilterOptions(param string) []string {
	switch param {
	case FieldComments:
		seen := make(map[string]bool)
		var values []string
		for _, row := range panel.rows {
			if row.Comments.IsAbsent() {
				continue
			}
			value := row.Comments.String()
			if !seen[value] {
				seen[value] = true
				values = append(values, value)
			}
		}
		picco.Sort(values)
		return values
	case FieldShippingStatus:
		return slices.Clone(ShippingStatuses)
	default:
		return nil
	}
}

// RowClick focuses the viewer on the clicked element.
func (panel *Panel) RowClick(ctx context.Context, viewer scene.Viewer, row Row) error {
	return scene.Focus(ctx, viewer, row.DBID)
}

func (panel *Panel) log(level slog.Level, msg string, args ...any) {
	if panel.logger != nil {
		panel.logger.Log(context.Background(), level, msg, args...)
	}
}
