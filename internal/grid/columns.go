package grid

type SorterKind string

const (
	SorterString SorterKind = "string"
	SorterNumber SorterKind = "number"
	SorterPicco  SorterKind = "picco"
)

type Column struct {
	Title     string     `json:"title"`
	Field     string     `json:"field"`
	Width     int        `json:"width,omitempty"`
	HozAlign  string     `json:"hozAlign,omitempty"`
	Formatter string     `json:"formatter,omitempty"`
	Sorter    SorterKind `json:"sorter"`
}

// Config describes the grid to the browser panel.
type Config struct {
	RequiredProps    []string `json:"requiredProps"`
	Columns          []Column `json:"columns"`
	GroupBy          string   `json:"groupBy"`
	FilterParams     []string `json:"filterParams"`
	ShippingStatuses []string `json:"shippingStatuses"`
}

var Columns = []Column{
	{Title: "ID", Field: FieldDBID, Sorter: SorterNumber},
	{Title: "Name", Field: FieldName, Width: 150, Sorter: SorterString},
	{Title: "Volume", Field: FieldVolume, HozAlign: "left", Formatter: "progress", Sorter: SorterNumber},
	{Title: "Level", Field: FieldLevel, Sorter: SorterString},
	{Title: "Comments", Field: FieldComments, Sorter: SorterPicco},
	{Title: "Weight", Field: FieldWeight, Sorter: SorterNumber},
	{Title: "Cavity", Field: FieldCavity, Sorter: SorterNumber},
	{Title: "Shipping Status", Field: FieldShippingStatus, Sorter: SorterString},
}

const DefaultGroupBy = FieldLevel

func DefaultConfig() Config {
	return Config{
		RequiredProps:    RequiredProps,
		Columns:          Columns,
		GroupBy:          DefaultGroupBy,
		FilterParams:     FilterParams,
		ShippingStatuses: ShippingStatuses,
	}
}

func column(field string) (Column, bool) {
	for _, c := range Columns {
		if c.Field == field {
			return c, true
		}
	}

	return Column{}, false
}
