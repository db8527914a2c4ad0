package grid

import (
	"github.com/monorkin/stone-hub/internal/props"
)

const (
	FieldDBID           = "dbid"
	FieldName           = "name"
	FieldVolume         = "volume"
	FieldLevel          = "level"
	FieldComments       = "comments"
	FieldWeight         = "weight"
	FieldCavity         = "cavity"
	FieldShippingStatus = "shipping_status"

	levelCategory = "Constraints"
)

// RequiredProps are requested for each element when the grid refreshes.
var RequiredProps = []string{"name", "Volume", "Level", "Weight", "Comments", "Cavity", "Shipping_Status"}

// Row is one grid line per model element. Every property column may be
// absent on its own.
type Row struct {
	DBID           int         `json:"dbid"`
	Name           string      `json:"name"`
	Volume         props.Value `json:"volume"`
	Level          props.Value `json:"level"`
	Comments       props.Value `json:"comments"`
	Weight         props.Value `json:"weight"`
	Cavity         props.Value `json:"cavity"`
	ShippingStatus props.Value `json:"shipping_status"`
}

// ProjectRow picks the grid columns out of an element's property list.
func ProjectRow(dbID int, name string, properties []props.Property) Row {
	row := Row{
		DBID: dbID,
		Name: name,
	}

	for _, property := range properties {
		switch property.DisplayName {
		case "Volume":
			row.Volume = firstOf(row.Volume, property.DisplayValue)
		case "Level":
			if property.DisplayCategory == levelCategory {
				row.Level = firstOf(row.Level, property.DisplayValue)
			}
		case "Comments":
			row.Comments = firstOf(row.Comments, property.DisplayValue)
		case "Weight":
			if row.Weight.IsAbsent() {
				row.Weight = weightText(property)
			}
		case "Cavity":
			row.Cavity = firstOf(row.Cavity, property.DisplayValue)
		case "Shipping_Status":
			row.ShippingStatus = firstOf(row.ShippingStatus, property.DisplayValue)
		}
	}

	return row
}

func ProjectRows(elements []props.Element) []Row {
	rows := make([]Row, 0, len(elements))
	for _, element := range elements {
		rows = append(rows, ProjectRow(element.DBID, element.Name, element.Properties))
	}

	return rows
}

// Field returns the value of the column with the given field name.
func (row Row) Field(field string) props.Value {
	switch field {
	case FieldDBID:
		return props.Number(float64(row.DBID))
	case FieldName:
		return props.Text(row.Name)
	case FieldVolume:
		return row.Volume
	case FieldLevel:
		return row.Level
	case FieldComments:
		return row.Comments
	case FieldWeight:
		return row.Weight
	case FieldCavity:
		return row.Cavity
	case FieldShippingStatus:
		return row.ShippingStatus
	default:
		return props.Absent
	}
}

func firstOf(current, candidate props.Value) props.Value {
	if current.IsAbsent() {
		return candidate
	}

	return current
}

func weightText(property props.Property) props.Value {
	if property.DisplayValue.IsAbsent() {
		return props.Absent
	}

	return props.Text(property.DisplayValue.String() + property.Units)
}
