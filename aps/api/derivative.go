package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/monorkin/stone-hub/internal/props"
)

var ErrNoViewable = errors.New("model has no 3d viewable")

// measurePattern splits derivative values like "150.000 lb" into the number
// and its unit.
var measurePattern = regexp.MustCompile(`^(-?\d+(?:\.\d+)?(?:[eE][-+]?\d+)?)\s+(\S.*)$`)

type Viewable struct {
	Name         string `json:"name"`
	Role         string `json:"role"`
	GUID         string `json:"guid"`
	IsMasterView bool   `json:"isMasterView"`
}

type metadataResponse struct {
	Data struct {
		Metadata []Viewable `json:"metadata"`
	} `json:"data"`
}

type objectProperties struct {
	ObjectID   int                                   `json:"objectid"`
	Name       string                                `json:"name"`
	Properties map[string]map[string]json.RawMessage `json:"properties"`
}

type propertiesResponse struct {
	Data struct {
		Collection []objectProperties `json:"collection"`
	} `json:"data"`
}

// SafeURN turns a base64 URN into the URL-safe form the derivative service
// expects.
func SafeURN(urn string) string {
	urn = strings.TrimRight(urn, "=")
	return strings.NewReplacer("+", "-", "/", "_").Replace(urn)
}

func (client *Client) Viewables(ctx context.Context, urn, accessToken string) ([]Viewable, error) {
	var response metadataResponse
	status, err := client.getJSON(ctx, client.endpoint("/modelderivative/v2/designdata/%s/metadata", SafeURN(urn)), accessToken, &response)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch model metadata: %w", err)
	}
	if status == http.StatusAccepted {
		return nil, ErrNotReady
	}

	return response.Data.Metadata, nil
}

// MasterViewable picks the master 3d view, or the first 3d view.
func MasterViewable(viewables []Viewable) (Viewable, error) {
	var found *Viewable
	for i := range viewables {
		if viewables[i].Role != "3d" {
			continue
		}
		if viewables[i].IsMasterView {
			return viewables[i], nil
		}
		if found == nil {
			found = &viewables[i]
		}
	}

	if found == nil {
		return Viewable{}, ErrNoViewable
	}

	return *found, nil
}

// ObjectProperties fetches every element of one viewable with its
// properties.
func (client *Client) ObjectProperties(ctx context.Context, urn, guid, accessToken string) ([]props.Element, error) {
	url := client.endpoint("/modelderivative/v2/designdata/%s/metadata/%s/properties", SafeURN(urn), guid) + "?forceget=true"

	var response propertiesResponse
	status, err := client.getJSON(ctx, url, accessToken, &response)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch model properties: %w", err)
	}
	if status == http.StatusAccepted {
		return nil, ErrNotReady
	}

	elements := make([]props.Element, 0, len(response.Data.Collection))
	for _, object := range response.Data.Collection {
		elements = append(elements, object.element())
	}

	client.log(slog.LevelDebug, "Model properties fetched", "urn", urn, "elements_count", len(elements))
	return elements, nil
}

func (object objectProperties) element() props.Element {
	element := props.Element{DBID: object.ObjectID, Name: object.Name}

	categories := make([]string, 0, len(object.Properties))
	for category := range object.Properties {
		if strings.HasPrefix(category, "__") {
			continue
		}
		categories = append(categories, category)
	}
	sort.Strings(categories)

	for _, category := range categories {
		names := make([]string, 0, len(object.Properties[category]))
		for name := range object.Properties[category] {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			value, units := decodeValue(object.Properties[category][name])
			element.Properties = append(element.Properties, props.Property{
				DisplayName:     name,
				DisplayValue:    value,
				DisplayCategory: category,
				Units:           units,
			})
		}
	}

	return element
}

func decodeValue(raw json.RawMessage) (props.Value, string) {
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return props.Absent, ""
	}

	switch value := decoded.(type) {
	case nil:
		return props.Absent, ""
	case float64:
		return props.Number(value), ""
	case string:
		return SplitMeasure(value)
	case bool:
		return props.Text(strconv.FormatBool(value)), ""
	default:
		return props.Text(string(raw)), ""
	}
}

// SplitMeasure reads "150.000 lb" as the number 150 with unit "lb". A bare
// number is numeric without a unit; anything else stays text.
func SplitMeasure(text string) (props.Value, string) {
	text = strings.TrimSpace(text)

	if match := measurePattern.FindStringSubmatch(text); match != nil {
		if number, err := strconv.ParseFloat(match[1], 64); err == nil {
			return props.Number(number), match[2]
		}
	}

	if number, err := strconv.ParseFloat(text, 64); err == nil {
		return props.Number(number), ""
	}

	return props.Text(text), ""
}

// PropertySource serves bulk properties of one translated model from the
// derivative service.
type PropertySource struct {
	Client      *Client
	URN         string
	AccessToken string
}

func (source PropertySource) BulkProperties(ctx context.Context, dbIDs []int, propFilter []string) ([]props.Element, error) {
	viewables, err := source.Client.Viewables(ctx, source.URN, source.AccessToken)
	if err != nil {
		return nil, err
	}

	viewable, err := MasterViewable(viewables)
	if err != nil {
		return nil, err
	}

	elements, err := source.Client.ObjectProperties(ctx, source.URN, viewable.GUID, source.AccessToken)
	if err != nil {
		return nil, err
	}

	return props.Filter(elements, dbIDs, propFilter), nil
}
