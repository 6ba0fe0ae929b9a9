package resolve

import (
	"context"
	"encoding/json"
	"strings"

	"mycar-backend/lib/htmlutil"
	"mycar-backend/lib/textutil"
	"mycar-backend/internal/vehicle"
)

// MaxLocationDistance is the search radius, in the unit of the feed's
// distances.
const MaxLocationDistance = 10.0

const warehouseMarker = `{"WarehouseId":"`

var feedReplacer = strings.NewReplacer(
	`\u003c`, "<",
	`\u003e`, ">",
	`\u0026`, "&",
)

// ParseLocationFeed extracts the raw location objects embedded in the
// hidden input of a warehouse search response. Order is preserved.
func ParseLocationFeed(ctx context.Context, payload string) []string {
	payload = feedReplacer.Replace(payload)

	values, err := htmlutil.AttrValues(ctx, payload, "input[value]", "value")
	if err == nil {
		for _, value := range values {
			if !strings.HasPrefix(value, "["+warehouseMarker) {
				continue
			}
			var raw []json.RawMessage
			if json.Unmarshal([]byte(value), &raw) != nil {
				break
			}
			entries := make([]string, len(raw))
			for i, r := range raw {
				entries[i] = string(r)
			}
			return entries
		}
	}

	// the markup is not always well formed enough to parse, scan it instead
	payload = strings.ReplaceAll(payload, "&quot;", `"`)
	list, _ := textutil.Between(payload, "["+warehouseMarker, `}]" />`, 0)
	if list == "" {
		return nil
	}
	var entries []string
	for _, piece := range strings.Split(list, warehouseMarker) {
		piece = strings.TrimSuffix(strings.TrimSpace(piece), ",")
		piece = strings.TrimSuffix(piece, "}")
		if piece == "" {
			continue
		}
		entries = append(entries, warehouseMarker+piece+"}")
	}
	return entries
}

func numberField(entry, name string) float64 {
	value, _ := textutil.Between(entry+",", `"`+name+`":`, ",", 0)
	value = textutil.LeftOf(value, "}")
	return textutil.ToDecimal(strings.Trim(value, `" `))
}

// ClassifyLocation tags a location entry by the services it lists.
func ClassifyLocation(entry string) vehicle.Category {
	if strings.Contains(entry, "Tire Service Center") {
		return vehicle.CategoryServiceCenter
	}
	if textutil.JsonField(entry, "WarehouseId") != "" {
		return vehicle.CategoryStore
	}
	return vehicle.CategoryUnknown
}

// FilterLocations converts distance sorted entries into locations, it
// stops at the first entry farther than threshold and never looks at the
// rest.
func FilterLocations(entries []string, threshold float64) []vehicle.ProviderLocation {
	var out []vehicle.ProviderLocation
	for _, entry := range entries {
		distance := numberField(entry, "Distance")
		if distance > threshold {
			break
		}

		address := textutil.JsonField(entry, "Line1") + "\n" +
			textutil.JsonField(entry, "City") + ", " +
			textutil.JsonField(entry, "Territory") + " " +
			textutil.JsonField(entry, "PostalCode")

		out = append(out, vehicle.ProviderLocation{
			Name:     textutil.JsonField(entry, "Name"),
			Category: ClassifyLocation(entry),
			Address:  address,
			Distance: distance,
			StoreId:  textutil.JsonField(entry, "WarehouseId"),
		})
	}
	return out
}
