package vehicle

import (
	"fmt"
	"strings"
)

// Record is the normalized result of one lookup.
type Record struct {
	VIN             string `json:"vin"`
	Name            string `json:"name"`
	Make            string `json:"make"`
	Model           string `json:"model"`
	Trim            string `json:"trim"`
	Year            string `json:"year"`
	BodyStyle       string `json:"bodyStyle,omitempty"`
	ModelId         string `json:"modelId"`
	ColorName       string `json:"colorName,omitempty"`
	ColorCode       string `json:"colorCode,omitempty"`
	Wheels          string `json:"wheels,omitempty"`
	TireSize        string `json:"tireSize,omitempty"`
	SpareTireSize   string `json:"spareTireSize,omitempty"`
	FuelTank        string `json:"fuelTank,omitempty"`
	FuelType        string `json:"fuelType,omitempty"`
	MileageCity     string `json:"mileageCity"`
	MileageHighway  string `json:"mileageHighway"`
	MileageCombined string `json:"mileageCombined"`
	OwnersManualUrl string `json:"ownersManualUrl,omitempty"`

	// supplementary, absent when the provider lookups failed
	Battery   *PartInfo          `json:"battery,omitempty"`
	Locations []ProviderLocation `json:"locations,omitempty"`
}

// DisplayName renders "<year> <make> <model> <trim>", skipping empty
// parts.
func (r Record) DisplayName() string {
	var parts []string
	for _, p := range []string{r.Year, r.Make, r.Model, r.Trim} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// Source identifies which remote call a payload came from.
type Source string

const (
	SourcePrimary        Source = "primary"
	SourceSpecifications Source = "specifications"
	SourceManuals        Source = "manuals"
	SourceBattery        Source = "battery"
	SourceLocations      Source = "locations"
)

// Payload is a normalized response body, it only lives as long as it
// takes to resolve fields out of it.
type Payload struct {
	Source Source
	Body   string
}

type Category int

const (
	CategoryUnknown Category = iota
	CategoryStore
	CategoryServiceCenter
)

func (c Category) String() string {
	switch c {
	case CategoryStore:
		return "Store"
	case CategoryServiceCenter:
		return "ServiceCenter"
	default:
		return "Unknown"
	}
}

func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Category) UnmarshalText(text []byte) error {
	switch string(text) {
	case "Store":
		*c = CategoryStore
	case "ServiceCenter":
		*c = CategoryServiceCenter
	case "Unknown", "":
		*c = CategoryUnknown
	default:
		return fmt.Errorf("unknown provider category '%s'", text)
	}
	return nil
}

type ProviderLocation struct {
	Name     string   `json:"name"`
	Brand    string   `json:"brand"`
	Category Category `json:"category"`
	Address  string   `json:"address"`
	Distance float64  `json:"distance"`
	StoreId  string   `json:"storeId"`
}

// PartType is owned by the part catalog, the lookup pipeline only reads
// it.
type PartType struct {
	Id       int64  `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

type PartInfo struct {
	Name      string    `json:"name"`
	SpecValue string    `json:"specValue"`
	Cost      float64   `json:"cost"`
	TypeId    int64     `json:"typeId"`
	Type      *PartType `json:"type,omitempty"`
}

// Coordinates is the location hint used to search nearby providers.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}
