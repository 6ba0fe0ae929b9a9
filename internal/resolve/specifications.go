package resolve

import (
	"fmt"
	"strings"

	"mycar-backend/lib/textutil"
)

type Mileage struct {
	City     string
	Highway  string
	Combined string
}

// SplitMileage splits a "city / highway / combined" string.
func SplitMileage(s string) (Mileage, error) {
	segments := strings.Split(s, " / ")
	if len(segments) != 3 {
		return Mileage{}, fmt.Errorf(
			"%w: expected 3 mileage segments in '%s', got %d",
			ErrMalformedData, s, len(segments),
		)
	}
	return Mileage{
		City:     strings.TrimSpace(segments[0]),
		Highway:  strings.TrimSpace(segments[1]),
		Combined: strings.TrimSpace(segments[2]),
	}, nil
}

type Specifications struct {
	Wheels        string
	TireSize      string
	SpareTireSize string
	FuelTank      string
	FuelType      string
	Mileage       Mileage
}

// ResolveSpecifications reads the `label">value<` pairs of a
// specifications page.
func ResolveSpecifications(payload string) (Specifications, error) {
	mileage, err := SplitMileage(textutil.HtmlField(payload, "(City/Highway/Combined)"))
	if err != nil {
		return Specifications{}, fmt.Errorf("resolve specifications: %w", err)
	}
	return Specifications{
		Wheels:        textutil.HtmlField(payload, "Wheels"),
		TireSize:      textutil.HtmlField(payload, "All-Season Tires"),
		SpareTireSize: textutil.HtmlField(payload, "Compact Spare Tire"),
		FuelTank:      textutil.HtmlField(payload, "Fuel Tank Capacity"),
		FuelType:      textutil.HtmlField(payload, "Required Fuel"),
		Mileage:       mileage,
	}, nil
}

func (s Specifications) Missing() []string {
	return missing(
		[2]string{"wheels", s.Wheels},
		[2]string{"tireSize", s.TireSize},
		[2]string{"spareTireSize", s.SpareTireSize},
		[2]string{"fuelTank", s.FuelTank},
		[2]string{"fuelType", s.FuelType},
	)
}
