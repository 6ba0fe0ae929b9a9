package resolve

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitMileage(t *testing.T) {
	mileage, err := SplitMileage("25 / 32 / 28")
	require.NoError(t, err)
	require.Equal(t, Mileage{City: "25", Highway: "32", Combined: "28"}, mileage)

	for _, malformed := range []string{"25 / 32", "", "25/32/28", "1 / 2 / 3 / 4"} {
		_, err := SplitMileage(malformed)
		require.ErrorIs(t, err, ErrMalformedData, malformed)
	}
}

const specificationsPage = `<div class="spec"><span class="Wheels">17-Inch Alloy Wheels</span>` +
	`<span class="All-Season Tires">235/40 R18 95W</span>` +
	`<span class="Compact Spare Tire">T125/70 D17</span>` +
	`<span class="Fuel Tank Capacity">12.4 gal.</span>` +
	`<span class="Required Fuel">Regular Unleaded</span>` +
	`<span class="(City/Highway/Combined)">31 / 38 / 34</span></div>`

func TestResolveSpecifications(t *testing.T) {
	specs, err := ResolveSpecifications(specificationsPage)
	require.NoError(t, err)
	require.Equal(t, Specifications{
		Wheels:        "17-Inch Alloy Wheels",
		TireSize:      "235/40 R18 95W",
		SpareTireSize: "T125/70 D17",
		FuelTank:      "12.4 gal.",
		FuelType:      "Regular Unleaded",
		Mileage:       Mileage{City: "31", Highway: "38", Combined: "34"},
	}, specs)
	require.Empty(t, specs.Missing())
}

func TestResolveSpecificationsMalformedMileage(t *testing.T) {
	_, err := ResolveSpecifications(`<span class="(City/Highway/Combined)">31 / 38</span>`)
	require.ErrorIs(t, err, ErrMalformedData)

	// absent mileage is malformed as well
	_, err = ResolveSpecifications(`<span class="Wheels">17-Inch</span>`)
	require.ErrorIs(t, err, ErrMalformedData)
}
