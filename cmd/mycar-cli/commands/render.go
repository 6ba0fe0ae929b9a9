package commands

import (
	"fmt"
	"io"

	"mycar-backend/internal/vehicle"

	"github.com/jedib0t/go-pretty/v6/table"
)

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	return t
}

func renderRecord(w io.Writer, record *vehicle.Record) {
	t := newTable(w)
	t.SetTitle(record.Name)
	t.AppendHeader(table.Row{"Field", "Value"})
	t.AppendRows([]table.Row{
		{"VIN", record.VIN},
		{"Model", record.Model},
		{"Body style", record.BodyStyle},
		{"Trim", record.Trim},
		{"Model id", record.ModelId},
		{"Color", fmt.Sprintf("%s (%s)", record.ColorName, record.ColorCode)},
		{"Wheels", record.Wheels},
		{"Tires", record.TireSize},
		{"Spare tire", record.SpareTireSize},
		{"Fuel", fmt.Sprintf("%s, %s", record.FuelTank, record.FuelType)},
		{"Mileage (city/hwy/combined)", fmt.Sprintf(
			"%s / %s / %s",
			record.MileageCity, record.MileageHighway, record.MileageCombined,
		)},
		{"Owner's manual", record.OwnersManualUrl},
	})
	if record.Battery != nil {
		t.AppendSeparator()
		t.AppendRow(table.Row{"Battery", fmt.Sprintf(
			"group %s, $%.2f", record.Battery.SpecValue, record.Battery.Cost,
		)})
	}
	t.Render()

	if len(record.Locations) > 0 {
		renderLocations(w, record.Locations)
	}
}

func renderLocations(w io.Writer, locations []vehicle.ProviderLocation) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Store", "Name", "Category", "Distance", "Address"})
	for _, l := range locations {
		t.AppendRow(table.Row{l.StoreId, l.Name, l.Category.String(), l.Distance, l.Address})
	}
	t.Render()
}

func renderPartTypes(w io.Writer, types []vehicle.PartType) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Id", "Name", "Category"})
	for _, pt := range types {
		t.AppendRow(table.Row{pt.Id, pt.Name, pt.Category})
	}
	t.Render()
}
