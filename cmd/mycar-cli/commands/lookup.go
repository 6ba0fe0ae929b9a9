package commands

import (
	"encoding/json"
	"errors"
	"os"

	"mycar-backend/internal/vehicle"

	"github.com/spf13/cobra"
)

type locationFlags struct {
	zip string
	lat float64
	lon float64
}

func (f *locationFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.zip, "zip", "", "The zip code to search near.")
	cmd.Flags().Float64Var(&f.lat, "lat", 0, "The latitude to search near.")
	cmd.Flags().Float64Var(&f.lon, "lon", 0, "The longitude to search near.")
}

// hint is nil unless both coordinates were given.
func (f *locationFlags) hint(cmd *cobra.Command) *vehicle.Coordinates {
	if !cmd.Flags().Changed("lat") || !cmd.Flags().Changed("lon") {
		return nil
	}
	return &vehicle.Coordinates{Latitude: f.lat, Longitude: f.lon}
}

var (
	lookupLocation locationFlags
	lookupJson     bool
)

var lookupCmd = &cobra.Command{
	Use:   "lookup <vin> [--zip <zip>] [--lat <lat> --lon <lon>]",
	Short: "Looks up everything known about a vehicle.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		record, ok := a.Lookup.LookupVehicle(
			cmd.Context(),
			args[0],
			lookupLocation.zip,
			lookupLocation.hint(cmd),
		)
		if !ok {
			return errors.New("lookup failed, see the log for details")
		}

		if lookupJson {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(record)
		}
		renderRecord(os.Stdout, record)
		return nil
	},
}

func init() {
	lookupLocation.register(lookupCmd)
	lookupCmd.Flags().BoolVar(&lookupJson, "json", false, "Print the record as json.")
	rootCmd.AddCommand(lookupCmd)
}
