package commands

import (
	"errors"
	"os"

	"github.com/spf13/cobra"
)

var locationsLocation locationFlags

var locationsCmd = &cobra.Command{
	Use:   "locations --zip <zip> --lat <lat> --lon <lon>",
	Short: "Lists the provider locations closest to a point.",
	RunE: func(cmd *cobra.Command, args []string) error {
		hint := locationsLocation.hint(cmd)
		if hint == nil {
			return errors.New("both --lat and --lon are required")
		}

		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		if a.Provider == nil {
			return errors.New("the costco provider is disabled in the config")
		}

		session, err := a.Provider.Session()
		if err != nil {
			return err
		}
		defer session.Close()
		locations, err := session.GetClosestLocations(cmd.Context(), locationsLocation.zip, *hint)
		if err != nil {
			return err
		}
		renderLocations(os.Stdout, locations)
		return nil
	},
}

func init() {
	locationsLocation.register(locationsCmd)
	rootCmd.AddCommand(locationsCmd)
}
