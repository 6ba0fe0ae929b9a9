package commands

import (
	"log/slog"
	"os"

	"mycar-backend/internal/app"
	"mycar-backend/internal/catalog"

	"github.com/spf13/cobra"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manages the part type catalog.",
}

var catalogSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Installs the default part types.",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, db, err := app.OpenCatalog(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		err = store.Seed(cmd.Context(), catalog.DefaultPartTypes)
		if err != nil {
			return err
		}
		slog.Info("seeded part types", "count", len(catalog.DefaultPartTypes))
		return nil
	},
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "Prints every part type.",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, db, err := app.OpenCatalog(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		types, err := store.List(cmd.Context())
		if err != nil {
			return err
		}
		renderPartTypes(os.Stdout, types)
		return nil
	},
}

func init() {
	catalogCmd.AddCommand(catalogSeedCmd)
	catalogCmd.AddCommand(catalogListCmd)
	rootCmd.AddCommand(catalogCmd)
}
