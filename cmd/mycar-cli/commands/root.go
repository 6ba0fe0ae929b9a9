package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"mycar-backend/internal/app"
	"mycar-backend/lib/telemetry"

	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
	dumpDir    string
	cfg        app.Config
)

var rootCmd = &cobra.Command{
	Use:   "mycar-cli",
	Short: "mycar-cli looks up vehicles and manages the part catalog.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		telemetry.InitSlog(verbose)

		var err error
		cfg, err = app.LoadConfig(cmd.Context(), configPath)
		if err != nil {
			return fmt.Errorf("read config: %w", err)
		}
		slog.Debug("loaded config", "path", configPath)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.json5", "The config file to read.")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging.")
	rootCmd.PersistentFlags().StringVar(&dumpDir, "dump", "", "Dump every http request and response into this directory.")
}

func openApp(ctx context.Context) (app.App, error) {
	return app.New(ctx, cfg, app.Options{
		DumpDir: dumpDir,
		Tel:     telemetry.SlogAPI{},
	})
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
