package main

import (
	"flag"
	"net/http"
	"path/filepath"

	"mycar-backend/internal/app"
	"mycar-backend/lib/serviceutil"
	"mycar-backend/lib/telemetry"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	verbose := flag.Bool("v", false, "Enable verbose logging/instrumentation.")
	configPath := flag.String("config", "config.json5", "The config file to read.")
	flag.Parse()

	ctx := serviceutil.SignalContext()

	InitTelemetry(ctx, *verbose)

	cfg, err := app.LoadConfig(ctx, *configPath)
	if err != nil {
		serviceutil.Fatal("read config", err)
	}

	opts := app.Options{Tel: telemetry.SlogAPI{}}
	if *verbose {
		opts.DumpDir = filepath.Join(".dev", "resty")
	}
	a, err := app.New(ctx, cfg, opts)
	if err != nil {
		serviceutil.Fatal("init app", err)
	}
	defer a.Close()

	mux := http.NewServeMux()
	RegisterVehicles(mux, a.Lookup)

	err = serviceutil.StartHttpServer(ctx, cfg.Port, otelhttp.NewHandler(mux, "mycar-server"))
	if err != nil {
		serviceutil.Fatal("serve http", err)
	}
}
