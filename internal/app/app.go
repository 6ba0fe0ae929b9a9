package app

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"

	"mycar-backend/internal/catalog"
	"mycar-backend/internal/lookup"
	"mycar-backend/lib/restyutil"
	"mycar-backend/lib/scrapers/costco"
	"mycar-backend/lib/scrapers/honda"
	"mycar-backend/lib/telemetry"
)

type Options struct {
	// DumpDir receives resty request/response dumps when set.
	DumpDir string
	Tel     telemetry.API
}

// App holds everything a lookup needs, Close releases the catalog
// database.
type App struct {
	Lookup  lookup.Service
	Catalog catalog.Store
	// Provider is nil when costco is disabled. Lookups open their own
	// sessions from it.
	Provider *costco.Client
	db       *sql.DB
}

func (a App) Close() error {
	return a.db.Close()
}

func dumpOutput(dir, name string) (restyutil.InstrumentOutput, error) {
	if dir == "" {
		return nil, nil
	}
	out, err := restyutil.NewFilesystemOutput(filepath.Join(dir, name))
	if err != nil {
		return nil, err
	}
	return out, nil
}

// OpenCatalog opens and migrates the part catalog.
func OpenCatalog(ctx context.Context, cfg Config) (catalog.Store, *sql.DB, error) {
	db, err := cfg.Catalog.OpenDB()
	if err != nil {
		return catalog.Store{}, nil, fmt.Errorf("open catalog: %w", err)
	}
	store := catalog.NewStore(db)
	err = store.Migrate(ctx)
	if err != nil {
		db.Close()
		return catalog.Store{}, nil, fmt.Errorf("migrate catalog: %w", err)
	}
	return store, db, nil
}

func New(ctx context.Context, cfg Config, opts Options) (App, error) {
	if opts.Tel == nil {
		opts.Tel = telemetry.SlogAPI{}
	}

	store, db, err := OpenCatalog(ctx, cfg)
	if err != nil {
		return App{}, err
	}

	hondaOutput, err := dumpOutput(opts.DumpDir, "honda")
	if err != nil {
		db.Close()
		return App{}, err
	}
	vendor := honda.NewClient(honda.Options{
		BaseUrl:           cfg.Honda.BaseUrl,
		RequestsPerSecond: cfg.requestsPerSecond(),
		Output:            hondaOutput,
		Tel:               opts.Tel,
	})
	vendorSessions := func() (lookup.VendorAPI, error) {
		return vendor.Session()
	}

	var providerSessions lookup.ProviderSessions
	var provider *costco.Client
	if !cfg.Costco.Disabled {
		costcoOutput, err := dumpOutput(opts.DumpDir, "costco")
		if err != nil {
			db.Close()
			return App{}, err
		}
		provider = costco.NewClient(costco.Options{
			BatteryBaseUrl:    cfg.Costco.BatteryBaseUrl,
			TiresBaseUrl:      cfg.Costco.TiresBaseUrl,
			MaxDistance:       cfg.Costco.MaxDistance,
			RequestsPerSecond: cfg.requestsPerSecond(),
			Output:            costcoOutput,
			Tel:               opts.Tel,
			PartTypes:         store,
		})
		providerSessions = func() (lookup.ProviderAPI, error) {
			return provider.Session()
		}
	}

	return App{
		Lookup:   lookup.NewService(vendorSessions, providerSessions, cfg.lookupConfig(), opts.Tel),
		Catalog:  store,
		Provider: provider,
		db:       db,
	}, nil
}
