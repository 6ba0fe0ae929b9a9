package app

import (
	"context"
	"os"
	"time"

	"mycar-backend/internal/lookup"
	"mycar-backend/internal/resolve"
	"mycar-backend/lib/configutil"
	configlibsql "mycar-backend/lib/configutil/libsql"

	"dario.cat/mergo"
)

type HondaConfig struct {
	BaseUrl string `json:"base_url" env:"MYCAR_HONDA_BASE_URL,overwrite"`
	Make    string `json:"make"`
}

type CostcoConfig struct {
	BatteryBaseUrl string  `json:"battery_base_url" env:"MYCAR_COSTCO_BATTERY_BASE_URL,overwrite"`
	TiresBaseUrl   string  `json:"tires_base_url" env:"MYCAR_COSTCO_TIRES_BASE_URL,overwrite"`
	MaxDistance    float64 `json:"max_distance"`
	Disabled       bool    `json:"disabled"`
}

type Config struct {
	// DeadlineSeconds bounds one lookup.
	DeadlineSeconds int `json:"deadline_seconds" env:"MYCAR_DEADLINE_SECONDS,overwrite"`
	// RequestsPerSecond throttles the vendor sessions of a single lookup,
	// 0 turns throttling off. It is a pointer so an explicit 0 survives
	// the merge over the defaults.
	RequestsPerSecond *float64            `json:"requests_per_second"`
	Port              int                 `json:"port" env:"MYCAR_PORT,overwrite"`
	Honda             HondaConfig         `json:"honda"`
	Costco            CostcoConfig        `json:"costco"`
	Catalog           configlibsql.Struct `json:"catalog"`
}

func float64Ptr(v float64) *float64 {
	return &v
}

func (c Config) requestsPerSecond() float64 {
	if c.RequestsPerSecond == nil {
		return 0
	}
	return *c.RequestsPerSecond
}

func (c Config) lookupConfig() lookup.Config {
	return lookup.Config{
		Deadline: time.Duration(c.DeadlineSeconds) * time.Second,
		Make:     c.Honda.Make,
	}
}

func DefaultConfig() Config {
	return Config{
		DeadlineSeconds:   int(lookup.DefaultDeadline / time.Second),
		RequestsPerSecond: float64Ptr(2),
		Port:              8000,
		Honda:             HondaConfig{Make: lookup.DefaultMake},
		Costco:            CostcoConfig{MaxDistance: resolve.MaxLocationDistance},
		Catalog:           configlibsql.Struct{File: ".dev/catalog.db"},
	}
}

// mergeConfig lays the non-zero fields of src over dst, a set pointer
// replaces dst's even when it points at a zero value.
func mergeConfig(dst *Config, src Config) error {
	return mergo.Merge(dst, src, mergo.WithOverride, mergo.WithoutDereference)
}

// LoadConfig reads path (and its .local override) on top of the defaults,
// then applies .env and environment overrides. A missing file is not an
// error.
func LoadConfig(ctx context.Context, path string) (Config, error) {
	cfg := DefaultConfig()

	file, err := configutil.ReadConfig[Config](path, mergo.WithoutDereference)
	if err != nil && !os.IsNotExist(err) {
		return Config{}, err
	}
	if err == nil {
		err = mergeConfig(&cfg, file)
		if err != nil {
			return Config{}, err
		}
	}

	err = configutil.ApplyEnv(ctx, &cfg)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}
