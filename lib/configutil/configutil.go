package configutil

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
	"github.com/titanous/json5"
)

// layerPaths lists the files ReadConfig merges, lowest priority first:
// <name>.<ext> then <name>.local.<ext>.
func layerPaths(name string) []string {
	ext := filepath.Ext(name)
	local := strings.TrimSuffix(name, ext) + ".local" + ext
	return []string{name, local}
}

// readLayer decodes one json5 file into out, found is false when the file
// does not exist or is empty.
func readLayer[T any](path string, out *T) (found bool, err error) {
	contents, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if len(contents) == 0 {
		return false, nil
	}
	err = json5.Unmarshal(contents, out)
	if err != nil {
		return false, fmt.Errorf("decode %s: %w", path, err)
	}
	return true, nil
}

// ReadConfig reads the json5 file `name` and lays `<name>.local.<ext>` over
// it with mergo, opts are appended to mergo.WithOverride. It returns
// os.ErrNotExist when neither file exists.
func ReadConfig[T any](name string, opts ...func(*mergo.Config)) (T, error) {
	var out T
	found := false

	for _, path := range layerPaths(name) {
		var layer T
		ok, err := readLayer(path, &layer)
		if err != nil {
			return out, err
		}
		if !ok {
			continue
		}
		if found {
			slog.Info("merging config with local overrides", "local", path)
		}
		err = mergo.Merge(&out, layer, append([]func(*mergo.Config){mergo.WithOverride}, opts...)...)
		if err != nil {
			return out, err
		}
		found = true
	}

	if !found {
		return out, os.ErrNotExist
	}
	return out, nil
}

// ReadRecursively walks from the cwd up to the filesystem root and returns
// the first config named `name` that ReadConfig finds.
func ReadRecursively[T any](name string, opts ...func(*mergo.Config)) (T, error) {
	var none T

	dir, err := os.Getwd()
	if err != nil {
		return none, err
	}
	for {
		config, err := ReadConfig[T](filepath.Join(dir, name), opts...)
		if err == nil {
			return config, nil
		}
		if !os.IsNotExist(err) {
			return none, err
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return none, os.ErrNotExist
		}
		dir = parent
	}
}

// ApplyEnv loads a .env file from the cwd if there is one, then overrides
// fields of cfg tagged with `env:"NAME,overwrite"` from the environment.
// cfg must be a pointer to a struct.
func ApplyEnv(ctx context.Context, cfg any) error {
	err := godotenv.Load()
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load .env: %w", err)
	}
	err = envconfig.Process(ctx, cfg)
	if err != nil {
		return fmt.Errorf("apply env: %w", err)
	}
	return nil
}
