package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/dustinober1/3x1-Project/internal/config"
)

// storeFlags binds the flags that locate a store.
type storeFlags struct {
	Database string
	Backend  string
}

func (f *storeFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.Database, "db", config.DefaultDatabase, "path to the store (file for sqlite, directory for badger)")
	fs.StringVar(&f.Backend, "backend", config.BackendSQLite, "store backend (sqlite|sqlite-pure|badger)")
}

func (f *storeFlags) apply(fs *pflag.FlagSet, cfg *config.Config) {
	if fs.Changed("db") {
		cfg.Database = f.Database
	}
	if fs.Changed("backend") {
		cfg.Backend = f.Backend
	}
}

// resolveConfig loads the config file named by --config, applies flags
// the user set explicitly, and validates the result.
func resolveConfig(opts *RootOptions, cmd *cobra.Command, apply func(*config.Config) error) (config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if apply != nil {
		if err := apply(&cfg); err != nil {
			return config.Config{}, WrapExitError(ExitCommandError, "invalid flag", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, fmt.Sprintf("%s: invalid config", ErrCodeConfig), err)
	}
	return cfg, nil
}
