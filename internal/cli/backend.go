package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dustinober1/3x1-Project/internal/config"
	"github.com/dustinober1/3x1-Project/internal/kvstore"
	"github.com/dustinober1/3x1-Project/internal/legacy"
	"github.com/dustinober1/3x1-Project/internal/session"
	"github.com/dustinober1/3x1-Project/internal/store"
)

// Backend is an open store of either kind.
type Backend interface {
	session.Store
	legacy.Target
	Backup(ctx context.Context, dest string) error
	Check(ctx context.Context) error
	Path() string
	Close() error
}

var (
	_ Backend = (*store.Store)(nil)
	_ Backend = (*kvstore.Store)(nil)
)

// openBackend opens the store named by cfg.
//
// A corrupt store fails the open unless cfg.RecreateCorrupt is set, in which
// case the damaged files are renamed aside and an empty store is created in
// their place.
func openBackend(cfg config.Config, now time.Time) (Backend, error) {
	b, err := openByName(cfg.Backend, cfg.Database)
	if err == nil || !cfg.RecreateCorrupt || !store.IsCorrupt(err) {
		return b, err
	}

	moved, qerr := quarantine(cfg.Database, now)
	if qerr != nil {
		return nil, errors.Join(err, qerr)
	}
	slog.Warn("corrupt store moved aside; starting empty",
		"db", cfg.Database,
		"moved_to", moved,
		"error", err,
	)
	return openByName(cfg.Backend, cfg.Database)
}

func openByName(backend, path string) (Backend, error) {
	var (
		b   Backend
		err error
	)
	switch backend {
	case config.BackendSQLite:
		b, err = nilIfErr(store.Open(path, store.WithDriver(store.DriverCGO)))
	case config.BackendSQLitePure:
		b, err = nilIfErr(store.Open(path, store.WithDriver(store.DriverPure)))
	case config.BackendBadger:
		cfg := kvstore.DefaultConfig(path)
		cfg.Logger = slog.Default()
		b, err = nilIfErr(kvstore.Open(cfg))
	default:
		err = fmt.Errorf("unknown backend %q", backend)
	}
	return b, err
}

// nilIfErr keeps a typed nil pointer out of the Backend interface.
func nilIfErr[T Backend](s T, err error) (Backend, error) {
	if err != nil {
		return nil, err
	}
	return s, nil
}

// quarantine renames path, and any SQLite sidecar files, to
// <path>.corrupt.YYYYMMDD_HHMMSS. Returns the new main path.
func quarantine(path string, now time.Time) (string, error) {
	dest := path + ".corrupt." + now.Format("20060102_150405")
	if err := os.Rename(path, dest); err != nil {
		return "", fmt.Errorf("move corrupt store aside: %w", err)
	}
	for _, suffix := range []string{"-wal", "-shm"} {
		if _, err := os.Stat(path + suffix); err == nil {
			if err := os.Rename(path+suffix, dest+suffix); err != nil {
				return dest, fmt.Errorf("move corrupt store aside: %w", err)
			}
		}
	}
	return dest, nil
}

// storeExists reports whether a store is already present at path.
func storeExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
