package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/Veraticus/miles-to-go/internal/store"
	"github.com/Veraticus/miles-to-go/internal/waypoints"
)

// openStore opens the document store at the configured path, migrated and
// loaded. Callers own closing it.
func openStore(ctx context.Context) (*store.Store, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dbPath = filepath.Join(home, ".local", "share", "miles", "miles.db")
	}

	st, err := store.New(dbPath)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}

// openMirror opens the store and builds a settled accessor over it: the
// initial subscription notifications have been flushed, so the mirror
// reflects everything persisted before this process started.
func openMirror(ctx context.Context) (*store.Store, *waypoints.Accessor, error) {
	st, err := openStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	accessor := waypoints.NewAccessor(st)
	st.Flush()
	return st, accessor, nil
}
