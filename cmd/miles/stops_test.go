package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/miles-to-go/internal/model"
	"github.com/Veraticus/miles-to-go/internal/store"
	"github.com/Veraticus/miles-to-go/internal/waypoints"
)

// useTempDatabase points the commands at a throwaway store file and restores
// the config key afterwards.
func useTempDatabase(t *testing.T) string {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "miles.db")
	previous := viper.GetString("database.path")
	viper.Set("database.path", dbPath)
	t.Cleanup(func() {
		viper.Set("database.path", previous)
	})
	return dbPath
}

// reopenStore opens the store file a command just wrote to so the test can
// inspect what actually landed on disk.
func reopenStore(t *testing.T, dbPath string) *store.Store {
	t.Helper()

	st, err := store.New(dbPath)
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

func runCommand(t *testing.T, cmd *cobra.Command, args ...string) error {
	t.Helper()

	cmd.SetArgs(args)
	return cmd.Execute()
}

func TestStopsSetWritesCommittedNamespace(t *testing.T) {
	dbPath := useTempDatabase(t)

	require.NoError(t, runCommand(t, stopsInitCmd(), "t1"))
	require.NoError(t, runCommand(t, stopsSetCmd(), "t1", "0", "--address", "221B Baker St"))

	st := reopenStore(t, dbPath)

	doc, ok := st.Get(waypoints.TransactionKey("t1"))
	require.True(t, ok, "committed transaction should exist")
	txn, err := model.TransactionFromDocument(doc)
	require.NoError(t, err)
	assert.Equal(t, "221B Baker St", txn.Comment.Waypoints["waypoint0"].Address,
		"a default save must land on the committed copy")

	_, ok = st.Get(waypoints.DraftTransactionKey("t1"))
	assert.False(t, ok, "a default save must not create a draft copy")
}

func TestStopsSetDraftWritesDraftNamespace(t *testing.T) {
	dbPath := useTempDatabase(t)

	require.NoError(t, runCommand(t, stopsInitCmd(), "t2"))
	require.NoError(t, runCommand(t, stopsSetCmd(), "t2", "0", "--address", "Paddington", "--draft"))

	st := reopenStore(t, dbPath)

	doc, ok := st.Get(waypoints.DraftTransactionKey("t2"))
	require.True(t, ok, "--draft should write the draft copy")
	txn, err := model.TransactionFromDocument(doc)
	require.NoError(t, err)
	assert.Equal(t, "Paddington", txn.Comment.Waypoints["waypoint0"].Address)

	doc, ok = st.Get(waypoints.TransactionKey("t2"))
	require.True(t, ok)
	txn, err = model.TransactionFromDocument(doc)
	require.NoError(t, err)
	assert.Empty(t, txn.Comment.Waypoints["waypoint0"].Address,
		"--draft must leave the committed copy untouched")
}
