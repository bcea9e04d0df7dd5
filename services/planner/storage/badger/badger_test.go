// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package badger

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianPlanner/services/planner/domain"
	"github.com/AleutianAI/AleutianPlanner/services/planner/knowledge"
)

func openStore(t *testing.T) *DomainStore {
	t.Helper()
	db, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewDomainStore(db)
}

func TestOpen(t *testing.T) {
	t.Run("requires a path", func(t *testing.T) {
		_, err := Open(Config{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "path is required")
	})

	t.Run("persists across reopen", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Path = filepath.Join(t.TempDir(), "db")

		db, err := Open(cfg)
		require.NoError(t, err)
		assert.False(t, db.InMemory())
		require.NoError(t, db.WithTxn(context.Background(), func(txn *badger.Txn) error {
			return txn.Set([]byte("k"), []byte("v"))
		}))
		require.NoError(t, db.Close())

		db, err = Open(cfg)
		require.NoError(t, err)
		defer db.Close()
		require.NoError(t, db.WithReadTxn(context.Background(), func(txn *badger.Txn) error {
			item, err := txn.Get([]byte("k"))
			if err != nil {
				return err
			}
			return item.Value(func(val []byte) error {
				assert.Equal(t, []byte("v"), val)
				return nil
			})
		}))
	})

	t.Run("cancelled context", func(t *testing.T) {
		db, err := OpenInMemory()
		require.NoError(t, err)
		defer db.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err = db.WithTxn(ctx, func(*badger.Txn) error { return nil })
		assert.ErrorIs(t, err, context.Canceled)
		err = db.WithReadTxn(ctx, func(*badger.Txn) error { return nil })
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestDomainStore(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	names, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)

	sussman := domain.MustExample("sussman")
	blocks := domain.MustExample("blocks")

	v1, err := store.Put(ctx, sussman)
	require.NoError(t, err)
	_, err = store.Put(ctx, blocks)
	require.NoError(t, err)

	names, err = store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"blocks", "sussman"}, names)

	record, err := store.Get(ctx, "sussman")
	require.NoError(t, err)
	assert.Equal(t, v1, record.Version)
	assert.Equal(t, sussman.Actions, record.Document.Actions)

	compiled, err := record.Document.Compile()
	require.NoError(t, err)
	assert.True(t, compiled.Problem.InitialState.Contains(knowledge.Literal("on", "s4", "s5")))

	t.Run("replace bumps the version", func(t *testing.T) {
		changed := sussman
		changed.Description = "updated"
		v2, err := store.Put(ctx, changed)
		require.NoError(t, err)
		assert.Greater(t, v2, v1)

		record, err := store.Get(ctx, "sussman")
		require.NoError(t, err)
		assert.Equal(t, "updated", record.Document.Description)
	})

	t.Run("invalid document is rejected", func(t *testing.T) {
		bad := blocks
		bad.Name = "broken"
		bad.Actions = []string{"pickup X ontable X"}
		_, err := store.Put(ctx, bad)
		require.ErrorIs(t, err, knowledge.ErrMalformedAction)

		_, err = store.Get(ctx, "broken")
		assert.ErrorIs(t, err, ErrDomainNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, "blocks"))
		_, err := store.Get(ctx, "blocks")
		assert.ErrorIs(t, err, ErrDomainNotFound)
		assert.ErrorIs(t, store.Delete(ctx, "blocks"), ErrDomainNotFound)
	})
}
