package store

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func insertDoc(t *testing.T, m *Memory, coll string, doc map[string]any) uuid.UUID {
	t.Helper()
	id := uuid.New()
	require.NoError(t, m.Insert(context.Background(), coll, id, doc))
	return id
}

func TestMemoryCRUD(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	id := insertDoc(t, m, "jobs", map[string]any{"customer_name": "Dana", "estimated_revenue": 12000.0})

	doc, err := m.Get(ctx, "jobs", id)
	require.NoError(t, err)
	assert.Equal(t, "Dana", doc["customer_name"])

	// The returned doc is a copy; mutating it must not leak into the store.
	doc["customer_name"] = "changed"
	doc2, err := m.Get(ctx, "jobs", id)
	require.NoError(t, err)
	assert.Equal(t, "Dana", doc2["customer_name"])

	require.NoError(t, m.Replace(ctx, "jobs", id, map[string]any{"customer_name": "Dana W."}))
	doc3, err := m.Get(ctx, "jobs", id)
	require.NoError(t, err)
	assert.Equal(t, "Dana W.", doc3["customer_name"])

	require.NoError(t, m.Delete(ctx, "jobs", id))
	_, err = m.Get(ctx, "jobs", id)
	assert.ErrorIs(t, err, ErrNoRecord)

	assert.ErrorIs(t, m.Replace(ctx, "jobs", id, map[string]any{}), ErrNoRecord)
	assert.ErrorIs(t, m.Delete(ctx, "jobs", id), ErrNoRecord)
}

func TestMemoryDuplicateInsert(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	id := uuid.New()
	require.NoError(t, m.Insert(ctx, "jobs", id, map[string]any{"a": 1.0}))
	assert.ErrorIs(t, m.Insert(ctx, "jobs", id, map[string]any{"a": 2.0}), ErrDuplicateRecord)
}

func TestMemoryListFilters(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	insertDoc(t, m, "jobs", map[string]any{"status": "pending", "estimated_revenue": 5000.0, "customer_name": "Alvarez Roofing"})
	insertDoc(t, m, "jobs", map[string]any{"status": "completed", "estimated_revenue": 12000.0, "customer_name": "Brightside HOA"})
	insertDoc(t, m, "jobs", map[string]any{"status": "pending", "estimated_revenue": 9000.0, "customer_name": "Castillo Farms"})

	t.Run("Eq", func(t *testing.T) {
		docs, err := m.List(ctx, "jobs", Query{Filters: []Filter{Eq("status", "pending")}})
		require.NoError(t, err)
		assert.Len(t, docs, 2)
	})

	t.Run("Range", func(t *testing.T) {
		docs, err := m.List(ctx, "jobs", Query{Filters: []Filter{
			Gte("estimated_revenue", 6000.0),
			Lte("estimated_revenue", 10000.0),
		}})
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, "Castillo Farms", docs[0]["customer_name"])
	})

	t.Run("MatchAnyIsCaseInsensitive", func(t *testing.T) {
		docs, err := m.List(ctx, "jobs", Query{Filters: []Filter{
			MatchAny("bright", "customer_name", "notes"),
		}})
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, "Brightside HOA", docs[0]["customer_name"])
	})

	t.Run("Limit", func(t *testing.T) {
		docs, err := m.List(ctx, "jobs", Query{Limit: 2})
		require.NoError(t, err)
		assert.Len(t, docs, 2)
	})

	t.Run("UnknownCollectionIsEmpty", func(t *testing.T) {
		docs, err := m.List(ctx, "nothing", Query{})
		require.NoError(t, err)
		assert.Empty(t, docs)
	})
}

func TestMemoryListSort(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	// Two records share a customer name so the seq tiebreak is observable.
	insertDoc(t, m, "jobs", map[string]any{"customer_name": "Acme", "estimated_revenue": 100.0, "idx": 0.0})
	insertDoc(t, m, "jobs", map[string]any{"customer_name": "Zen Solar", "estimated_revenue": 300.0, "idx": 1.0})
	insertDoc(t, m, "jobs", map[string]any{"customer_name": "Acme", "estimated_revenue": 200.0, "idx": 2.0})

	t.Run("AscendingWithStableTies", func(t *testing.T) {
		docs, err := m.List(ctx, "jobs", Query{Sort: &Sort{Field: "customer_name"}})
		require.NoError(t, err)
		require.Len(t, docs, 3)
		assert.Equal(t, 0.0, docs[0]["idx"])
		assert.Equal(t, 2.0, docs[1]["idx"], "equal keys keep insertion order")
		assert.Equal(t, 1.0, docs[2]["idx"])
	})

	t.Run("DescendingNumeric", func(t *testing.T) {
		docs, err := m.List(ctx, "jobs", Query{Sort: &Sort{Field: "estimated_revenue", Desc: true, Numeric: true}})
		require.NoError(t, err)
		require.Len(t, docs, 3)
		assert.Equal(t, 300.0, docs[0]["estimated_revenue"])
		assert.Equal(t, 100.0, docs[2]["estimated_revenue"])
	})

	t.Run("NoSortIsInsertionOrder", func(t *testing.T) {
		docs, err := m.List(ctx, "jobs", Query{})
		require.NoError(t, err)
		require.Len(t, docs, 3)
		assert.Equal(t, 0.0, docs[0]["idx"])
		assert.Equal(t, 1.0, docs[1]["idx"])
		assert.Equal(t, 2.0, docs[2]["idx"])
	})
}

func TestMemoryTx(t *testing.T) {
	ctx := context.Background()

	t.Run("CommitOnSuccess", func(t *testing.T) {
		m := NewMemory()
		id := uuid.New()
		err := m.Tx(ctx, func(tx Store) error {
			return tx.Insert(ctx, "jobs", id, map[string]any{"a": 1.0})
		})
		require.NoError(t, err)
		_, err = m.Get(ctx, "jobs", id)
		assert.NoError(t, err)
	})

	t.Run("RollbackOnError", func(t *testing.T) {
		m := NewMemory()
		keep := insertDoc(t, m, "jobs", map[string]any{"a": 1.0})

		boom := errors.New("boom")
		err := m.Tx(ctx, func(tx Store) error {
			if err := tx.Delete(ctx, "jobs", keep); err != nil {
				return err
			}
			if err := tx.Insert(ctx, "jobs", uuid.New(), map[string]any{"b": 2.0}); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		// Nothing from the failed transaction is visible.
		_, err = m.Get(ctx, "jobs", keep)
		assert.NoError(t, err)
		docs, err := m.List(ctx, "jobs", Query{})
		require.NoError(t, err)
		assert.Len(t, docs, 1)
	})

	t.Run("CancelledContextAborts", func(t *testing.T) {
		m := NewMemory()
		id := uuid.New()
		cctx, cancel := context.WithCancel(ctx)
		err := m.Tx(cctx, func(tx Store) error {
			if err := tx.Insert(cctx, "jobs", id, map[string]any{"a": 1.0}); err != nil {
				return err
			}
			cancel()
			return nil
		})
		assert.Error(t, err)
		_, err = m.Get(ctx, "jobs", id)
		assert.ErrorIs(t, err, ErrNoRecord)
	})
}
