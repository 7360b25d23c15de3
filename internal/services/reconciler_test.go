package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finances/internal/cache"
	"finances/internal/core"
)

func TestReconcileDuplicatesCreateOneCategory(t *testing.T) {
	ctx := context.Background()
	store := newFlakyStore()
	r := NewCategoryReconciler(store, nil)

	got, err := r.Reconcile(ctx, []string{"Food", "Food", " Food "})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Food", got["Food"].Title)
	assert.Len(t, store.Categories(), 1)
	assert.Equal(t, []string{"Food"}, store.createdCatTitles)
}

func TestReconcileExistingCategoriesAreReused(t *testing.T) {
	ctx := context.Background()
	store := newFlakyStore()
	seeded, err := store.Store.CreateCategories(ctx, []string{"Rent"})
	require.NoError(t, err)

	r := NewCategoryReconciler(store, nil)
	got, err := r.Reconcile(ctx, []string{"Rent", "Travel"})
	require.NoError(t, err)

	assert.Equal(t, seeded[0].ID, got["Rent"].ID)
	assert.Equal(t, "Travel", got["Travel"].Title)
	assert.Equal(t, []string{"Travel"}, store.createdCatTitles)
}

func TestReconcileBlankNamesResolveToNothing(t *testing.T) {
	ctx := context.Background()
	store := newFlakyStore()
	r := NewCategoryReconciler(store, nil)

	got, err := r.Reconcile(ctx, []string{"", "   "})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Zero(t, store.findCalls)
	assert.Empty(t, store.Categories())
}

func TestReconcileNamesAreCaseSensitive(t *testing.T) {
	ctx := context.Background()
	r := NewCategoryReconciler(newFlakyStore(), nil)

	got, err := r.Reconcile(ctx, []string{"food", "Food"})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.NotEqual(t, got["food"].ID, got["Food"].ID)
}

func TestReconcileServesCacheHits(t *testing.T) {
	ctx := context.Background()
	store := newFlakyStore()
	known := cache.NewLRUCache[core.Category](16, time.Hour)
	r := NewCategoryReconciler(store, known)

	first, err := r.Reconcile(ctx, []string{"Food"})
	require.NoError(t, err)
	require.Equal(t, 1, store.findCalls)

	second, err := r.Reconcile(ctx, []string{"Food"})
	require.NoError(t, err)
	assert.Equal(t, 1, store.findCalls, "second lookup must be served from cache")
	assert.Equal(t, first["Food"].ID, second["Food"].ID)
}

func TestReconcileStoreFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("find", func(t *testing.T) {
		store := newFlakyStore()
		store.failFind = true
		_, err := NewCategoryReconciler(store, nil).Reconcile(ctx, []string{"Food"})
		assert.ErrorIs(t, err, core.ErrStore)
		assert.Zero(t, store.createCatsCalls)
	})

	t.Run("create", func(t *testing.T) {
		store := newFlakyStore()
		store.failCreateCats = true
		known := cache.NewLRUCache[core.Category](16, time.Hour)
		_, err := NewCategoryReconciler(store, known).Reconcile(ctx, []string{"Food"})
		assert.ErrorIs(t, err, core.ErrStore)
		assert.Zero(t, known.Size(), "failed reconciliations must not be cached")
	})
}

func TestReconcileConcurrentCallersShareOneCategory(t *testing.T) {
	ctx := context.Background()
	store := newFlakyStore()
	r := NewCategoryReconciler(store, nil)

	const workers = 20
	ids := make([]string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got, err := r.Reconcile(ctx, []string{"Groceries"})
			assert.NoError(t, err)
			ids[i] = got["Groceries"].ID
		}(i)
	}
	wg.Wait()

	require.Len(t, store.Categories(), 1)
	for _, id := range ids {
		assert.Equal(t, store.Categories()[0].ID, id)
	}
}
