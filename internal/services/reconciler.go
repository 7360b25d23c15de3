package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/semaphore"

	"finances/internal/cache"
	"finances/internal/core"
	"finances/internal/ports"
)

// CategoryReconciler maps category titles to stored categories, creating the
// missing ones exactly once.
type CategoryReconciler struct {
	store ports.CategoryStore
	cache *cache.LRUCache[core.Category]

	// create guards lookup-then-insert of missing titles.
	create *semaphore.Weighted
}

// NewCategoryReconciler returns a reconciler over store. known may be nil;
// categories are never deleted, so cached entries cannot go stale.
func NewCategoryReconciler(store ports.CategoryStore, known *cache.LRUCache[core.Category]) *CategoryReconciler {
	return &CategoryReconciler{
		store:  store,
		cache:  known,
		create: semaphore.NewWeighted(1),
	}
}

// Reconcile returns one entry per distinct non-blank name. Names are trimmed
// and compared exactly. Blank names resolve to no category and are absent
// from the result.
func (r *CategoryReconciler) Reconcile(ctx context.Context, names []string) (map[string]core.Category, error) {
	titles := distinctTitles(names)
	resolved := make(map[string]core.Category, len(titles))
	if len(titles) == 0 {
		return resolved, nil
	}

	pending := titles
	if r.cache != nil {
		var hits map[string]core.Category
		hits, pending = r.cache.GetMany(titles)
		for title, c := range hits {
			resolved[title] = c
		}
	}
	if len(pending) == 0 {
		return resolved, nil
	}

	if err := r.create.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("reconcile categories: %w", err)
	}
	defer r.create.Release(1)

	existing, err := r.store.FindCategoriesByTitles(ctx, pending)
	if err != nil {
		return nil, fmt.Errorf("find categories: %w", err)
	}
	fromStore := make(map[string]core.Category, len(pending))
	for _, c := range existing {
		fromStore[c.Title] = c
	}

	var missing []string
	for _, title := range pending {
		if _, ok := fromStore[title]; !ok {
			missing = append(missing, title)
		}
	}

	if len(missing) > 0 {
		created, err := r.store.CreateCategories(ctx, missing)
		if err != nil {
			return nil, fmt.Errorf("create categories: %w", err)
		}
		for _, c := range created {
			fromStore[c.Title] = c
		}
		for _, title := range missing {
			if _, ok := fromStore[title]; !ok {
				return nil, &core.StoreError{
					Op:  "create categories",
					Err: fmt.Errorf("category %q was not returned by the store", title),
				}
			}
		}
		slog.InfoContext(ctx, "Created missing categories",
			"count", len(missing),
			"titles", missing)
	}

	for _, title := range pending {
		c := fromStore[title]
		resolved[title] = c
		if r.cache != nil {
			r.cache.Set(title, c)
		}
	}

	return resolved, nil
}

func distinctTitles(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
