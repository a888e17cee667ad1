package catalog

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"articleregistry/backend/internal/domain"
	"articleregistry/backend/internal/store"
)

// RecentLimit caps the recently viewed list; the oldest id drops off.
const RecentLimit = 10

// ViewState persists the browsing state around the article list: favorites,
// recently viewed ids and the saved filter set.
type ViewState struct {
	kv     store.KV
	logger *zap.Logger
}

func NewViewState(kv store.KV, logger *zap.Logger) *ViewState {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ViewState{kv: kv, logger: logger.Named("viewstate")}
}

func (v *ViewState) Favorites(ctx context.Context) []string {
	return v.loadIDs(ctx, store.KeyFavorites)
}

// ToggleFavorite adds or removes id and reports whether it is now a favorite.
func (v *ViewState) ToggleFavorite(ctx context.Context, id string) (bool, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return false, store.ErrInvalidInput
	}
	ids, err := v.loadIDsStrict(ctx, store.KeyFavorites)
	if err != nil {
		return false, err
	}

	next := make([]string, 0, len(ids)+1)
	removed := false
	for _, existing := range ids {
		if existing == id {
			removed = true
			continue
		}
		next = append(next, existing)
	}
	if !removed {
		next = append(next, id)
	}
	if err := store.SaveJSON(ctx, v.kv, store.KeyFavorites, next); err != nil {
		return false, err
	}
	return !removed, nil
}

// Recent returns recently viewed ids, most recent first.
func (v *ViewState) Recent(ctx context.Context) []string {
	return v.loadIDs(ctx, store.KeyRecent)
}

// TouchRecent moves id to the front of the recent list.
func (v *ViewState) TouchRecent(ctx context.Context, id string) ([]string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, store.ErrInvalidInput
	}
	ids, err := v.loadIDsStrict(ctx, store.KeyRecent)
	if err != nil {
		return nil, err
	}

	next := make([]string, 0, RecentLimit)
	next = append(next, id)
	for _, existing := range ids {
		if len(next) == RecentLimit {
			break
		}
		if existing != id {
			next = append(next, existing)
		}
	}
	if err := store.SaveJSON(ctx, v.kv, store.KeyRecent, next); err != nil {
		return nil, err
	}
	return next, nil
}

// Filters returns the saved filter set, or nil when none is saved.
func (v *ViewState) Filters(ctx context.Context) *domain.FilterSet {
	var filters domain.FilterSet
	found, err := store.LoadJSON(ctx, v.kv, store.KeyFilters, &filters)
	if err != nil {
		v.logger.Warn("saved filters unreadable, ignoring", zap.Error(err))
		return nil
	}
	if !found || filters.IsEmpty() {
		return nil
	}
	return &filters
}

// SaveFilters stores f. An empty set is stored as "{}", the cleared state.
func (v *ViewState) SaveFilters(ctx context.Context, f *domain.FilterSet) error {
	if f.IsEmpty() {
		return v.kv.Set(ctx, store.KeyFilters, "{}")
	}
	return store.SaveJSON(ctx, v.kv, store.KeyFilters, f)
}

func (v *ViewState) ClearFilters(ctx context.Context) error {
	return v.SaveFilters(ctx, nil)
}

func (v *ViewState) loadIDs(ctx context.Context, key string) []string {
	ids, err := v.loadIDsStrict(ctx, key)
	if err != nil {
		v.logger.Warn("id list unreadable, treating as empty", zap.String("key", key), zap.Error(err))
		return []string{}
	}
	return ids
}

func (v *ViewState) loadIDsStrict(ctx context.Context, key string) ([]string, error) {
	var ids []string
	if _, err := store.LoadJSON(ctx, v.kv, key, &ids); err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}
