package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"articleregistry/backend/internal/domain"
	"articleregistry/backend/internal/store"
	"articleregistry/backend/internal/xid"
)

// Registry is the record collection persisted as one JSON array under
// store.KeyArticles. Every write replaces the whole array.
type Registry struct {
	kv     store.KV
	logger *zap.Logger
	now    func() time.Time
}

func NewRegistry(kv store.KV, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		kv:     kv,
		logger: logger.Named("registry"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// List returns the stored collection. A failed read is logged and reads as
// an empty collection.
func (r *Registry) List(ctx context.Context) []domain.Record {
	records, err := r.load(ctx)
	if err != nil {
		r.logger.Warn("article registry unreadable, treating as empty", zap.Error(err))
		return []domain.Record{}
	}
	return records
}

func (r *Registry) Get(ctx context.Context, id string) (domain.Record, error) {
	id = strings.TrimSpace(id)
	for _, rec := range r.List(ctx) {
		if rec.ID == id {
			return rec, nil
		}
	}
	return domain.Record{}, store.ErrNotFound
}

func (r *Registry) Create(ctx context.Context, rec domain.Record) (domain.Record, error) {
	rec.ArticleCode = strings.TrimSpace(rec.ArticleCode)
	if rec.ArticleCode == "" {
		return domain.Record{}, fmt.Errorf("articleCode is required: %w", store.ErrInvalidInput)
	}

	records, err := r.load(ctx)
	if err != nil {
		return domain.Record{}, err
	}

	now := r.now()
	rec.ID = xid.Record(rec.ArticleCode, rec.ColorCode, rec.TreatmentName, now, len(records))
	rec.CreatedAt = now
	rec.UpdatedAt = now

	if err := r.save(ctx, append(records, rec)); err != nil {
		return domain.Record{}, err
	}
	return rec, nil
}

// Update replaces the record with the given id. The id and creation time are
// kept from the stored record.
func (r *Registry) Update(ctx context.Context, id string, rec domain.Record) (domain.Record, error) {
	rec.ArticleCode = strings.TrimSpace(rec.ArticleCode)
	if rec.ArticleCode == "" {
		return domain.Record{}, fmt.Errorf("articleCode is required: %w", store.ErrInvalidInput)
	}

	records, err := r.load(ctx)
	if err != nil {
		return domain.Record{}, err
	}
	idx := indexOf(records, id)
	if idx < 0 {
		return domain.Record{}, store.ErrNotFound
	}

	rec.ID = records[idx].ID
	rec.CreatedAt = records[idx].CreatedAt
	rec.UpdatedAt = r.now()

	next := append([]domain.Record(nil), records...)
	next[idx] = rec
	if err := r.save(ctx, next); err != nil {
		return domain.Record{}, err
	}
	return rec, nil
}

func (r *Registry) Delete(ctx context.Context, id string) error {
	records, err := r.load(ctx)
	if err != nil {
		return err
	}
	idx := indexOf(records, id)
	if idx < 0 {
		return store.ErrNotFound
	}

	next := make([]domain.Record, 0, len(records)-1)
	next = append(next, records[:idx]...)
	next = append(next, records[idx+1:]...)
	return r.save(ctx, next)
}

// Clear removes every record and reports how many were removed. An
// unreadable registry is left as it is.
func (r *Registry) Clear(ctx context.Context) (int, error) {
	records, err := r.load(ctx)
	if err != nil {
		return 0, err
	}
	if err := r.save(ctx, []domain.Record{}); err != nil {
		return 0, err
	}
	return len(records), nil
}

func (r *Registry) load(ctx context.Context) ([]domain.Record, error) {
	var records []domain.Record
	if _, err := store.LoadJSON(ctx, r.kv, store.KeyArticles, &records); err != nil {
		return nil, err
	}
	if records == nil {
		records = []domain.Record{}
	}
	return records, nil
}

func (r *Registry) save(ctx context.Context, records []domain.Record) error {
	return store.SaveJSON(ctx, r.kv, store.KeyArticles, records)
}

func indexOf(records []domain.Record, id string) int {
	id = strings.TrimSpace(id)
	for i, rec := range records {
		if rec.ID == id {
			return i
		}
	}
	return -1
}
