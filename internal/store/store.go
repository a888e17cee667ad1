package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)

// Keys written by the catalog core. Every value is UTF-8 JSON text.
const (
	KeyArticles  = "article_registry"
	KeySales     = "sales_history"
	KeyPricing   = "pricing_history"
	KeyFilters   = "article_filters"
	KeyFavorites = "article_favorites"
	KeyRecent    = "article_recent"
)

// KV is an opaque string key-value store. A missing key reports ok=false
// with a nil error.
type KV interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key string, value string) error
}

type Backend interface {
	KV
	Ping(ctx context.Context) error
	Close() error
}

// LoadJSON decodes the value under key into dest. An absent or blank value
// leaves dest untouched and returns false.
func LoadJSON(ctx context.Context, kv KV, key string, dest any) (bool, error) {
	raw, ok, err := kv.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", key, err)
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// SaveJSON replaces the value under key with the JSON encoding of value.
func SaveJSON(ctx context.Context, kv KV, key string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := kv.Set(ctx, key, string(payload)); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}
