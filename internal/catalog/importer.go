package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"articleregistry/backend/internal/domain"
	"articleregistry/backend/internal/ingest"
	"articleregistry/backend/internal/store"
	"articleregistry/backend/internal/xid"
)

var ErrNoValidRows = errors.New("no valid rows found")

type Importer struct {
	registry *Registry
	logger   *zap.Logger
}

func NewImporter(registry *Registry, logger *zap.Logger) *Importer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{registry: registry, logger: logger.Named("importer")}
}

// Import normalises parsed rows into records and merges them into the stored
// collection. Replace discards the existing collection; Append keeps it and
// adds the new records after it without de-duplication. Zero usable rows
// returns ErrNoValidRows and leaves the store untouched.
func (i *Importer) Import(ctx context.Context, rows []ingest.Row, mode domain.ImportMode) (domain.ImportResult, []domain.Record, error) {
	if mode != domain.ImportReplace && mode != domain.ImportAppend {
		return domain.ImportResult{}, nil, fmt.Errorf("unknown import mode %q: %w", mode, store.ErrInvalidInput)
	}

	imported := i.Normalize(rows)
	if len(imported) == 0 {
		return domain.ImportResult{}, nil, ErrNoValidRows
	}

	merged := imported
	if mode == domain.ImportAppend {
		existing, err := i.registry.load(ctx)
		if err != nil {
			return domain.ImportResult{}, nil, err
		}
		merged = make([]domain.Record, 0, len(existing)+len(imported))
		merged = append(merged, existing...)
		merged = append(merged, imported...)
	}

	if err := i.registry.save(ctx, merged); err != nil {
		return domain.ImportResult{}, nil, err
	}

	i.logger.Info("articles imported",
		zap.String("mode", string(mode)),
		zap.Int("imported", len(imported)),
		zap.Int("total", len(merged)),
	)
	return domain.ImportResult{Imported: len(imported), Total: len(merged), Mode: mode}, imported, nil
}

// Normalize turns rows into records with fresh ids. Rows without an
// articleCode are skipped.
func (i *Importer) Normalize(rows []ingest.Row) []domain.Record {
	now := i.registry.now()
	records := make([]domain.Record, 0, len(rows))
	for idx, row := range rows {
		rec := domain.RecordFromFields(row)
		if strings.TrimSpace(rec.ArticleCode) == "" {
			continue
		}
		rec.ID = xid.Record(rec.ArticleCode, rec.ColorCode, rec.TreatmentName, now, idx)
		rec.CreatedAt = now
		rec.UpdatedAt = now
		records = append(records, rec)
	}
	return records
}
