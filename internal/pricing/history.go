package pricing

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"articleregistry/backend/internal/domain"
	"articleregistry/backend/internal/store"
)

// HistoryLimit caps saved calculations per article; the oldest is evicted.
const HistoryLimit = 20

var ErrCalculationNotFound = errors.New("pricing calculation not found")

type calculations = store.Grouped[domain.PricingCalculation]

// History stores saved calculations per article id under store.KeyPricing,
// newest first.
type History struct {
	kv     store.KV
	logger *zap.Logger
	now    func() time.Time
}

func NewHistory(kv store.KV, logger *zap.Logger) *History {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &History{
		kv:     kv,
		logger: logger.Named("pricing"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (h *History) List(ctx context.Context, articleID string) []domain.PricingCalculation {
	all, err := h.load(ctx)
	if err != nil {
		h.logger.Warn("pricing history unreadable, treating as empty", zap.Error(err))
		return []domain.PricingCalculation{}
	}
	list := append([]domain.PricingCalculation(nil), all.List(articleID)...)
	if list == nil {
		list = []domain.PricingCalculation{}
	}
	return list
}

// Save computes a snapshot of form and puts it at the front of the
// article's history.
func (h *History) Save(ctx context.Context, articleID string, basePrice float64, form domain.PricingForm) (domain.PricingCalculation, error) {
	articleID = strings.TrimSpace(articleID)
	if articleID == "" {
		return domain.PricingCalculation{}, store.ErrInvalidInput
	}
	calc, err := Snapshot(articleID, basePrice, form, h.now())
	if err != nil {
		return domain.PricingCalculation{}, err
	}

	all, err := h.load(ctx)
	if err != nil {
		return domain.PricingCalculation{}, err
	}
	existing := all.List(articleID)
	next := make([]domain.PricingCalculation, 0, HistoryLimit)
	next = append(next, calc)
	next = append(next, existing...)
	if len(next) > HistoryLimit {
		next = next[:HistoryLimit]
	}
	all.Put(articleID, next)

	if err := store.SaveJSON(ctx, h.kv, store.KeyPricing, all); err != nil {
		return domain.PricingCalculation{}, err
	}
	return calc, nil
}

func (h *History) Find(ctx context.Context, articleID, calcID string) (domain.PricingCalculation, error) {
	for _, calc := range h.List(ctx, articleID) {
		if calc.ID == strings.TrimSpace(calcID) {
			return calc, nil
		}
	}
	return domain.PricingCalculation{}, ErrCalculationNotFound
}

// Load returns the form a saved calculation was made with.
func (h *History) Load(ctx context.Context, articleID, calcID string) (domain.PricingForm, error) {
	calc, err := h.Find(ctx, articleID, calcID)
	if err != nil {
		return domain.PricingForm{}, err
	}
	return Restore(calc), nil
}

func (h *History) Delete(ctx context.Context, articleID, calcID string) error {
	all, err := h.load(ctx)
	if err != nil {
		return err
	}
	list := all.List(articleID)
	idx := -1
	for i, calc := range list {
		if calc.ID == strings.TrimSpace(calcID) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrCalculationNotFound
	}

	next := make([]domain.PricingCalculation, 0, len(list)-1)
	next = append(next, list[:idx]...)
	next = append(next, list[idx+1:]...)
	all.Put(articleID, next)
	return store.SaveJSON(ctx, h.kv, store.KeyPricing, all)
}

func (h *History) load(ctx context.Context) (*calculations, error) {
	all := store.NewGrouped[domain.PricingCalculation]()
	if _, err := store.LoadJSON(ctx, h.kv, store.KeyPricing, all); err != nil {
		return nil, err
	}
	return all, nil
}
