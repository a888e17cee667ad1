package ledger

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"articleregistry/backend/internal/domain"
	"articleregistry/backend/internal/store"
	"articleregistry/backend/internal/xid"
)

var (
	ErrSaleNotFound = errors.New("sale not found")
	ErrInvalidSale  = errors.New("invalid sale")
)

type book = store.Grouped[domain.Sale]

// Ledger keeps sales per article id under store.KeySales. Lists are stored
// newest first and re-sorted by timestamp on every read.
type Ledger struct {
	kv       store.KV
	logger   *zap.Logger
	validate *validator.Validate
	now      func() time.Time
}

func New(kv store.KV, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	validate := validator.New()
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	return &Ledger{
		kv:       kv,
		logger:   logger.Named("ledger"),
		validate: validate,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Sales returns the article's sales, newest first.
func (l *Ledger) Sales(ctx context.Context, articleID string) []domain.Sale {
	b := l.read(ctx)
	sales := append([]domain.Sale(nil), b.List(articleID)...)
	sortNewestFirst(sales)
	if sales == nil {
		sales = []domain.Sale{}
	}
	return sales
}

// Find locates a sale by id across every article.
func (l *Ledger) Find(ctx context.Context, saleID string) (domain.Sale, error) {
	b := l.read(ctx)
	if articleID, idx := locate(b, saleID); idx >= 0 {
		return b.List(articleID)[idx], nil
	}
	return domain.Sale{}, ErrSaleNotFound
}

func (l *Ledger) Record(ctx context.Context, articleID string, in domain.SaleInput) (domain.Sale, error) {
	articleID = strings.TrimSpace(articleID)
	if articleID == "" {
		return domain.Sale{}, fmt.Errorf("%w: articleId is required", ErrInvalidSale)
	}
	in, err := l.check(in)
	if err != nil {
		return domain.Sale{}, err
	}

	b, err := l.load(ctx)
	if err != nil {
		return domain.Sale{}, err
	}

	sale := domain.Sale{
		ID:          xid.New("sale"),
		Timestamp:   l.now(),
		ArticleID:   articleID,
		ArticleCode: in.ArticleCode,
		Customer:    in.Customer,
		Color:       in.Color,
		Quantity:    in.Quantity,
		Price:       in.Price,
		Currency:    in.Currency,
		Unit:        in.Unit,
	}
	existing := b.List(articleID)
	next := make([]domain.Sale, 0, len(existing)+1)
	next = append(next, sale)
	next = append(next, existing...)
	b.Put(articleID, next)

	if err := l.save(ctx, b); err != nil {
		return domain.Sale{}, err
	}
	return sale, nil
}

// Update replaces the user-entered fields of a sale. Id, timestamp and
// article id are kept.
func (l *Ledger) Update(ctx context.Context, saleID string, in domain.SaleInput) (domain.Sale, error) {
	in, err := l.check(in)
	if err != nil {
		return domain.Sale{}, err
	}

	b, err := l.load(ctx)
	if err != nil {
		return domain.Sale{}, err
	}
	articleID, idx := locate(b, saleID)
	if idx < 0 {
		return domain.Sale{}, ErrSaleNotFound
	}

	list := append([]domain.Sale(nil), b.List(articleID)...)
	sale := list[idx]
	if in.ArticleCode != "" {
		sale.ArticleCode = in.ArticleCode
	}
	sale.Customer = in.Customer
	sale.Color = in.Color
	sale.Quantity = in.Quantity
	sale.Price = in.Price
	sale.Currency = in.Currency
	sale.Unit = in.Unit
	list[idx] = sale
	b.Put(articleID, list)

	if err := l.save(ctx, b); err != nil {
		return domain.Sale{}, err
	}
	return sale, nil
}

func (l *Ledger) Delete(ctx context.Context, saleID string) error {
	b, err := l.load(ctx)
	if err != nil {
		return err
	}
	articleID, idx := locate(b, saleID)
	if idx < 0 {
		return ErrSaleNotFound
	}

	list := b.List(articleID)
	next := make([]domain.Sale, 0, len(list)-1)
	next = append(next, list[:idx]...)
	next = append(next, list[idx+1:]...)
	b.Put(articleID, next)
	return l.save(ctx, b)
}

// TotalQuantity sums the parsed quantity of the article's sales.
func (l *Ledger) TotalQuantity(ctx context.Context, articleID string) float64 {
	return sumQuantity(l.read(ctx).List(articleID)).InexactFloat64()
}

// SoldArticles returns the ids with at least one sale.
func (l *Ledger) SoldArticles(ctx context.Context) map[string]struct{} {
	b := l.read(ctx)
	sold := make(map[string]struct{}, b.Len())
	for _, id := range b.Keys() {
		sold[id] = struct{}{}
	}
	return sold
}

func (l *Ledger) check(in domain.SaleInput) (domain.SaleInput, error) {
	in.ArticleCode = strings.TrimSpace(in.ArticleCode)
	in.Customer = strings.TrimSpace(in.Customer)
	in.Color = strings.TrimSpace(in.Color)
	in.Quantity = strings.TrimSpace(in.Quantity)
	in.Price = strings.TrimSpace(in.Price)
	if in.Currency == "" {
		in.Currency = domain.CurrencyEUR
	}
	if in.Unit == "" {
		in.Unit = domain.UnitMeter
	}

	if err := l.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			problems := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				problems = append(problems, fe.Field()+" "+describe(fe))
			}
			return in, fmt.Errorf("%w: %s", ErrInvalidSale, strings.Join(problems, ", "))
		}
		return in, fmt.Errorf("%w: %v", ErrInvalidSale, err)
	}
	return in, nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of " + fe.Param()
	default:
		return "is invalid"
	}
}

// read is the query-path load: an unreadable ledger reads as empty.
func (l *Ledger) read(ctx context.Context) *book {
	b, err := l.load(ctx)
	if err != nil {
		l.logger.Warn("sales ledger unreadable, treating as empty", zap.Error(err))
		return store.NewGrouped[domain.Sale]()
	}
	return b
}

func (l *Ledger) load(ctx context.Context) (*book, error) {
	b := store.NewGrouped[domain.Sale]()
	if _, err := store.LoadJSON(ctx, l.kv, store.KeySales, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (l *Ledger) save(ctx context.Context, b *book) error {
	return store.SaveJSON(ctx, l.kv, store.KeySales, b)
}

func locate(b *book, saleID string) (string, int) {
	saleID = strings.TrimSpace(saleID)
	if saleID == "" {
		return "", -1
	}
	for _, articleID := range b.Keys() {
		for i, sale := range b.List(articleID) {
			if sale.ID == saleID {
				return articleID, i
			}
		}
	}
	return "", -1
}

func sortNewestFirst(sales []domain.Sale) {
	sort.SliceStable(sales, func(i, j int) bool {
		return sales[i].Timestamp.After(sales[j].Timestamp)
	})
}
