package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"articleregistry/backend/internal/cache"
	"articleregistry/backend/internal/catalog"
	"articleregistry/backend/internal/cloudsync"
	"articleregistry/backend/internal/domain"
	"articleregistry/backend/internal/ingest"
	"articleregistry/backend/internal/ledger"
	"articleregistry/backend/internal/pricing"
	"articleregistry/backend/internal/report"
	"articleregistry/backend/internal/store"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Syncer pushes imported records to a remote registry.
type Syncer interface {
	Enabled() bool
	PushArticles(ctx context.Context, records []domain.Record, mode domain.ImportMode) (cloudsync.BulkResult, error)
}

type Options struct {
	Logger      *zap.Logger
	Pinger      Pinger
	StatsCache  cache.StatisticsCache
	StatsTTL    time.Duration
	Sync        Syncer
	SyncTimeout time.Duration
}

// Service is the single entry point for the API. Mutations are serialised
// so each read-modify-write of a store key sees the previous write.
type Service struct {
	mu sync.Mutex
	bg sync.WaitGroup

	registry *catalog.Registry
	importer *catalog.Importer
	view     *catalog.ViewState
	ledger   *ledger.Ledger
	pricing  *pricing.History
	renderer *report.Renderer

	pinger      Pinger
	statsCache  cache.StatisticsCache
	statsTTL    time.Duration
	sync        Syncer
	syncTimeout time.Duration
	logger      *zap.Logger
}

func New(kv store.KV, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	statsCache := opts.StatsCache
	if statsCache == nil {
		statsCache = cache.NoopStatisticsCache{}
	}
	statsTTL := opts.StatsTTL
	if statsTTL <= 0 {
		statsTTL = 30 * time.Second
	}
	syncTimeout := opts.SyncTimeout
	if syncTimeout <= 0 {
		syncTimeout = 30 * time.Second
	}

	registry := catalog.NewRegistry(kv, logger)
	return &Service{
		registry:    registry,
		importer:    catalog.NewImporter(registry, logger),
		view:        catalog.NewViewState(kv, logger),
		ledger:      ledger.New(kv, logger),
		pricing:     pricing.NewHistory(kv, logger),
		renderer:    report.NewRenderer(),
		pinger:      opts.Pinger,
		statsCache:  statsCache,
		statsTTL:    statsTTL,
		sync:        opts.Sync,
		syncTimeout: syncTimeout,
		logger:      logger.Named("service"),
	}
}

func (s *Service) Health(ctx context.Context) error {
	if s.pinger == nil {
		return nil
	}
	return s.pinger.Ping(ctx)
}

// Wait blocks until background uploads started by imports have finished.
func (s *Service) Wait() {
	s.bg.Wait()
}

// ListArticles runs the filter/search/sort pipeline over the stored records.
// Favorites and recent ids come from the stored view state. The
// savedSearches view applies the saved filter set when the query has none.
func (s *Service) ListArticles(ctx context.Context, q domain.ArticleQuery) []domain.Record {
	q = s.resolveQuery(ctx, q)

	var sold catalog.SoldLookup
	if q.Filters != nil && q.Filters.SoldItemsOnly {
		ids := s.ledger.SoldArticles(ctx)
		sold = func(id string) bool {
			_, ok := ids[id]
			return ok
		}
	}
	return catalog.Apply(s.registry.List(ctx), q, sold)
}

func (s *Service) ListArticleGroups(ctx context.Context, q domain.ArticleQuery) []domain.ArticleGroup {
	return catalog.Group(s.ListArticles(ctx, q))
}

func (s *Service) resolveQuery(ctx context.Context, q domain.ArticleQuery) domain.ArticleQuery {
	switch q.View {
	case domain.ViewFavorites:
		q.Favorites = s.view.Favorites(ctx)
	case domain.ViewRecent:
		q.Recent = s.view.Recent(ctx)
	case domain.ViewSavedSearches:
		if q.Filters.IsEmpty() {
			q.Filters = s.view.Filters(ctx)
		}
	case "":
		q.View = domain.ViewAll
	}
	if q.Filters.IsEmpty() {
		q.Filters = nil
	}
	return q
}

func (s *Service) GetArticle(ctx context.Context, id string) (domain.Record, error) {
	return s.registry.Get(ctx, id)
}

func (s *Service) CreateArticle(ctx context.Context, rec domain.Record) (domain.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	created, err := s.registry.Create(ctx, rec)
	if err != nil {
		return domain.Record{}, err
	}
	s.logger.Info("article created", zap.String("id", created.ID), zap.String("actor", actorName(ctx)))
	return created, nil
}

func (s *Service) UpdateArticle(ctx context.Context, id string, rec domain.Record) (domain.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.Update(ctx, id, rec)
}

func (s *Service) DeleteArticle(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.Delete(ctx, id)
}

func (s *Service) DeleteAllArticles(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed, err := s.registry.Clear(ctx)
	if err != nil {
		return 0, err
	}
	s.logger.Info("article registry cleared", zap.Int("removed", removed), zap.String("actor", actorName(ctx)))
	return removed, nil
}

// ImportArticles parses an uploaded export and merges it into the registry.
// When a remote registry is configured the imported records are pushed to
// it in the background; that upload never affects the local result.
func (s *Service) ImportArticles(ctx context.Context, body io.Reader, format string, mode domain.ImportMode) (domain.ImportResult, error) {
	parser, err := ingest.ForFormat(format)
	if err != nil {
		return domain.ImportResult{}, fmt.Errorf("%v: %w", err, store.ErrInvalidInput)
	}
	rows, err := parser.Parse(body)
	if err != nil {
		return domain.ImportResult{}, fmt.Errorf("parse upload: %v: %w", err, store.ErrInvalidInput)
	}

	s.mu.Lock()
	result, imported, err := s.importer.Import(ctx, rows, mode)
	s.mu.Unlock()
	if err != nil {
		return domain.ImportResult{}, err
	}

	s.pushInBackground(imported, mode)
	return result, nil
}

func (s *Service) pushInBackground(records []domain.Record, mode domain.ImportMode) {
	if s.sync == nil || !s.sync.Enabled() || len(records) == 0 {
		return
	}
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.syncTimeout)
		defer cancel()
		if _, err := s.sync.PushArticles(ctx, records, mode); err != nil {
			s.logger.Warn("cloud sync failed", zap.Int("records", len(records)), zap.Error(err))
		}
	}()
}

func (s *Service) ArticleSales(ctx context.Context, articleID string) domain.ArticleSales {
	articleID = strings.TrimSpace(articleID)
	return domain.ArticleSales{
		ArticleID:     articleID,
		Sales:         s.ledger.Sales(ctx, articleID),
		TotalQuantity: s.ledger.TotalQuantity(ctx, articleID),
	}
}

// RecordSale records a sale against a stored article. The article code is
// taken from the record when the form leaves it blank.
func (s *Service) RecordSale(ctx context.Context, articleID string, in domain.SaleInput) (domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.registry.Get(ctx, articleID)
	if err != nil {
		return domain.Sale{}, err
	}
	if strings.TrimSpace(in.ArticleCode) == "" {
		in.ArticleCode = rec.ArticleCode
	}

	sale, err := s.ledger.Record(ctx, rec.ID, in)
	if err != nil {
		return domain.Sale{}, err
	}
	s.invalidateStatistics(ctx)
	return sale, nil
}

func (s *Service) UpdateSale(ctx context.Context, saleID string, in domain.SaleInput) (domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sale, err := s.ledger.Update(ctx, saleID, in)
	if err != nil {
		return domain.Sale{}, err
	}
	s.invalidateStatistics(ctx)
	return sale, nil
}

func (s *Service) DeleteSale(ctx context.Context, saleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ledger.Delete(ctx, saleID); err != nil {
		return err
	}
	s.invalidateStatistics(ctx)
	return nil
}

// Statistics serves the dashboard aggregates from cache when possible. A
// miss is computed and cached under the mutation lock, so a sale recorded
// meanwhile invalidates after the fill rather than before it.
func (s *Service) Statistics(ctx context.Context) domain.SalesStatistics {
	if cached, ok, err := s.statsCache.Get(ctx, cache.StatisticsKey); err != nil {
		s.logger.Warn("statistics cache read failed", zap.Error(err))
	} else if ok {
		return *cached
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stats := s.ledger.Statistics(ctx)
	if err := s.statsCache.Set(ctx, cache.StatisticsKey, &stats, s.statsTTL); err != nil {
		s.logger.Warn("statistics cache write failed", zap.Error(err))
	}
	return stats
}

func (s *Service) invalidateStatistics(ctx context.Context) {
	if err := s.statsCache.Invalidate(ctx, cache.StatisticsKey); err != nil {
		s.logger.Warn("statistics cache invalidation failed", zap.Error(err))
	}
}

func (s *Service) Markets() []pricing.Market {
	return pricing.Markets()
}

func (s *Service) DefaultPricingForm() domain.PricingForm {
	return pricing.DefaultForm()
}

// Quote prices a stored article, or the base price given in the request
// when no article id is set.
func (s *Service) Quote(ctx context.Context, req domain.QuoteRequest) (domain.PricingQuote, error) {
	form := withDefaultMarket(req.Form)
	if id := strings.TrimSpace(req.ArticleID); id != "" {
		rec, err := s.registry.Get(ctx, id)
		if err != nil {
			return domain.PricingQuote{}, err
		}
		return pricing.Quote(rec.ID, rec.BasePrice(), form)
	}
	if req.BasePrice == nil {
		return domain.PricingQuote{}, fmt.Errorf("articleId or basePrice is required: %w", store.ErrInvalidInput)
	}
	return pricing.Quote("", *req.BasePrice, form)
}

func (s *Service) SelectMarket(req domain.SelectMarketRequest) (domain.PricingForm, error) {
	return pricing.SelectMarket(req.Form, req.Market)
}

func (s *Service) PricingHistory(ctx context.Context, articleID string) []domain.PricingCalculation {
	return s.pricing.List(ctx, strings.TrimSpace(articleID))
}

// SaveCalculation snapshots the form against the stored article's base price.
func (s *Service) SaveCalculation(ctx context.Context, articleID string, form domain.PricingForm) (domain.PricingCalculation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.registry.Get(ctx, articleID)
	if err != nil {
		return domain.PricingCalculation{}, err
	}
	return s.pricing.Save(ctx, rec.ID, rec.BasePrice(), withDefaultMarket(form))
}

func (s *Service) LoadCalculation(ctx context.Context, articleID, calcID string) (domain.PricingForm, error) {
	return s.pricing.Load(ctx, strings.TrimSpace(articleID), calcID)
}

func (s *Service) DeleteCalculation(ctx context.Context, articleID, calcID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pricing.Delete(ctx, strings.TrimSpace(articleID), calcID)
}

func (s *Service) SavedFilters(ctx context.Context) *domain.FilterSet {
	return s.view.Filters(ctx)
}

func (s *Service) SaveFilters(ctx context.Context, f *domain.FilterSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view.SaveFilters(ctx, f)
}

func (s *Service) ClearFilters(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view.ClearFilters(ctx)
}

func (s *Service) Favorites(ctx context.Context) []string {
	return s.view.Favorites(ctx)
}

func (s *Service) ToggleFavorite(ctx context.Context, articleID string) (domain.FavoriteToggle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	on, err := s.view.ToggleFavorite(ctx, articleID)
	if err != nil {
		return domain.FavoriteToggle{}, err
	}
	return domain.FavoriteToggle{ArticleID: strings.TrimSpace(articleID), Favorite: on}, nil
}

func (s *Service) Recent(ctx context.Context) []string {
	return s.view.Recent(ctx)
}

func (s *Service) TouchRecent(ctx context.Context, articleID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view.TouchRecent(ctx, articleID)
}

// ArticleSheet renders the shareable workbook for one article.
func (s *Service) ArticleSheet(ctx context.Context, articleID string, includeSupplier bool) ([]byte, error) {
	rec, err := s.registry.Get(ctx, articleID)
	if err != nil {
		return nil, err
	}
	return s.renderer.Article(report.ArticleSheet{
		Record:          rec,
		Sales:           s.ledger.Sales(ctx, rec.ID),
		Calculations:    s.pricing.List(ctx, rec.ID),
		IncludeSupplier: includeSupplier,
	})
}

func (s *Service) StatisticsSheet(ctx context.Context) ([]byte, error) {
	return s.renderer.Statistics(s.Statistics(ctx))
}

// IsNotFound reports whether err is any of the not-found sentinels.
func IsNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound) ||
		errors.Is(err, ledger.ErrSaleNotFound) ||
		errors.Is(err, pricing.ErrCalculationNotFound)
}

// IsInvalid reports whether err is a validation failure of user input.
func IsInvalid(err error) bool {
	return errors.Is(err, store.ErrInvalidInput) ||
		errors.Is(err, catalog.ErrNoValidRows) ||
		errors.Is(err, ledger.ErrInvalidSale) ||
		errors.Is(err, pricing.ErrUnknownMarket)
}

func withDefaultMarket(form domain.PricingForm) domain.PricingForm {
	if strings.TrimSpace(form.Market) == "" {
		form.Market = pricing.DefaultForm().Market
	}
	return form
}

func actorName(ctx context.Context) string {
	if actor, ok := ActorFromContext(ctx); ok {
		return actor.Username
	}
	return ""
}
