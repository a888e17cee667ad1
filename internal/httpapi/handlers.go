package httpapi

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"articleregistry/backend/internal/catalog"
	"articleregistry/backend/internal/domain"
	"articleregistry/backend/internal/report"
)

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

type groupView struct {
	domain.ArticleGroup
	Expanded bool `json:"expanded"`
}

func (a *API) handleArticles(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		query, err := parseArticleQuery(r.URL.Query())
		if err != nil {
			a.writeError(w, http.StatusBadRequest, err)
			return
		}

		if grouped, _ := strconv.ParseBool(r.URL.Query().Get("grouped")); grouped {
			expanded := catalog.Expanded{}
			for _, key := range multiValue(r.URL.Query(), "expand") {
				expanded[key] = struct{}{}
			}
			groups := a.service.ListArticleGroups(r.Context(), query)
			items := make([]groupView, 0, len(groups))
			for _, group := range groups {
				items = append(items, groupView{ArticleGroup: group, Expanded: expanded.IsExpanded(group.Key)})
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"items": items,
				"count": len(items),
			})
			return
		}

		items := a.service.ListArticles(r.Context(), query)
		writeJSON(w, http.StatusOK, map[string]any{
			"items": items,
			"count": len(items),
		})
	case http.MethodPost:
		var rec domain.Record
		if err := decodeJSON(r, &rec); err != nil {
			a.writeError(w, http.StatusBadRequest, err)
			return
		}
		created, err := a.service.CreateArticle(r.Context(), rec)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	case http.MethodDelete:
		removed, err := a.service.DeleteAllArticles(r.Context())
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"deleted": removed})
	default:
		a.writeMethodNotAllowed(w)
	}
}

func (a *API) handleArticleActions(w http.ResponseWriter, r *http.Request) {
	parts, err := pathSegments(r, "/api/v1/articles/")
	if err != nil || len(parts) == 0 || parts[0] == "" {
		a.writeError(w, http.StatusNotFound, errors.New("route not found"))
		return
	}

	if len(parts) == 1 && parts[0] == "import" {
		a.handleImport(w, r)
		return
	}

	articleID := parts[0]
	switch {
	case len(parts) == 1:
		a.handleArticle(w, r, articleID)
	case len(parts) == 2 && parts[1] == "sales":
		a.handleArticleSales(w, r, articleID)
	case len(parts) == 2 && parts[1] == "pricing":
		a.handlePricingHistory(w, r, articleID)
	case len(parts) == 3 && parts[1] == "pricing":
		a.handleCalculation(w, r, articleID, parts[2])
	case len(parts) == 2 && parts[1] == "sheet":
		a.handleArticleSheet(w, r, articleID)
	default:
		a.writeError(w, http.StatusNotFound, errors.New("route not found"))
	}
}

func (a *API) handleArticle(w http.ResponseWriter, r *http.Request, articleID string) {
	switch r.Method {
	case http.MethodGet:
		rec, err := a.service.GetArticle(r.Context(), articleID)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	case http.MethodPut:
		var rec domain.Record
		if err := decodeJSON(r, &rec); err != nil {
			a.writeError(w, http.StatusBadRequest, err)
			return
		}
		updated, err := a.service.UpdateArticle(r.Context(), articleID, rec)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	case http.MethodDelete:
		if err := a.service.DeleteArticle(r.Context(), articleID); err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"deleted": articleID})
	default:
		a.writeMethodNotAllowed(w)
	}
}

func (a *API) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		a.writeMethodNotAllowed(w)
		return
	}

	mode, ok := domain.ParseImportMode(r.URL.Query().Get("mode"))
	if !ok {
		a.writeError(w, http.StatusBadRequest, fmt.Errorf("unknown import mode %q", r.URL.Query().Get("mode")))
		return
	}

	format := strings.TrimSpace(r.URL.Query().Get("format"))
	if format == "" && strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "spreadsheetml") {
		format = "xlsx"
	}

	body := http.MaxBytesReader(w, r.Body, a.maxImportBytes)
	payload, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			a.writeError(w, http.StatusRequestEntityTooLarge, fmt.Errorf("upload exceeds %d bytes", tooLarge.Limit))
			return
		}
		a.writeError(w, http.StatusBadRequest, err)
		return
	}

	result, err := a.service.ImportArticles(r.Context(), bytes.NewReader(payload), format, mode)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) handleArticleSales(w http.ResponseWriter, r *http.Request, articleID string) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, a.service.ArticleSales(r.Context(), articleID))
	case http.MethodPost:
		var in domain.SaleInput
		if err := decodeJSON(r, &in); err != nil {
			a.writeError(w, http.StatusBadRequest, err)
			return
		}
		sale, err := a.service.RecordSale(r.Context(), articleID, in)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, sale)
	default:
		a.writeMethodNotAllowed(w)
	}
}

func (a *API) handleSaleActions(w http.ResponseWriter, r *http.Request) {
	parts, err := pathSegments(r, "/api/v1/sales/")
	if err != nil || len(parts) == 0 || parts[0] == "" {
		a.writeError(w, http.StatusNotFound, errors.New("route not found"))
		return
	}

	switch {
	case len(parts) == 1 && parts[0] == "statistics":
		if r.Method != http.MethodGet {
			a.writeMethodNotAllowed(w)
			return
		}
		writeJSON(w, http.StatusOK, a.service.Statistics(r.Context()))
	case len(parts) == 2 && parts[0] == "statistics" && parts[1] == "sheet":
		if r.Method != http.MethodGet {
			a.writeMethodNotAllowed(w)
			return
		}
		payload, err := a.service.StatisticsSheet(r.Context())
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeAttachment(w, report.ContentType, "sales-statistics.xlsx", payload)
	case len(parts) == 1:
		a.handleSale(w, r, parts[0])
	default:
		a.writeError(w, http.StatusNotFound, errors.New("route not found"))
	}
}

func (a *API) handleSale(w http.ResponseWriter, r *http.Request, saleID string) {
	switch r.Method {
	case http.MethodPut:
		var in domain.SaleInput
		if err := decodeJSON(r, &in); err != nil {
			a.writeError(w, http.StatusBadRequest, err)
			return
		}
		sale, err := a.service.UpdateSale(r.Context(), saleID, in)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sale)
	case http.MethodDelete:
		if err := a.service.DeleteSale(r.Context(), saleID); err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"deleted": saleID})
	default:
		a.writeMethodNotAllowed(w)
	}
}

func (a *API) handleMarkets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeMethodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"markets":     a.service.Markets(),
		"defaultForm": a.service.DefaultPricingForm(),
	})
}

func (a *API) handleQuote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		a.writeMethodNotAllowed(w)
		return
	}
	var req domain.QuoteRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	quote, err := a.service.Quote(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

func (a *API) handleSelectMarket(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		a.writeMethodNotAllowed(w)
		return
	}
	var req domain.SelectMarketRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	form, err := a.service.SelectMarket(req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, form)
}

func (a *API) handlePricingHistory(w http.ResponseWriter, r *http.Request, articleID string) {
	switch r.Method {
	case http.MethodGet:
		items := a.service.PricingHistory(r.Context(), articleID)
		writeJSON(w, http.StatusOK, map[string]any{
			"items": items,
			"count": len(items),
		})
	case http.MethodPost:
		var form domain.PricingForm
		if err := decodeJSON(r, &form); err != nil {
			a.writeError(w, http.StatusBadRequest, err)
			return
		}
		calc, err := a.service.SaveCalculation(r.Context(), articleID, form)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, calc)
	default:
		a.writeMethodNotAllowed(w)
	}
}

func (a *API) handleCalculation(w http.ResponseWriter, r *http.Request, articleID, calcID string) {
	switch r.Method {
	case http.MethodGet:
		form, err := a.service.LoadCalculation(r.Context(), articleID, calcID)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, form)
	case http.MethodDelete:
		if err := a.service.DeleteCalculation(r.Context(), articleID, calcID); err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"deleted": calcID})
	default:
		a.writeMethodNotAllowed(w)
	}
}

func (a *API) handleArticleSheet(w http.ResponseWriter, r *http.Request, articleID string) {
	if r.Method != http.MethodGet {
		a.writeMethodNotAllowed(w)
		return
	}

	includeSupplier := true
	if raw := strings.TrimSpace(r.URL.Query().Get("supplier")); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			a.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid supplier flag %q", raw))
			return
		}
		includeSupplier = parsed
	}

	payload, err := a.service.ArticleSheet(r.Context(), articleID, includeSupplier)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeAttachment(w, report.ContentType, sheetFilename(articleID, includeSupplier), payload)
}

func (a *API) handleFilters(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		filters := a.service.SavedFilters(r.Context())
		if filters == nil {
			filters = &domain.FilterSet{}
		}
		writeJSON(w, http.StatusOK, filters)
	case http.MethodPut:
		var filters domain.FilterSet
		if err := decodeJSON(r, &filters); err != nil {
			a.writeError(w, http.StatusBadRequest, err)
			return
		}
		if err := a.service.SaveFilters(r.Context(), &filters); err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, filters)
	case http.MethodDelete:
		if err := a.service.ClearFilters(r.Context()); err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, domain.FilterSet{})
	default:
		a.writeMethodNotAllowed(w)
	}
}

func (a *API) handleFavorites(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeMethodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": nonNil(a.service.Favorites(r.Context()))})
}

func (a *API) handleFavoriteToggle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		a.writeMethodNotAllowed(w)
		return
	}
	parts, err := pathSegments(r, "/api/v1/favorites/")
	if err != nil || len(parts) != 1 || parts[0] == "" {
		a.writeError(w, http.StatusNotFound, errors.New("route not found"))
		return
	}
	toggle, err := a.service.ToggleFavorite(r.Context(), parts[0])
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toggle)
}

func (a *API) handleRecent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeMethodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": nonNil(a.service.Recent(r.Context()))})
}

func (a *API) handleRecentTouch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		a.writeMethodNotAllowed(w)
		return
	}
	parts, err := pathSegments(r, "/api/v1/recent/")
	if err != nil || len(parts) != 1 || parts[0] == "" {
		a.writeError(w, http.StatusNotFound, errors.New("route not found"))
		return
	}
	recent, err := a.service.TouchRecent(r.Context(), parts[0])
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": nonNil(recent)})
}

func parseArticleQuery(values url.Values) (domain.ArticleQuery, error) {
	query := domain.ArticleQuery{
		View:   domain.ViewMode(strings.TrimSpace(values.Get("view"))),
		Search: values.Get("q"),
		Sort:   domain.SortKey(strings.TrimSpace(values.Get("sort"))),
	}

	switch query.View {
	case "", domain.ViewAll, domain.ViewFavorites, domain.ViewRecent, domain.ViewSavedSearches:
	default:
		return domain.ArticleQuery{}, fmt.Errorf("unknown view %q", query.View)
	}
	switch query.Sort {
	case "", domain.SortName, domain.SortCode, domain.SortPrice, domain.SortDateAdded:
	default:
		return domain.ArticleQuery{}, fmt.Errorf("unknown sort %q", query.Sort)
	}

	filters := &domain.FilterSet{
		Seasons:   multiValue(values, "season"),
		Sections:  multiValue(values, "section"),
		Suppliers: multiValue(values, "supplier"),
	}
	var err error
	if filters.MinPrice, err = parsePrice(values, "minPrice"); err != nil {
		return domain.ArticleQuery{}, err
	}
	if filters.MaxPrice, err = parsePrice(values, "maxPrice"); err != nil {
		return domain.ArticleQuery{}, err
	}
	if raw := strings.TrimSpace(values.Get("soldOnly")); raw != "" {
		if filters.SoldItemsOnly, err = strconv.ParseBool(raw); err != nil {
			return domain.ArticleQuery{}, fmt.Errorf("invalid soldOnly flag %q", raw)
		}
	}
	if !filters.IsEmpty() {
		query.Filters = filters
	}
	return query, nil
}

func parsePrice(values url.Values, key string) (*float64, error) {
	raw := strings.TrimSpace(values.Get(key))
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q", key, raw)
	}
	return &value, nil
}

func multiValue(values url.Values, key string) []string {
	var out []string
	for _, raw := range values[key] {
		if value := strings.TrimSpace(raw); value != "" {
			out = append(out, value)
		}
	}
	return out
}

func sheetFilename(articleID string, includeSupplier bool) string {
	name := strings.Trim(unsafeFilenameChars.ReplaceAllString(articleID, "_"), "_")
	if name == "" {
		name = "article"
	}
	if !includeSupplier {
		name += "-client"
	}
	return name + ".xlsx"
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
