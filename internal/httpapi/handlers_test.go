package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"articleregistry/backend/internal/domain"
	"articleregistry/backend/internal/report"
	"articleregistry/backend/internal/service"
	"articleregistry/backend/internal/store/memory"
)

const sampleCSV = "Article Code,Color Code,Treatment Name,Article Name,Season,Section,Supplier,Base Price EUR\n" +
	"A100,C1,Raw,Denim,SS24,Men,Textilia,10\n" +
	"A100,C2,Raw,Denim,SS24,Women,Textilia,12\n" +
	"B200,C1,Washed,\"Twill, heavy\",FW24,Men,Acme,8\n"

type downPinger struct{}

func (downPinger) Ping(context.Context) error { return errors.New("connection refused") }

// newTestAPI builds a full API with an in-memory store, real AuthManager and
// real Service so handler tests exercise the complete request path.
func newTestAPI(t *testing.T) *API {
	t.Helper()
	return newTestAPIWith(t, service.Options{}, Options{AllowedOrigin: "*"})
}

func newTestAPIWith(t *testing.T, svcOpts service.Options, opts Options) *API {
	t.Helper()
	svc := service.New(memory.New(), svcOpts)
	return New(svc, newTestAuth(t), opts)
}

func loginAsAgent(t *testing.T, api *API) string {
	t.Helper()

	body, _ := json.Marshal(domain.LoginRequest{Username: "agent", Password: "field-pass"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()

	api.Handler().ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("agent login failed, status %d", res.Code)
	}

	var payload domain.LoginResponse
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		t.Fatalf("decode login response failed: %v", err)
	}
	if strings.TrimSpace(payload.AccessToken) == "" {
		t.Fatalf("expected access token in login response")
	}
	return payload.AccessToken
}

func do(t *testing.T, api *API, token, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encode body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res := httptest.NewRecorder()
	api.Handler().ServeHTTP(res, req)
	return res
}

func decode[T any](t *testing.T, res *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		t.Fatalf("decode body: %v (status %d)", err, res.Code)
	}
	return out
}

func importSample(t *testing.T, api *API, token string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/articles/import?mode=replace&format=csv", strings.NewReader(sampleCSV))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "text/csv")
	res := httptest.NewRecorder()
	api.Handler().ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("import failed: %d %s", res.Code, res.Body.String())
	}
}

type listBody struct {
	Items []domain.Record `json:"items"`
	Count int             `json:"count"`
}

func findByColor(t *testing.T, items []domain.Record, code, color string) domain.Record {
	t.Helper()
	for _, item := range items {
		if item.ArticleCode == code && item.ColorCode == color {
			return item
		}
	}
	t.Fatalf("article %s/%s not found", code, color)
	return domain.Record{}
}

func TestHandleHealth(t *testing.T) {
	api := newTestAPI(t)

	res := do(t, api, "", http.MethodGet, "/healthz", nil)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	body := decode[map[string]any](t, res)
	if body["ok"] != true {
		t.Fatalf("expected ok:true, got %v", body["ok"])
	}
}

func TestHandleHealthReportsUnreachableStore(t *testing.T) {
	api := newTestAPIWith(t, service.Options{Pinger: downPinger{}}, Options{})

	res := do(t, api, "", http.MethodGet, "/healthz", nil)
	if res.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", res.Code)
	}
	body := decode[map[string]any](t, res)
	if body["ok"] != false {
		t.Fatalf("expected ok:false, got %v", body["ok"])
	}
}

func TestHandleLogin(t *testing.T) {
	api := newTestAPI(t)

	if token := loginAsAgent(t, api); token == "" {
		t.Fatalf("expected token")
	}

	res := do(t, api, "", http.MethodPost, "/api/v1/auth/login", domain.LoginRequest{Username: "agent", Password: "wrong-pass"})
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d (body: %s)", res.Code, res.Body.String())
	}

	res = do(t, api, "", http.MethodGet, "/api/v1/auth/login", nil)
	if res.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", res.Code)
	}
}

func TestArticlesRequireAuth(t *testing.T) {
	api := newTestAPI(t)

	res := do(t, api, "", http.MethodGet, "/api/v1/articles", nil)
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
	res = do(t, api, "not-a-token", http.MethodGet, "/api/v1/articles", nil)
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for garbage token, got %d", res.Code)
	}
}

func TestImportAndListArticles(t *testing.T) {
	api := newTestAPI(t)
	token := loginAsAgent(t, api)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/articles/import?mode=replace", strings.NewReader(sampleCSV))
	req.Header.Set("Authorization", "Bearer "+token)
	res := httptest.NewRecorder()
	api.Handler().ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("import failed: %d %s", res.Code, res.Body.String())
	}
	result := decode[domain.ImportResult](t, res)
	if result.Imported != 3 || result.Total != 3 || result.Mode != domain.ImportReplace {
		t.Fatalf("unexpected import result %+v", result)
	}

	list := decode[listBody](t, do(t, api, token, http.MethodGet, "/api/v1/articles", nil))
	if list.Count != 3 || len(list.Items) != 3 {
		t.Fatalf("expected 3 articles, got %d", list.Count)
	}
	twill := findByColor(t, list.Items, "B200", "C1")
	if twill.ArticleName != "Twill, heavy" {
		t.Fatalf("quoted field not kept, got %q", twill.ArticleName)
	}

	list = decode[listBody](t, do(t, api, token, http.MethodGet, "/api/v1/articles?season=SS24&sort=price", nil))
	if list.Count != 2 || list.Items[0].BasePriceEUR != "10" || list.Items[1].BasePriceEUR != "12" {
		t.Fatalf("unexpected filtered list %+v", list.Items)
	}

	list = decode[listBody](t, do(t, api, token, http.MethodGet, "/api/v1/articles?q=twill", nil))
	if list.Count != 1 || list.Items[0].ArticleCode != "B200" {
		t.Fatalf("unexpected search result %+v", list.Items)
	}

	list = decode[listBody](t, do(t, api, token, http.MethodGet, "/api/v1/articles?minPrice=9&maxPrice=11", nil))
	if list.Count != 1 || list.Items[0].ColorCode != "C1" || list.Items[0].ArticleCode != "A100" {
		t.Fatalf("unexpected price range result %+v", list.Items)
	}
}

func TestListArticlesGrouped(t *testing.T) {
	api := newTestAPI(t)
	token := loginAsAgent(t, api)
	importSample(t, api, token)

	res := do(t, api, token, http.MethodGet, "/api/v1/articles?grouped=true&expand=Denim_A100&expand=Denim_A100", nil)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	body := decode[struct {
		Items []groupView `json:"items"`
		Count int         `json:"count"`
	}](t, res)
	if body.Count != 2 {
		t.Fatalf("expected 2 groups, got %d", body.Count)
	}
	denim := body.Items[0]
	if denim.Key != "Denim_A100" || denim.VariantCount != 2 || !denim.Expanded {
		t.Fatalf("unexpected first group %+v", denim)
	}
	if body.Items[1].Expanded {
		t.Fatalf("expected second group collapsed")
	}
}

func TestListArticlesRejectsBadQuery(t *testing.T) {
	api := newTestAPI(t)
	token := loginAsAgent(t, api)

	for _, path := range []string{
		"/api/v1/articles?view=everything",
		"/api/v1/articles?sort=color",
		"/api/v1/articles?minPrice=cheap",
		"/api/v1/articles?soldOnly=maybe",
	} {
		if res := do(t, api, token, http.MethodGet, path, nil); res.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", path, res.Code)
		}
	}
}

func TestImportErrors(t *testing.T) {
	api := newTestAPIWith(t, service.Options{}, Options{MaxImportBytes: 64})
	token := loginAsAgent(t, api)

	cases := []struct {
		name string
		path string
		body string
		want int
	}{
		{name: "bad mode", path: "/api/v1/articles/import?mode=merge", body: sampleCSV[:40], want: http.StatusBadRequest},
		{name: "bad format", path: "/api/v1/articles/import?format=pdf", body: "x", want: http.StatusBadRequest},
		{name: "no valid rows", path: "/api/v1/articles/import", body: "Article Name\nDenim\n", want: http.StatusUnprocessableEntity},
		{name: "too large", path: "/api/v1/articles/import", body: sampleCSV, want: http.StatusRequestEntityTooLarge},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, tc.path, strings.NewReader(tc.body))
		req.Header.Set("Authorization", "Bearer "+token)
		res := httptest.NewRecorder()
		api.Handler().ServeHTTP(res, req)
		if res.Code != tc.want {
			t.Fatalf("%s: expected %d, got %d (%s)", tc.name, tc.want, res.Code, res.Body.String())
		}
	}
}

func TestArticleCRUD(t *testing.T) {
	api := newTestAPI(t)
	token := loginAsAgent(t, api)

	res := do(t, api, token, http.MethodPost, "/api/v1/articles", map[string]string{"articleName": "Nameless"})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without articleCode, got %d", res.Code)
	}

	res = do(t, api, token, http.MethodPost, "/api/v1/articles", map[string]string{
		"articleCode": "Z9",
		"articleName": "Poplin",
		"finish":      "peached",
	})
	if res.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", res.Code, res.Body.String())
	}
	created := decode[domain.Record](t, res)
	if created.ID == "" || created.Extra["finish"] != "peached" {
		t.Fatalf("unexpected created record %+v", created)
	}

	path := "/api/v1/articles/" + created.ID
	res = do(t, api, token, http.MethodPut, path, map[string]string{"articleCode": "Z9", "articleName": "Poplin stretch"})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200 on update, got %d", res.Code)
	}
	updated := decode[domain.Record](t, res)
	if updated.ID != created.ID || updated.ArticleName != "Poplin stretch" {
		t.Fatalf("unexpected updated record %+v", updated)
	}

	if res := do(t, api, token, http.MethodDelete, path, nil); res.Code != http.StatusOK {
		t.Fatalf("expected 200 on delete, got %d", res.Code)
	}
	if res := do(t, api, token, http.MethodGet, path, nil); res.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", res.Code)
	}

	importSample(t, api, token)
	res = do(t, api, token, http.MethodDelete, "/api/v1/articles", nil)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200 on delete all, got %d", res.Code)
	}
	if body := decode[map[string]float64](t, res); body["deleted"] != 3 {
		t.Fatalf("expected 3 deleted, got %v", body["deleted"])
	}
}

func TestSalesFlow(t *testing.T) {
	api := newTestAPI(t)
	token := loginAsAgent(t, api)
	importSample(t, api, token)

	list := decode[listBody](t, do(t, api, token, http.MethodGet, "/api/v1/articles", nil))
	article := findByColor(t, list.Items, "A100", "C1")
	salesPath := "/api/v1/articles/" + article.ID + "/sales"

	res := do(t, api, token, http.MethodPost, salesPath, domain.SaleInput{Customer: "Rossi", Color: "C1", Quantity: "4", Price: "11.5"})
	if res.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", res.Code, res.Body.String())
	}
	sale := decode[domain.Sale](t, res)
	if sale.ArticleCode != "A100" || sale.Currency != domain.CurrencyEUR || sale.Unit != domain.UnitMeter {
		t.Fatalf("unexpected sale %+v", sale)
	}

	res = do(t, api, token, http.MethodPost, salesPath, domain.SaleInput{Color: "C1", Quantity: "4", Price: "11.5"})
	if res.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for missing customer, got %d", res.Code)
	}
	res = do(t, api, token, http.MethodPost, "/api/v1/articles/missing/sales", domain.SaleInput{Customer: "Rossi", Color: "C1", Quantity: "1", Price: "1"})
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown article, got %d", res.Code)
	}

	soldOnly := decode[listBody](t, do(t, api, token, http.MethodGet, "/api/v1/articles?soldOnly=true", nil))
	if soldOnly.Count != 1 || soldOnly.Items[0].ID != article.ID {
		t.Fatalf("expected only the sold article, got %+v", soldOnly.Items)
	}

	res = do(t, api, token, http.MethodPut, "/api/v1/sales/"+sale.ID, domain.SaleInput{Customer: "Rossi", Color: "C1", Quantity: "6", Price: "11.5", Currency: domain.CurrencyUSD})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200 on sale update, got %d (%s)", res.Code, res.Body.String())
	}

	summary := decode[domain.ArticleSales](t, do(t, api, token, http.MethodGet, salesPath, nil))
	if len(summary.Sales) != 1 || summary.TotalQuantity != 6 {
		t.Fatalf("unexpected sales summary %+v", summary)
	}

	stats := decode[domain.SalesStatistics](t, do(t, api, token, http.MethodGet, "/api/v1/sales/statistics", nil))
	if stats.TotalOrders != 1 || stats.Revenue[domain.CurrencyUSD] != 69 || stats.Revenue[domain.CurrencyEUR] != 0 {
		t.Fatalf("unexpected statistics %+v", stats)
	}

	res = do(t, api, token, http.MethodGet, "/api/v1/sales/statistics/sheet", nil)
	if res.Code != http.StatusOK || res.Header().Get("Content-Type") != report.ContentType {
		t.Fatalf("unexpected statistics sheet response %d %q", res.Code, res.Header().Get("Content-Type"))
	}

	if res := do(t, api, token, http.MethodDelete, "/api/v1/sales/"+sale.ID, nil); res.Code != http.StatusOK {
		t.Fatalf("expected 200 on sale delete, got %d", res.Code)
	}
	if res := do(t, api, token, http.MethodDelete, "/api/v1/sales/"+sale.ID, nil); res.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", res.Code)
	}
}

func TestPricingFlow(t *testing.T) {
	api := newTestAPI(t)
	token := loginAsAgent(t, api)
	importSample(t, api, token)

	markets := decode[struct {
		Markets     []map[string]any   `json:"markets"`
		DefaultForm domain.PricingForm `json:"defaultForm"`
	}](t, do(t, api, token, http.MethodGet, "/api/v1/markets", nil))
	if len(markets.Markets) != 5 || markets.DefaultForm.Market != "italy" {
		t.Fatalf("unexpected markets payload %+v", markets)
	}
	form := markets.DefaultForm

	base := 10.0
	quote := decode[domain.PricingQuote](t, do(t, api, token, http.MethodPost, "/api/v1/pricing/quote", domain.QuoteRequest{BasePrice: &base, Form: form}))
	if math.Abs(quote.FinalPrice-11.34) > 1e-9 || quote.Currency != "EUR" || quote.Unit != "mt" {
		t.Fatalf("unexpected quote %+v", quote)
	}

	res := do(t, api, token, http.MethodPost, "/api/v1/pricing/quote", domain.QuoteRequest{Form: form})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without article or base price, got %d", res.Code)
	}

	res = do(t, api, token, http.MethodPost, "/api/v1/pricing/select-market", domain.SelectMarketRequest{Form: form, Market: "usa"})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200 on select market, got %d", res.Code)
	}
	usa := decode[domain.PricingForm](t, res)
	if usa.Market != "usa" || usa.Commission != "10" || usa.EuropeMargin != form.EuropeMargin {
		t.Fatalf("unexpected usa form %+v", usa)
	}
	res = do(t, api, token, http.MethodPost, "/api/v1/pricing/select-market", domain.SelectMarketRequest{Form: form, Market: "mars"})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown market, got %d", res.Code)
	}

	list := decode[listBody](t, do(t, api, token, http.MethodGet, "/api/v1/articles", nil))
	article := findByColor(t, list.Items, "A100", "C2")
	pricingPath := "/api/v1/articles/" + article.ID + "/pricing"

	res = do(t, api, token, http.MethodPost, pricingPath, form)
	if res.Code != http.StatusCreated {
		t.Fatalf("expected 201 on save calculation, got %d (%s)", res.Code, res.Body.String())
	}
	calc := decode[domain.PricingCalculation](t, res)
	if calc.BasePrice != 12 || calc.ArticleID != article.ID {
		t.Fatalf("unexpected calculation %+v", calc)
	}

	history := decode[struct {
		Items []domain.PricingCalculation `json:"items"`
		Count int                         `json:"count"`
	}](t, do(t, api, token, http.MethodGet, pricingPath, nil))
	if history.Count != 1 || history.Items[0].ID != calc.ID {
		t.Fatalf("unexpected history %+v", history)
	}

	restored := decode[domain.PricingForm](t, do(t, api, token, http.MethodGet, pricingPath+"/"+calc.ID, nil))
	if restored.Market != "italy" || restored.Commission != "5" {
		t.Fatalf("unexpected restored form %+v", restored)
	}

	if res := do(t, api, token, http.MethodDelete, pricingPath+"/"+calc.ID, nil); res.Code != http.StatusOK {
		t.Fatalf("expected 200 on calculation delete, got %d", res.Code)
	}
	if res := do(t, api, token, http.MethodGet, pricingPath+"/"+calc.ID, nil); res.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after calculation delete, got %d", res.Code)
	}
}

func TestViewStateEndpoints(t *testing.T) {
	api := newTestAPI(t)
	token := loginAsAgent(t, api)
	importSample(t, api, token)

	list := decode[listBody](t, do(t, api, token, http.MethodGet, "/api/v1/articles", nil))
	twill := findByColor(t, list.Items, "B200", "C1")

	toggle := decode[domain.FavoriteToggle](t, do(t, api, token, http.MethodPost, "/api/v1/favorites/"+twill.ID, nil))
	if !toggle.Favorite || toggle.ArticleID != twill.ID {
		t.Fatalf("unexpected toggle %+v", toggle)
	}
	favorites := decode[map[string][]string](t, do(t, api, token, http.MethodGet, "/api/v1/favorites", nil))
	if len(favorites["items"]) != 1 || favorites["items"][0] != twill.ID {
		t.Fatalf("unexpected favorites %+v", favorites)
	}
	view := decode[listBody](t, do(t, api, token, http.MethodGet, "/api/v1/articles?view=favorites", nil))
	if view.Count != 1 || view.Items[0].ID != twill.ID {
		t.Fatalf("unexpected favorites view %+v", view.Items)
	}

	if res := do(t, api, token, http.MethodPost, "/api/v1/recent/"+twill.ID, nil); res.Code != http.StatusOK {
		t.Fatalf("expected 200 on recent touch, got %d", res.Code)
	}
	recent := decode[map[string][]string](t, do(t, api, token, http.MethodGet, "/api/v1/recent", nil))
	if len(recent["items"]) != 1 || recent["items"][0] != twill.ID {
		t.Fatalf("unexpected recent %+v", recent)
	}

	empty := decode[domain.FilterSet](t, do(t, api, token, http.MethodGet, "/api/v1/filters", nil))
	if !empty.IsEmpty() {
		t.Fatalf("expected no saved filters, got %+v", empty)
	}
	if res := do(t, api, token, http.MethodPut, "/api/v1/filters", domain.FilterSet{Sections: []string{"Women"}}); res.Code != http.StatusOK {
		t.Fatalf("expected 200 on save filters, got %d", res.Code)
	}
	saved := decode[listBody](t, do(t, api, token, http.MethodGet, "/api/v1/articles?view=savedSearches", nil))
	if saved.Count != 1 || saved.Items[0].ColorCode != "C2" {
		t.Fatalf("unexpected saved search view %+v", saved.Items)
	}
	if res := do(t, api, token, http.MethodDelete, "/api/v1/filters", nil); res.Code != http.StatusOK {
		t.Fatalf("expected 200 on clear filters, got %d", res.Code)
	}
	cleared := decode[domain.FilterSet](t, do(t, api, token, http.MethodGet, "/api/v1/filters", nil))
	if !cleared.IsEmpty() {
		t.Fatalf("expected cleared filters, got %+v", cleared)
	}
}

func TestArticleSheetDownload(t *testing.T) {
	api := newTestAPI(t)
	token := loginAsAgent(t, api)
	importSample(t, api, token)

	list := decode[listBody](t, do(t, api, token, http.MethodGet, "/api/v1/articles", nil))
	article := findByColor(t, list.Items, "A100", "C1")

	res := do(t, api, token, http.MethodGet, "/api/v1/articles/"+article.ID+"/sheet?supplier=false", nil)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", res.Code, res.Body.String())
	}
	if got := res.Header().Get("Content-Type"); got != report.ContentType {
		t.Fatalf("unexpected content type %q", got)
	}
	if got := res.Header().Get("Content-Disposition"); !strings.Contains(got, "-client.xlsx") {
		t.Fatalf("unexpected disposition %q", got)
	}
	if res.Body.Len() == 0 {
		t.Fatalf("expected workbook bytes")
	}

	if res := do(t, api, token, http.MethodGet, "/api/v1/articles/"+article.ID+"/sheet?supplier=perhaps", nil); res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad supplier flag, got %d", res.Code)
	}
	if res := do(t, api, token, http.MethodGet, "/api/v1/articles/missing/sheet", nil); res.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown article, got %d", res.Code)
	}
}

func TestUnknownRoutes(t *testing.T) {
	api := newTestAPI(t)
	token := loginAsAgent(t, api)

	for _, path := range []string{"/api/v1/articles/x/colors", "/api/v1/sales/", "/api/v1/sales/a/b"} {
		if res := do(t, api, token, http.MethodGet, path, nil); res.Code != http.StatusNotFound {
			t.Fatalf("%s: expected 404, got %d", path, res.Code)
		}
	}
	if res := do(t, api, token, http.MethodPatch, "/api/v1/articles", nil); res.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", res.Code)
	}
}

func TestPathSegmentsUnescapesIDs(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/articles/A%2F100-C1/sales", nil)
	parts, err := pathSegments(req, "/api/v1/articles/")
	if err != nil {
		t.Fatalf("path segments: %v", err)
	}
	if len(parts) != 2 || parts[0] != "A/100-C1" || parts[1] != "sales" {
		t.Fatalf("unexpected segments %q", parts)
	}
}

func TestTokenExpiryIsEnforcedOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	expired, err := api.auth.sign("agent", time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if res := do(t, api, expired, http.MethodGet, "/api/v1/markets", nil); res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for expired token, got %d", res.Code)
	}
}
