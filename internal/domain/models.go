package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// Record field keys. The order is the canonical column order used when a
// record is written back out (exports, sheets).
const (
	FieldArticleCode   = "articleCode"
	FieldColorCode     = "colorCode"
	FieldTreatmentName = "treatmentName"
	FieldArticleName   = "articleName"
	FieldColorName     = "colorName"
	FieldSupplier      = "supplier"
	FieldSupplierCode  = "supplierCode"
	FieldSection       = "section"
	FieldSeason        = "season"
	FieldSuppArtCode   = "suppArtCode"
	FieldComposition   = "composition"
	FieldWeave         = "weave"
	FieldStretch       = "stretch"
	FieldConstruction  = "construction"
	FieldWeightGSM     = "weightGSM"
	FieldWidthCM       = "widthCM"
	FieldDyeType       = "dyeType"
	FieldCareLabel     = "careLabel"
	FieldBarcodeQR     = "barcodeQR"
	FieldBasePriceEUR  = "basePriceEUR"
)

var RecordFields = []string{
	FieldArticleCode, FieldColorCode, FieldTreatmentName, FieldArticleName, FieldColorName,
	FieldSupplier, FieldSupplierCode, FieldSection, FieldSeason, FieldSuppArtCode,
	FieldComposition, FieldWeave, FieldStretch, FieldConstruction, FieldWeightGSM,
	FieldWidthCM, FieldDyeType, FieldCareLabel, FieldBarcodeQR, FieldBasePriceEUR,
}

// SupplierFields are withheld from documents rendered without supplier info.
var SupplierFields = []string{FieldSupplier, FieldSupplierCode, FieldSuppArtCode}

// Record is one imported article variant. Columns that are not part of the
// fixed field set are kept in Extra and serialised as top-level keys.
type Record struct {
	ID            string            `json:"id"`
	ArticleCode   string            `json:"articleCode"`
	ColorCode     string            `json:"colorCode"`
	TreatmentName string            `json:"treatmentName"`
	ArticleName   string            `json:"articleName"`
	ColorName     string            `json:"colorName"`
	Supplier      string            `json:"supplier"`
	SupplierCode  string            `json:"supplierCode"`
	Section       string            `json:"section"`
	Season        string            `json:"season"`
	SuppArtCode   string            `json:"suppArtCode"`
	Composition   string            `json:"composition"`
	Weave         string            `json:"weave"`
	Stretch       string            `json:"stretch"`
	Construction  string            `json:"construction"`
	WeightGSM     string            `json:"weightGSM"`
	WidthCM       string            `json:"widthCM"`
	DyeType       string            `json:"dyeType"`
	CareLabel     string            `json:"careLabel"`
	BarcodeQR     string            `json:"barcodeQR"`
	BasePriceEUR  string            `json:"basePriceEUR"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
	Extra         map[string]string `json:"-"`
}

func (r *Record) fieldRef(key string) *string {
	switch key {
	case FieldArticleCode:
		return &r.ArticleCode
	case FieldColorCode:
		return &r.ColorCode
	case FieldTreatmentName:
		return &r.TreatmentName
	case FieldArticleName:
		return &r.ArticleName
	case FieldColorName:
		return &r.ColorName
	case FieldSupplier:
		return &r.Supplier
	case FieldSupplierCode:
		return &r.SupplierCode
	case FieldSection:
		return &r.Section
	case FieldSeason:
		return &r.Season
	case FieldSuppArtCode:
		return &r.SuppArtCode
	case FieldComposition:
		return &r.Composition
	case FieldWeave:
		return &r.Weave
	case FieldStretch:
		return &r.Stretch
	case FieldConstruction:
		return &r.Construction
	case FieldWeightGSM:
		return &r.WeightGSM
	case FieldWidthCM:
		return &r.WidthCM
	case FieldDyeType:
		return &r.DyeType
	case FieldCareLabel:
		return &r.CareLabel
	case FieldBarcodeQR:
		return &r.BarcodeQR
	case FieldBasePriceEUR:
		return &r.BasePriceEUR
	}
	return nil
}

// Field returns the value stored under key, looking at extras for keys outside
// the fixed field set. Missing keys read as "".
func (r Record) Field(key string) string {
	if ref := r.fieldRef(key); ref != nil {
		return *ref
	}
	return r.Extra[key]
}

func (r *Record) SetField(key, value string) {
	if key == "" || key == "id" {
		return
	}
	if ref := r.fieldRef(key); ref != nil {
		*ref = value
		return
	}
	if r.Extra == nil {
		r.Extra = make(map[string]string)
	}
	r.Extra[key] = value
}

// RecordFromFields builds a record from a parsed row. Values are trimmed.
func RecordFromFields(fields map[string]string) Record {
	var rec Record
	for key, value := range fields {
		rec.SetField(key, strings.TrimSpace(value))
	}
	return rec
}

// BasePrice is the parsed basePriceEUR, 0 when it does not parse.
func (r Record) BasePrice() float64 {
	return ParseAmount(r.BasePriceEUR)
}

type recordJSON Record

func (r Record) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(recordJSON(r))
	if err != nil {
		return nil, err
	}
	if len(r.Extra) == 0 {
		return base, nil
	}

	merged := make(map[string]json.RawMessage, len(r.Extra)+len(RecordFields)+3)
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for key, value := range r.Extra {
		if _, taken := merged[key]; taken {
			continue
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		merged[key] = encoded
	}
	return json.Marshal(merged)
}

func (r *Record) UnmarshalJSON(data []byte) error {
	var base recordJSON
	if err := json.Unmarshal(data, &base); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*r = Record(base)
	r.Extra = nil
	for key, value := range raw {
		if key == "id" || key == "createdAt" || key == "updatedAt" || r.fieldRef(key) != nil {
			continue
		}
		var text string
		if err := json.Unmarshal(value, &text); err != nil {
			// numbers and booleans from older exports are kept verbatim
			text = strings.TrimSpace(string(value))
			if text == "null" {
				continue
			}
		}
		if r.Extra == nil {
			r.Extra = make(map[string]string)
		}
		r.Extra[key] = text
	}
	return nil
}

type ImportMode string

const (
	ImportReplace ImportMode = "replace"
	ImportAppend  ImportMode = "append"
)

func ParseImportMode(raw string) (ImportMode, bool) {
	switch ImportMode(strings.ToLower(strings.TrimSpace(raw))) {
	case ImportReplace:
		return ImportReplace, true
	case ImportAppend, "":
		return ImportAppend, true
	}
	return "", false
}

type ImportResult struct {
	Imported int        `json:"imported"`
	Total    int        `json:"total"`
	Mode     ImportMode `json:"mode"`
}

type ArticleGroup struct {
	Key          string   `json:"key"`
	MainArticle  Record   `json:"mainArticle"`
	Variants     []Record `json:"variants"`
	VariantCount int      `json:"variantCount"`
}

type ViewMode string

const (
	ViewAll           ViewMode = "all"
	ViewFavorites     ViewMode = "favorites"
	ViewRecent        ViewMode = "recent"
	ViewSavedSearches ViewMode = "savedSearches"
)

type SortKey string

const (
	SortName      SortKey = "name"
	SortCode      SortKey = "code"
	SortPrice     SortKey = "price"
	SortDateAdded SortKey = "dateAdded"
)

// FilterSet narrows the article list. A nil or all-empty set means no filter.
type FilterSet struct {
	Seasons       []string `json:"seasons,omitempty"`
	Sections      []string `json:"sections,omitempty"`
	Suppliers     []string `json:"suppliers,omitempty"`
	MinPrice      *float64 `json:"minPrice,omitempty"`
	MaxPrice      *float64 `json:"maxPrice,omitempty"`
	SoldItemsOnly bool     `json:"soldItemsOnly,omitempty"`
}

func (f *FilterSet) IsEmpty() bool {
	if f == nil {
		return true
	}
	return len(f.Seasons) == 0 &&
		len(f.Sections) == 0 &&
		len(f.Suppliers) == 0 &&
		f.MinPrice == nil &&
		f.MaxPrice == nil &&
		!f.SoldItemsOnly
}

// ArticleQuery is the full input of the filter/search/sort pipeline.
// Favorites and Recent are supplied by the caller; Recent is ordered most
// recently viewed first.
type ArticleQuery struct {
	View      ViewMode   `json:"view"`
	Filters   *FilterSet `json:"filters,omitempty"`
	Search    string     `json:"search"`
	Sort      SortKey    `json:"sort"`
	Favorites []string   `json:"favorites,omitempty"`
	Recent    []string   `json:"recent,omitempty"`
}

type Currency string

const (
	CurrencyEUR Currency = "EUR"
	CurrencyUSD Currency = "USD"
)

type Unit string

const (
	UnitMeter Unit = "mt"
	UnitYard  Unit = "yrd"
)

type Sale struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	ArticleID   string    `json:"articleId"`
	ArticleCode string    `json:"articleCode"`
	Customer    string    `json:"customer"`
	Color       string    `json:"color"`
	Quantity    string    `json:"quantity"`
	Price       string    `json:"price"`
	Currency    Currency  `json:"currency"`
	Unit        Unit      `json:"unit"`
}

// SaleInput is the user-entered part of a sale.
type SaleInput struct {
	ArticleCode string   `json:"articleCode"`
	Customer    string   `json:"customer" validate:"required"`
	Color       string   `json:"color" validate:"required"`
	Quantity    string   `json:"quantity" validate:"required"`
	Price       string   `json:"price" validate:"required"`
	Currency    Currency `json:"currency" validate:"oneof=EUR USD"`
	Unit        Unit     `json:"unit" validate:"oneof=mt yrd"`
}

type ArticleVolume struct {
	ArticleID   string  `json:"articleId"`
	ArticleCode string  `json:"articleCode"`
	Quantity    float64 `json:"quantity"`
}

type SalesStatistics struct {
	TotalOrders   int                  `json:"totalOrders"`
	TotalQuantity float64              `json:"totalQuantity"`
	Revenue       map[Currency]float64 `json:"revenue"`
	TopArticles   []ArticleVolume      `json:"topArticles"`
	RecentSales   []Sale               `json:"recentSales"`
}

type MarketRegion string

const (
	RegionEurope MarketRegion = "europe"
	RegionUSA    MarketRegion = "usa"
	RegionOther  MarketRegion = "other"
)

type TransportType string

const (
	TransportTruck TransportType = "truck"
	TransportAir   TransportType = "air"
)

// PricingForm holds the live calculator inputs as entered. Numeric fields are
// free text and parse leniently.
type PricingForm struct {
	Market        string        `json:"market"`
	Commission    string        `json:"commission"`
	EuropeMargin  string        `json:"europeMargin"`
	USAMargin     string        `json:"usaMargin"`
	OtherMargin   string        `json:"otherMargin"`
	UseTransport  bool          `json:"useTransport"`
	TransportType TransportType `json:"transportType"`
	TruckCost     string        `json:"truckCost"`
	AirCost       string        `json:"airCost"`
	UseSampling   bool          `json:"useSampling"`
	SamplingRate  string        `json:"samplingRate"`
	FXRate        string        `json:"fxRate"`
}

type PricingCalculation struct {
	ID            string        `json:"id"`
	Timestamp     time.Time     `json:"timestamp"`
	ArticleID     string        `json:"articleId"`
	Market        string        `json:"market"`
	MarketLabel   string        `json:"marketLabel"`
	ProfitMargin  float64       `json:"profitMargin"`
	UseTransport  bool          `json:"useTransport"`
	TransportType TransportType `json:"transportType,omitempty"`
	TransportCost *float64      `json:"transportCost,omitempty"`
	UseSampling   bool          `json:"useSampling"`
	SamplingRate  *float64      `json:"samplingRate,omitempty"`
	FXRate        *float64      `json:"fxRate,omitempty"`
	FinalPrice    float64       `json:"finalPrice"`
	BasePrice     float64       `json:"basePrice"`
	Commission    float64       `json:"commission"`
}

type PricingQuote struct {
	ArticleID  string  `json:"articleId,omitempty"`
	BasePrice  float64 `json:"basePrice"`
	FinalPrice float64 `json:"finalPrice"`
	Currency   string  `json:"currency"`
	Unit       string  `json:"unit"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
}

// ArticleSales is an article's sales, newest first, with their summed quantity.
type ArticleSales struct {
	ArticleID     string  `json:"articleId"`
	Sales         []Sale  `json:"sales"`
	TotalQuantity float64 `json:"totalQuantity"`
}

// QuoteRequest prices either a stored article or a bare base price.
type QuoteRequest struct {
	ArticleID string      `json:"articleId"`
	BasePrice *float64    `json:"basePrice"`
	Form      PricingForm `json:"form"`
}

type SelectMarketRequest struct {
	Form   PricingForm `json:"form"`
	Market string      `json:"market"`
}

type FavoriteToggle struct {
	ArticleID string `json:"articleId"`
	Favorite  bool   `json:"favorite"`
}
