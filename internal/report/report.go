package report

import (
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"

	"articleregistry/backend/internal/domain"
)

const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	sheetArticle    = "Article"
	sheetSales      = "Sales"
	sheetPricing    = "Pricing"
	sheetStatistics = "Statistics"
	sheetTop        = "Top Articles"
	sheetRecent     = "Recent Sales"
)

var labels = map[string]string{
	domain.FieldArticleCode:   "Article Code",
	domain.FieldColorCode:     "Color Code",
	domain.FieldTreatmentName: "Treatment",
	domain.FieldArticleName:   "Article Name",
	domain.FieldColorName:     "Color Name",
	domain.FieldSupplier:      "Supplier",
	domain.FieldSupplierCode:  "Supplier Code",
	domain.FieldSection:       "Section",
	domain.FieldSeason:        "Season",
	domain.FieldSuppArtCode:   "Supplier Article Code",
	domain.FieldComposition:   "Composition",
	domain.FieldWeave:         "Weave",
	domain.FieldStretch:       "Stretch",
	domain.FieldConstruction:  "Construction",
	domain.FieldWeightGSM:     "Weight (GSM)",
	domain.FieldWidthCM:       "Width (cm)",
	domain.FieldDyeType:       "Dye Type",
	domain.FieldCareLabel:     "Care Label",
	domain.FieldBarcodeQR:     "Barcode / QR",
	domain.FieldBasePriceEUR:  "Base Price (EUR)",
}

// ArticleSheet is everything the agent shares about one article.
type ArticleSheet struct {
	Record          domain.Record
	Sales           []domain.Sale
	Calculations    []domain.PricingCalculation
	IncludeSupplier bool
}

// Renderer turns catalog data into XLSX workbooks.
type Renderer struct{}

func NewRenderer() *Renderer {
	return &Renderer{}
}

// Article renders the record fields, its sales and its pricing history.
// Supplier fields are left out unless IncludeSupplier is set.
func (r *Renderer) Article(sheet ArticleSheet) ([]byte, error) {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	if err := f.SetSheetName("Sheet1", sheetArticle); err != nil {
		return nil, err
	}

	withheld := map[string]bool{}
	if !sheet.IncludeSupplier {
		for _, key := range domain.SupplierFields {
			withheld[key] = true
		}
	}

	rows := [][]any{{"Field", "Value"}}
	for _, key := range domain.RecordFields {
		if withheld[key] {
			continue
		}
		rows = append(rows, []any{labels[key], sheet.Record.Field(key)})
	}
	extras := make([]string, 0, len(sheet.Record.Extra))
	for key := range sheet.Record.Extra {
		extras = append(extras, key)
	}
	sort.Strings(extras)
	for _, key := range extras {
		rows = append(rows, []any{key, sheet.Record.Extra[key]})
	}
	if err := writeRows(f, sheetArticle, rows); err != nil {
		return nil, err
	}

	salesRows := [][]any{{"Date", "Customer", "Color", "Quantity", "Unit", "Price", "Currency"}}
	for _, sale := range sheet.Sales {
		salesRows = append(salesRows, []any{
			sale.Timestamp.Format("2006-01-02 15:04"),
			sale.Customer,
			sale.Color,
			domain.ParseAmount(sale.Quantity),
			string(sale.Unit),
			domain.ParseAmount(sale.Price),
			string(sale.Currency),
		})
	}
	if err := addSheet(f, sheetSales, salesRows); err != nil {
		return nil, err
	}

	pricingRows := [][]any{{"Date", "Market", "Base Price", "Margin", "Commission %", "Transport", "Sampling %", "FX Rate", "Final Price"}}
	for _, calc := range sheet.Calculations {
		transport := ""
		if calc.TransportCost != nil {
			transport = fmt.Sprintf("%s %.2f", calc.TransportType, *calc.TransportCost)
		}
		pricingRows = append(pricingRows, []any{
			calc.Timestamp.Format("2006-01-02 15:04"),
			calc.MarketLabel,
			calc.BasePrice,
			calc.ProfitMargin,
			calc.Commission,
			transport,
			optional(calc.SamplingRate),
			optional(calc.FXRate),
			calc.FinalPrice,
		})
	}
	if err := addSheet(f, sheetPricing, pricingRows); err != nil {
		return nil, err
	}

	return toBytes(f)
}

// Statistics renders the sales dashboard figures.
func (r *Renderer) Statistics(stats domain.SalesStatistics) ([]byte, error) {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	if err := f.SetSheetName("Sheet1", sheetStatistics); err != nil {
		return nil, err
	}
	summary := [][]any{
		{"Metric", "Value"},
		{"Total Orders", stats.TotalOrders},
		{"Total Quantity", stats.TotalQuantity},
		{"Revenue EUR", stats.Revenue[domain.CurrencyEUR]},
		{"Revenue USD", stats.Revenue[domain.CurrencyUSD]},
	}
	if err := writeRows(f, sheetStatistics, summary); err != nil {
		return nil, err
	}

	top := [][]any{{"Article Code", "Article ID", "Quantity"}}
	for _, v := range stats.TopArticles {
		top = append(top, []any{v.ArticleCode, v.ArticleID, v.Quantity})
	}
	if err := addSheet(f, sheetTop, top); err != nil {
		return nil, err
	}

	recent := [][]any{{"Date", "Article Code", "Customer", "Quantity", "Unit", "Price", "Currency"}}
	for _, sale := range stats.RecentSales {
		recent = append(recent, []any{
			sale.Timestamp.Format("2006-01-02 15:04"),
			sale.ArticleCode,
			sale.Customer,
			domain.ParseAmount(sale.Quantity),
			string(sale.Unit),
			domain.ParseAmount(sale.Price),
			string(sale.Currency),
		})
	}
	if err := addSheet(f, sheetRecent, recent); err != nil {
		return nil, err
	}

	return toBytes(f)
}

func addSheet(f *excelize.File, name string, rows [][]any) error {
	if _, err := f.NewSheet(name); err != nil {
		return err
	}
	return writeRows(f, name, rows)
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func optional(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}

func toBytes(f *excelize.File) ([]byte, error) {
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
