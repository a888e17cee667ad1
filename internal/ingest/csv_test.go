package ingest

import (
	"bytes"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"articleregistry/backend/internal/domain"
)

func TestParseTextKeepsQuotedCommasInOneField(t *testing.T) {
	text := "Article Code,Supplier,Article Name\n" +
		`A100,"Smith, John",Denim` + "\n"

	rows := ParseText(text)
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if got := rows[0][domain.FieldSupplier]; got != "Smith, John" {
		t.Fatalf("expected quoted comma kept, got %q", got)
	}
	if got := rows[0][domain.FieldArticleName]; got != "Denim" {
		t.Fatalf("expected article name after quoted field, got %q", got)
	}
}

func TestParseTextDropsRowsWithoutArticleCode(t *testing.T) {
	text := "Article Code,Color Code,Base Price EUR\r\n" +
		"A1,C1,10\r\n" +
		",C2,11\r\n" +
		"   ,C3,12\r\n" +
		"\r\n" +
		"A2,C4,13\r\n"

	rows := ParseText(text)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d: %v", len(rows), rows)
	}
	for _, row := range rows {
		if strings.TrimSpace(row[domain.FieldArticleCode]) == "" {
			t.Fatalf("row without article code leaked: %v", row)
		}
	}
	if rows[1][domain.FieldBasePriceEUR] != "13" {
		t.Fatalf("unexpected price %q", rows[1][domain.FieldBasePriceEUR])
	}
}

func TestParseTextStripsByteOrderMarkAndMapsHeaders(t *testing.T) {
	text := "\ufeff\"Article Code\",Treatment Name,Finish Type\nA1,Washed\n"

	rows := ParseText(text)
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	row := rows[0]
	if row[domain.FieldArticleCode] != "A1" {
		t.Fatalf("BOM not stripped from first header: %v", row)
	}
	if row[domain.FieldTreatmentName] != "Washed" {
		t.Fatalf("expected treatment mapped, got %v", row)
	}
	value, ok := row["finishtype"]
	if !ok || value != "" {
		t.Fatalf("expected unknown header slugified with empty value, got %q ok=%v", value, ok)
	}
}

func TestParseTextWithoutDataRowsIsEmpty(t *testing.T) {
	for _, text := range []string{"", "Article Code,Color Code", "Article Code\n\n"} {
		if rows := ParseText(text); len(rows) != 0 {
			t.Fatalf("expected no rows for %q, got %v", text, rows)
		}
	}
}

func TestSplitLineHandlesEscapedQuotes(t *testing.T) {
	fields := splitLine(`A1,"12"" wide, soft",x`)
	if len(fields) != 3 {
		t.Fatalf("expected 3 fields, got %v", fields)
	}
	if fields[1] != `12" wide, soft` {
		t.Fatalf("unexpected field %q", fields[1])
	}
}

func TestWorkbookParserUsesSameHeaderRules(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	_ = f.SetSheetRow(sheet, "A1", &[]any{"Article Code", "Color Name", "Base Price (EUR)"})
	_ = f.SetSheetRow(sheet, "A2", &[]any{"A1", "Navy", "9.5"})
	_ = f.SetSheetRow(sheet, "A3", &[]any{"", "Red", "8"})

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}

	parser, err := ForFormat("xlsx")
	if err != nil {
		t.Fatalf("parser: %v", err)
	}
	rows, err := parser.Parse(&buf)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %v", rows)
	}
	if rows[0][domain.FieldColorName] != "Navy" || rows[0][domain.FieldBasePriceEUR] != "9.5" {
		t.Fatalf("unexpected row %v", rows[0])
	}
}

func TestForFormatRejectsUnknownFormat(t *testing.T) {
	if _, err := ForFormat("pdf"); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}
