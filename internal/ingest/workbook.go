package ingest

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// WorkbookParser reads the first worksheet of an .xlsx export. The header row
// and the articleCode rule are the same as for CSV.
type WorkbookParser struct{}

func NewWorkbookParser() *WorkbookParser {
	return &WorkbookParser{}
}

func (p *WorkbookParser) Parse(r io.Reader) ([]Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return []Row{}, nil
	}
	grid, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	if len(grid) < 2 {
		return []Row{}, nil
	}

	headers := grid[0]
	if len(headers) > 0 {
		headers[0] = strings.TrimPrefix(headers[0], byteOrderMark)
	}
	values := make([][]string, 0, len(grid)-1)
	for _, cells := range grid[1:] {
		if strings.TrimSpace(strings.Join(cells, "")) == "" {
			continue
		}
		values = append(values, cells)
	}
	return zipRows(headers, values), nil
}

// ForFormat returns the parser for an upload format name ("csv" or "xlsx").
func ForFormat(format string) (Parser, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "csv", "text/csv":
		return NewCSVParser(), nil
	case "xlsx", "excel":
		return NewWorkbookParser(), nil
	default:
		return nil, fmt.Errorf("no parser available for format: %s", format)
	}
}
