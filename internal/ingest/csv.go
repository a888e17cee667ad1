package ingest

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"articleregistry/backend/internal/domain"
)

// Row is one parsed data line keyed by record field key.
type Row map[string]string

type Parser interface {
	Parse(r io.Reader) ([]Row, error)
}

const byteOrderMark = "\ufeff"

var lineBreak = regexp.MustCompile(`\r?\n`)

type CSVParser struct{}

func NewCSVParser() *CSVParser {
	return &CSVParser{}
}

func (p *CSVParser) Parse(r io.Reader) ([]Row, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return ParseText(string(raw)), nil
}

// ParseText parses comma-separated text whose first line is the header row.
// Rows without an articleCode are dropped. Input with no data line yields an
// empty result, never an error.
func ParseText(text string) []Row {
	text = strings.TrimPrefix(text, byteOrderMark)
	lines := lineBreak.Split(text, -1)
	if len(lines) < 2 {
		return []Row{}
	}

	headers := splitLine(lines[0])
	values := make([][]string, 0, len(lines)-1)
	for _, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		values = append(values, splitLine(line))
	}
	return zipRows(headers, values)
}

// splitLine splits on commas outside double quotes. Quote characters toggle
// the quoted state and are not kept; a doubled quote inside a quoted value is
// a literal quote.
func splitLine(line string) []string {
	var (
		fields   []string
		current  strings.Builder
		inQuotes bool
	)
	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		ch := runes[i]
		switch {
		case ch == '"':
			if inQuotes && i+1 < len(runes) && runes[i+1] == '"' {
				current.WriteRune('"')
				i++
				continue
			}
			inQuotes = !inQuotes
		case ch == ',' && !inQuotes:
			fields = append(fields, current.String())
			current.Reset()
		default:
			current.WriteRune(ch)
		}
	}
	return append(fields, current.String())
}

func zipRows(headers []string, values [][]string) []Row {
	keys := make([]string, len(headers))
	for i, h := range headers {
		keys[i] = FieldKey(strings.Trim(strings.TrimSpace(h), `"`))
	}

	rows := make([]Row, 0, len(values))
	for _, fields := range values {
		row := make(Row, len(keys))
		for i, key := range keys {
			if key == "" {
				continue
			}
			value := ""
			if i < len(fields) {
				value = strings.TrimSpace(fields[i])
			}
			if _, seen := row[key]; seen && value == "" {
				continue
			}
			row[key] = value
		}
		if strings.TrimSpace(row[domain.FieldArticleCode]) == "" {
			continue
		}
		rows = append(rows, row)
	}
	return rows
}
