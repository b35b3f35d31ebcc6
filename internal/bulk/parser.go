// Package bulk imports unit inventories from CSV exports and applies
// operations to many units at once.
package bulk

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/MrJamesThe3rd/receivables/internal/encoding"
	"github.com/MrJamesThe3rd/receivables/internal/money"
	"github.com/MrJamesThe3rd/receivables/internal/unit"
)

var ErrUnknownFormat = errors.New("no known unit export format found")

// RowError reports a data row that could not be imported. Row is 1-based in the file.
type RowError struct {
	Row int
	Err error
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

func (e RowError) Unwrap() error {
	return e.Err
}

// Parsed is the outcome of reading an export.
type Parsed struct {
	Profile   string
	Charset   encoding.Charset
	Delimiter rune
	Params    []unit.CreateParams
	Errors    []RowError
}

// Parser reads unit inventory exports. The delimiter (semicolon or comma) and
// the column layout are detected from the header row.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) Parse(r io.Reader) (*Parsed, error) {
	utf8r, charset, err := encoding.Normalize(r)
	if err != nil {
		return nil, fmt.Errorf("detect encoding: %w", err)
	}

	data, err := io.ReadAll(utf8r)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}

	for _, delim := range []rune{';', ','} {
		rows, err := readRows(data, delim)
		if err != nil {
			continue
		}

		profile, cols, headerIdx := detectProfile(rows)
		if profile == nil {
			continue
		}

		parsed := parseRows(profile, cols, rows[headerIdx+1:], headerIdx)
		parsed.Charset = charset
		parsed.Delimiter = delim

		return parsed, nil
	}

	return nil, ErrUnknownFormat
}

func readRows(data []byte, delim rune) ([][]string, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = delim
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	return rows, nil
}

// detectProfile scans rows for a header that matches a known profile.
func detectProfile(rows [][]string) (*Profile, colIndex, int) {
	for rowIdx, row := range rows {
		cols := newColIndex(row)

		for i := range profiles {
			if cols.matches(&profiles[i]) {
				return &profiles[i], cols, rowIdx
			}
		}
	}

	return nil, nil, 0
}

// parseRows converts data rows. headerRowNum is the 0-based index of the header
// record; blank lines are not counted.
func parseRows(p *Profile, cols colIndex, rows [][]string, headerRowNum int) *Parsed {
	var (
		blockLotIdx = cols.find(p.BlockLot)
		blockIdx    = cols.find(p.Block)
		lotIdx      = cols.find(p.Lot)
		projectIdx  = cols.find(p.Project)
		phaseIdx    = cols.find(p.Phase)
		typeIdx     = cols.find(p.UnitType)
		priceIdx    = cols.find(p.Price)
		duesIdx     = cols.find(p.Dues)
	)

	out := &Parsed{Profile: p.Name}

	for i, row := range rows {
		rowNum := headerRowNum + i + 2

		if blankRow(row) {
			continue
		}

		blockLot := cellValue(row, blockLotIdx)
		if p.splitLot() {
			blockLot = joinBlockLot(cellValue(row, blockIdx), cellValue(row, lotIdx))
		}

		if blockLot == "" {
			out.Errors = append(out.Errors, RowError{Row: rowNum, Err: errors.New("missing block/lot")})
			continue
		}

		project := cellValue(row, projectIdx)
		if project == "" {
			out.Errors = append(out.Errors, RowError{Row: rowNum, Err: errors.New("missing project")})
			continue
		}

		price, err := money.Parse(cellValue(row, priceIdx))
		if err != nil || price <= 0 {
			out.Errors = append(out.Errors, RowError{Row: rowNum, Err: fmt.Errorf("price: %q", cellValue(row, priceIdx))})
			continue
		}

		var dues int64
		if s := cellValue(row, duesIdx); s != "" {
			if dues, err = money.Parse(s); err != nil {
				out.Errors = append(out.Errors, RowError{Row: rowNum, Err: fmt.Errorf("dues: %w", err)})
				continue
			}
		}

		out.Params = append(out.Params, unit.CreateParams{
			BlockLot:     blockLot,
			Project:      project,
			Phase:        cellValue(row, phaseIdx),
			UnitType:     cellValue(row, typeIdx),
			SellingPrice: price,
			MonthlyDues:  dues,
		})
	}

	return out
}

// joinBlockLot renders separate block and lot cells as "B<block>-L<lot>".
func joinBlockLot(block, lot string) string {
	if block == "" || lot == "" {
		return ""
	}

	return "B" + strings.TrimPrefix(strings.ToUpper(block), "B") + "-L" + strings.TrimPrefix(strings.ToUpper(lot), "L")
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}

	return true
}

// cellValue safely gets a trimmed cell value from a row.
func cellValue(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}

	return strings.TrimSpace(row[idx])
}
