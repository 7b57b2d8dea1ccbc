// Package statement parses bank statement CSV exports into import
// candidates. The column layout is detected from the header row, so exports
// from different banks parse without per-bank configuration.
package statement

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	enc "github.com/tmiguel/saldo/internal/encoding"
	"github.com/tmiguel/saldo/internal/reconcile"
)

type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

var dateLayouts = []string{
	time.DateOnly,
	"02-01-2006",
	"02/01/2006",
	"2006/01/02",
	"02.01.2006",
}

func (p *Parser) Parse(r io.Reader) ([]reconcile.Candidate, error) {
	utf8r, err := enc.NewUTF8Reader(r)
	if err != nil {
		return nil, fmt.Errorf("detecting encoding: %w", err)
	}

	br := bufio.NewReader(utf8r)

	reader := csv.NewReader(br)
	reader.Comma = sniffDelimiter(br)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading csv: %w", err)
	}

	l, headerIdx, ok := detectLayout(rows)
	if !ok {
		return nil, fmt.Errorf("no usable header row: need date, description, and amount (or debit/credit) columns")
	}

	return parseRows(l, rows[headerIdx+1:])
}

// sniffDelimiter peeks at the first line and picks whichever of ';' and ','
// occurs more often. Semicolon exports use ',' as the decimal separator, so
// a tie goes to semicolon.
func sniffDelimiter(br *bufio.Reader) rune {
	buf, _ := br.Peek(1024)

	line := string(buf)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}

	if strings.Count(line, ",") > strings.Count(line, ";") {
		return ','
	}

	return ';'
}

func parseRows(l layout, rows [][]string) ([]reconcile.Candidate, error) {
	var candidates []reconcile.Candidate

	for _, row := range rows {
		// Rows without a parseable date are footers or running totals.
		date, ok := parseDate(cellValue(row, l.Date))
		if !ok {
			continue
		}

		amount, ok, err := rowAmount(l, row)
		if err != nil {
			return nil, err
		}

		if !ok {
			continue
		}

		candidates = append(candidates, reconcile.Candidate{
			Date:        date,
			Amount:      amount,
			Description: cellValue(row, l.Desc),
			ExternalID:  cellValue(row, l.ExternalID),
		})
	}

	return candidates, nil
}

// rowAmount reads the signed amount in cents: a single signed column, or a
// debit/credit pair where debit becomes negative. A row with neither cell
// filled is skipped.
func rowAmount(l layout, row []string) (int64, bool, error) {
	if l.Amount >= 0 {
		s := cellValue(row, l.Amount)
		if s == "" {
			return 0, false, nil
		}

		cents, err := parseAmountCents(s)
		if err != nil {
			return 0, false, err
		}

		return cents, true, nil
	}

	if s := cellValue(row, l.Debit); s != "" {
		cents, err := parseAmountCents(s)
		if err != nil {
			return 0, false, err
		}

		return -abs(cents), true, nil
	}

	if s := cellValue(row, l.Credit); s != "" {
		cents, err := parseAmountCents(s)
		if err != nil {
			return 0, false, err
		}

		return abs(cents), true, nil
	}

	return 0, false, nil
}

func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}

func cellValue(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}

	return strings.TrimSpace(row[idx])
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}

	return n
}
