package statement

import "strings"

// Column synonyms seen across bank CSV exports, lowercase. Matching is
// case-insensitive and exact per cell.
var (
	dateCols     = []string{"date", "booking date", "data", "data mov.", "transaction date"}
	descCols     = []string{"description", "descrição", "memo", "details", "narrative"}
	amountCols   = []string{"amount", "montante", "movimento", "value"}
	debitCols    = []string{"debit", "débito", "withdrawal"}
	creditCols   = []string{"credit", "crédito", "deposit"}
	externalCols = []string{"reference", "transaction id", "external id", "ref", "id"}
)

// layout holds the column index of each field, -1 when absent. Either Amount
// or the Debit/Credit pair carries the money; ExternalID is optional.
type layout struct {
	Date       int
	Desc       int
	Amount     int
	Debit      int
	Credit     int
	ExternalID int
}

func (l layout) complete() bool {
	if l.Date < 0 || l.Desc < 0 {
		return false
	}

	return l.Amount >= 0 || (l.Debit >= 0 && l.Credit >= 0)
}

// detectLayout scans rows top-down for the first row that works as a header.
// Bank exports often carry preamble rows (account holder, export date range)
// above the real header.
func detectLayout(rows [][]string) (layout, int, bool) {
	for rowIdx, row := range rows {
		l := layout{Date: -1, Desc: -1, Amount: -1, Debit: -1, Credit: -1, ExternalID: -1}

		for i, cell := range row {
			name := strings.ToLower(strings.TrimSpace(cell))

			switch {
			case l.Date < 0 && contains(dateCols, name):
				l.Date = i
			case l.Desc < 0 && contains(descCols, name):
				l.Desc = i
			case l.Amount < 0 && contains(amountCols, name):
				l.Amount = i
			case l.Debit < 0 && contains(debitCols, name):
				l.Debit = i
			case l.Credit < 0 && contains(creditCols, name):
				l.Credit = i
			case l.ExternalID < 0 && contains(externalCols, name):
				l.ExternalID = i
			}
		}

		if l.complete() {
			return l, rowIdx, true
		}
	}

	return layout{}, 0, false
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}

	return false
}
