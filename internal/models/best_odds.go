package models

// BestOddsRow is one (event, market, entrant) row of the odds comparison.
// Odds and Best are aligned with the owning table's Columns.
type BestOddsRow struct {
	EventName  string
	Market     string
	PlayerName string
	Odds       []*float64
	Best       []bool
}

// BestOddsTable is what gets persisted to the "Best Odds" sheet.
type BestOddsTable struct {
	Columns []string
	Rows    []BestOddsRow
}

// Header returns the sheet header.
func (t *BestOddsTable) Header() []string {
	return append([]string{ColumnEventName, ColumnMarket, ColumnPlayerName}, t.Columns...)
}
