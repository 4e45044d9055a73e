package models

import "fmt"

// FinishBuckets is the number of finish-position probability columns.
const FinishBuckets = 12

// FinishProbabilityRow is the finish-position breakdown for one entrant.
// Consensus is aligned with the owning table's Markets.
type FinishProbabilityRow struct {
	EventName  string
	PlayerName string
	Consensus  []float64
	Probs      [FinishBuckets]float64
}

// ProbabilityTable is what gets persisted to the "Probability Table" sheet.
type ProbabilityTable struct {
	Markets []string
	Rows    []FinishProbabilityRow
}

// ConsensusColumn returns the column header for a market's consensus value.
func ConsensusColumn(market string) string {
	return "consensus_" + market
}

// ProbColumn returns the column header for a finish bucket (1-based).
func ProbColumn(position int) string {
	return fmt.Sprintf("prob_%d", position)
}

// Header returns the sheet header: event, entrant, consensus columns then prob_1..prob_12.
func (t *ProbabilityTable) Header() []string {
	header := []string{ColumnEventName, ColumnPlayerName}
	for _, m := range t.Markets {
		header = append(header, ConsensusColumn(m))
	}
	for i := 1; i <= FinishBuckets; i++ {
		header = append(header, ProbColumn(i))
	}
	return header
}

// PlayerNames returns the entrant names in table order.
func (t *ProbabilityTable) PlayerNames() CanonicalNameIndex {
	names := make(CanonicalNameIndex, len(t.Rows))
	for i, r := range t.Rows {
		names[i] = r.PlayerName
	}
	return names
}

// CanonicalNameIndex is the ordered list of canonical entrant names.
type CanonicalNameIndex []string
