package service

import (
	"fmt"

	"github.com/yourusername/calcutta-valuation/internal/models"
)

// BestOddsAggregator stacks raw price tables from several markets into one
// comparison table and marks the best price in each row.
type BestOddsAggregator struct {
	drop map[string]bool
}

// NewBestOddsAggregator creates an aggregator that leaves out the given
// provider columns (model baselines, ids, timestamps).
func NewBestOddsAggregator(dropColumns []string) *BestOddsAggregator {
	drop := make(map[string]bool, len(dropColumns))
	for _, c := range dropColumns {
		drop[c] = true
	}
	return &BestOddsAggregator{drop: drop}
}

// MarketLabel returns the output label for a market identifier.
func MarketLabel(market string) string {
	if market == models.MarketMissCut {
		return models.MissCutLabel
	}
	return market
}

// Aggregate concatenates the non-empty tables in order. Columns are the union
// of bookmaker columns in first-seen order; a bookmaker absent from a market
// leaves its cells empty. Fails with ErrDataUnavailable when every table is empty.
func (a *BestOddsAggregator) Aggregate(tables []*models.MarketTable) (*models.BestOddsTable, error) {
	result := &models.BestOddsTable{}
	position := make(map[string]int)
	used := 0

	for _, table := range tables {
		if table.IsEmpty() {
			continue
		}
		used++

		mapping := make([]int, len(table.Bookmakers))
		for i, book := range table.Bookmakers {
			if a.drop[book] {
				mapping[i] = -1
				continue
			}
			pos, ok := position[book]
			if !ok {
				pos = len(result.Columns)
				position[book] = pos
				result.Columns = append(result.Columns, book)
			}
			mapping[i] = pos
		}

		label := MarketLabel(table.Market)
		for _, q := range table.Quotes {
			row := models.BestOddsRow{
				EventName:  q.EventName,
				Market:     label,
				PlayerName: q.PlayerName,
				Odds:       make([]*float64, len(result.Columns)),
			}
			for i, v := range q.Odds {
				if mapping[i] >= 0 && v != nil {
					row.Odds[mapping[i]] = models.Float(*v)
				}
			}
			result.Rows = append(result.Rows, row)
		}
	}

	if used == 0 {
		return nil, fmt.Errorf("%w: every requested market was empty", models.ErrDataUnavailable)
	}

	for r := range result.Rows {
		row := &result.Rows[r]
		// Rows built before later columns appeared are shorter.
		if pad := len(result.Columns) - len(row.Odds); pad > 0 {
			row.Odds = append(row.Odds, make([]*float64, pad)...)
		}
		row.Best = HighlightBest(row.Odds)
	}

	return result, nil
}

// HighlightBest flags every cell equal to the row maximum. Ties are all flagged.
func HighlightBest(odds []*float64) []bool {
	best := make([]bool, len(odds))

	var max float64
	found := false
	for _, v := range odds {
		if v != nil && (!found || *v > max) {
			max = *v
			found = true
		}
	}
	if !found {
		return best
	}

	for i, v := range odds {
		best[i] = v != nil && *v == max
	}
	return best
}
