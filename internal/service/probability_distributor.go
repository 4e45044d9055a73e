package service

import (
	"github.com/yourusername/calcutta-valuation/internal/models"
)

// Residual spreads for the finish buckets. Positions 11 and 12 receive the
// 11-20 residual divided by ten, not two; existing workbooks depend on it.
const (
	topFiveSpread   = 4
	topTenSpread    = 5
	topTwentySpread = 10
)

// ProbabilityDistributor combines per-market consensus probabilities into the
// 12-bucket finish-position table.
type ProbabilityDistributor struct {
	markets []string
	fill    float64
}

// NewProbabilityDistributor creates a distributor over markets in column
// order. fill is the consensus used for an entrant or market the feed omitted.
func NewProbabilityDistributor(markets []string, fill float64) *ProbabilityDistributor {
	return &ProbabilityDistributor{markets: markets, fill: fill}
}

// Distribute joins consensus values on (event, entrant). The first market with
// data fixes the entrant rows; later markets are left-joined onto them.
func (d *ProbabilityDistributor) Distribute(byMarket map[string][]models.ConsensusProbability) *models.ProbabilityTable {
	table := &models.ProbabilityTable{Markets: d.markets}

	index := make(map[models.EntrantKey]int)
	for _, market := range d.markets {
		probs, ok := byMarket[market]
		if !ok {
			continue
		}
		for _, p := range probs {
			if _, seen := index[p.Key()]; seen {
				continue
			}
			index[p.Key()] = len(table.Rows)
			table.Rows = append(table.Rows, models.FinishProbabilityRow{
				EventName:  p.EventName,
				PlayerName: p.PlayerName,
			})
		}
		break
	}

	values := make([]map[models.EntrantKey]float64, len(d.markets))
	for m, market := range d.markets {
		values[m] = make(map[models.EntrantKey]float64, len(byMarket[market]))
		for _, p := range byMarket[market] {
			if _, dup := values[m][p.Key()]; !dup {
				values[m][p.Key()] = p.Probability
			}
		}
	}

	for r := range table.Rows {
		row := &table.Rows[r]
		key := models.EntrantKey{EventName: row.EventName, PlayerName: row.PlayerName}
		row.Consensus = make([]float64, len(d.markets))
		for m := range d.markets {
			v, ok := values[m][key]
			if !ok {
				v = d.fill
			}
			row.Consensus[m] = v
		}
		row.Probs = FinishProbabilities(
			d.lookup(row, models.MarketWin),
			d.lookup(row, models.MarketTop5),
			d.lookup(row, models.MarketTop10),
			d.lookup(row, models.MarketTop20),
		)
	}

	return table
}

func (d *ProbabilityDistributor) lookup(row *models.FinishProbabilityRow, market string) float64 {
	for m, name := range d.markets {
		if name == market {
			return row.Consensus[m]
		}
	}
	return d.fill
}

// FinishProbabilities splits cumulative top-N consensus into finish buckets.
// Out-of-order inputs produce negative buckets; they are not clamped.
func FinishProbabilities(win, top5, top10, top20 float64) [models.FinishBuckets]float64 {
	var probs [models.FinishBuckets]float64

	probs[0] = win
	twoToFive := (top5 - win) / topFiveSpread
	for i := 1; i <= 4; i++ {
		probs[i] = twoToFive
	}
	sixToTen := (top10 - top5) / topTenSpread
	for i := 5; i <= 9; i++ {
		probs[i] = sixToTen
	}
	elevenOn := (top20 - top10) / topTwentySpread
	for i := 10; i <= 11; i++ {
		probs[i] = elevenOn
	}

	return probs
}

// MissingMarkets returns the markets with no consensus data, in column order.
func (d *ProbabilityDistributor) MissingMarkets(byMarket map[string][]models.ConsensusProbability) []string {
	var missing []string
	for _, market := range d.markets {
		if _, ok := byMarket[market]; !ok {
			missing = append(missing, market)
		}
	}
	return missing
}
