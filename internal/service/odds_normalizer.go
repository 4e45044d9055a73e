package service

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/yourusername/calcutta-valuation/internal/models"
)

var trailingCount = regexp.MustCompile(`\d+$`)

// OddsNormalizer turns one market's per-bookmaker implied probabilities into a
// single no-vig consensus per entrant.
type OddsNormalizer struct {
	unitMarkets map[string]bool
	exclusions  map[string]bool
}

// NormalizedMarket is the result of normalizing one market table.
type NormalizedMarket struct {
	Market     string
	Scalar     float64
	Bookmakers []string
	// NoVig holds each bookmaker column rescaled to sum to Scalar.
	NoVig     [][]*float64
	Consensus []models.ConsensusProbability
}

// NewOddsNormalizer creates a normalizer. unitMarkets normalize to 1 (win, frl);
// exclusions name bookmaker columns left out of the consensus.
func NewOddsNormalizer(unitMarkets, exclusions []string) *OddsNormalizer {
	n := &OddsNormalizer{
		unitMarkets: make(map[string]bool, len(unitMarkets)),
		exclusions:  make(map[string]bool, len(exclusions)),
	}
	for _, m := range unitMarkets {
		n.unitMarkets[m] = true
	}
	for _, c := range exclusions {
		n.exclusions[c] = true
	}
	return n
}

// Scalar returns the total probability a market's entrants should sum to:
// 1 for unit markets, otherwise N parsed from the trailing digits of "top_N".
func (n *OddsNormalizer) Scalar(market string) (float64, error) {
	if n.unitMarkets[market] {
		return 1, nil
	}

	digits := trailingCount.FindString(market)
	if digits == "" {
		return 0, fmt.Errorf("%w: market %q has no trailing position count", models.ErrParse, market)
	}
	count, err := strconv.Atoi(digits)
	if err != nil || count <= 0 {
		return 0, fmt.Errorf("%w: market %q has invalid position count %q", models.ErrParse, market, digits)
	}
	return float64(count), nil
}

// Normalize de-vigs every bookmaker column and the consensus column of table.
func (n *OddsNormalizer) Normalize(table *models.MarketTable) (*NormalizedMarket, error) {
	if table.IsEmpty() {
		return nil, fmt.Errorf("%w: market %s", models.ErrDataUnavailable, table.Market)
	}

	scalar, err := n.Scalar(table.Market)
	if err != nil {
		return nil, err
	}

	var cols []int
	result := &NormalizedMarket{Market: table.Market, Scalar: scalar}
	for i, book := range table.Bookmakers {
		if n.exclusions[book] {
			continue
		}
		cols = append(cols, i)
		result.Bookmakers = append(result.Bookmakers, book)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("%w: market %s", models.ErrNoOddsColumns, table.Market)
	}

	for _, i := range cols {
		result.NoVig = append(result.NoVig, RemoveVig(table.Column(i), scalar))
	}

	raw := make([]*float64, len(table.Quotes))
	for r, q := range table.Quotes {
		raw[r] = models.Float(consensus(q.Odds, cols))
	}

	noVig := RemoveVig(raw, scalar)
	result.Consensus = make([]models.ConsensusProbability, len(table.Quotes))
	for r, q := range table.Quotes {
		result.Consensus[r] = models.ConsensusProbability{
			EventName:   q.EventName,
			PlayerName:  q.PlayerName,
			Market:      table.Market,
			Probability: *noVig[r],
		}
	}

	return result, nil
}

// consensus is the mean of the priced bookmakers, clipped at zero. An entrant
// nobody prices gets zero.
func consensus(odds []*float64, cols []int) float64 {
	var sum float64
	var count int
	for _, i := range cols {
		if odds[i] == nil {
			continue
		}
		sum += *odds[i]
		count++
	}
	if count == 0 {
		return 0
	}
	mean := sum / float64(count)
	if mean > 0 {
		return mean
	}
	return 0
}

// RemoveVig rescales a column so its priced values sum to scalar, dividing
// each by (column sum / scalar). Unpriced cells stay nil. A column summing to
// zero has nothing to rescale and comes back as zeros.
func RemoveVig(values []*float64, scalar float64) []*float64 {
	var sum float64
	for _, v := range values {
		if v != nil {
			sum += *v
		}
	}

	out := make([]*float64, len(values))
	for i, v := range values {
		if v == nil {
			continue
		}
		if sum == 0 {
			out[i] = models.Float(0)
			continue
		}
		out[i] = models.Float(*v / (sum / scalar))
	}
	return out
}
