package datasource

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/yourusername/calcutta-valuation/internal/models"
)

// nullTokens are cell values the feed uses for "no price".
var nullTokens = map[string]bool{
	"":    true,
	"na":  true,
	"n/a": true,
	"nan": true,
	"-":   true,
}

// MarketCSVParser parses the feed's CSV responses into a MarketTable.
// Every column other than the identity and metadata columns is a bookmaker
// column and must hold numeric values; a provider-added text column fails the
// parse instead of being silently folded into the consensus.
type MarketCSVParser struct {
	metadata map[string]bool
}

// NewMarketCSVParser creates a parser that carries the given columns as metadata
func NewMarketCSVParser(metadataColumns []string) *MarketCSVParser {
	metadata := make(map[string]bool, len(metadataColumns))
	for _, c := range metadataColumns {
		metadata[c] = true
	}
	return &MarketCSVParser{metadata: metadata}
}

// Parse reads a CSV feed response for one market
func (p *MarketCSVParser) Parse(r io.Reader, market, oddsFormat string) (*models.MarketTable, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s csv: %v", models.ErrParse, market, err)
	}

	table := &models.MarketTable{Market: market, OddsFormat: oddsFormat}
	if len(records) == 0 {
		return table, nil
	}

	header := records[0]
	rows := records[1:]
	// Placeholder responses are not held to the schema.
	if len(rows) <= 1 {
		table.Quotes = make([]models.MarketQuote, len(rows))
		return table, nil
	}

	eventIdx, playerIdx := -1, -1
	var oddsIdx, metaIdx []int
	for i, name := range header {
		name = strings.TrimSpace(name)
		header[i] = name
		switch {
		case name == models.ColumnEventName:
			eventIdx = i
		case name == models.ColumnPlayerName:
			playerIdx = i
		case p.metadata[name]:
			metaIdx = append(metaIdx, i)
		default:
			oddsIdx = append(oddsIdx, i)
			table.Bookmakers = append(table.Bookmakers, name)
		}
	}

	if eventIdx < 0 || playerIdx < 0 {
		return nil, fmt.Errorf("%w: %s feed is missing %s or %s column", models.ErrParse, market,
			models.ColumnEventName, models.ColumnPlayerName)
	}
	if len(oddsIdx) == 0 {
		return nil, fmt.Errorf("%w: %s", models.ErrNoOddsColumns, market)
	}

	table.Quotes = make([]models.MarketQuote, 0, len(rows))
	for n, row := range rows {
		quote := models.MarketQuote{
			EventName:  cell(row, eventIdx),
			PlayerName: cell(row, playerIdx),
			Odds:       make([]*float64, len(oddsIdx)),
		}
		for j, idx := range oddsIdx {
			v, err := parseOdds(cell(row, idx))
			if err != nil {
				return nil, fmt.Errorf("%w: %s row %d column %s: %v", models.ErrParse, market, n+1, header[idx], err)
			}
			quote.Odds[j] = v
		}
		if len(metaIdx) > 0 {
			quote.Metadata = make(map[string]string, len(metaIdx))
			for _, idx := range metaIdx {
				quote.Metadata[header[idx]] = cell(row, idx)
			}
		}
		table.Quotes = append(table.Quotes, quote)
	}

	return table, nil
}

func cell(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

var errNotNumeric = errors.New("value is not numeric")

// parseOdds accepts implied probabilities ("0.12") and american prices ("+450", "-120").
func parseOdds(s string) (*float64, error) {
	if nullTokens[strings.ToLower(s)] {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", errNotNumeric, s)
	}
	return &v, nil
}
