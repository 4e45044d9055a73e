package service

import (
	"fmt"

	"github.com/yourusername/calcutta-valuation/internal/models"
)

// DataValidator checks fetched market tables for rows the pipeline would
// mishandle. It reports problems; it never alters the table.
type DataValidator struct{}

// NewDataValidator creates a new data validator
func NewDataValidator() *DataValidator {
	return &DataValidator{}
}

// ValidateTable validates every quote of a market table.
func (v *DataValidator) ValidateTable(table *models.MarketTable) []string {
	var errors []string
	for i, q := range table.Quotes {
		for _, e := range v.ValidateQuote(&q, table) {
			errors = append(errors, fmt.Sprintf("row %d: %s", i+1, e))
		}
	}
	return append(errors, v.ValidateUniqueness(table)...)
}

// ValidateQuote validates one entrant's row.
func (v *DataValidator) ValidateQuote(q *models.MarketQuote, table *models.MarketTable) []string {
	var errors []string

	if q.EventName == "" {
		errors = append(errors, "event_name is required")
	}
	if q.PlayerName == "" {
		errors = append(errors, "player_name is required")
	}

	if len(q.Odds) != len(table.Bookmakers) {
		errors = append(errors, fmt.Sprintf("has %d odds for %d bookmakers", len(q.Odds), len(table.Bookmakers)))
		return errors
	}

	for i, o := range q.Odds {
		if o == nil {
			continue
		}
		if !v.IsValidOdds(*o, table.OddsFormat) {
			errors = append(errors, fmt.Sprintf("%s odds %v out of range for %s format", table.Bookmakers[i], *o, table.OddsFormat))
		}
	}

	return errors
}

// ValidateUniqueness reports entrants quoted more than once. Later rows of a
// duplicated entrant are ignored when markets are joined.
func (v *DataValidator) ValidateUniqueness(table *models.MarketTable) []string {
	var errors []string
	seen := make(map[models.EntrantKey]int, len(table.Quotes))
	for i, q := range table.Quotes {
		key := q.Key()
		if first, ok := seen[key]; ok {
			errors = append(errors, fmt.Sprintf("%s quoted in rows %d and %d", q.PlayerName, first+1, i+1))
			continue
		}
		seen[key] = i
	}
	return errors
}

// IsValidOdds checks a single price. Percent prices are non-negative; American
// prices have magnitude of at least 100.
func (v *DataValidator) IsValidOdds(odds float64, format string) bool {
	switch format {
	case models.OddsFormatAmerican:
		return odds >= 100 || odds <= -100
	default:
		return odds >= 0
	}
}
