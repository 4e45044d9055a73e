package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yourusername/calcutta-valuation/internal/models"
)

func TestValidateQuote(t *testing.T) {
	validator := NewDataValidator()

	tests := []struct {
		name       string
		format     string
		quote      models.MarketQuote
		shouldHave string // error substring; empty means valid
	}{
		{
			name:   "valid percent row",
			format: models.OddsFormatPercent,
			quote:  quote("Woods, Tiger", f(0.1), nil),
		},
		{
			name:       "missing player",
			format:     models.OddsFormatPercent,
			quote:      quote("", f(0.1), f(0.2)),
			shouldHave: "player_name is required",
		},
		{
			name:       "short row",
			format:     models.OddsFormatPercent,
			quote:      quote("Woods, Tiger", f(0.1)),
			shouldHave: "has 1 odds for 2 bookmakers",
		},
		{
			name:       "negative percent",
			format:     models.OddsFormatPercent,
			quote:      quote("Woods, Tiger", f(-0.1), f(0.2)),
			shouldHave: "bet365 odds -0.1 out of range",
		},
		{
			name:   "valid american row",
			format: models.OddsFormatAmerican,
			quote:  quote("Woods, Tiger", f(1200), f(-150)),
		},
		{
			name:       "american inside the dead zone",
			format:     models.OddsFormatAmerican,
			quote:      quote("Woods, Tiger", f(1200), f(50)),
			shouldHave: "draftkings odds 50 out of range for american format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := &models.MarketTable{OddsFormat: tt.format, Bookmakers: []string{"bet365", "draftkings"}}
			errors := validator.ValidateQuote(&tt.quote, table)
			if tt.shouldHave == "" {
				assert.Empty(t, errors)
				return
			}
			assert.Contains(t, strings.Join(errors, "; "), tt.shouldHave)
		})
	}
}

func TestValidateUniqueness(t *testing.T) {
	table := &models.MarketTable{
		Bookmakers: []string{"book"},
		Quotes: []models.MarketQuote{
			quote("Woods, Tiger", f(0.1)),
			quote("McIlroy, Rory", f(0.1)),
			quote("Woods, Tiger", f(0.2)),
		},
	}

	errors := NewDataValidator().ValidateUniqueness(table)
	assert.Equal(t, []string{"Woods, Tiger quoted in rows 1 and 3"}, errors)
}

func TestValidateTablePrefixesRows(t *testing.T) {
	table := &models.MarketTable{
		OddsFormat: models.OddsFormatPercent,
		Bookmakers: []string{"book"},
		Quotes: []models.MarketQuote{
			quote("Woods, Tiger", f(0.1)),
			quote("", f(0.1)),
		},
	}

	errors := NewDataValidator().ValidateTable(table)
	assert.Equal(t, []string{"row 2: player_name is required"}, errors)
}
