package service

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/calcutta-valuation/internal/models"
)

// fixedScorer returns preset scores keyed by "query|canonical".
type fixedScorer map[string]int

func (s fixedScorer) Score(a, b string) int {
	return s[a+"|"+b]
}

var submitted = time.Date(2024, 4, 10, 19, 30, 0, 0, time.UTC)

func bid(name, bidder string, amount int64) models.BidRecord {
	return models.BidRecord{
		Name:      name,
		Price:     decimal.NewFromInt(amount),
		Timestamp: submitted,
		Bidder:    bidder,
		Bid:       decimal.NewFromInt(amount),
	}
}

func TestToLastFirst(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Tiger Woods", "Woods, Tiger"},
		{"Byeong Hun An", "Hun An, Byeong"},
		{"Bryson DeChambeau", "DeChambeau, Bryson"},
		{"  Rory McIlroy ", "McIlroy, Rory"},
		{"Cher", "Cher"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ToLastFirst(tt.in))
		})
	}
}

func TestTokenSortScorer(t *testing.T) {
	s := TokenSortScorer{}

	assert.Equal(t, 100, s.Score("Woods, Tiger", "Woods, Tiger"))
	assert.Equal(t, 100, s.Score("tiger woods", "Woods, Tiger"))
	assert.Equal(t, 82, s.Score("Woods, Tigre", "Woods, Tiger"))
	assert.Less(t, s.Score("Woods, Tiger", "Spieth, Jordan"), 50)
	assert.Equal(t, 0, s.Score("", "Woods, Tiger"))
}

func TestReconcileThresholdBoundary(t *testing.T) {
	canonical := models.CanonicalNameIndex{"Woods, Tiger", "Spieth, Jordan"}
	scorer := fixedScorer{
		"Woods, Tiger|Woods, Tiger":   80,
		"Spieth, Jordan|Woods, Tiger": 79,
	}
	nr := NewNameReconciler(scorer, 80, 2)

	rows, stats := nr.Reconcile([]models.BidRecord{
		bid("Tiger Woods", "alice", 100),
		bid("Jordan Spieth", "bob", 50),
	}, canonical)

	require.Len(t, rows, 2)
	assert.True(t, rows[0].Matched, "score of exactly 80 matches")
	assert.Equal(t, "Woods, Tiger", rows[0].MatchedName)
	assert.False(t, rows[1].Matched, "score of 79 is below threshold")
	assert.Empty(t, rows[1].MatchedName)
	assert.Equal(t, ReconcileStats{Bids: 2, Matched: 1, Unmatched: 1, Rows: 2}, stats)
}

func TestReconcileKeepsDisplayName(t *testing.T) {
	nr := NewNameReconciler(TokenSortScorer{}, 80, 2)

	rows, _ := nr.Reconcile([]models.BidRecord{bid("Tiger Woods", "alice", 100)}, models.CanonicalNameIndex{"Woods, Tiger"})

	require.Len(t, rows, 1)
	assert.Equal(t, "Tiger Woods", rows[0].Bid.Name)
	assert.Equal(t, "Woods, Tiger", rows[0].MatchedName)
	assert.Equal(t, 100, rows[0].Score)
}

func TestReconcileFanOut(t *testing.T) {
	canonical := models.CanonicalNameIndex{"Fitzpatrick, Alex", "Fitzpatrick, Matt", "Fitzpatrick, Matthew"}
	scorer := fixedScorer{
		"Fitzpatrick, Matt|Fitzpatrick, Alex":    81,
		"Fitzpatrick, Matt|Fitzpatrick, Matt":    100,
		"Fitzpatrick, Matt|Fitzpatrick, Matthew": 90,
	}
	nr := NewNameReconciler(scorer, 80, 2)

	rows, stats := nr.Reconcile([]models.BidRecord{bid("Matt Fitzpatrick", "carol", 75)}, canonical)

	require.Len(t, rows, 2, "limit caps the fan-out")
	assert.Equal(t, "Fitzpatrick, Matt", rows[0].MatchedName)
	assert.Equal(t, "Fitzpatrick, Matthew", rows[1].MatchedName)
	assert.Equal(t, 1, stats.Matched)
	assert.Equal(t, 2, stats.Rows)
}

func TestReconcileDropsIncompleteAndDuplicates(t *testing.T) {
	nr := NewNameReconciler(TokenSortScorer{}, 80, 2)
	placeholder := bid("Rory McIlroy", "", 0)
	placeholder.Timestamp = time.Time{}

	rows, stats := nr.Reconcile([]models.BidRecord{
		bid("Tiger Woods", "alice", 100),
		placeholder,
		bid("Tiger Woods", "alice", 100),
	}, models.CanonicalNameIndex{"Woods, Tiger", "McIlroy, Rory"})

	require.Len(t, rows, 1)
	assert.Equal(t, "Tiger Woods", rows[0].Bid.Name)
	assert.Equal(t, 1, stats.Dropped)
	assert.Equal(t, 1, stats.Rows)
}

func TestCandidatesOrdering(t *testing.T) {
	canonical := models.CanonicalNameIndex{"x", "y", "z"}
	scorer := fixedScorer{"Q|x": 85, "Q|y": 95, "Q|z": 85}
	nr := NewNameReconciler(scorer, 80, 3)

	got := nr.Candidates("Q", canonical)

	assert.Equal(t, []Candidate{{"y", 95}, {"x", 85}, {"z", 85}}, got)
}
