package service

import (
	"math"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/yourusername/calcutta-valuation/internal/models"
)

// Scorer rates the similarity of two names on a 0-100 scale.
type Scorer interface {
	Score(a, b string) int
}

// TokenSortScorer compares names after lowercasing, stripping punctuation and
// sorting the tokens, so "Woods, Tiger" and "tiger woods" score 100.
type TokenSortScorer struct{}

// Score implements Scorer.
func (TokenSortScorer) Score(a, b string) int {
	return similarity(sortedTokens(a), sortedTokens(b))
}

func sortedTokens(s string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, s)
	tokens := strings.Fields(cleaned)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// similarity is 100 * (1 - edit distance / longer length), rounded. A
// transposition costs two edits, so "tigre woods" scores 82 against
// "tiger woods".
func similarity(a, b string) int {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	if la == 0 || lb == 0 {
		return 0
	}
	longer := la
	if lb > longer {
		longer = lb
	}
	d := levenshtein.ComputeDistance(a, b)
	return int(math.Round(100 * float64(longer-d) / float64(longer)))
}

// ToLastFirst rewrites "First Last" as "Last, First", splitting on the first
// space so "Byeong Hun An" becomes "Hun An, Byeong". Used only for matching.
func ToLastFirst(name string) string {
	name = strings.TrimSpace(name)
	first, last, ok := strings.Cut(name, " ")
	if !ok {
		return name
	}
	return strings.TrimSpace(last) + ", " + first
}

// ReconcileStats summarizes one reconciliation.
type ReconcileStats struct {
	Bids      int
	Dropped   int
	Matched   int
	Unmatched int
	Rows      int
}

// NameReconciler attaches canonical entrant names to free-text bid names.
type NameReconciler struct {
	scorer    Scorer
	threshold int
	limit     int
}

// NewNameReconciler creates a reconciler keeping up to limit candidates that
// score at least threshold.
func NewNameReconciler(scorer Scorer, threshold, limit int) *NameReconciler {
	if scorer == nil {
		scorer = TokenSortScorer{}
	}
	if limit <= 0 {
		limit = 1
	}
	return &NameReconciler{scorer: scorer, threshold: threshold, limit: limit}
}

// Candidate is one canonical name clearing the threshold for a bid.
type Candidate struct {
	Name  string
	Score int
}

// Candidates returns the canonical names clearing the threshold for one bid
// name, best score first, canonical order breaking ties, at most limit long.
func (nr *NameReconciler) Candidates(bidName string, canonical models.CanonicalNameIndex) []Candidate {
	query := ToLastFirst(bidName)

	var found []Candidate
	for _, name := range canonical {
		score := nr.scorer.Score(query, name)
		if score >= nr.threshold {
			found = append(found, Candidate{Name: name, Score: score})
		}
	}

	sort.SliceStable(found, func(i, j int) bool {
		return found[i].Score > found[j].Score
	})
	if len(found) > nr.limit {
		found = found[:nr.limit]
	}
	return found
}

// Reconcile joins each submitted bid to its candidate canonical names. A bid
// with several candidates fans out into one row per candidate; a bid with
// none keeps a single unmatched row. Bids without a timestamp are dropped, as
// are exact duplicate rows.
func (nr *NameReconciler) Reconcile(bids []models.BidRecord, canonical models.CanonicalNameIndex) ([]models.AuctionRow, ReconcileStats) {
	stats := ReconcileStats{Bids: len(bids)}

	var rows []models.AuctionRow
	for _, bid := range bids {
		if !bid.HasTimestamp() {
			stats.Dropped++
			continue
		}

		found := nr.Candidates(bid.Name, canonical)
		if len(found) == 0 {
			stats.Unmatched++
			rows = appendUnique(rows, models.AuctionRow{Bid: bid})
			continue
		}

		stats.Matched++
		for _, c := range found {
			rows = appendUnique(rows, models.AuctionRow{
				Bid:         bid,
				MatchedName: c.Name,
				Matched:     true,
				Score:       c.Score,
			})
		}
	}

	stats.Rows = len(rows)
	return rows, stats
}

func appendUnique(rows []models.AuctionRow, row models.AuctionRow) []models.AuctionRow {
	for _, existing := range rows {
		if existing.Equal(row) {
			return rows
		}
	}
	return append(rows, row)
}
