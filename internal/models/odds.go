package models

// Market identifiers understood by the odds feed.
const (
	MarketWin     = "win"
	MarketTop5    = "top_5"
	MarketTop10   = "top_10"
	MarketTop20   = "top_20"
	MarketFRL     = "frl"
	MarketMissCut = "mc"
	MarketMakeCut = "make_cut"
)

// MissCutLabel is the output label for the "mc" market.
const MissCutLabel = "miss_cut"

// KnownMarkets lists every market identifier the feed accepts.
var KnownMarkets = []string{
	MarketWin, MarketTop5, MarketTop10, MarketTop20, MarketFRL, MarketMissCut, MarketMakeCut,
}

// Odds formats requested from the feed.
const (
	OddsFormatPercent  = "percent"
	OddsFormatAmerican = "american"
)

// Identity columns present in every feed response.
const (
	ColumnEventName  = "event_name"
	ColumnPlayerName = "player_name"
	ColumnMarket     = "market"
)

// MarketQuote is one entrant row of a market feed. Odds is aligned with the
// owning table's Bookmakers; a nil entry means the bookmaker has no price.
type MarketQuote struct {
	EventName  string
	PlayerName string
	Odds       []*float64
	Metadata   map[string]string
}

// Key returns the (event, entrant) join key.
func (q MarketQuote) Key() EntrantKey {
	return EntrantKey{EventName: q.EventName, PlayerName: q.PlayerName}
}

// MarketTable is the parsed response for a single market. Bookmakers is the
// explicit schema of odds columns discovered when the feed was parsed.
type MarketTable struct {
	Market     string
	OddsFormat string
	Bookmakers []string
	Quotes     []MarketQuote
}

// IsEmpty reports whether the feed carried no real odds. The provider answers
// with at most one placeholder row when a market is not offered.
func (t *MarketTable) IsEmpty() bool {
	return t == nil || len(t.Quotes) <= 1
}

// Column returns the values of one bookmaker column.
func (t *MarketTable) Column(i int) []*float64 {
	col := make([]*float64, len(t.Quotes))
	for r, q := range t.Quotes {
		col[r] = q.Odds[i]
	}
	return col
}

// EntrantKey identifies an entrant within an event.
type EntrantKey struct {
	EventName  string
	PlayerName string
}

// ConsensusProbability is the de-vigged consensus for one entrant in one market.
type ConsensusProbability struct {
	EventName   string
	PlayerName  string
	Market      string
	Probability float64
}

// Key returns the (event, entrant) join key.
func (c ConsensusProbability) Key() EntrantKey {
	return EntrantKey{EventName: c.EventName, PlayerName: c.PlayerName}
}

// Float returns a pointer to v, for building odds rows.
func Float(v float64) *float64 {
	return &v
}
