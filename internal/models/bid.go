package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BidRecord is one row of the auction site's bid export.
type BidRecord struct {
	Name      string
	Price     decimal.Decimal
	Timestamp time.Time
	Bidder    string
	Bid       decimal.Decimal
}

// HasTimestamp reports whether the bid was actually submitted. Placeholder
// rows in the export carry no timestamp.
func (b BidRecord) HasTimestamp() bool {
	return !b.Timestamp.IsZero()
}

// AuctionRow is a bid joined to at most one canonical name.
type AuctionRow struct {
	Bid         BidRecord
	MatchedName string
	Matched     bool
	Score       int
}

// AuctionHeader is the header of the "Auction Table" sheet.
var AuctionHeader = []string{"name", "matched_name", "price", "timestamp", "bidder", "bid"}

// Equal reports whether two rows are exact duplicates.
func (r AuctionRow) Equal(o AuctionRow) bool {
	return r.Bid.Name == o.Bid.Name &&
		r.Bid.Price.Equal(o.Bid.Price) &&
		r.Bid.Timestamp.Equal(o.Bid.Timestamp) &&
		r.Bid.Bidder == o.Bid.Bidder &&
		r.Bid.Bid.Equal(o.Bid.Bid) &&
		r.Matched == o.Matched &&
		r.MatchedName == o.MatchedName
}
