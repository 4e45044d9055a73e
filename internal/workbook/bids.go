package workbook

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/yourusername/calcutta-valuation/internal/models"
)

// bidExportColumns is the fixed positional layout of the auction export:
// name, price, timestamp, bidder, bid.
const bidExportColumns = 5

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"1/2/2006 15:04:05",
	"1/2/2006 3:04:05 PM",
	"1/2/06 15:04",
	"2006-01-02",
}

// ReadBidExport parses the first sheet of an auction site's bid export.
// Columns are positional; a first row whose price cell is not a number is
// taken as a header and skipped. Rows without a readable timestamp are
// returned with a zero Timestamp; the reconciler drops them.
func ReadBidExport(r io.Reader) ([]models.BidRecord, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidBidExport, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", models.ErrInvalidBidExport)
	}

	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidBidExport, err)
	}

	bids := make([]models.BidRecord, 0, len(rows))
	for i, row := range rows {
		if blankRow(row) || (i == 0 && headerRow(row)) {
			continue
		}
		if len(row) > bidExportColumns {
			return nil, fmt.Errorf("%w: row %d has %d columns, expected %d",
				models.ErrInvalidBidExport, i+1, len(row), bidExportColumns)
		}
		bid, err := parseBidRow(row)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", models.ErrInvalidBidExport, i+1, err)
		}
		bids = append(bids, bid)
	}

	return bids, nil
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func headerRow(row []string) bool {
	if len(row) < 2 {
		return false
	}
	_, err := parseMoney(strings.TrimSpace(row[1]))
	return err != nil
}

func parseBidRow(row []string) (models.BidRecord, error) {
	cell := func(i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	price, err := parseMoney(cell(1))
	if err != nil {
		return models.BidRecord{}, fmt.Errorf("price: %w", err)
	}
	ts := parseTimestamp(cell(2))
	bid, err := parseMoney(cell(4))
	if err != nil {
		return models.BidRecord{}, fmt.Errorf("bid: %w", err)
	}

	return models.BidRecord{
		Name:      cell(0),
		Price:     price,
		Timestamp: ts,
		Bidder:    cell(3),
		Bid:       bid,
	}, nil
}

func parseMoney(s string) (decimal.Decimal, error) {
	s = strings.NewReplacer("$", "", ",", "").Replace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

// parseTimestamp accepts an Excel serial date or a formatted string. Anything
// else, such as a "pending" placeholder, is a bid that was never submitted and
// yields the zero time.
func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return t
		}
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
