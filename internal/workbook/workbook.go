// Package workbook reads and writes the valuation workbook's named sheets.
package workbook

import (
	"fmt"
	"io"
	"os"

	"github.com/xuri/excelize/v2"

	"github.com/yourusername/calcutta-valuation/internal/config"
	"github.com/yourusername/calcutta-valuation/internal/metrics"
	"github.com/yourusername/calcutta-valuation/internal/models"
)

const (
	// bestFill is the background of a best-price cell.
	bestFill = "00B050"

	defaultSheet = "Sheet1"
)

// SheetNames names the sheets the pipeline owns.
type SheetNames struct {
	Probability string
	BestOdds    string
	Auction     string
}

// DefaultSheetNames returns the sheet names the workbook template uses.
func DefaultSheetNames() SheetNames {
	return SheetNames{
		Probability: "Probability Table",
		BestOdds:    "Best Odds",
		Auction:     "Auction Table",
	}
}

// SheetNamesFromConfig returns the configured sheet names.
func SheetNamesFromConfig(cfg config.WorkbookConfig) SheetNames {
	return SheetNames{
		Probability: cfg.ProbabilitySheet,
		BestOdds:    cfg.BestOddsSheet,
		Auction:     cfg.AuctionSheet,
	}
}

// Workbook is an open workbook. Writing a sheet replaces it entirely and
// leaves every other sheet alone.
type Workbook struct {
	file   *excelize.File
	sheets SheetNames
	fresh  bool
}

// New creates an empty workbook.
func New(sheets SheetNames) *Workbook {
	return &Workbook{file: excelize.NewFile(), sheets: sheets, fresh: true}
}

// Open opens the workbook at path, or starts an empty one if none exists.
func Open(path string, sheets SheetNames) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(sheets), nil
		}
		return nil, fmt.Errorf("opening workbook %s: %w", path, err)
	}
	return &Workbook{file: f, sheets: sheets}, nil
}

// Read opens a workbook from an uploaded stream.
func Read(r io.Reader, sheets SheetNames) (*Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("reading workbook: %w", err)
	}
	return &Workbook{file: f, sheets: sheets}, nil
}

// SaveAs writes the workbook to path.
func (w *Workbook) SaveAs(path string) error {
	if err := w.file.SaveAs(path); err != nil {
		return fmt.Errorf("saving workbook %s: %w", path, err)
	}
	return nil
}

// WriteTo streams the workbook as xlsx.
func (w *Workbook) WriteTo(out io.Writer) (int64, error) {
	return w.file.WriteTo(out)
}

// Close releases the workbook.
func (w *Workbook) Close() error {
	return w.file.Close()
}

// SheetList returns the sheet names in workbook order.
func (w *Workbook) SheetList() []string {
	return w.file.GetSheetList()
}

// Rows returns the cell values of a sheet.
func (w *Workbook) Rows(sheet string) ([][]string, error) {
	if idx, err := w.file.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, fmt.Errorf("%w: %s", models.ErrSheetNotFound, sheet)
	}
	return w.file.GetRows(sheet)
}

// replaceSheet deletes sheet if present and creates it empty.
func (w *Workbook) replaceSheet(sheet string) error {
	idx, err := w.file.GetSheetIndex(sheet)
	if err != nil {
		return fmt.Errorf("looking up sheet %s: %w", sheet, err)
	}

	// A workbook cannot lose its last sheet; park a placeholder meanwhile.
	const placeholder = "__replacing__"
	lone := idx >= 0 && len(w.file.GetSheetList()) == 1
	if lone {
		if _, err := w.file.NewSheet(placeholder); err != nil {
			return fmt.Errorf("creating placeholder sheet: %w", err)
		}
	}
	if idx >= 0 {
		if err := w.file.DeleteSheet(sheet); err != nil {
			return fmt.Errorf("deleting sheet %s: %w", sheet, err)
		}
	}
	if _, err := w.file.NewSheet(sheet); err != nil {
		return fmt.Errorf("creating sheet %s: %w", sheet, err)
	}
	if lone {
		if err := w.file.DeleteSheet(placeholder); err != nil {
			return fmt.Errorf("deleting placeholder sheet: %w", err)
		}
	}

	// A new workbook starts with an unused default sheet.
	if w.fresh && sheet != defaultSheet {
		if err := w.file.DeleteSheet(defaultSheet); err != nil {
			return fmt.Errorf("deleting default sheet: %w", err)
		}
		w.fresh = false
	}

	if idx, err = w.file.GetSheetIndex(sheet); err == nil && idx >= 0 {
		w.file.SetActiveSheet(idx)
	}
	return nil
}

func (w *Workbook) writeRow(sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return w.file.SetSheetRow(sheet, cell, &values)
}

func (w *Workbook) writeHeader(sheet string, header []string) error {
	values := make([]interface{}, len(header))
	for i, h := range header {
		values[i] = h
	}
	return w.writeRow(sheet, 1, values)
}

func cellValue(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

// WriteProbabilityTable replaces the Probability Table sheet. The entrant
// name is the second column, which CanonicalNames reads back.
func (w *Workbook) WriteProbabilityTable(table *models.ProbabilityTable) error {
	sheet := w.sheets.Probability
	if err := w.replaceSheet(sheet); err != nil {
		return err
	}
	if err := w.writeHeader(sheet, table.Header()); err != nil {
		return err
	}

	for r, row := range table.Rows {
		values := []interface{}{row.EventName, row.PlayerName}
		for _, c := range row.Consensus {
			values = append(values, c)
		}
		for _, p := range row.Probs {
			values = append(values, p)
		}
		if err := w.writeRow(sheet, r+2, values); err != nil {
			return fmt.Errorf("writing %s row %d: %w", sheet, r+2, err)
		}
	}

	metrics.RecordSheetWrite(sheet)
	return nil
}

// WriteBestOdds replaces the Best Odds sheet, filling best-price cells green.
func (w *Workbook) WriteBestOdds(table *models.BestOddsTable) error {
	sheet := w.sheets.BestOdds
	if err := w.replaceSheet(sheet); err != nil {
		return err
	}
	if err := w.writeHeader(sheet, table.Header()); err != nil {
		return err
	}

	style, err := w.file.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{bestFill}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("creating highlight style: %w", err)
	}

	const leading = 3 // event, market, player
	for r, row := range table.Rows {
		values := []interface{}{row.EventName, row.Market, row.PlayerName}
		for _, v := range row.Odds {
			values = append(values, cellValue(v))
		}
		if err := w.writeRow(sheet, r+2, values); err != nil {
			return fmt.Errorf("writing %s row %d: %w", sheet, r+2, err)
		}

		for c, best := range row.Best {
			if !best {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(leading+c+1, r+2)
			if err != nil {
				return err
			}
			if err := w.file.SetCellStyle(sheet, cell, cell, style); err != nil {
				return fmt.Errorf("highlighting %s!%s: %w", sheet, cell, err)
			}
		}
	}

	metrics.RecordSheetWrite(sheet)
	return nil
}

// WriteAuctionTable replaces the Auction Table sheet.
func (w *Workbook) WriteAuctionTable(rows []models.AuctionRow) error {
	sheet := w.sheets.Auction
	if err := w.replaceSheet(sheet); err != nil {
		return err
	}
	if err := w.writeHeader(sheet, models.AuctionHeader); err != nil {
		return err
	}

	for r, row := range rows {
		var matched interface{}
		if row.Matched {
			matched = row.MatchedName
		}
		values := []interface{}{
			row.Bid.Name,
			matched,
			row.Bid.Price.InexactFloat64(),
			row.Bid.Timestamp,
			row.Bid.Bidder,
			row.Bid.Bid.InexactFloat64(),
		}
		if err := w.writeRow(sheet, r+2, values); err != nil {
			return fmt.Errorf("writing %s row %d: %w", sheet, r+2, err)
		}
	}

	metrics.RecordSheetWrite(sheet)
	return nil
}

// CanonicalNames reads the entrant names from the Probability Table sheet.
func (w *Workbook) CanonicalNames() (models.CanonicalNameIndex, error) {
	rows, err := w.Rows(w.sheets.Probability)
	if err != nil {
		return nil, err
	}

	names := make(models.CanonicalNameIndex, 0, len(rows))
	for i, row := range rows {
		if i == 0 || len(row) < 2 || row[1] == "" {
			continue
		}
		names = append(names, row[1])
	}
	return names, nil
}

// UpdateFile opens the workbook at path, applies fn and saves it back.
// Nothing is saved if fn fails.
func UpdateFile(path string, sheets SheetNames, fn func(*Workbook) error) error {
	w, err := Open(path, sheets)
	if err != nil {
		return err
	}
	defer w.Close()

	if err := fn(w); err != nil {
		return err
	}
	return w.SaveAs(path)
}
