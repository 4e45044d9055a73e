package models

import "errors"

// Custom errors
var (
	ErrDataUnavailable  = errors.New("no data available")
	ErrParse            = errors.New("parse error")
	ErrNoOddsColumns    = errors.New("no bookmaker odds columns")
	ErrInvalidBidExport = errors.New("invalid bid export")
	ErrSheetNotFound    = errors.New("sheet not found")
)
