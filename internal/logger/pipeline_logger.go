// Package logger provides pipeline run logging.
package logger

import (
	"github.com/sirupsen/logrus"
)

// PipelineLogger records the steps of a valuation pipeline run.
type PipelineLogger struct {
	*logrus.Entry
}

// NewPipelineLogger creates a new pipeline logger.
func NewPipelineLogger(baseLogger *logrus.Logger) *PipelineLogger {
	return &PipelineLogger{
		Entry: baseLogger.WithField("component", "pipeline"),
	}
}

// WithRun returns a logger scoped to one pipeline run.
func (pl *PipelineLogger) WithRun(runID, pipeline string) *PipelineLogger {
	return &PipelineLogger{
		Entry: pl.WithFields(logrus.Fields{
			"run_id":   runID,
			"pipeline": pipeline,
		}),
	}
}

// LogMarketFetched logs a market feed that returned odds.
func (pl *PipelineLogger) LogMarketFetched(market, oddsFormat string, rows, bookmakers int) {
	pl.WithFields(logrus.Fields{
		"market":      market,
		"odds_format": oddsFormat,
		"rows":        rows,
		"bookmakers":  bookmakers,
	}).Debug("Market fetched")
}

// LogMarketSkipped logs a market whose feed carried no odds.
func (pl *PipelineLogger) LogMarketSkipped(market string, rows int) {
	pl.WithFields(logrus.Fields{
		"market": market,
		"rows":   rows,
	}).Info("Market skipped, no odds available")
}

// LogValidationIssues logs problems found in a fetched market.
func (pl *PipelineLogger) LogValidationIssues(market string, issues []string) {
	pl.WithFields(logrus.Fields{
		"market": market,
		"issues": issues,
		"count":  len(issues),
	}).Warn("Market failed validation")
}

// LogMarketFilled logs a market backfilled with the missing-market value.
func (pl *PipelineLogger) LogMarketFilled(market string, fill float64) {
	pl.WithFields(logrus.Fields{
		"market": market,
		"fill":   fill,
	}).Warn("Market missing from feed, consensus backfilled")
}

// LogReconciliation logs the outcome of matching bid names.
func (pl *PipelineLogger) LogReconciliation(bids, dropped, matched, unmatched, rows int) {
	pl.WithFields(logrus.Fields{
		"bids":      bids,
		"dropped":   dropped,
		"matched":   matched,
		"unmatched": unmatched,
		"rows":      rows,
	}).Info("Bids reconciled")
}

// LogSheetWritten logs a sheet replaced in the workbook.
func (pl *PipelineLogger) LogSheetWritten(sheet string, rows int) {
	pl.WithFields(logrus.Fields{
		"sheet": sheet,
		"rows":  rows,
	}).Info("Sheet written")
}
