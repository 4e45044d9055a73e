package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/calcutta-valuation/internal/config"
	"github.com/yourusername/calcutta-valuation/internal/datasource"
	"github.com/yourusername/calcutta-valuation/internal/logger"
	"github.com/yourusername/calcutta-valuation/internal/metrics"
	"github.com/yourusername/calcutta-valuation/internal/models"
)

// Pipeline names used in logs and metrics.
const (
	PipelineProbability = "probability"
	PipelineBestOdds    = "best_odds"
	PipelineRefresh     = "refresh"
)

// WorkbookStore persists the pipeline's tables into named sheets.
type WorkbookStore interface {
	WriteProbabilityTable(table *models.ProbabilityTable) error
	WriteBestOdds(table *models.BestOddsTable) error
	WriteAuctionTable(rows []models.AuctionRow) error
	CanonicalNames() (models.CanonicalNameIndex, error)
}

// Pipeline fetches market odds, derives the probability and best-odds tables,
// and reconciles auction bids. Fetches run one market at a time.
type Pipeline struct {
	source             datasource.OddsSource
	normalizer         *OddsNormalizer
	distributor        *ProbabilityDistributor
	aggregator         *BestOddsAggregator
	reconciler         *NameReconciler
	validator          *DataValidator
	probabilityMarkets []string
	bestOddsMarkets    []string
	logger             *logger.PipelineLogger
}

// NewPipeline creates a pipeline from configuration.
func NewPipeline(cfg *config.Config, source datasource.OddsSource, log *logrus.Logger) *Pipeline {
	if log == nil {
		log = logrus.New()
	}
	return &Pipeline{
		source:             source,
		normalizer:         NewOddsNormalizer(cfg.Feed.UnitScalarMarkets, cfg.Feed.ConsensusExclusions),
		distributor:        NewProbabilityDistributor(cfg.Feed.ProbabilityMarkets, cfg.Feed.MissingMarketFill),
		aggregator:         NewBestOddsAggregator(cfg.Feed.DropColumns),
		reconciler:         NewNameReconciler(TokenSortScorer{}, cfg.Matching.Threshold, cfg.Matching.Limit),
		validator:          NewDataValidator(),
		probabilityMarkets: cfg.Feed.ProbabilityMarkets,
		bestOddsMarkets:    cfg.Feed.BestOddsMarkets,
		logger:             logger.NewPipelineLogger(log),
	}
}

// WithScorer replaces the name similarity scorer.
func (p *Pipeline) WithScorer(scorer Scorer) *Pipeline {
	p.reconciler.scorer = scorer
	return p
}

func (p *Pipeline) run(pipeline string, fn func(*logger.PipelineLogger) error) error {
	start := time.Now()
	runLog := p.logger.WithRun(uuid.NewString(), pipeline)
	runLog.Debug("Pipeline run started")

	err := fn(runLog)

	metrics.RecordPipelineRun(pipeline, err, time.Since(start).Seconds())
	if err != nil {
		runLog.WithError(err).Error("Pipeline run failed")
		return err
	}
	runLog.WithField("duration", time.Since(start).String()).Info("Pipeline run completed")
	return nil
}

// fetchMarkets requests each market in order. Empty markets are logged and
// returned as-is; callers decide how to treat them.
func (p *Pipeline) fetchMarkets(ctx context.Context, runLog *logger.PipelineLogger, markets []string, oddsFormat string) ([]*models.MarketTable, error) {
	tables := make([]*models.MarketTable, 0, len(markets))
	for _, market := range markets {
		table, err := p.source.FetchMarket(ctx, market, oddsFormat)
		if err != nil {
			return nil, fmt.Errorf("fetching %s odds: %w", market, err)
		}
		if table.IsEmpty() {
			metrics.RecordMarketSkipped(market)
			runLog.LogMarketSkipped(market, len(table.Quotes))
		} else {
			runLog.LogMarketFetched(market, oddsFormat, len(table.Quotes), len(table.Bookmakers))
			if issues := p.validator.ValidateTable(table); len(issues) > 0 {
				runLog.LogValidationIssues(market, issues)
			}
		}
		tables = append(tables, table)
	}
	return tables, nil
}

// BuildProbabilityTable fetches the probability markets in percent format and
// derives the finish-position table.
func (p *Pipeline) BuildProbabilityTable(ctx context.Context) (*models.ProbabilityTable, error) {
	var table *models.ProbabilityTable
	err := p.run(PipelineProbability, func(runLog *logger.PipelineLogger) error {
		var err error
		table, err = p.buildProbabilityTable(ctx, runLog)
		return err
	})
	return table, err
}

func (p *Pipeline) buildProbabilityTable(ctx context.Context, runLog *logger.PipelineLogger) (*models.ProbabilityTable, error) {
	tables, err := p.fetchMarkets(ctx, runLog, p.probabilityMarkets, models.OddsFormatPercent)
	if err != nil {
		return nil, err
	}

	byMarket := make(map[string][]models.ConsensusProbability)
	for _, t := range tables {
		if t.IsEmpty() {
			continue
		}
		normalized, err := p.normalizer.Normalize(t)
		if err != nil {
			return nil, fmt.Errorf("normalizing %s: %w", t.Market, err)
		}
		byMarket[t.Market] = normalized.Consensus
	}

	if len(byMarket) == 0 {
		return nil, fmt.Errorf("%w: no probability market returned odds", models.ErrDataUnavailable)
	}

	for _, market := range p.distributor.MissingMarkets(byMarket) {
		runLog.LogMarketFilled(market, p.distributor.fill)
	}

	return p.distributor.Distribute(byMarket), nil
}

// BuildBestOdds fetches the best-odds markets in american format and stacks them.
func (p *Pipeline) BuildBestOdds(ctx context.Context) (*models.BestOddsTable, error) {
	var table *models.BestOddsTable
	err := p.run(PipelineBestOdds, func(runLog *logger.PipelineLogger) error {
		tables, err := p.fetchMarkets(ctx, runLog, p.bestOddsMarkets, models.OddsFormatAmerican)
		if err != nil {
			return err
		}
		table, err = p.aggregator.Aggregate(tables)
		return err
	})
	return table, err
}

// ReconcileAuction matches bid names against the canonical roster.
func (p *Pipeline) ReconcileAuction(bids []models.BidRecord, canonical models.CanonicalNameIndex) []models.AuctionRow {
	rows, stats := p.reconciler.Reconcile(bids, canonical)
	metrics.RecordBids(stats.Matched, stats.Unmatched, stats.Dropped)
	p.logger.LogReconciliation(stats.Bids, stats.Dropped, stats.Matched, stats.Unmatched, stats.Rows)
	return rows
}

// RefreshWorkbook writes the Probability Table, Best Odds and Auction Table
// sheets in that order. The canonical roster is read back from the freshly
// written Probability Table. A failure stops the run; sheets already written
// stay written.
func (p *Pipeline) RefreshWorkbook(ctx context.Context, store WorkbookStore, bids []models.BidRecord) error {
	return p.run(PipelineRefresh, func(runLog *logger.PipelineLogger) error {
		probs, err := p.buildProbabilityTable(ctx, runLog)
		if err != nil {
			return err
		}
		if err := store.WriteProbabilityTable(probs); err != nil {
			return fmt.Errorf("writing probability table: %w", err)
		}
		runLog.LogSheetWritten("probability", len(probs.Rows))

		tables, err := p.fetchMarkets(ctx, runLog, p.bestOddsMarkets, models.OddsFormatAmerican)
		if err != nil {
			return err
		}
		best, err := p.aggregator.Aggregate(tables)
		if err != nil {
			return err
		}
		if err := store.WriteBestOdds(best); err != nil {
			return fmt.Errorf("writing best odds: %w", err)
		}
		runLog.LogSheetWritten("best_odds", len(best.Rows))

		canonical, err := store.CanonicalNames()
		if err != nil {
			return fmt.Errorf("reading canonical names: %w", err)
		}
		rows := p.ReconcileAuction(bids, canonical)
		if err := store.WriteAuctionTable(rows); err != nil {
			return fmt.Errorf("writing auction table: %w", err)
		}
		runLog.LogSheetWritten("auction", len(rows))
		return nil
	})
}

// RefreshBestOdds replaces only the Best Odds sheet of an in-progress workbook.
func (p *Pipeline) RefreshBestOdds(ctx context.Context, store WorkbookStore) error {
	best, err := p.BuildBestOdds(ctx)
	if err != nil {
		return err
	}
	if err := store.WriteBestOdds(best); err != nil {
		return fmt.Errorf("writing best odds: %w", err)
	}
	p.logger.LogSheetWritten("best_odds", len(best.Rows))
	return nil
}

// IsDataUnavailable reports whether err means the feed had nothing to offer.
func IsDataUnavailable(err error) bool {
	return errors.Is(err, models.ErrDataUnavailable)
}
