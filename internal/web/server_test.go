package web

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/yourusername/calcutta-valuation/internal/config"
	"github.com/yourusername/calcutta-valuation/internal/health"
	"github.com/yourusername/calcutta-valuation/internal/models"
	"github.com/yourusername/calcutta-valuation/internal/service"
	"github.com/yourusername/calcutta-valuation/internal/workbook"
)

const password = "letmein1"

type feed struct {
	tables map[string]*models.MarketTable
	calls  int
}

func (f *feed) FetchMarket(ctx context.Context, market, oddsFormat string) (*models.MarketTable, error) {
	f.calls++
	if t, ok := f.tables[market+":"+oddsFormat]; ok {
		return t, nil
	}
	return &models.MarketTable{Market: market, OddsFormat: oddsFormat}, nil
}

func (f *feed) Ping(ctx context.Context) error { return nil }

func (f *feed) Name() string { return "feed" }

func liveFeed() *feed {
	table := func(market, format string, values ...float64) *models.MarketTable {
		t := &models.MarketTable{Market: market, OddsFormat: format, Bookmakers: []string{"bet365"}}
		for i, name := range []string{"Woods, Tiger", "McIlroy, Rory"} {
			t.Quotes = append(t.Quotes, models.MarketQuote{
				EventName: "The Masters", PlayerName: name, Odds: []*float64{models.Float(values[i])},
			})
		}
		return t
	}
	return &feed{tables: map[string]*models.MarketTable{
		"win:percent":  table(models.MarketWin, models.OddsFormatPercent, 0.3, 0.2),
		"win:american": table(models.MarketWin, models.OddsFormatAmerican, 1200, 800),
	}}
}

func testConfig(t *testing.T) *config.Config {
	cfg := &config.Config{}
	cfg.Feed.ProbabilityMarkets = []string{"win", "top_5", "top_10", "top_20"}
	cfg.Feed.BestOddsMarkets = []string{"win"}
	cfg.Feed.UnitScalarMarkets = []string{"win", "frl"}
	cfg.Matching.Threshold = 80
	cfg.Matching.Limit = 2
	cfg.Workbook = config.WorkbookConfig{
		Path:             filepath.Join(t.TempDir(), "Auction Valuations v3.xlsx"),
		ProbabilitySheet: "Probability Table",
		BestOddsSheet:    "Best Odds",
		AuctionSheet:     "Auction Table",
	}
	cfg.Web.Password = password
	cfg.Web.MaxUploadMB = 4
	cfg.Metrics.Enabled = true
	cfg.Metrics.Path = "/metrics"
	return cfg
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func newTestServer(t *testing.T, src *feed) (*Server, *config.Config) {
	cfg := testConfig(t)
	pipeline := service.NewPipeline(cfg, src, quietLogger())
	checker := health.NewChecker(health.Config{ServiceName: "calcutta", Feed: src})
	checker.SetReady(true)
	return NewServer(cfg, pipeline, checker, quietLogger()), cfg
}

func multipartRequest(t *testing.T, path, pass, field, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("password", pass))
	if field != "" {
		fw, err := mw.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func bidExport(t *testing.T) []byte {
	return bidExportWith(t, nil)
}

// bidExportWith builds an export where Tiger Woods bid and Rory McIlroy's row
// carries roryTimestamp.
func bidExportWith(t *testing.T, roryTimestamp interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	rows := [][]interface{}{
		{"Name", "Price", "Timestamp", "Bidder", "Bid"},
		{"Tiger Woods", 1200, "2024-04-10 19:30:00", "alice", 1300},
		{"Rory McIlroy", 900, roryTimestamp, "bob", 950},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &r))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func readResponseWorkbook(t *testing.T, rec *httptest.ResponseRecorder) *workbook.Workbook {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	wb, err := workbook.Read(bytes.NewReader(rec.Body.Bytes()), workbook.DefaultSheetNames())
	require.NoError(t, err)
	t.Cleanup(func() { wb.Close() })
	return wb
}

func TestFormPage(t *testing.T) {
	s, _ := newTestServer(t, liveFeed())
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `action="/refresh"`)
	assert.Contains(t, rec.Body.String(), `action="/best-odds"`)
}

func TestWrongPasswordIsRejected(t *testing.T) {
	src := liveFeed()
	s, cfg := newTestServer(t, src)

	for _, path := range []string{"/refresh", "/best-odds"} {
		rec := serve(s, multipartRequest(t, path, "wrong", "bids", "bids.xlsx", bidExport(t)))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
		assert.Contains(t, rec.Body.String(), "Password incorrect")
	}
	assert.Zero(t, src.calls, "feed must not be touched before authentication")
	assert.NoFileExists(t, cfg.Workbook.Path)
}

func TestRefreshWorkbook(t *testing.T) {
	s, cfg := newTestServer(t, liveFeed())

	rec := serve(s, multipartRequest(t, "/refresh", password, "bids", "export.xlsx", bidExport(t)))
	wb := readResponseWorkbook(t, rec)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "Auction Valuations v3.xlsx")

	assert.ElementsMatch(t, []string{"Probability Table", "Best Odds", "Auction Table"}, wb.SheetList())

	auction, err := wb.Rows("Auction Table")
	require.NoError(t, err)
	require.Len(t, auction, 2, "bid without a timestamp must be dropped")
	assert.Equal(t, "Tiger Woods", auction[1][0])
	assert.Equal(t, "Woods, Tiger", auction[1][1])

	assert.FileExists(t, cfg.Workbook.Path)
	saved, err := workbook.Open(cfg.Workbook.Path, workbook.DefaultSheetNames())
	require.NoError(t, err)
	defer saved.Close()
	names, err := saved.CanonicalNames()
	require.NoError(t, err)
	assert.Equal(t, models.CanonicalNameIndex{"Woods, Tiger", "McIlroy, Rory"}, names)
}

func TestRefreshWorkbookDropsPlaceholderTimestamp(t *testing.T) {
	s, _ := newTestServer(t, liveFeed())

	rec := serve(s, multipartRequest(t, "/refresh", password, "bids", "export.xlsx", bidExportWith(t, "pending")))
	wb := readResponseWorkbook(t, rec)

	auction, err := wb.Rows("Auction Table")
	require.NoError(t, err)
	require.Len(t, auction, 2)
	assert.Equal(t, "Tiger Woods", auction[1][0])
}

func TestRefreshRejectsBadExport(t *testing.T) {
	s, _ := newTestServer(t, liveFeed())

	rec := serve(s, multipartRequest(t, "/refresh", password, "bids", "export.xlsx", []byte("not a workbook")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Bid export could not be read")
}

func TestRefreshRequiresFile(t *testing.T) {
	s, _ := newTestServer(t, liveFeed())

	rec := serve(s, multipartRequest(t, "/refresh", password, "", "", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func inProgressWorkbook(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetName("Sheet1", "My Bids"))
	require.NoError(t, f.SetCellValue("My Bids", "A1", "keep me"))
	_, err := f.NewSheet("Best Odds")
	require.NoError(t, err)
	require.NoError(t, f.SetCellValue("Best Odds", "A1", "stale"))
	require.NoError(t, f.SetCellValue("Best Odds", "A9", "stale"))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestUpdateBestOdds(t *testing.T) {
	s, cfg := newTestServer(t, liveFeed())

	rec := serve(s, multipartRequest(t, "/best-odds", password, "workbook", "in-progress.xlsx", inProgressWorkbook(t)))
	wb := readResponseWorkbook(t, rec)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "in-progress.xlsx")

	assert.ElementsMatch(t, []string{"My Bids", "Best Odds"}, wb.SheetList())

	kept, err := wb.Rows("My Bids")
	require.NoError(t, err)
	assert.Equal(t, "keep me", kept[0][0])

	best, err := wb.Rows("Best Odds")
	require.NoError(t, err)
	require.Len(t, best, 3)
	assert.Equal(t, []string{"event_name", "market", "player_name", "bet365"}, best[0])

	assert.NoFileExists(t, cfg.Workbook.Path, "best odds updates never touch the template")
}

func TestUpdateBestOddsNoData(t *testing.T) {
	s, _ := newTestServer(t, &feed{})

	rec := serve(s, multipartRequest(t, "/best-odds", password, "workbook", "in-progress.xlsx", inProgressWorkbook(t)))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestOperationalRoutes(t *testing.T) {
	s, _ := newTestServer(t, liveFeed())

	assert.Equal(t, http.StatusOK, serve(s, httptest.NewRequest(http.MethodGet, "/health", nil)).Code)
	assert.Equal(t, http.StatusOK, serve(s, httptest.NewRequest(http.MethodGet, "/ready", nil)).Code)
	assert.Equal(t, http.StatusOK, serve(s, httptest.NewRequest(http.MethodGet, "/metrics", nil)).Code)
}

func TestListenAndServeStopsOnCancel(t *testing.T) {
	s, cfg := newTestServer(t, liveFeed())
	cfg.Web.Port = 0

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
