// Package web serves the password-gated workbook upload/download form.
package web

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"html/template"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/calcutta-valuation/internal/config"
	"github.com/yourusername/calcutta-valuation/internal/health"
	"github.com/yourusername/calcutta-valuation/internal/metrics"
	"github.com/yourusername/calcutta-valuation/internal/models"
	"github.com/yourusername/calcutta-valuation/internal/service"
	"github.com/yourusername/calcutta-valuation/internal/workbook"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Refresher runs the workbook pipelines.
type Refresher interface {
	RefreshWorkbook(ctx context.Context, store service.WorkbookStore, bids []models.BidRecord) error
	RefreshBestOdds(ctx context.Context, store service.WorkbookStore) error
}

// Server is the upload/download form.
type Server struct {
	cfg      *config.Config
	pipeline Refresher
	checker  *health.Checker
	logger   *logrus.Entry
	sheets   workbook.SheetNames
	form     *template.Template

	// guards the template workbook on disk
	fileMu sync.Mutex
}

// NewServer creates the form server. checker may be nil.
func NewServer(cfg *config.Config, pipeline Refresher, checker *health.Checker, log *logrus.Logger) *Server {
	if log == nil {
		log = logrus.New()
	}
	return &Server{
		cfg:      cfg,
		pipeline: pipeline,
		checker:  checker,
		logger:   log.WithField("component", "web"),
		sheets:   workbook.SheetNamesFromConfig(cfg.Workbook),
		form:     template.Must(template.New("form").Parse(formHTML)),
	}
}

// Router builds the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(chimiddleware.Recoverer)

	r.Get("/", s.handleForm)
	r.Post("/refresh", s.handleRefresh)
	r.Post("/best-odds", s.handleBestOdds)

	if s.checker != nil {
		s.checker.Register(r)
	}
	if s.cfg.Metrics.Enabled {
		path := s.cfg.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, metrics.Handler())
	}

	return r
}

// ListenAndServe serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Web.Port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", srv.Addr).Info("Web server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("web server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Web server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func requestLogger(log *logrus.Entry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.WithFields(logrus.Fields{
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     ww.Status(),
				"bytes":      ww.BytesWritten(),
				"duration":   time.Since(start).String(),
				"request_id": chimiddleware.GetReqID(r.Context()),
			}).Debug("Request served")
		})
	}
}

type formData struct {
	Error string
}

func (s *Server) renderForm(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.form.Execute(w, formData{Error: msg}); err != nil {
		s.logger.WithError(err).Error("Failed to render form")
	}
}

func (s *Server) handleForm(w http.ResponseWriter, r *http.Request) {
	s.renderForm(w, http.StatusOK, "")
}

// authorize parses the multipart form and checks the password field.
func (s *Server) authorize(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes())
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes()); err != nil {
		s.renderForm(w, http.StatusBadRequest, "Upload could not be read")
		return false
	}

	got := []byte(r.FormValue("password"))
	want := []byte(s.cfg.Web.Password)
	if subtle.ConstantTimeCompare(got, want) != 1 {
		s.logger.WithField("path", r.URL.Path).Warn("Rejected upload with wrong password")
		s.renderForm(w, http.StatusUnauthorized, "Password incorrect")
		return false
	}
	return true
}

func (s *Server) upload(w http.ResponseWriter, r *http.Request, field string) (multipart.File, *multipart.FileHeader, bool) {
	file, header, err := r.FormFile(field)
	if err != nil {
		s.renderForm(w, http.StatusBadRequest, fmt.Sprintf("Choose an .xlsx file to upload (%s)", field))
		return nil, nil, false
	}
	return file, header, true
}

// handleRefresh rebuilds every pipeline sheet in the template workbook from
// an uploaded bid export, saves it and returns it as a download. If the run
// fails, sheets it already replaced exist only in memory; the file on disk is
// left as it was.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(w, r) {
		return
	}
	file, _, ok := s.upload(w, r, "bids")
	if !ok {
		return
	}
	defer file.Close()

	bids, err := workbook.ReadBidExport(file)
	if err != nil {
		s.fail(w, err)
		return
	}

	s.fileMu.Lock()
	defer s.fileMu.Unlock()

	path := s.cfg.Workbook.Path
	wb, err := workbook.Open(path, s.sheets)
	if err != nil {
		s.fail(w, err)
		return
	}
	defer wb.Close()

	if err := s.pipeline.RefreshWorkbook(r.Context(), wb, bids); err != nil {
		s.fail(w, err)
		return
	}
	if err := wb.SaveAs(path); err != nil {
		s.fail(w, err)
		return
	}

	s.download(w, wb, filepath.Base(path))
}

// handleBestOdds replaces the Best Odds sheet of an uploaded workbook and
// returns the same workbook.
func (s *Server) handleBestOdds(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(w, r) {
		return
	}
	file, header, ok := s.upload(w, r, "workbook")
	if !ok {
		return
	}
	defer file.Close()

	wb, err := workbook.Read(file, s.sheets)
	if err != nil {
		s.renderForm(w, http.StatusBadRequest, "Uploaded file is not a valid workbook")
		return
	}
	defer wb.Close()

	if err := s.pipeline.RefreshBestOdds(r.Context(), wb); err != nil {
		s.fail(w, err)
		return
	}

	s.download(w, wb, filepath.Base(header.Filename))
}

func (s *Server) download(w http.ResponseWriter, wb io.WriterTo, name string) {
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	if _, err := wb.WriteTo(w); err != nil {
		s.logger.WithError(err).Error("Failed to stream workbook")
	}
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	msg := "Workbook refresh failed"
	switch {
	case errors.Is(err, models.ErrInvalidBidExport):
		status, msg = http.StatusBadRequest, "Bid export could not be read"
	case service.IsDataUnavailable(err):
		status, msg = http.StatusServiceUnavailable, "No odds are available from the feed right now"
	}

	s.logger.WithError(err).WithField("status", status).Error("Request failed")
	s.renderForm(w, status, msg)
}
