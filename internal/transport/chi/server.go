package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/canonic/internal/domain"
	"github.com/kailas-cloud/canonic/internal/logger"
	cleaningu "github.com/kailas-cloud/canonic/internal/usecase/cleaning"
	healthuc "github.com/kailas-cloud/canonic/internal/usecase/health"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Config holds HTTP-level limits and locations.
type Config struct {
	MaxUploadBytes int64
	OutputDir      string
	UploadDir      string // temp dir for uploads, "" means os.TempDir()
}

// Server serves the canonic HTTP API.
type Server struct {
	indexer       Indexer
	cleaner       Cleaner
	health        HealthChecker
	cfg           Config
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(indexer Indexer, cleaner Cleaner, health HealthChecker, cfg Config, logger *zap.Logger) *Server {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 32 << 20
	}
	s := &Server{
		indexer: indexer,
		cleaner: cleaner,
		health:  health,
		cfg:     cfg,
		logger:  logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidInput, http.StatusBadRequest, CodeInvalidInput),
		sentinelHandler(domain.ErrIndexNotFound, http.StatusNotFound, CodeIndexNotFound),
		sentinelHandler(domain.ErrIndexFormatOutdated, http.StatusConflict, CodeIndexOutdated),
		sentinelHandler(domain.ErrIndexCorrupt, http.StatusConflict, CodeIndexOutdated),
		sentinelHandler(domain.ErrVectorDimMismatch, http.StatusConflict, CodeIndexOutdated),
		sentinelHandler(domain.ErrIndexModelMismatch, http.StatusConflict, CodeIndexOutdated),
		sentinelHandler(domain.ErrModelUnavailable, http.StatusServiceUnavailable, CodeModelUnavailable),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, CodeProviderError),
	}
	return s
}

// Register mounts the API routes on r.
func (s *Server) Register(r chi.Router) {
	r.Post("/v1/index", s.BuildIndex)
	r.Get("/v1/index", s.DownloadIndex)
	r.Post("/v1/clean", s.Clean)
	r.Get("/v1/outputs/{name}", s.DownloadOutput)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// BuildIndex handles POST /v1/index (multipart field "catalog").
func (s *Server) BuildIndex(w http.ResponseWriter, r *http.Request) {
	if !s.parseForm(w, r) {
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck // best-effort temp cleanup

	path, cleanup, err := s.saveUpload(r, "catalog")
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	defer cleanup()

	res, err := s.indexer.BuildFromFile(r.Context(), path)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, IndexResponse{
		Entries:  res.Entries,
		Model:    res.Model,
		Status:   res.Status,
		Download: "/v1/index",
	})
}

// DownloadIndex handles GET /v1/index. It streams the persisted artifact so it
// can be supplied back as the "index" field of POST /v1/clean.
func (s *Server) DownloadIndex(w http.ResponseWriter, r *http.Request) {
	path := s.indexer.ArtifactPath()
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		s.handleDomainError(w, r, fmt.Errorf("artifact %s: %w", path, domain.ErrIndexNotFound))
		return
	}

	name := filepath.Base(path)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Type", "application/octet-stream")
	http.ServeFile(w, r, path)
}

// Clean handles POST /v1/clean (multipart "data", "column", "threshold", optional "index").
func (s *Server) Clean(w http.ResponseWriter, r *http.Request) {
	if !s.parseForm(w, r) {
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck // best-effort temp cleanup

	var threshold float64
	if raw := strings.TrimSpace(r.FormValue("threshold")); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			writeError(w, http.StatusBadRequest, CodeInvalidInput, "threshold must be a number")
			return
		}
		threshold = v
	}

	dataPath, cleanupData, err := s.saveUpload(r, "data")
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	defer cleanupData()

	req := cleaningu.Request{
		DataPath:  dataPath,
		DataName:  uploadName(r, "data"),
		Column:    r.FormValue("column"),
		Threshold: threshold,
	}

	if len(r.MultipartForm.File["index"]) > 0 {
		indexPath, cleanupIndex, err := s.saveUpload(r, "index")
		if err != nil {
			s.handleDomainError(w, r, err)
			return
		}
		defer cleanupIndex()
		req.IndexPath = indexPath
	}

	res, err := s.cleaner.Clean(r.Context(), req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, CleanResponse{
		RunID:    res.RunID,
		Status:   res.Status,
		Column:   res.Column,
		Output:   "/v1/outputs/" + filepath.Base(res.OutputPath),
		Distinct: res.Distinct,
		Changes:  changesToDTO(res.Changes),
	})
}

// DownloadOutput handles GET /v1/outputs/{name}.
func (s *Server) DownloadOutput(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") || filepath.Ext(name) != ".xlsx" {
		writeError(w, http.StatusNotFound, CodeNotFound, "output not found")
		return
	}

	path := filepath.Join(s.cfg.OutputDir, name)
	if _, err := os.Stat(path); err != nil {
		writeError(w, http.StatusNotFound, CodeNotFound, "output not found")
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	http.ServeFile(w, r, path)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status:  string(report.Status),
		Checks:  checks,
		Entries: report.Entries,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func (s *Server) parseForm(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, CodeBadRequest,
				fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit))
			return false
		}
		writeError(w, http.StatusBadRequest, CodeBadRequest, "expected a multipart/form-data body")
		return false
	}
	return true
}

// saveUpload copies a multipart file to a temp file that keeps the original
// extension, since readers dispatch on it.
func (s *Server) saveUpload(r *http.Request, field string) (string, func(), error) {
	src, hdr, err := r.FormFile(field)
	if err != nil {
		return "", nil, fmt.Errorf("form field %q: %w", field, domain.ErrMissingInput)
	}
	defer src.Close()

	ext := strings.ToLower(filepath.Ext(hdr.Filename))
	dst, err := os.CreateTemp(s.cfg.UploadDir, "canonic-upload-*"+ext)
	if err != nil {
		return "", nil, fmt.Errorf("create upload file: %w", err)
	}
	cleanup := func() { _ = os.Remove(dst.Name()) }

	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		cleanup()
		return "", nil, fmt.Errorf("store upload: %w", err)
	}
	if err := dst.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("store upload: %w", err)
	}
	return dst.Name(), cleanup, nil
}

func uploadName(r *http.Request, field string) string {
	if r.MultipartForm == nil {
		return ""
	}
	if files := r.MultipartForm.File[field]; len(files) > 0 {
		return filepath.Base(files[0].Filename)
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// handleDomainError maps err to a status code; the message is the user-facing status line.
func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context(), s.logger)
	log.Warn("domain error", zap.Error(err))
	msg := cleaningu.StatusFor(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
