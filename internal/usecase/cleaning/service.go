// Package cleaning runs one end-to-end standardisation pass over a dataset.
package cleaning

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/canonic/internal/domain"
	domidx "github.com/kailas-cloud/canonic/internal/domain/index"
	"github.com/kailas-cloud/canonic/internal/domain/match"
	"github.com/kailas-cloud/canonic/internal/domain/table"
	"github.com/kailas-cloud/canonic/internal/logger"
	"github.com/kailas-cloud/canonic/internal/metrics"
)

// FallbackColumn is tried before the first column when the requested one is absent.
const FallbackColumn = "Search_Variant"

// Options holds run defaults and limits.
type Options struct {
	Threshold      float64 // used when a request leaves it zero
	MinThreshold   float64
	MaxThreshold   float64
	ColumnFallback bool
	OutputDir      string
}

// Request describes one cleaning run.
type Request struct {
	DataPath  string
	DataName  string // original file name, used for the output name; defaults to DataPath
	Column    string
	Threshold float64
	IndexPath string // optional explicit index artifact
}

// Result is the outcome of a successful run.
type Result struct {
	RunID      string
	OutputPath string
	Column     string
	Changes    []match.Change
	Distinct   int
	Status     string
}

// Service orchestrates read, match, apply and export.
type Service struct {
	index    IndexSource
	matcher  Matcher
	reporter Reporter
	read     Reader
	opts     Options
	logger   *zap.Logger
	newID    func() string
}

// New creates a cleaning service.
func New(index IndexSource, matcher Matcher, reporter Reporter, read Reader, opts Options, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		index:    index,
		matcher:  matcher,
		reporter: reporter,
		read:     read,
		opts:     opts,
		logger:   logger,
		newID:    uuid.NewString,
	}
}

// Clean runs one pass. No output file is written unless every earlier step succeeds.
func (s *Service) Clean(ctx context.Context, req Request) (Result, error) {
	start := time.Now()
	runID := s.newID()
	log := logger.FromContext(ctx, s.logger).With(zap.String("run_id", runID))

	res, err := s.run(ctx, runID, req)

	metrics.RunsTotal.WithLabelValues(outcome(err)).Inc()
	metrics.RunDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		log.Warn("Cleaning run failed",
			zap.String("data", req.DataPath),
			zap.String("column", req.Column),
			zap.Error(err),
		)
		return Result{}, err
	}

	log.Info("Cleaning run completed",
		zap.String("data", req.DataPath),
		zap.String("column", res.Column),
		zap.Int("distinct", res.Distinct),
		zap.Int("changes", len(res.Changes)),
		zap.String("output", res.OutputPath),
		zap.Duration("duration", time.Since(start)),
	)
	return res, nil
}

func (s *Service) run(ctx context.Context, runID string, req Request) (Result, error) {
	threshold, err := s.threshold(req)
	if err != nil {
		return Result{}, err
	}
	if strings.TrimSpace(req.DataPath) == "" {
		return Result{}, fmt.Errorf("data file: %w", domain.ErrMissingInput)
	}

	idx, err := s.resolveIndex(ctx, req.IndexPath)
	if err != nil {
		return Result{}, err
	}

	data, err := s.read(req.DataPath)
	if err != nil {
		return Result{}, fmt.Errorf("read data: %w", err)
	}

	column, fellBack, err := s.resolveColumn(data, req.Column)
	if err != nil {
		return Result{}, err
	}

	cells, err := data.Column(column)
	if err != nil {
		return Result{}, fmt.Errorf("read column: %w", err)
	}
	queries := table.Distinct(cells)

	matched, err := s.matcher.Match(ctx, idx, queries, threshold)
	if err != nil {
		return Result{}, fmt.Errorf("match: %w", err)
	}

	augmented, err := s.reporter.Apply(data, column, matched.Resolutions)
	if err != nil {
		return Result{}, err
	}

	name := req.DataName
	if name == "" {
		name = filepath.Base(req.DataPath)
	}
	out, err := s.reporter.Export(ctx, augmented, s.opts.OutputDir, name, runID)
	if err != nil {
		return Result{}, err
	}

	status := fmt.Sprintf("Done. %d values standardised.", len(matched.Changes))
	if fellBack {
		status += fmt.Sprintf(" (used column '%s')", column)
	}

	return Result{
		RunID:      runID,
		OutputPath: out,
		Column:     column,
		Changes:    matched.Changes,
		Distinct:   len(queries),
		Status:     status,
	}, nil
}

func (s *Service) threshold(req Request) (float64, error) {
	t := req.Threshold
	if t == 0 {
		t = s.opts.Threshold
	}
	if math.IsNaN(t) || t < s.opts.MinThreshold || t > s.opts.MaxThreshold {
		return 0, fmt.Errorf("threshold %v outside [%v, %v]: %w",
			t, s.opts.MinThreshold, s.opts.MaxThreshold, domain.ErrInvalidThreshold)
	}
	return t, nil
}

func (s *Service) resolveIndex(ctx context.Context, path string) (domidx.Index, error) {
	if path != "" {
		idx, err := s.index.Load(ctx, path)
		if err != nil {
			return domidx.Index{}, fmt.Errorf("supplied index: %w", err)
		}
		return idx, nil
	}
	idx, err := s.index.Get(ctx)
	if err != nil {
		return domidx.Index{}, fmt.Errorf("default index: %w", err)
	}
	return idx, nil
}

// resolveColumn returns the column to clean and whether a fallback was used.
func (s *Service) resolveColumn(t table.Table, requested string) (string, bool, error) {
	if t.HasColumn(requested) {
		return requested, false, nil
	}
	if !s.opts.ColumnFallback || t.Width() == 0 {
		return "", false, fmt.Errorf("%q not in %v: %w", requested, t.Columns(), domain.ErrColumnNotFound)
	}
	if t.HasColumn(FallbackColumn) {
		return FallbackColumn, true, nil
	}
	return t.Columns()[0], true, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case domain.IsInputError(err):
		return "input_error"
	case domain.IsIndexError(err):
		return "index_error"
	default:
		return "system_error"
	}
}

// StatusFor renders a user-facing status line for a failed run.
func StatusFor(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, domain.ErrModelUnavailable):
		return "System error: no embedding model could be loaded."
	case errors.Is(err, domain.ErrIndexNotFound):
		return "No index found. Build one from a catalog first."
	case errors.Is(err, domain.ErrIndexFormatOutdated):
		return "Index format outdated. Rebuild it from the catalog."
	case errors.Is(err, domain.ErrIndexCorrupt):
		return "Index is invalid. Rebuild it from the catalog."
	case errors.Is(err, domain.ErrVectorDimMismatch),
		errors.Is(err, domain.ErrIndexModelMismatch):
		return "Index was built with a different embedding model. Rebuild it from the catalog."
	case errors.Is(err, domain.ErrMissingInput):
		return "Missing input file."
	case errors.Is(err, domain.ErrColumnNotFound):
		return "Column not found in your file."
	case errors.Is(err, domain.ErrInvalidThreshold):
		return "Threshold out of range."
	case errors.Is(err, domain.ErrUnsupportedFormat),
		errors.Is(err, domain.ErrUnreadableInput),
		errors.Is(err, domain.ErrEmptyInput):
		return "Error reading your file. Use Excel or CSV."
	case errors.Is(err, domain.ErrEmbeddingProviderError):
		return "Embedding provider error. Try again later."
	default:
		return "Error: " + err.Error()
	}
}
