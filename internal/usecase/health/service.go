package health

import (
	"context"
	"errors"

	"github.com/kailas-cloud/canonic/internal/domain"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
	// CheckMissing indicates no index has been built yet. Not a failure.
	CheckMissing CheckResult = "missing"
)

// Report aggregates health check results.
type Report struct {
	Status  Status
	Checks  map[string]CheckResult
	Entries int
}

// Service coordinates health checks.
type Service struct {
	cache     CachePinger
	embedding EmbeddingChecker
	index     IndexSource
}

// New creates a Service. cache and index can be nil.
func New(cache CachePinger, embedding EmbeddingChecker, index IndexSource) *Service {
	return &Service{cache: cache, embedding: embedding, index: index}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)
	var entries int

	if s.cache != nil {
		checks["cache"] = result(s.cache.Ping(ctx))
	}

	if s.embedding != nil {
		checks["embedding"] = result(s.embedding.HealthCheck(ctx))
	}

	if s.index != nil {
		idx, err := s.index.Get(ctx)
		switch {
		case errors.Is(err, domain.ErrIndexNotFound):
			checks["index"] = CheckMissing
		case err != nil:
			checks["index"] = CheckError
		default:
			checks["index"] = CheckOK
			entries = idx.Len()
		}
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks, Entries: entries}
}

func result(err error) CheckResult {
	if err != nil {
		return CheckError
	}
	return CheckOK
}
