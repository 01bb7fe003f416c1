package chi

import (
	"github.com/kailas-cloud/canonic/internal/domain/match"
)

// ErrorCode is a machine-readable error class.
type ErrorCode string

// Error codes returned in ErrorResponse.
const (
	CodeBadRequest       ErrorCode = "bad_request"
	CodeUnauthorized     ErrorCode = "unauthorized"
	CodeInvalidInput     ErrorCode = "invalid_input"
	CodeIndexNotFound    ErrorCode = "index_not_found"
	CodeIndexOutdated    ErrorCode = "index_outdated"
	CodeModelUnavailable ErrorCode = "model_unavailable"
	CodeProviderError    ErrorCode = "embedding_provider_error"
	CodeNotFound         ErrorCode = "not_found"
	CodeInternalError    ErrorCode = "internal_error"
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// IndexResponse is returned by POST /v1/index.
type IndexResponse struct {
	Entries  int    `json:"entries"`
	Model    string `json:"model"`
	Status   string `json:"status"`
	Download string `json:"download"`
}

// ChangeItem is one change log row.
type ChangeItem struct {
	Original       string  `json:"original"`
	MatchedVariant string  `json:"matched_variant"`
	Resolved       string  `json:"resolved"`
	Confidence     float64 `json:"confidence"`
	ConfidenceText string  `json:"confidence_text"`
}

// CleanResponse is returned by POST /v1/clean.
type CleanResponse struct {
	RunID    string       `json:"run_id"`
	Status   string       `json:"status"`
	Column   string       `json:"column"`
	Output   string       `json:"output"`
	Distinct int          `json:"distinct"`
	Changes  []ChangeItem `json:"changes"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status  string            `json:"status"`
	Checks  map[string]string `json:"checks"`
	Entries int               `json:"index_entries"`
}

func changesToDTO(changes []match.Change) []ChangeItem {
	items := make([]ChangeItem, len(changes))
	for i, c := range changes {
		items[i] = ChangeItem{
			Original:       c.Original,
			MatchedVariant: c.MatchedVariant,
			Resolved:       c.Resolved,
			Confidence:     c.Confidence,
			ConfidenceText: c.ConfidenceText(),
		}
	}
	return items
}
