// Package match holds the outcome of resolving query strings against a catalog index.
package match

import "strconv"

// Change records one non-identity substitution.
type Change struct {
	Original       string
	MatchedVariant string
	Resolved       string
	Confidence     float64
}

// ConfidenceText renders the confidence with two decimals, as shown in change logs.
func (c Change) ConfidenceText() string {
	return strconv.FormatFloat(c.Confidence, 'f', 2, 64)
}

// Outcome classifies how a single query was resolved.
type Outcome string

const (
	// Substituted means the query matched and resolved to a different string.
	Substituted Outcome = "substituted"
	// Confirmed means the query matched and already equals its canonical form.
	Confirmed Outcome = "confirmed"
	// Unmatched means no variant cleared the threshold.
	Unmatched Outcome = "unmatched"
)

// Result is the resolution map and change log for one batch of queries.
type Result struct {
	Resolutions map[string]string
	Changes     []Change
}

