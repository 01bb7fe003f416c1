package domain

import (
	"errors"
)

var (
	// ErrInvalidInput is the umbrella for every user-correctable input problem.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedFormat signals a file extension no reader handles.
	ErrUnsupportedFormat = newInputError("unsupported file format")
	// ErrUnreadableInput signals a file that exists but cannot be parsed.
	ErrUnreadableInput = newInputError("unreadable input")
	// ErrEmptyInput signals a file without a header row or without data.
	ErrEmptyInput = newInputError("no data")
	// ErrMissingInput signals that a required file was not supplied.
	ErrMissingInput = newInputError("missing input file")
	// ErrColumnNotFound signals a requested column absent from the dataset.
	ErrColumnNotFound = newInputError("column not found")
	// ErrInvalidThreshold signals a similarity threshold outside the accepted range.
	ErrInvalidThreshold = newInputError("invalid threshold")

	// ErrIndexNotFound signals that no persisted index exists yet.
	ErrIndexNotFound = errors.New("index not found")
	// ErrIndexFormatOutdated signals an artifact without the variant/canonical lists.
	ErrIndexFormatOutdated = errors.New("index format outdated")
	// ErrIndexCorrupt signals an artifact whose parallel sequences disagree.
	ErrIndexCorrupt = errors.New("index corrupt")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrIndexModelMismatch signals an index built by a model other than the active one.
	ErrIndexModelMismatch = errors.New("index model mismatch")

	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrModelUnavailable signals that neither the primary nor any fallback model could be loaded.
	ErrModelUnavailable = errors.New("no embedding model could be loaded")
)

// inputError is a sentinel that also matches ErrInvalidInput via errors.Is.
type inputError struct {
	msg string
}

func newInputError(msg string) error { return &inputError{msg: msg} }

func (e *inputError) Error() string { return e.msg }

func (e *inputError) Unwrap() error { return ErrInvalidInput }

// IsInputError reports whether err is a user-correctable input problem.
func IsInputError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsIndexError reports whether err concerns the persisted index artifact.
func IsIndexError(err error) bool {
	return errors.Is(err, ErrIndexNotFound) ||
		errors.Is(err, ErrIndexFormatOutdated) ||
		errors.Is(err, ErrIndexCorrupt) ||
		errors.Is(err, ErrVectorDimMismatch) ||
		errors.Is(err, ErrIndexModelMismatch)
}
