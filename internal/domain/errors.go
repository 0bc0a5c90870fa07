package domain

import "errors"

var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed request data.
	ErrInvalidInput = errors.New("invalid input")

	// ErrSourceNotConfigured indicates a request named a source with no adapter.
	ErrSourceNotConfigured = errors.New("source not configured")

	// ErrEmptyUpload indicates an uploaded file or transcript had no content.
	ErrEmptyUpload = errors.New("upload has no content")

	// ErrInvalidTransition indicates a review action not allowed from the current status.
	ErrInvalidTransition = errors.New("invalid ticket transition")

	// ErrMalformedRecord indicates a raw record the normalizer cannot use.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrTrackerUnavailable indicates no issue tracker is configured.
	ErrTrackerUnavailable = errors.New("ticket tracker unavailable")
)
