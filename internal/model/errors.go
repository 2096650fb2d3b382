package model

import "errors"

// Validation errors for model types.
// Callers match them with errors.Is; the wrapped message carries the
// offending value.
var (
	// ErrInvalidSeverityLevel is returned when a level is outside 1..5.
	ErrInvalidSeverityLevel = errors.New("invalid severity level: must be between 1 and 5")

	// ErrMissingAuthor is returned when a review has no author name.
	ErrMissingAuthor = errors.New("review has no author")

	// ErrMissingText is returned when a source record carries no body
	// field at all. An empty body is a rating-only review.
	ErrMissingText = errors.New("review has no text")

	// ErrInvalidRating is returned when a review rating is outside 1..5.
	ErrInvalidRating = errors.New("review rating out of range")

	// ErrMissingTimestamp is returned when a review has a zero timestamp.
	ErrMissingTimestamp = errors.New("review has no timestamp")

	// ErrEmptyTargetID is returned when a target identifier is blank.
	ErrEmptyTargetID = errors.New("target id is empty")

	// ErrInvalidTargetID is returned when a target identifier contains
	// characters other than letters, digits, '.' and '_'.
	ErrInvalidTargetID = errors.New("invalid target id: only letters, digits, '.' and '_' are allowed")
)
