package services

import (
	"errors"

	"github.com/jackc/pgx/v5"
)

type ValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "Validation failed"
}

type ConflictError struct {
	Message  string
	Existing interface{}
}

func (e *ConflictError) Error() string { return e.Message }

type NotFoundError struct{ Message string }

func (e *NotFoundError) Error() string { return e.Message }

type UnauthorizedError struct{ Message string }

func (e *UnauthorizedError) Error() string { return e.Message }

type RateLimitError struct{ Message string }

func (e *RateLimitError) Error() string { return e.Message }

const (
	UpstreamUnavailable   = "unavailable"
	UpstreamRequestFailed = "request_failed"
)

// UpstreamError wraps a failure of the YouTube Data API or another remote dependency.
type UpstreamError struct {
	Kind    string
	Message string
	Err     error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// NotFoundOr converts pgx.ErrNoRows into a NotFoundError carrying msg and passes other errors through.
func NotFoundOr(err error, msg string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return &NotFoundError{Message: msg}
	}
	return err
}
