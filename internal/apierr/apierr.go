// Package apierr carries API-boundary errors with their HTTP status so the
// handlers can translate service failures without string matching.
package apierr

import (
	"errors"
	"fmt"
)

type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func New(status int, format string, args ...any) *Error {
	return &Error{
		Status:  status,
		Message: fmt.Sprintf(format, args...),
	}
}

// BatchIssue is one failed entry of a multi-item request, addressed by its
// positional index.
type BatchIssue struct {
	Path    int    `json:"path"`
	Message string `json:"message"`
}

type BatchError struct {
	Status int
	Issues []BatchIssue
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("%d issue(s) in request", len(e.Issues))
}

func NewBatch(status int, issues []BatchIssue) *BatchError {
	return &BatchError{Status: status, Issues: issues}
}

// StatusOf extracts the HTTP status of an error, defaulting to fallback for
// plain errors.
func StatusOf(err error, fallback int) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	var batchErr *BatchError
	if errors.As(err, &batchErr) {
		return batchErr.Status
	}
	return fallback
}
