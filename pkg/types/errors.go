// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"context"
	"errors"
)

// Error kinds reported by every stage. Callers classify with errors.Is.
var (
	// ErrNotConfigured means no store reference is available.
	ErrNotConfigured = errors.New("store not configured")

	// ErrTimeout means an operation did not finish within the polling budget.
	ErrTimeout = errors.New("operation timed out")

	// ErrRemoteRequestFailed covers transport and API failures, including
	// not-found and permission-denied responses.
	ErrRemoteRequestFailed = errors.New("remote request failed")

	// ErrNotFound is the not-found subclass of ErrRemoteRequestFailed.
	ErrNotFound = errors.New("remote resource not found")

	// ErrMalformedResponse means a generation response lacked expected fields.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrStagingFailed means a local copy or cleanup of a staged file failed.
	ErrStagingFailed = errors.New("staging failed")

	// ErrConfirmationRequired means a destructive action was requested
	// without interactive confirmation or an explicit --yes.
	ErrConfirmationRequired = errors.New("confirmation required")
)

// ErrorKind names an error class for summaries and journal rows.
type ErrorKind string

const (
	KindNone              ErrorKind = ""
	KindNotConfigured     ErrorKind = "NotConfigured"
	KindTimeout           ErrorKind = "Timeout"
	KindNotFound          ErrorKind = "NotFound"
	KindRemoteRequest     ErrorKind = "RemoteRequestFailed"
	KindMalformedResponse ErrorKind = "MalformedResponse"
	KindStaging           ErrorKind = "StagingFailed"
	KindCanceled          ErrorKind = "Canceled"
	KindOther             ErrorKind = "Other"
)

// KindOf classifies err. NotFound is checked before the broader
// RemoteRequestFailed class.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrNotConfigured):
		return KindNotConfigured
	case errors.Is(err, ErrTimeout):
		return KindTimeout
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrRemoteRequestFailed):
		return KindRemoteRequest
	case errors.Is(err, ErrMalformedResponse):
		return KindMalformedResponse
	case errors.Is(err, ErrStagingFailed):
		return KindStaging
	case errors.Is(err, context.Canceled):
		return KindCanceled
	default:
		return KindOther
	}
}
