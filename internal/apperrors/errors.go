// Package apperrors provides the error taxonomy shared by the scanner pipeline,
// the CLI and the HTTP server.
//
// Every fatal condition carries a Kind. Front ends translate kinds into exit
// codes or HTTP status codes; per-resource failures (UsageUnavailable,
// ImpactQueryFailed) are logged and recovered where they happen and never
// reach a caller.
package apperrors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Kind identifies the category of an error.
type Kind string

const (
	// KindUnknownRegion indicates a region without a country mapping.
	KindUnknownRegion Kind = "UNKNOWN_REGION"

	// KindInventoryListingFailed indicates that the vendor listing call failed.
	KindInventoryListingFailed Kind = "INVENTORY_LISTING_FAILED"

	// KindUsageUnavailable indicates that utilization data could not be read.
	KindUsageUnavailable Kind = "USAGE_UNAVAILABLE"

	// KindImpactQueryFailed indicates that one impact query failed.
	KindImpactQueryFailed Kind = "IMPACT_QUERY_FAILED"

	// KindInvalidDuration indicates a negative or non-finite duration of use.
	KindInvalidDuration Kind = "INVALID_DURATION"

	// KindConfig indicates missing or invalid configuration.
	KindConfig Kind = "CONFIG_ERROR"

	// KindCancelled indicates that the top-level request was cancelled.
	KindCancelled Kind = "CANCELLED"

	// KindValidation indicates invalid user input (flags, query parameters, bodies).
	KindValidation Kind = "VALIDATION_ERROR"
)

// Exit codes returned by the CLI.
const (
	ExitSuccess           = 0
	ExitFailure           = 1
	ExitInvalidArguments  = 2
	ExitUnknownRegion     = 3
	ExitInventoryFailure  = 4
	ExitImpactUnavailable = 5
)

// Error is a categorized error with an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates a new formatted error of the given kind.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps cause with a kind and a message.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf returns the kind of the first categorized error in err's chain.
// Bare context cancellation and deadline errors report KindCancelled.
func KindOf(err error) (Kind, bool) {
	if err == nil {
		return "", false
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindCancelled, true
	}
	return "", false
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// FromContext converts a done context into a KindCancelled error.
// It returns nil while ctx is still live.
func FromContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return Wrap(KindCancelled, "request cancelled", err)
	}
	return nil
}

// ExitCode maps err to a CLI exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	kind, _ := KindOf(err)
	switch kind {
	case KindValidation, KindInvalidDuration:
		return ExitInvalidArguments
	case KindUnknownRegion:
		return ExitUnknownRegion
	case KindInventoryListingFailed:
		return ExitInventoryFailure
	case KindConfig:
		return ExitImpactUnavailable
	default:
		return ExitFailure
	}
}

// HTTPStatus maps err to an HTTP status code.
func HTTPStatus(err error) int {
	kind, _ := KindOf(err)
	switch kind {
	case KindValidation, KindInvalidDuration, KindUnknownRegion:
		return http.StatusBadRequest
	case KindInventoryListingFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
