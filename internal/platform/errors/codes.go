// Package errors provides structured error handling with localized messages.
package errors

import (
	"net/http"

	"google.golang.org/grpc/codes"
)

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// CodeValidation marks a malformed request rejected before any state is read.
	CodeValidation Code = "VALIDATION_ERROR"
	// CodeIllegalMove marks a rule violation detected by the reducer.
	CodeIllegalMove Code = "ILLEGAL_MOVE"
	// CodeConcurrencyConflict marks exhausted optimistic retries; safe to resubmit.
	CodeConcurrencyConflict Code = "CONCURRENCY_CONFLICT"
	// CodeStoreUnavailable marks a transport or infrastructure failure.
	CodeStoreUnavailable Code = "STORE_UNAVAILABLE"

	// CodeNotFound marks a missing room.
	CodeNotFound Code = "NOT_FOUND"
	// CodeUnauthenticated marks a missing or invalid player token.
	CodeUnauthenticated Code = "UNAUTHENTICATED"
	// CodePermissionDenied marks a token whose identity does not match the intent.
	CodePermissionDenied Code = "PERMISSION_DENIED"
	// CodeIntegrityViolation marks a broken log hash chain or signature.
	CodeIntegrityViolation Code = "INTEGRITY_VIOLATION"
)

// Transient reports whether a caller may resubmit the same request.
func (c Code) Transient() bool {
	return c == CodeConcurrencyConflict || c == CodeStoreUnavailable
}

// HTTPStatus maps domain codes to HTTP status codes.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeIllegalMove, CodeConcurrencyConflict:
		return http.StatusConflict
	case CodeStoreUnavailable:
		return http.StatusServiceUnavailable
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodePermissionDenied:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	// InvalidArgument - malformed intent shape
	case CodeValidation:
		return codes.InvalidArgument

	// FailedPrecondition - state doesn't allow the move
	case CodeIllegalMove:
		return codes.FailedPrecondition

	// Aborted - transaction lost every retry; client may resubmit
	case CodeConcurrencyConflict:
		return codes.Aborted

	case CodeStoreUnavailable:
		return codes.Unavailable
	case CodeNotFound:
		return codes.NotFound
	case CodeUnauthenticated:
		return codes.Unauthenticated
	case CodePermissionDenied:
		return codes.PermissionDenied
	case CodeIntegrityViolation:
		return codes.DataLoss
	default:
		return codes.Internal
	}
}

func codeFromGRPC(code codes.Code) Code {
	switch code {
	case codes.InvalidArgument:
		return CodeValidation
	case codes.FailedPrecondition:
		return CodeIllegalMove
	case codes.Aborted:
		return CodeConcurrencyConflict
	case codes.Unavailable:
		return CodeStoreUnavailable
	case codes.NotFound:
		return CodeNotFound
	case codes.Unauthenticated:
		return CodeUnauthenticated
	case codes.PermissionDenied:
		return CodePermissionDenied
	case codes.DataLoss:
		return CodeIntegrityViolation
	default:
		return CodeUnknown
	}
}
