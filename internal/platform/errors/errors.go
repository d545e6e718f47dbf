package errors

import (
	stderrors "errors"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/status"
)

// Domain is the error domain for Cryptopoly errors.
const Domain = "github.com/louisbranch/cryptopoly"

// Error is the domain error type with structured metadata.
type Error struct {
	Code     Code              // Machine-readable error code
	Reason   string            // Rule or field that failed, e.g. "NotOwner"
	Message  string            // Internal message (for logs/telemetry)
	Metadata map[string]string // Additional context for templating
	Cause    error             // Wrapped underlying error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Reason != "" && e.Message == "" {
		return e.Reason
	}
	return e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by code and, when the target
// carries one, by reason.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if e.Code != t.Code {
		return false
	}
	return t.Reason == "" || t.Reason == e.Reason
}

// New creates a simple domain error with a code and message.
func New(code Code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Rule creates a domain error for a named rule violation.
func Rule(code Code, reason string, message string) *Error {
	return &Error{
		Code:    code,
		Reason:  reason,
		Message: message,
	}
}

// WithMetadata creates a domain error with metadata for message templating.
func WithMetadata(code Code, reason string, message string, metadata map[string]string) *Error {
	return &Error{
		Code:     code,
		Reason:   reason,
		Message:  message,
		Metadata: metadata,
	}
}

// Wrap creates a domain error that wraps an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// As extracts the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var target *Error
	if stderrors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// CodeOf returns the code of the first *Error in err's chain, or CodeUnknown.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	if e, ok := As(err); ok {
		return e.Code
	}
	return CodeUnknown
}

// ToGRPCStatus converts the error to a gRPC status with errdetails.
// The status message contains the internal message for logging.
// The LocalizedMessage contains the user-facing translated message.
func (e *Error) ToGRPCStatus(locale string, userMessage string) error {
	grpcCode := e.Code.GRPCCode()
	st := status.New(grpcCode, e.Error())

	reason := e.Reason
	if reason == "" {
		reason = string(e.Code)
	}
	st, err := st.WithDetails(
		&errdetails.ErrorInfo{
			Reason:   reason,
			Domain:   Domain,
			Metadata: e.Metadata,
		},
		&errdetails.LocalizedMessage{
			Locale:  locale,
			Message: userMessage,
		},
	)
	if err != nil {
		return status.New(grpcCode, e.Error()).Err()
	}
	return st.Err()
}

// FromGRPCStatus rebuilds a domain error from a status produced by
// ToGRPCStatus. The localized message, when present, becomes the message.
// Errors that carry no status are returned unchanged.
func FromGRPCStatus(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	out := &Error{
		Code:    codeFromGRPC(st.Code()),
		Message: st.Message(),
		Cause:   err,
	}
	for _, detail := range st.Details() {
		switch d := detail.(type) {
		case *errdetails.ErrorInfo:
			if d.GetDomain() == Domain && d.GetReason() != string(out.Code) {
				out.Reason = d.GetReason()
			}
			out.Metadata = d.GetMetadata()
		case *errdetails.LocalizedMessage:
			if d.GetMessage() != "" {
				out.Message = d.GetMessage()
			}
		}
	}
	return out
}
