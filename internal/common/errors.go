package common

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Error taxonomy. Every AppError built by the constructors below wraps exactly one of these.
var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrUnreadableDocument  = errors.New("unreadable document")
	ErrUnsupportedDocument = errors.New("unsupported document")
	ErrExtractionTimeout   = errors.New("extraction timeout")
	ErrConflict            = errors.New("conflict")
	ErrInternal            = errors.New("internal error")
	ErrNotFound            = errors.New("resource not found")
	ErrNotReady            = errors.New("result not ready")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// kindError joins a sentinel with the underlying error so both match errors.Is.
type kindError struct {
	kind error
	err  error
}

func (k *kindError) Error() string   { return k.err.Error() }
func (k *kindError) Unwrap() []error { return []error{k.kind, k.err} }

func withKind(kind error, code, message string, cause error) *AppError {
	var c error = kind
	if cause != nil {
		c = &kindError{kind: kind, err: cause}
	}
	return NewAppError(code, message, c)
}

func InvalidInput(message string) *AppError {
	return withKind(ErrInvalidInput, "INVALID_INPUT", message, nil)
}

func InvalidInputf(format string, args ...any) *AppError {
	return InvalidInput(fmt.Sprintf(format, args...))
}

func UnreadableDocument(message string, cause error) *AppError {
	return withKind(ErrUnreadableDocument, "UNREADABLE_DOCUMENT", message, cause)
}

func UnsupportedDocument(message string, cause error) *AppError {
	return withKind(ErrUnsupportedDocument, "UNSUPPORTED_DOCUMENT", message, cause)
}

func ExtractionTimeout(message string, cause error) *AppError {
	return withKind(ErrExtractionTimeout, "EXTRACTION_TIMEOUT", message, cause)
}

func Conflict(message string) *AppError {
	return withKind(ErrConflict, "CONFLICT", message, nil)
}

func InternalFault(message string, cause error) *AppError {
	return withKind(ErrInternal, "INTERNAL", message, cause)
}

func NotFound(message string) *AppError {
	return withKind(ErrNotFound, "NOT_FOUND", message, nil)
}

func NotReady(message string) *AppError {
	return withKind(ErrNotReady, "NOT_READY", message, nil)
}

// Kind returns the taxonomy sentinel err belongs to; unknown errors are ErrInternal.
func Kind(err error) error {
	for _, k := range []error{
		ErrInvalidInput, ErrUnreadableDocument, ErrUnsupportedDocument,
		ErrExtractionTimeout, ErrConflict, ErrNotFound, ErrNotReady, ErrInternal,
	} {
		if errors.Is(err, k) {
			return k
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrExtractionTimeout
	}
	return ErrInternal
}

// UserMessage is the text safe to show an end user. Internal faults never leak detail.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	switch Kind(err) {
	case ErrInternal:
		return "internal error while processing the document"
	case ErrExtractionTimeout:
		return "text or field extraction timed out"
	case ErrUnreadableDocument:
		return "the document could not be read as a PDF"
	case ErrUnsupportedDocument:
		return "the document is encrypted or otherwise unsupported"
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

// RetryOnTimeout runs fn and, when it fails with ErrExtractionTimeout, runs it exactly once more.
func RetryOnTimeout[T any](ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	out, err := fn(ctx)
	if err == nil || !errors.Is(err, ErrExtractionTimeout) || ctx.Err() != nil {
		return out, err
	}
	return fn(ctx)
}

// GRPCError maps err onto a gRPC status error.
func GRPCError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	var code codes.Code
	switch Kind(err) {
	case ErrInvalidInput:
		code = codes.InvalidArgument
	case ErrNotFound:
		code = codes.NotFound
	case ErrConflict:
		code = codes.Aborted
	case ErrNotReady:
		code = codes.FailedPrecondition
	case ErrUnreadableDocument, ErrUnsupportedDocument:
		code = codes.FailedPrecondition
	case ErrExtractionTimeout:
		code = codes.DeadlineExceeded
	default:
		code = codes.Internal
	}
	return status.Error(code, UserMessage(err))
}
