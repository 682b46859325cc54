package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	ErrorCredentialsMissing    = "QRMI_CREDENTIALS_MISSING"
	ErrorAuthRejected          = "QRMI_AUTH_REJECTED"
	ErrorAuthExpired           = "QRMI_AUTH_EXPIRED"
	ErrorResourceUnavailable   = "QRMI_RESOURCE_UNAVAILABLE"
	ErrorResourceNotFound      = "QRMI_RESOURCE_NOT_FOUND"
	ErrorInvalidLock           = "QRMI_INVALID_LOCK"
	ErrorTransport             = "QRMI_TRANSPORT_ERROR"
	ErrorResultNotReady        = "QRMI_RESULT_NOT_READY"
	ErrorJobNotCancellable     = "QRMI_JOB_NOT_CANCELLABLE"
	ErrorJobFailed             = "QRMI_JOB_FAILED"
	ErrorUnsupportedOperation  = "QRMI_UNSUPPORTED_OPERATION"
	ErrorBadInput              = "QRMI_BAD_INPUT"
	ErrorInternal              = "QRMI_INTERNAL_ERROR"
	MetadataKeyJobFailedReason = "reason"
)

var (
	ErrLockNotFound = errors.New("core: lock not found")
	ErrTaskNotFound = errors.New("core: task not found")
)

var errorCategories = map[string]goerrors.Category{
	ErrorCredentialsMissing:   goerrors.CategoryAuth,
	ErrorAuthRejected:         goerrors.CategoryAuth,
	ErrorAuthExpired:          goerrors.CategoryAuth,
	ErrorResourceUnavailable:  goerrors.CategoryConflict,
	ErrorResourceNotFound:     goerrors.CategoryNotFound,
	ErrorInvalidLock:          goerrors.CategoryBadInput,
	ErrorTransport:            goerrors.CategoryExternal,
	ErrorResultNotReady:       goerrors.CategoryConflict,
	ErrorJobNotCancellable:    goerrors.CategoryConflict,
	ErrorJobFailed:            goerrors.CategoryOperation,
	ErrorUnsupportedOperation: goerrors.CategoryOperation,
	ErrorBadInput:             goerrors.CategoryBadInput,
	ErrorInternal:             goerrors.CategoryInternal,
}

var errorStatus = map[string]int{
	ErrorCredentialsMissing:   http.StatusUnauthorized,
	ErrorAuthRejected:         http.StatusUnauthorized,
	ErrorAuthExpired:          http.StatusUnauthorized,
	ErrorResourceUnavailable:  http.StatusConflict,
	ErrorResourceNotFound:     http.StatusNotFound,
	ErrorInvalidLock:          http.StatusBadRequest,
	ErrorTransport:            http.StatusBadGateway,
	ErrorResultNotReady:       http.StatusConflict,
	ErrorJobNotCancellable:    http.StatusConflict,
	ErrorJobFailed:            http.StatusUnprocessableEntity,
	ErrorUnsupportedOperation: http.StatusNotImplemented,
	ErrorBadInput:             http.StatusBadRequest,
	ErrorInternal:             http.StatusInternalServerError,
}

// ErrorKinds lists every text code of the taxonomy.
func ErrorKinds() []string {
	return sortedKeys(errorCategories)
}

// NewError builds a taxonomy error for the given text code.
func NewError(kind string, message string) *goerrors.Error {
	return goerrors.New(message, categoryFor(kind)).
		WithCode(statusFor(kind)).
		WithTextCode(kind)
}

// WrapError builds a taxonomy error that keeps source as its cause.
func WrapError(source error, kind string, message string) *goerrors.Error {
	if source == nil {
		return NewError(kind, message)
	}
	return goerrors.Wrap(source, categoryFor(kind), message).
		WithCode(statusFor(kind)).
		WithTextCode(kind)
}

func CredentialsMissingError(message string, metadata map[string]any) error {
	err := NewError(ErrorCredentialsMissing, message)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func AuthRejectedError(source error, message string) error {
	return WrapError(source, ErrorAuthRejected, message)
}

func AuthExpiredError(source error, message string) error {
	return WrapError(source, ErrorAuthExpired, message)
}

func ResourceUnavailableError(message string, metadata map[string]any) error {
	err := NewError(ErrorResourceUnavailable, message)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func ResourceNotFoundError(message string) error {
	return NewError(ErrorResourceNotFound, message)
}

func InvalidLockError(message string) error {
	return NewError(ErrorInvalidLock, message)
}

func TransportError(source error, message string, metadata map[string]any) error {
	err := WrapError(source, ErrorTransport, message)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func ResultNotReadyError(jobID string, status TaskStatus) error {
	return NewError(
		ErrorResultNotReady,
		fmt.Sprintf("core: result for job %q is not ready (status %s)", jobID, status),
	).WithMetadata(map[string]any{"job_id": jobID, "status": string(status)})
}

func JobNotCancellableError(jobID string, message string) error {
	return NewError(ErrorJobNotCancellable, message).
		WithMetadata(map[string]any{"job_id": jobID})
}

func JobFailedError(jobID string, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "unknown"
	}
	return NewError(ErrorJobFailed, fmt.Sprintf("core: job %q failed: %s", jobID, reason)).
		WithMetadata(map[string]any{"job_id": jobID, MetadataKeyJobFailedReason: reason})
}

func UnsupportedOperationError(message string) error {
	return NewError(ErrorUnsupportedOperation, message)
}

func BadInputError(message string) error {
	return NewError(ErrorBadInput, message)
}

// ErrorKind returns the taxonomy text code carried by err, mapping unknown
// errors through the default mapper.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	mapped := MapError(err)
	if mapped == nil {
		return ErrorInternal
	}
	return mapped.TextCode
}

func IsKind(err error, kind string) bool {
	return err != nil && ErrorKind(err) == kind
}

// JobFailedReason extracts the reason of a QRMI_JOB_FAILED error.
func JobFailedReason(err error) (string, bool) {
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) || rich.TextCode != ErrorJobFailed {
		return "", false
	}
	if reason, ok := rich.Metadata[MetadataKeyJobFailedReason].(string); ok {
		return reason, true
	}
	return "", true
}

// MapError normalizes any error into a taxonomy envelope.
func MapError(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		if joined, ok := err.(interface{ Unwrap() []error }); ok {
			return ensureErrorEnvelope(withJoined(rich, joined.Unwrap()))
		}
		return ensureErrorEnvelope(rich)
	}

	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return WrapError(err, ErrorTransport, err.Error())
	case errors.Is(err, ErrLockNotFound):
		return WrapError(err, ErrorInvalidLock, err.Error())
	case errors.Is(err, ErrTaskNotFound):
		return WrapError(err, ErrorResourceNotFound, err.Error())
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"), strings.Contains(msg, "must"):
		return WrapError(err, ErrorBadInput, err.Error())
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureErrorEnvelope(mapped)
}

// withJoined keeps the kind of rich and appends the messages of the errors
// joined next to it.
func withJoined(rich *goerrors.Error, joined []error) *goerrors.Error {
	out := rich.Clone()
	for _, other := range joined {
		var candidate *goerrors.Error
		if other == nil || (goerrors.As(other, &candidate) && candidate == rich) {
			continue
		}
		out.Message = fmt.Sprintf("%s; %s", out.Message, other.Error())
	}
	return out
}

func ensureErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultTextCode(err.Category)
	}
	if err.Code == 0 {
		err.Code = statusFor(err.TextCode)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return ErrorBadInput
	case goerrors.CategoryNotFound:
		return ErrorResourceNotFound
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return ErrorAuthRejected
	case goerrors.CategoryConflict:
		return ErrorResourceUnavailable
	case goerrors.CategoryExternal, goerrors.CategoryRateLimit:
		return ErrorTransport
	case goerrors.CategoryOperation:
		return ErrorUnsupportedOperation
	default:
		return ErrorInternal
	}
}

func categoryFor(kind string) goerrors.Category {
	if category, ok := errorCategories[kind]; ok {
		return category
	}
	return goerrors.CategoryInternal
}

func statusFor(kind string) int {
	if status, ok := errorStatus[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}
