package transport

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/goliatone/go-qrmi/core"
)

// Operation hints let StatusError pick the right kind for status codes whose
// meaning depends on the call, such as 409.
const (
	OperationReserve = "reserve"
	OperationCancel  = "cancel"
)

const maxErrorExcerpt = 512

func transportError(kind string, message string, metadata map[string]any) error {
	err := core.NewError(kind, message)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func transportWrapError(source error, kind string, message string, metadata map[string]any) error {
	err := core.WrapError(source, kind, message)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

// StatusError maps a non-2xx vendor response onto the error taxonomy. It
// returns nil for 2xx responses.
func StatusError(res core.TransportResponse, operation string) error {
	status := res.StatusCode
	if status >= 200 && status <= 299 {
		return nil
	}
	operation = strings.TrimSpace(strings.ToLower(operation))
	metadata := map[string]any{"status_code": status}
	if operation != "" {
		metadata["operation"] = operation
	}
	if excerpt := bodyExcerpt(res.Body); excerpt != "" {
		metadata["response_excerpt"] = excerpt
	}
	message := fmt.Sprintf("transport: vendor returned %d", status)
	if operation != "" {
		message = fmt.Sprintf("transport: %s: vendor returned %d", operation, status)
	}

	var kind string
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		kind = core.ErrorAuthRejected
	case status == http.StatusNotFound:
		kind = core.ErrorResourceNotFound
	case status == http.StatusConflict && operation == OperationCancel:
		kind = core.ErrorJobNotCancellable
	case status == http.StatusConflict, status == http.StatusLocked, status == http.StatusServiceUnavailable:
		kind = core.ErrorResourceUnavailable
	case status == http.StatusTooManyRequests, status >= 500:
		kind = core.ErrorTransport
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		kind = core.ErrorBadInput
	default:
		kind = core.ErrorTransport
	}
	return transportError(kind, message, metadata)
}

func bodyExcerpt(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) > maxErrorExcerpt {
		text = text[:maxErrorExcerpt]
	}
	return text
}
