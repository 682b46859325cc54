package transport

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-qrmi/core"
)

// UnsupportedAdapter stands in for a transport kind nobody registered.
type UnsupportedAdapter struct {
	kind   string
	reason string
}

func NewUnsupportedAdapter(kind string, reason string) *UnsupportedAdapter {
	return &UnsupportedAdapter{
		kind:   strings.TrimSpace(strings.ToLower(kind)),
		reason: strings.TrimSpace(reason),
	}
}

func (a *UnsupportedAdapter) Kind() string {
	if a == nil {
		return ""
	}
	return a.kind
}

func (a *UnsupportedAdapter) Do(context.Context, core.TransportRequest) (core.TransportResponse, error) {
	if a == nil {
		return core.TransportResponse{}, transportError(core.ErrorInternal, "transport: adapter is nil", nil)
	}
	message := fmt.Sprintf("transport: %s adapter is not configured", a.kind)
	if a.reason != "" {
		message += ": " + a.reason
	}
	return core.TransportResponse{}, core.UnsupportedOperationError(message)
}

var _ core.TransportAdapter = (*UnsupportedAdapter)(nil)
