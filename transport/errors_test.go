package transport

import (
	"context"
	"net/http"
	"testing"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-qrmi/core"
)

func TestStatusError_MapsVendorStatuses(t *testing.T) {
	cases := []struct {
		status    int
		operation string
		kind      string
	}{
		{http.StatusUnauthorized, "", core.ErrorAuthRejected},
		{http.StatusForbidden, "", core.ErrorAuthRejected},
		{http.StatusNotFound, "", core.ErrorResourceNotFound},
		{http.StatusConflict, OperationReserve, core.ErrorResourceUnavailable},
		{http.StatusConflict, OperationCancel, core.ErrorJobNotCancellable},
		{http.StatusLocked, "", core.ErrorResourceUnavailable},
		{http.StatusServiceUnavailable, "", core.ErrorResourceUnavailable},
		{http.StatusTooManyRequests, "", core.ErrorTransport},
		{http.StatusBadGateway, "", core.ErrorTransport},
		{http.StatusBadRequest, "", core.ErrorBadInput},
	}
	for _, tc := range cases {
		err := StatusError(core.TransportResponse{StatusCode: tc.status, Body: []byte(`{"error":"x"}`)}, tc.operation)
		if got := core.ErrorKind(err); got != tc.kind {
			t.Fatalf("status %d op %q: expected %s, got %s", tc.status, tc.operation, tc.kind, got)
		}
	}
	if err := StatusError(core.TransportResponse{StatusCode: http.StatusCreated}, ""); err != nil {
		t.Fatalf("expected nil for 2xx, got %v", err)
	}
}

func TestStatusError_CarriesStatusMetadata(t *testing.T) {
	err := StatusError(core.TransportResponse{StatusCode: http.StatusNotFound, Body: []byte("missing job")}, "poll")
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Metadata["status_code"] != http.StatusNotFound || rich.Metadata["operation"] != "poll" {
		t.Fatalf("unexpected metadata %v", rich.Metadata)
	}
	if rich.Metadata["response_excerpt"] != "missing job" {
		t.Fatalf("expected response excerpt, got %v", rich.Metadata["response_excerpt"])
	}
}

func TestJSONClient_EncodesAndDecodes(t *testing.T) {
	next := &scriptedAdapter{responses: []core.TransportResponse{{StatusCode: http.StatusOK, Body: []byte(`{"id":"J1"}`)}}}
	client := NewJSONClient(next, "https://api.test/v1/", core.TransportConfig{MaxResponseBytes: 1024})
	client.Headers["Service-CRN"] = "crn:1"

	var out struct {
		ID string `json:"id"`
	}
	if _, err := client.Do(context.Background(), Call{Method: http.MethodPost, Path: "/jobs", Body: map[string]any{"shots": 10}}, &out); err != nil {
		t.Fatalf("do: %v", err)
	}
	if out.ID != "J1" {
		t.Fatalf("expected decoded id, got %q", out.ID)
	}
	req := next.requests[0]
	if req.URL != "https://api.test/v1/jobs" {
		t.Fatalf("unexpected url %q", req.URL)
	}
	if string(req.Body) != `{"shots":10}` || req.Headers["Service-CRN"] != "crn:1" {
		t.Fatalf("unexpected request %s %v", req.Body, req.Headers)
	}
}

func TestJSONClient_MapsErrorsAndBadBodies(t *testing.T) {
	next := &scriptedAdapter{responses: []core.TransportResponse{{StatusCode: http.StatusConflict}}}
	client := NewJSONClient(next, "https://api.test", core.TransportConfig{})
	if _, err := client.Do(context.Background(), Call{Method: http.MethodPost, Path: "jobs/1/cancel", Operation: OperationCancel}, nil); !core.IsKind(err, core.ErrorJobNotCancellable) {
		t.Fatalf("expected job not cancellable, got %v", err)
	}

	next = &scriptedAdapter{responses: []core.TransportResponse{{StatusCode: http.StatusOK, Body: []byte("not json")}}}
	client = NewJSONClient(next, "https://api.test", core.TransportConfig{})
	var out map[string]any
	if _, err := client.Do(context.Background(), Call{Path: "jobs"}, &out); !core.IsKind(err, core.ErrorTransport) {
		t.Fatalf("expected transport error for undecodable body, got %v", err)
	}
}
