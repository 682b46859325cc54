package core

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"testing"

	goerrors "github.com/goliatone/go-errors"
)

func TestMapError_AssignsStableCodes(t *testing.T) {
	cases := []struct {
		name string
		err  error
		kind string
	}{
		{name: "deadline", err: context.DeadlineExceeded, kind: ErrorTransport},
		{name: "cancelled", err: fmt.Errorf("poll: %w", context.Canceled), kind: ErrorTransport},
		{name: "lock", err: fmt.Errorf("release: %w", ErrLockNotFound), kind: ErrorInvalidLock},
		{name: "task", err: fmt.Errorf("get: %w", ErrTaskNotFound), kind: ErrorResourceNotFound},
		{name: "validation", err: stderrors.New("core: job id is required"), kind: ErrorBadInput},
		{name: "typed", err: JobNotCancellableError("J1", "done"), kind: ErrorJobNotCancellable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mapped := MapError(tc.err)
			if mapped == nil {
				t.Fatalf("expected mapped error")
			}
			if mapped.TextCode != tc.kind {
				t.Fatalf("expected %s, got %s", tc.kind, mapped.TextCode)
			}
			if mapped.Code == 0 {
				t.Fatalf("expected http status code on mapped error")
			}
		})
	}
}

func TestMapError_Nil(t *testing.T) {
	if MapError(nil) != nil {
		t.Fatalf("expected nil for nil error")
	}
	if ErrorKind(nil) != "" {
		t.Fatalf("expected empty kind for nil error")
	}
}

func TestErrorKinds_CoverTaxonomy(t *testing.T) {
	kinds := ErrorKinds()
	want := []string{
		ErrorCredentialsMissing,
		ErrorAuthRejected,
		ErrorAuthExpired,
		ErrorResourceUnavailable,
		ErrorResourceNotFound,
		ErrorInvalidLock,
		ErrorTransport,
		ErrorResultNotReady,
		ErrorJobNotCancellable,
		ErrorJobFailed,
		ErrorUnsupportedOperation,
		ErrorBadInput,
		ErrorInternal,
	}
	if len(kinds) != len(want) {
		t.Fatalf("expected %d kinds, got %d", len(want), len(kinds))
	}
	seen := map[string]bool{}
	for _, kind := range kinds {
		seen[kind] = true
	}
	for _, kind := range want {
		if !seen[kind] {
			t.Fatalf("missing kind %s", kind)
		}
	}
}

func TestJobFailedError_CarriesReason(t *testing.T) {
	err := JobFailedError("J9", "device offline")
	reason, ok := JobFailedReason(err)
	if !ok || reason != "device offline" {
		t.Fatalf("expected reason, got %q ok=%t", reason, ok)
	}
	if !strings.Contains(err.Error(), "device offline") {
		t.Fatalf("expected reason in message, got %q", err.Error())
	}

	if _, ok := JobFailedReason(ResultNotReadyError("J9", TaskStatusRunning)); ok {
		t.Fatalf("expected no reason for a different kind")
	}
	reason, _ = JobFailedReason(JobFailedError("J9", "  "))
	if reason != "unknown" {
		t.Fatalf("expected unknown reason placeholder, got %q", reason)
	}
}

func TestWrapError_KeepsSource(t *testing.T) {
	source := stderrors.New("connection refused")
	err := TransportError(source, "submit job", map[string]any{"status_code": 503})
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected rich error")
	}
	if rich.TextCode != ErrorTransport || rich.Category != goerrors.CategoryExternal {
		t.Fatalf("unexpected envelope %s/%s", rich.TextCode, rich.Category)
	}
	if rich.Metadata["status_code"] != 503 {
		t.Fatalf("expected metadata, got %#v", rich.Metadata)
	}
}
