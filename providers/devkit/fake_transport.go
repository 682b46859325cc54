package devkit

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"sync"

	"github.com/goliatone/go-qrmi/core"
)

// TransportScript is one canned vendor exchange.
type TransportScript struct {
	Response core.TransportResponse
	Err      error
}

type route struct {
	method  string
	suffix  string
	scripts []TransportScript
	served  int
}

// FakeTransportAdapter replays scripted vendor responses. Requests matching a
// route (method plus URL path suffix) consume that route's scripts; all other
// requests consume the default queue. In both cases the last script repeats
// once the list is exhausted.
type FakeTransportAdapter struct {
	mu       sync.Mutex
	kind     string
	scripts  []TransportScript
	served   int
	routes   []*route
	requests []core.TransportRequest
}

func NewFakeTransportAdapter(kind string, scripts ...TransportScript) *FakeTransportAdapter {
	return &FakeTransportAdapter{
		kind:    strings.TrimSpace(strings.ToLower(kind)),
		scripts: append([]TransportScript(nil), scripts...),
	}
}

// Route scripts every request whose method matches (empty matches any) and
// whose URL path ends with suffix, e.g. Route("GET", "/jobs/J1", ...).
func (a *FakeTransportAdapter) Route(method string, suffix string, scripts ...TransportScript) *FakeTransportAdapter {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.routes = append(a.routes, &route{
		method:  strings.ToUpper(strings.TrimSpace(method)),
		suffix:  strings.TrimSpace(suffix),
		scripts: append([]TransportScript(nil), scripts...),
	})
	return a
}

func (a *FakeTransportAdapter) Kind() string {
	if a == nil {
		return ""
	}
	return a.kind
}

func (a *FakeTransportAdapter) Do(_ context.Context, req core.TransportRequest) (core.TransportResponse, error) {
	if a == nil {
		return core.TransportResponse{}, fmt.Errorf("devkit: fake transport adapter is nil")
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	a.requests = append(a.requests, cloneTransportRequest(req))
	if matched := a.match(req); matched != nil {
		return next(matched.scripts, &matched.served, a.kind)
	}
	return next(a.scripts, &a.served, a.kind)
}

func (a *FakeTransportAdapter) match(req core.TransportRequest) *route {
	path := urlPath(req.URL)
	for _, candidate := range a.routes {
		if candidate.method != "" && !strings.EqualFold(candidate.method, req.Method) {
			continue
		}
		if strings.HasSuffix(path, candidate.suffix) {
			return candidate
		}
	}
	return nil
}

func next(scripts []TransportScript, served *int, kind string) (core.TransportResponse, error) {
	if len(scripts) == 0 {
		return core.TransportResponse{
			StatusCode: 200,
			Headers:    map[string]string{},
			Metadata:   map[string]any{"kind": kind},
		}, nil
	}
	index := min(*served, len(scripts)-1)
	*served++
	script := scripts[index]
	return cloneTransportResponse(script.Response), script.Err
}

// Requests returns every captured request in arrival order.
func (a *FakeTransportAdapter) Requests() []core.TransportRequest {
	return a.RequestsTo("")
}

// RequestsTo returns the captured requests whose URL path ends with suffix.
func (a *FakeTransportAdapter) RequestsTo(suffix string) []core.TransportRequest {
	if a == nil {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]core.TransportRequest, 0, len(a.requests))
	for _, item := range a.requests {
		if suffix == "" || strings.HasSuffix(urlPath(item.URL), suffix) {
			out = append(out, cloneTransportRequest(item))
		}
	}
	return out
}

func urlPath(raw string) string {
	if idx := strings.IndexAny(raw, "?#"); idx >= 0 {
		raw = raw[:idx]
	}
	return raw
}

func cloneTransportRequest(in core.TransportRequest) core.TransportRequest {
	out := in
	out.Headers = cloneMap(in.Headers)
	out.Query = cloneMap(in.Query)
	out.Metadata = cloneMap(in.Metadata)
	out.Body = append([]byte(nil), in.Body...)
	return out
}

func cloneTransportResponse(in core.TransportResponse) core.TransportResponse {
	out := in
	out.Headers = cloneMap(in.Headers)
	out.Metadata = cloneMap(in.Metadata)
	out.Body = append([]byte(nil), in.Body...)
	return out
}

func cloneMap[V any](in map[string]V) map[string]V {
	out := make(map[string]V, len(in))
	maps.Copy(out, in)
	return out
}

var _ core.TransportAdapter = (*FakeTransportAdapter)(nil)
