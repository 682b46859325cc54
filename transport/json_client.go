package transport

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/goliatone/go-qrmi/core"
)

// JSONClient issues JSON requests relative to a vendor base URL and maps
// non-2xx responses with StatusError.
type JSONClient struct {
	Transport        core.TransportAdapter
	BaseURL          string
	Headers          map[string]string
	Timeout          time.Duration
	MaxResponseBytes int64
}

func NewJSONClient(transport core.TransportAdapter, baseURL string, cfg core.TransportConfig) *JSONClient {
	return &JSONClient{
		Transport:        transport,
		BaseURL:          strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		Headers:          map[string]string{},
		Timeout:          cfg.Timeout,
		MaxResponseBytes: cfg.MaxResponseBytes,
	}
}

type Call struct {
	Method    string
	Path      string
	Query     map[string]string
	Body      any
	Operation string
}

// Do sends call and decodes a JSON response into out when out is non-nil.
func (c *JSONClient) Do(ctx context.Context, call Call, out any) (core.TransportResponse, error) {
	if c == nil || c.Transport == nil {
		return core.TransportResponse{}, transportError(core.ErrorInternal, "transport: json client is not configured", nil)
	}
	req := core.TransportRequest{
		Method:               call.Method,
		URL:                  c.BaseURL + "/" + strings.TrimLeft(call.Path, "/"),
		Headers:              map[string]string{},
		Query:                call.Query,
		Timeout:              c.Timeout,
		MaxResponseBodyBytes: c.MaxResponseBytes,
		Metadata:             map[string]any{"operation": call.Operation},
	}
	for key, value := range c.Headers {
		req.Headers[key] = value
	}
	if call.Body != nil {
		body, err := json.Marshal(call.Body)
		if err != nil {
			return core.TransportResponse{}, transportWrapError(err, core.ErrorBadInput, "transport: encode request body", nil)
		}
		req.Body = body
		req.Headers["Content-Type"] = "application/json"
	}

	res, err := c.Transport.Do(ctx, req)
	if err != nil {
		return core.TransportResponse{}, err
	}
	if err := StatusError(res, call.Operation); err != nil {
		return res, err
	}
	if out != nil && len(res.Body) > 0 {
		if err := json.Unmarshal(res.Body, out); err != nil {
			return res, transportWrapError(err, core.ErrorTransport, "transport: decode response body", map[string]any{
				"operation":   call.Operation,
				"status_code": res.StatusCode,
			})
		}
	}
	return res, nil
}
