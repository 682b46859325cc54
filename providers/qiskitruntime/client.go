package qiskitruntime

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/goliatone/go-qrmi/core"
	"github.com/goliatone/go-qrmi/providers"
	"github.com/goliatone/go-qrmi/transport"
)

const (
	VendorID           = "ibm-qiskit-runtime-service"
	DefaultEndpoint    = "https://quantum.cloud.ibm.com/api/v1"
	DefaultAPIVersion  = "2025-05-01"
	DefaultSessionMode = "dedicated"
	DefaultMaxTTL      = 28800
)

var statusMap = core.NewStatusMap(VendorID, map[string]core.TaskStatus{
	"QUEUED":     core.TaskStatusQueued,
	"RUNNING":    core.TaskStatusRunning,
	"CANCELLING": core.TaskStatusRunning,
	"COMPLETED":  core.TaskStatusCompleted,
	"DONE":       core.TaskStatusCompleted,
	"FAILED":     core.TaskStatusFailed,
	"ERROR":      core.TaskStatusFailed,
	"CANCELLED":  core.TaskStatusCancelled,
	"CANCELED":   core.TaskStatusCancelled,
})

func StatusMap() core.StatusMap {
	return statusMap
}

type Config struct {
	ResourceName    string
	Endpoint        string
	ServiceCRN      string
	APIVersion      string
	SessionMode     string
	MaxTTL          int
	Transport       core.TransportAdapter
	TransportConfig core.TransportConfig
}

func DefaultConfig() Config {
	return Config{
		Endpoint:    DefaultEndpoint,
		APIVersion:  DefaultAPIVersion,
		SessionMode: DefaultSessionMode,
		MaxTTL:      DefaultMaxTTL,
	}
}

// Client uses Qiskit Runtime sessions as locks: Reserve opens one and jobs
// submitted while it is held run inside it.
type Client struct {
	*providers.Base
	backend     string
	sessionMode string
	maxTTL      int
}

func New(cfg Config) (*Client, error) {
	defaults := DefaultConfig()
	if strings.TrimSpace(cfg.Endpoint) == "" {
		cfg.Endpoint = defaults.Endpoint
	}
	if strings.TrimSpace(cfg.APIVersion) == "" {
		cfg.APIVersion = defaults.APIVersion
	}
	if strings.TrimSpace(cfg.SessionMode) == "" {
		cfg.SessionMode = defaults.SessionMode
	}
	if cfg.MaxTTL <= 0 {
		cfg.MaxTTL = defaults.MaxTTL
	}
	mode := strings.ToLower(strings.TrimSpace(cfg.SessionMode))
	if mode != "dedicated" && mode != "batch" {
		return nil, core.BadInputError("qiskitruntime: session mode must be dedicated or batch")
	}
	headers := map[string]string{"IBM-API-Version": cfg.APIVersion}
	if crn := strings.TrimSpace(cfg.ServiceCRN); crn != "" {
		headers["Service-CRN"] = crn
	}
	base, err := providers.NewBase(providers.BaseConfig{
		ResourceName:    cfg.ResourceName,
		ResourceType:    core.ResourceTypeQiskitRuntimeService,
		BaseURL:         cfg.Endpoint,
		Transport:       cfg.Transport,
		TransportConfig: cfg.TransportConfig,
		Headers:         headers,
		StatusMap:       statusMap,
		Metadata:        map[string]string{"session_mode": mode},
	})
	if err != nil {
		return nil, err
	}
	return &Client{
		Base:        base,
		backend:     base.ResourceName(),
		sessionMode: mode,
		maxTTL:      cfg.MaxTTL,
	}, nil
}

type backendStatus struct {
	State  bool   `json:"state"`
	Status string `json:"status"`
}

func (c *Client) Accessible(ctx context.Context) (bool, error) {
	var out backendStatus
	if _, err := c.API.Do(ctx, transport.Call{
		Method:    http.MethodGet,
		Path:      "/backends/" + c.backend + "/status",
		Operation: "accessible",
	}, &out); err != nil {
		return false, err
	}
	return out.State && strings.EqualFold(out.Status, "active"), nil
}

type sessionRequest struct {
	Backend string `json:"backend"`
	Mode    string `json:"mode"`
	MaxTTL  int    `json:"max_ttl"`
}

type sessionData struct {
	ID string `json:"id"`
}

func (c *Client) Reserve(ctx context.Context) (core.VendorLock, error) {
	var out sessionData
	if _, err := c.API.Do(ctx, transport.Call{
		Method:    http.MethodPost,
		Path:      "/sessions",
		Body:      sessionRequest{Backend: c.backend, Mode: c.sessionMode, MaxTTL: c.maxTTL},
		Operation: transport.OperationReserve,
	}, &out); err != nil {
		return core.VendorLock{}, err
	}
	if strings.TrimSpace(out.ID) == "" {
		return core.VendorLock{}, core.NewError(core.ErrorTransport, "qiskitruntime: session response has no id")
	}
	return core.VendorLock{
		Token:    out.ID,
		Metadata: map[string]string{providers.MetadataLockKind: providers.LockKindSession, "session_mode": c.sessionMode},
	}, nil
}

func (c *Client) Unreserve(ctx context.Context, lock core.VendorLock) error {
	sessionID, err := providers.RequireJobID(lock.Token)
	if err != nil {
		return err
	}
	_, err = c.API.Do(ctx, transport.Call{
		Method:    http.MethodPatch,
		Path:      "/sessions/" + sessionID + "/close",
		Operation: "unreserve",
	}, nil)
	return err
}

type jobRequest struct {
	ProgramID string          `json:"program_id"`
	Backend   string          `json:"backend"`
	Params    json.RawMessage `json:"params"`
	SessionID string          `json:"session_id,omitempty"`
}

type jobData struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	State  struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	} `json:"state"`
}

func (c *Client) Submit(ctx context.Context, payload core.Payload) (string, error) {
	primitive, ok := payload.(core.QiskitPrimitive)
	if !ok {
		return "", providers.UnexpectedPayload(core.ResourceTypeQiskitRuntimeService, payload)
	}
	if !json.Valid([]byte(primitive.Input)) {
		return "", core.BadInputError("qiskitruntime: primitive input must be JSON")
	}
	request := jobRequest{
		ProgramID: primitive.ProgramID,
		Backend:   c.backend,
		Params:    json.RawMessage(primitive.Input),
	}
	if lock, ok := core.LockFromContext(ctx); ok && lock.Metadata[providers.MetadataLockKind] == providers.LockKindSession {
		request.SessionID = lock.Token
	}
	var out jobData
	if _, err := c.API.Do(ctx, transport.Call{
		Method:    http.MethodPost,
		Path:      "/jobs",
		Body:      request,
		Operation: "submit",
	}, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (c *Client) Poll(ctx context.Context, jobID string) (core.VendorStatus, error) {
	jobID, err := providers.RequireJobID(jobID)
	if err != nil {
		return core.VendorStatus{}, err
	}
	var out jobData
	if _, err := c.API.Do(ctx, transport.Call{
		Method:    http.MethodGet,
		Path:      "/jobs/" + jobID,
		Operation: "poll",
	}, &out); err != nil {
		return core.VendorStatus{}, err
	}
	native := out.State.Status
	if strings.TrimSpace(native) == "" {
		native = out.Status
	}
	return core.VendorStatus{Native: native, Reason: strings.TrimSpace(out.State.Reason)}, nil
}

func (c *Client) Cancel(ctx context.Context, jobID string) error {
	jobID, err := providers.RequireJobID(jobID)
	if err != nil {
		return err
	}
	_, err = c.API.Do(ctx, transport.Call{
		Method:    http.MethodPost,
		Path:      "/jobs/" + jobID + "/cancel",
		Operation: transport.OperationCancel,
	}, nil)
	return err
}

func (c *Client) FetchResult(ctx context.Context, jobID string) (core.TaskResult, error) {
	jobID, err := providers.RequireJobID(jobID)
	if err != nil {
		return core.TaskResult{}, err
	}
	res, err := c.API.Do(ctx, transport.Call{
		Method:    http.MethodGet,
		Path:      "/jobs/" + jobID + "/results",
		Operation: "fetch_result",
	}, nil)
	if err != nil {
		return core.TaskResult{}, err
	}
	return core.TaskResult{Value: strings.TrimSpace(string(res.Body))}, nil
}

func (c *Client) Logs(ctx context.Context, jobID string) (string, error) {
	jobID, err := providers.RequireJobID(jobID)
	if err != nil {
		return "", err
	}
	res, err := c.API.Do(ctx, transport.Call{
		Method:    http.MethodGet,
		Path:      "/jobs/" + jobID + "/logs",
		Operation: "logs",
	}, nil)
	if err != nil {
		return "", err
	}
	return string(res.Body), nil
}

func (c *Client) Target(ctx context.Context) (core.Target, error) {
	res, err := c.API.Do(ctx, transport.Call{
		Method:    http.MethodGet,
		Path:      "/backends/" + c.backend + "/configuration",
		Operation: "target",
	}, nil)
	if err != nil {
		return core.Target{}, err
	}
	return core.Target{Value: strings.TrimSpace(string(res.Body))}, nil
}

var _ core.VendorClient = (*Client)(nil)
