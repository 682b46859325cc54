package ionq

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/goliatone/go-qrmi/core"
	"github.com/goliatone/go-qrmi/providers"
	"github.com/goliatone/go-qrmi/transport"
)

const (
	VendorID       = "ionq-cloud"
	DefaultBaseURL = "https://api.ionq.co/v0.4"
	circuitType    = "ionq.circuit.v1"
)

var Backends = []string{
	"simulator",
	"qpu.harmony",
	"qpu.aria-1",
	"qpu.aria-2",
	"qpu.forte-1",
	"qpu.forte-enterprise-1",
	"qpu.forte-enterprise-2",
}

var statusMap = core.NewStatusMap(VendorID, map[string]core.TaskStatus{
	"submitted": core.TaskStatusQueued,
	"ready":     core.TaskStatusQueued,
	"running":   core.TaskStatusRunning,
	"completed": core.TaskStatusCompleted,
	"failed":    core.TaskStatusFailed,
	"canceled":  core.TaskStatusCancelled,
})

func StatusMap() core.StatusMap {
	return statusMap
}

type SessionLimits struct {
	JobCountLimit    int `json:"job_count_limit,omitempty"`
	DurationLimitMin int `json:"duration_limit_min,omitempty"`
}

type Config struct {
	ResourceName    string
	BaseURL         string
	SessionLimits   *SessionLimits
	Transport       core.TransportAdapter
	TransportConfig core.TransportConfig
}

func DefaultConfig() Config {
	return Config{BaseURL: DefaultBaseURL}
}

type Client struct {
	*providers.Base
	backend string
	limits  *SessionLimits
}

func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = DefaultConfig().BaseURL
	}
	base, err := providers.NewBase(providers.BaseConfig{
		ResourceName:    cfg.ResourceName,
		ResourceType:    core.ResourceTypeIonQCloud,
		BaseURL:         cfg.BaseURL,
		Transport:       cfg.Transport,
		TransportConfig: cfg.TransportConfig,
		StatusMap:       statusMap,
	})
	if err != nil {
		return nil, err
	}
	return &Client{
		Base:    base,
		backend: strings.ToLower(strings.TrimSpace(cfg.ResourceName)),
		limits:  cfg.SessionLimits,
	}, nil
}

func ParseBackend(name string) (string, error) {
	backend := strings.ToLower(strings.TrimSpace(name))
	for _, known := range Backends {
		if backend == known {
			return backend, nil
		}
	}
	return "", core.BadInputError(fmt.Sprintf(
		"ionq: backend %q is invalid. Valid backends: %s",
		name,
		strings.Join(Backends, ", "),
	))
}

type backendData struct {
	Backend string `json:"backend"`
	Status  string `json:"status"`
	Qubits  int    `json:"qubits"`
}

func (c *Client) Accessible(ctx context.Context) (bool, error) {
	backend, err := ParseBackend(c.backend)
	if err != nil {
		return false, err
	}
	var out backendData
	if _, err := c.API.Do(ctx, transport.Call{
		Method:    http.MethodGet,
		Path:      "/backends/" + backend,
		Operation: "accessible",
	}, &out); err != nil {
		return false, err
	}
	return out.Status == "available", nil
}

type sessionRequest struct {
	Backend string         `json:"backend"`
	Limits  *SessionLimits `json:"limits,omitempty"`
}

type sessionData struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Active bool   `json:"active"`
}

// Reserve opens a session on the backend; the session id is the lock token.
func (c *Client) Reserve(ctx context.Context) (core.VendorLock, error) {
	backend, err := ParseBackend(c.backend)
	if err != nil {
		return core.VendorLock{}, err
	}
	var out sessionData
	if _, err := c.API.Do(ctx, transport.Call{
		Method:    http.MethodPost,
		Path:      "/sessions",
		Body:      sessionRequest{Backend: backend, Limits: c.limits},
		Operation: transport.OperationReserve,
	}, &out); err != nil {
		return core.VendorLock{}, err
	}
	if strings.TrimSpace(out.ID) == "" {
		return core.VendorLock{}, core.NewError(core.ErrorTransport, "ionq: session response has no id")
	}
	return core.VendorLock{
		Token:    out.ID,
		Metadata: map[string]string{providers.MetadataLockKind: providers.LockKindSession},
	}, nil
}

func (c *Client) Unreserve(ctx context.Context, lock core.VendorLock) error {
	sessionID, err := providers.RequireJobID(lock.Token)
	if err != nil {
		return err
	}
	_, err = c.API.Do(ctx, transport.Call{
		Method:    http.MethodPost,
		Path:      "/sessions/" + sessionID + "/end",
		Operation: "unreserve",
	}, nil)
	return err
}

type jobRequest struct {
	Type      string `json:"type"`
	Backend   string `json:"backend"`
	Shots     int    `json:"shots"`
	Input     any    `json:"input"`
	SessionID string `json:"session_id,omitempty"`
}

type jobData struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Failure *struct {
		Code  string `json:"code"`
		Error string `json:"error"`
	} `json:"failure,omitempty"`
}

func sessionFrom(ctx context.Context) string {
	lock, ok := core.LockFromContext(ctx)
	if !ok || lock.Metadata[providers.MetadataLockKind] != providers.LockKindSession {
		return ""
	}
	return lock.Token
}

func (c *Client) Submit(ctx context.Context, payload core.Payload) (string, error) {
	circuit, ok := payload.(core.IonQCircuit)
	if !ok {
		return "", providers.UnexpectedPayload(core.ResourceTypeIonQCloud, payload)
	}
	target := circuit.Target
	if strings.TrimSpace(target) == "" {
		target = c.backend
	}
	backend, err := ParseBackend(target)
	if err != nil {
		return "", err
	}
	var input any = circuit.Input
	if json.Valid([]byte(circuit.Input)) {
		input = json.RawMessage(circuit.Input)
	}
	var out jobData
	if _, err := c.API.Do(ctx, transport.Call{
		Method: http.MethodPost,
		Path:   "/jobs",
		Body: jobRequest{
			Type:      circuitType,
			Backend:   backend,
			Shots:     circuit.Shots,
			Input:     input,
			SessionID: sessionFrom(ctx),
		},
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
	status := core.VendorStatus{Native: out.Status}
	if out.Failure != nil {
		status.Reason = strings.TrimSpace(out.Failure.Error)
		if status.Reason == "" {
			status.Reason = out.Failure.Code
		}
	}
	return status, nil
}

func (c *Client) Cancel(ctx context.Context, jobID string) error {
	jobID, err := providers.RequireJobID(jobID)
	if err != nil {
		return err
	}
	_, err = c.API.Do(ctx, transport.Call{
		Method:    http.MethodPut,
		Path:      "/jobs/" + jobID + "/status/cancel",
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
		Path:      "/jobs/" + jobID + "/results/probabilities",
		Operation: "fetch_result",
	}, nil)
	if err != nil {
		return core.TaskResult{}, err
	}
	return core.TaskResult{Value: strings.TrimSpace(string(res.Body))}, nil
}

func (c *Client) Logs(context.Context, string) (string, error) {
	return providers.NoLogsMessage, nil
}

func (c *Client) Target(ctx context.Context) (core.Target, error) {
	backend, err := ParseBackend(c.backend)
	if err != nil {
		return core.Target{}, err
	}
	res, err := c.API.Do(ctx, transport.Call{
		Method:    http.MethodGet,
		Path:      "/backends/" + backend,
		Operation: "target",
	}, nil)
	if err != nil {
		return core.Target{}, err
	}
	return core.Target{Value: strings.TrimSpace(string(res.Body))}, nil
}

var _ core.VendorClient = (*Client)(nil)
