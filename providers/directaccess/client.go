package directaccess

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/goliatone/go-qrmi/core"
	"github.com/goliatone/go-qrmi/providers"
	"github.com/goliatone/go-qrmi/transport"
)

const (
	VendorID           = "ibm-direct-access"
	DefaultLogLevel    = "warning"
	DefaultTimeoutSecs = 86400
)

var statusMap = core.NewStatusMap(VendorID, map[string]core.TaskStatus{
	"Pending":   core.TaskStatusQueued,
	"Queued":    core.TaskStatusQueued,
	"Running":   core.TaskStatusRunning,
	"Completed": core.TaskStatusCompleted,
	"Failed":    core.TaskStatusFailed,
	"Cancelled": core.TaskStatusCancelled,
})

func StatusMap() core.StatusMap {
	return statusMap
}

type Config struct {
	ResourceName    string
	Endpoint        string
	ServiceCRN      string
	LogLevel        string
	TimeoutSecs     int
	Transport       core.TransportAdapter
	TransportConfig core.TransportConfig
	NewJobID        func() string
}

func DefaultConfig() Config {
	return Config{LogLevel: DefaultLogLevel, TimeoutSecs: DefaultTimeoutSecs}
}

// Client drives an on-premises IBM Direct Access service. Jobs are named by
// the client, and locks are synthetic but refused while the backend is down.
type Client struct {
	*providers.Base
	backend     string
	logLevel    string
	timeoutSecs int
	newJobID    func() string
}

func New(cfg Config) (*Client, error) {
	defaults := DefaultConfig()
	if strings.TrimSpace(cfg.LogLevel) == "" {
		cfg.LogLevel = defaults.LogLevel
	}
	if cfg.TimeoutSecs <= 0 {
		cfg.TimeoutSecs = defaults.TimeoutSecs
	}
	if cfg.NewJobID == nil {
		cfg.NewJobID = uuid.NewString
	}
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, core.CredentialsMissingError("directaccess: endpoint is required", map[string]any{"resource": cfg.ResourceName})
	}
	headers := map[string]string{}
	if crn := strings.TrimSpace(cfg.ServiceCRN); crn != "" {
		headers["Service-CRN"] = crn
	}
	base, err := providers.NewBase(providers.BaseConfig{
		ResourceName:    cfg.ResourceName,
		ResourceType:    core.ResourceTypeDirectAccess,
		BaseURL:         cfg.Endpoint,
		Transport:       cfg.Transport,
		TransportConfig: cfg.TransportConfig,
		Headers:         headers,
		StatusMap:       statusMap,
	})
	if err != nil {
		return nil, err
	}
	return &Client{
		Base:        base,
		backend:     base.ResourceName(),
		logLevel:    cfg.LogLevel,
		timeoutSecs: cfg.TimeoutSecs,
		newJobID:    cfg.NewJobID,
	}, nil
}

type backendData struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

func (c *Client) backendStatus(ctx context.Context, operation string) (string, error) {
	var out backendData
	if _, err := c.API.Do(ctx, transport.Call{
		Method:    http.MethodGet,
		Path:      "/v1/backends/" + c.backend,
		Operation: operation,
	}, &out); err != nil {
		return "", err
	}
	return strings.ToLower(strings.TrimSpace(out.Status)), nil
}

func (c *Client) Accessible(ctx context.Context) (bool, error) {
	status, err := c.backendStatus(ctx, "accessible")
	if err != nil {
		return false, err
	}
	return status == "online", nil
}

func (c *Client) Reserve(ctx context.Context) (core.VendorLock, error) {
	status, err := c.backendStatus(ctx, transport.OperationReserve)
	if err != nil {
		return core.VendorLock{}, err
	}
	if status != "online" {
		return core.VendorLock{}, core.ResourceUnavailableError(
			"directaccess: backend is not online",
			map[string]any{"resource": c.backend, "backend_status": status},
		)
	}
	return providers.SyntheticLock(), nil
}

func (c *Client) Unreserve(context.Context, core.VendorLock) error {
	return nil
}

type jobRequest struct {
	ID          string          `json:"id"`
	Backend     string          `json:"backend"`
	ProgramID   string          `json:"program_id"`
	LogLevel    string          `json:"log_level"`
	TimeoutSecs int             `json:"timeout_secs"`
	Params      json.RawMessage `json:"params"`
}

type jobData struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	ReasonMessage string `json:"reason_message,omitempty"`
	ReasonCode    int    `json:"reason_code,omitempty"`
}

func (c *Client) Submit(ctx context.Context, payload core.Payload) (string, error) {
	primitive, ok := payload.(core.QiskitPrimitive)
	if !ok {
		return "", providers.UnexpectedPayload(core.ResourceTypeDirectAccess, payload)
	}
	if !json.Valid([]byte(primitive.Input)) {
		return "", core.BadInputError("directaccess: primitive input must be JSON")
	}
	jobID := c.newJobID()
	if _, err := c.API.Do(ctx, transport.Call{
		Method: http.MethodPost,
		Path:   "/v1/jobs",
		Body: jobRequest{
			ID:          jobID,
			Backend:     c.backend,
			ProgramID:   primitive.ProgramID,
			LogLevel:    c.logLevel,
			TimeoutSecs: c.timeoutSecs,
			Params:      json.RawMessage(primitive.Input),
		},
		Operation: "submit",
	}, nil); err != nil {
		return "", err
	}
	return jobID, nil
}

func (c *Client) Poll(ctx context.Context, jobID string) (core.VendorStatus, error) {
	jobID, err := providers.RequireJobID(jobID)
	if err != nil {
		return core.VendorStatus{}, err
	}
	var out jobData
	if _, err := c.API.Do(ctx, transport.Call{
		Method:    http.MethodGet,
		Path:      "/v1/jobs/" + jobID,
		Operation: "poll",
	}, &out); err != nil {
		return core.VendorStatus{}, err
	}
	return core.VendorStatus{Native: out.Status, Reason: strings.TrimSpace(out.ReasonMessage)}, nil
}

func (c *Client) Cancel(ctx context.Context, jobID string) error {
	jobID, err := providers.RequireJobID(jobID)
	if err != nil {
		return err
	}
	_, err = c.API.Do(ctx, transport.Call{
		Method:    http.MethodPost,
		Path:      "/v1/jobs/" + jobID + "/cancel",
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
		Path:      "/v1/jobs/" + jobID + "/results",
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
		Path:      "/v1/jobs/" + jobID + "/logs",
		Operation: "logs",
	}, nil)
	if err != nil {
		return "", err
	}
	return string(res.Body), nil
}

// Target merges the backend configuration and properties into one document.
func (c *Client) Target(ctx context.Context) (core.Target, error) {
	var configuration, properties json.RawMessage
	if _, err := c.API.Do(ctx, transport.Call{
		Method:    http.MethodGet,
		Path:      "/v1/backends/" + c.backend + "/configuration",
		Operation: "target",
	}, &configuration); err != nil {
		return core.Target{}, err
	}
	if _, err := c.API.Do(ctx, transport.Call{
		Method:    http.MethodGet,
		Path:      "/v1/backends/" + c.backend + "/properties",
		Operation: "target",
	}, &properties); err != nil {
		return core.Target{}, err
	}
	merged, err := json.Marshal(map[string]json.RawMessage{
		"configuration": nonEmpty(configuration),
		"properties":    nonEmpty(properties),
	})
	if err != nil {
		return core.Target{}, core.WrapError(err, core.ErrorInternal, "directaccess: encode target")
	}
	return core.Target{Value: string(merged)}, nil
}

func nonEmpty(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage("null")
	}
	return raw
}

var _ core.VendorClient = (*Client)(nil)
