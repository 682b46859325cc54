package pasqal

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
	VendorID       = "pasqal-cloud"
	DefaultBaseURL = "https://apis.pasqal.cloud"
)

// Devices lists the device types the cloud accepts as resource names.
var Devices = []string{"FRESNEL", "FRESNEL_CAN1", "EMU_MPS", "EMU_FREE", "EMU_FRESNEL"}

var statusMap = core.NewStatusMap(VendorID, map[string]core.TaskStatus{
	"PENDING":   core.TaskStatusQueued,
	"PAUSED":    core.TaskStatusQueued,
	"RUNNING":   core.TaskStatusRunning,
	"CANCELING": core.TaskStatusRunning,
	"DONE":      core.TaskStatusCompleted,
	"CANCELED":  core.TaskStatusCancelled,
	"TIMED_OUT": core.TaskStatusFailed,
	"ERROR":     core.TaskStatusFailed,
})

func StatusMap() core.StatusMap {
	return statusMap
}

type Config struct {
	ResourceName    string
	ProjectID       string
	BaseURL         string
	Transport       core.TransportAdapter
	TransportConfig core.TransportConfig
}

func DefaultConfig() Config {
	return Config{BaseURL: DefaultBaseURL}
}

// Client talks to Pasqal Cloud batches. The cloud has no reservation concept,
// so locks are synthetic.
type Client struct {
	*providers.Base
	projectID  string
	deviceType string
}

func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = DefaultConfig().BaseURL
	}
	if strings.TrimSpace(cfg.ProjectID) == "" {
		return nil, core.CredentialsMissingError("pasqal: project id is required", map[string]any{"resource": cfg.ResourceName})
	}
	base, err := providers.NewBase(providers.BaseConfig{
		ResourceName:    cfg.ResourceName,
		ResourceType:    core.ResourceTypePasqalCloud,
		BaseURL:         cfg.BaseURL,
		Transport:       cfg.Transport,
		TransportConfig: cfg.TransportConfig,
		StatusMap:       statusMap,
	})
	if err != nil {
		return nil, err
	}
	return &Client{
		Base:       base,
		projectID:  strings.TrimSpace(cfg.ProjectID),
		deviceType: strings.ToUpper(strings.TrimSpace(cfg.ResourceName)),
	}, nil
}

// ParseDevice validates a resource name against the known device types.
func ParseDevice(name string) (string, error) {
	device := strings.ToUpper(strings.TrimSpace(name))
	for _, known := range Devices {
		if device == known {
			return device, nil
		}
	}
	return "", core.BadInputError(fmt.Sprintf(
		"pasqal: device %q is invalid. Valid devices: %s",
		name,
		strings.Join(Devices, ", "),
	))
}

type envelope[T any] struct {
	Data T `json:"data"`
}

type deviceData struct {
	Status       string `json:"status"`
	Availability string `json:"availability"`
}

// Accessible only checks that the device is not retired: a temporarily down
// device still queues batches.
func (c *Client) Accessible(ctx context.Context) (bool, error) {
	device, err := ParseDevice(c.deviceType)
	if err != nil {
		return false, err
	}
	var out envelope[[]deviceData]
	if _, err := c.API.Do(ctx, transport.Call{
		Method:    http.MethodGet,
		Path:      "/core-fast/api/v1/devices",
		Query:     map[string]string{"device_type": device},
		Operation: "accessible",
	}, &out); err != nil {
		return false, err
	}
	if len(out.Data) == 0 {
		return false, core.ResourceNotFoundError(fmt.Sprintf("pasqal: no devices found for type %s", device))
	}
	return out.Data[0].Availability == "ACTIVE", nil
}

func (c *Client) Reserve(context.Context) (core.VendorLock, error) {
	return providers.SyntheticLock(), nil
}

func (c *Client) Unreserve(context.Context, core.VendorLock) error {
	return nil
}

type batchJob struct {
	Runs int `json:"runs"`
}

type batchRequest struct {
	SequenceBuilder string     `json:"sequence_builder"`
	Jobs            []batchJob `json:"jobs"`
	DeviceType      string     `json:"device_type"`
	ProjectID       string     `json:"project_id"`
}

type batchData struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func (c *Client) Submit(ctx context.Context, payload core.Payload) (string, error) {
	sequence, ok := payload.(core.PasqalSequence)
	if !ok {
		return "", providers.UnexpectedPayload(core.ResourceTypePasqalCloud, payload)
	}
	device, err := ParseDevice(c.deviceType)
	if err != nil {
		return "", err
	}
	var out envelope[batchData]
	if _, err := c.API.Do(ctx, transport.Call{
		Method: http.MethodPost,
		Path:   "/core-fast/api/v1/batches",
		Body: batchRequest{
			SequenceBuilder: sequence.Sequence,
			Jobs:            []batchJob{{Runs: sequence.JobRuns}},
			DeviceType:      device,
			ProjectID:       c.projectID,
		},
		Operation: "submit",
	}, &out); err != nil {
		return "", err
	}
	return out.Data.ID, nil
}

func (c *Client) Poll(ctx context.Context, jobID string) (core.VendorStatus, error) {
	jobID, err := providers.RequireJobID(jobID)
	if err != nil {
		return core.VendorStatus{}, err
	}
	var out envelope[batchData]
	if _, err := c.API.Do(ctx, transport.Call{
		Method:    http.MethodGet,
		Path:      "/core-fast/api/v2/batches/" + jobID,
		Operation: "poll",
	}, &out); err != nil {
		return core.VendorStatus{}, err
	}
	status := core.VendorStatus{Native: out.Data.Status}
	switch strings.ToUpper(out.Data.Status) {
	case "TIMED_OUT":
		status.Reason = "batch timed out"
	case "ERROR":
		status.Reason = "batch ended in error"
	}
	return status, nil
}

func (c *Client) Cancel(ctx context.Context, jobID string) error {
	jobID, err := providers.RequireJobID(jobID)
	if err != nil {
		return err
	}
	_, err = c.API.Do(ctx, transport.Call{
		Method:    http.MethodPatch,
		Path:      "/core-fast/api/v2/batches/" + jobID + "/cancel",
		Operation: transport.OperationCancel,
	}, nil)
	return err
}

type jobResult struct {
	Counter map[string]uint64 `json:"counter"`
}

// FetchResult returns the counter of the single job in the batch as JSON.
func (c *Client) FetchResult(ctx context.Context, jobID string) (core.TaskResult, error) {
	jobID, err := providers.RequireJobID(jobID)
	if err != nil {
		return core.TaskResult{}, err
	}
	var out envelope[map[string]jobResult]
	if _, err := c.API.Do(ctx, transport.Call{
		Method:    http.MethodGet,
		Path:      "/core-fast/api/v1/batches/" + jobID + "/full_results",
		Operation: "fetch_result",
	}, &out); err != nil {
		return core.TaskResult{}, err
	}
	switch len(out.Data) {
	case 0:
		return core.TaskResult{}, core.ResultNotReadyError(jobID, core.TaskStatusCompleted)
	case 1:
	default:
		return core.TaskResult{}, core.NewError(core.ErrorTransport, "pasqal: unexpected multiple jobs in one batch")
	}
	for _, result := range out.Data {
		encoded, err := json.Marshal(result)
		if err != nil {
			return core.TaskResult{}, core.WrapError(err, core.ErrorInternal, "pasqal: encode result")
		}
		return core.TaskResult{Value: string(encoded)}, nil
	}
	return core.TaskResult{}, nil
}

func (c *Client) Logs(context.Context, string) (string, error) {
	return providers.NoLogsMessage, nil
}

type deviceSpecs struct {
	Specs string `json:"specs"`
}

func (c *Client) Target(ctx context.Context) (core.Target, error) {
	device, err := ParseDevice(c.deviceType)
	if err != nil {
		return core.Target{}, err
	}
	var out envelope[deviceSpecs]
	if _, err := c.API.Do(ctx, transport.Call{
		Method:    http.MethodGet,
		Path:      "/core-fast/api/v1/devices/specs/" + device,
		Operation: "target",
	}, &out); err != nil {
		return core.Target{}, err
	}
	return core.Target{Value: out.Data.Specs}, nil
}

var _ core.VendorClient = (*Client)(nil)
