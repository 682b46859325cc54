package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/goliatone/go-qrmi/core"
	"github.com/goliatone/go-qrmi/providers"
)

const VendorID = "mock"

// Native statuses follow the IonQ vocabulary.
const (
	statusReady     = "ready"
	statusRunning   = "running"
	statusCompleted = "completed"
	statusFailed    = "failed"
	statusCanceled  = "canceled"
)

var statusMap = core.NewStatusMap(VendorID, map[string]core.TaskStatus{
	statusReady:     core.TaskStatusQueued,
	statusRunning:   core.TaskStatusRunning,
	statusCompleted: core.TaskStatusCompleted,
	statusFailed:    core.TaskStatusFailed,
	statusCanceled:  core.TaskStatusCancelled,
})

func StatusMap() core.StatusMap {
	return statusMap
}

type Config struct {
	ResourceName string
	// QueuedPolls and RunningPolls set how many polls a job spends in each
	// state before it advances.
	QueuedPolls  int
	RunningPolls int
	Offline      bool
	// FailWith makes every job fail with this reason.
	FailWith string
}

func DefaultConfig() Config {
	return Config{QueuedPolls: 1, RunningPolls: 1}
}

type job struct {
	id       string
	status   string
	polls    int
	reason   string
	result   string
	logs     []string
	canceled bool
}

// Client is an in-process simulator. Jobs are numbered J1, J2, ... and move
// ready → running → completed one step per poll budget. It holds at most one
// reservation at a time.
type Client struct {
	name         string
	queuedPolls  int
	runningPolls int
	failWith     string

	mu       sync.Mutex
	online   bool
	reserved string
	next     int
	jobs     map[string]*job
}

func New(cfg Config) (*Client, error) {
	name := strings.TrimSpace(cfg.ResourceName)
	if name == "" {
		return nil, core.BadInputError("mock: resource name is required")
	}
	defaults := DefaultConfig()
	if cfg.QueuedPolls <= 0 {
		cfg.QueuedPolls = defaults.QueuedPolls
	}
	if cfg.RunningPolls <= 0 {
		cfg.RunningPolls = defaults.RunningPolls
	}
	return &Client{
		name:         name,
		queuedPolls:  cfg.QueuedPolls,
		runningPolls: cfg.RunningPolls,
		failWith:     strings.TrimSpace(cfg.FailWith),
		online:       !cfg.Offline,
		jobs:         map[string]*job{},
	}, nil
}

func (c *Client) ResourceType() core.ResourceType {
	return core.ResourceTypeMock
}

func (c *Client) ResourceName() string {
	return c.name
}

func (c *Client) StatusMap() core.StatusMap {
	return statusMap
}

func (c *Client) Metadata() map[string]string {
	return map[string]string{
		providers.MetadataBackendName: c.name,
		"simulator":                   "true",
	}
}

// SetOnline flips accessibility, for tests.
func (c *Client) SetOnline(online bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.online = online
}

func (c *Client) Accessible(context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.online, nil
}

func (c *Client) Reserve(context.Context) (core.VendorLock, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.online {
		return core.VendorLock{}, core.ResourceUnavailableError("mock: simulator is offline", map[string]any{"resource": c.name})
	}
	if c.reserved != "" {
		return core.VendorLock{}, core.ResourceUnavailableError("mock: simulator is reserved", map[string]any{"resource": c.name})
	}
	c.reserved = uuid.NewString()
	return core.VendorLock{
		Token:    c.reserved,
		Metadata: map[string]string{providers.MetadataLockKind: providers.LockKindSession},
	}, nil
}

func (c *Client) Unreserve(_ context.Context, lock core.VendorLock) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.reserved == "" || lock.Token != c.reserved {
		return core.InvalidLockError("mock: lock is not the active reservation")
	}
	c.reserved = ""
	return nil
}

func (c *Client) Submit(_ context.Context, payload core.Payload) (string, error) {
	shots, preview, err := describe(payload)
	if err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next++
	id := "J" + strconv.Itoa(c.next)
	result, err := json.Marshal(map[string]any{
		"backend":       c.name,
		"job_id":        id,
		"mock":          true,
		"shots":         shots,
		"input_preview": preview,
		"counts":        map[string]int{"0": shots - shots/2, "1": shots / 2},
	})
	if err != nil {
		return "", core.WrapError(err, core.ErrorInternal, "mock: encode result")
	}
	c.jobs[id] = &job{
		id:     id,
		status: statusReady,
		result: string(result),
		logs:   []string{fmt.Sprintf("job %s accepted by simulator %q", id, c.name)},
	}
	return id, nil
}

func describe(payload core.Payload) (int, string, error) {
	const defaultShots = 100
	var shots int
	var input string
	switch typed := payload.(type) {
	case core.Circuit:
		shots, input = typed.Shots, typed.Circuit
	case core.IonQCircuit:
		shots, input = typed.Shots, typed.Input
	case core.QiskitPrimitive:
		input = typed.Input
	case core.PasqalSequence:
		shots, input = typed.JobRuns, typed.Sequence
	default:
		return 0, "", providers.UnexpectedPayload(core.ResourceTypeMock, payload)
	}
	if shots <= 0 {
		shots = defaultShots
	}
	preview := []rune(input)
	if len(preview) > 128 {
		preview = preview[:128]
	}
	return shots, string(preview), nil
}

func (c *Client) lookup(jobID string) (*job, error) {
	found, ok := c.jobs[strings.TrimSpace(jobID)]
	if !ok {
		return nil, core.ResourceNotFoundError(fmt.Sprintf("mock: unknown job id %q", jobID))
	}
	return found, nil
}

// Poll reports the current state and then advances the job.
func (c *Client) Poll(_ context.Context, jobID string) (core.VendorStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	current, err := c.lookup(jobID)
	if err != nil {
		return core.VendorStatus{}, err
	}
	observed := core.VendorStatus{Native: current.status, Reason: current.reason}
	current.polls++
	switch current.status {
	case statusReady:
		if current.polls >= c.queuedPolls {
			current.status, current.polls = statusRunning, 0
			current.logs = append(current.logs, "job started")
		}
	case statusRunning:
		if current.polls >= c.runningPolls {
			current.polls = 0
			if c.failWith != "" {
				current.status, current.reason = statusFailed, c.failWith
				current.logs = append(current.logs, "job failed: "+c.failWith)
			} else {
				current.status = statusCompleted
				current.logs = append(current.logs, "job completed")
			}
		}
	}
	return observed, nil
}

func (c *Client) Cancel(_ context.Context, jobID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	current, err := c.lookup(jobID)
	if err != nil {
		return err
	}
	switch current.status {
	case statusCompleted, statusFailed:
		return core.JobNotCancellableError(current.id, "mock: job already finished")
	case statusCanceled:
		return nil
	}
	current.status = statusCanceled
	current.logs = append(current.logs, "job cancelled by client request")
	return nil
}

func (c *Client) FetchResult(_ context.Context, jobID string) (core.TaskResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	current, err := c.lookup(jobID)
	if err != nil {
		return core.TaskResult{}, err
	}
	switch current.status {
	case statusCompleted:
		return core.TaskResult{Value: current.result}, nil
	case statusFailed:
		return core.TaskResult{}, core.JobFailedError(current.id, current.reason)
	case statusCanceled:
		return core.TaskResult{}, core.JobFailedError(current.id, "cancelled")
	default:
		return core.TaskResult{}, core.ResultNotReadyError(current.id, statusMap.Map(current.status))
	}
}

func (c *Client) Logs(_ context.Context, jobID string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	current, err := c.lookup(jobID)
	if err != nil {
		return "", err
	}
	return strings.Join(current.logs, "\n"), nil
}

func (c *Client) Target(context.Context) (core.Target, error) {
	encoded, err := json.Marshal(map[string]any{
		"backend":   c.name,
		"simulator": true,
		"qubits":    32,
		"gates":     []string{"h", "x", "y", "z", "cx", "rz", "measure"},
	})
	if err != nil {
		return core.Target{}, core.WrapError(err, core.ErrorInternal, "mock: encode target")
	}
	return core.Target{Value: string(encoded)}, nil
}

var _ core.VendorClient = (*Client)(nil)
