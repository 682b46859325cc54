package qrmi

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/go-resty/resty/v2"
	gocmd "github.com/goliatone/go-command"
	glog "github.com/goliatone/go-logger/glog"

	qrmicommand "github.com/goliatone/go-qrmi/command"
	"github.com/goliatone/go-qrmi/core"
	"github.com/goliatone/go-qrmi/credentials"
	"github.com/goliatone/go-qrmi/providers/mock"
	qrmiquery "github.com/goliatone/go-qrmi/query"
)

// ResourceService is what the facade dispatches to; *core.Resource
// satisfies it.
type ResourceService interface {
	qrmicommand.MutatingResource
	qrmiquery.ResourceReader
	Poll(ctx context.Context, jobID string, interval time.Duration) iter.Seq2[core.TaskStatus, error]
	Close(ctx context.Context) error
}

type Commands struct {
	Acquire   *qrmicommand.AcquireCommand
	Release   *qrmicommand.ReleaseCommand
	TaskStart *qrmicommand.TaskStartCommand
	TaskStop  *qrmicommand.TaskStopCommand
}

type Queries struct {
	IsAccessible *qrmiquery.IsAccessibleQuery
	Target       *qrmiquery.TargetQuery
	Metadata     *qrmiquery.MetadataQuery
	TaskStatus   *qrmiquery.TaskStatusQuery
	TaskResult   *qrmiquery.TaskResultQuery
	TaskLogs     *qrmiquery.TaskLogsQuery
}

// Facade is the high-level binding over one resource. Every call goes
// through the command and query handlers.
type Facade struct {
	service  ResourceService
	client   *VendorClient
	commands Commands
	queries  Queries
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	config          core.Config
	resolver        *credentials.Resolver
	resourceOptions []core.Option
	transport       core.TransportAdapter
	authClient      *resty.Client
	logger          core.Logger
	loggerProvider  core.LoggerProvider
	clock           core.Clock
	mock            *mock.Config
}

func WithConfig(cfg core.Config) FacadeOption {
	return func(o *facadeOptions) {
		o.config = cfg
	}
}

func WithResolver(resolver *credentials.Resolver) FacadeOption {
	return func(o *facadeOptions) {
		o.resolver = resolver
	}
}

// WithResourceOptions forwards options to core.NewResource.
func WithResourceOptions(opts ...core.Option) FacadeOption {
	return func(o *facadeOptions) {
		o.resourceOptions = append(o.resourceOptions, opts...)
	}
}

// WithTransport replaces the base HTTP transport of the vendor client.
func WithTransport(adapter core.TransportAdapter) FacadeOption {
	return func(o *facadeOptions) {
		o.transport = adapter
	}
}

func WithAuthClient(client *resty.Client) FacadeOption {
	return func(o *facadeOptions) {
		o.authClient = client
	}
}

func WithFacadeLogger(logger core.Logger) FacadeOption {
	return func(o *facadeOptions) {
		o.logger = logger
	}
}

// WithFacadeLoggerProvider names vendor loggers qrmi.<resource_type> through
// provider; the facade logger is used when provider is nil.
func WithFacadeLoggerProvider(provider core.LoggerProvider) FacadeOption {
	return func(o *facadeOptions) {
		o.loggerProvider = provider
	}
}

func WithFacadeClock(clock core.Clock) FacadeOption {
	return func(o *facadeOptions) {
		o.clock = clock
	}
}

func WithMockConfig(cfg mock.Config) FacadeOption {
	return func(o *facadeOptions) {
		copied := cfg
		o.mock = &copied
	}
}

// New resolves credentials for name, builds the vendor client and returns a
// facade over the resulting resource.
func New(ctx context.Context, name string, resourceType core.ResourceType, opts ...FacadeOption) (*Facade, error) {
	options := facadeOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	if !resourceType.Valid() {
		return nil, core.BadInputError(fmt.Sprintf("qrmi: resource type %q is invalid", resourceType))
	}

	cfg, err := core.ResolveConfig(ctx, options.config, nil, nil)
	if err != nil {
		return nil, core.WrapError(err, core.ErrorBadInput, "qrmi: invalid configuration")
	}
	_, logger := glog.Resolve("qrmi", options.loggerProvider, options.logger)
	logger = glog.Ensure(logger)

	resolver := options.resolver
	if resolver == nil {
		resolver = credentials.NewResolver(
			credentials.WithConfig(cfg.Credentials),
			credentials.WithLogger(logger),
		)
	}
	resolved, err := resolver.Resolve(ctx, name, resourceType)
	if err != nil {
		return nil, err
	}

	client, err := NewVendorClient(ctx, ClientSpec{
		Name:         name,
		ResourceType: resourceType,
		Credentials:  resolved,
		Config:       cfg,
		Transport:    options.transport,
		AuthClient:   options.authClient,
		Clock:        options.clock,
		Logger:       logger,
		Loggers:      options.loggerProvider,
		Mock:         options.mock,
	})
	if err != nil {
		return nil, err
	}

	resourceOptions := []core.Option{core.WithLogger(logger)}
	if options.loggerProvider != nil {
		resourceOptions = append(resourceOptions, core.WithLoggerProvider(options.loggerProvider))
	}
	if options.clock != nil {
		resourceOptions = append(resourceOptions, core.WithClock(options.clock))
	}
	resourceOptions = append(resourceOptions, options.resourceOptions...)
	resource, err := core.NewResource(cfg, client.VendorClient, resourceOptions...)
	if err != nil {
		return nil, err
	}

	facade, err := NewFacade(resource)
	if err != nil {
		return nil, err
	}
	facade.client = client
	return facade, nil
}

// NewFacade wires the command and query handlers around service.
func NewFacade(service ResourceService) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("qrmi: resource service is required")
	}
	return &Facade{
		service: service,
		commands: Commands{
			Acquire:   qrmicommand.NewAcquireCommand(service),
			Release:   qrmicommand.NewReleaseCommand(service),
			TaskStart: qrmicommand.NewTaskStartCommand(service),
			TaskStop:  qrmicommand.NewTaskStopCommand(service),
		},
		queries: Queries{
			IsAccessible: qrmiquery.NewIsAccessibleQuery(service),
			Target:       qrmiquery.NewTargetQuery(service),
			Metadata:     qrmiquery.NewMetadataQuery(service),
			TaskStatus:   qrmiquery.NewTaskStatusQuery(service),
			TaskResult:   qrmiquery.NewTaskResultQuery(service),
			TaskLogs:     qrmiquery.NewTaskLogsQuery(service),
		},
	}, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() ResourceService {
	if f == nil {
		return nil
	}
	return f.service
}

// Resource returns the underlying resource when the facade was built by New.
func (f *Facade) Resource() (*core.Resource, bool) {
	if f == nil {
		return nil, false
	}
	resource, ok := f.service.(*core.Resource)
	return resource, ok
}

// VendorClient returns the vendor client built by New, or nil.
func (f *Facade) VendorClient() *VendorClient {
	if f == nil {
		return nil
	}
	return f.client
}

func (f *Facade) IsAccessible(ctx context.Context) (bool, error) {
	return f.queries.IsAccessible.Query(ctx, qrmiquery.IsAccessibleMessage{})
}

func (f *Facade) Acquire(ctx context.Context) (core.AcquisitionLock, error) {
	collector := gocmd.NewResult[core.AcquisitionLock]()
	if err := f.commands.Acquire.Execute(gocmd.ContextWithResult(ctx, collector), qrmicommand.AcquireMessage{}); err != nil {
		return core.AcquisitionLock{}, err
	}
	lock, _ := collector.Load()
	return lock, nil
}

func (f *Facade) Release(ctx context.Context, lock core.AcquisitionLock) error {
	return f.commands.Release.Execute(ctx, qrmicommand.ReleaseMessage{Lock: lock})
}

func (f *Facade) Target(ctx context.Context) (core.Target, error) {
	return f.queries.Target.Query(ctx, qrmiquery.TargetMessage{})
}

func (f *Facade) Metadata(ctx context.Context) (map[string]string, error) {
	return f.queries.Metadata.Query(ctx, qrmiquery.MetadataMessage{})
}

func (f *Facade) TaskStart(ctx context.Context, payload core.Payload) (string, error) {
	collector := gocmd.NewResult[string]()
	if err := f.commands.TaskStart.Execute(gocmd.ContextWithResult(ctx, collector), qrmicommand.TaskStartMessage{Payload: payload}); err != nil {
		return "", err
	}
	jobID, _ := collector.Load()
	return jobID, nil
}

func (f *Facade) TaskStop(ctx context.Context, jobID string) error {
	return f.commands.TaskStop.Execute(ctx, qrmicommand.TaskStopMessage{JobID: jobID})
}

func (f *Facade) TaskStatus(ctx context.Context, jobID string) (core.TaskStatus, error) {
	return f.queries.TaskStatus.Query(ctx, qrmiquery.TaskStatusMessage{JobMessage: qrmiquery.JobMessage{JobID: jobID}})
}

func (f *Facade) TaskResult(ctx context.Context, jobID string) (core.TaskResult, error) {
	return f.queries.TaskResult.Query(ctx, qrmiquery.TaskResultMessage{JobMessage: qrmiquery.JobMessage{JobID: jobID}})
}

func (f *Facade) TaskLogs(ctx context.Context, jobID string) (string, error) {
	return f.queries.TaskLogs.Query(ctx, qrmiquery.TaskLogsMessage{JobMessage: qrmiquery.JobMessage{JobID: jobID}})
}

// Poll observes jobID until it is terminal; see core.Resource.Poll.
func (f *Facade) Poll(ctx context.Context, jobID string, interval time.Duration) iter.Seq2[core.TaskStatus, error] {
	return f.service.Poll(ctx, jobID, interval)
}

// Close releases a lock still held by the facade's resource.
func (f *Facade) Close(ctx context.Context) error {
	if f == nil || f.service == nil {
		return nil
	}
	return f.service.Close(ctx)
}

var _ ResourceService = (*core.Resource)(nil)
