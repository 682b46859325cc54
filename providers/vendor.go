package providers

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/goliatone/go-qrmi/core"
	"github.com/goliatone/go-qrmi/transport"
)

const (
	MetadataBackendName  = "backend_name"
	MetadataLockKind     = "lock_kind"
	LockKindSynthetic    = "synthetic"
	LockKindSession      = "session"
	NoLogsMessage        = "There are no logs for this job."
	defaultMetadataCount = 4
)

type BaseConfig struct {
	ResourceName    string
	ResourceType    core.ResourceType
	BaseURL         string
	Transport       core.TransportAdapter
	TransportConfig core.TransportConfig
	Headers         map[string]string
	StatusMap       core.StatusMap
	Metadata        map[string]string
}

// Base carries what every HTTP vendor client has in common.
type Base struct {
	name         string
	resourceType core.ResourceType
	statusMap    core.StatusMap
	metadata     map[string]string
	API          *transport.JSONClient
}

func NewBase(cfg BaseConfig) (*Base, error) {
	name := strings.TrimSpace(cfg.ResourceName)
	if name == "" {
		return nil, core.BadInputError("providers: resource name is required")
	}
	if !cfg.ResourceType.Valid() {
		return nil, core.BadInputError(fmt.Sprintf("providers: resource type %q is invalid", cfg.ResourceType))
	}
	if cfg.Transport == nil {
		return nil, core.NewError(core.ErrorInternal, "providers: transport is required")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, core.BadInputError("providers: base url is required")
	}

	api := transport.NewJSONClient(cfg.Transport, cfg.BaseURL, cfg.TransportConfig)
	for key, value := range cfg.Headers {
		api.Headers[key] = value
	}
	metadata := make(map[string]string, len(cfg.Metadata)+defaultMetadataCount)
	for key, value := range cfg.Metadata {
		metadata[key] = value
	}
	metadata[MetadataBackendName] = name

	return &Base{
		name:         name,
		resourceType: cfg.ResourceType,
		statusMap:    cfg.StatusMap,
		metadata:     metadata,
		API:          api,
	}, nil
}

func (b *Base) ResourceName() string {
	return b.name
}

func (b *Base) ResourceType() core.ResourceType {
	return b.resourceType
}

func (b *Base) StatusMap() core.StatusMap {
	return b.statusMap
}

func (b *Base) Metadata() map[string]string {
	out := make(map[string]string, len(b.metadata))
	for key, value := range b.metadata {
		out[key] = value
	}
	return out
}

// SyntheticLock stands in for a reservation on vendors that have none.
func SyntheticLock() core.VendorLock {
	return core.VendorLock{
		Token:    uuid.NewString(),
		Metadata: map[string]string{MetadataLockKind: LockKindSynthetic},
	}
}

// RequireJobID rejects blank job identifiers before they reach a URL path.
func RequireJobID(jobID string) (string, error) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return "", core.BadInputError("providers: job id is required")
	}
	if strings.ContainsAny(jobID, "/?#") {
		return "", core.BadInputError(fmt.Sprintf("providers: job id %q is invalid", jobID))
	}
	return jobID, nil
}

// UnexpectedPayload reports a payload kind the vendor cannot run.
func UnexpectedPayload(resourceType core.ResourceType, payload core.Payload) error {
	kind := "nil"
	if payload != nil {
		kind = string(payload.Kind())
	}
	return core.BadInputError(fmt.Sprintf("providers: %s does not accept %s payloads", resourceType, kind))
}
