package core

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

type ResourceType string

const (
	ResourceTypeDirectAccess         ResourceType = "direct-access"
	ResourceTypeQiskitRuntimeService ResourceType = "qiskit-runtime-service"
	ResourceTypePasqalCloud          ResourceType = "pasqal-cloud"
	ResourceTypeIonQCloud            ResourceType = "ionq-cloud"
	ResourceTypeMock                 ResourceType = "mock"
)

var resourceTypeAliases = map[string]ResourceType{
	"direct-access":           ResourceTypeDirectAccess,
	"directaccess":            ResourceTypeDirectAccess,
	"ibmdirectaccess":         ResourceTypeDirectAccess,
	"qiskit-runtime-service":  ResourceTypeQiskitRuntimeService,
	"qiskitruntimeservice":    ResourceTypeQiskitRuntimeService,
	"ibmqiskitruntimeservice": ResourceTypeQiskitRuntimeService,
	"pasqal-cloud":            ResourceTypePasqalCloud,
	"pasqalcloud":             ResourceTypePasqalCloud,
	"ionq-cloud":              ResourceTypeIonQCloud,
	"ionqcloud":               ResourceTypeIonQCloud,
	"mock":                    ResourceTypeMock,
}

// ResourceTypes returns the closed set of supported resource types.
func ResourceTypes() []ResourceType {
	return []ResourceType{
		ResourceTypeDirectAccess,
		ResourceTypeQiskitRuntimeService,
		ResourceTypePasqalCloud,
		ResourceTypeIonQCloud,
		ResourceTypeMock,
	}
}

// ParseResourceType accepts the canonical value, the CamelCase variant name
// (IBMDirectAccess, PasqalCloud, ...) and underscore spellings.
func ParseResourceType(raw string) (ResourceType, error) {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.ReplaceAll(key, "_", "-")
	if resourceType, ok := resourceTypeAliases[key]; ok {
		return resourceType, nil
	}
	if resourceType, ok := resourceTypeAliases[strings.ReplaceAll(key, "-", "")]; ok {
		return resourceType, nil
	}
	return "", fmt.Errorf("core: unknown resource type %q", raw)
}

func (t ResourceType) Valid() bool {
	switch t {
	case ResourceTypeDirectAccess,
		ResourceTypeQiskitRuntimeService,
		ResourceTypePasqalCloud,
		ResourceTypeIonQCloud,
		ResourceTypeMock:
		return true
	default:
		return false
	}
}

func (t ResourceType) String() string {
	return string(t)
}

// EnvNamespace is the vendor segment of credential environment variables,
// as in <BACKEND>_<NAMESPACE>_<FIELD>.
func (t ResourceType) EnvNamespace() string {
	switch t {
	case ResourceTypeDirectAccess:
		return "QRMI_IBM_DA"
	case ResourceTypeQiskitRuntimeService:
		return "QRMI_IBM_QRS"
	case ResourceTypePasqalCloud:
		return "QRMI_PASQAL_CLOUD"
	case ResourceTypeIonQCloud:
		return "QRMI_IONQ_CLOUD"
	case ResourceTypeMock:
		return "QRMI_MOCK"
	default:
		return ""
	}
}

type TaskStatus string

const (
	TaskStatusQueued    TaskStatus = "queued"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusCancelled TaskStatus = "cancelled"
)

func TaskStatuses() []TaskStatus {
	return []TaskStatus{
		TaskStatusQueued,
		TaskStatusRunning,
		TaskStatusCompleted,
		TaskStatusFailed,
		TaskStatusCancelled,
	}
}

func (s TaskStatus) Terminal() bool {
	switch s {
	case TaskStatusCompleted, TaskStatusFailed, TaskStatusCancelled:
		return true
	default:
		return false
	}
}

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusQueued, TaskStatusRunning, TaskStatusCompleted, TaskStatusFailed, TaskStatusCancelled:
		return true
	default:
		return false
	}
}

type PayloadKind string

const (
	PayloadKindQiskitPrimitive PayloadKind = "qiskit_primitive"
	PayloadKindPasqalCloud     PayloadKind = "pasqal_cloud"
	PayloadKindIonQCloud       PayloadKind = "ionq_cloud"
	PayloadKindCircuit         PayloadKind = "circuit"
)

// Payload is the closed set of task inputs. Implementations are value types
// so a payload cannot change after it is handed to TaskStart.
type Payload interface {
	Kind() PayloadKind
	Validate() error
	isPayload()
}

type QiskitPrimitive struct {
	Input     string
	ProgramID string
}

func (QiskitPrimitive) Kind() PayloadKind { return PayloadKindQiskitPrimitive }
func (QiskitPrimitive) isPayload()        {}

func (p QiskitPrimitive) Validate() error {
	if strings.TrimSpace(p.Input) == "" {
		return fmt.Errorf("core: qiskit primitive input is required")
	}
	switch strings.TrimSpace(p.ProgramID) {
	case "sampler", "estimator":
		return nil
	case "":
		return fmt.Errorf("core: qiskit primitive program id is required")
	default:
		return fmt.Errorf("core: qiskit primitive program id %q is invalid", p.ProgramID)
	}
}

type PasqalSequence struct {
	Sequence string
	JobRuns  int
}

func (PasqalSequence) Kind() PayloadKind { return PayloadKindPasqalCloud }
func (PasqalSequence) isPayload()        {}

func (p PasqalSequence) Validate() error {
	if strings.TrimSpace(p.Sequence) == "" {
		return fmt.Errorf("core: pasqal sequence is required")
	}
	if p.JobRuns <= 0 {
		return fmt.Errorf("core: pasqal job runs must be positive")
	}
	return nil
}

type IonQCircuit struct {
	Input  string
	Target string
	Shots  int
}

func (IonQCircuit) Kind() PayloadKind { return PayloadKindIonQCloud }
func (IonQCircuit) isPayload()        {}

func (p IonQCircuit) Validate() error {
	if strings.TrimSpace(p.Input) == "" {
		return fmt.Errorf("core: ionq circuit input is required")
	}
	if p.Shots <= 0 {
		return fmt.Errorf("core: ionq shots must be positive")
	}
	return nil
}

// Circuit is a vendor-neutral textual circuit accepted by the local simulator.
type Circuit struct {
	Circuit string
	Shots   int
}

func (Circuit) Kind() PayloadKind { return PayloadKindCircuit }
func (Circuit) isPayload()        {}

func (p Circuit) Validate() error {
	if strings.TrimSpace(p.Circuit) == "" {
		return fmt.Errorf("core: circuit is required")
	}
	if p.Shots < 0 {
		return fmt.Errorf("core: circuit shots must not be negative")
	}
	return nil
}

type TaskResult struct {
	Value string
}

type Target struct {
	Value string
}

// VendorLock is what a vendor client hands back from Reserve. Vendors without
// a reservation concept synthesize the token locally.
type VendorLock struct {
	Token    string
	Metadata map[string]string
}

type VendorStatus struct {
	Native string
	Reason string
}

type AcquisitionLock struct {
	Token        string
	ResourceName string
	ResourceType ResourceType
	AcquiredAt   time.Time
	Metadata     map[string]string
}

func (l AcquisitionLock) VendorLock() VendorLock {
	return VendorLock{Token: l.Token, Metadata: copyStringMap(l.Metadata)}
}

func (l AcquisitionLock) IssuedBy(name string, resourceType ResourceType) bool {
	return strings.TrimSpace(l.ResourceName) == strings.TrimSpace(name) && l.ResourceType == resourceType
}

type TaskRecord struct {
	JobID        string
	ResourceName string
	ResourceType ResourceType
	LockToken    string
	PayloadKind  PayloadKind
	Status       TaskStatus
	SubmittedAt  time.Time
	UpdatedAt    time.Time
}

type CredentialKind string

const (
	CredentialKindUsernamePassword CredentialKind = "username_password"
	CredentialKindAPIToken         CredentialKind = "api_token"
	CredentialKindAPIKey           CredentialKind = "api_key"
)

// Credentials is a tagged union; only the fields of Kind are meaningful.
type Credentials struct {
	Kind     CredentialKind
	Username string
	Password string
	Token    string
	Key      string
}

func UsernamePassword(username, password string) Credentials {
	return Credentials{
		Kind:     CredentialKindUsernamePassword,
		Username: strings.TrimSpace(username),
		Password: password,
	}
}

func APIToken(token string) Credentials {
	return Credentials{Kind: CredentialKindAPIToken, Token: strings.TrimSpace(token)}
}

func APIKey(key string) Credentials {
	return Credentials{Kind: CredentialKindAPIKey, Key: strings.TrimSpace(key)}
}

func (c Credentials) Validate() error {
	switch c.Kind {
	case CredentialKindUsernamePassword:
		if strings.TrimSpace(c.Username) == "" || c.Password == "" {
			return fmt.Errorf("core: username and password are required")
		}
	case CredentialKindAPIToken:
		if strings.TrimSpace(c.Token) == "" {
			return fmt.Errorf("core: api token is required")
		}
	case CredentialKindAPIKey:
		if strings.TrimSpace(c.Key) == "" {
			return fmt.Errorf("core: api key is required")
		}
	default:
		return fmt.Errorf("core: credential kind %q is invalid", c.Kind)
	}
	return nil
}

// Secret returns the bearer material for token and key credentials.
func (c Credentials) Secret() string {
	switch c.Kind {
	case CredentialKindAPIToken:
		return c.Token
	case CredentialKindAPIKey:
		return c.Key
	default:
		return ""
	}
}

func (c Credentials) String() string {
	switch c.Kind {
	case CredentialKindUsernamePassword:
		return fmt.Sprintf("Credentials{kind=%s username=%s password=%s}", c.Kind, c.Username, RedactedValue)
	case CredentialKindAPIToken, CredentialKindAPIKey:
		return fmt.Sprintf("Credentials{kind=%s secret=%s}", c.Kind, RedactedValue)
	default:
		return "Credentials{}"
	}
}

func (c Credentials) GoString() string {
	return c.String()
}

func copyStringMap(in map[string]string) map[string]string {
	if len(in) == 0 {
		return map[string]string{}
	}
	out := make(map[string]string, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}

func sortedKeys[V any](in map[string]V) []string {
	keys := make([]string, 0, len(in))
	for key := range in {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
