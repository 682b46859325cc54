package credentials

import (
	"strings"

	"github.com/goliatone/go-qrmi/core"
)

const (
	FieldAPIKey       = "api_key"
	FieldServiceCRN   = "service_crn"
	FieldEndpoint     = "endpoint"
	FieldIAMEndpoint  = "iam_endpoint"
	FieldSessionMode  = "session_mode"
	FieldProjectID    = "project_id"
	FieldToken        = "token"
	FieldUsername     = "username"
	FieldPassword     = "password"
	FieldAuthEndpoint = "auth_endpoint"
)

// FieldSpec describes one credential field. EnvSuffix is appended to the
// vendor namespace to build environment and resource-file keys.
type FieldSpec struct {
	Name      string
	EnvSuffix string
	Secret    bool
}

// Schema is the minimum a vendor needs. Every field in Required must be
// present, and at least one group of OneOf must be complete.
type Schema struct {
	ResourceType core.ResourceType
	ConfigDir    string
	Fields       []FieldSpec
	Required     []string
	OneOf        [][]string
}

func (s Schema) Field(name string) (FieldSpec, bool) {
	for _, field := range s.Fields {
		if field.Name == name {
			return field, true
		}
	}
	return FieldSpec{}, false
}

func (s Schema) knows(name string) bool {
	_, ok := s.Field(name)
	return ok
}

var ibmFields = []FieldSpec{
	{Name: FieldAPIKey, EnvSuffix: "API_KEY", Secret: true},
	{Name: FieldServiceCRN, EnvSuffix: "SERVICE_CRN"},
	{Name: FieldEndpoint, EnvSuffix: "ENDPOINT"},
	{Name: FieldIAMEndpoint, EnvSuffix: "IAM_ENDPOINT"},
}

// SchemaFor returns the credential schema of a resource type.
func SchemaFor(resourceType core.ResourceType) (Schema, bool) {
	switch resourceType {
	case core.ResourceTypeDirectAccess:
		return Schema{
			ResourceType: resourceType,
			ConfigDir:    ".ibm",
			Fields:       ibmFields,
			Required:     []string{FieldAPIKey, FieldServiceCRN},
		}, true
	case core.ResourceTypeQiskitRuntimeService:
		fields := append(append([]FieldSpec{}, ibmFields...), FieldSpec{Name: FieldSessionMode, EnvSuffix: "SESSION_MODE"})
		return Schema{
			ResourceType: resourceType,
			ConfigDir:    ".ibm",
			Fields:       fields,
			Required:     []string{FieldAPIKey, FieldServiceCRN},
		}, true
	case core.ResourceTypePasqalCloud:
		return Schema{
			ResourceType: resourceType,
			ConfigDir:    ".pasqal",
			Fields: []FieldSpec{
				{Name: FieldProjectID, EnvSuffix: "PROJECT_ID"},
				{Name: FieldToken, EnvSuffix: "AUTH_TOKEN", Secret: true},
				{Name: FieldUsername, EnvSuffix: "USERNAME"},
				{Name: FieldPassword, EnvSuffix: "PASSWORD", Secret: true},
				{Name: FieldAuthEndpoint, EnvSuffix: "AUTH_ENDPOINT"},
			},
			Required: []string{FieldProjectID},
			OneOf:    [][]string{{FieldToken}, {FieldUsername, FieldPassword}},
		}, true
	case core.ResourceTypeIonQCloud:
		return Schema{
			ResourceType: resourceType,
			ConfigDir:    ".ionq",
			Fields: []FieldSpec{
				{Name: FieldAPIKey, EnvSuffix: "API_KEY", Secret: true},
			},
			Required: []string{FieldAPIKey},
		}, true
	case core.ResourceTypeMock:
		return Schema{ResourceType: resourceType}, true
	default:
		return Schema{}, false
	}
}

// envKeys lists the environment variables consulted for a field, in order:
// <BACKEND>_<VENDOR>_<FIELD> with the backend normalized, the compatibility
// spellings <backend>_QRMI_<VENDOR>_<FIELD> (verbatim, then normalized), and
// finally the backend-independent QRMI_<VENDOR>_<FIELD>.
func envKeys(backend string, resourceType core.ResourceType, field FieldSpec) []string {
	namespaced := resourceType.EnvNamespace() + "_" + field.EnvSuffix
	keys := []string{}
	backend = strings.TrimSpace(backend)
	if backend != "" {
		normalized := core.EnvPrefix(backend)
		keys = append(keys, normalized+"_"+strings.TrimPrefix(namespaced, "QRMI_"))
		keys = append(keys, backend+"_"+namespaced)
		if normalized != backend {
			keys = append(keys, normalized+"_"+namespaced)
		}
	}
	return append(keys, namespaced)
}

// resourceFileKey is the key of a field inside a resource's environment map
// in the scheduler resource file.
func resourceFileKey(resourceType core.ResourceType, field FieldSpec) string {
	return resourceType.EnvNamespace() + "_" + field.EnvSuffix
}
