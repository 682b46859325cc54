package credentials

import (
	"context"
	"fmt"
	"os"
	"slices"
	"sort"
	"strings"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-qrmi/core"
)

type Source string

const (
	SourceExplicit       Source = "explicit"
	SourceSecret         Source = "secret"
	SourceEnv            Source = "env"
	SourceFileBackend    Source = "file:backend"
	SourceFileGlobal     Source = "file:global"
	SourceResourceConfig Source = "resource-config"
)

// Field is one resolved value together with where it came from. Origin is the
// environment variable, file path or secret reference that supplied it.
type Field struct {
	Name   string
	Value  string
	Source Source
	Origin string
	Secret bool
}

func (f Field) String() string {
	value := f.Value
	if f.Secret {
		value = core.RedactedValue
	}
	return fmt.Sprintf("%s=%s (%s %s)", f.Name, value, f.Source, f.Origin)
}

// Resolved is the outcome of a resolution for one backend.
type Resolved struct {
	Backend      string
	ResourceType core.ResourceType
	Credentials  core.Credentials
	Fields       map[string]Field
}

func (r Resolved) Value(name string) string {
	return r.Fields[name].Value
}

func (r Resolved) Has(name string) bool {
	_, ok := r.Fields[name]
	return ok
}

// Describe lists every field with its source, secrets redacted.
func (r Resolved) Describe() []string {
	names := make([]string, 0, len(r.Fields))
	for name := range r.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, r.Fields[name].String())
	}
	return out
}

// SecretSource supplies credential fields from a secret store. A missing
// backend is not an error: it returns an empty map.
type SecretSource interface {
	Name() string
	Lookup(ctx context.Context, backend string, resourceType core.ResourceType) (map[string]string, error)
}

type Resolver struct {
	env                Environment
	files              FileReader
	homeDir            string
	resourceConfigPath string
	explicit           map[string]string
	secrets            []SecretSource
	logger             glog.Logger
}

type Option func(*Resolver)

func WithEnvironment(env Environment) Option {
	return func(r *Resolver) {
		r.env = env
	}
}

func WithFileReader(reader FileReader) Option {
	return func(r *Resolver) {
		r.files = reader
	}
}

func WithHomeDir(dir string) Option {
	return func(r *Resolver) {
		r.homeDir = strings.TrimSpace(dir)
	}
}

func WithResourceConfigPath(path string) Option {
	return func(r *Resolver) {
		r.resourceConfigPath = strings.TrimSpace(path)
	}
}

// WithExplicit pins a field; it beats every other source.
func WithExplicit(field string, value string) Option {
	return func(r *Resolver) {
		if r.explicit == nil {
			r.explicit = map[string]string{}
		}
		r.explicit[strings.ToLower(strings.TrimSpace(field))] = value
	}
}

func WithSecretSource(source SecretSource) Option {
	return func(r *Resolver) {
		if source != nil {
			r.secrets = append(r.secrets, source)
		}
	}
}

func WithLogger(logger glog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// WithConfig applies the credentials section of core.Config.
func WithConfig(cfg core.CredentialsConfig) Option {
	return func(r *Resolver) {
		if dir := strings.TrimSpace(cfg.ConfigDir); dir != "" {
			r.homeDir = dir
		}
		if path := strings.TrimSpace(cfg.ResourceConfigPath); path != "" {
			r.resourceConfigPath = path
		}
	}
}

func NewResolver(opts ...Option) *Resolver {
	home, _ := os.UserHomeDir()
	resolver := &Resolver{
		env:                OSEnvironment{},
		files:              OSFileReader{},
		homeDir:            home,
		resourceConfigPath: core.DefaultResourceConfigPath,
		explicit:           map[string]string{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(resolver)
		}
	}
	_, resolver.logger = glog.Resolve("qrmi.credentials", nil, resolver.logger)
	resolver.logger = glog.Ensure(resolver.logger)
	return resolver
}

// Resolve gathers every schema field of resourceType for backend. For each
// field the first non-empty source wins: explicit values, secret sources,
// the environment, the backend-scoped file key, the global file key, then
// the scheduler resource file.
func (r *Resolver) Resolve(ctx context.Context, backend string, resourceType core.ResourceType) (Resolved, error) {
	backend = strings.TrimSpace(backend)
	if backend == "" {
		return Resolved{}, core.BadInputError("credentials: backend name is required")
	}
	schema, ok := SchemaFor(resourceType)
	if !ok {
		return Resolved{}, core.BadInputError(fmt.Sprintf("credentials: unknown resource type %q", resourceType))
	}

	resolved := Resolved{Backend: backend, ResourceType: resourceType, Fields: map[string]Field{}}
	if len(schema.Fields) == 0 {
		return resolved, nil
	}

	secrets, err := r.lookupSecrets(ctx, backend, resourceType)
	if err != nil {
		return Resolved{}, err
	}
	configFile, err := loadConfigFile(r.files, r.homeDir, schema.ConfigDir)
	if err != nil {
		return Resolved{}, core.WrapError(err, core.ErrorCredentialsMissing, "credentials: read config file")
	}
	resourceFile, err := loadResourceFile(r.files, r.resourceConfigPath)
	if err != nil {
		r.logger.Warn("ignoring unreadable resource config", "path", r.resourceConfigPath, "error", err.Error())
		resourceFile = ResourceFile{}
	}

	for _, spec := range schema.Fields {
		field, found := r.resolveField(backend, resourceType, spec, secrets, configFile, resourceFile)
		if !found {
			continue
		}
		resolved.Fields[spec.Name] = field
		r.logger.Debug("credential field resolved",
			"backend", backend,
			"resource_type", string(resourceType),
			"field", spec.Name,
			"source", string(field.Source),
		)
	}

	if err := r.checkSchema(backend, schema, resolved); err != nil {
		return Resolved{}, err
	}
	resolved.Credentials = buildCredentials(resourceType, resolved)
	return resolved, nil
}

func (r *Resolver) lookupSecrets(ctx context.Context, backend string, resourceType core.ResourceType) (map[string]Field, error) {
	out := map[string]Field{}
	for _, source := range r.secrets {
		values, err := source.Lookup(ctx, backend, resourceType)
		if err != nil {
			return nil, core.WrapError(err, core.ErrorCredentialsMissing, fmt.Sprintf("credentials: secret source %s failed", source.Name()))
		}
		for key, value := range values {
			key = strings.ToLower(strings.TrimSpace(key))
			if _, exists := out[key]; exists || strings.TrimSpace(value) == "" {
				continue
			}
			out[key] = Field{Name: key, Value: strings.TrimSpace(value), Source: SourceSecret, Origin: source.Name()}
		}
	}
	return out, nil
}

func (r *Resolver) resolveField(
	backend string,
	resourceType core.ResourceType,
	spec FieldSpec,
	secrets map[string]Field,
	configFile ConfigFile,
	resourceFile ResourceFile,
) (Field, bool) {
	field := Field{Name: spec.Name, Secret: spec.Secret}

	if value := strings.TrimSpace(r.explicit[spec.Name]); value != "" {
		field.Value, field.Source, field.Origin = value, SourceExplicit, "option"
		return field, true
	}
	if secret, ok := secrets[spec.Name]; ok {
		secret.Secret = spec.Secret
		return secret, true
	}
	for _, key := range envKeys(backend, resourceType, spec) {
		if value, ok := lookupNonEmpty(r.env, key); ok {
			field.Value, field.Source, field.Origin = value, SourceEnv, key
			return field, true
		}
	}
	if value, ok := configFile.Scoped(backend, spec.Name); ok {
		field.Value, field.Source, field.Origin = value, SourceFileBackend, configFile.Path
		return field, true
	}
	if value, ok := configFile.Global(spec.Name); ok {
		field.Value, field.Source, field.Origin = value, SourceFileGlobal, configFile.Path
		return field, true
	}
	if value, ok := resourceFile.Lookup(backend, resourceFileKey(resourceType, spec)); ok {
		field.Value, field.Source, field.Origin = value, SourceResourceConfig, resourceFile.Path
		return field, true
	}
	return Field{}, false
}

// missingFields expands the unmet requirements of schema into field names,
// including every unresolved member of an unsatisfied OneOf group.
func missingFields(schema Schema, resolved Resolved) []string {
	names := []string{}
	add := func(name string) {
		if !resolved.Has(name) && !slices.Contains(names, name) {
			names = append(names, name)
		}
	}
	for _, name := range schema.Required {
		add(name)
	}
	if len(schema.OneOf) > 0 && !oneOfSatisfied(schema.OneOf, resolved) {
		for _, group := range schema.OneOf {
			for _, name := range group {
				add(name)
			}
		}
	}
	return names
}

func oneOfSatisfied(groups [][]string, resolved Resolved) bool {
	for _, group := range groups {
		complete := true
		for _, name := range group {
			if !resolved.Has(name) {
				complete = false
				break
			}
		}
		if complete {
			return true
		}
	}
	return false
}

func (r *Resolver) checkSchema(backend string, schema Schema, resolved Resolved) error {
	missing := []string{}
	for _, name := range schema.Required {
		if !resolved.Has(name) {
			missing = append(missing, name)
		}
	}
	if len(schema.OneOf) > 0 && !oneOfSatisfied(schema.OneOf, resolved) {
		options := make([]string, 0, len(schema.OneOf))
		for _, group := range schema.OneOf {
			options = append(options, strings.Join(group, "+"))
		}
		missing = append(missing, strings.Join(options, " or "))
	}
	if len(missing) == 0 {
		return nil
	}

	consulted := []string{}
	for _, name := range missingFields(schema, resolved) {
		spec, ok := schema.Field(name)
		if !ok {
			continue
		}
		consulted = append(consulted, envKeys(backend, schema.ResourceType, spec)...)
	}
	message := fmt.Sprintf("credentials: %s %q is missing %s", schema.ResourceType, backend, strings.Join(missing, ", "))
	if len(consulted) > 0 {
		message += "; checked " + strings.Join(consulted, ", ")
	}
	if schema.ConfigDir != "" {
		message += fmt.Sprintf(", ~/%s/config and %s", schema.ConfigDir, r.resourceConfigPath)
	}
	return core.CredentialsMissingError(message, map[string]any{
		"backend":        backend,
		"resource_type":  string(schema.ResourceType),
		"missing_fields": missing,
	})
}

func buildCredentials(resourceType core.ResourceType, resolved Resolved) core.Credentials {
	switch resourceType {
	case core.ResourceTypePasqalCloud:
		if resolved.Has(FieldToken) {
			return core.APIToken(resolved.Value(FieldToken))
		}
		return core.UsernamePassword(resolved.Value(FieldUsername), resolved.Value(FieldPassword))
	case core.ResourceTypeDirectAccess, core.ResourceTypeQiskitRuntimeService, core.ResourceTypeIonQCloud:
		return core.APIKey(resolved.Value(FieldAPIKey))
	default:
		return core.Credentials{}
	}
}
