// Package security supplies credential fields from external secret stores.
package security

import (
	"context"
	"fmt"
	"strings"

	vault "github.com/hashicorp/vault/api"

	"github.com/goliatone/go-qrmi/core"
	"github.com/goliatone/go-qrmi/credentials"
)

const (
	DefaultVaultAddress = "http://localhost:8200"
	DefaultVaultMount   = "secret"
	DefaultVaultPrefix  = "qrmi"
)

// VaultReader is the subset of *vault.Logical the source reads through.
type VaultReader interface {
	ReadWithContext(ctx context.Context, path string) (*vault.Secret, error)
}

type VaultConfig struct {
	Address string
	Token   string
	Mount   string
	Prefix  string
	// KVVersion selects the KV engine layout; 2 unless set to 1.
	KVVersion int
}

// VaultSource reads <mount>/data/<prefix>/<resource_type>/<backend> (KV v2)
// or <mount>/<prefix>/<resource_type>/<backend> (KV v1). Keys of the secret
// are credential field names such as api_key or project_id.
type VaultSource struct {
	reader    VaultReader
	mount     string
	prefix    string
	kvVersion int
}

func NewVaultSource(cfg VaultConfig) (*VaultSource, error) {
	clientConfig := vault.DefaultConfig()
	clientConfig.Address = strings.TrimSpace(cfg.Address)
	if clientConfig.Address == "" {
		clientConfig.Address = DefaultVaultAddress
	}
	client, err := vault.NewClient(clientConfig)
	if err != nil {
		return nil, fmt.Errorf("security: create vault client: %w", err)
	}
	if token := strings.TrimSpace(cfg.Token); token != "" {
		client.SetToken(token)
	}
	return NewVaultSourceFromReader(client.Logical(), cfg)
}

func NewVaultSourceFromReader(reader VaultReader, cfg VaultConfig) (*VaultSource, error) {
	if reader == nil {
		return nil, fmt.Errorf("security: vault reader is required")
	}
	source := &VaultSource{
		reader:    reader,
		mount:     strings.Trim(strings.TrimSpace(cfg.Mount), "/"),
		prefix:    strings.Trim(strings.TrimSpace(cfg.Prefix), "/"),
		kvVersion: cfg.KVVersion,
	}
	if source.mount == "" {
		source.mount = DefaultVaultMount
	}
	if source.prefix == "" {
		source.prefix = DefaultVaultPrefix
	}
	if source.kvVersion != 1 {
		source.kvVersion = 2
	}
	return source, nil
}

func (s *VaultSource) Name() string {
	return "vault:" + s.mount
}

func (s *VaultSource) Path(backend string, resourceType core.ResourceType) string {
	segments := []string{s.mount}
	if s.kvVersion == 2 {
		segments = append(segments, "data")
	}
	segments = append(segments, s.prefix, string(resourceType), strings.TrimSpace(backend))
	return strings.Join(segments, "/")
}

func (s *VaultSource) Lookup(ctx context.Context, backend string, resourceType core.ResourceType) (map[string]string, error) {
	if s == nil || s.reader == nil {
		return nil, fmt.Errorf("security: vault source is not configured")
	}
	path := s.Path(backend, resourceType)
	secret, err := s.reader.ReadWithContext(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("security: read vault secret %s: %w", path, err)
	}
	if secret == nil || secret.Data == nil {
		return map[string]string{}, nil
	}
	data := secret.Data
	if s.kvVersion == 2 {
		nested, ok := data["data"].(map[string]any)
		if !ok {
			return map[string]string{}, nil
		}
		data = nested
	}
	out := make(map[string]string, len(data))
	for key, value := range data {
		if text, ok := value.(string); ok {
			out[key] = text
		}
	}
	return out, nil
}

var _ credentials.SecretSource = (*VaultSource)(nil)
