package qrmi

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/goliatone/go-qrmi/adapters/gologger"
	"github.com/goliatone/go-qrmi/auth"
	"github.com/goliatone/go-qrmi/core"
	"github.com/goliatone/go-qrmi/credentials"
	"github.com/goliatone/go-qrmi/providers/directaccess"
	"github.com/goliatone/go-qrmi/providers/ionq"
	"github.com/goliatone/go-qrmi/providers/mock"
	"github.com/goliatone/go-qrmi/providers/pasqal"
	"github.com/goliatone/go-qrmi/providers/qiskitruntime"
	"github.com/goliatone/go-qrmi/ratelimit"
	"github.com/goliatone/go-qrmi/transport"
)

// ClientSpec is everything NewVendorClient needs for one resource.
type ClientSpec struct {
	Name         string
	ResourceType core.ResourceType
	Credentials  credentials.Resolved
	Config       core.Config

	// Transport is the unauthenticated base adapter; a REST adapter built
	// from Config.Transport is used when nil.
	Transport core.TransportAdapter
	// AuthClient is used for token endpoint calls.
	AuthClient *resty.Client
	Clock      core.Clock
	Logger     core.Logger
	// Loggers, when set, supplies the qrmi.<resource_type> vendor logger.
	Loggers core.LoggerProvider
	// Mock configures the simulator when ResourceType is mock.
	Mock *mock.Config
}

// VendorClient is a built vendor client plus the token manager that feeds
// its transport. Tokens is nil for vendors without authentication.
type VendorClient struct {
	core.VendorClient
	Tokens *auth.Manager
}

// NewVendorClient builds the client of spec.ResourceType. Authentication is
// layered into the transport so vendors only see successful exchanges or
// taxonomy errors.
func NewVendorClient(ctx context.Context, spec ClientSpec) (*VendorClient, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(spec.Name)
	if name == "" {
		return nil, core.BadInputError("qrmi: resource name is required")
	}
	if spec.Config.ServiceName == "" {
		spec.Config = core.DefaultConfig()
	}
	spec.Logger = gologger.ResolveForResource(spec.ResourceType, spec.Loggers, spec.Logger)

	switch spec.ResourceType {
	case core.ResourceTypeDirectAccess:
		tokens, base, err := iamTransport(spec)
		if err != nil {
			return nil, err
		}
		client, err := directaccess.New(directaccess.Config{
			ResourceName:    name,
			Endpoint:        spec.Credentials.Value(credentials.FieldEndpoint),
			ServiceCRN:      spec.Credentials.Value(credentials.FieldServiceCRN),
			Transport:       base,
			TransportConfig: spec.Config.Transport,
		})
		if err != nil {
			return nil, err
		}
		return &VendorClient{VendorClient: client, Tokens: tokens}, nil

	case core.ResourceTypeQiskitRuntimeService:
		tokens, base, err := iamTransport(spec)
		if err != nil {
			return nil, err
		}
		client, err := qiskitruntime.New(qiskitruntime.Config{
			ResourceName:    name,
			Endpoint:        spec.Credentials.Value(credentials.FieldEndpoint),
			ServiceCRN:      spec.Credentials.Value(credentials.FieldServiceCRN),
			SessionMode:     spec.Credentials.Value(credentials.FieldSessionMode),
			Transport:       base,
			TransportConfig: spec.Config.Transport,
		})
		if err != nil {
			return nil, err
		}
		return &VendorClient{VendorClient: client, Tokens: tokens}, nil

	case core.ResourceTypePasqalCloud:
		device, err := pasqal.ParseDevice(name)
		if err != nil {
			return nil, err
		}
		tokens, err := pasqalTokens(spec)
		if err != nil {
			return nil, err
		}
		authed, err := authenticated(spec, tokens, transport.SchemeBearer)
		if err != nil {
			return nil, err
		}
		client, err := pasqal.New(pasqal.Config{
			ResourceName:    device,
			ProjectID:       spec.Credentials.Value(credentials.FieldProjectID),
			Transport:       authed,
			TransportConfig: spec.Config.Transport,
		})
		if err != nil {
			return nil, err
		}
		return &VendorClient{VendorClient: client, Tokens: tokens}, nil

	case core.ResourceTypeIonQCloud:
		backend, err := ionq.ParseBackend(name)
		if err != nil {
			return nil, err
		}
		source, err := auth.NewStaticTokenSource(spec.Credentials.Value(credentials.FieldAPIKey), nil)
		if err != nil {
			return nil, err
		}
		tokens, err := newManager(spec, source, auth.WithInitialToken(source.Initial()))
		if err != nil {
			return nil, err
		}
		authed, err := authenticated(spec, tokens, transport.SchemeAPIKey)
		if err != nil {
			return nil, err
		}
		client, err := ionq.New(ionq.Config{
			ResourceName:    backend,
			Transport:       authed,
			TransportConfig: spec.Config.Transport,
		})
		if err != nil {
			return nil, err
		}
		return &VendorClient{VendorClient: client, Tokens: tokens}, nil

	case core.ResourceTypeMock:
		cfg := mock.DefaultConfig()
		if spec.Mock != nil {
			cfg = *spec.Mock
		}
		cfg.ResourceName = name
		client, err := mock.New(cfg)
		if err != nil {
			return nil, err
		}
		return &VendorClient{VendorClient: client}, nil

	default:
		return nil, core.BadInputError(fmt.Sprintf("qrmi: resource type %q is not supported", spec.ResourceType))
	}
}

func baseTransport(spec ClientSpec) (core.TransportAdapter, error) {
	if spec.Transport != nil {
		return spec.Transport, nil
	}
	config := transport.ConfigMap(spec.Config.Transport)
	if spec.Logger != nil {
		config["logger"] = spec.Logger
	}
	return transport.NewDefaultRegistry().Build(transport.KindREST, config)
}

func newManager(spec ClientSpec, source core.TokenSource, opts ...auth.ManagerOption) (*auth.Manager, error) {
	options := []auth.ManagerOption{
		auth.WithName(string(spec.ResourceType) + ":" + strings.TrimSpace(spec.Name)),
		auth.WithRefreshMargin(spec.Config.Auth.RefreshMargin),
		auth.WithClock(spec.Clock),
		auth.WithLogger(spec.Logger),
	}
	return auth.NewManager(source, append(options, opts...)...)
}

func authenticated(spec ClientSpec, tokens core.TokenProvider, scheme string) (core.TransportAdapter, error) {
	base, err := baseTransport(spec)
	if err != nil {
		return nil, err
	}
	bucket := string(spec.ResourceType) + ":" + strings.TrimSpace(spec.Name)
	return transport.NewAuthenticatedTransport(base, tokens,
		transport.WithScheme(scheme),
		transport.WithRateLimit(ratelimit.NewPolicy(spec.Config.Transport.RateLimit), bucket),
		transport.WithAuthLogger(spec.Logger),
	), nil
}

func iamTransport(spec ClientSpec) (*auth.Manager, core.TransportAdapter, error) {
	source, err := auth.NewIAMSource(auth.IAMConfig{
		Endpoint: spec.Credentials.Value(credentials.FieldIAMEndpoint),
		APIKey:   spec.Credentials.Value(credentials.FieldAPIKey),
		Timeout:  spec.Config.Transport.Timeout,
		Client:   spec.AuthClient,
	})
	if err != nil {
		return nil, nil, err
	}
	tokens, err := newManager(spec, source)
	if err != nil {
		return nil, nil, err
	}
	authed, err := authenticated(spec, tokens, transport.SchemeBearer)
	if err != nil {
		return nil, nil, err
	}
	return tokens, authed, nil
}

// pasqalTokens prefers a configured token and keeps username and password as
// refresh material for when it expires.
func pasqalTokens(spec ClientSpec) (*auth.Manager, error) {
	resolved := spec.Credentials
	token := strings.TrimSpace(resolved.Value(credentials.FieldToken))
	username := strings.TrimSpace(resolved.Value(credentials.FieldUsername))
	password := resolved.Value(credentials.FieldPassword)

	var static *auth.StaticTokenSource
	if token != "" {
		source, err := auth.NewStaticTokenSource(token, nil)
		if err != nil {
			return nil, err
		}
		static = source
	}

	if username != "" && password != "" {
		grant, err := auth.NewPasswordGrantSource(auth.PasswordGrantConfig{
			Endpoint: resolved.Value(credentials.FieldAuthEndpoint),
			Username: username,
			Password: password,
			Timeout:  spec.Config.Transport.Timeout,
			Client:   spec.AuthClient,
		})
		if err != nil {
			return nil, err
		}
		var opts []auth.ManagerOption
		if static != nil {
			opts = append(opts, auth.WithInitialToken(static.Initial()))
		}
		return newManager(spec, grant, opts...)
	}
	if static == nil {
		return nil, core.CredentialsMissingError("qrmi: pasqal requires a token or a username and password", map[string]any{
			"resource": spec.Name,
		})
	}
	return newManager(spec, static, auth.WithInitialToken(static.Initial()))
}
