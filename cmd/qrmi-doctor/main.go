// qrmi-doctor reports which source supplied each credential field of a
// resource, with secret values redacted, and optionally probes whether the
// resource is accessible. It never submits work.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/spf13/pflag"

	qrmi "github.com/goliatone/go-qrmi"
	"github.com/goliatone/go-qrmi/adapters/gologger"
	"github.com/goliatone/go-qrmi/core"
	"github.com/goliatone/go-qrmi/credentials"
	"github.com/goliatone/go-qrmi/security"
)

const (
	exitOK = iota
	exitFailure
	exitUsage
	exitCredentials
	exitInaccessible
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], credentials.OSEnvironment{}, os.Stdout, os.Stderr))
}

type options struct {
	name           string
	resourceType   string
	probe          bool
	configPath     string
	homeDir        string
	resourceConfig string
	vaultAddr      string
	vaultMount     string
	vaultPrefix    string
}

func run(ctx context.Context, args []string, env credentials.Environment, stdout io.Writer, stderr io.Writer) int {
	var opts options
	flagSet := pflag.NewFlagSet("qrmi-doctor", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVarP(&opts.name, "name", "n", "", "resource (backend) name")
	flagSet.StringVarP(&opts.resourceType, "type", "t", "", "resource type, e.g. direct-access or ionq-cloud")
	flagSet.BoolVar(&opts.probe, "probe", false, "build the resource and check that it is accessible")
	flagSet.StringVar(&opts.configPath, "config", "", "YAML, JSON or TOML runtime configuration file")
	flagSet.StringVar(&opts.homeDir, "home", "", "directory holding the vendor config directories (default: $HOME)")
	flagSet.StringVar(&opts.resourceConfig, "resource-config", "", "scheduler resource configuration file")
	flagSet.StringVar(&opts.vaultAddr, "vault-addr", lookup(env, "VAULT_ADDR"), "read credentials from this Vault server; the token comes from VAULT_TOKEN")
	flagSet.StringVar(&opts.vaultMount, "vault-mount", security.DefaultVaultMount, "Vault KV mount")
	flagSet.StringVar(&opts.vaultPrefix, "vault-prefix", security.DefaultVaultPrefix, "Vault path prefix below the mount")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if strings.TrimSpace(opts.name) == "" || strings.TrimSpace(opts.resourceType) == "" {
		fmt.Fprintln(stderr, "qrmi-doctor: --name and --type are required")
		flagSet.PrintDefaults()
		return exitUsage
	}

	loggers := glog.NewLogger(
		glog.WithWriter(stderr),
		glog.WithLevel(gologger.LevelFromEnv(env.LookupEnv)),
		glog.WithLoggerTypeConsole(),
	)
	if err := diagnose(ctx, opts, env, stdout, loggers); err != nil {
		fmt.Fprintf(stderr, "qrmi-doctor: %v\n", err)
		return exitCode(err)
	}
	return exitOK
}

func diagnose(ctx context.Context, opts options, env credentials.Environment, stdout io.Writer, loggers *glog.BaseLogger) error {
	resourceType, err := core.ParseResourceType(opts.resourceType)
	if err != nil {
		return core.WrapError(err, core.ErrorBadInput, "invalid resource type")
	}

	runtime := core.Config{}
	var provider core.ConfigProvider
	if path := strings.TrimSpace(opts.configPath); path != "" {
		provider = core.NewCfgxConfigProvider(core.NewFileConfigLoader(path))
	}
	cfg, err := core.ResolveConfig(ctx, runtime, provider, nil)
	if err != nil {
		return core.WrapError(err, core.ErrorBadInput, "invalid configuration")
	}

	resolverOpts := []credentials.Option{
		credentials.WithEnvironment(env),
		credentials.WithConfig(cfg.Credentials),
		credentials.WithLogger(loggers.GetLogger("qrmi.credentials")),
	}
	if dir := strings.TrimSpace(opts.homeDir); dir != "" {
		resolverOpts = append(resolverOpts, credentials.WithHomeDir(dir))
	}
	if path := strings.TrimSpace(opts.resourceConfig); path != "" {
		resolverOpts = append(resolverOpts, credentials.WithResourceConfigPath(path))
	}
	if addr := strings.TrimSpace(opts.vaultAddr); addr != "" {
		vault, err := security.NewVaultSource(security.VaultConfig{
			Address: addr,
			Token:   lookup(env, "VAULT_TOKEN"),
			Mount:   opts.vaultMount,
			Prefix:  opts.vaultPrefix,
		})
		if err != nil {
			return err
		}
		resolverOpts = append(resolverOpts, credentials.WithSecretSource(vault))
	}
	resolver := credentials.NewResolver(resolverOpts...)

	fmt.Fprintf(stdout, "resource: %s (%s)\n", opts.name, resourceType)
	resolved, err := resolver.Resolve(ctx, opts.name, resourceType)
	if err != nil {
		fmt.Fprintln(stdout, "credentials: incomplete")
		return err
	}
	fields := resolved.Describe()
	if len(fields) == 0 {
		fmt.Fprintln(stdout, "credentials: none required")
	} else {
		fmt.Fprintln(stdout, "credentials:")
		for _, line := range fields {
			fmt.Fprintf(stdout, "  %s\n", line)
		}
	}

	if !opts.probe {
		return nil
	}
	facade, err := qrmi.New(ctx, opts.name, resourceType,
		qrmi.WithConfig(cfg),
		qrmi.WithResolver(resolver),
		qrmi.WithFacadeLoggerProvider(loggers),
	)
	if err != nil {
		return err
	}
	defer func() { _ = facade.Close(ctx) }()

	accessible, err := facade.IsAccessible(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "accessible: %t\n", accessible)
	if !accessible {
		return core.ResourceUnavailableError(fmt.Sprintf("%s %q is not accessible", resourceType, opts.name), nil)
	}
	return nil
}

func exitCode(err error) int {
	switch core.ErrorKind(err) {
	case core.ErrorBadInput:
		return exitUsage
	case core.ErrorCredentialsMissing, core.ErrorAuthRejected, core.ErrorAuthExpired:
		return exitCredentials
	case core.ErrorResourceUnavailable, core.ErrorResourceNotFound, core.ErrorTransport:
		return exitInaccessible
	default:
		return exitFailure
	}
}

func lookup(env credentials.Environment, key string) string {
	if env == nil {
		return ""
	}
	value, _ := env.LookupEnv(key)
	return strings.TrimSpace(value)
}
