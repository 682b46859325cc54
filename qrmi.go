// Package qrmi is the entry point for quantum resource management: it
// resolves credentials, builds the vendor client for a resource type and
// wraps it in a core.Resource.
package qrmi

import "github.com/goliatone/go-qrmi/core"

type Config = core.Config

type Option = core.Option

type Resource = core.Resource

type ResourceType = core.ResourceType

type TaskStatus = core.TaskStatus

type AcquisitionLock = core.AcquisitionLock

type Payload = core.Payload

type QiskitPrimitive = core.QiskitPrimitive

type PasqalSequence = core.PasqalSequence

type IonQCircuit = core.IonQCircuit

type Circuit = core.Circuit

const (
	DirectAccess         = core.ResourceTypeDirectAccess
	QiskitRuntimeService = core.ResourceTypeQiskitRuntimeService
	PasqalCloud          = core.ResourceTypePasqalCloud
	IonQCloud            = core.ResourceTypeIonQCloud
	Mock                 = core.ResourceTypeMock
)

var (
	WithLogger          = core.WithLogger
	WithLoggerProvider  = core.WithLoggerProvider
	WithMetricsRecorder = core.WithMetricsRecorder
	WithErrorMapper     = core.WithErrorMapper
	WithConfigProvider  = core.WithConfigProvider
	WithOptionsResolver = core.WithOptionsResolver
	WithLockLedger      = core.WithLockLedger
	WithTaskLedger      = core.WithTaskLedger
	WithTargetCache     = core.WithTargetCache
	WithClock           = core.WithClock
	WithTracer          = core.WithTracer
	WithEnvironment     = core.WithEnvironment
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

// NewResource wraps an already built vendor client.
func NewResource(cfg Config, client core.VendorClient, opts ...Option) (*Resource, error) {
	return core.NewResource(cfg, client, opts...)
}
