package capi

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-qrmi/core"
)

// Payload is the flattened tagged form of core.Payload that crosses the C
// boundary. Kind selects which of the remaining fields are read.
type Payload struct {
	Kind      core.PayloadKind
	Circuit   string
	Input     string
	ProgramID string
	Sequence  string
	JobRuns   int
	Target    string
	Shots     int
}

// Decode turns the tagged struct into the matching core payload and
// validates it.
func (p Payload) Decode() (core.Payload, error) {
	var payload core.Payload
	switch core.PayloadKind(strings.TrimSpace(string(p.Kind))) {
	case core.PayloadKindQiskitPrimitive:
		payload = core.QiskitPrimitive{Input: p.Input, ProgramID: strings.TrimSpace(p.ProgramID)}
	case core.PayloadKindPasqalCloud:
		payload = core.PasqalSequence{Sequence: p.Sequence, JobRuns: p.JobRuns}
	case core.PayloadKindIonQCloud:
		payload = core.IonQCircuit{Input: p.Input, Target: strings.TrimSpace(p.Target), Shots: p.Shots}
	case core.PayloadKindCircuit:
		payload = core.Circuit{Circuit: p.Circuit, Shots: p.Shots}
	default:
		return nil, core.BadInputError(fmt.Sprintf("capi: payload kind %q is unknown", p.Kind))
	}
	if err := payload.Validate(); err != nil {
		return nil, core.WrapError(err, core.ErrorBadInput, "capi: invalid payload")
	}
	return payload, nil
}
