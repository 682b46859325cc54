package core

import (
	"strings"
	"testing"
)

func TestParseResourceType(t *testing.T) {
	cases := map[string]ResourceType{
		"direct-access":           ResourceTypeDirectAccess,
		"IBMDirectAccess":         ResourceTypeDirectAccess,
		"direct_access":           ResourceTypeDirectAccess,
		"qiskit-runtime-service":  ResourceTypeQiskitRuntimeService,
		"IBMQiskitRuntimeService": ResourceTypeQiskitRuntimeService,
		"PasqalCloud":             ResourceTypePasqalCloud,
		"ionq_cloud":              ResourceTypeIonQCloud,
		" mock ":                  ResourceTypeMock,
	}
	for raw, want := range cases {
		got, err := ParseResourceType(raw)
		if err != nil {
			t.Fatalf("parse %q: %v", raw, err)
		}
		if got != want {
			t.Fatalf("parse %q: expected %s, got %s", raw, want, got)
		}
	}
	if _, err := ParseResourceType("dwave"); err == nil {
		t.Fatalf("expected unknown resource type error")
	}
}

func TestResourceTypesHaveEnvNamespaces(t *testing.T) {
	for _, resourceType := range ResourceTypes() {
		if !resourceType.Valid() {
			t.Fatalf("expected %s to be valid", resourceType)
		}
		if !strings.HasPrefix(resourceType.EnvNamespace(), "QRMI_") {
			t.Fatalf("expected QRMI_ namespace for %s, got %q", resourceType, resourceType.EnvNamespace())
		}
	}
	if ResourceType("other").EnvNamespace() != "" {
		t.Fatalf("expected empty namespace for unknown type")
	}
}

func TestTaskStatusTerminal(t *testing.T) {
	terminal := map[TaskStatus]bool{
		TaskStatusQueued:    false,
		TaskStatusRunning:   false,
		TaskStatusCompleted: true,
		TaskStatusFailed:    true,
		TaskStatusCancelled: true,
	}
	for _, status := range TaskStatuses() {
		if status.Terminal() != terminal[status] {
			t.Fatalf("unexpected terminal flag for %s", status)
		}
	}
}

func TestPayloadValidation(t *testing.T) {
	cases := []struct {
		name    string
		payload Payload
		valid   bool
	}{
		{name: "sampler", payload: QiskitPrimitive{Input: "{}", ProgramID: "sampler"}, valid: true},
		{name: "unknown_program", payload: QiskitPrimitive{Input: "{}", ProgramID: "circuit-runner"}},
		{name: "empty_qiskit_input", payload: QiskitPrimitive{ProgramID: "estimator"}},
		{name: "pasqal", payload: PasqalSequence{Sequence: "{}", JobRuns: 100}, valid: true},
		{name: "pasqal_no_runs", payload: PasqalSequence{Sequence: "{}"}},
		{name: "ionq", payload: IonQCircuit{Input: "{}", Shots: 100}, valid: true},
		{name: "ionq_no_shots", payload: IonQCircuit{Input: "{}"}},
		{name: "circuit", payload: Circuit{Circuit: "h 0"}, valid: true},
		{name: "circuit_empty", payload: Circuit{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.payload.Validate()
			if tc.valid && err != nil {
				t.Fatalf("expected valid payload, got %v", err)
			}
			if !tc.valid && err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestCredentialsRedactedString(t *testing.T) {
	creds := UsernamePassword("ada", "hunter2")
	if err := creds.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if strings.Contains(creds.String(), "hunter2") || strings.Contains(creds.GoString(), "hunter2") {
		t.Fatalf("password leaked in %s", creds.String())
	}
	if creds.Secret() != "" {
		t.Fatalf("expected no bearer secret for username/password credentials")
	}
	if APIToken(" tok ").Secret() != "tok" {
		t.Fatalf("expected trimmed token secret")
	}
	if err := APIKey("").Validate(); err == nil {
		t.Fatalf("expected empty api key to be invalid")
	}
}
