package meta

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

// echoConfig is the configuration model for the test agent.
type echoConfig struct {
	Host     string `json:"host" desc:"Host the agent listens on"`
	Port     int    `json:"port" default:"8080" desc:"Listen port"`
	Insecure *bool  `json:"insecure" desc:"Disable transport checks"`
}

// echoAgent is a minimal reference agent declaration.
type echoAgent struct{}

func (echoAgent) Name() string        { return "echo-agent" }
func (echoAgent) Description() string { return "Echoes every message back to the server." }
func (echoAgent) Version() string     { return "0.1.0" }
func (echoAgent) Author() string      { return "reference" }
func (echoAgent) Source() string      { return "https://example.com/echo-agent" }
func (echoAgent) SupportedOperatingSystems() []OSTag {
	return []OSTag{OSLinux}
}
func (echoAgent) SupportedProtocols() []ProtocolTag {
	return []ProtocolTag{ProtocolPlaintextLocal}
}
func (echoAgent) ConfigModel() any { return &echoConfig{} }

// fakeAgent lets individual tests blank out one capability at a time.
type fakeAgent struct {
	name, description, version, author, source string
	oses                                       []OSTag
	protocols                                  []ProtocolTag
	config                                     any
}

func (a fakeAgent) Name() string                         { return a.name }
func (a fakeAgent) Description() string                  { return a.description }
func (a fakeAgent) Version() string                      { return a.version }
func (a fakeAgent) Author() string                       { return a.author }
func (a fakeAgent) Source() string                       { return a.source }
func (a fakeAgent) SupportedOperatingSystems() []OSTag   { return a.oses }
func (a fakeAgent) SupportedProtocols() []ProtocolTag    { return a.protocols }
func (a fakeAgent) ConfigModel() any                     { return a.config }

func completeAgent() fakeAgent {
	return fakeAgent{
		name:        "test-agent",
		description: "A test agent.",
		version:     "1.0.0",
		author:      "tester",
		source:      "https://example.com/test-agent",
		oses:        []OSTag{OSLinux, OSWindows},
		protocols:   []ProtocolTag{ProtocolDDDBLocal},
		config:      &echoConfig{},
	}
}

func TestExport_EchoAgent(t *testing.T) {
	doc, err := Export(echoAgent{})
	if err != nil {
		t.Fatalf("meta:descriptor_test - Export failed: %v", err)
	}

	if doc.Name != "echo-agent" {
		t.Errorf("meta:descriptor_test - Name = %q, want %q", doc.Name, "echo-agent")
	}
	if !reflect.DeepEqual(doc.OperatingSystems, []OSTag{OSLinux}) {
		t.Errorf("meta:descriptor_test - OperatingSystems = %v", doc.OperatingSystems)
	}
	if !reflect.DeepEqual(doc.Protocols, []ProtocolTag{ProtocolPlaintextLocal}) {
		t.Errorf("meta:descriptor_test - Protocols = %v", doc.Protocols)
	}

	host := doc.Config.Properties.Field("host")
	if host == nil {
		t.Fatal("meta:descriptor_test - config schema missing host field")
	}
	if host.Type != "string" {
		t.Errorf("meta:descriptor_test - host type = %q, want string", host.Type)
	}
	requiredHost := false
	for _, r := range doc.Config.Required {
		if r == "host" {
			requiredHost = true
		}
	}
	if !requiredHost {
		t.Error("meta:descriptor_test - host should be required")
	}
}

func TestExport_Deterministic(t *testing.T) {
	first, err := ExportJSON(echoAgent{})
	if err != nil {
		t.Fatalf("meta:descriptor_test - first ExportJSON failed: %v", err)
	}
	second, err := ExportJSON(echoAgent{})
	if err != nil {
		t.Fatalf("meta:descriptor_test - second ExportJSON failed: %v", err)
	}
	if first != second {
		t.Errorf("meta:descriptor_test - exports differ:\n%s\n%s", first, second)
	}

	docA, _ := Export(echoAgent{})
	docB, _ := Export(echoAgent{})
	if !reflect.DeepEqual(docA, docB) {
		t.Error("meta:descriptor_test - Export called twice returned different documents")
	}
}

func TestExport_KeyOrder(t *testing.T) {
	out, err := ExportJSON(echoAgent{})
	if err != nil {
		t.Fatalf("meta:descriptor_test - ExportJSON failed: %v", err)
	}

	keys := []string{`"name"`, `"description"`, `"version"`, `"author"`, `"source"`,
		`"operating_systems"`, `"protocols"`, `"config"`}
	last := -1
	for _, key := range keys {
		idx := strings.Index(out, key)
		if idx < 0 {
			t.Fatalf("meta:descriptor_test - key %s missing from export", key)
		}
		if idx < last {
			t.Errorf("meta:descriptor_test - key %s out of order", key)
		}
		last = idx
	}
}

func TestExport_ContractViolations(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(a *fakeAgent)
		property string
	}{
		{"empty name", func(a *fakeAgent) { a.name = "" }, "name"},
		{"malformed name", func(a *fakeAgent) { a.name = "1bad name" }, "name"},
		{"empty description", func(a *fakeAgent) { a.description = "" }, "description"},
		{"empty version", func(a *fakeAgent) { a.version = "" }, "version"},
		{"empty author", func(a *fakeAgent) { a.author = "" }, "author"},
		{"empty source", func(a *fakeAgent) { a.source = "" }, "source"},
		{"no operating systems", func(a *fakeAgent) { a.oses = nil }, "operating_systems"},
		{"unknown operating system", func(a *fakeAgent) { a.oses = []OSTag{"solaris"} }, "operating_systems"},
		{"no protocols", func(a *fakeAgent) { a.protocols = nil }, "protocols"},
		{"malformed protocol tag", func(a *fakeAgent) { a.protocols = []ProtocolTag{"Bad Tag!"} }, "protocols"},
		{"nil config model", func(a *fakeAgent) { a.config = nil }, "config_schema"},
		{"non-struct config model", func(a *fakeAgent) { a.config = 42 }, "config_schema"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agent := completeAgent()
			tt.mutate(&agent)

			doc, err := Export(agent)
			if doc != nil {
				t.Error("meta:descriptor_test - expected no partial document")
			}
			cv, ok := err.(*ContractViolation)
			if !ok {
				t.Fatalf("meta:descriptor_test - expected *ContractViolation, got %T (%v)", err, err)
			}
			if cv.Property != tt.property {
				t.Errorf("meta:descriptor_test - Property = %q, want %q", cv.Property, tt.property)
			}
		})
	}
}

func TestExport_DedentsDescription(t *testing.T) {
	agent := completeAgent()
	agent.description = `
		A multi-line description
		declared with source indentation.

			Nested detail stays nested.
	`

	doc, err := Export(agent)
	if err != nil {
		t.Fatalf("meta:descriptor_test - Export failed: %v", err)
	}

	want := "A multi-line description\ndeclared with source indentation.\n\n\tNested detail stays nested."
	if doc.Description != want {
		t.Errorf("meta:descriptor_test - Description = %q, want %q", doc.Description, want)
	}
}

func TestExportJSONIndent(t *testing.T) {
	out, err := ExportJSONIndent(echoAgent{}, "", "  ")
	if err != nil {
		t.Fatalf("meta:descriptor_test - ExportJSONIndent failed: %v", err)
	}
	if !strings.Contains(out, "\n  \"name\": \"echo-agent\"") {
		t.Errorf("meta:descriptor_test - unexpected indented output:\n%s", out)
	}

	var doc Document
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("meta:descriptor_test - indented output is not valid JSON: %v", err)
	}
	if doc.Name != "echo-agent" {
		t.Errorf("meta:descriptor_test - round-tripped Name = %q", doc.Name)
	}
}

func TestDocument_Validate_RoundTrip(t *testing.T) {
	out, err := ExportJSON(echoAgent{})
	if err != nil {
		t.Fatalf("meta:descriptor_test - ExportJSON failed: %v", err)
	}

	var doc Document
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("meta:descriptor_test - decode failed: %v", err)
	}
	if err := doc.Validate(); err != nil {
		t.Errorf("meta:descriptor_test - decoded document failed validation: %v", err)
	}

	again, err := json.Marshal(&doc)
	if err != nil {
		t.Fatalf("meta:descriptor_test - re-encode failed: %v", err)
	}
	if string(again) != out {
		t.Errorf("meta:descriptor_test - round trip not byte-identical:\n%s\n%s", out, again)
	}
}

func TestDedent(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"single line", "  hello  ", "hello"},
		{"common indent", "\tone\n\ttwo", "one\ntwo"},
		{"mixed depth keeps relative indent", "  a\n    b", "a\n  b"},
		{"blank lines ignored for prefix", "  a\n\n  b", "a\n\nb"},
		{"no common indent", "a\n  b", "a\n  b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Dedent(tt.input); got != tt.want {
				t.Errorf("meta:descriptor_test - Dedent(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
