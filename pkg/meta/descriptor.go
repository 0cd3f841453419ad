// Package meta defines the static capability contract shared by every agent
// implementation in the framework, regardless of language. An agent declares
// itself by satisfying the Agent interface; Export turns that declaration
// into the canonical JSON document the server uses for discovery.
//
// Exporting is a pure read of static declarations: no side effects, no
// per-call state, and byte-identical output on repeated calls.
package meta

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Agent is the flat capability set every agent implementation must supply.
// Satisfying the interface is the compile-time half of the contract; Export
// enforces the load-time half (every value present and non-empty).
//
// ConfigModel returns a declared struct (or pointer to one) describing all
// configuration the agent accepts; its schema is derived by reflection, so
// the method must return a static declaration, not a computed value.
type Agent interface {
	Name() string
	Description() string
	Version() string
	Author() string
	Source() string
	SupportedOperatingSystems() []OSTag
	SupportedProtocols() []ProtocolTag
	ConfigModel() any
}

// Document is the canonical exported form of an agent's capability
// declaration. Field order is the wire key order.
type Document struct {
	Name             string          `json:"name"`
	Description      string          `json:"description"`
	Version          string          `json:"version"`
	Author           string          `json:"author"`
	Source           string          `json:"source"`
	OperatingSystems []OSTag         `json:"operating_systems"`
	Protocols        []ProtocolTag   `json:"protocols"`
	Config           *SchemaDocument `json:"config"`
}

// Validate checks the completeness rules every exported document must meet.
// It returns a *ContractViolation naming the first missing or malformed
// property. A document that arrives over the wire (e.g. at registration)
// is held to the same rules as one produced locally by Export.
func (d *Document) Validate() error {
	if d.Name == "" {
		return NewContractViolation(d.Name, "name", "must be non-empty")
	}
	if !ValidAgentName(d.Name) {
		return NewContractViolation(d.Name, "name",
			"must start with a letter and contain only letters, digits, dots, hyphens, underscores")
	}
	if d.Description == "" {
		return NewContractViolation(d.Name, "description", "must be non-empty")
	}
	if d.Version == "" {
		return NewContractViolation(d.Name, "version", "must be non-empty")
	}
	if d.Author == "" {
		return NewContractViolation(d.Name, "author", "must be non-empty")
	}
	if d.Source == "" {
		return NewContractViolation(d.Name, "source", "must be non-empty")
	}
	if len(d.OperatingSystems) == 0 {
		return NewContractViolation(d.Name, "operating_systems", "must list at least one operating system")
	}
	for _, os := range d.OperatingSystems {
		if !os.Valid() {
			return NewContractViolation(d.Name, "operating_systems",
				fmt.Sprintf("unrecognized operating system %q (expected windows, linux, or mac)", os))
		}
	}
	if len(d.Protocols) == 0 {
		return NewContractViolation(d.Name, "protocols", "must list at least one protocol")
	}
	for _, p := range d.Protocols {
		if !p.Valid() {
			return NewContractViolation(d.Name, "protocols",
				fmt.Sprintf("malformed protocol tag %q", p))
		}
	}
	if d.Config == nil {
		return NewContractViolation(d.Name, "config", "must carry a config schema")
	}
	return nil
}

// Export produces the canonical document for an agent declaration. It fails
// with a *ContractViolation if any required capability property is empty or
// the config model cannot be reflected; it never returns a partial document.
func Export(a Agent) (*Document, error) {
	name := a.Name()

	schema, err := SchemaFor(a.ConfigModel())
	if err != nil {
		if cv, ok := err.(*ContractViolation); ok && cv.Agent == "" {
			cv.Agent = name
		}
		return nil, err
	}

	doc := &Document{
		Name:             name,
		Description:      Dedent(a.Description()),
		Version:          a.Version(),
		Author:           a.Author(),
		Source:           a.Source(),
		OperatingSystems: a.SupportedOperatingSystems(),
		Protocols:        a.SupportedProtocols(),
		Config:           schema,
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return doc, nil
}

// ExportJSON produces the compact JSON encoding of an agent's document.
func ExportJSON(a Agent) (string, error) {
	doc, err := Export(a)
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ExportJSONIndent is ExportJSON with the indentation options of
// json.MarshalIndent passed through unmodified.
func ExportJSONIndent(a Agent, prefix, indent string) (string, error) {
	doc, err := Export(a)
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(doc, prefix, indent)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Dedent removes the longest run of leading whitespace common to all
// non-blank lines of s, then trims surrounding whitespace. Descriptions are
// typically declared as indented multi-line literals inside agent source;
// the exported form must not carry that indentation.
func Dedent(s string) string {
	lines := strings.Split(s, "\n")

	prefix := ""
	havePrefix := false
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
		if !havePrefix {
			prefix = indent
			havePrefix = true
			continue
		}
		prefix = commonPrefix(prefix, indent)
	}

	if prefix != "" {
		for i, line := range lines {
			lines[i] = strings.TrimPrefix(line, prefix)
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func commonPrefix(a, b string) string {
	max := len(a)
	if len(b) < max {
		max = len(b)
	}
	i := 0
	for i < max && a[i] == b[i] {
		i++
	}
	return a[:i]
}
