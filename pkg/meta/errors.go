package meta

import "fmt"

// ContractViolation reports a required capability property that a concrete
// agent implementation left undeclared or empty. It is always fatal to that
// agent's registration; no default is ever substituted.
type ContractViolation struct {
	Agent    string
	Property string
	Reason   string
}

func (e *ContractViolation) Error() string {
	agent := e.Agent
	if agent == "" {
		agent = "<unnamed agent>"
	}
	return fmt.Sprintf("contract violation: %s: %s: %s", agent, e.Property, e.Reason)
}

// NewContractViolation creates a new ContractViolation.
func NewContractViolation(agent, property, reason string) *ContractViolation {
	return &ContractViolation{Agent: agent, Property: property, Reason: reason}
}
