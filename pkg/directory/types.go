// Package directory implements the core agent directory business logic:
// agents register their exported capability documents, and server-side
// tooling discovers and inspects them.
package directory

import "github.com/parcelpost/agent-directory/pkg/meta"

// RegisterInput holds parameters for the register method.
type RegisterInput struct {
	Document meta.Document `json:"document"`
}

// RegisterOutput holds the result of the register method.
type RegisterOutput struct {
	Name     string `json:"name"`
	Version  string `json:"version"`
	Revision int    `json:"revision"`
	Change   string `json:"change"`
}

// DescribeInput holds parameters for the describe method.
type DescribeInput struct {
	Name string `json:"name"`
}

// DescribeOutput holds the result of the describe method.
type DescribeOutput struct {
	Document      meta.Document `json:"document"`
	Status        string        `json:"status"`
	RetiredReason string        `json:"retiredReason,omitempty"`
	Revision      int           `json:"revision"`
	Registered    string        `json:"registered"`
	Modified      string        `json:"modified"`
	// NatsUrl tells clients which broker carries this agent's exchange
	// subjects.
	NatsUrl          string            `json:"natsUrl,omitempty"`
	ExchangeSubjects map[string]string `json:"exchangeSubjects"`
}

// DiscoverInput holds parameters for the discover method.
type DiscoverInput struct {
	Protocol        string `json:"protocol,omitempty"`
	OperatingSystem string `json:"operatingSystem,omitempty"`
	Query           string `json:"query,omitempty"`
	Status          string `json:"status,omitempty"`
	Page            int    `json:"page,omitempty"`
	Limit           int    `json:"limit,omitempty"`
}

// DiscoverOutput holds the result of the discover method.
type DiscoverOutput struct {
	Agents     []DiscoveredAgent `json:"agents"`
	Pagination Pagination        `json:"pagination"`
}

// DiscoveredAgent holds the discovery result for a single agent.
type DiscoveredAgent struct {
	Name             string   `json:"name"`
	Description      string   `json:"description,omitempty"`
	Version          string   `json:"version"`
	Author           string   `json:"author"`
	OperatingSystems []string `json:"operatingSystems"`
	Protocols        []string `json:"protocols"`
	Status           string   `json:"status"`
	Revision         int      `json:"revision"`
}

// Pagination holds pagination information.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// RetireInput holds parameters for the retire method.
type RetireInput struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// RetireOutput holds the result of the retire method.
type RetireOutput struct {
	Success  bool `json:"success"`
	Revision int  `json:"revision"`
}

// HealthOutput holds the result of the health method.
type HealthOutput struct {
	Status    string       `json:"status"`
	Checks    HealthChecks `json:"checks"`
	Timestamp string       `json:"timestamp"`
}

// HealthChecks holds individual health check results.
type HealthChecks struct {
	Database bool `json:"database"`
}

// DirectoryError is a structured error from the directory.
type DirectoryError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func (e *DirectoryError) Error() string {
	return e.Code + ": " + e.Message
}

// NewDirectoryError creates a new DirectoryError.
func NewDirectoryError(code, message string) *DirectoryError {
	return &DirectoryError{Code: code, Message: message}
}
