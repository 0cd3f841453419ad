package db

import "time"

// AgentRecord represents a row in the agents table: one registered agent
// capability document plus directory bookkeeping columns.
type AgentRecord struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	Version          string    `json:"version"`
	Author           string    `json:"author"`
	Source           string    `json:"source"`
	OperatingSystems []string  `json:"operating_systems"`
	Protocols        []string  `json:"protocols"`
	Config           []byte    `json:"config,omitempty"`
	Status           string    `json:"status"`
	RetiredReason    *string   `json:"retired_reason,omitempty"`
	Revision         int       `json:"revision"`
	Object           string    `json:"object"`
	Created          time.Time `json:"created"`
	CreatedBy        string    `json:"created_by"`
	Modified         time.Time `json:"modified"`
	ModifiedBy       string    `json:"modified_by"`
}

// Agent record statuses.
const (
	AgentStatusActive  = "active"
	AgentStatusRetired = "retired"
)
