// Package events defines event types and publisher interfaces for directory
// change events.
package events

// Changes reported by AgentChangedEvent.
const (
	ChangeRegistered = "registered"
	ChangeUpdated    = "updated"
	ChangeRetired    = "retired"
)

// AgentChangedEvent is emitted when an agent's directory entry changes.
type AgentChangedEvent struct {
	Name      string `json:"name"`
	Change    string `json:"change"`
	Version   string `json:"version,omitempty"`
	Revision  int    `json:"revision"`
	Timestamp string `json:"timestamp"`
}
