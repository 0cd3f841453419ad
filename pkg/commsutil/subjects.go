package commsutil

import (
	"fmt"
	"strings"
)

// Default COMMS subjects.
const (
	SubjectDirectory   = "dir.agents.v1"
	SubjectChangeEvent = "directory.changed"
)

// BuildChangeSubject builds a per-agent change event subject.
func BuildChangeSubject(agent string) string {
	safe := strings.ReplaceAll(agent, ".", "_")
	return fmt.Sprintf("directory.changed.%s", safe)
}

// BuildExchangeSubject builds the subject a server/agent pair uses to carry
// messaging envelopes over a given protocol tag.
func BuildExchangeSubject(agent, protocol string) string {
	safe := strings.ReplaceAll(agent, ".", "_")
	return fmt.Sprintf("exchange.%s.%s", safe, protocol)
}
