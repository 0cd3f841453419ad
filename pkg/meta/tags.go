package meta

import "regexp"

// OSTag names an operating system recognized by the entire framework.
// Unlike protocol tags, this set is closed: every implementation shares it.
type OSTag string

// Operating systems supported by the framework.
const (
	OSWindows OSTag = "windows"
	OSLinux   OSTag = "linux"
	OSMac     OSTag = "mac"
)

// Valid reports whether the tag is one of the recognized operating systems.
func (t OSTag) Valid() bool {
	switch t {
	case OSWindows, OSLinux, OSMac:
		return true
	}
	return false
}

// ProtocolTag names a communication protocol. The set of protocols is
// open-ended: implementations outside this module may introduce tags this
// module has never seen, so consumers must treat values as opaque
// identifiers agreed upon between agents and protocols, not as members of
// a closed enumeration.
type ProtocolTag string

// Reference protocols. Independent implementations may define more.
const (
	ProtocolDDDBLocal      ProtocolTag = "dddb_local"
	ProtocolDDDBYouTube    ProtocolTag = "dddb_youtube"
	ProtocolPlaintextLocal ProtocolTag = "plaintext_local"
)

var (
	agentNameRegex   = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9._-]*$`)
	protocolTagRegex = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)
)

// Valid reports whether the tag is shaped like a protocol identifier
// (lowercase alphanumeric with underscores and hyphens). It does not check
// membership in the reference set.
func (t ProtocolTag) Valid() bool {
	return protocolTagRegex.MatchString(string(t))
}

// ValidAgentName reports whether name is a well-formed agent identifier:
// it must start with a letter and contain only letters, digits, dots,
// hyphens, and underscores.
func ValidAgentName(name string) bool {
	return agentNameRegex.MatchString(name)
}
