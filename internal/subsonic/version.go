package subsonic

import (
	"fmt"
	"strconv"
	"strings"
)

// ProtocolVersion is a parsed Subsonic client/server version triple.
// A missing patch component (e.g. "1.16") parses with patch=0.
type ProtocolVersion struct {
	Major, Minor, Patch int
}

func (v ProtocolVersion) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

func ParseProtocolVersion(s string) (ProtocolVersion, error) {
	parts := strings.SplitN(s, ".", 3)
	if len(parts) < 2 {
		return ProtocolVersion{}, fmt.Errorf("subsonic: malformed version %q", s)
	}
	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return ProtocolVersion{}, fmt.Errorf("subsonic: malformed version %q: %w", s, err)
	}
	minor, err := strconv.Atoi(parts[1])
	if err != nil {
		return ProtocolVersion{}, fmt.Errorf("subsonic: malformed version %q: %w", s, err)
	}
	patch := 0
	if len(parts) == 3 {
		patch, err = strconv.Atoi(parts[2])
		if err != nil {
			return ProtocolVersion{}, fmt.Errorf("subsonic: malformed version %q: %w", s, err)
		}
	}
	return ProtocolVersion{Major: major, Minor: minor, Patch: patch}, nil
}

// NegotiationOutcome is the result of comparing a client's reported
// version against the version the server reports to that client.
type NegotiationOutcome int

const (
	VersionsCompatible NegotiationOutcome = iota
	ServerMustUpgradeOutcome
	ClientMustUpgradeOutcome
)

// Negotiate applies the version negotiation rule: a client newer in major, or newer in minor, or equal-minor-but-newer
// patch, asks the server to upgrade; a client older in major asks the
// client to upgrade.
func Negotiate(client, server ProtocolVersion) NegotiationOutcome {
	if client.Major > server.Major || client.Minor > server.Minor ||
		(client.Minor == server.Minor && client.Patch > server.Patch) {
		return ServerMustUpgradeOutcome
	}
	if client.Major < server.Major {
		return ClientMustUpgradeOutcome
	}
	return VersionsCompatible
}

// DefaultServerVersion is the protocol version LMS advertises unless a
// per-client override in Config.ApiSubsonicOldServerProtocolClients
// applies.
var DefaultServerVersion = ProtocolVersion{Major: 1, Minor: 16, Patch: 0}

// OldServerProtocolVersion is reported to clients named in the
// old-protocol-clients override list, so that those clients don't see
// "server must upgrade" against a protocol surface they never learned.
var OldServerProtocolVersion = ProtocolVersion{Major: 1, Minor: 12, Patch: 0}

// ReportedVersion picks DefaultServerVersion unless clientName matches
// one of oldProtocolClients (substring match, case-insensitive).
func ReportedVersion(clientName string, oldProtocolClients []string) ProtocolVersion {
	lower := strings.ToLower(clientName)
	for _, c := range oldProtocolClients {
		if c != "" && strings.Contains(lower, strings.ToLower(c)) {
			return OldServerProtocolVersion
		}
	}
	return DefaultServerVersion
}

// OpenSubsonicEnabled reports whether OpenSubsonic extensions should be
// included in a response to clientName, per the disabled-clients
// override list.
func OpenSubsonicEnabled(clientName string, disabledClients []string) bool {
	lower := strings.ToLower(clientName)
	for _, c := range disabledClients {
		if c != "" && strings.Contains(lower, strings.ToLower(c)) {
			return false
		}
	}
	return true
}
