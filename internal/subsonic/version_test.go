package subsonic

import "testing"

func TestParseProtocolVersionDefaultsMissingPatch(t *testing.T) {
	v, err := ParseProtocolVersion("1.16")
	if err != nil {
		t.Fatalf("ParseProtocolVersion: %v", err)
	}
	if v.Major != 1 || v.Minor != 16 || v.Patch != 0 {
		t.Fatalf("got %+v, want {1 16 0}", v)
	}
	if v.String() != "1.16.0" {
		t.Fatalf("got %q, want 1.16.0", v.String())
	}
}

func TestParseProtocolVersionRejectsMalformed(t *testing.T) {
	for _, s := range []string{"", "x", "1", "1.x.0"} {
		if _, err := ParseProtocolVersion(s); err == nil {
			t.Fatalf("expected error parsing %q", s)
		}
	}
}

func TestNegotiate(t *testing.T) {
	server := ProtocolVersion{Major: 1, Minor: 16, Patch: 0}

	cases := []struct {
		name   string
		client ProtocolVersion
		want   NegotiationOutcome
	}{
		{"exact match", server, VersionsCompatible},
		{"client newer minor", ProtocolVersion{1, 17, 0}, ServerMustUpgradeOutcome},
		{"client newer patch at equal minor", ProtocolVersion{1, 16, 1}, ServerMustUpgradeOutcome},
		{"client newer major", ProtocolVersion{2, 0, 0}, ServerMustUpgradeOutcome},
		{"client older major", ProtocolVersion{0, 9, 0}, ClientMustUpgradeOutcome},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := Negotiate(c.client, server); got != c.want {
				t.Fatalf("Negotiate(%+v, %+v) = %v, want %v", c.client, server, got, c.want)
			}
		})
	}
}

func TestReportedVersionMatchesOldProtocolClientsSubstring(t *testing.T) {
	old := []string{"DSub"}
	if got := ReportedVersion("DSub/1.2", old); got != OldServerProtocolVersion {
		t.Fatalf("got %+v, want OldServerProtocolVersion", got)
	}
	if got := ReportedVersion("Ultrasonic", old); got != DefaultServerVersion {
		t.Fatalf("got %+v, want DefaultServerVersion", got)
	}
}

func TestOpenSubsonicEnabledRespectsDisabledList(t *testing.T) {
	disabled := []string{"DSub"}
	if OpenSubsonicEnabled("DSub/1.2", disabled) {
		t.Fatal("expected OpenSubsonic disabled for a listed client")
	}
	if !OpenSubsonicEnabled("Ultrasonic", disabled) {
		t.Fatal("expected OpenSubsonic enabled for an unlisted client")
	}
}
