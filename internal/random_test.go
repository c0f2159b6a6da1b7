package internal

import "testing"

func TestSessionIDRoundTrip(t *testing.T) {
	sid, err := NewSessionID()
	if err != nil {
		t.Fatalf("new session id: %v", err)
	}

	parsed, err := ParseSessionID(sid.String())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed != sid {
		t.Fatalf("round trip mismatch: %v != %v", parsed, sid)
	}
}

func TestSessionIDUniqueness(t *testing.T) {
	seen := make(map[SessionID]bool)
	for i := 0; i < 1000; i++ {
		sid, err := NewSessionID()
		if err != nil {
			t.Fatalf("new session id: %v", err)
		}
		if seen[sid] {
			t.Fatalf("duplicate session id after %d draws", i)
		}
		seen[sid] = true
	}
}

func TestParseSessionIDRejectsBadInput(t *testing.T) {
	cases := []string{
		"",
		"not-base64!!",
		"c2hvcnQ",                       // wrong size
		"dG9vLWxvbmctdG8tYmUtYW4taWQt", // wrong size
	}
	for _, in := range cases {
		if _, err := ParseSessionID(in); err == nil {
			t.Fatalf("input %q: expected parse error", in)
		}
	}
}
