package session

import "testing"

// FuzzDecode exercises the binary payload decoder with arbitrary inputs.
// Goal: no panics, no partially filled sessions, graceful error handling.
func FuzzDecode(f *testing.F) {
	sess := &Session{
		SubjectID: "subject-fuzz",
		CreatedAt: 1700000000,
		ExpiresAt: 1700003600,
	}
	encoded, err := Encode(sess)
	if err == nil {
		f.Add(encoded)
	}

	// Empty and short inputs.
	f.Add([]byte{})
	f.Add([]byte{0})
	f.Add([]byte{payloadVersionCurrent})
	f.Add([]byte{255, 255, 255})

	// Truncated at various offsets.
	if len(encoded) > 5 {
		f.Add(encoded[:5])
	}
	if len(encoded) > 12 {
		f.Add(encoded[:12])
	}

	f.Fuzz(func(t *testing.T, data []byte) {
		// Must not panic. Errors are expected for malformed input.
		s, err := Decode(data)
		if err != nil {
			return
		}

		// A successful decode always has a subject and re-encodes cleanly.
		if s.SubjectID == "" {
			t.Fatal("decoded session with empty subject")
		}
		if _, err := Encode(s); err != nil {
			t.Fatalf("re-encode of decoded session failed: %v", err)
		}
	})
}
