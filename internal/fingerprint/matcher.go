// Package fingerprint applies an ordered list of handshake templates to a
// received application-data payload and reports the first service whose
// expected response byte-string occurs in it (spec.md §4.4).
package fingerprint

import (
	"bytes"

	"github.com/eightbitlabs/synprobe/internal/model"
)

// Match scans payload against handshakes in order and returns the index of
// the first handshake whose Response bytes occur as a contiguous,
// byte-exact substring of payload (no regex). ok is false if none match.
//
// bytes.Contains is the standard library's Rabin-Karp-class substring
// search, already linear in the payload length per call; nothing in the
// example corpus ships a multi-pattern (Aho-Corasick) matcher, so for the
// handshake-list sizes this system targets a per-handshake linear scan is
// the simplest correct choice. See DESIGN.md.
func Match(payload []byte, handshakes []model.Handshake) (int, bool) {
	for i, h := range handshakes {
		if len(h.Response) == 0 {
			continue
		}
		if bytes.Contains(payload, h.Response) {
			return i, true
		}
	}
	return 0, false
}
