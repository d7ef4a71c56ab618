// Package resultstream encodes the newline-delimited JSON output stream
// (spec.md §6): one model.ScanResult per line.
package resultstream

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/eightbitlabs/synprobe/internal/model"
)

// Emit writes one JSON-encoded line per result received on results until
// the channel is closed. w is written directly, not buffered, so a consumer
// tailing the stream sees each result as it arrives.
func Emit(w io.Writer, results <-chan model.ScanResult) error {
	enc := json.NewEncoder(w)

	for r := range results {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encoding scan result: %w", err)
		}
	}
	return nil
}
