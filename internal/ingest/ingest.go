// Package ingest decodes the newline-delimited JSON target stream that
// feeds a scan (spec.md §6): one model.Target per line on stdin (or any
// io.Reader).
package ingest

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/eightbitlabs/synprobe/internal/model"
	"github.com/eightbitlabs/synprobe/internal/synerr"
)

// defaultScanBuf is the initial bufio.Scanner buffer size; grown on demand
// up to maxLineBytes for targets carrying a large attached payload.
const (
	defaultScanBuf = 64 * 1024
	maxLineBytes   = 1 << 20
)

// Stream decodes r line by line and sends one model.Target per non-blank
// line on the returned channel. Both channels are closed when r is
// exhausted or a decode error occurs; at most one error is ever sent. The
// caller must drain targets until it's closed to avoid leaking the
// goroutine.
func Stream(r io.Reader) (<-chan model.Target, <-chan error) {
	targets := make(chan model.Target)
	errs := make(chan error, 1)

	go func() {
		defer close(targets)
		defer close(errs)

		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, defaultScanBuf), maxLineBytes)

		line := 0
		for scanner.Scan() {
			line++
			raw := scanner.Bytes()
			if len(raw) == 0 {
				continue
			}

			var t model.Target
			if err := json.Unmarshal(raw, &t); err != nil {
				errs <- fmt.Errorf("%w: line %d: %v", synerr.ErrDecode, line, err)
				return
			}
			targets <- t
		}
		if err := scanner.Err(); err != nil {
			errs <- fmt.Errorf("%w: reading target stream: %v", synerr.ErrDecode, err)
		}
	}()

	return targets, errs
}
