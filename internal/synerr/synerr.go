// Package synerr defines the sentinel error taxonomy shared across synprobe's
// core packages (spec.md §7). Every fatal or recoverable condition in the
// core wraps one of these with fmt.Errorf("%w: ...") so callers can branch
// with errors.Is instead of string matching.
package synerr

import "errors"

var (
	// ErrConfig covers malformed MACs, bad IPs, or a missing source address
	// for the target family, surfaced at ScanConfig construction time.
	ErrConfig = errors.New("config error")

	// ErrMissingIPv4 is returned by the SYN builder when a target is IPv4
	// but ScanConfig carries no source IPv4 address.
	ErrMissingIPv4 = errors.New("missing source ipv4 address")

	// ErrMissingIPv6 is returned by the SYN builder when a target is IPv6
	// but ScanConfig carries no source IPv6 address.
	ErrMissingIPv6 = errors.New("missing source ipv6 address")

	// ErrHandshakeLoad covers I/O, YAML decode, or base64 decode failure
	// while loading the handshake definition file. Fatal at construction.
	ErrHandshakeLoad = errors.New("handshake load error")

	// ErrEndpoint covers a bind failure (fatal) or a transient write
	// failure (fatal to the TX worker only).
	ErrEndpoint = errors.New("endpoint error")

	// ErrDecode marks a frame parse failure. Always recovered locally by
	// the caller (the frame is skipped); never propagated as fatal.
	ErrDecode = errors.New("frame decode error")

	// ErrAlreadyShutdown is returned by a second call to Scanner.Shutdown,
	// since spec.md §4.7 requires Shutdown be called at most once.
	ErrAlreadyShutdown = errors.New("scanner already shut down")
)
