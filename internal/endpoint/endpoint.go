// Package endpoint wraps a raw, link-layer socket bound to one named
// interface (spec.md §4.2). It is built on github.com/google/gopacket/pcap,
// the same module the teacher already depends on for frame serialization,
// rather than introducing a second raw-socket dependency.
package endpoint

import (
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcap"

	"github.com/eightbitlabs/synprobe/internal/synerr"
)

// snapLen is large enough for any ethernet frame this system builds or
// expects to receive (spec.md §6: "Frames up to 1500 bytes").
const snapLen = 1600

// RawHandle is the subset of *pcap.Handle that Endpoint depends on. It is
// exported so tests (and any alternate transport) can substitute a fake
// handle via Wrap without standing up a real interface.
type RawHandle interface {
	ReadPacketData() ([]byte, gopacket.CaptureInfo, error)
	WritePacketData(data []byte) error
	Close()
}

// Endpoint is a handle bindable to a named interface. It provides blocking
// Recv and Send over the underlying raw socket. Endpoint is cloneable: both
// the TX and RX workers hold a clone that shares the same handle, the
// concrete resolution of spec.md's "cloneable endpoint... reference-counted
// handle with interior mutability" design note (§9) — the kernel socket
// tolerates one concurrent reader and one concurrent writer (spec.md §5),
// so no additional locking is introduced here.
type Endpoint struct {
	handle RawHandle
}

// Open binds a new Endpoint to the named interface in promiscuous mode with
// no read timeout beyond pcap's minimum poll granularity (spec.md §4.2:
// "No timeouts at this layer").
func Open(iface string) (*Endpoint, error) {
	handle, err := pcap.OpenLive(iface, snapLen, true, pcap.BlockForever)
	if err != nil {
		return nil, fmt.Errorf("%w: binding to interface %q: %v", synerr.ErrEndpoint, iface, err)
	}
	return Wrap(handle), nil
}

// Wrap builds an Endpoint around an already-open RawHandle.
func Wrap(handle RawHandle) *Endpoint {
	return &Endpoint{handle: handle}
}

// Clone returns a new Endpoint value sharing the same underlying handle, for
// handing one clone each to the TX and RX workers (spec.md §4.2, §5).
func (e *Endpoint) Clone() *Endpoint {
	return &Endpoint{handle: e.handle}
}

// Recv blocks until one frame is available and returns its bytes, copied
// out of whatever buffer the underlying RawHandle reused internally so the
// result remains valid after the handle serves its next packet (callers
// hand it across goroutines to the probe table and result queue).
func (e *Endpoint) Recv() ([]byte, error) {
	data, _, err := e.handle.ReadPacketData()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", synerr.ErrEndpoint, err)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Send blocks until the full frame has been written to the wire, or returns
// an error (spec.md §4.2).
func (e *Endpoint) Send(frame []byte) error {
	if err := e.handle.WritePacketData(frame); err != nil {
		return fmt.Errorf("%w: %v", synerr.ErrEndpoint, err)
	}
	return nil
}

// Close releases the underlying handle. Closing it while a Recv is blocked
// causes that call to return an error, which is this repository's
// mechanism for waking the RX worker on shutdown (spec.md §9, Open
// Question 4; see SPEC_FULL.md §7).
func (e *Endpoint) Close() error {
	e.handle.Close()
	return nil
}
