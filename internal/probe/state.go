// Package probe implements the per-host probe state machine that lives
// inside the RX worker (spec.md §4.3). It drives a target from SYN-ACK
// through ACK/data-exchange, fabricating every response packet by
// inverting the received frame via internal/frame, and reports a
// model.ScanResult for every frame it handles.
package probe

import (
	"net/netip"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"github.com/eightbitlabs/synprobe/internal/fingerprint"
	"github.com/eightbitlabs/synprobe/internal/frame"
	"github.com/eightbitlabs/synprobe/internal/model"
)

// Table is the per-host state map keyed by (ip, port) of the remote peer
// (spec.md §3, §4.3). It is owned exclusively by the RX worker: no locking,
// since it is never accessed from another goroutine (spec.md §5 (iii)).
// Entries are never removed during a run (spec.md §4.3).
type Table struct {
	states     map[model.HostKey]*model.ProbeState
	handshakes []model.Handshake
	srcPort    uint16
}

// NewTable constructs an empty state table for one run. handshakes is the
// immutable, ordered handshake list shared by reference (spec.md §3).
func NewTable(handshakes []model.Handshake, srcPort uint16) *Table {
	return &Table{
		states:     make(map[model.HostKey]*model.ProbeState),
		handshakes: handshakes,
		srcPort:    srcPort,
	}
}

// Len reports how many distinct hosts have entered the table — exposed for
// tests and for an operator-facing progress count.
func (t *Table) Len() int {
	return len(t.states)
}

// Handle routes one decoded frame through the transition table of
// spec.md §4.3. It returns the ScanResult to emit (nil if the frame
// produces none, e.g. a frame to the wrong destination port, a non-TCP
// transport, or a flag combination the table ignores) and the outbound
// response frame bytes to enqueue (nil if none should be sent). buf is the
// caller-owned serialize buffer passed through to internal/frame.
func (t *Table) Handle(d *frame.Decoded, buf gopacket.SerializeBuffer) (*model.ScanResult, []byte, error) {
	if d.TCP == nil {
		return nil, nil, nil
	}
	if uint16(d.TCP.DstPort) != t.srcPort {
		return nil, nil, nil
	}

	host := model.HostKey{
		IP:   mustAddr(d.SrcIP()),
		Port: uint16(d.TCP.SrcPort),
	}
	proto := uint8(layers.IPProtocolTCP)

	switch {
	case d.TCP.SYN && d.TCP.ACK:
		return t.handleSynAck(host, proto, d, buf)
	case d.TCP.RST:
		return t.handleRst(host, proto), nil, nil
	case !d.TCP.SYN && d.TCP.ACK:
		return t.handleAck(host, proto, d), nil, nil
	default:
		return nil, nil, nil
	}
}

func (t *Table) handleSynAck(host model.HostKey, proto uint8, d *frame.Decoded, buf gopacket.SerializeBuffer) (*model.ScanResult, []byte, error) {
	flags := model.Synack
	state, existed := t.states[host]

	if !existed {
		attempted := 0
		var payload []byte
		if len(t.handshakes) > 0 {
			attempted = 1
			payload = t.handshakes[0].Request
		}
		state = &model.ProbeState{Attempted: attempted, LastFlags: flags}
		t.states[host] = state

		result := &model.ScanResult{
			IP:                host.IP,
			Port:              host.Port,
			TransportProtocol: proto,
			TCPFlags:          flagPtr(flags),
			Data:              payload,
		}

		respBytes, ok, err := frame.BuildResponse(d, payload, buf)
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			return result, nil, nil
		}
		return result, respBytes, nil
	}

	// A second SYN-ACK from an already-known host: increment the attempt
	// counter (clamped to len(handshakes), spec.md §8's quantified
	// invariant) and record the flags, but emit no outbound frame — this is
	// the literal behavior spec.md §4.3/§9 documents and explicitly
	// declines to resolve (Open Question 1; see DESIGN.md).
	if state.Attempted < len(t.handshakes) {
		state.Attempted++
	}
	state.LastFlags = flags

	result := &model.ScanResult{
		IP:                host.IP,
		Port:              host.Port,
		TransportProtocol: proto,
		TCPFlags:          flagPtr(flags),
	}
	return result, nil, nil
}

func (t *Table) handleRst(host model.HostKey, proto uint8) *model.ScanResult {
	if state, ok := t.states[host]; ok {
		state.LastFlags = model.Rst
	}
	// No outbound frame: spec.md §4.3/§9 Open Question 2 leaves re-enqueue
	// on RST unresolved; this repository records the observation only.
	return &model.ScanResult{
		IP:                host.IP,
		Port:              host.Port,
		TransportProtocol: proto,
		TCPFlags:          flagPtr(model.Rst),
	}
}

func (t *Table) handleAck(host model.HostKey, proto uint8, d *frame.Decoded) *model.ScanResult {
	var service *string
	if idx, ok := fingerprint.Match(d.Payload, t.handshakes); ok {
		s := t.handshakes[idx].Service
		service = &s
	}

	return &model.ScanResult{
		IP:                host.IP,
		Port:              host.Port,
		TransportProtocol: proto,
		Service:           service,
		TCPFlags:          flagPtr(model.Ack),
		Data:              d.Payload,
	}
}

func flagPtr(f model.TCPFlags) *model.TCPFlags {
	return &f
}

func mustAddr(ip []byte) netip.Addr {
	addr, ok := netip.AddrFromSlice(ip)
	if !ok {
		return netip.Addr{}
	}
	return addr.Unmap()
}
