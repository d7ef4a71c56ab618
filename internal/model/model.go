// Package model holds the data types shared across synprobe's core
// packages: Target, ScanConfig, Handshake, HostKey, ProbeState, ScanResult
// and TCPFlags (spec.md §3). It has no dependency on gopacket or pcap so
// that internal/frame, internal/probe and internal/scanner can all import
// it without cycles.
package model

import (
	"fmt"
	"net"
	"net/netip"
)

// TCPFlags is the TCP flag combination recorded on a ScanResult or a
// ProbeState, per spec.md §3.
type TCPFlags int

const (
	Syn TCPFlags = iota
	Synack
	Ack
	Rst
)

func (f TCPFlags) String() string {
	switch f {
	case Syn:
		return "Syn"
	case Synack:
		return "Synack"
	case Ack:
		return "Ack"
	case Rst:
		return "Rst"
	default:
		return fmt.Sprintf("TCPFlags(%d)", int(f))
	}
}

// MarshalJSON renders TCPFlags the way the wire schema (spec.md §6) wants:
// one of "Syn"|"Synack"|"Ack"|"Rst".
func (f TCPFlags) MarshalJSON() ([]byte, error) {
	return []byte(`"` + f.String() + `"`), nil
}

// UnmarshalJSON accepts the same four string values.
func (f *TCPFlags) UnmarshalJSON(b []byte) error {
	s := string(b)
	switch s {
	case `"Syn"`:
		*f = Syn
	case `"Synack"`:
		*f = Synack
	case `"Ack"`:
		*f = Ack
	case `"Rst"`:
		*f = Rst
	default:
		return fmt.Errorf("unrecognized tcp flags %s", s)
	}
	return nil
}

// Target is one host to probe: an IP (v4 or v6), a transport port, the
// transport protocol number, and an optional attached payload. Created per
// input line, consumed to produce one SYN frame, never retained
// (spec.md §3).
type Target struct {
	IP       netip.Addr `json:"ip"`
	Port     uint16     `json:"port"`
	IPNumber uint8      `json:"ip_number"`
	Data     []byte     `json:"data,omitempty"`
}

// ScanConfig is immutable for the duration of a run (spec.md §3).
type ScanConfig struct {
	SrcMAC         net.HardwareAddr
	DstMAC         net.HardwareAddr
	SrcIPv4        netip.Addr // zero value (invalid) if unset
	SrcIPv6        netip.Addr // zero value (invalid) if unset
	SrcPort        uint16
	HandshakesFile string
}

// Handshake is a (service name, request bytes, response bytes) triple.
// Request/response are decoded once from base64 at load time and are
// immutable and shared by reference thereafter (spec.md §3).
type Handshake struct {
	Service  string
	Request  []byte
	Response []byte
}

// HostKey identifies the remote peer a ProbeState belongs to. Used only as
// a map key inside the RX worker (spec.md §3).
type HostKey struct {
	IP   netip.Addr
	Port uint16
}

func (k HostKey) String() string {
	return fmt.Sprintf("%s:%d", k.IP, k.Port)
}

// ProbeState is created on first SYN-ACK from a host, mutated by RX, and
// lives until shutdown. Never removed during a run (spec.md §3, §4.3).
type ProbeState struct {
	Attempted  int
	LastFlags  TCPFlags
}

// ScanResult is produced by RX and consumed once by the output stream
// (spec.md §3).
type ScanResult struct {
	IP                 netip.Addr `json:"ip"`
	Port               uint16     `json:"port"`
	TransportProtocol  uint8      `json:"transport_protocol"`
	Service            *string    `json:"service,omitempty"`
	TCPFlags           *TCPFlags  `json:"tcp_flags,omitempty"`
	Data               []byte     `json:"data"`
}
