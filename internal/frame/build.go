package frame

import (
	"fmt"
	"math/rand"
	"net"
	"net/netip"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"github.com/eightbitlabs/synprobe/internal/synerr"
)

// SeqFunc generates the initial sequence number for a SYN probe
// (spec.md §4.1: "sequence number = random 32-bit"). Overridable by tests.
var SeqFunc = rand.Uint32

// SynSpec carries everything BuildSYN needs to fabricate one ethernet/IP/
// TCP-SYN frame for a target, without frame importing the model or config
// packages (those convert into a SynSpec at the call site).
type SynSpec struct {
	SrcMAC, DstMAC net.HardwareAddr
	SrcIPv4        netip.Addr // must be valid if DstIP is IPv4
	SrcIPv6        netip.Addr // must be valid if DstIP is IPv6
	SrcPort        uint16
	DstIP          netip.Addr
	DstPort        uint16
	Payload        []byte // target's optional attached payload (spec.md §3), carried on the SYN itself
}

// BuildSYN writes an ethernet frame with (src_mac=cfg.src_mac,
// dst_mac=cfg.dst_mac), an IP header (TTL=20, src from cfg, dst from
// target), and a TCP header (src_port=cfg.src_port, dst_port=target.port,
// a random sequence number, window=65535, SYN set) into buf, returning the
// serialized bytes (spec.md §4.1).
func BuildSYN(spec SynSpec, buf gopacket.SerializeBuffer) ([]byte, error) {
	eth := &layers.Ethernet{SrcMAC: spec.SrcMAC, DstMAC: spec.DstMAC}

	var ipLayer gopacket.SerializableLayer
	var netLayer gopacket.NetworkLayer

	switch {
	case spec.DstIP.Is4():
		if !spec.SrcIPv4.IsValid() {
			return nil, synerr.ErrMissingIPv4
		}
		eth.EthernetType = layers.EthernetTypeIPv4
		ip4 := &layers.IPv4{
			Version:  4,
			TTL:      20,
			Protocol: layers.IPProtocolTCP,
			SrcIP:    spec.SrcIPv4.AsSlice(),
			DstIP:    spec.DstIP.AsSlice(),
		}
		ipLayer, netLayer = ip4, ip4
	case spec.DstIP.Is6():
		if !spec.SrcIPv6.IsValid() {
			return nil, synerr.ErrMissingIPv6
		}
		eth.EthernetType = layers.EthernetTypeIPv6
		ip6 := &layers.IPv6{
			Version:    6,
			HopLimit:   20,
			NextHeader: layers.IPProtocolTCP,
			SrcIP:      spec.SrcIPv6.AsSlice(),
			DstIP:      spec.DstIP.AsSlice(),
		}
		ipLayer, netLayer = ip6, ip6
	default:
		return nil, fmt.Errorf("%w: target IP %s has no recognized family", synerr.ErrConfig, spec.DstIP)
	}

	tcp := &layers.TCP{
		SrcPort: layers.TCPPort(spec.SrcPort),
		DstPort: layers.TCPPort(spec.DstPort),
		Seq:     SeqFunc(),
		Window:  65535,
		SYN:     true,
	}
	if err := tcp.SetNetworkLayerForChecksum(netLayer); err != nil {
		return nil, fmt.Errorf("error setting network layer for checksum: %w", err)
	}

	buf.Clear()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}

	var err error
	if len(spec.Payload) > 0 {
		err = gopacket.SerializeLayers(buf, opts, eth, ipLayer, tcp, gopacket.Payload(spec.Payload))
	} else {
		err = gopacket.SerializeLayers(buf, opts, eth, ipLayer, tcp)
	}
	if err != nil {
		return nil, fmt.Errorf("error serializing SYN frame: %w", err)
	}

	out := make([]byte, len(buf.Bytes()))
	copy(out, buf.Bytes())
	return out, nil
}

// responseFlags is the one-of-five outcomes of the response flag policy in
// spec.md §4.3: "SYN-only → reply SYN+ACK; SYN+ACK → reply ACK (payload may
// be attached); ACK → reply ACK; FIN → reply FIN+ACK; RST → reply RST+ACK;
// else → no frame."
type responseFlags struct {
	syn, ack, fin, rst bool
}

func policy(in *layers.TCP) (responseFlags, bool) {
	switch {
	case in.SYN && !in.ACK:
		return responseFlags{syn: true, ack: true}, true
	case in.SYN && in.ACK:
		return responseFlags{ack: true}, true
	case in.FIN:
		return responseFlags{fin: true, ack: true}, true
	case in.RST:
		return responseFlags{rst: true, ack: true}, true
	case in.ACK:
		return responseFlags{ack: true}, true
	default:
		return responseFlags{}, false
	}
}

// isPureAck reports whether a responseFlags value carries ACK alone, the
// only shape allowed to carry a payload (spec.md §4.3).
func (f responseFlags) isPureAck() bool {
	return f.ack && !f.syn && !f.fin && !f.rst
}

// BuildResponse emits the peer-swap of d: link MACs swapped, IP
// source/destination swapped with TTL=20 in the same family, and TCP
// ports swapped with seq = d.seq+1 and ack = d.seq+1 (spec.md §4.1's
// "seq = sliced.seq + 1", generalized to the ack field too — see
// DESIGN.md's resolution of the §4.3/§8 ack_num wording). Flags are chosen
// per the response flag policy above. payload is attached only when the
// response is a pure ACK; it is otherwise ignored. Returns ok=false (no
// error) for non-TCP transports or flag combinations the policy ignores.
func BuildResponse(d *Decoded, payload []byte, buf gopacket.SerializeBuffer) ([]byte, bool, error) {
	if d.TCP == nil {
		return nil, false, nil
	}

	flags, ok := policy(d.TCP)
	if !ok {
		return nil, false, nil
	}

	eth := &layers.Ethernet{
		SrcMAC:       d.Eth.DstMAC,
		DstMAC:       d.Eth.SrcMAC,
		EthernetType: d.Eth.EthernetType,
	}

	var ipLayer gopacket.SerializableLayer
	var netLayer gopacket.NetworkLayer

	switch {
	case d.IPv4 != nil:
		ip4 := &layers.IPv4{
			Version:  4,
			TTL:      20,
			Protocol: layers.IPProtocolTCP,
			SrcIP:    d.IPv4.DstIP,
			DstIP:    d.IPv4.SrcIP,
		}
		ipLayer, netLayer = ip4, ip4
	case d.IPv6 != nil:
		ip6 := &layers.IPv6{
			Version:    6,
			HopLimit:   20,
			NextHeader: layers.IPProtocolTCP,
			SrcIP:      d.IPv6.DstIP,
			DstIP:      d.IPv6.SrcIP,
		}
		ipLayer, netLayer = ip6, ip6
	default:
		return nil, false, nil
	}

	outTCP := &layers.TCP{
		SrcPort: d.TCP.DstPort,
		DstPort: d.TCP.SrcPort,
		Seq:     d.TCP.Seq + 1,
		Ack:     d.TCP.Seq + 1,
		Window:  d.TCP.Window,
		SYN:     flags.syn,
		ACK:     flags.ack,
		FIN:     flags.fin,
		RST:     flags.rst,
	}
	if err := outTCP.SetNetworkLayerForChecksum(netLayer); err != nil {
		return nil, false, fmt.Errorf("error setting network layer for checksum: %w", err)
	}

	buf.Clear()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}

	var err error
	if flags.isPureAck() && len(payload) > 0 {
		err = gopacket.SerializeLayers(buf, opts, eth, ipLayer, outTCP, gopacket.Payload(payload))
	} else {
		err = gopacket.SerializeLayers(buf, opts, eth, ipLayer, outTCP)
	}
	if err != nil {
		return nil, false, fmt.Errorf("error serializing response frame: %w", err)
	}

	out := make([]byte, len(buf.Bytes()))
	copy(out, buf.Bytes())
	return out, true, nil
}
