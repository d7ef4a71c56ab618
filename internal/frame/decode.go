// Package frame is the ethernet+IPv4/IPv6+TCP frame codec (spec.md §4.1).
// It knows nothing about hosts, probe state, or handshakes: Decode parses a
// received frame into link/network/transport slices, BuildSYN constructs an
// initial SYN frame for a target, and BuildResponse fabricates the
// peer-swapped reply to a decoded frame.
package frame

import (
	"fmt"
	"net"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"github.com/eightbitlabs/synprobe/internal/synerr"
)

// Decoded is the parsed view of one received frame — the Go analogue of
// etherparse's SlicedPacket. Layer pointers alias into the buffer gopacket
// parsed rather than copying it, except where gopacket's own decoders copy
// (e.g. checksummed fields); Payload is the remaining application data.
type Decoded struct {
	Eth    *layers.Ethernet
	IPv4   *layers.IPv4
	IPv6   *layers.IPv6
	TCP    *layers.TCP
	UDP    *layers.UDP
	ICMPv4 *layers.ICMPv4
	ICMPv6 *layers.ICMPv6

	Payload []byte
}

// Decode parses an ethernet frame. Parse failures are always wrapped in
// synerr.ErrDecode so callers can recover locally (spec.md §4.1, §7):
// the wire is noisy and a malformed frame is simply skipped.
func Decode(raw []byte) (*Decoded, error) {
	pkt := gopacket.NewPacket(raw, layers.LayerTypeEthernet, gopacket.NoCopy)
	if errLayer := pkt.ErrorLayer(); errLayer != nil {
		return nil, fmt.Errorf("%w: %v", synerr.ErrDecode, errLayer.Error())
	}

	ethLayer, ok := pkt.LinkLayer().(*layers.Ethernet)
	if !ok {
		return nil, fmt.Errorf("%w: no ethernet link layer", synerr.ErrDecode)
	}

	d := &Decoded{Eth: ethLayer}

	switch nl := pkt.NetworkLayer().(type) {
	case *layers.IPv4:
		d.IPv4 = nl
	case *layers.IPv6:
		d.IPv6 = nl
	default:
		return nil, fmt.Errorf("%w: no IPv4/IPv6 network layer", synerr.ErrDecode)
	}

	switch tl := pkt.TransportLayer().(type) {
	case *layers.TCP:
		d.TCP = tl
	case *layers.UDP:
		d.UDP = tl
	}

	if icmp4, ok := pkt.Layer(layers.LayerTypeICMPv4).(*layers.ICMPv4); ok {
		d.ICMPv4 = icmp4
	}
	if icmp6, ok := pkt.Layer(layers.LayerTypeICMPv6).(*layers.ICMPv6); ok {
		d.ICMPv6 = icmp6
	}

	if app := pkt.ApplicationLayer(); app != nil {
		d.Payload = app.Payload()
	}

	return d, nil
}

// SrcIP returns the source address of whichever IP family was parsed.
func (d *Decoded) SrcIP() net.IP {
	if d.IPv4 != nil {
		return d.IPv4.SrcIP
	}
	if d.IPv6 != nil {
		return d.IPv6.SrcIP
	}
	return nil
}

// DstIP returns the destination address of whichever IP family was parsed.
func (d *Decoded) DstIP() net.IP {
	if d.IPv4 != nil {
		return d.IPv4.DstIP
	}
	if d.IPv6 != nil {
		return d.IPv6.DstIP
	}
	return nil
}

// TransportProtocol is the IANA protocol/next-header number (spec.md §3's
// "ip_number") of the transport layer that was parsed.
func (d *Decoded) TransportProtocol() uint8 {
	switch {
	case d.TCP != nil:
		return uint8(layers.IPProtocolTCP)
	case d.UDP != nil:
		return uint8(layers.IPProtocolUDP)
	case d.ICMPv4 != nil:
		return uint8(layers.IPProtocolICMPv4)
	case d.ICMPv6 != nil:
		return uint8(layers.IPProtocolICMPv6)
	default:
		return 0
	}
}

// SrcPort returns the TCP/UDP source port, or 0 for non-port transports.
func (d *Decoded) SrcPort() uint16 {
	if d.TCP != nil {
		return uint16(d.TCP.SrcPort)
	}
	if d.UDP != nil {
		return uint16(d.UDP.SrcPort)
	}
	return 0
}

// DstPort returns the TCP/UDP destination port, or 0 for non-port transports.
func (d *Decoded) DstPort() uint16 {
	if d.TCP != nil {
		return uint16(d.TCP.DstPort)
	}
	if d.UDP != nil {
		return uint16(d.UDP.DstPort)
	}
	return 0
}
