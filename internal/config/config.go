// Package config turns the raw CLI arguments into a validated
// model.ScanConfig (spec.md §3 invariant (iv), §6).
package config

import (
	"fmt"
	"net"
	"net/netip"

	"github.com/eightbitlabs/synprobe/internal/model"
	"github.com/eightbitlabs/synprobe/internal/synerr"
)

// Args is the subset of cmd/synprobe's parsed CLI flags this package needs;
// it is a plain struct rather than the go-arg type itself so this package
// stays independent of the CLI layer.
type Args struct {
	SrcMAC         string
	DstMAC         string
	SrcIPv4        string
	SrcIPv6        string
	SrcPort        uint16
	HandshakesFile string
}

// Build parses and validates Args into a model.ScanConfig. Exactly one of
// SrcIPv4/SrcIPv6 need be set; both may be set to probe mixed-family
// target lists in one run, but at least one must resolve (spec.md §3
// invariant (iv)).
func Build(a Args) (model.ScanConfig, error) {
	srcMAC, err := net.ParseMAC(a.SrcMAC)
	if err != nil || len(srcMAC) != 6 {
		return model.ScanConfig{}, fmt.Errorf("%w: src_mac %q is not a 6-octet ethernet address", synerr.ErrConfig, a.SrcMAC)
	}
	dstMAC, err := net.ParseMAC(a.DstMAC)
	if err != nil || len(dstMAC) != 6 {
		return model.ScanConfig{}, fmt.Errorf("%w: dst_mac %q is not a 6-octet ethernet address", synerr.ErrConfig, a.DstMAC)
	}

	var srcIPv4, srcIPv6 netip.Addr
	if a.SrcIPv4 != "" {
		srcIPv4, err = netip.ParseAddr(a.SrcIPv4)
		if err != nil || !srcIPv4.Is4() {
			return model.ScanConfig{}, fmt.Errorf("%w: src_ipv4 %q is not a valid IPv4 address", synerr.ErrConfig, a.SrcIPv4)
		}
	}
	if a.SrcIPv6 != "" {
		srcIPv6, err = netip.ParseAddr(a.SrcIPv6)
		if err != nil || !srcIPv6.Is6() {
			return model.ScanConfig{}, fmt.Errorf("%w: src_ipv6 %q is not a valid IPv6 address", synerr.ErrConfig, a.SrcIPv6)
		}
	}
	if !srcIPv4.IsValid() && !srcIPv6.IsValid() {
		return model.ScanConfig{}, fmt.Errorf("%w: at least one of src_ipv4/src_ipv6 must be set", synerr.ErrConfig)
	}

	if a.HandshakesFile == "" {
		return model.ScanConfig{}, fmt.Errorf("%w: handshakes file path is required", synerr.ErrConfig)
	}

	return model.ScanConfig{
		SrcMAC:         srcMAC,
		DstMAC:         dstMAC,
		SrcIPv4:        srcIPv4,
		SrcIPv6:        srcIPv6,
		SrcPort:        a.SrcPort,
		HandshakesFile: a.HandshakesFile,
	}, nil
}

// Validate checks a target against cfg, returning the sentinel error that
// applies if the target's family has no matching source address configured
// (spec.md §3 invariant (iv), §4.1).
func Validate(cfg model.ScanConfig, target model.Target) error {
	switch {
	case target.IP.Is4():
		if !cfg.SrcIPv4.IsValid() {
			return fmt.Errorf("%w: target %s is IPv4 but no src_ipv4 is configured", synerr.ErrMissingIPv4, target.IP)
		}
	case target.IP.Is6():
		if !cfg.SrcIPv6.IsValid() {
			return fmt.Errorf("%w: target %s is IPv6 but no src_ipv6 is configured", synerr.ErrMissingIPv6, target.IP)
		}
	default:
		return fmt.Errorf("%w: target %s has no recognized IP family", synerr.ErrConfig, target.IP)
	}
	return nil
}
