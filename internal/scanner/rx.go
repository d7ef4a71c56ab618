package scanner

import (
	"github.com/google/gopacket"
	"github.com/sirupsen/logrus"

	"github.com/eightbitlabs/synprobe/internal/frame"
	"github.com/eightbitlabs/synprobe/internal/model"
	"github.com/eightbitlabs/synprobe/internal/probe"
)

// logFields renders a ScanResult as structured logging fields, the
// direct equivalent of the original implementation's log_response call
// (see SPEC_FULL.md's "Supplemented Features").
func logFields(r *model.ScanResult) logrus.Fields {
	f := logrus.Fields{
		"ip":                  r.IP.String(),
		"port":                r.Port,
		"transport_protocol": r.TransportProtocol,
	}
	if r.TCPFlags != nil {
		f["tcp_flags"] = r.TCPFlags.String()
	}
	if r.Service != nil {
		f["service"] = *r.Service
	}
	return f
}

// runRX reads frames from its own clone of the endpoint, decodes them, and
// routes them through the probe state table (spec.md §4.3, §4.6). A
// Recv error after Shutdown has begun is the expected wakeup signal
// (spec.md §9 Open Question 4) and ends the loop quietly; any other time
// it's logged and the loop continues, since the wire is noisy and one bad
// read shouldn't end a scan.
func (s *Scanner) runRX() {
	defer s.wg.Done()

	rx := s.ep.Clone()
	table := probe.NewTable(s.handshakes, s.cfg.SrcPort)
	buf := gopacket.NewSerializeBuffer()

	for {
		raw, err := rx.Recv()
		if err != nil {
			if s.shuttingDown.Load() {
				return
			}
			s.log.WithError(err).Warn("receiving frame")
			continue
		}

		decoded, err := frame.Decode(raw)
		if err != nil {
			s.log.WithError(err).Warn("discarding undecodable frame")
			continue
		}

		result, resp, err := table.Handle(decoded, buf)
		if err != nil {
			s.log.WithError(err).Warn("handling decoded frame")
			continue
		}

		if result != nil {
			s.log.WithFields(logFields(result)).Debug("scan result")
			s.results.Push(*result)
		}
		if resp != nil {
			s.outbound.Push(resp)
		}
	}
}
