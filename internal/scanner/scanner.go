// Package scanner is the top-level façade: it owns the endpoint, the probe
// state table, and the TX/RX worker goroutines, and exposes ScanTarget and
// Shutdown to the caller (spec.md §4.5, §4.6, §4.7).
package scanner

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/gopacket"
	"github.com/sirupsen/logrus"

	"github.com/eightbitlabs/synprobe/internal/endpoint"
	"github.com/eightbitlabs/synprobe/internal/frame"
	"github.com/eightbitlabs/synprobe/internal/model"
	"github.com/eightbitlabs/synprobe/internal/probe"
	"github.com/eightbitlabs/synprobe/internal/queue"
	"github.com/eightbitlabs/synprobe/internal/synerr"
)

// Scanner wires one endpoint to a TX worker and an RX worker sharing an
// unbounded outbound-frame queue (spec.md §5). Results flow out over a
// single unbounded queue drained into the channel Results returns.
type Scanner struct {
	cfg        model.ScanConfig
	handshakes []model.Handshake
	log        *logrus.Entry

	ep       *endpoint.Endpoint
	outbound *queue.Unbounded[[]byte]
	results  *queue.Unbounded[model.ScanResult]

	resultsOut chan model.ScanResult

	shuttingDown atomic.Bool
	shutdownOnce sync.Once
	wg           sync.WaitGroup
}

// New starts the TX and RX workers against ep and returns the ready
// Scanner. handshakes must already be loaded (internal/handshake.Load).
func New(cfg model.ScanConfig, handshakes []model.Handshake, ep *endpoint.Endpoint, log *logrus.Entry) *Scanner {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	s := &Scanner{
		cfg:        cfg,
		handshakes: handshakes,
		log:        log,
		ep:         ep,
		outbound:   queue.New[[]byte](),
		results:    queue.New[model.ScanResult](),
		resultsOut: make(chan model.ScanResult),
	}

	s.wg.Add(2)
	go s.runTX()
	go s.runRX()
	go s.forwardResults()

	return s
}

// Results returns the channel of ScanResults the caller should drain (e.g.
// into internal/resultstream.Emit). It closes once Shutdown has fully
// drained the pipeline.
func (s *Scanner) Results() <-chan model.ScanResult {
	return s.resultsOut
}

// ScanTarget fabricates and enqueues the initial SYN frame for one target
// (spec.md §4.1, §4.5). It returns synerr.ErrMissingIPv4/ErrMissingIPv6 if
// the configured source addresses don't cover the target's family, and
// synerr.ErrAlreadyShutdown if called after Shutdown.
func (s *Scanner) ScanTarget(target model.Target) error {
	if s.shuttingDown.Load() {
		return synerr.ErrAlreadyShutdown
	}

	spec := frame.SynSpec{
		SrcMAC:  s.cfg.SrcMAC,
		DstMAC:  s.cfg.DstMAC,
		SrcIPv4: s.cfg.SrcIPv4,
		SrcIPv6: s.cfg.SrcIPv6,
		SrcPort: s.cfg.SrcPort,
		DstIP:   target.IP,
		DstPort: target.Port,
		Payload: target.Data,
	}

	buf := gopacket.NewSerializeBuffer()
	syn, err := frame.BuildSYN(spec, buf)
	if err != nil {
		return fmt.Errorf("building SYN for %s:%d: %w", target.IP, target.Port, err)
	}

	s.outbound.Push(syn)
	return nil
}

// Shutdown stops accepting new targets, closes the endpoint (waking the
// blocked RX read — spec.md §9 Open Question 4), and waits for both
// workers to drain before closing the result stream. Calling it more than
// once returns synerr.ErrAlreadyShutdown.
func (s *Scanner) Shutdown() error {
	alreadyShut := true
	s.shutdownOnce.Do(func() {
		alreadyShut = false
		s.shuttingDown.Store(true)
		s.outbound.Close()
		if err := s.ep.Close(); err != nil {
			s.log.WithError(err).Warn("closing endpoint during shutdown")
		}
	})
	if alreadyShut {
		return synerr.ErrAlreadyShutdown
	}

	s.wg.Wait()
	s.results.Close()
	return nil
}

func (s *Scanner) forwardResults() {
	defer close(s.resultsOut)
	for {
		r, ok := s.results.Pop()
		if !ok {
			return
		}
		s.resultsOut <- r
	}
}
