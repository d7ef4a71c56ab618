package scanner

import (
	"errors"
	"net"
	"net/netip"
	"sync"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/eightbitlabs/synprobe/internal/endpoint"
	"github.com/eightbitlabs/synprobe/internal/frame"
	"github.com/eightbitlabs/synprobe/internal/model"
	"github.com/eightbitlabs/synprobe/internal/synerr"
)

// fakeHandle stands in for a bound network interface. WritePacketData
// inspects what was sent and, if it looks like one of this system's own SYN
// probes, synthesizes the target's SYN-ACK reply using the same
// peer-swap the real wire would perform — giving these tests a
// deterministic "target" without a real socket.
type fakeHandle struct {
	mu      sync.Mutex
	inbound chan []byte
	closed  bool
}

func newFakeHandle() *fakeHandle {
	return &fakeHandle{inbound: make(chan []byte, 256)}
}

// feed injects raw bytes directly onto the wire, bypassing WritePacketData's
// synthetic responder — used to simulate noise (e.g. a malformed frame)
// arriving independently of anything this system sent.
func (f *fakeHandle) feed(raw []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.inbound <- raw
}

func (f *fakeHandle) ReadPacketData() ([]byte, gopacket.CaptureInfo, error) {
	data, ok := <-f.inbound
	if !ok {
		return nil, gopacket.CaptureInfo{}, errClosed
	}
	return data, gopacket.CaptureInfo{}, nil
}

func (f *fakeHandle) WritePacketData(data []byte) error {
	decoded, err := frame.Decode(data)
	if err != nil || decoded.TCP == nil {
		return nil
	}
	// Only reply to a bare SYN probe, so this fake models one target
	// answering one probe rather than ping-ponging forever with the
	// scanner's own handshake follow-up frames.
	if !decoded.TCP.SYN || decoded.TCP.ACK {
		return nil
	}

	resp, ok, err := frame.BuildResponse(decoded, nil, gopacket.NewSerializeBuffer())
	if err != nil || !ok {
		return nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.inbound <- resp
	return nil
}

func (f *fakeHandle) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	close(f.inbound)
}

var errClosed = errors.New("fake handle closed")

func testConfig() model.ScanConfig {
	return model.ScanConfig{
		SrcMAC:  net.HardwareAddr{0x02, 0, 0, 0, 0, 1},
		DstMAC:  net.HardwareAddr{0x02, 0, 0, 0, 0, 2},
		SrcIPv4: netip.MustParseAddr("10.0.0.1"),
		SrcPort: 40000,
	}
}

func TestScannerHandshakeToSynAck(t *testing.T) {
	fake := newFakeHandle()
	ep := endpoint.Wrap(fake)
	handshakes := []model.Handshake{
		{Service: "http", Request: []byte("GET / HTTP/1.0\r\n\r\n"), Response: []byte("HTTP/1.")},
	}

	log := logrus.NewEntry(logrus.New())
	s := New(testConfig(), handshakes, ep, log)

	require.NoError(t, s.ScanTarget(model.Target{IP: netip.MustParseAddr("10.0.0.2"), Port: 80}))

	select {
	case result := <-s.Results():
		require.Equal(t, "10.0.0.2", result.IP.String())
		require.EqualValues(t, 80, result.Port)
		require.Equal(t, model.Synack, *result.TCPFlags)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for scan result")
	}

	require.NoError(t, s.Shutdown())
	require.ErrorIs(t, s.Shutdown(), synerr.ErrAlreadyShutdown)

	// Results channel must close once Shutdown has drained the pipeline.
	select {
	case _, ok := <-s.Results():
		require.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("results channel never closed")
	}
}

// TestScannerSurvivesMalformedFrame is spec.md §8 scenario 5: injecting
// random, undecodable bytes must produce no result, no outbound frame, and
// must not kill the RX worker. A legitimate probe sent afterwards still
// needs to produce a result, proving the worker kept running.
func TestScannerSurvivesMalformedFrame(t *testing.T) {
	fake := newFakeHandle()
	ep := endpoint.Wrap(fake)
	log := logrus.NewEntry(logrus.New())
	s := New(testConfig(), nil, ep, log)

	garbage := make([]byte, 64)
	for i := range garbage {
		garbage[i] = byte(i * 37)
	}
	fake.feed(garbage)

	select {
	case r := <-s.Results():
		t.Fatalf("expected no result from a malformed frame, got %+v", r)
	case <-time.After(200 * time.Millisecond):
	}

	require.NoError(t, s.ScanTarget(model.Target{IP: netip.MustParseAddr("10.0.0.2"), Port: 80}))

	select {
	case result := <-s.Results():
		require.Equal(t, model.Synack, *result.TCPFlags)
	case <-time.After(2 * time.Second):
		t.Fatal("RX worker appears to have exited after the malformed frame")
	}

	require.NoError(t, s.Shutdown())
}

// TestScannerHandlesManyTargets is a scaled-down stand-in for spec.md §8
// scenario 4 (64999 targets within a 5-second drain window): this
// repository uses 2000 targets in-process against the fake responder
// rather than the full count against a real veth pair, since nothing in
// this environment can stand up either. It still exercises the same
// property: every target submitted produces exactly one Synack result,
// and the pipeline drains them all without deadlocking.
func TestScannerHandlesManyTargets(t *testing.T) {
	const n = 2000

	fake := newFakeHandle()
	ep := endpoint.Wrap(fake)
	log := logrus.NewEntry(logrus.New())
	s := New(testConfig(), nil, ep, log)

	submitErrs := make(chan error, 1)
	go func() {
		for i := 0; i < n; i++ {
			ip := netip.AddrFrom4([4]byte{10, 1, byte(i >> 8), byte(i)})
			if err := s.ScanTarget(model.Target{IP: ip, Port: 80}); err != nil {
				submitErrs <- err
				return
			}
		}
		submitErrs <- nil
	}()

	seen := 0
	deadline := time.After(5 * time.Second)
	for seen < n {
		select {
		case result := <-s.Results():
			require.Equal(t, model.Synack, *result.TCPFlags)
			seen++
		case <-deadline:
			t.Fatalf("only drained %d/%d results within the deadline", seen, n)
		}
	}

	require.NoError(t, <-submitErrs)
	require.NoError(t, s.Shutdown())
}
