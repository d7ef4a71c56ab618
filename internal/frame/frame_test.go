package frame

import (
	"net"
	"net/netip"
	"testing"

	"github.com/google/gopacket"
	"github.com/stretchr/testify/require"

	"github.com/eightbitlabs/synprobe/internal/synerr"
)

func testSpec() SynSpec {
	return SynSpec{
		SrcMAC:  net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x01},
		DstMAC:  net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x02},
		SrcIPv4: netip.MustParseAddr("10.0.0.1"),
		SrcPort: 40000,
		DstIP:   netip.MustParseAddr("10.0.0.2"),
		DstPort: 80,
	}
}

func TestBuildSYNRequiresMatchingSource(t *testing.T) {
	spec := testSpec()
	spec.SrcIPv4 = netip.Addr{}

	_, err := BuildSYN(spec, gopacket.NewSerializeBuffer())
	require.ErrorIs(t, err, synerr.ErrMissingIPv4)
}

func TestBuildSYNSetsFlagsAndRandomSeq(t *testing.T) {
	old := SeqFunc
	SeqFunc = func() uint32 { return 4242 }
	defer func() { SeqFunc = old }()

	out, err := BuildSYN(testSpec(), gopacket.NewSerializeBuffer())
	require.NoError(t, err)

	decoded, err := Decode(out)
	require.NoError(t, err)
	require.NotNil(t, decoded.TCP)
	require.True(t, decoded.TCP.SYN)
	require.False(t, decoded.TCP.ACK)
	require.EqualValues(t, 4242, decoded.TCP.Seq)
	require.EqualValues(t, 40000, decoded.TCP.SrcPort)
	require.EqualValues(t, 80, decoded.TCP.DstPort)
	require.Equal(t, "10.0.0.1", decoded.IPv4.SrcIP.String())
	require.Equal(t, "10.0.0.2", decoded.IPv4.DstIP.String())
}

func TestBuildSYNCarriesTargetPayload(t *testing.T) {
	spec := testSpec()
	spec.Payload = []byte("attached target payload")

	out, err := BuildSYN(spec, gopacket.NewSerializeBuffer())
	require.NoError(t, err)

	decoded, err := Decode(out)
	require.NoError(t, err)
	require.Equal(t, spec.Payload, decoded.Payload)
}

func TestDecodeRejectsMalformedFrame(t *testing.T) {
	garbage := make([]byte, 64)
	for i := range garbage {
		garbage[i] = byte(i * 37)
	}

	_, err := Decode(garbage)
	require.Error(t, err)
}

func TestBuildResponseSynAckToSyn(t *testing.T) {
	syn, err := BuildSYN(testSpec(), gopacket.NewSerializeBuffer())
	require.NoError(t, err)

	decoded, err := Decode(syn)
	require.NoError(t, err)

	resp, ok, err := BuildResponse(decoded, nil, gopacket.NewSerializeBuffer())
	require.NoError(t, err)
	require.True(t, ok)

	respDecoded, err := Decode(resp)
	require.NoError(t, err)
	require.True(t, respDecoded.TCP.SYN)
	require.True(t, respDecoded.TCP.ACK)
	require.Equal(t, decoded.IPv4.DstIP.String(), respDecoded.IPv4.SrcIP.String())
	require.Equal(t, decoded.IPv4.SrcIP.String(), respDecoded.IPv4.DstIP.String())
	require.EqualValues(t, decoded.TCP.DstPort, respDecoded.TCP.SrcPort)
	require.EqualValues(t, decoded.TCP.SrcPort, respDecoded.TCP.DstPort)
	require.EqualValues(t, decoded.TCP.Seq+1, respDecoded.TCP.Seq)
	require.EqualValues(t, decoded.TCP.Seq+1, respDecoded.TCP.Ack)
}

func TestBuildResponsePureAckCarriesPayload(t *testing.T) {
	syn, err := BuildSYN(testSpec(), gopacket.NewSerializeBuffer())
	require.NoError(t, err)
	decoded, err := Decode(syn)
	require.NoError(t, err)

	// Flip to a plain ACK so the policy allows a payload.
	decoded.TCP.SYN = false
	decoded.TCP.ACK = true

	payload := []byte("hello")
	resp, ok, err := BuildResponse(decoded, payload, gopacket.NewSerializeBuffer())
	require.NoError(t, err)
	require.True(t, ok)

	respDecoded, err := Decode(resp)
	require.NoError(t, err)
	require.Equal(t, payload, respDecoded.Payload)
}

func TestBuildResponseIgnoresOtherFlags(t *testing.T) {
	syn, err := BuildSYN(testSpec(), gopacket.NewSerializeBuffer())
	require.NoError(t, err)
	decoded, err := Decode(syn)
	require.NoError(t, err)

	decoded.TCP.SYN = false
	decoded.TCP.ACK = false

	resp, ok, err := BuildResponse(decoded, nil, gopacket.NewSerializeBuffer())
	require.NoError(t, err)
	require.False(t, ok)
	require.Nil(t, resp)
}
