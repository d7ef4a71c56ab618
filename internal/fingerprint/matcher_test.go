package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/eightbitlabs/synprobe/internal/model"
)

func TestMatchFirstWins(t *testing.T) {
	handshakes := []model.Handshake{
		{Service: "generic", Response: []byte("OK")},
		{Service: "http", Response: []byte("HTTP/1.1")},
	}

	idx, ok := Match([]byte("HTTP/1.1 200 OK\r\n"), handshakes)
	require.True(t, ok)
	require.Equal(t, 0, idx) // "OK" occurs in the payload too, but is listed first

	idx, ok = Match([]byte("HTTP/1.1 200\r\n"), []model.Handshake{
		{Service: "http", Response: []byte("HTTP/1.1")},
		{Service: "generic", Response: []byte("OK")},
	})
	require.True(t, ok)
	require.Equal(t, 0, idx)
}

func TestMatchNoneFound(t *testing.T) {
	_, ok := Match([]byte("nope"), []model.Handshake{
		{Service: "ssh", Response: []byte("SSH-2.0")},
	})
	require.False(t, ok)
}

func TestMatchSkipsEmptyResponses(t *testing.T) {
	idx, ok := Match([]byte("anything"), []model.Handshake{
		{Service: "blank"},
		{Service: "real", Response: []byte("thing")},
	})
	require.True(t, ok)
	require.Equal(t, 1, idx)
}
