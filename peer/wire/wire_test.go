package wire

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandshakeRoundTrip(t *testing.T) {
	infoHash := [20]byte{}
	peerID := [20]byte{}
	copy(infoHash[:], "info_hash_1234567890")
	copy(peerID[:], "peer_id_1234567890_")

	h := NewHandshake(infoHash, peerID)
	encoded := h.Serialize()
	require.Len(t, encoded, 68)

	parsed, err := ReadHandshake(bytes.NewReader(encoded))
	require.NoError(t, err)
	assert.Equal(t, infoHash, parsed.InfoHash)
	assert.Equal(t, peerID, parsed.PeerID)
	assert.Equal(t, protocol, parsed.Pstr)
}

func TestReadHandshakeRejectsBadLength(t *testing.T) {
	buf := make([]byte, 68)
	buf[0] = 7
	_, err := ReadHandshake(bytes.NewReader(buf))
	assert.Error(t, err)
}

func TestMessageSerializeAndRead(t *testing.T) {
	m := &Message{ID: Request, Payload: []byte{0, 0, 0, 1, 0, 0, 0, 2, 0, 0, 0, 3}}
	encoded := m.Serialize()

	parsed, err := Read(bytes.NewReader(encoded))
	require.NoError(t, err)
	require.NotNil(t, parsed)
	assert.Equal(t, m.ID, parsed.ID)
	assert.Equal(t, m.Payload, parsed.Payload)
}

func TestKeepAliveRoundTrip(t *testing.T) {
	var m *Message
	encoded := m.Serialize()
	assert.Equal(t, []byte{0, 0, 0, 0}, encoded)

	parsed, err := Read(bytes.NewReader(encoded))
	require.NoError(t, err)
	assert.Nil(t, parsed)
}

func TestFormatAndParseHave(t *testing.T) {
	m := FormatHave(42)
	index, err := ParseHave(m)
	require.NoError(t, err)
	assert.Equal(t, 42, index)
}

func TestParsePieceCopiesBlockAtOffset(t *testing.T) {
	buf := make([]byte, 16)
	payload := append([]byte{0, 0, 0, 0, 0, 0, 0, 4}, []byte("DATA")...)
	m := &Message{ID: Piece, Payload: payload}

	n, err := ParsePiece(0, buf, m)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, []byte("DATA"), buf[4:8])
}

func TestParsePieceRejectsWrongIndex(t *testing.T) {
	buf := make([]byte, 16)
	payload := make([]byte, 8)
	m := &Message{ID: Piece, Payload: payload}
	_, err := ParsePiece(1, buf, m)
	assert.Error(t, err)
}
