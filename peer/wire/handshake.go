package wire

import (
	"fmt"
	"io"
)

const protocol = "BitTorrent protocol"

// Handshake is the 68-byte exchange that opens a peer TCP connection,
// carrying the protocol name, info_hash and peer_id.
type Handshake struct {
	Pstr     string
	InfoHash [20]byte
	PeerID   [20]byte
}

// NewHandshake builds a handshake for the given torrent/peer identity.
func NewHandshake(infoHash, peerID [20]byte) *Handshake {
	return &Handshake{Pstr: protocol, InfoHash: infoHash, PeerID: peerID}
}

// Serialize encodes h as the fixed 68-byte wire form (for the standard
// 19-byte protocol name): 1-byte length, name, 8 reserved zero bytes,
// info_hash, peer_id.
func (h *Handshake) Serialize() []byte {
	buf := make([]byte, len(h.Pstr)+49)
	cursor := 1
	buf[0] = byte(len(h.Pstr))
	cursor += copy(buf[cursor:], h.Pstr)
	cursor += copy(buf[cursor:], make([]byte, 8))
	cursor += copy(buf[cursor:], h.InfoHash[:])
	copy(buf[cursor:], h.PeerID[:])
	return buf
}

// ReadHandshake parses a handshake from r. The response is valid iff the
// first byte equals 19 (the length of the standard protocol name).
func ReadHandshake(r io.Reader) (*Handshake, error) {
	lenBuf := make([]byte, 1)
	if _, err := io.ReadFull(r, lenBuf); err != nil {
		return nil, fmt.Errorf("wire: read handshake length: %w", err)
	}
	pstrlen := int(lenBuf[0])
	if pstrlen != len(protocol) {
		return nil, fmt.Errorf("wire: unexpected protocol name length %d", pstrlen)
	}

	rest := make([]byte, pstrlen+48)
	if _, err := io.ReadFull(r, rest); err != nil {
		return nil, fmt.Errorf("wire: read handshake body: %w", err)
	}

	h := &Handshake{Pstr: string(rest[0:pstrlen])}
	cursor := pstrlen + 8
	copy(h.InfoHash[:], rest[cursor:cursor+20])
	cursor += 20
	copy(h.PeerID[:], rest[cursor:cursor+20])
	return h, nil
}
