// Package wire implements the peer wire protocol's message framing: the
// 68-byte handshake and the length-prefixed, tagged messages that follow
// it.
package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// ID identifies a peer wire message type.
type ID uint8

const (
	Choke         ID = 0
	Unchoke       ID = 1
	Interested    ID = 2
	NotInterested ID = 3
	Have          ID = 4
	Bitfield      ID = 5
	Request       ID = 6
	Piece         ID = 7
	Cancel        ID = 8
)

func (id ID) String() string {
	switch id {
	case Choke:
		return "choke"
	case Unchoke:
		return "unchoke"
	case Interested:
		return "interested"
	case NotInterested:
		return "not-interested"
	case Have:
		return "have"
	case Bitfield:
		return "bitfield"
	case Request:
		return "request"
	case Piece:
		return "piece"
	case Cancel:
		return "cancel"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(id))
	}
}

// Message is a length-prefixed peer wire message. A nil *Message
// represents a keep-alive (length-prefix 0, no id, no payload).
type Message struct {
	ID      ID
	Payload []byte
}

// Serialize encodes m as 4-byte big-endian length + id + payload. A nil
// receiver serializes to the 4-byte zero-length keep-alive.
func (m *Message) Serialize() []byte {
	if m == nil {
		return make([]byte, 4)
	}
	length := uint32(len(m.Payload) + 1)
	buf := make([]byte, 4+length)
	binary.BigEndian.PutUint32(buf[0:4], length)
	buf[4] = byte(m.ID)
	copy(buf[5:], m.Payload)
	return buf
}

// Read parses exactly one frame from r. A nil Message with a nil error is
// returned for a keep-alive.
func Read(r io.Reader) (*Message, error) {
	lengthBuf := make([]byte, 4)
	if _, err := io.ReadFull(r, lengthBuf); err != nil {
		return nil, fmt.Errorf("wire: read length prefix: %w", err)
	}
	length := binary.BigEndian.Uint32(lengthBuf)
	if length == 0 {
		return nil, nil
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("wire: read message body: %w", err)
	}
	return &Message{ID: ID(body[0]), Payload: body[1:]}, nil
}

// FormatHave builds a `have` message for piece index.
func FormatHave(index int) *Message {
	payload := make([]byte, 4)
	binary.BigEndian.PutUint32(payload, uint32(index))
	return &Message{ID: Have, Payload: payload}
}

// FormatRequest builds a `request` message for the given byte range of a
// piece.
func FormatRequest(index, begin, length int) *Message {
	payload := make([]byte, 12)
	binary.BigEndian.PutUint32(payload[0:4], uint32(index))
	binary.BigEndian.PutUint32(payload[4:8], uint32(begin))
	binary.BigEndian.PutUint32(payload[8:12], uint32(length))
	return &Message{ID: Request, Payload: payload}
}

// ParseHave extracts the piece index from a `have` message.
func ParseHave(m *Message) (int, error) {
	if m.ID != Have {
		return 0, fmt.Errorf("wire: expected have, got %s", m.ID)
	}
	if len(m.Payload) != 4 {
		return 0, fmt.Errorf("wire: have payload must be 4 bytes, got %d", len(m.Payload))
	}
	return int(binary.BigEndian.Uint32(m.Payload)), nil
}

// ParsePiece copies the block carried by a `piece` message into buf at its
// declared offset and returns the number of bytes written. index is the
// piece index the caller expects; a mismatch is an error.
func ParsePiece(index int, buf []byte, m *Message) (int, error) {
	if m.ID != Piece {
		return 0, fmt.Errorf("wire: expected piece, got %s", m.ID)
	}
	if len(m.Payload) < 8 {
		return 0, fmt.Errorf("wire: piece payload too short (%d bytes)", len(m.Payload))
	}
	parsedIndex := int(binary.BigEndian.Uint32(m.Payload[0:4]))
	if parsedIndex != index {
		return 0, fmt.Errorf("wire: piece index mismatch: expected %d, got %d", index, parsedIndex)
	}
	begin := int(binary.BigEndian.Uint32(m.Payload[4:8]))
	if begin >= len(buf) {
		return 0, fmt.Errorf("wire: piece begin offset %d out of range (buffer size %d)", begin, len(buf))
	}
	data := m.Payload[8:]
	if begin+len(data) > len(buf) {
		return 0, fmt.Errorf("wire: piece block overruns buffer: begin=%d len=%d bufsize=%d", begin, len(data), len(buf))
	}
	copy(buf[begin:], data)
	return len(data), nil
}
