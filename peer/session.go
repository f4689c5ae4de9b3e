// Package peer implements one peer's TCP session: handshake, bitfield
// exchange, choke/interested state, and the strictly-serialized
// block-request loop used to download a single piece.
package peer

import (
	"bytes"
	"crypto/sha1"
	"fmt"
	"net"
	"time"

	"gorent/peer/bitfield"
	"gorent/peer/wire"
)

const (
	// BlockSize is the peer-wire request granularity (16 KiB).
	BlockSize = 16384

	dialTimeout      = 3 * time.Second
	handshakeTimeout = 3 * time.Second
	bitfieldTimeout  = 5 * time.Second
	pieceTimeout     = 100 * time.Second
)

// state is the 4-bit connection state flag set of §3.
type state struct {
	amChoking      bool
	amInterested   bool
	peerChoking    bool
	peerInterested bool
}

// Session owns one TCP connection to a remote peer.
type Session struct {
	Conn     net.Conn
	PeerID   [20]byte
	Bitfield bitfield.Bitfield
	Addr     Addr

	state    state
	infoHash [20]byte
}

// Dial connects to addr, performs the handshake and receives the peer's
// bitfield. The returned Session is ready to be made interested.
func Dial(addr Addr, peerID, infoHash [20]byte) (*Session, error) {
	conn, err := net.DialTimeout("tcp", addr.String(), dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("peer: dial %s: %w", addr, err)
	}

	hs, err := completeHandshake(conn, peerID, infoHash)
	if err != nil {
		conn.Close()
		return nil, err
	}

	bf, err := receiveBitfield(conn)
	if err != nil {
		conn.Close()
		return nil, err
	}

	return &Session{
		Conn:     conn,
		PeerID:   hs.PeerID,
		Bitfield: bf,
		Addr:     addr,
		state:    state{amChoking: true, peerChoking: true},
		infoHash: infoHash,
	}, nil
}

// Close releases the underlying connection.
func (s *Session) Close() error {
	return s.Conn.Close()
}

func completeHandshake(conn net.Conn, peerID, infoHash [20]byte) (*wire.Handshake, error) {
	conn.SetDeadline(time.Now().Add(handshakeTimeout))
	defer conn.SetDeadline(time.Time{})

	req := wire.NewHandshake(infoHash, peerID)
	if _, err := conn.Write(req.Serialize()); err != nil {
		return nil, fmt.Errorf("peer: send handshake: %w", err)
	}

	resp, err := wire.ReadHandshake(conn)
	if err != nil {
		return nil, fmt.Errorf("peer: read handshake: %w", err)
	}
	if !bytes.Equal(resp.InfoHash[:], infoHash[:]) {
		return nil, fmt.Errorf("peer: info_hash mismatch: expected %x, got %x", infoHash, resp.InfoHash)
	}
	return resp, nil
}

func receiveBitfield(conn net.Conn) (bitfield.Bitfield, error) {
	conn.SetDeadline(time.Now().Add(bitfieldTimeout))
	defer conn.SetDeadline(time.Time{})

	m, err := wire.Read(conn)
	if err != nil {
		return nil, fmt.Errorf("peer: read bitfield: %w", err)
	}
	if m == nil || m.ID != wire.Bitfield {
		return nil, fmt.Errorf("peer: expected bitfield message first")
	}
	return bitfield.Bitfield(m.Payload), nil
}

// SendInterested announces interest in the peer's pieces.
func (s *Session) SendInterested() error {
	s.state.amInterested = true
	return s.send(&wire.Message{ID: wire.Interested})
}

// SendUnchoke announces willingness to upload (a leecher sends this purely
// for protocol symmetry with reference implementations; it never actually
// uploads).
func (s *Session) SendUnchoke() error {
	s.state.amChoking = false
	return s.send(&wire.Message{ID: wire.Unchoke})
}

// SendHave announces that a piece has been fully downloaded and verified.
func (s *Session) SendHave(index int) error {
	return s.send(wire.FormatHave(index))
}

func (s *Session) send(m *wire.Message) error {
	_, err := s.Conn.Write(m.Serialize())
	if err != nil {
		return fmt.Errorf("peer: write message: %w", err)
	}
	return nil
}

// AwaitUnchoke consumes messages until the peer unchokes this session,
// updating Bitfield on `have` messages as they arrive. Any message other
// than choke/have/keep-alive received before unchoke is tolerated and
// ignored, per §4.5 step 5.
func (s *Session) AwaitUnchoke() error {
	for s.state.peerChoking {
		m, err := wire.Read(s.Conn)
		if err != nil {
			return fmt.Errorf("peer: await unchoke: %w", err)
		}
		if m == nil {
			continue // keep-alive
		}
		switch m.ID {
		case wire.Unchoke:
			s.state.peerChoking = false
		case wire.Choke:
			s.state.peerChoking = true
		case wire.Have:
			index, err := wire.ParseHave(m)
			if err != nil {
				return err
			}
			s.Bitfield.SetPiece(index)
		}
	}
	return nil
}

// DownloadPiece fetches one piece by issuing sequential, strictly
// serialized block requests (one request outstanding at a time —
// pipelining is out of scope) and verifies the result's SHA-1 against
// hash.
func (s *Session) DownloadPiece(index, size int, hash [20]byte) ([]byte, error) {
	s.Conn.SetDeadline(time.Now().Add(pieceTimeout))
	defer s.Conn.SetDeadline(time.Time{})

	buf := make([]byte, size)
	requested := 0
	downloaded := 0

	for downloaded < size {
		if s.state.peerChoking {
			if err := s.waitForUnchokeOrData(); err != nil {
				return nil, err
			}
			continue
		}

		if requested < size {
			blockSize := BlockSize
			if size-requested < blockSize {
				blockSize = size - requested
			}
			if err := s.send(wire.FormatRequest(index, requested, blockSize)); err != nil {
				return nil, err
			}
			requested += blockSize
		}

		n, err := s.readPieceBlock(index, buf)
		if err != nil {
			return nil, err
		}
		downloaded += n
	}

	got := sha1.Sum(buf)
	if !bytes.Equal(got[:], hash[:]) {
		return nil, fmt.Errorf("%w: piece %d", ErrHashMismatch, index)
	}
	return buf, nil
}

// readPieceBlock reads messages until a `piece` message is consumed,
// returning the number of bytes it copied into buf. have and unchoke
// messages update session state and are skipped; a choke marks the session
// choked and returns 0 so the caller waits for an unchoke.
func (s *Session) readPieceBlock(index int, buf []byte) (int, error) {
	for {
		m, err := wire.Read(s.Conn)
		if err != nil {
			return 0, fmt.Errorf("peer: read during piece download: %w", err)
		}
		if m == nil {
			continue // keep-alive
		}
		switch m.ID {
		case wire.Choke:
			s.state.peerChoking = true
			return 0, nil
		case wire.Unchoke:
			s.state.peerChoking = false
		case wire.Have:
			i, err := wire.ParseHave(m)
			if err != nil {
				return 0, err
			}
			s.Bitfield.SetPiece(i)
		case wire.Piece:
			return wire.ParsePiece(index, buf, m)
		default:
			return 0, fmt.Errorf("peer: unexpected message %s during piece download", m.ID)
		}
	}
}

// waitForUnchokeOrData blocks on the next message while choked, in case the
// peer unchokes or sends something that needs to update state.
func (s *Session) waitForUnchokeOrData() error {
	m, err := wire.Read(s.Conn)
	if err != nil {
		return fmt.Errorf("peer: read while choked: %w", err)
	}
	if m == nil {
		return nil
	}
	switch m.ID {
	case wire.Unchoke:
		s.state.peerChoking = false
	case wire.Choke:
		s.state.peerChoking = true
	case wire.Have:
		index, err := wire.ParseHave(m)
		if err != nil {
			return err
		}
		s.Bitfield.SetPiece(index)
	}
	return nil
}
