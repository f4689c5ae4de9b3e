package peer

import (
	"crypto/sha1"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gorent/peer/wire"
)

// fakePeer runs a minimal peer-side handshake+bitfield+unchoke+piece
// exchange over a loopback TCP listener, standing in for a real remote
// peer in session tests.
func fakePeer(t *testing.T, infoHash, peerID [20]byte, pieceData []byte) Addr {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		if _, err := wire.ReadHandshake(conn); err != nil {
			return
		}
		hs := wire.NewHandshake(infoHash, peerID)
		conn.Write(hs.Serialize())

		bf := &wire.Message{ID: wire.Bitfield, Payload: []byte{0xFF}}
		conn.Write(bf.Serialize())

		// client sends unchoke then interested; content doesn't matter here
		if _, err := wire.Read(conn); err != nil {
			return
		}
		if _, err := wire.Read(conn); err != nil {
			return
		}

		unchoke := &wire.Message{ID: wire.Unchoke}
		conn.Write(unchoke.Serialize())

		offset := 0
		for offset < len(pieceData) {
			reqMsg, err := wire.Read(conn)
			if err != nil || reqMsg == nil || reqMsg.ID != wire.Request {
				return
			}
			blockSize := BlockSize
			if len(pieceData)-offset < blockSize {
				blockSize = len(pieceData) - offset
			}
			payload := wire.FormatRequest(0, offset, blockSize).Payload[:8]
			payload = append(append([]byte{}, payload...), pieceData[offset:offset+blockSize]...)
			pieceMsg := &wire.Message{ID: wire.Piece, Payload: payload}
			conn.Write(pieceMsg.Serialize())
			offset += blockSize
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	return Addr{IP: addr.IP, Port: uint16(addr.Port)}
}

func TestSessionFullPieceDownload(t *testing.T) {
	infoHash := [20]byte{1, 2, 3}
	peerID := [20]byte{4, 5, 6}
	myPeerID := [20]byte{9, 9, 9}
	pieceData := make([]byte, BlockSize*2+100)
	for i := range pieceData {
		pieceData[i] = byte(i)
	}
	hash := sha1.Sum(pieceData)

	addr := fakePeer(t, infoHash, peerID, pieceData)
	time.Sleep(10 * time.Millisecond)

	sess, err := Dial(addr, myPeerID, infoHash)
	require.NoError(t, err)
	defer sess.Close()

	require.NoError(t, sess.SendUnchoke())
	require.NoError(t, sess.SendInterested())
	require.NoError(t, sess.AwaitUnchoke())

	got, err := sess.DownloadPiece(0, len(pieceData), hash)
	require.NoError(t, err)
	require.Equal(t, pieceData, got)
}

func TestSessionRejectsHashMismatch(t *testing.T) {
	infoHash := [20]byte{1, 2, 3}
	peerID := [20]byte{4, 5, 6}
	myPeerID := [20]byte{9, 9, 9}
	pieceData := []byte("hello world, this is piece data")
	wrongHash := sha1.Sum([]byte("not the right data at all"))

	addr := fakePeer(t, infoHash, peerID, pieceData)
	time.Sleep(10 * time.Millisecond)

	sess, err := Dial(addr, myPeerID, infoHash)
	require.NoError(t, err)
	defer sess.Close()

	require.NoError(t, sess.SendUnchoke())
	require.NoError(t, sess.SendInterested())
	require.NoError(t, sess.AwaitUnchoke())

	_, err = sess.DownloadPiece(0, len(pieceData), wrongHash)
	require.ErrorIs(t, err, ErrHashMismatch)
}
