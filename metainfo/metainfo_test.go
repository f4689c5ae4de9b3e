package metainfo

import (
	"bytes"
	"crypto/sha1"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gorent/bencode"
)

func buildTorrentBytes(t *testing.T, announce, name string, length, pieceLength int, pieces string) []byte {
	t.Helper()
	v := bencode.Dict(
		bencode.DictEntry{Key: "announce", Val: bencode.String([]byte(announce))},
		bencode.DictEntry{Key: "info", Val: bencode.Dict(
			bencode.DictEntry{Key: "length", Val: bencode.Int(int64(length))},
			bencode.DictEntry{Key: "name", Val: bencode.String([]byte(name))},
			bencode.DictEntry{Key: "piece length", Val: bencode.Int(int64(pieceLength))},
			bencode.DictEntry{Key: "pieces", Val: bencode.String([]byte(pieces))},
		)},
	)
	return bencode.Encode(v)
}

func TestParseBasicFields(t *testing.T) {
	pieces := strings.Repeat("a", 40) // two fake 20-byte hashes
	raw := buildTorrentBytes(t, "http://tracker.example/announce", "file.bin", 100, 40, pieces)

	tf, err := Parse(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "http://tracker.example/announce", tf.Announce)
	assert.Equal(t, "file.bin", tf.Name)
	assert.Equal(t, 100, tf.Length)
	assert.Equal(t, 40, tf.PieceLength)
	require.Len(t, tf.PieceHashes, 2)
}

func TestParseRejectsMisalignedPieces(t *testing.T) {
	raw := buildTorrentBytes(t, "http://tracker.example/announce", "file.bin", 100, 40, "short")
	_, err := Parse(bytes.NewReader(raw))
	assert.Error(t, err)
}

func TestInfoHashStableRegardlessOfDeclarationOrder(t *testing.T) {
	pieces := strings.Repeat("b", 20)

	// Build the info dict with fields in two different orders; the
	// resulting info_hash must be identical because encoding always
	// sorts keys.
	infoA := bencode.Dict(
		bencode.DictEntry{Key: "length", Val: bencode.Int(282334976)},
		bencode.DictEntry{Key: "name", Val: bencode.String([]byte("ubuntu-20.04.1-desktop-amd64"))},
		bencode.DictEntry{Key: "piece length", Val: bencode.Int(20)},
		bencode.DictEntry{Key: "pieces", Val: bencode.String([]byte(pieces))},
	)
	infoB := bencode.Dict(
		bencode.DictEntry{Key: "pieces", Val: bencode.String([]byte(pieces))},
		bencode.DictEntry{Key: "piece length", Val: bencode.Int(20)},
		bencode.DictEntry{Key: "name", Val: bencode.String([]byte("ubuntu-20.04.1-desktop-amd64"))},
		bencode.DictEntry{Key: "length", Val: bencode.Int(282334976)},
	)

	hashA := sha1.Sum(bencode.Encode(infoA))
	hashB := sha1.Sum(bencode.Encode(infoB))
	assert.Equal(t, hashA, hashB)
}

func TestPieceBoundsHandlesShortTailPiece(t *testing.T) {
	tf := &Torrent{Length: 25, PieceLength: 10}
	assert.Equal(t, 3, tf.NumPieces())

	b0, e0 := tf.PieceBounds(0)
	assert.Equal(t, 0, b0)
	assert.Equal(t, 10, e0)

	b2, e2 := tf.PieceBounds(2)
	assert.Equal(t, 20, b2)
	assert.Equal(t, 25, e2)
	assert.Equal(t, 5, tf.PieceSize(2))
}
