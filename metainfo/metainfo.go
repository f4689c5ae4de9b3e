// Package metainfo provides a typed view over a decoded .torrent file and
// computes its info_hash.
package metainfo

import (
	"crypto/sha1"
	"fmt"
	"io"

	"gorent/bencode"
)

const hashLen = 20

// Info is the `info` sub-dictionary of a metainfo file.
type Info struct {
	Length      int    `bencode:"length"`
	Name        string `bencode:"name"`
	PieceLength int    `bencode:"piece length"`
	Pieces      string `bencode:"pieces"`
}

// rawTorrent mirrors the on-disk dictionary shape for (un)marshaling.
type rawTorrent struct {
	Announce string `bencode:"announce"`
	Info     Info   `bencode:"info"`
}

// Torrent is the immutable, fully-resolved view of a metainfo file used by
// the rest of the client.
type Torrent struct {
	Announce    string
	InfoHash    [hashLen]byte
	PieceHashes [][hashLen]byte
	PieceLength int
	Length      int
	Name        string
}

// Parse reads a bencoded metainfo document and builds a Torrent, computing
// info_hash from the re-encoded `info` sub-dictionary exactly as it was
// decoded (sorted keys, same bytes) so the hash is stable.
func Parse(r io.Reader) (*Torrent, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("metainfo: read torrent file: %w", err)
	}

	top, err := bencode.DecodeFull(raw)
	if err != nil {
		return nil, fmt.Errorf("metainfo: decode bencode: %w", err)
	}

	infoVal, ok := top.Get("info")
	if !ok {
		return nil, fmt.Errorf("metainfo: missing \"info\" dictionary")
	}

	var rt rawTorrent
	if err := bencode.UnmarshalValue(top, &rt); err != nil {
		return nil, fmt.Errorf("metainfo: decode fields: %w", err)
	}

	infoHash := sha1.Sum(bencode.Encode(infoVal))

	pieceHashes, err := splitPieceHashes(rt.Info.Pieces)
	if err != nil {
		return nil, err
	}

	return &Torrent{
		Announce:    rt.Announce,
		InfoHash:    infoHash,
		PieceHashes: pieceHashes,
		PieceLength: rt.Info.PieceLength,
		Length:      rt.Info.Length,
		Name:        rt.Info.Name,
	}, nil
}

func splitPieceHashes(pieces string) ([][hashLen]byte, error) {
	data := []byte(pieces)
	if len(data)%hashLen != 0 {
		return nil, fmt.Errorf("metainfo: pieces length %d is not a multiple of %d", len(data), hashLen)
	}
	n := len(data) / hashLen
	hashes := make([][hashLen]byte, n)
	for i := 0; i < n; i++ {
		copy(hashes[i][:], data[i*hashLen:(i+1)*hashLen])
	}
	return hashes, nil
}

// NumPieces returns ceil(length / piece_length), the expected piece count.
func (t *Torrent) NumPieces() int {
	if t.PieceLength == 0 {
		return 0
	}
	n := t.Length / t.PieceLength
	if t.Length%t.PieceLength != 0 {
		n++
	}
	return n
}

// PieceBounds returns the half-open byte range [begin, end) of piece
// index within the assembled file, clamped to Length for the short tail
// piece.
func (t *Torrent) PieceBounds(index int) (begin, end int) {
	begin = index * t.PieceLength
	end = begin + t.PieceLength
	if end > t.Length {
		end = t.Length
	}
	return begin, end
}

// PieceSize returns the size in bytes of piece index.
func (t *Torrent) PieceSize(index int) int {
	begin, end := t.PieceBounds(index)
	return end - begin
}
