package peer

import "errors"

// ErrHashMismatch indicates a downloaded piece's SHA-1 does not match the
// hash recorded in the metainfo file.
var ErrHashMismatch = errors.New("peer: piece hash mismatch")
