package bitfield

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasPiece(t *testing.T) {
	bf := Bitfield{0b01010100, 0b01010100}
	assert.False(t, bf.HasPiece(0))
	assert.True(t, bf.HasPiece(1))
	assert.False(t, bf.HasPiece(2))
	assert.True(t, bf.HasPiece(3))
	assert.True(t, bf.HasPiece(9))
	assert.False(t, bf.HasPiece(10))
}

func TestSetPiece(t *testing.T) {
	bf := make(Bitfield, 2)
	bf.SetPiece(4)
	assert.True(t, bf.HasPiece(4))
	assert.False(t, bf.HasPiece(5))
}

func TestOutOfRangeIsSafe(t *testing.T) {
	bf := make(Bitfield, 1)
	assert.False(t, bf.HasPiece(100))
	assert.NotPanics(t, func() { bf.SetPiece(100) })
}
