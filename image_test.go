package byteforth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageEmitAndHere(t *testing.T) {
	img := NewImage(16, 4)
	assert.Equal(t, uint16(0), img.Here())

	require.True(t, img.EmitByte(byte(OpExit)))
	assert.Equal(t, uint16(1), img.Here())

	require.True(t, img.EmitAddr(0x1234))
	assert.Equal(t, uint16(3), img.Here())
	assert.Equal(t, uint16(0x1234), img.LoadAddr(1))

	require.True(t, img.EmitCell(-7))
	assert.Equal(t, int32(-7), img.LoadCell(3))
}

func TestImageEmitByteAtCapacityFails(t *testing.T) {
	img := NewImage(2, 4)
	require.True(t, img.EmitByte(1))
	require.True(t, img.EmitByte(2))
	assert.False(t, img.EmitByte(3))
	assert.Equal(t, uint16(2), img.Here())
}

func TestImageReservePatch(t *testing.T) {
	img := NewImage(16, 4)
	img.EmitByte(byte(OpBranchIfZero))
	addr, ok := img.Reserve(2)
	require.True(t, ok)
	assert.Equal(t, uint16(0), img.LoadAddr(addr))

	img.StoreAddr(addr, 99)
	assert.Equal(t, uint16(99), img.LoadAddr(addr))
}

func TestImageOutOfRangeAccessIsLenient(t *testing.T) {
	img := NewImage(4, 4)
	assert.Equal(t, byte(0), img.LoadByte(100))
	img.StoreByte(100, 5) // no-op, must not panic
	assert.Equal(t, int32(0), img.LoadCell(100))
}

func TestImageAllotNoOpWhenFull(t *testing.T) {
	img := NewImage(2, 4)
	img.EmitByte(1)
	img.EmitByte(2)
	addr, ok := img.Reserve(1)
	assert.False(t, ok)
	assert.Equal(t, uint16(2), addr)
}

func TestImageReserveOverflowIsWhollyRejected(t *testing.T) {
	// A reservation that would overflow capacity must not partially advance
	// HERE; it is a complete no-op, not a truncated one.
	img := NewImage(4, 4)
	img.EmitByte(1)
	before := img.Here()
	addr, ok := img.Reserve(10)
	assert.False(t, ok)
	assert.Equal(t, before, img.Here())
	assert.Equal(t, before, addr)
}

func TestImageWordLookupNewestWins(t *testing.T) {
	img := NewImage(64, 4)
	require.True(t, img.AddWord("DUP", 10))
	require.True(t, img.AddWord("DUP", 20))

	w, ok := img.Lookup("DUP")
	require.True(t, ok)
	assert.Equal(t, uint16(20), w.Addr, "lookup must return the newest matching entry")
}

func TestImageWordTableOverflow(t *testing.T) {
	img := NewImage(64, 1)
	require.True(t, img.AddWord("A", 0))
	assert.False(t, img.AddWord("B", 1))
}

func TestImageBuiltinBoundaryAndUserWords(t *testing.T) {
	img := NewImage(64, 8)
	img.AddWord("DUP", 0)
	img.AddWord("DROP", 1)
	img.MarkBuiltinBoundary()
	assert.Equal(t, 2, img.BuiltinCount())

	img.AddWord("SQ", 2)
	img.AddWord("CUBE", 3)
	user := img.UserWords()
	require.Len(t, user, 2)
	assert.Equal(t, "SQ", user[0].Name)
	assert.Equal(t, "CUBE", user[1].Name)
}

func TestImageUserWordsEmptyWhenNoneDefined(t *testing.T) {
	img := NewImage(64, 8)
	img.AddWord("DUP", 0)
	img.MarkBuiltinBoundary()
	assert.Nil(t, img.UserWords())
}

func TestImageDefaultCapacities(t *testing.T) {
	img := NewImage(0, 0)
	assert.Equal(t, DefaultDictSize, img.Cap())
	assert.True(t, img.AddWord("X", 0))
}
