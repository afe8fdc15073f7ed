package byteforth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDataStackPushPop(t *testing.T) {
	s := NewDataStack(4)
	assert.Equal(t, 0, s.Depth())

	s.Push(1)
	s.Push(2)
	s.Push(3)
	assert.Equal(t, 3, s.Depth())
	assert.Equal(t, int32(3), s.Peek(0))
	assert.Equal(t, int32(2), s.Peek(1))

	assert.Equal(t, int32(3), s.Pop())
	assert.Equal(t, int32(2), s.Pop())
	assert.Equal(t, 1, s.Depth())
}

func TestDataStackPopEmptyYieldsZero(t *testing.T) {
	s := NewDataStack(4)
	assert.Equal(t, int32(0), s.Pop())
	assert.Equal(t, 0, s.Depth())
	assert.Equal(t, int32(0), s.Peek(0))
}

func TestDataStackPushPastCapacitySilentlyDropped(t *testing.T) {
	s := NewDataStack(2)
	s.Push(1)
	s.Push(2)
	s.Push(3) // dropped, not an overflow error
	assert.Equal(t, 2, s.Depth())
	assert.Equal(t, int32(2), s.Peek(0))
}

func TestDataStackResetAndSnapshot(t *testing.T) {
	s := NewDataStack(4)
	s.Push(10)
	s.Push(20)
	assert.Equal(t, []int32{10, 20}, s.Snapshot())
	s.Reset()
	assert.Equal(t, 0, s.Depth())
	assert.Equal(t, []int32{}, s.Snapshot())
}

func TestDataStackDefaultDepth(t *testing.T) {
	s := NewDataStack(0)
	assert.Equal(t, DefaultStackDepth, s.Cap())
}

func TestReturnStackRoundTripsFullCells(t *testing.T) {
	r := NewReturnStack(4)
	r.Push(-1)
	r.Push(-32768)
	assert.Equal(t, int32(-32768), r.Pop())
	assert.Equal(t, int32(-1), r.Pop())
}

func TestReturnStackBoundsPolicy(t *testing.T) {
	r := NewReturnStack(2)
	r.Push(1)
	r.Push(2)
	r.Push(3) // dropped
	assert.Equal(t, 2, r.Depth())
	assert.Equal(t, int32(0), r.Peek(5))

	r.Reset()
	assert.Equal(t, int32(0), r.Pop())
}

func TestReturnStackDefaultDepth(t *testing.T) {
	r := NewReturnStack(-1)
	assert.Equal(t, DefaultRetDepth, r.Cap())
}
