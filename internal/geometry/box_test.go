package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewBoxNormalizesCoordinates(t *testing.T) {
	b := NewBox(10, 20, 2, 4)
	assert.InDelta(t, 2.0, b.MinX, 1e-9)
	assert.InDelta(t, 4.0, b.MinY, 1e-9)
	assert.InDelta(t, 10.0, b.MaxX, 1e-9)
	assert.InDelta(t, 20.0, b.MaxY, 1e-9)
}

func TestBoxDerivedValues(t *testing.T) {
	b := NewBox(0, 0, 10, 4)
	assert.InDelta(t, 10.0, b.Width(), 1e-9)
	assert.InDelta(t, 4.0, b.Height(), 1e-9)
	assert.InDelta(t, 40.0, b.Area(), 1e-9)
	assert.Equal(t, Point{X: 5, Y: 2}, b.Center())
	assert.False(t, b.IsZero())
}

func TestZeroAreaBoxIsValidSentinel(t *testing.T) {
	var b Box
	assert.True(t, b.IsZero())
	assert.InDelta(t, 0.0, b.Area(), 1e-9)

	// Union with the sentinel must not distort the other box.
	other := NewBox(5, 5, 15, 15)
	assert.Equal(t, other, b.Union(other))
	assert.Equal(t, other, other.Union(b))
}

func TestUnion(t *testing.T) {
	a := NewBox(0, 0, 10, 10)
	b := NewBox(5, 5, 20, 8)
	u := a.Union(b)
	assert.Equal(t, NewBox(0, 0, 20, 10), u)
}

func TestIntersect(t *testing.T) {
	a := NewBox(0, 0, 10, 10)
	b := NewBox(5, 5, 20, 20)
	assert.Equal(t, NewBox(5, 5, 10, 10), a.Intersect(b))

	// Disjoint boxes intersect to the zero box.
	c := NewBox(50, 50, 60, 60)
	assert.True(t, a.Intersect(c).IsZero())
}

func TestIoU(t *testing.T) {
	a := NewBox(0, 0, 10, 10)
	assert.InDelta(t, 1.0, a.IoU(a), 1e-9)

	b := NewBox(5, 0, 15, 10)
	// intersection 50, union 150
	assert.InDelta(t, 1.0/3.0, a.IoU(b), 1e-9)

	c := NewBox(100, 100, 110, 110)
	assert.InDelta(t, 0.0, a.IoU(c), 1e-9)
}

func TestOverlapRatio(t *testing.T) {
	a := NewBox(0, 0, 10, 10)
	b := NewBox(0, 0, 5, 10)
	assert.InDelta(t, 0.5, a.OverlapRatio(b), 1e-9)
	assert.InDelta(t, 1.0, b.OverlapRatio(a), 1e-9)
	assert.InDelta(t, 0.0, Box{}.OverlapRatio(a), 1e-9)
}

func TestContains(t *testing.T) {
	b := NewBox(0, 0, 10, 10)
	assert.True(t, b.Contains(Point{X: 5, Y: 5}))
	assert.True(t, b.Contains(Point{X: 0, Y: 10}))
	assert.False(t, b.Contains(Point{X: 11, Y: 5}))
}

func TestDistanceAndNear(t *testing.T) {
	a := NewBox(0, 0, 10, 10) // center (5,5)
	b := NewBox(8, 0, 18, 10) // center (13,5)
	assert.InDelta(t, 8.0, a.DistanceTo(b), 1e-9)
	assert.True(t, a.Near(b, 8))
	assert.False(t, a.Near(b, 7.9))
}
