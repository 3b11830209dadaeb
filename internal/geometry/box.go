// Package geometry provides axis-aligned bounding-box arithmetic used by
// the spatial layout heuristics.
package geometry

import "math"

// Point represents a 2D coordinate in float space.
type Point struct {
	X float64
	Y float64
}

// Box represents an axis-aligned bounding box in source-image pixel
// coordinates. A zero-area box is valid and serves as the "unknown
// position" sentinel.
type Box struct {
	MinX float64
	MinY float64
	MaxX float64
	MaxY float64
}

// NewBox constructs a Box from min/max coordinates ensuring ordering.
func NewBox(x1, y1, x2, y2 float64) Box {
	if x1 > x2 {
		x1, x2 = x2, x1
	}
	if y1 > y2 {
		y1, y2 = y2, y1
	}
	return Box{MinX: x1, MinY: y1, MaxX: x2, MaxY: y2}
}

// Width returns the box width.
func (b Box) Width() float64 { return b.MaxX - b.MinX }

// Height returns the box height.
func (b Box) Height() float64 { return b.MaxY - b.MinY }

// Area returns the box area.
func (b Box) Area() float64 { return b.Width() * b.Height() }

// Center returns the box center point.
func (b Box) Center() Point {
	return Point{X: (b.MinX + b.MaxX) / 2, Y: (b.MinY + b.MaxY) / 2}
}

// IsZero reports whether the box has zero area.
func (b Box) IsZero() bool { return b.Area() == 0 }

// Union returns the smallest box containing both b and other.
// A zero-area box unions as the identity so unknown-position elements
// do not distort region extents.
func (b Box) Union(other Box) Box {
	if b.IsZero() {
		return other
	}
	if other.IsZero() {
		return b
	}
	return Box{
		MinX: math.Min(b.MinX, other.MinX),
		MinY: math.Min(b.MinY, other.MinY),
		MaxX: math.Max(b.MaxX, other.MaxX),
		MaxY: math.Max(b.MaxY, other.MaxY),
	}
}

// Intersect returns the overlapping box of b and other. When the boxes
// do not overlap, a zero-area box at the origin is returned.
func (b Box) Intersect(other Box) Box {
	x1 := math.Max(b.MinX, other.MinX)
	y1 := math.Max(b.MinY, other.MinY)
	x2 := math.Min(b.MaxX, other.MaxX)
	y2 := math.Min(b.MaxY, other.MaxY)
	if x2 <= x1 || y2 <= y1 {
		return Box{}
	}
	return Box{MinX: x1, MinY: y1, MaxX: x2, MaxY: y2}
}

// IoU computes the intersection-over-union ratio of two boxes.
func (b Box) IoU(other Box) float64 {
	inter := b.Intersect(other).Area()
	if inter == 0 {
		return 0
	}
	union := b.Area() + other.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// OverlapRatio computes the fraction of b's area covered by other.
// Returns 0 for a zero-area b.
func (b Box) OverlapRatio(other Box) float64 {
	if b.Area() <= 0 {
		return 0
	}
	return b.Intersect(other).Area() / b.Area()
}

// Contains reports whether the point lies within the box (inclusive).
func (b Box) Contains(p Point) bool {
	return p.X >= b.MinX && p.X <= b.MaxX && p.Y >= b.MinY && p.Y <= b.MaxY
}

// DistanceTo returns the Euclidean distance between the centers of two boxes.
func (b Box) DistanceTo(other Box) float64 {
	c1 := b.Center()
	c2 := other.Center()
	return math.Hypot(c1.X-c2.X, c1.Y-c2.Y)
}

// Near reports whether the center distance between two boxes is within
// the given pixel threshold.
func (b Box) Near(other Box, threshold float64) bool {
	return b.DistanceTo(other) <= threshold
}
