package design

import "math"

// Vec2 is a planar point or vector in millimetres.
type Vec2 struct {
	X, Y float64
}

// Add returns v + other.
func (v Vec2) Add(other Vec2) Vec2 {
	return Vec2{X: v.X + other.X, Y: v.Y + other.Y}
}

// Sub returns v - other.
func (v Vec2) Sub(other Vec2) Vec2 {
	return Vec2{X: v.X - other.X, Y: v.Y - other.Y}
}

// Norm returns the Euclidean norm of the vector.
func (v Vec2) Norm() float64 {
	return math.Hypot(v.X, v.Y)
}

// DistanceTo returns the straight-line distance between two points.
func (v Vec2) DistanceTo(other Vec2) float64 {
	return math.Hypot(other.X-v.X, other.Y-v.Y)
}

// cross returns the z-component of the cross product of (b-a) and (c-a).
// Positive when a->b->c turns counter-clockwise.
func cross(a, b, c Vec2) float64 {
	return (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
}

// segmentsIntersect reports whether the open segments p1-p2 and q1-q2
// cross. Shared endpoints do not count as an intersection, so adjacent
// polygon edges pass the check.
func segmentsIntersect(p1, p2, q1, q2 Vec2) bool {
	d1 := cross(q1, q2, p1)
	d2 := cross(q1, q2, p2)
	d3 := cross(p1, p2, q1)
	d4 := cross(p1, p2, q2)

	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	return false
}

// PolygonArea returns the area enclosed by an implicitly closed vertex
// ring via the shoelace formula. Always non-negative regardless of
// winding order; fewer than three vertices enclose nothing.
func PolygonArea(vertices []Vec2) float64 {
	if len(vertices) < 3 {
		return 0
	}
	area := 0.0
	n := len(vertices)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		area += vertices[i].X * vertices[j].Y
		area -= vertices[j].X * vertices[i].Y
	}
	return math.Abs(area) / 2
}
