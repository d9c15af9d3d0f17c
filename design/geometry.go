package design

import (
	"errors"
	"fmt"
	"math"
)

// ErrDegenerateGeometry is returned when the derived outline would be
// self-intersecting or asymmetric. Valid CellParameters should never
// trigger it; the check exists so a bad outline is caught here rather
// than downstream in the CAD adapter.
var ErrDegenerateGeometry = errors.New("degenerate cell geometry")

// symmetryTol is the absolute tolerance (mm) used when verifying the
// mirror symmetry of a generated outline.
const symmetryTol = 1e-9

// CellGeometry is the ordered outline of a single re-entrant cell.
// Vertices run counter-clockwise and the ring is implicitly closed
// (the last vertex connects back to the first). The outline is simple
// and mirror-symmetric about the x = 0 axis.
//
// The vertex sequence is the hand-off contract with the CAD adapter;
// nothing inside this module consumes it further.
type CellGeometry struct {
	Vertices []Vec2
}

// Area returns the enclosed outline area via the shoelace formula.
func (g CellGeometry) Area() float64 {
	return PolygonArea(g.Vertices)
}

// Generate derives the re-entrant hexagonal outline for the given
// parameters.
//
// The cell is built from its strut projections: with strut length a and
// re-entrant angle α, the oblique struts project a·cos(α) horizontally
// and a·sin(α) vertically. The two re-entrant notches fold inward along
// the vertical axis, which is what produces the negative Poisson's
// ratio under axial load. Small angles (~30°) give a shallow fold and a
// modest auxetic response; large angles (~60°) fold the struts deep into
// the cell and respond aggressively.
func Generate(p CellParameters) (CellGeometry, error) {
	if err := p.Validate(); err != nil {
		return CellGeometry{}, err
	}

	alpha := p.ReentrantAngleDeg * math.Pi / 180

	// Strut projections. The wall thickness pads the vertical walls so
	// the notch apex never reaches the opposite face.
	halfW := p.CellSize * math.Cos(alpha) / 2
	notch := p.CellSize * math.Sin(alpha) / 2
	halfH := (p.CellSize + p.WallThickness) / 2

	// Counter-clockwise from the bottom-left corner. The two interior
	// vertices at x=0 are the re-entrant notch apexes.
	g := CellGeometry{Vertices: []Vec2{
		{X: -halfW, Y: -halfH},
		{X: 0, Y: -halfH + notch},
		{X: halfW, Y: -halfH},
		{X: halfW, Y: halfH},
		{X: 0, Y: halfH - notch},
		{X: -halfW, Y: halfH},
	}}

	if err := checkOutline(g); err != nil {
		return CellGeometry{}, err
	}
	return g, nil
}

// checkOutline verifies the invariants Generate promises: a simple
// ring, non-zero area, and mirror symmetry about the vertical axis.
func checkOutline(g CellGeometry) error {
	n := len(g.Vertices)
	if n < 3 || g.Area() <= 0 {
		return fmt.Errorf("%w: outline encloses no area", ErrDegenerateGeometry)
	}

	// Simplicity: no two non-adjacent edges may cross.
	for i := 0; i < n; i++ {
		a1 := g.Vertices[i]
		a2 := g.Vertices[(i+1)%n]
		for j := i + 1; j < n; j++ {
			if j == i || (j+1)%n == i || (i+1)%n == j {
				continue
			}
			b1 := g.Vertices[j]
			b2 := g.Vertices[(j+1)%n]
			if segmentsIntersect(a1, a2, b1, b2) {
				return fmt.Errorf("%w: edges %d and %d intersect", ErrDegenerateGeometry, i, j)
			}
		}
	}

	if !mirrorSymmetric(g.Vertices) {
		return fmt.Errorf("%w: outline is not symmetric about the vertical axis", ErrDegenerateGeometry)
	}
	return nil
}

// mirrorSymmetric reports whether reflecting every vertex across x = 0
// reproduces the vertex set within tolerance.
func mirrorSymmetric(vertices []Vec2) bool {
	for _, v := range vertices {
		mirrored := Vec2{X: -v.X, Y: v.Y}
		found := false
		for _, w := range vertices {
			if math.Abs(w.X-mirrored.X) <= symmetryTol && math.Abs(w.Y-mirrored.Y) <= symmetryTol {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Tile translates the single-cell outline into the ArrayRows x ArrayCols
// lattice pattern used for manufacturing hand-off. Cells are packed on a
// rectangular grid at the outline's bounding-box pitch.
func Tile(p CellParameters) ([]CellGeometry, error) {
	base, err := Generate(p)
	if err != nil {
		return nil, err
	}

	minX, maxX := base.Vertices[0].X, base.Vertices[0].X
	minY, maxY := base.Vertices[0].Y, base.Vertices[0].Y
	for _, v := range base.Vertices[1:] {
		minX = math.Min(minX, v.X)
		maxX = math.Max(maxX, v.X)
		minY = math.Min(minY, v.Y)
		maxY = math.Max(maxY, v.Y)
	}
	pitchX := maxX - minX
	pitchY := maxY - minY

	cells := make([]CellGeometry, 0, p.ArrayRows*p.ArrayCols)
	for r := 0; r < p.ArrayRows; r++ {
		for c := 0; c < p.ArrayCols; c++ {
			offset := Vec2{X: float64(c) * pitchX, Y: float64(r) * pitchY}
			vertices := make([]Vec2, len(base.Vertices))
			for i, v := range base.Vertices {
				vertices[i] = v.Add(offset)
			}
			cells = append(cells, CellGeometry{Vertices: vertices})
		}
	}
	return cells, nil
}
