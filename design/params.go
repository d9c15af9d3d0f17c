package design

import (
	"errors"
	"fmt"
)

var (
	ErrCellSize       = errors.New("cell size must be positive")
	ErrWallThickness  = errors.New("wall thickness must be positive and below half the cell size")
	ErrReentrantAngle = errors.New("re-entrant angle must lie strictly between 0 and 90 degrees")
	ErrArraySize      = errors.New("array size must have positive row and column counts")
)

// CellParameters is the full design-parameter set for one re-entrant
// auxetic unit cell. Values are validated once, by NewCellParameters;
// a CellParameters obtained from that constructor is always usable by
// Generate, Properties and Tile without further checks.
//
// Lengths are in millimetres, the angle in degrees.
type CellParameters struct {
	CellSize          float64
	WallThickness     float64
	ReentrantAngleDeg float64

	// ArrayRows x ArrayCols is the lattice repetition count used by
	// Tile when producing the CAD hand-off pattern.
	ArrayRows int
	ArrayCols int
}

// NewCellParameters validates and returns an immutable parameter set.
// Each failure identifies the offending field via its sentinel error.
func NewCellParameters(cellSize, wallThickness, angleDeg float64, rows, cols int) (CellParameters, error) {
	p := CellParameters{
		CellSize:          cellSize,
		WallThickness:     wallThickness,
		ReentrantAngleDeg: angleDeg,
		ArrayRows:         rows,
		ArrayCols:         cols,
	}
	if err := p.Validate(); err != nil {
		return CellParameters{}, err
	}
	return p, nil
}

// Validate re-checks the parameter invariants. Generate and Properties
// call this so that hand-built CellParameters literals are rejected the
// same way constructor input is.
func (p CellParameters) Validate() error {
	if !(p.CellSize > 0) {
		return fmt.Errorf("%w: got %v", ErrCellSize, p.CellSize)
	}
	if !(p.WallThickness > 0) || !(p.WallThickness < p.CellSize/2) {
		return fmt.Errorf("%w: got %v (cell size %v)", ErrWallThickness, p.WallThickness, p.CellSize)
	}
	// Open interval: the 0 and 90 degree boundaries are degenerate
	// (no re-entrance / vertical struts collapse).
	if !(p.ReentrantAngleDeg > 0) || !(p.ReentrantAngleDeg < 90) {
		return fmt.Errorf("%w: got %v", ErrReentrantAngle, p.ReentrantAngleDeg)
	}
	if p.ArrayRows < 1 || p.ArrayCols < 1 {
		return fmt.Errorf("%w: got %dx%d", ErrArraySize, p.ArrayRows, p.ArrayCols)
	}
	return nil
}
