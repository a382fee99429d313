package geom

import (
	"fmt"
)

// ErrNonPolygonal indicates a geometry that is not a Polygon or MultiPolygon
// where one was required.
type ErrNonPolygonal struct {
	Type string
}

func (e *ErrNonPolygonal) Error() string {
	return fmt.Sprintf("geometry is not polygonal: %s", e.Type)
}

// ErrInvalidGeometry indicates a geometry that failed validation and could
// not be repaired into a polygonal region.
type ErrInvalidGeometry struct {
	Reason string
}

func (e *ErrInvalidGeometry) Error() string {
	return fmt.Sprintf("invalid geometry: %s", e.Reason)
}
