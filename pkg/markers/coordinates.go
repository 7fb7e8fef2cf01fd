package markers

import (
	"fmt"
	"strings"

	"cylinderstats/internal/models"
)

// CoordinateSystem identifies the anatomical frame of stored coordinates.
type CoordinateSystem int

const (
	// RAS is right-anterior-superior, the frame used throughout this module.
	RAS CoordinateSystem = iota

	// LPS is left-posterior-superior, the DICOM patient frame.
	LPS
)

// ParseCoordinateSystem accepts the names and the legacy numeric codes
// (0 for RAS, 1 for LPS).
func ParseCoordinateSystem(s string) (CoordinateSystem, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "RAS", "0":
		return RAS, nil
	case "LPS", "1":
		return LPS, nil
	}
	return RAS, fmt.Errorf("%w: unknown coordinate system %q", models.ErrInvalidParameter, s)
}

// ToRAS converts a position stored in cs to RAS.
func (cs CoordinateSystem) ToRAS(p models.Vec3) models.Vec3 {
	if cs == LPS {
		return models.Vec3{X: -p.X, Y: -p.Y, Z: p.Z}
	}
	return p
}

func (cs CoordinateSystem) String() string {
	if cs == LPS {
		return "LPS"
	}
	return "RAS"
}
