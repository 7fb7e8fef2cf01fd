package segmentation

import (
	"fmt"
	"strconv"
	"strings"

	"cylinderstats/internal/models"
)

const geometryFields = 15

// FormatReferenceGeometry serializes spacing, origin and the direction block
// of g as semicolon-separated decimals:
//
//	sx;sy;sz;ox;oy;oz;d00;d01;d02;d10;d11;d12;d20;d21;d22
//
// Dimensions are not part of the string.
func FormatReferenceGeometry(g models.Grid) string {
	values := make([]float64, 0, geometryFields)
	values = append(values, g.Spacing.X, g.Spacing.Y, g.Spacing.Z)
	values = append(values, g.Origin.X, g.Origin.Y, g.Origin.Z)
	values = append(values, g.Direction[:]...)

	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(parts, ";")
}

// ParseReferenceGeometry reads a string written by FormatReferenceGeometry.
// The returned grid has zero dimensions.
func ParseReferenceGeometry(s string) (models.Grid, error) {
	parts := strings.Split(strings.TrimSpace(s), ";")
	if len(parts) != geometryFields {
		return models.Grid{}, fmt.Errorf("%w: reference geometry has %d fields, want %d",
			models.ErrInvalidParameter, len(parts), geometryFields)
	}

	var values [geometryFields]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return models.Grid{}, fmt.Errorf("%w: reference geometry field %d: %v",
				models.ErrInvalidParameter, i, err)
		}
		values[i] = v
	}

	var g models.Grid
	g.Spacing = models.Vec3{X: values[0], Y: values[1], Z: values[2]}
	g.Origin = models.Vec3{X: values[3], Y: values[4], Z: values[5]}
	copy(g.Direction[:], values[6:])
	return g, nil
}
