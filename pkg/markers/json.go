package markers

import (
	"encoding/json"
	"fmt"
	"io"

	"cylinderstats/internal/models"
)

type markupsFile struct {
	Markups []struct {
		Type             string `json:"type"`
		CoordinateSystem string `json:"coordinateSystem"`
		ControlPoints    []struct {
			Label    string    `json:"label"`
			Position []float64 `json:"position"`
		} `json:"controlPoints"`
	} `json:"markups"`
}

// ParseMarkupsJSON reads the control points of the first markup stored in a
// .mrk.json document.
func ParseMarkupsJSON(name string, r io.Reader) (models.Marker, error) {
	marker := models.Marker{Name: name}

	var doc markupsFile
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return marker, fmt.Errorf("marker %q: %w", name, err)
	}
	if len(doc.Markups) == 0 {
		return marker, nil
	}

	m := doc.Markups[0]
	system := LPS
	if m.CoordinateSystem != "" {
		cs, err := ParseCoordinateSystem(m.CoordinateSystem)
		if err != nil {
			return marker, fmt.Errorf("marker %q: %w", name, err)
		}
		system = cs
	}

	for i, cp := range m.ControlPoints {
		if len(cp.Position) != 3 {
			return marker, fmt.Errorf("%w: marker %q control point %d has %d coordinates",
				models.ErrInvalidParameter, name, i, len(cp.Position))
		}
		p := models.Vec3{X: cp.Position[0], Y: cp.Position[1], Z: cp.Position[2]}
		marker.ControlPoints = append(marker.ControlPoints, system.ToRAS(p))
	}
	return marker, nil
}
