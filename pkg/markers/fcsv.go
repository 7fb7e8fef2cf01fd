// Package markers reads point markers saved by a medical imaging host in its
// markups formats (.fcsv and .mrk.json). Coordinates are returned in RAS.
package markers

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/gocarina/gocsv"

	"cylinderstats/internal/models"
)

// fcsvColumns is the column layout of files that predate the "columns"
// header line.
const fcsvColumns = "id,x,y,z,ow,ox,oy,oz,vis,sel,lock,label,desc,associatedNodeID"

type fcsvPoint struct {
	ID    string  `csv:"id"`
	X     float64 `csv:"x"`
	Y     float64 `csv:"y"`
	Z     float64 `csv:"z"`
	Label string  `csv:"label"`
}

// ParseFCSV reads the control points of one markups CSV file. The comment
// header supplies the coordinate system and the column names.
func ParseFCSV(name string, r io.Reader) (models.Marker, error) {
	marker := models.Marker{Name: name}

	system := RAS
	columns := fcsvColumns
	var body bytes.Buffer

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if !strings.HasPrefix(line, "#") {
			if strings.TrimSpace(line) != "" {
				body.WriteString(line)
				body.WriteByte('\n')
			}
			continue
		}

		key, value, ok := strings.Cut(strings.TrimSpace(strings.TrimPrefix(line, "#")), "=")
		if !ok {
			continue
		}
		switch strings.TrimSpace(key) {
		case "CoordinateSystem":
			cs, err := ParseCoordinateSystem(value)
			if err != nil {
				return marker, fmt.Errorf("marker %q: %w", name, err)
			}
			system = cs
		case "columns":
			columns = strings.TrimSpace(value)
		}
	}
	if err := sc.Err(); err != nil {
		return marker, fmt.Errorf("marker %q: %w", name, err)
	}
	if body.Len() == 0 {
		return marker, nil
	}

	var points []*fcsvPoint
	in := io.MultiReader(strings.NewReader(columns+"\n"), &body)
	cr := csv.NewReader(in)
	cr.FieldsPerRecord = -1
	if err := gocsv.UnmarshalCSV(cr, &points); err != nil {
		return marker, fmt.Errorf("marker %q: %w", name, err)
	}

	for _, p := range points {
		marker.ControlPoints = append(marker.ControlPoints, system.ToRAS(models.Vec3{X: p.X, Y: p.Y, Z: p.Z}))
	}
	return marker, nil
}
