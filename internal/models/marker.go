package models

// Marker is a named point list as placed by a user. Only markers holding
// exactly one control point describe a Point.
type Marker struct {
	Name          string
	ControlPoints []Vec3
}

// Point returns the single control point of the marker. ok is false when the
// marker holds any other number of points.
func (m Marker) Point() (p Point, ok bool) {
	if len(m.ControlPoints) != 1 {
		return Point{}, false
	}
	return Point{Name: m.Name, Position: m.ControlPoints[0]}, true
}

// Point is a named location in world coordinates.
type Point struct {
	Name     string
	Position Vec3
}
