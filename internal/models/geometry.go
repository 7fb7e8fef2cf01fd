package models

import "math"

// Vec3 is a point or offset in physical (world) space, in mm.
type Vec3 struct {
	X, Y, Z float64
}

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

// Positive reports whether every component is finite and strictly positive.
func (v Vec3) Positive() bool {
	for _, c := range [3]float64{v.X, v.Y, v.Z} {
		if !(c > 0) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// IdentityDirection is the direction-cosine block of a volume whose index
// axes coincide with the world axes.
var IdentityDirection = [9]float64{
	1, 0, 0,
	0, 1, 0,
	0, 0, 1,
}

// Grid describes how voxel indices map onto physical space.
type Grid struct {
	// Dims is the number of voxels along X, Y and Z
	Dims [3]int

	// Spacing is the physical edge length of a voxel along each index axis
	Spacing Vec3

	// Origin is the physical position of voxel (0,0,0)
	Origin Vec3

	// Direction holds the direction cosines in row-major order. Column c is
	// the world direction of index axis c.
	Direction [9]float64
}

// NewGrid returns an axis-aligned grid.
func NewGrid(dims [3]int, spacing, origin Vec3) Grid {
	return Grid{
		Dims:      dims,
		Spacing:   spacing,
		Origin:    origin,
		Direction: IdentityDirection,
	}
}

// Len is the number of voxels in the grid.
func (g Grid) Len() int {
	return g.Dims[0] * g.Dims[1] * g.Dims[2]
}

// Index returns the offset of voxel (x, y, z) in a row-major buffer.
func (g Grid) Index(x, y, z int) int {
	return z*g.Dims[0]*g.Dims[1] + y*g.Dims[0] + x
}

// Contains reports whether (x, y, z) addresses a voxel of the grid.
func (g Grid) Contains(x, y, z int) bool {
	return x >= 0 && y >= 0 && z >= 0 &&
		x < g.Dims[0] && y < g.Dims[1] && z < g.Dims[2]
}

// SliceLen is the number of voxels in one Z slice.
func (g Grid) SliceLen() int {
	return g.Dims[0] * g.Dims[1]
}

// SliceZ returns the physical Z coordinate reported for slice z.
func (g Grid) SliceZ(z int) float64 {
	return g.Origin.Z + float64(z)*g.Spacing.Z
}

// World returns the physical position of voxel (i, j, k).
func (g Grid) World(i, j, k float64) Vec3 {
	d := g.Direction
	si, sj, sk := i*g.Spacing.X, j*g.Spacing.Y, k*g.Spacing.Z
	return Vec3{
		X: g.Origin.X + d[0]*si + d[1]*sj + d[2]*sk,
		Y: g.Origin.Y + d[3]*si + d[4]*sj + d[5]*sk,
		Z: g.Origin.Z + d[6]*si + d[7]*sj + d[8]*sk,
	}
}

// SameAddressing reports whether two grids share dimensions, spacing and
// origin, i.e. whether equal indices refer to the same physical voxel.
func (g Grid) SameAddressing(o Grid) bool {
	return g.Dims == o.Dims && g.Spacing == o.Spacing && g.Origin == o.Origin
}
