package models

// Volume is a scalar intensity volume. It is never modified by the
// rasterizer or the reducer.
type Volume struct {
	Grid

	// Data holds one sample per voxel in row-major order (X fastest)
	Data []float64
}

// NewVolume allocates a zero-filled volume on the given grid.
func NewVolume(grid Grid) *Volume {
	return &Volume{
		Grid: grid,
		Data: make([]float64, grid.Len()),
	}
}

// At returns the sample at voxel (x, y, z).
func (v *Volume) At(x, y, z int) float64 {
	return v.Data[v.Index(x, y, z)]
}

// Set stores a sample at voxel (x, y, z).
func (v *Volume) Set(x, y, z int, value float64) {
	v.Data[v.Index(x, y, z)] = value
}

// MaskVolume is a binary region-of-interest volume. Zero means outside,
// any other value means inside.
type MaskVolume struct {
	// Name identifies the mask, e.g. "Cylinder_F-1"
	Name string

	Grid

	Data []uint8
}

// NewMaskVolume allocates an empty mask on the given grid.
func NewMaskVolume(name string, grid Grid) *MaskVolume {
	return &MaskVolume{
		Name: name,
		Grid: grid,
		Data: make([]uint8, grid.Len()),
	}
}

// Inside reports whether voxel (x, y, z) belongs to the region.
func (m *MaskVolume) Inside(x, y, z int) bool {
	return m.Data[m.Index(x, y, z)] > 0
}

// Count returns the number of voxels inside the region.
func (m *MaskVolume) Count() int {
	n := 0
	for _, v := range m.Data {
		if v > 0 {
			n++
		}
	}
	return n
}
