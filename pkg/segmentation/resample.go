package segmentation

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"cylinderstats/internal/models"
)

// ExportToReference returns the segment with the given ID resampled onto the
// reference grid, so that it can be reduced against the reference intensity
// volume. Each reference voxel takes the value of the nearest segment voxel.
func (s *Segmentation) ExportToReference(id string, reference models.Grid) (*models.MaskVolume, error) {
	seg, ok := s.Segment(id)
	if !ok {
		return nil, fmt.Errorf("%w: segment %q not found in %q", models.ErrMissingInput, id, s.Name)
	}
	out, err := Resample(seg.Labelmap, reference)
	if err != nil {
		return nil, fmt.Errorf("exporting segment %q: %w", seg.Name, err)
	}
	return out, nil
}

// Resample maps mask onto grid using nearest-neighbour lookup.
func Resample(mask *models.MaskVolume, grid models.Grid) (*models.MaskVolume, error) {
	if !grid.Spacing.Positive() || !mask.Spacing.Positive() {
		return nil, fmt.Errorf("%w: resampling needs positive spacing", models.ErrInvalidParameter)
	}
	dst, err := newFrame(grid)
	if err != nil {
		return nil, err
	}
	src, err := newFrame(mask.Grid)
	if err != nil {
		return nil, err
	}

	out := models.NewMaskVolume(mask.Name, grid)
	lo, hi, ok := dst.coveredRange(src)
	if !ok {
		return out, nil
	}

	for k := lo[2]; k <= hi[2]; k++ {
		for j := lo[1]; j <= hi[1]; j++ {
			for i := lo[0]; i <= hi[0]; i++ {
				p := grid.World(float64(i), float64(j), float64(k))
				q := src.continuousIndex(p)
				x, y, z := int(math.Round(q[0])), int(math.Round(q[1])), int(math.Round(q[2]))
				if mask.Contains(x, y, z) && mask.Inside(x, y, z) {
					out.Data[grid.Index(i, j, k)] = 1
				}
			}
		}
	}
	return out, nil
}

// frame converts world positions into continuous voxel indices of a grid.
type frame struct {
	grid models.Grid
	inv  mat.Dense
}

func newFrame(g models.Grid) (*frame, error) {
	f := &frame{grid: g}
	d := mat.NewDense(3, 3, append([]float64(nil), g.Direction[:]...))
	if err := f.inv.Inverse(d); err != nil {
		return nil, fmt.Errorf("%w: direction matrix %v is not invertible: %v",
			models.ErrInvalidParameter, g.Direction, err)
	}
	return f, nil
}

func (f *frame) continuousIndex(p models.Vec3) [3]float64 {
	d := p.Sub(f.grid.Origin)
	var v mat.VecDense
	v.MulVec(&f.inv, mat.NewVecDense(3, []float64{d.X, d.Y, d.Z}))
	return [3]float64{
		v.AtVec(0) / f.grid.Spacing.X,
		v.AtVec(1) / f.grid.Spacing.Y,
		v.AtVec(2) / f.grid.Spacing.Z,
	}
}

// coveredRange returns the inclusive index box of f that can receive voxels
// of src. ok is false when the two grids do not overlap.
func (f *frame) coveredRange(src *frame) (lo, hi [3]int, ok bool) {
	for a := range lo {
		lo[a], hi[a] = math.MaxInt, math.MinInt
	}

	dims := src.grid.Dims
	for c := 0; c < 8; c++ {
		corner := [3]float64{-0.5, -0.5, -0.5}
		for a := 0; a < 3; a++ {
			if c&(1<<a) != 0 {
				corner[a] = float64(dims[a]) - 0.5
			}
		}
		q := f.continuousIndex(src.grid.World(corner[0], corner[1], corner[2]))
		for a := 0; a < 3; a++ {
			lo[a] = min(lo[a], int(math.Floor(q[a])))
			hi[a] = max(hi[a], int(math.Ceil(q[a])))
		}
	}

	for a := 0; a < 3; a++ {
		lo[a] = max(lo[a], 0)
		hi[a] = min(hi[a], f.grid.Dims[a]-1)
		if lo[a] > hi[a] {
			return lo, hi, false
		}
	}
	return lo, hi, true
}
