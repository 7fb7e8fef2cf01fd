package volumeio

import (
	"fmt"
	"math"

	"github.com/carbocation/pfx"
	"github.com/henghuang/nifti"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"cylinderstats/internal/models"
)

const niftiHeaderSize = 348

// LoadNIfTI reads a .nii or .nii.gz file as an intensity volume. Only the
// first time point of 4D data is used.
func LoadNIfTI(path string) (*models.Volume, error) {
	hdr, err := safelyNiftiHeaderParse(path)
	if err != nil {
		return nil, pfx.Err(fmt.Errorf("reading header of %s: %w", path, err))
	}
	grid, err := niftiGrid(hdr)
	if err != nil {
		return nil, pfx.Err(err)
	}

	img, err := safelyNiftiParse(path)
	if err != nil {
		return nil, pfx.Err(fmt.Errorf("reading %s: %w", path, err))
	}

	vol := models.NewVolume(grid)
	if err := copyNiftiVoxels(&img, vol); err != nil {
		return nil, pfx.Err(fmt.Errorf("reading voxels of %s: %w", path, err))
	}

	log.Debugf("Loaded %s: dims %v spacing %v origin %v", path, grid.Dims, grid.Spacing, grid.Origin)
	return vol, nil
}

// safelyNiftiParse consumes panics emitted by the nifti library, which are
// inappropriate and must be captured in order to turn them into recoverable
// errors.
func safelyNiftiParse(filename string) (parsedData nifti.Nifti1Image, err error) {
	defer func() {
		if panicErr := recover(); panicErr != nil {
			err = fmt.Errorf("%v", panicErr)
		}
	}()

	parsedData.LoadImage(filename, true)

	return
}

// safelyNiftiHeaderParse is safelyNiftiParse for the header alone. The
// library reports read failures on stdout only, so a header whose size field
// is not 348 is treated as unreadable.
func safelyNiftiHeaderParse(filename string) (parsedData nifti.Nifti1Header, err error) {
	defer func() {
		if panicErr := recover(); panicErr != nil {
			err = fmt.Errorf("%v", panicErr)
		}
	}()

	parsedData.LoadHeader(filename)
	if err == nil && parsedData.SizeofHdr != niftiHeaderSize {
		err = fmt.Errorf("%w: not a little-endian NIfTI-1 header", models.ErrInvalidParameter)
	}

	return
}

// copyNiftiVoxels fills vol from the first time point of img. GetAt panics
// when the file holds fewer voxels than its header announces.
func copyNiftiVoxels(img *nifti.Nifti1Image, vol *models.Volume) (err error) {
	defer func() {
		if panicErr := recover(); panicErr != nil {
			err = fmt.Errorf("%v", panicErr)
		}
	}()

	for z := 0; z < vol.Dims[2]; z++ {
		for y := 0; y < vol.Dims[1]; y++ {
			for x := 0; x < vol.Dims[0]; x++ {
				vol.Set(x, y, z, float64(img.GetAt(x, y, z, 0)))
			}
		}
	}
	return nil
}

// niftiGrid derives the voxel grid, preferring the sform affine over the
// qform quaternion and falling back to pixdim scaling.
func niftiGrid(h nifti.Nifti1Header) (models.Grid, error) {
	if h.Dim[0] < 3 {
		return models.Grid{}, fmt.Errorf("%w: NIfTI image has %d dimensions, need 3", models.ErrInvalidParameter, h.Dim[0])
	}

	g := models.Grid{Direction: models.IdentityDirection}
	for a := 0; a < 3; a++ {
		g.Dims[a] = int(h.Dim[a+1])
		if g.Dims[a] < 1 {
			return models.Grid{}, fmt.Errorf("%w: NIfTI dimension %d is %d", models.ErrInvalidParameter, a, g.Dims[a])
		}
	}
	g.Spacing = models.Vec3{
		X: pixdimOrOne(h.Pixdim[1]),
		Y: pixdimOrOne(h.Pixdim[2]),
		Z: pixdimOrOne(h.Pixdim[3]),
	}

	switch {
	case h.SformCode > 0:
		srow := [3][4]float32{h.SrowX, h.SrowY, h.SrowZ}
		affine := mat.NewDense(3, 3, nil)
		for row := 0; row < 3; row++ {
			for col := 0; col < 3; col++ {
				affine.Set(row, col, float64(srow[row][col]))
			}
		}
		spacing, direction, err := splitAffine(affine)
		if err != nil {
			return models.Grid{}, err
		}
		g.Spacing, g.Direction = spacing, direction
		g.Origin = models.Vec3{X: float64(srow[0][3]), Y: float64(srow[1][3]), Z: float64(srow[2][3])}
	case h.QformCode > 0:
		g.Direction = quaternionDirection([3]float32{h.QuaternB, h.QuaternC, h.QuaternD}, h.Pixdim[0])
		g.Origin = models.Vec3{X: float64(h.QoffsetX), Y: float64(h.QoffsetY), Z: float64(h.QoffsetZ)}
	}
	return g, nil
}

// splitAffine factors a 3x3 voxel-to-world block into column lengths
// (spacing) and unit columns (direction cosines).
func splitAffine(affine *mat.Dense) (models.Vec3, [9]float64, error) {
	var direction [9]float64
	var spacing [3]float64
	for col := 0; col < 3; col++ {
		c := mat.Col(nil, col, affine)
		n := floats.Norm(c, 2)
		if n == 0 {
			return models.Vec3{}, direction, fmt.Errorf("%w: NIfTI sform column %d is zero", models.ErrInvalidParameter, col)
		}
		spacing[col] = n
		for row := 0; row < 3; row++ {
			direction[row*3+col] = c[row] / n
		}
	}
	return models.Vec3{X: spacing[0], Y: spacing[1], Z: spacing[2]}, direction, nil
}

// quaternionDirection builds the qform rotation. qfac (pixdim[0]) flips the
// third axis when negative.
func quaternionDirection(q [3]float32, qfac float32) [9]float64 {
	b, c, d := float64(q[0]), float64(q[1]), float64(q[2])
	a := 1.0 - (b*b + c*c + d*d)
	if a < 1e-7 {
		a = 0
	} else {
		a = math.Sqrt(a)
	}

	k := 1.0
	if qfac < 0 {
		k = -1
	}

	return [9]float64{
		a*a + b*b - c*c - d*d, 2 * (b*c - a*d), 2 * (b*d + a*c) * k,
		2 * (b*c + a*d), a*a + c*c - b*b - d*d, 2 * (c*d - a*b) * k,
		2 * (b*d - a*c), 2 * (c*d + a*b), (a*a + d*d - c*c - b*b) * k,
	}
}

func pixdimOrOne(v float32) float64 {
	if v <= 0 || math.IsNaN(float64(v)) {
		return 1
	}
	return float64(v)
}
