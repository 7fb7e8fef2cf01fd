// Package rasterize turns cylindrical regions of interest into binary mask
// volumes on a voxel grid.
//
// The cylinder axis is parallel to the grid's Z axis and centred on the
// marker. Its bounding box is sized by truncating the radius and half height
// to whole voxels, so the rasterized cylinder can be up to one voxel smaller
// than requested, and the voxel range along each axis is half-open.
package rasterize

import (
	"fmt"
	"math"

	"cylinderstats/internal/models"
)

// Extents returns the voxel half-extents of the bounding box of a cylinder
// with the given diameter and height.
func Extents(diameter, height float64, spacing models.Vec3) (ex, ey, ez int) {
	radius := diameter / 2.0
	ex = int(math.Floor(radius / spacing.X))
	ey = int(math.Floor(radius / spacing.Y))
	ez = int(math.Floor(height / 2.0 / spacing.Z))
	return ex, ey, ez
}

// maxMaskVoxels bounds the bounding box of a single cylinder mask (1 GiB of
// uint8 voxels).
const maxMaskVoxels = 1 << 30

// Validate checks that a cylinder of the given geometry can be rasterized on
// a grid with the given spacing.
//
// Besides non-positive or non-finite parameters, Validate rejects a cylinder
// whose truncated extent is zero on any axis, i.e. one thinner or shorter
// than two voxels, which would otherwise rasterize to an empty mask. It also
// rejects a cylinder whose bounding box exceeds maxMaskVoxels.
func Validate(diameter, height float64, spacing models.Vec3) error {
	if !(diameter > 0) || math.IsInf(diameter, 0) {
		return fmt.Errorf("%w: diameter must be positive, got %g", models.ErrInvalidParameter, diameter)
	}
	if !(height > 0) || math.IsInf(height, 0) {
		return fmt.Errorf("%w: height must be positive, got %g", models.ErrInvalidParameter, height)
	}
	if !spacing.Positive() {
		return fmt.Errorf("%w: spacing must be positive, got %v", models.ErrInvalidParameter, spacing)
	}

	// Checked before converting to int, which overflows for huge ratios.
	rx := math.Floor(diameter / 2.0 / spacing.X)
	ry := math.Floor(diameter / 2.0 / spacing.Y)
	rz := math.Floor(height / 2.0 / spacing.Z)
	if rx > maxMaskVoxels || ry > maxMaskVoxels || rz > maxMaskVoxels || 8*rx*ry*rz > maxMaskVoxels {
		return fmt.Errorf("%w: cylinder %gx%g mm spans more than %d voxels of %v",
			models.ErrInvalidParameter, diameter, height, maxMaskVoxels, spacing)
	}

	ex, ey, ez := Extents(diameter, height, spacing)
	if ex <= 0 || ey <= 0 || ez <= 0 {
		return fmt.Errorf("%w: cylinder %gx%g mm is smaller than one voxel of %v",
			models.ErrInvalidParameter, diameter, height, spacing)
	}
	return nil
}

// Rasterize builds the mask of a cylinder centred at center. The returned
// volume covers only the bounding box of the cylinder; its origin places the
// box in world space.
func Rasterize(center models.Vec3, diameter, height float64, spacing models.Vec3) (*models.MaskVolume, error) {
	if err := Validate(diameter, height, spacing); err != nil {
		return nil, err
	}

	radius := diameter / 2.0
	r2 := radius * radius
	ex, ey, ez := Extents(diameter, height, spacing)

	origin := models.Vec3{
		X: center.X - float64(ex)*spacing.X,
		Y: center.Y - float64(ey)*spacing.Y,
		Z: center.Z - float64(ez)*spacing.Z,
	}
	mask := models.NewMaskVolume("", models.NewGrid([3]int{2 * ex, 2 * ey, 2 * ez}, spacing, origin))

	// The cross-section is the same on every slice, so it is computed once
	// and copied along Z.
	section := mask.Data[:mask.SliceLen()]
	for y := -ey; y < ey; y++ {
		wy := float64(y) * spacing.Y
		for x := -ex; x < ex; x++ {
			wx := float64(x) * spacing.X
			if wx*wx+wy*wy <= r2 {
				section[(y+ey)*mask.Dims[0]+(x+ex)] = 1
			}
		}
	}
	for z := 1; z < mask.Dims[2]; z++ {
		copy(mask.Data[z*mask.SliceLen():], section)
	}

	return mask, nil
}
