// Package statistics reduces an intensity volume to per-slice descriptive
// statistics over the voxels selected by a mask.
package statistics

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"cylinderstats/internal/models"
)

// ReduceSlices computes, for every Z slice in ascending order, the mean,
// population standard deviation, minimum, maximum and standard error of the
// intensities whose mask voxel is non-zero. Slices without masked voxels
// produce no row. Both volumes must share dimensions, spacing and origin.
func ReduceSlices(intensity *models.Volume, mask *models.MaskVolume) ([]models.StatisticsRow, error) {
	if intensity == nil || mask == nil {
		return nil, fmt.Errorf("%w: intensity and mask volumes are required", models.ErrMissingInput)
	}
	if err := checkGrids(intensity, mask); err != nil {
		return nil, err
	}

	var rows []models.StatisticsRow
	sliceLen := intensity.SliceLen()
	values := make([]float64, 0, sliceLen)

	for z := 0; z < intensity.Dims[2]; z++ {
		values = values[:0]
		start := z * sliceLen
		for i, m := range mask.Data[start : start+sliceLen] {
			if m > 0 {
				values = append(values, intensity.Data[start+i])
			}
		}
		if len(values) == 0 {
			continue
		}

		rows = append(rows, describe(intensity.SliceZ(z), values))
	}

	return rows, nil
}

// describe summarises the samples of one slice.
func describe(sliceZ float64, values []float64) models.StatisticsRow {
	mean, std := stat.PopMeanStdDev(values, nil)
	return models.StatisticsRow{
		SliceZ: sliceZ,
		Mean:   mean,
		StdDev: std,
		Min:    floats.Min(values),
		Max:    floats.Max(values),
		StdErr: stat.StdErr(std, float64(len(values))),
	}
}

func checkGrids(intensity *models.Volume, mask *models.MaskVolume) error {
	if !intensity.SameAddressing(mask.Grid) {
		return fmt.Errorf("%w: intensity %v spacing %v origin %v, mask %q %v spacing %v origin %v",
			models.ErrGridMismatch,
			intensity.Dims, intensity.Spacing, intensity.Origin,
			mask.Name, mask.Dims, mask.Spacing, mask.Origin)
	}
	if len(intensity.Data) != intensity.Len() || len(mask.Data) != mask.Len() {
		return fmt.Errorf("%w: buffers hold %d and %d samples for %d voxels",
			models.ErrGridMismatch, len(intensity.Data), len(mask.Data), intensity.Len())
	}
	return nil
}
