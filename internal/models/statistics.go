package models

// StatisticsRow holds the descriptive statistics of the masked voxels of one
// Z slice.
type StatisticsRow struct {
	// SliceZ is the physical Z coordinate of the slice in mm
	SliceZ float64

	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
	StdErr float64
}
