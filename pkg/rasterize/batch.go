package rasterize

import (
	"fmt"
	"sync"

	"cylinderstats/internal/models"
	"cylinderstats/pkg/config"
)

var log = config.NamedLogger("rasterize")

// SegmentPrefix is prepended to a marker name to name its cylinder.
const SegmentPrefix = "Cylinder_"

// Params holds the cylinder geometry shared by every marker of a batch.
type Params struct {
	// Diameter of the cylinder in mm
	Diameter float64

	// Height of the cylinder in mm
	Height float64

	// Spacing is the voxel size of the reference volume
	Spacing models.Vec3

	// NumCores bounds the number of markers rasterized concurrently
	NumCores int
}

// BatchResult lists the masks of a batch in marker order together with the
// names of markers that were skipped.
type BatchResult struct {
	Masks   []*models.MaskVolume
	Skipped []string
}

// RasterizeMarkers rasterizes one cylinder per marker. Markers that do not
// hold exactly one control point are skipped and reported, they never abort
// the batch.
func RasterizeMarkers(markers []models.Marker, params Params) (*BatchResult, error) {
	if err := Validate(params.Diameter, params.Height, params.Spacing); err != nil {
		return nil, err
	}

	result := &BatchResult{}
	var points []models.Point
	for _, m := range markers {
		p, ok := m.Point()
		if !ok {
			log.Warnf("Skipping marker %q: expected 1 control point, found %d", m.Name, len(m.ControlPoints))
			result.Skipped = append(result.Skipped, m.Name)
			continue
		}
		points = append(points, p)
	}

	numWorkers := params.NumCores
	if numWorkers < 1 {
		numWorkers = 1
	}
	if numWorkers > len(points) {
		numWorkers = len(points)
	}

	type rasterJob struct {
		idx   int
		point models.Point
	}
	type rasterResult struct {
		idx  int
		mask *models.MaskVolume
		err  error
	}

	jobs := make(chan rasterJob)
	results := make(chan rasterResult, len(points))

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				mask, err := Rasterize(job.point.Position, params.Diameter, params.Height, params.Spacing)
				if err == nil {
					mask.Name = SegmentPrefix + job.point.Name
				}
				results <- rasterResult{idx: job.idx, mask: mask, err: err}
			}
		}()
	}

	for i, p := range points {
		jobs <- rasterJob{idx: i, point: p}
	}
	close(jobs)
	wg.Wait()
	close(results)

	result.Masks = make([]*models.MaskVolume, len(points))
	for res := range results {
		if res.err != nil {
			return nil, fmt.Errorf("rasterizing marker %q: %w", points[res.idx].Name, res.err)
		}
		result.Masks[res.idx] = res.mask
		log.Debugf("Rasterized %s: %dx%dx%d voxels, %d inside",
			res.mask.Name, res.mask.Dims[0], res.mask.Dims[1], res.mask.Dims[2], res.mask.Count())
	}

	return result, nil
}
