// Package pipeline runs the cylinder workflow: rasterize one cylinder per
// marker into a segmentation, then export slice statistics of every cylinder
// against the reference volume.
//
// The segmentation produced by a generate run is returned to the caller,
// which passes it back for a later export run.
package pipeline

import (
	"fmt"
	"strings"

	"cylinderstats/internal/models"
	"cylinderstats/pkg/config"
	"cylinderstats/pkg/export"
	"cylinderstats/pkg/rasterize"
	"cylinderstats/pkg/segmentation"
	"cylinderstats/pkg/statistics"
)

var log = config.NamedLogger("pipeline")

// SegmentationName is the name given to every generated segmentation.
const SegmentationName = "Cylinder_Segments"

// Mode selects which operations a run performs.
type Mode int

const (
	// ModeGenerate only rasterizes the cylinders.
	ModeGenerate Mode = iota

	// ModeExport only exports statistics of an existing segmentation.
	ModeExport

	// ModeGenerateAndExport rasterizes the cylinders and exports their statistics.
	ModeGenerateAndExport
)

// ParseMode converts a mode name (generate, export or both) into a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "generate":
		return ModeGenerate, nil
	case "export":
		return ModeExport, nil
	case "both", "generate+export":
		return ModeGenerateAndExport, nil
	}
	return 0, fmt.Errorf("%w: unknown mode %q (want generate, export or both)", models.ErrInvalidParameter, s)
}

func (m Mode) String() string {
	switch m {
	case ModeGenerate:
		return "generate"
	case ModeExport:
		return "export"
	case ModeGenerateAndExport:
		return "both"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Params holds the pipeline parameters.
type Params struct {
	// Diameter of every cylinder in mm
	Diameter float64

	// Height of every cylinder in mm
	Height float64

	// OutputDir receives one Statistic_<segment>.csv per cylinder
	OutputDir string

	// NumCores bounds the number of markers rasterized concurrently
	NumCores int
}

// Inputs are the collaborators a run works on.
type Inputs struct {
	// Reference is the intensity volume defining spacing and geometry
	Reference *models.Volume

	// Markers are rasterized by generate runs
	Markers []models.Marker

	// Segmentation is exported by export-only runs
	Segmentation *segmentation.Segmentation
}

// Outcome reports what a run produced.
type Outcome struct {
	// Segmentation is the segmentation generated or exported by the run
	Segmentation *segmentation.Segmentation

	// Files lists the statistics files written, in segment order
	Files []string

	// Skipped names the markers ignored for not holding exactly one point
	Skipped []string

	// Message is the status line to show once the run completes
	Message string
}

// Pipeline executes runs with fixed parameters. It holds no state between
// runs.
type Pipeline struct {
	params *Params
}

// NewPipeline creates a new pipeline instance with the provided parameters.
func NewPipeline(params *Params) *Pipeline {
	return &Pipeline{params: params}
}

// Run performs the operations selected by mode. On failure the returned
// outcome still lists the files written before the error.
func (p *Pipeline) Run(mode Mode, in Inputs) (*Outcome, error) {
	out := &Outcome{}

	switch mode {
	case ModeGenerate:
		if err := p.generate(in, out); err != nil {
			return out, err
		}
		out.Message = "Cylinder generated."

	case ModeExport:
		if in.Reference == nil || in.Segmentation == nil {
			return out, fmt.Errorf("%w: cylinder or scan not found", models.ErrMissingInput)
		}
		out.Segmentation = in.Segmentation
		if err := p.export(in.Reference, out); err != nil {
			return out, err
		}
		out.Message = "Statistic exported."

	case ModeGenerateAndExport:
		if err := p.generate(in, out); err != nil {
			return out, err
		}
		if err := p.export(in.Reference, out); err != nil {
			return out, err
		}
		out.Message = "Generated cylinders and exported statistics."

	default:
		return out, fmt.Errorf("%w: unknown mode %v", models.ErrInvalidParameter, mode)
	}

	log.Info(out.Message)
	return out, nil
}

// generate rasterizes the markers into a new segmentation.
func (p *Pipeline) generate(in Inputs, out *Outcome) error {
	if in.Reference == nil {
		return fmt.Errorf("%w: no volume found", models.ErrMissingInput)
	}

	batch, err := rasterize.RasterizeMarkers(in.Markers, rasterize.Params{
		Diameter: p.params.Diameter,
		Height:   p.params.Height,
		Spacing:  in.Reference.Spacing,
		NumCores: p.params.NumCores,
	})
	if err != nil {
		return err
	}

	seg := segmentation.New(SegmentationName, in.Reference.Grid)
	for _, mask := range batch.Masks {
		id := seg.AddMask(mask)
		log.Debugf("Imported %s as %s", mask.Name, id)
	}

	out.Segmentation = seg
	out.Skipped = batch.Skipped
	log.Infof("Generated %d cylinders (%d markers skipped)", len(batch.Masks), len(batch.Skipped))
	return nil
}

// export writes the statistics of every cylinder segment of out.Segmentation.
func (p *Pipeline) export(reference *models.Volume, out *Outcome) error {
	if p.params.OutputDir == "" {
		return fmt.Errorf("%w: no output directory", models.ErrMissingInput)
	}
	if err := checkReference(out.Segmentation, reference.Grid); err != nil {
		return err
	}

	for _, id := range out.Segmentation.SegmentIDs() {
		seg, _ := out.Segmentation.Segment(id)
		if !strings.HasPrefix(seg.Name, rasterize.SegmentPrefix) {
			continue
		}

		mask, err := out.Segmentation.ExportToReference(id, reference.Grid)
		if err != nil {
			return err
		}

		rows, err := statistics.ReduceSlices(reference, mask)
		if err != nil {
			return fmt.Errorf("segment %q: %w", seg.Name, err)
		}

		path, err := export.WriteStatistics(p.params.OutputDir, seg.Name, rows)
		if err != nil {
			return err
		}
		out.Files = append(out.Files, path)
		log.Debugf("Exported %s: %d slices to %s", seg.Name, len(rows), path)
	}
	return nil
}

// checkReference verifies that the volume the segmentation was generated on
// has the spacing and direction of grid. Origins may differ; segments are
// resampled into grid by world position.
func checkReference(seg *segmentation.Segmentation, grid models.Grid) error {
	generated, err := seg.ReferenceGeometry()
	if err != nil {
		return fmt.Errorf("segmentation %q: %w", seg.Name, err)
	}
	if generated.Spacing != grid.Spacing || generated.Direction != grid.Direction {
		return fmt.Errorf("%w: segmentation %q was generated on spacing %v direction %v, volume has spacing %v direction %v",
			models.ErrGridMismatch, seg.Name, generated.Spacing, generated.Direction, grid.Spacing, grid.Direction)
	}
	return nil
}
