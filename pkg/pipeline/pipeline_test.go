package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cylinderstats/internal/models"
	"cylinderstats/pkg/export"
	"cylinderstats/pkg/segmentation"
)

// createTestVolume returns a 10 mm cube sampled at 1 mm whose intensity
// encodes the voxel index as x + 10y + 100z.
func createTestVolume() *models.Volume {
	vol := models.NewVolume(models.NewGrid([3]int{10, 10, 10}, models.Vec3{X: 1, Y: 1, Z: 1}, models.Vec3{}))
	for z := 0; z < 10; z++ {
		for y := 0; y < 10; y++ {
			for x := 0; x < 10; x++ {
				vol.Set(x, y, z, float64(x+10*y+100*z))
			}
		}
	}
	return vol
}

func marker(name string, points ...models.Vec3) models.Marker {
	return models.Marker{Name: name, ControlPoints: points}
}

func testParams(t *testing.T) *Params {
	return &Params{Diameter: 2, Height: 2, OutputDir: t.TempDir(), NumCores: 2}
}

const expectedCenterStatistics = export.Header + "\n" +
	"4,00;451,33;4,50;445,00;455,00;2,60\n" +
	"5,00;551,33;4,50;545,00;555,00;2,60"

func TestGenerateOnly(t *testing.T) {
	params := testParams(t)
	p := NewPipeline(params)

	out, err := p.Run(ModeGenerate, Inputs{
		Reference: createTestVolume(),
		Markers:   []models.Marker{marker("F-1", models.Vec3{X: 5, Y: 5, Z: 5})},
	})
	require.NoError(t, err)

	assert.Equal(t, "Cylinder generated.", out.Message)
	assert.Empty(t, out.Files)
	require.NotNil(t, out.Segmentation)
	assert.Equal(t, SegmentationName, out.Segmentation.Name)

	segs := out.Segmentation.Segments()
	require.Len(t, segs, 1)
	assert.Equal(t, "Cylinder_F-1", segs[0].Name)
	assert.Equal(t, [3]int{2, 2, 2}, segs[0].Labelmap.Dims)

	attr, ok := out.Segmentation.Attribute("referenceImageGeometryRef")
	require.True(t, ok)
	assert.Equal(t, "1;1;1;0;0;0;1;0;0;0;1;0;0;0;1", attr)

	entries, err := os.ReadDir(params.OutputDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestGenerateThenExport(t *testing.T) {
	params := testParams(t)
	p := NewPipeline(params)
	ref := createTestVolume()

	generated, err := p.Run(ModeGenerate, Inputs{
		Reference: ref,
		Markers:   []models.Marker{marker("F-1", models.Vec3{X: 5, Y: 5, Z: 5})},
	})
	require.NoError(t, err)

	exported, err := p.Run(ModeExport, Inputs{Reference: ref, Segmentation: generated.Segmentation})
	require.NoError(t, err)

	assert.Equal(t, "Statistic exported.", exported.Message)
	assert.Same(t, generated.Segmentation, exported.Segmentation)
	require.Equal(t, []string{filepath.Join(params.OutputDir, "Statistic_Cylinder_F-1.csv")}, exported.Files)

	data, err := os.ReadFile(exported.Files[0])
	require.NoError(t, err)
	assert.Equal(t, expectedCenterStatistics, string(data))
}

func TestGenerateAndExport(t *testing.T) {
	params := testParams(t)
	p := NewPipeline(params)

	out, err := p.Run(ModeGenerateAndExport, Inputs{
		Reference: createTestVolume(),
		Markers: []models.Marker{
			marker("F-1", models.Vec3{X: 5, Y: 5, Z: 5}),
			marker("broken"),
			marker("F-2", models.Vec3{X: 2, Y: 7, Z: 1}),
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "Generated cylinders and exported statistics.", out.Message)
	assert.Equal(t, []string{"broken"}, out.Skipped)
	require.Len(t, out.Files, 2)
	assert.Equal(t, "Statistic_Cylinder_F-1.csv", filepath.Base(out.Files[0]))
	assert.Equal(t, "Statistic_Cylinder_F-2.csv", filepath.Base(out.Files[1]))

	rows, err := export.ReadStatistics(out.Files[1])
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 0.0, rows[0].SliceZ)
	assert.Equal(t, 1.0, rows[1].SliceZ)
}

func TestExportSkipsForeignSegments(t *testing.T) {
	params := testParams(t)
	p := NewPipeline(params)
	ref := createTestVolume()

	generated, err := p.Run(ModeGenerate, Inputs{
		Reference: ref,
		Markers:   []models.Marker{marker("F-1", models.Vec3{X: 5, Y: 5, Z: 5})},
	})
	require.NoError(t, err)

	foreign := models.NewMaskVolume("Tumor", models.NewGrid([3]int{1, 1, 1}, ref.Spacing, models.Vec3{}))
	foreign.Data[0] = 1
	generated.Segmentation.AddMask(foreign)

	out, err := p.Run(ModeExport, Inputs{Reference: ref, Segmentation: generated.Segmentation})
	require.NoError(t, err)
	require.Len(t, out.Files, 1)
	assert.Equal(t, "Statistic_Cylinder_F-1.csv", filepath.Base(out.Files[0]))
}

func TestExportWithoutSegmentation(t *testing.T) {
	p := NewPipeline(testParams(t))

	_, err := p.Run(ModeExport, Inputs{Reference: createTestVolume()})
	assert.ErrorIs(t, err, models.ErrMissingInput)
}

func TestGenerateWithoutReference(t *testing.T) {
	p := NewPipeline(testParams(t))

	_, err := p.Run(ModeGenerateAndExport, Inputs{Markers: []models.Marker{marker("F-1", models.Vec3{})}})
	assert.ErrorIs(t, err, models.ErrMissingInput)
}

func TestGenerateRejectsInvalidGeometry(t *testing.T) {
	params := testParams(t)
	params.Height = 0
	p := NewPipeline(params)

	_, err := p.Run(ModeGenerate, Inputs{
		Reference: createTestVolume(),
		Markers:   []models.Marker{marker("F-1", models.Vec3{X: 5, Y: 5, Z: 5})},
	})
	assert.ErrorIs(t, err, models.ErrInvalidParameter)
}

func TestExportKeepsFilesWrittenBeforeFailure(t *testing.T) {
	params := testParams(t)
	p := NewPipeline(params)
	ref := createTestVolume()

	generated, err := p.Run(ModeGenerate, Inputs{
		Reference: ref,
		Markers: []models.Marker{
			marker("A", models.Vec3{X: 5, Y: 5, Z: 5}),
			marker("B/C", models.Vec3{X: 3, Y: 3, Z: 3}),
		},
	})
	require.NoError(t, err)

	out, err := p.Run(ModeExport, Inputs{Reference: ref, Segmentation: generated.Segmentation})
	require.Error(t, err)
	require.Len(t, out.Files, 1)
	assert.FileExists(t, out.Files[0])
}

func TestExportRejectsVolumeWithOtherSpacing(t *testing.T) {
	params := testParams(t)
	p := NewPipeline(params)

	generated, err := p.Run(ModeGenerate, Inputs{
		Reference: createTestVolume(),
		Markers:   []models.Marker{marker("F-1", models.Vec3{X: 5, Y: 5, Z: 5})},
	})
	require.NoError(t, err)

	other := models.NewVolume(models.NewGrid([3]int{5, 5, 5}, models.Vec3{X: 2, Y: 2, Z: 2}, models.Vec3{}))
	out, err := p.Run(ModeExport, Inputs{Reference: other, Segmentation: generated.Segmentation})
	assert.ErrorIs(t, err, models.ErrGridMismatch)
	assert.Contains(t, err.Error(), SegmentationName)
	assert.Empty(t, out.Files)

	entries, err := os.ReadDir(params.OutputDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestExportRejectsVolumeWithOtherDirection(t *testing.T) {
	p := NewPipeline(testParams(t))

	generated, err := p.Run(ModeGenerate, Inputs{
		Reference: createTestVolume(),
		Markers:   []models.Marker{marker("F-1", models.Vec3{X: 5, Y: 5, Z: 5})},
	})
	require.NoError(t, err)

	flipped := createTestVolume()
	flipped.Direction = [9]float64{-1, 0, 0, 0, -1, 0, 0, 0, 1}
	_, err = p.Run(ModeExport, Inputs{Reference: flipped, Segmentation: generated.Segmentation})
	assert.ErrorIs(t, err, models.ErrGridMismatch)
}

func TestExportAcceptsShiftedOrigin(t *testing.T) {
	p := NewPipeline(testParams(t))

	generated, err := p.Run(ModeGenerate, Inputs{
		Reference: createTestVolume(),
		Markers:   []models.Marker{marker("F-1", models.Vec3{X: 5, Y: 5, Z: 5})},
	})
	require.NoError(t, err)

	shifted := createTestVolume()
	shifted.Origin = models.Vec3{X: 1}
	out, err := p.Run(ModeExport, Inputs{Reference: shifted, Segmentation: generated.Segmentation})
	require.NoError(t, err)
	assert.Len(t, out.Files, 1)
}

func TestExportRejectsUnreadableGeometry(t *testing.T) {
	p := NewPipeline(testParams(t))
	ref := createTestVolume()

	seg := segmentation.New(SegmentationName, ref.Grid)
	seg.SetAttribute(segmentation.ReferenceGeometryAttribute, "1;1;1")

	_, err := p.Run(ModeExport, Inputs{Reference: ref, Segmentation: seg})
	assert.ErrorIs(t, err, models.ErrInvalidParameter)
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{
		"generate": ModeGenerate,
		"Export":   ModeExport,
		" both ":   ModeGenerateAndExport,
	} {
		got, err := ParseMode(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.NotEmpty(t, got.String())
	}

	_, err := ParseMode("delete")
	assert.ErrorIs(t, err, models.ErrInvalidParameter)
}
