package rasterize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cylinderstats/internal/models"
)

func TestRasterizeMarkersKeepsOrderAndSkipsMalformed(t *testing.T) {
	markers := []models.Marker{
		{Name: "A", ControlPoints: []models.Vec3{{X: 0, Y: 0, Z: 0}}},
		{Name: "empty"},
		{Name: "B", ControlPoints: []models.Vec3{{X: 10, Y: 5, Z: -3}}},
		{Name: "pair", ControlPoints: []models.Vec3{{}, {X: 1}}},
		{Name: "C", ControlPoints: []models.Vec3{{X: -7, Y: 2, Z: 9}}},
	}
	params := Params{
		Diameter: 4,
		Height:   6,
		Spacing:  models.Vec3{X: 1, Y: 1, Z: 1},
		NumCores: 3,
	}

	res, err := RasterizeMarkers(markers, params)
	require.NoError(t, err)

	require.Len(t, res.Masks, 3)
	assert.Equal(t, "Cylinder_A", res.Masks[0].Name)
	assert.Equal(t, "Cylinder_B", res.Masks[1].Name)
	assert.Equal(t, "Cylinder_C", res.Masks[2].Name)
	assert.Equal(t, []string{"empty", "pair"}, res.Skipped)

	assert.Equal(t, models.Vec3{X: 8, Y: 3, Z: -6}, res.Masks[1].Origin)
}

func TestRasterizeMarkersMatchesSingleRasterization(t *testing.T) {
	spacing := models.Vec3{X: 0.5, Y: 0.75, Z: 1}
	center := models.Vec3{X: 1.5, Y: 2.5, Z: 3.5}
	markers := []models.Marker{{Name: "P", ControlPoints: []models.Vec3{center}}}

	res, err := RasterizeMarkers(markers, Params{Diameter: 5, Height: 4, Spacing: spacing, NumCores: 1})
	require.NoError(t, err)

	single, err := Rasterize(center, 5, 4, spacing)
	require.NoError(t, err)

	require.Len(t, res.Masks, 1)
	assert.Equal(t, single.Grid, res.Masks[0].Grid)
	assert.Equal(t, single.Data, res.Masks[0].Data)
}

func TestRasterizeMarkersValidatesBeforeWork(t *testing.T) {
	markers := []models.Marker{{Name: "A", ControlPoints: []models.Vec3{{}}}}

	_, err := RasterizeMarkers(markers, Params{Diameter: 0, Height: 2, Spacing: models.Vec3{X: 1, Y: 1, Z: 1}})
	assert.ErrorIs(t, err, models.ErrInvalidParameter)
}

func TestRasterizeMarkersWithoutValidMarkers(t *testing.T) {
	markers := []models.Marker{{Name: "none"}}

	res, err := RasterizeMarkers(markers, Params{Diameter: 2, Height: 2, Spacing: models.Vec3{X: 1, Y: 1, Z: 1}, NumCores: 4})
	require.NoError(t, err)
	assert.Empty(t, res.Masks)
	assert.Equal(t, []string{"none"}, res.Skipped)
}
