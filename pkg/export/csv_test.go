package export

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cylinderstats/internal/models"
)

func knownRow() models.StatisticsRow {
	std := math.Sqrt(200.0 / 3.0)
	return models.StatisticsRow{
		SliceZ: -5,
		Mean:   20,
		StdDev: std,
		Min:    10,
		Max:    30,
		StdErr: std / math.Sqrt(3),
	}
}

func TestDecimalMarshalCSV(t *testing.T) {
	cases := map[float64]string{
		20:        "20,00",
		8.1649658: "8,16",
		-12.346:   "-12,35",
		0:         "0,00",
		1234.5:    "1234,50",
	}
	for in, want := range cases {
		got, err := Decimal(in).MarshalCSV()
		require.NoError(t, err)
		assert.Equal(t, want, got, "value %g", in)
	}
}

func TestDecimalUnmarshalCSV(t *testing.T) {
	var d Decimal
	require.NoError(t, d.UnmarshalCSV("-3,25"))
	assert.Equal(t, Decimal(-3.25), d)

	assert.Error(t, d.UnmarshalCSV("abc"))
}

func TestFormatRowsLayout(t *testing.T) {
	second := models.StatisticsRow{SliceZ: 2.5, Mean: 1, StdDev: 0, Min: 1, Max: 1, StdErr: 0}

	data, err := FormatRows([]models.StatisticsRow{knownRow(), second})
	require.NoError(t, err)

	want := Header + "\n" +
		"-5,00;20,00;8,16;10,00;30,00;4,71\n" +
		"2,50;1,00;0,00;1,00;1,00;0,00"
	assert.Equal(t, want, string(data))
}

func TestWriteStatisticsOverwrites(t *testing.T) {
	dir := t.TempDir()

	path, err := WriteStatistics(dir, "Cylinder_F-1", []models.StatisticsRow{knownRow(), knownRow()})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Statistic_Cylinder_F-1.csv"), path)

	path, err = WriteStatistics(dir, "Cylinder_F-1", []models.StatisticsRow{knownRow()})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, Header+"\n-5,00;20,00;8,16;10,00;30,00;4,71", string(data))
}

func TestReadStatisticsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	rows := []models.StatisticsRow{
		knownRow(),
		{SliceZ: 12.75, Mean: -4.5, StdDev: 1.25, Min: -6, Max: -3, StdErr: 0.5},
	}

	path, err := WriteStatistics(dir, "Cylinder_B", rows)
	require.NoError(t, err)

	got, err := ReadStatistics(path)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, 20.0, got[0].Mean)
	assert.Equal(t, 8.16, got[0].StdDev)
	assert.Equal(t, 4.71, got[0].StdErr)
	assert.Equal(t, rows[1], got[1])
}

func TestWriteStatisticsMissingDirectory(t *testing.T) {
	_, err := WriteStatistics(filepath.Join(t.TempDir(), "missing"), "Cylinder_X", []models.StatisticsRow{knownRow()})
	assert.Error(t, err)
}
