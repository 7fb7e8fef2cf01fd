// Package export writes per-slice statistics as semicolon-separated text
// with comma decimal separators, one Statistic_<segment>.csv file per mask.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"

	"cylinderstats/internal/models"
)

// Header is the first line of every statistics file.
const Header = "Slice_Z_mm;Mean;StdDev;Min;Max;StdError"

const (
	fieldSeparator = ';'
	decimalPlaces  = 2
)

// Decimal is a number written with two decimals and a comma separator.
type Decimal float64

// MarshalCSV implements gocsv.TypeMarshaller.
func (d Decimal) MarshalCSV() (string, error) {
	s := strconv.FormatFloat(float64(d), 'f', decimalPlaces, 64)
	return strings.Replace(s, ".", ",", 1), nil
}

// UnmarshalCSV implements gocsv.TypeUnmarshaller.
func (d *Decimal) UnmarshalCSV(s string) error {
	v, err := strconv.ParseFloat(strings.Replace(strings.TrimSpace(s), ",", ".", 1), 64)
	if err != nil {
		return err
	}
	*d = Decimal(v)
	return nil
}

type record struct {
	SliceZ Decimal `csv:"Slice_Z_mm"`
	Mean   Decimal `csv:"Mean"`
	StdDev Decimal `csv:"StdDev"`
	Min    Decimal `csv:"Min"`
	Max    Decimal `csv:"Max"`
	StdErr Decimal `csv:"StdError"`
}

// FileName returns the statistics file name for a segment.
func FileName(segmentName string) string {
	return fmt.Sprintf("Statistic_%s.csv", segmentName)
}

// FormatRows renders the header and one line per row. Lines are separated by
// a single newline and the text does not end with one.
func FormatRows(rows []models.StatisticsRow) ([]byte, error) {
	records := make([]*record, len(rows))
	for i, r := range rows {
		records[i] = &record{
			SliceZ: Decimal(r.SliceZ),
			Mean:   Decimal(r.Mean),
			StdDev: Decimal(r.StdDev),
			Min:    Decimal(r.Min),
			Max:    Decimal(r.Max),
			StdErr: Decimal(r.StdErr),
		}
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = fieldSeparator
	if err := gocsv.MarshalCSV(&records, gocsv.NewSafeCSVWriter(w)); err != nil {
		return nil, fmt.Errorf("formatting statistics: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("formatting statistics: %w", err)
	}

	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// WriteStatistics writes the rows of one segment into dir, replacing any
// previous file for that segment, and returns the file path.
func WriteStatistics(dir, segmentName string, rows []models.StatisticsRow) (string, error) {
	data, err := FormatRows(rows)
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, FileName(segmentName))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing statistics for %q: %w", segmentName, err)
	}
	return path, nil
}

// ReadStatistics parses a file written by WriteStatistics. Values carry the
// two-decimal precision of the file.
func ReadStatistics(path string) ([]models.StatisticsRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = fieldSeparator

	var records []*record
	if err := gocsv.UnmarshalCSV(r, &records); err != nil {
		return nil, fmt.Errorf("reading statistics %s: %w", path, err)
	}

	rows := make([]models.StatisticsRow, len(records))
	for i, rec := range records {
		rows[i] = models.StatisticsRow{
			SliceZ: float64(rec.SliceZ),
			Mean:   float64(rec.Mean),
			StdDev: float64(rec.StdDev),
			Min:    float64(rec.Min),
			Max:    float64(rec.Max),
			StdErr: float64(rec.StdErr),
		}
	}
	return rows, nil
}
