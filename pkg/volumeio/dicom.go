package volumeio

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/carbocation/pfx"
	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/dicomtag"
	"github.com/suyashkumar/dicom/element"

	"cylinderstats/internal/models"
)

// dicomSlice is one decoded image of a series, still in the LPS frame.
type dicomSlice struct {
	file          string
	position      models.Vec3
	rowCosine     models.Vec3
	columnCosine  models.Vec3
	pixelSpacing  [2]float64 // between rows, between columns
	thickness     float64
	rows, columns int
	pixels        []float64
}

// LoadDICOMSeries reads every DICOM file directly inside dir as one series
// and stacks the images along their slice normal. Files that cannot be
// parsed as DICOM are skipped.
func LoadDICOMSeries(dir string) (*models.Volume, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, pfx.Err(err)
	}

	var slices []dicomSlice
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		s, err := readDICOMSlice(path)
		if err != nil {
			log.Warnf("Skipping %s: %v", path, err)
			continue
		}
		slices = append(slices, s)
	}
	if len(slices) == 0 {
		return nil, pfx.Err(fmt.Errorf("%w: no DICOM images in %s", models.ErrMissingInput, dir))
	}

	vol, err := stackSlices(slices)
	if err != nil {
		return nil, pfx.Err(err)
	}
	log.Debugf("Loaded DICOM series %s: %d slices, dims %v spacing %v", dir, len(slices), vol.Dims, vol.Spacing)
	return vol, nil
}

// safelyDicomParse consumes panics emitted by the dicom library, which are
// inappropriate and must be captured in order to turn them into recoverable
// errors.
func safelyDicomParse(dcm []byte, opts dicom.ParseOptions) (parsedData *element.DataSet, err error) {
	defer func() {
		if panicErr := recover(); panicErr != nil {
			err = fmt.Errorf("%v", panicErr)
		}
	}()

	p, err := dicom.NewParserFromBytes(dcm, nil)
	if err != nil {
		return nil, err
	}
	return p.Parse(opts)
}

func readDICOMSlice(path string) (dicomSlice, error) {
	out := dicomSlice{file: path}

	dcm, err := os.ReadFile(path)
	if err != nil {
		return out, err
	}
	parsedData, err := safelyDicomParse(dcm, dicom.ParseOptions{
		DropPixelData: false,
	})
	if parsedData == nil || err != nil {
		return out, fmt.Errorf("error reading dicom: %v", err)
	}

	tags := make(map[dicomtag.Tag][]interface{})
	var pixelData *element.PixelDataInfo
	for _, elem := range parsedData.Elements {
		if elem == nil {
			continue
		}
		if elem.Tag == dicomtag.PixelData && len(elem.Value) > 0 {
			if info, ok := elem.Value[0].(element.PixelDataInfo); ok {
				pixelData = &info
			}
			continue
		}
		tags[elem.Tag] = elem.Value
	}

	if out.rows, err = tagUint(tags, dicomtag.Rows); err != nil {
		return out, err
	}
	if out.columns, err = tagUint(tags, dicomtag.Columns); err != nil {
		return out, err
	}

	pos, err := tagDecimals(tags, dicomtag.ImagePositionPatient, 3)
	if err != nil {
		return out, err
	}
	out.position = models.Vec3{X: pos[0], Y: pos[1], Z: pos[2]}

	orient, err := tagDecimals(tags, dicomtag.ImageOrientationPatient, 6)
	if err != nil {
		return out, err
	}
	out.rowCosine = models.Vec3{X: orient[0], Y: orient[1], Z: orient[2]}
	out.columnCosine = models.Vec3{X: orient[3], Y: orient[4], Z: orient[5]}

	spacing, err := tagDecimals(tags, dicomtag.PixelSpacing, 2)
	if err != nil {
		return out, err
	}
	out.pixelSpacing = [2]float64{spacing[0], spacing[1]}

	if v, err := tagDecimals(tags, dicomtag.SliceThickness, 1); err == nil {
		out.thickness = v[0]
	}

	slope, intercept := 1.0, 0.0
	if v, err := tagDecimals(tags, dicomtag.RescaleSlope, 1); err == nil {
		slope = v[0]
	}
	if v, err := tagDecimals(tags, dicomtag.RescaleIntercept, 1); err == nil {
		intercept = v[0]
	}

	if pixelData == nil {
		return out, fmt.Errorf("no pixel data")
	}
	for _, frame := range pixelData.Frames {
		if frame.IsEncapsulated() {
			return out, fmt.Errorf("encapsulated pixel data is not supported")
		}
		for j := 0; j < len(frame.NativeData.Data); j++ {
			out.pixels = append(out.pixels, float64(frame.NativeData.Data[j][0])*slope+intercept)
		}
		break
	}
	if len(out.pixels) != out.rows*out.columns {
		return out, fmt.Errorf("expected %d pixels, found %d", out.rows*out.columns, len(out.pixels))
	}
	return out, nil
}

func tagUint(tags map[dicomtag.Tag][]interface{}, tag dicomtag.Tag) (int, error) {
	val, exists := tags[tag]
	if !exists || len(val) == 0 {
		return 0, fmt.Errorf("%v not found", tag)
	}
	switch v := val[0].(type) {
	case uint16:
		return int(v), nil
	case uint32:
		return int(v), nil
	case int:
		return v, nil
	}
	return 0, fmt.Errorf("%v has unexpected type %T", tag, val[0])
}

// tagDecimals parses a decimal-string tag holding at least n values. Values
// may arrive as separate entries or backslash-joined in one.
func tagDecimals(tags map[dicomtag.Tag][]interface{}, tag dicomtag.Tag, n int) ([]float64, error) {
	val, exists := tags[tag]
	if !exists {
		return nil, fmt.Errorf("%v not found", tag)
	}

	var out []float64
	for _, v := range val {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%v has unexpected type %T", tag, v)
		}
		for _, part := range strings.Split(s, `\`) {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			f, err := strconv.ParseFloat(part, 64)
			if err != nil {
				return nil, fmt.Errorf("%v: %w", tag, err)
			}
			out = append(out, f)
		}
	}
	if len(out) < n {
		return nil, fmt.Errorf("%v holds %d values, want %d", tag, len(out), n)
	}
	return out[:n], nil
}

// stackSlices orders the images along the slice normal and converts the
// series from LPS to RAS.
func stackSlices(slices []dicomSlice) (*models.Volume, error) {
	first := slices[0]
	normal := cross(first.rowCosine, first.columnCosine)

	sort.SliceStable(slices, func(i, j int) bool {
		return dot(slices[i].position, normal) < dot(slices[j].position, normal)
	})
	first = slices[0]

	for _, s := range slices[1:] {
		if s.rows != first.rows || s.columns != first.columns {
			return nil, fmt.Errorf("%w: %s is %dx%d, series is %dx%d",
				models.ErrGridMismatch, s.file, s.columns, s.rows, first.columns, first.rows)
		}
		if s.pixelSpacing != first.pixelSpacing {
			return nil, fmt.Errorf("%w: %s has pixel spacing %v, series has %v",
				models.ErrGridMismatch, s.file, s.pixelSpacing, first.pixelSpacing)
		}
	}

	sliceSpacing := first.thickness
	if len(slices) > 1 {
		sliceSpacing = math.Abs(dot(slices[1].position.Sub(first.position), normal))
	}
	if !(sliceSpacing > 0) {
		sliceSpacing = 1
	}

	grid := models.Grid{
		Dims: [3]int{first.columns, first.rows, len(slices)},
		Spacing: models.Vec3{
			X: first.pixelSpacing[1],
			Y: first.pixelSpacing[0],
			Z: sliceSpacing,
		},
		Origin: lpsToRAS(first.position),
	}
	axes := [3]models.Vec3{lpsToRAS(first.rowCosine), lpsToRAS(first.columnCosine), lpsToRAS(normal)}
	for col, axis := range axes {
		grid.Direction[col] = axis.X
		grid.Direction[3+col] = axis.Y
		grid.Direction[6+col] = axis.Z
	}

	vol := models.NewVolume(grid)
	for k, s := range slices {
		copy(vol.Data[k*grid.SliceLen():], s.pixels)
	}
	return vol, nil
}

func lpsToRAS(v models.Vec3) models.Vec3 {
	return models.Vec3{X: -v.X, Y: -v.Y, Z: v.Z}
}

func cross(a, b models.Vec3) models.Vec3 {
	return models.Vec3{
		X: a.Y*b.Z - a.Z*b.Y,
		Y: a.Z*b.X - a.X*b.Z,
		Z: a.X*b.Y - a.Y*b.X,
	}
}

func dot(a, b models.Vec3) float64 {
	return a.X*b.X + a.Y*b.Y + a.Z*b.Z
}
