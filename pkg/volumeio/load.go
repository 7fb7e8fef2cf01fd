// Package volumeio loads reference intensity volumes from NIfTI files and
// DICOM series into world-placed (RAS) voxel grids.
package volumeio

import (
	"fmt"
	"os"
	"strings"

	"github.com/carbocation/pfx"

	"cylinderstats/internal/models"
	"cylinderstats/pkg/config"
)

var log = config.NamedLogger("volumeio")

// Load reads a volume from a .nii/.nii.gz file or a directory holding a
// DICOM series.
func Load(path string) (*models.Volume, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, pfx.Err(err)
	}
	if info.IsDir() {
		return LoadDICOMSeries(path)
	}

	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, ".nii") || strings.HasSuffix(lower, ".nii.gz") {
		return LoadNIfTI(path)
	}
	return nil, fmt.Errorf("%w: unsupported volume format %s", models.ErrInvalidParameter, path)
}
