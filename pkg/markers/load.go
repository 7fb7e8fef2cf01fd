package markers

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/carbocation/pfx"

	"cylinderstats/internal/models"
	"cylinderstats/pkg/config"
)

var log = config.NamedLogger("markers")

const (
	extFCSV = ".fcsv"
	extJSON = ".mrk.json"
)

// IsMarkerFile reports whether path has a supported markups extension.
func IsMarkerFile(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasSuffix(lower, extFCSV) || strings.HasSuffix(lower, extJSON)
}

// Stem returns the marker name derived from a file name.
func Stem(path string) string {
	base := filepath.Base(path)
	lower := strings.ToLower(base)
	for _, ext := range []string{extJSON, extFCSV} {
		if strings.HasSuffix(lower, ext) {
			return base[:len(base)-len(ext)]
		}
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// LoadFile reads one markups file. The marker is named after the file.
func LoadFile(path string) (models.Marker, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.Marker{}, pfx.Err(err)
	}
	defer f.Close()

	name := Stem(path)
	if strings.HasSuffix(strings.ToLower(path), extJSON) {
		m, err := ParseMarkupsJSON(name, f)
		return m, pfx.Err(err)
	}
	m, err := ParseFCSV(name, f)
	return m, pfx.Err(err)
}

// LoadPath reads a markups file, or every markups file directly inside a
// directory in name order.
func LoadPath(path string) ([]models.Marker, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, pfx.Err(err)
	}
	if !info.IsDir() {
		m, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		return []models.Marker{m}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, pfx.Err(err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !IsMarkerFile(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(path, e.Name()))
	}
	sort.Strings(files)

	out := make([]models.Marker, 0, len(files))
	for _, file := range files {
		m, err := LoadFile(file)
		if err != nil {
			return nil, err
		}
		log.Debugf("Loaded marker %q with %d control points from %s", m.Name, len(m.ControlPoints), file)
		out = append(out, m)
	}
	return out, nil
}

// LoadPaths concatenates the markers of several paths.
func LoadPaths(paths []string) ([]models.Marker, error) {
	var out []models.Marker
	for _, p := range paths {
		m, err := LoadPath(p)
		if err != nil {
			return nil, fmt.Errorf("loading markers from %s: %w", p, err)
		}
		out = append(out, m...)
	}
	return out, nil
}
