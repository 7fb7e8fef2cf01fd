// Package segmentation holds the masks produced for a reference volume as
// named binary-labelmap segments, the way an image-analysis host keeps them
// in a segmentation node.
package segmentation

import (
	"fmt"

	"cylinderstats/internal/models"
)

// ReferenceGeometryAttribute names the attribute carrying the reference
// image geometry, see FormatReferenceGeometry.
const ReferenceGeometryAttribute = "referenceImageGeometryRef"

// Segment is one imported mask.
type Segment struct {
	ID   string
	Name string

	// Labelmap is the binary mask in its own (bounding-box) grid
	Labelmap *models.MaskVolume
}

// Segmentation is an ordered collection of segments sharing one reference
// geometry. It is not safe for concurrent mutation.
type Segmentation struct {
	Name string

	attributes map[string]string
	segments   []*Segment
	nextID     int
}

// New creates an empty segmentation tagged with the geometry of reference.
func New(name string, reference models.Grid) *Segmentation {
	s := &Segmentation{
		Name:       name,
		attributes: make(map[string]string),
	}
	s.SetAttribute(ReferenceGeometryAttribute, FormatReferenceGeometry(reference))
	return s
}

// SetAttribute stores a free-form string attribute.
func (s *Segmentation) SetAttribute(key, value string) {
	s.attributes[key] = value
}

// Attribute returns the attribute stored under key.
func (s *Segmentation) Attribute(key string) (string, bool) {
	v, ok := s.attributes[key]
	return v, ok
}

// ReferenceGeometry parses the reference geometry attribute.
func (s *Segmentation) ReferenceGeometry() (models.Grid, error) {
	v, ok := s.Attribute(ReferenceGeometryAttribute)
	if !ok {
		return models.Grid{}, fmt.Errorf("%w: segmentation %q has no %s attribute",
			models.ErrMissingInput, s.Name, ReferenceGeometryAttribute)
	}
	return ParseReferenceGeometry(v)
}

// AddMask imports mask as a new segment named after the mask and returns the
// generated segment ID. The mask is kept by reference.
func (s *Segmentation) AddMask(mask *models.MaskVolume) string {
	s.nextID++
	seg := &Segment{
		ID:       fmt.Sprintf("Segment_%d", s.nextID),
		Name:     mask.Name,
		Labelmap: mask,
	}
	s.segments = append(s.segments, seg)
	return seg.ID
}

// Segment looks a segment up by ID.
func (s *Segmentation) Segment(id string) (*Segment, bool) {
	for _, seg := range s.segments {
		if seg.ID == id {
			return seg, true
		}
	}
	return nil, false
}

// Segments returns the segments in insertion order.
func (s *Segmentation) Segments() []*Segment {
	out := make([]*Segment, len(s.segments))
	copy(out, s.segments)
	return out
}

// SegmentIDs returns the segment IDs in insertion order.
func (s *Segmentation) SegmentIDs() []string {
	ids := make([]string, len(s.segments))
	for i, seg := range s.segments {
		ids[i] = seg.ID
	}
	return ids
}
