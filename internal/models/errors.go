package models

import "errors"

var (
	// ErrInvalidParameter reports non-positive or otherwise unusable
	// geometric input.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrGridMismatch reports volumes that do not share voxel addressing.
	ErrGridMismatch = errors.New("grid mismatch")

	// ErrMissingInput reports that a required volume or segmentation was
	// not supplied.
	ErrMissingInput = errors.New("missing input")
)
