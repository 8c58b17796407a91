// Package analyzer finds the regions of a page that hold content, so the
// camera can tour them.
package analyzer

import (
	"fmt"
	"image"
)

// Block is a detected content region in source pixels.
type Block struct {
	Rect       image.Rectangle
	Confidence float64 // 0.0-1.0
}

type Detector interface {
	Detect(img image.Image) ([]Block, error)
}

// NewDetector returns the detector for a variant name.
func NewDetector(variant string) (Detector, error) {
	switch variant {
	case "contrast", "":
		return NewContrastDetector(), nil
	default:
		return nil, fmt.Errorf("unknown detector variant: %s", variant)
	}
}
