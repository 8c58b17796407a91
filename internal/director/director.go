// Package director plans camera tours over a page: a full view, then each
// content block in reading order, then the full view again.
package director

import (
	"cmp"
	"image"
	"slices"

	"github.com/ivlev/framereel/internal/analyzer"
	"github.com/ivlev/framereel/internal/timeline"
)

// Director turns detected blocks into camera shots. Durations are frames.
type Director struct {
	Intro    int
	Outro    int
	MinDwell int
	MaxDwell int
	MaxZoom  float64
	Padding  float64 // share of the viewport a focused block may fill
	RowSlack int     // blocks whose tops differ by less are one row, in source pixels
}

func New(fps int) *Director {
	return &Director{
		Intro:    fps,
		Outro:    fps,
		MinDwell: fps,
		MaxDwell: fps * 3,
		MaxZoom:  3,
		Padding:  0.9,
		RowSlack: 20,
	}
}

// Plan detects the blocks of img and tours them over frames. A page with
// no blocks gets no shots, which is a still full view.
func (d *Director) Plan(det analyzer.Detector, img image.Image, frames int) ([]timeline.Shot, error) {
	blocks, err := det.Detect(img)
	if err != nil {
		return nil, err
	}
	return d.Shots(blocks, img.Bounds(), frames), nil
}

// Shots returns keyframes on local frames, strictly increasing, with focus
// points as fractions of page.
func (d *Director) Shots(blocks []analyzer.Block, page image.Rectangle, frames int) []timeline.Shot {
	if len(blocks) == 0 || page.Empty() {
		return nil
	}
	ordered := d.readingOrder(blocks)
	dwell := d.dwell(frames, len(ordered))

	shots := []timeline.Shot{{Frame: 0, Zoom: 1, X: 0.5, Y: 0.5}}
	at := max(d.Intro, 1)
	for _, b := range ordered {
		r := b.Rect.Sub(page.Min)
		shots = append(shots, timeline.Shot{
			Frame: at,
			Zoom:  d.zoom(b.Rect, page),
			X:     (float64(r.Min.X) + float64(r.Dx())/2) / float64(page.Dx()),
			Y:     (float64(r.Min.Y) + float64(r.Dy())/2) / float64(page.Dy()),
		})
		at += dwell
	}
	return append(shots, timeline.Shot{Frame: at, Zoom: 1, X: 0.5, Y: 0.5})
}

// readingOrder sorts top to bottom, then left to right within a row.
func (d *Director) readingOrder(blocks []analyzer.Block) []analyzer.Block {
	sorted := slices.Clone(blocks)
	slack := max(d.RowSlack, 1)
	slices.SortStableFunc(sorted, func(a, b analyzer.Block) int {
		if c := cmp.Compare(a.Rect.Min.Y/slack, b.Rect.Min.Y/slack); c != 0 {
			return c
		}
		return cmp.Compare(a.Rect.Min.X, b.Rect.Min.X)
	})
	return sorted
}

// dwell shares what is left after the intro and outro between the blocks.
func (d *Director) dwell(frames, blocks int) int {
	avail := frames - d.Intro - d.Outro
	if avail <= 0 {
		avail = frames
	}
	dwell := avail / blocks
	if d.MaxDwell > 0 {
		dwell = min(dwell, d.MaxDwell)
	}
	return max(dwell, d.MinDwell, 1)
}

// zoom fits the block into the padded viewport, within [1, MaxZoom].
func (d *Director) zoom(block, page image.Rectangle) float64 {
	if block.Dx() == 0 || block.Dy() == 0 {
		return 1
	}
	zx := float64(page.Dx()) * d.Padding / float64(block.Dx())
	zy := float64(page.Dy()) * d.Padding / float64(block.Dy())
	return max(1, min(zx, zy, d.MaxZoom))
}
