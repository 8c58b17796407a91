package effects

import (
	"fmt"

	"github.com/ivlev/framereel/internal/animation"
	"github.com/ivlev/framereel/internal/timeline"
)

// CameraState is where the camera looks on a frame: the focus point as a
// fraction of the source bitmap and the zoom factor (1 = whole bitmap).
type CameraState struct {
	X    float64
	Y    float64
	Zoom float64
}

// Full is the camera showing the whole source.
var Full = CameraState{X: 0.5, Y: 0.5, Zoom: 1}

// CameraPath moves between shots with ease-in-out-cubic on every segment
// and holds the first and last shot outside the keyed range.
type CameraPath struct {
	x, y, zoom *animation.Curve
	still      CameraState
}

// NewCameraPath validates the shots. An empty list is a static full view.
func NewCameraPath(shots []timeline.Shot) (*CameraPath, error) {
	if len(shots) == 0 {
		return &CameraPath{still: Full}, nil
	}

	frames := make([]float64, len(shots))
	xs := make([]float64, len(shots))
	ys := make([]float64, len(shots))
	zs := make([]float64, len(shots))
	for i, s := range shots {
		zoom := s.Zoom
		if zoom == 0 {
			zoom = 1
		}
		if zoom < 1 {
			return nil, fmt.Errorf("shot %d: zoom %g below 1", i, s.Zoom)
		}
		if s.X < 0 || s.X > 1 || s.Y < 0 || s.Y > 1 {
			return nil, fmt.Errorf("shot %d: focus (%g, %g) outside the source", i, s.X, s.Y)
		}
		frames[i], xs[i], ys[i], zs[i] = float64(s.Frame), s.X, s.Y, zoom
	}

	if len(shots) == 1 {
		return &CameraPath{still: CameraState{X: xs[0], Y: ys[0], Zoom: zs[0]}}, nil
	}

	opts := animation.Options{
		ExtrapolateLeft:  animation.Clamp,
		ExtrapolateRight: animation.Clamp,
		Easing:           animation.EaseInOutCubic,
	}
	p := &CameraPath{}
	var err error
	if p.x, err = animation.NewCurve(frames, xs, opts); err != nil {
		return nil, fmt.Errorf("camera: %w", err)
	}
	p.y = animation.MustCurve(frames, ys, opts)
	p.zoom = animation.MustCurve(frames, zs, opts)
	return p, nil
}

// At returns the camera on a local frame.
func (p *CameraPath) At(frame int) CameraState {
	if p.x == nil {
		return p.still
	}
	f := float64(frame)
	return CameraState{X: p.x.At(f), Y: p.y.At(f), Zoom: p.zoom.At(f)}
}

// Viewport is the source rectangle the camera sees on a w x h bitmap, kept
// inside the bitmap.
func (c CameraState) Viewport(w, h int) (x0, y0, vw, vh float64) {
	vw = float64(w) / c.Zoom
	vh = float64(h) / c.Zoom
	x0 = c.X*float64(w) - vw/2
	y0 = c.Y*float64(h) - vh/2
	x0 = clamp(x0, 0, float64(w)-vw)
	y0 = clamp(y0, 0, float64(h)-vh)
	return x0, y0, vw, vh
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
