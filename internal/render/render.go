// Package render rasterizes a composition one frame at a time. A frame is a
// pure function of its number: the renderer keeps no state between frames,
// so segments can be rendered by any worker in any order.
package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/skip2/go-qrcode"
	"golang.org/x/image/draw"

	"github.com/ivlev/framereel/internal/analyzer"
	"github.com/ivlev/framereel/internal/director"
	"github.com/ivlev/framereel/internal/effects"
	"github.com/ivlev/framereel/internal/source"
	"github.com/ivlev/framereel/internal/system"
	"github.com/ivlev/framereel/internal/timeline"
)

var ErrFrameOutOfRange = errors.New("frame out of range")

// element is a node's visual payload compiled for drawing.
type element struct {
	el     *timeline.Element
	effect effects.Effect
	camera *effects.CameraPath
	steam  *effects.SteamField
	bitmap image.Image // qr code, or the decoded page for image/document
	text   *image.RGBA // full text, pre-rendered
	color  color.RGBA
	accent color.RGBA
}

type Renderer struct {
	comp       *timeline.Composition
	background color.RGBA
	elements   map[*timeline.Node]*element
}

// New compiles every element of the composition, decoding assets through
// cache. Bad effect parameters, colors and missing assets fail here, not
// halfway through a render.
func New(comp *timeline.Composition, cache *source.Cache) (*Renderer, error) {
	if err := comp.Validate(); err != nil {
		return nil, err
	}
	bg, err := parseColor(comp.Background, color.RGBA{0, 0, 0, 255})
	if err != nil {
		return nil, fmt.Errorf("background: %w", err)
	}
	r := &Renderer{comp: comp, background: bg, elements: make(map[*timeline.Node]*element)}

	for _, span := range comp.Flatten() {
		if span.Node.Element == nil {
			continue
		}
		e, err := r.compile(span.Node, cache)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", span.Path, err)
		}
		r.elements[span.Node] = e
	}
	return r, nil
}

func (r *Renderer) compile(n *timeline.Node, cache *source.Cache) (*element, error) {
	el := n.Element
	eff, err := effects.New(el.Effect, effects.Spec{Motion: el.Motion, Duration: n.Duration, FPS: r.comp.FPS})
	if err != nil {
		return nil, err
	}
	e := &element{el: el, effect: eff}

	if e.color, err = parseColor(el.Color, color.RGBA{255, 255, 255, 255}); err != nil {
		return nil, err
	}
	if a := el.Alpha; a != nil && !(*a >= 0 && *a <= 1) {
		return nil, fmt.Errorf("alpha %g outside [0, 1]", *a)
	}
	e.accent = color.RGBA{0xf5, 0x9e, 0x0b, 0xff}

	switch el.Type {
	case "rect":
	case "text":
		if el.Text == "" {
			return nil, fmt.Errorf("text element has no text")
		}
		e.text = textImage(el.Text, e.color)
	case "image", "document":
		if el.Src == "" {
			return nil, fmt.Errorf("%s element has no src", el.Type)
		}
		if cache == nil {
			return nil, fmt.Errorf("%s element needs an asset cache", el.Type)
		}
		if e.bitmap, err = cache.Page(el.Src, el.Page); err != nil {
			return nil, err
		}
		shots := el.Camera
		if len(shots) == 0 && el.Tour {
			frames := r.comp.Duration
			if n.Duration != nil {
				frames = *n.Duration
			}
			if shots, err = director.New(r.comp.FPS).Plan(analyzer.NewContrastDetector(), e.bitmap, frames); err != nil {
				return nil, fmt.Errorf("camera tour: %w", err)
			}
		}
		if e.camera, err = effects.NewCameraPath(shots); err != nil {
			return nil, err
		}
	case "qr":
		if el.Text == "" {
			return nil, fmt.Errorf("qr element has no text")
		}
		q, err := qrcode.New(el.Text, qrcode.Medium)
		if err != nil {
			return nil, err
		}
		q.ForegroundColor = color.Black
		q.BackgroundColor = color.White
		e.bitmap = q.Image(max(el.W, el.H, 64))
	case "bars":
		if len(el.Bars) == 0 {
			return nil, fmt.Errorf("bars element has no bars")
		}
	case "particles":
		w, h := r.size(el)
		e.steam = effects.NewSteamField(w, h, el.Count, el.Seed)
	default:
		return nil, fmt.Errorf("unknown element type %q", el.Type)
	}
	return e, nil
}

// size is the element's box, the whole canvas when unset.
func (r *Renderer) size(el *timeline.Element) (int, int) {
	w, h := el.W, el.H
	if w <= 0 {
		w = r.comp.Width
	}
	if h <= 0 {
		h = r.comp.Height
	}
	return w, h
}

// Bounds is the frame size.
func (r *Renderer) Bounds() image.Rectangle {
	return image.Rect(0, 0, r.comp.Width, r.comp.Height)
}

// RenderFrame draws the frame into a pooled buffer. Hand it back with
// Release once it has been written out.
func (r *Renderer) RenderFrame(frame int) (*image.RGBA, error) {
	if frame < 0 || frame >= r.comp.Duration {
		return nil, fmt.Errorf("%w: %d not in [0, %d)", ErrFrameOutOfRange, frame, r.comp.Duration)
	}
	img := system.GetImage(r.Bounds())
	draw.Draw(img, img.Bounds(), image.NewUniform(r.background), image.Point{}, draw.Src)

	for _, a := range r.comp.ActiveAt(frame) {
		e, ok := r.elements[a.Node]
		if !ok {
			continue
		}
		r.drawElement(img, e, a.LocalFrame)
	}
	return img, nil
}

// Release returns a frame from RenderFrame to the pool.
func (r *Renderer) Release(img *image.RGBA) {
	system.PutImage(img)
}

func (r *Renderer) drawElement(dst *image.RGBA, e *element, local int) {
	el := e.el
	base := 1.0
	if el.Alpha != nil {
		base = *el.Alpha
	}

	if el.Type == "bars" {
		r.drawBars(dst, e, local, base)
		return
	}

	s, present := e.effect.Evaluate(local, 0)
	if !present {
		return
	}
	opacity := s.Opacity * base
	if opacity <= 0 {
		return
	}
	w, h := r.size(el)

	switch el.Type {
	case "rect":
		box := place(el.X, el.Y, w, h, s)
		box.Max.X = box.Min.X + int(float64(box.Dx())*clamp01(s.Progress))
		fill(dst, box, e.color, opacity)
		if s.RingAlpha > 0 {
			cx, cy := center(box)
			radius := float64(min(w, h)) / 2 * s.RingScale
			ring(dst, cx, cy, radius, 3, e.color, s.RingAlpha*base)
		}
	case "text":
		src := e.text
		if s.Chars >= 0 {
			src = typed(el.Text, s.Chars, s.Cursor, e.color)
		}
		scale := el.Scale
		if scale <= 0 {
			scale = 2
		}
		b := src.Bounds()
		box := place(el.X, el.Y, b.Dx()*scale, b.Dy()*scale, s)
		composite(dst, box, src, b, opacity, draw.NearestNeighbor)
	case "image", "document":
		sb := e.bitmap.Bounds()
		x0, y0, vw, vh := e.camera.At(local).Viewport(sb.Dx(), sb.Dy())
		sr := image.Rect(int(x0), int(y0), int(x0+vw), int(y0+vh)).Add(sb.Min)
		var scaler draw.Interpolator = draw.ApproxBiLinear
		if el.Type == "document" {
			scaler = draw.CatmullRom
		}
		composite(dst, place(el.X, el.Y, w, h, s), e.bitmap, sr, opacity, scaler)
	case "qr":
		composite(dst, place(el.X, el.Y, w, h, s), e.bitmap, e.bitmap.Bounds(), opacity, draw.NearestNeighbor)
	case "particles":
		for _, p := range e.steam.At(local) {
			a := p.Opacity * opacity
			if a <= 0 {
				continue
			}
			disc(dst, float64(el.X)+p.X+s.TranslateX, float64(el.Y)+p.Y+s.TranslateY, p.Size/2, e.color, a)
		}
	}
}

// drawBars lays the bars out left to right in the element box, each grown
// from the baseline by its own staggered style.
func (r *Renderer) drawBars(dst *image.RGBA, e *element, local int, base float64) {
	el := e.el
	w, h := r.size(el)
	peak := 0.0
	for _, b := range el.Bars {
		peak = max(peak, b.Value)
	}
	if peak <= 0 {
		return
	}

	slot := w / len(el.Bars)
	gap := slot / 5
	for i, b := range el.Bars {
		s, present := e.effect.Evaluate(local, i)
		if !present || s.Opacity*base <= 0 {
			continue
		}
		height := int(float64(h) * b.Value / peak * max(s.Progress, 0))
		x := el.X + i*slot + gap/2 + int(s.TranslateX)
		bottom := el.Y + h + int(s.TranslateY)
		col := e.color
		if b.Highlight {
			col = e.accent
		}
		fill(dst, image.Rect(x, bottom-height, x+slot-gap, bottom), col, s.Opacity*base)

		if b.Label != "" {
			label := textImage(b.Label, e.color)
			lb := label.Bounds()
			at := image.Rect(x, bottom+4, x+lb.Dx(), bottom+4+lb.Dy())
			composite(dst, at, label, lb, s.Opacity*base, draw.NearestNeighbor)
		}
	}
}

// typed renders the first n runes of text, with a cursor bar while it blinks on.
func typed(text string, n int, cursor bool, col color.RGBA) *image.RGBA {
	runes := []rune(text)
	if n > len(runes) {
		n = len(runes)
	}
	shown := string(runes[:n])
	if cursor {
		shown += "|"
	}
	if shown == "" {
		shown = " "
	}
	return textImage(shown, col)
}

func parseColor(s string, def color.RGBA) (color.RGBA, error) {
	if s == "" {
		return def, nil
	}
	hex := strings.TrimPrefix(s, "#")
	c := color.RGBA{A: 255}
	var err error
	switch len(hex) {
	case 6:
		_, err = fmt.Sscanf(hex, "%02x%02x%02x", &c.R, &c.G, &c.B)
	case 8:
		_, err = fmt.Sscanf(hex, "%02x%02x%02x%02x", &c.R, &c.G, &c.B, &c.A)
		// color.RGBA is alpha-premultiplied
		c.R = uint8(uint16(c.R) * uint16(c.A) / 255)
		c.G = uint8(uint16(c.G) * uint16(c.A) / 255)
		c.B = uint8(uint16(c.B) * uint16(c.A) / 255)
	default:
		err = fmt.Errorf("want #rrggbb or #rrggbbaa")
	}
	if err != nil {
		return def, fmt.Errorf("bad color %q: %v", s, err)
	}
	return c, nil
}
