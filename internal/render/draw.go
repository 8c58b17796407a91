package render

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/ivlev/framereel/internal/effects"
)

// place positions a w x h box at (x, y), scaled about its center and then
// translated by the style.
func place(x, y, w, h int, s effects.Style) image.Rectangle {
	cw := float64(w) * s.Scale
	ch := float64(h) * s.Scale
	cx := float64(x) + float64(w)/2 + s.TranslateX
	cy := float64(y) + float64(h)/2 + s.TranslateY
	return image.Rect(
		int(math.Round(cx-cw/2)), int(math.Round(cy-ch/2)),
		int(math.Round(cx+cw/2)), int(math.Round(cy+ch/2)),
	)
}

func center(r image.Rectangle) (float64, float64) {
	return float64(r.Min.X+r.Max.X) / 2, float64(r.Min.Y+r.Max.Y) / 2
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func alphaMask(opacity float64) *image.Uniform {
	return image.NewUniform(color.Alpha{A: uint8(math.Round(clamp01(opacity) * 255))})
}

// fill paints r with col at the given opacity.
func fill(dst draw.Image, r image.Rectangle, col color.RGBA, opacity float64) {
	if r.Empty() {
		return
	}
	draw.DrawMask(dst, r, image.NewUniform(col), image.Point{}, alphaMask(opacity), image.Point{}, draw.Over)
}

// composite scales sr of src into dr of dst and blends it at opacity.
func composite(dst draw.Image, dr image.Rectangle, src image.Image, sr image.Rectangle, opacity float64, scaler draw.Interpolator) {
	if dr.Empty() || sr.Empty() || dr.Intersect(dst.Bounds()).Empty() {
		return
	}
	if dr.Size() == sr.Size() {
		draw.DrawMask(dst, dr, src, sr.Min, alphaMask(opacity), image.Point{}, draw.Over)
		return
	}
	scaled := image.NewRGBA(image.Rect(0, 0, dr.Dx(), dr.Dy()))
	scaler.Scale(scaled, scaled.Bounds(), src, sr, draw.Src, nil)
	draw.DrawMask(dst, dr, scaled, image.Point{}, alphaMask(opacity), image.Point{}, draw.Over)
}

// circle is an alpha mask: inside the annulus [inner, outer] around
// (cx, cy) it is a, elsewhere transparent.
type circle struct {
	cx, cy       float64
	inner, outer float64
	a            uint8
}

func (c *circle) ColorModel() color.Model { return color.AlphaModel }

func (c *circle) Bounds() image.Rectangle {
	return image.Rect(
		int(math.Floor(c.cx-c.outer)), int(math.Floor(c.cy-c.outer)),
		int(math.Ceil(c.cx+c.outer))+1, int(math.Ceil(c.cy+c.outer))+1,
	)
}

func (c *circle) At(x, y int) color.Color {
	dx := float64(x) + 0.5 - c.cx
	dy := float64(y) + 0.5 - c.cy
	d := math.Hypot(dx, dy)
	if d <= c.outer && d >= c.inner {
		return color.Alpha{A: c.a}
	}
	return color.Alpha{}
}

func disc(dst draw.Image, cx, cy, radius float64, col color.RGBA, opacity float64) {
	if radius <= 0 {
		return
	}
	m := &circle{cx: cx, cy: cy, outer: radius, a: uint8(math.Round(clamp01(opacity) * 255))}
	draw.DrawMask(dst, m.Bounds(), image.NewUniform(col), image.Point{}, m, m.Bounds().Min, draw.Over)
}

func ring(dst draw.Image, cx, cy, radius, thickness float64, col color.RGBA, opacity float64) {
	if radius <= 0 {
		return
	}
	m := &circle{cx: cx, cy: cy, inner: math.Max(0, radius-thickness), outer: radius, a: uint8(math.Round(clamp01(opacity) * 255))}
	draw.DrawMask(dst, m.Bounds(), image.NewUniform(col), image.Point{}, m, m.Bounds().Min, draw.Over)
}

// textImage draws text, one line per '\n', in the 7x13 bitmap face on a
// transparent background.
func textImage(text string, col color.Color) *image.RGBA {
	face := basicfont.Face7x13
	lines := splitLines(text)
	w := 1
	for _, l := range lines {
		w = max(w, font.MeasureString(face, l).Ceil())
	}
	img := image.NewRGBA(image.Rect(0, 0, w, face.Height*len(lines)))
	d := &font.Drawer{Dst: img, Src: image.NewUniform(col), Face: face}
	for i, l := range lines {
		d.Dot = fixed.P(0, face.Ascent+i*face.Height)
		d.DrawString(l)
	}
	return img
}

func splitLines(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	return append(out, s[start:])
}
