package render

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/ivlev/framereel/internal/source"
	"github.com/ivlev/framereel/internal/timeline"
)

func testComposition() *timeline.Composition {
	return &timeline.Composition{
		FPS:        30,
		Width:      64,
		Height:     36,
		Duration:   60,
		Background: "#000000",
		Nodes: []*timeline.Node{
			{Name: "box", From: 10, Duration: timeline.Frames(20), Element: &timeline.Element{
				Type: "rect", X: 0, Y: 0, W: 8, H: 8, Color: "#ff0000",
			}},
			{Name: "fade", Element: &timeline.Element{
				Type: "rect", Effect: "fade-in", X: 40, Y: 20, W: 8, H: 8, Color: "#ff0000",
				Motion: timeline.Motion{Length: 10, Distance: 0.001},
			}},
			{Name: "scene", From: 40, Children: []*timeline.Node{
				{Name: "caption", Element: &timeline.Element{Type: "text", Text: "Hi", X: 30, Y: 0, Scale: 1}},
				{Name: "code", Element: &timeline.Element{Type: "qr", Text: "https://example.com", X: 0, Y: 0, W: 30, H: 30}},
				{Name: "chart", Element: &timeline.Element{
					Type: "bars", Effect: "bar-grow", X: 34, Y: 14, W: 30, H: 20, Color: "#00ff00",
					Bars: []timeline.Bar{{Label: "a", Value: 1}, {Label: "b", Value: 2, Highlight: true}},
				}},
			}},
		},
	}
}

func mustRenderer(t *testing.T, c *timeline.Composition, cache *source.Cache) *Renderer {
	t.Helper()
	r, err := New(c, cache)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return r
}

func snapshot(t *testing.T, r *Renderer, frame int) *image.RGBA {
	t.Helper()
	img, err := r.RenderFrame(frame)
	if err != nil {
		t.Fatalf("frame %d: %v", frame, err)
	}
	out := image.NewRGBA(img.Bounds())
	copy(out.Pix, img.Pix)
	r.Release(img)
	return out
}

func red(img *image.RGBA, x, y int) uint8 {
	return img.RGBAAt(x, y).R
}

func TestRenderFrameWindows(t *testing.T) {
	r := mustRenderer(t, testComposition(), nil)

	tests := []struct {
		frame int
		want  uint8
	}{
		{5, 0},
		{10, 255},
		{29, 255},
		{30, 0},
	}
	for _, tt := range tests {
		img := snapshot(t, r, tt.frame)
		if got := red(img, 2, 2); got != tt.want {
			t.Errorf("frame %d: expected red %d, got %d", tt.frame, tt.want, got)
		}
	}
}

func TestRenderFrameOpacity(t *testing.T) {
	r := mustRenderer(t, testComposition(), nil)
	img := snapshot(t, r, 5)
	if got := red(img, 44, 24); got < 120 || got > 135 {
		t.Errorf("expected half-faded red near 128, got %d", got)
	}
	img = snapshot(t, r, 0)
	if got := red(img, 44, 24); got != 0 {
		t.Errorf("expected invisible rect on frame 0, got %d", got)
	}
}

func TestRenderFrameNestedElements(t *testing.T) {
	r := mustRenderer(t, testComposition(), nil)
	before := snapshot(t, r, 39)
	after := snapshot(t, r, 59)

	lit := func(img *image.RGBA, rect image.Rectangle) int {
		n := 0
		for y := rect.Min.Y; y < rect.Max.Y; y++ {
			for x := rect.Min.X; x < rect.Max.X; x++ {
				c := img.RGBAAt(x, y)
				if c.R|c.G|c.B != 0 {
					n++
				}
			}
		}
		return n
	}

	text := image.Rect(30, 0, 64, 13)
	qr := image.Rect(0, 0, 30, 30)
	if lit(before, text) != 0 || lit(before, qr) != 0 {
		t.Errorf("scene children drawn before the scene starts")
	}
	if lit(after, text) == 0 {
		t.Errorf("expected caption pixels on frame 59")
	}
	if lit(after, qr) == 0 {
		t.Errorf("expected qr pixels on frame 59")
	}
	// Highlighted bar uses the accent color, not the element color.
	bar := after.RGBAAt(53, 33)
	if bar.R == 0 || bar == (color.RGBA{0, 255, 0, 255}) {
		t.Errorf("expected accent bar pixel, got %v", bar)
	}
}

func TestRenderFrameRandomAccess(t *testing.T) {
	r := mustRenderer(t, testComposition(), nil)
	first := snapshot(t, r, 45)
	for _, f := range []int{59, 3, 12, 0} {
		snapshot(t, r, f)
	}
	again := snapshot(t, r, 45)
	if !bytes.Equal(first.Pix, again.Pix) {
		t.Errorf("frame 45 differs after rendering other frames")
	}
}

func TestRenderFrameOutOfRange(t *testing.T) {
	r := mustRenderer(t, testComposition(), nil)
	for _, f := range []int{-1, 60} {
		if _, err := r.RenderFrame(f); !errors.Is(err, ErrFrameOutOfRange) {
			t.Errorf("frame %d: expected ErrFrameOutOfRange, got %v", f, err)
		}
	}
}

func TestRenderImageWithCache(t *testing.T) {
	dir := t.TempDir()
	src := image.NewRGBA(image.Rect(0, 0, 10, 10))
	for i := 0; i < len(src.Pix); i += 4 {
		src.Pix[i+1], src.Pix[i+3] = 255, 255
	}
	f, err := os.Create(filepath.Join(dir, "green.png"))
	if err != nil {
		t.Fatal(err)
	}
	png.Encode(f, src)
	f.Close()

	c := &timeline.Composition{FPS: 30, Width: 64, Height: 36, Duration: 10, Nodes: []*timeline.Node{
		{Name: "photo", Element: &timeline.Element{Type: "image", Src: "green.png", X: 40, Y: 10, W: 20, H: 20}},
	}}
	r := mustRenderer(t, c, source.NewCache(dir, 72))
	img := snapshot(t, r, 0)
	if g := img.RGBAAt(50, 20).G; g < 250 {
		t.Errorf("expected green photo pixel, got %v", img.RGBAAt(50, 20))
	}
	if g := img.RGBAAt(5, 5).G; g != 0 {
		t.Errorf("expected background outside the photo, got %v", img.RGBAAt(5, 5))
	}
}

func TestRenderDocumentTour(t *testing.T) {
	dir := t.TempDir()
	src := image.NewGray(image.Rect(0, 0, 200, 150))
	for i := range src.Pix {
		src.Pix[i] = 240
	}
	for y := 20; y < 60; y++ {
		for x := 20; x < 80; x++ {
			src.Pix[y*src.Stride+x] = 10
		}
	}
	f, err := os.Create(filepath.Join(dir, "page.png"))
	if err != nil {
		t.Fatal(err)
	}
	png.Encode(f, src)
	f.Close()

	c := &timeline.Composition{FPS: 30, Width: 64, Height: 36, Duration: 120, Nodes: []*timeline.Node{
		{Name: "page", Element: &timeline.Element{Type: "image", Src: "page.png", Tour: true}},
	}}
	r := mustRenderer(t, c, source.NewCache(dir, 72))

	dark := func(img *image.RGBA) int {
		n := 0
		for i := 0; i < len(img.Pix); i += 4 {
			if img.Pix[i] < 100 {
				n++
			}
		}
		return n
	}
	full, focused := dark(snapshot(t, r, 0)), dark(snapshot(t, r, 30))
	if focused <= full*2 {
		t.Errorf("expected the tour to zoom onto the block: %d dark pixels at frame 0, %d at frame 30", full, focused)
	}
}

func opacity(v float64) *float64 { return &v }

func TestRenderElementAlpha(t *testing.T) {
	tests := []struct {
		name   string
		alpha  *float64
		lo, hi uint8
	}{
		{"unset", nil, 255, 255},
		{"half", opacity(0.5), 120, 135},
		{"zero", opacity(0), 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &timeline.Composition{FPS: 30, Width: 16, Height: 16, Duration: 5, Background: "#000000", Nodes: []*timeline.Node{
				{Name: "box", Element: &timeline.Element{Type: "rect", W: 8, H: 8, Color: "#ff0000", Alpha: tt.alpha}},
			}}
			img := snapshot(t, mustRenderer(t, c, nil), 0)
			if got := red(img, 4, 4); got < tt.lo || got > tt.hi {
				t.Errorf("expected red in [%d, %d], got %d", tt.lo, tt.hi, got)
			}
		})
	}
}

func TestNewFailsFast(t *testing.T) {
	tests := []struct {
		name string
		el   *timeline.Element
	}{
		{"unknown type", &timeline.Element{Type: "video"}},
		{"bad color", &timeline.Element{Type: "rect", Color: "red"}},
		{"bad effect", &timeline.Element{Type: "rect", Effect: "wiggle"}},
		{"empty text", &timeline.Element{Type: "text"}},
		{"missing image", &timeline.Element{Type: "image", Src: "nope.png"}},
		{"alpha above one", &timeline.Element{Type: "rect", Alpha: opacity(1.5)}},
		{"bad camera", &timeline.Element{Type: "document", Src: "doc.pdf", Camera: []timeline.Shot{{Zoom: 0.1}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &timeline.Composition{FPS: 30, Width: 16, Height: 16, Duration: 10, Nodes: []*timeline.Node{
				{Name: "n", Element: tt.el},
			}}
			if _, err := New(c, source.NewCache(t.TempDir(), 72)); err == nil {
				t.Errorf("expected error")
			}
		})
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want color.RGBA
		ok   bool
	}{
		{"", color.RGBA{1, 2, 3, 4}, true},
		{"#102030", color.RGBA{0x10, 0x20, 0x30, 0xff}, true},
		{"ffffff80", color.RGBA{0x80, 0x80, 0x80, 0x80}, true},
		{"#12345", color.RGBA{}, false},
		{"#gggggg", color.RGBA{}, false},
	}
	for _, tt := range tests {
		got, err := parseColor(tt.in, color.RGBA{1, 2, 3, 4})
		if (err == nil) != tt.ok {
			t.Errorf("%q: unexpected error state %v", tt.in, err)
			continue
		}
		if tt.ok && got != tt.want {
			t.Errorf("%q: expected %v, got %v", tt.in, tt.want, got)
		}
	}
}
