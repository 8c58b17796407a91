package analyzer

import (
	"image"
	"math"

	"golang.org/x/image/draw"
)

// ContrastDetector finds blocks as connected clusters of strong edges
// (Sobel gradient, then dilation so the edges of one paragraph merge).
type ContrastDetector struct {
	MinBlockArea  int     // in source pixels
	EdgeThreshold float64 // gradient magnitude
	MaxSide       int     // pages are downscaled to this before analysis
	Dilate        int     // dilation radius in analysis pixels
}

func NewContrastDetector() *ContrastDetector {
	return &ContrastDetector{
		MinBlockArea:  500,
		EdgeThreshold: 30,
		MaxSide:       480,
		Dilate:        2,
	}
}

func (d *ContrastDetector) Detect(img image.Image) ([]Block, error) {
	src := img.Bounds()
	if src.Empty() {
		return nil, nil
	}
	gray, scale := d.grayscale(img)
	w, h := gray.Rect.Dx(), gray.Rect.Dy()

	mask := sobel(gray, d.EdgeThreshold)
	for i := 0; i < 2; i++ {
		mask = dilate(mask, w, h, d.Dilate)
	}

	var blocks []Block
	for _, r := range components(mask, w, h) {
		// back to source pixels
		rect := image.Rect(
			int(float64(r.Min.X)*scale), int(float64(r.Min.Y)*scale),
			int(math.Ceil(float64(r.Max.X)*scale)), int(math.Ceil(float64(r.Max.Y)*scale)),
		).Add(src.Min).Intersect(src)
		if rect.Dx()*rect.Dy() < d.MinBlockArea {
			continue
		}
		blocks = append(blocks, Block{Rect: rect, Confidence: 0.7})
	}
	return blocks, nil
}

// grayscale returns the page as 8-bit luma, no larger than MaxSide on
// either axis, and the factor from analysis to source pixels.
func (d *ContrastDetector) grayscale(img image.Image) (*image.Gray, float64) {
	b := img.Bounds()
	scale := 1.0
	if side := max(b.Dx(), b.Dy()); d.MaxSide > 0 && side > d.MaxSide {
		scale = float64(side) / float64(d.MaxSide)
	}
	w := max(1, int(float64(b.Dx())/scale))
	h := max(1, int(float64(b.Dy())/scale))
	gray := image.NewGray(image.Rect(0, 0, w, h))
	if scale == 1 {
		draw.Draw(gray, gray.Rect, img, b.Min, draw.Src)
	} else {
		draw.ApproxBiLinear.Scale(gray, gray.Rect, img, b, draw.Src, nil)
	}
	return gray, float64(b.Dx()) / float64(w)
}

// sobel marks pixels whose gradient magnitude exceeds threshold. The
// outermost ring is never marked.
func sobel(gray *image.Gray, threshold float64) []bool {
	w, h := gray.Rect.Dx(), gray.Rect.Dy()
	out := make([]bool, w*h)
	at := func(x, y int) float64 { return float64(gray.Pix[y*gray.Stride+x]) }
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			gx := -at(x-1, y-1) + at(x+1, y-1) - 2*at(x-1, y) + 2*at(x+1, y) - at(x-1, y+1) + at(x+1, y+1)
			gy := -at(x-1, y-1) - 2*at(x, y-1) - at(x+1, y-1) + at(x-1, y+1) + 2*at(x, y+1) + at(x+1, y+1)
			out[y*w+x] = math.Hypot(gx, gy) > threshold
		}
	}
	return out
}

// dilate grows the mask by a square of the given radius.
func dilate(mask []bool, w, h, radius int) []bool {
	if radius <= 0 {
		return mask
	}
	out := make([]bool, len(mask))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !mask[y*w+x] {
				continue
			}
			for yy := max(0, y-radius); yy <= min(h-1, y+radius); yy++ {
				for xx := max(0, x-radius); xx <= min(w-1, x+radius); xx++ {
					out[yy*w+xx] = true
				}
			}
		}
	}
	return out
}

// components returns the bounding box of every 4-connected set region.
func components(mask []bool, w, h int) []image.Rectangle {
	seen := make([]bool, len(mask))
	var out []image.Rectangle
	var stack []int
	for start := range mask {
		if !mask[start] || seen[start] {
			continue
		}
		r := image.Rect(start%w, start/w, start%w+1, start/w+1)
		seen[start] = true
		stack = append(stack[:0], start)
		for len(stack) > 0 {
			i := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			x, y := i%w, i/w
			r = r.Union(image.Rect(x, y, x+1, y+1))
			for _, n := range [4]int{i - 1, i + 1, i - w, i + w} {
				switch {
				case n < 0 || n >= len(mask):
					continue
				case n == i-1 && x == 0, n == i+1 && x == w-1:
					continue
				}
				if mask[n] && !seen[n] {
					seen[n] = true
					stack = append(stack, n)
				}
			}
		}
		out = append(out, r)
	}
	return out
}
