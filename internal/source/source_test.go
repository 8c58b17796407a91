package source

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"golang.org/x/image/bmp"
)

func writePNG(t *testing.T, path string, w, h int, c color.Color) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func TestImageSourceDirectory(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "b.png"), 4, 2, color.White)
	writePNG(t, filepath.Join(dir, "a.png"), 8, 6, color.Black)
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644)

	src, err := NewImageSource(dir)
	if err != nil {
		t.Fatal(err)
	}
	if src.PageCount() != 2 {
		t.Fatalf("expected 2 pages, got %d", src.PageCount())
	}
	w, h, err := src.GetPageDimensions(0)
	if err != nil || w != 8 || h != 6 {
		t.Errorf("expected a.png first (8x6), got %gx%g %v", w, h, err)
	}
	if _, err := src.RenderPage(2, 0); err == nil {
		t.Errorf("expected out of range error")
	}
}

func TestOpenDecodesBMP(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.BMP")
	img := image.NewRGBA(image.Rect(0, 0, 5, 3))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	img.Set(4, 2, color.RGBA{0, 0, 255, 255})
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := bmp.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	f.Close()

	src, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer src.Close()
	page, err := src.RenderPage(0, 72)
	if err != nil {
		t.Fatalf("RenderPage failed: %v", err)
	}
	if b := page.Bounds(); b.Dx() != 5 || b.Dy() != 3 {
		t.Errorf("expected 5x3, got %v", b)
	}
	if r, _, bl, _ := page.At(4, 2).RGBA(); r != 0 || bl>>8 != 255 {
		t.Errorf("expected blue corner pixel, got %v", page.At(4, 2))
	}
}

func TestOpenRejectsUnknownType(t *testing.T) {
	if _, err := Open("clip.mov"); err == nil {
		t.Errorf("expected error")
	}
}

func TestCacheDecodesOnce(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "logo.png"), 3, 3, color.RGBA{255, 0, 0, 255})
	c := NewCache(dir, 0)

	var wg sync.WaitGroup
	imgs := make([]image.Image, 16)
	for i := range imgs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			img, err := c.Page("logo.png", 0)
			if err != nil {
				t.Error(err)
				return
			}
			imgs[i] = img
		}(i)
	}
	wg.Wait()

	if c.Len() != 1 {
		t.Errorf("expected 1 cached page, got %d", c.Len())
	}
	for i := range imgs {
		if imgs[i] != imgs[0] {
			t.Fatalf("worker %d got a different image", i)
		}
	}
	r, _, _, _ := imgs[0].At(1, 1).RGBA()
	if r>>8 != 255 {
		t.Errorf("unexpected pixel %v", imgs[0].At(1, 1))
	}
}

func TestCacheMissingFile(t *testing.T) {
	c := NewCache(t.TempDir(), 72)
	if _, err := c.Page("missing.png", 0); err == nil {
		t.Errorf("expected error")
	}
}
