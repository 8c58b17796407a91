package source

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"slices"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var imageExts = []string{".png", ".jpg", ".jpeg", ".webp", ".bmp", ".tif", ".tiff"}

func isImage(name string) bool {
	return slices.Contains(imageExts, strings.ToLower(filepath.Ext(name)))
}

// ImageSource pages over raster files: one file, or every image of a
// directory sorted by name.
type ImageSource struct {
	pages []string
}

func NewImageSource(path string) (*ImageSource, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !fi.IsDir() {
		return &ImageSource{pages: []string{path}}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	s := &ImageSource{}
	for _, e := range entries {
		if e.Type().IsRegular() && isImage(e.Name()) {
			s.pages = append(s.pages, filepath.Join(path, e.Name()))
		}
	}
	if len(s.pages) == 0 {
		return nil, fmt.Errorf("no images in %s", path)
	}
	slices.Sort(s.pages)
	return s, nil
}

func (s *ImageSource) PageCount() int {
	return len(s.pages)
}

// GetPageDimensions reads only the image header.
func (s *ImageSource) GetPageDimensions(index int) (float64, float64, error) {
	var cfg image.Config
	err := s.read(index, func(f *os.File) (err error) {
		cfg, _, err = image.DecodeConfig(f)
		return err
	})
	return float64(cfg.Width), float64(cfg.Height), err
}

// RenderPage decodes the file at its native size; dpi only applies to PDFs.
func (s *ImageSource) RenderPage(index int, _ int) (image.Image, error) {
	var img image.Image
	err := s.read(index, func(f *os.File) (err error) {
		img, _, err = image.Decode(f)
		return err
	})
	return img, err
}

func (s *ImageSource) read(index int, fn func(*os.File) error) error {
	if err := checkPage(index, len(s.pages)); err != nil {
		return err
	}
	f, err := os.Open(s.pages[index])
	if err != nil {
		return err
	}
	defer f.Close()
	if err := fn(f); err != nil {
		return fmt.Errorf("decode %s: %w", s.pages[index], err)
	}
	return nil
}

func (s *ImageSource) Close() error {
	return nil
}
