package config

// Config is one render invocation, filled from flags in cmd.
type Config struct {
	CompositionPath string
	AssetsDir       string // relative asset paths resolve here; defaults to the composition's dir
	OutputVideo     string
	Workers         int
	SegmentFrames   int // frames per encoded segment
	DPI             int // PDF page rasterization
	VideoEncoder    string
	Quality         int
	ShowStats       bool
	HistoryPath     string // empty disables run history
	BuildVersion    string
}

// SegmentParams describes one contiguous run of frames encoded to its own
// file.
type SegmentParams struct {
	Index         int
	First         int // absolute frame
	Count         int
	Width, Height int
	FPS           int
}

// Last is the absolute frame after the segment.
func (p SegmentParams) Last() int {
	return p.First + p.Count
}

// Segments splits [0, total) into runs of at most size frames.
func Segments(total, size, width, height, fps int) []SegmentParams {
	if size <= 0 {
		size = total
	}
	var out []SegmentParams
	for first := 0; first < total; first += size {
		out = append(out, SegmentParams{
			Index:  len(out),
			First:  first,
			Count:  min(size, total-first),
			Width:  width,
			Height: height,
			FPS:    fps,
		})
	}
	return out
}
