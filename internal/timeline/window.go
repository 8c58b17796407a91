// Package timeline resolves a static tree of nested activation windows
// against a single frame. Nothing here is stateful: the active set for a
// frame is recomputed from the tree every time it is asked for.
package timeline

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrInvalidWindow      = errors.New("invalid window")
	ErrInvalidComposition = errors.New("invalid composition")
)

// ResolveLocalFrame re-bases a global frame onto a subtree whose ancestors
// start at the given offsets.
func ResolveLocalFrame(globalFrame int, ancestorOffsets []int) int {
	local := globalFrame
	for _, off := range ancestorOffsets {
		local -= off
	}
	return local
}

// IsActive reports whether globalFrame falls in [resolvedStart,
// resolvedStart+duration). A nil duration never ends.
func IsActive(globalFrame, resolvedStart int, duration *int) bool {
	if globalFrame < resolvedStart {
		return false
	}
	return duration == nil || globalFrame < resolvedStart+*duration
}

// Window is a half-open frame interval; Duration nil means open-ended.
type Window struct {
	Start    int
	Duration *int
}

// NewWindow returns a validated window.
func NewWindow(start int, duration *int) (Window, error) {
	if duration != nil && *duration < 0 {
		return Window{}, fmt.Errorf("%w: negative duration %d", ErrInvalidWindow, *duration)
	}
	return Window{Start: start, Duration: duration}, nil
}

// Frames is a helper for literal durations.
func Frames(n int) *int {
	return &n
}

// Contains applies the half-open rule: Start <= frame < Start+Duration.
func (w Window) Contains(frame int) bool {
	return IsActive(frame, w.Start, w.Duration)
}

// End returns the first frame after the window; ok is false when open-ended.
func (w Window) End() (end int, ok bool) {
	if w.Duration == nil {
		return math.MaxInt, false
	}
	return w.Start + *w.Duration, true
}

// Empty reports a window no frame can fall in.
func (w Window) Empty() bool {
	return w.Duration != nil && *w.Duration <= 0
}

// Intersect returns the overlap of two windows and whether it is non-empty.
func (w Window) Intersect(o Window) (Window, bool) {
	start := max(w.Start, o.Start)
	wEnd, wBounded := w.End()
	oEnd, oBounded := o.End()
	if !wBounded && !oBounded {
		return Window{Start: start}, true
	}
	end := min(wEnd, oEnd)
	if end <= start {
		return Window{Start: start, Duration: Frames(0)}, false
	}
	return Window{Start: start, Duration: Frames(end - start)}, true
}

func (w Window) String() string {
	if end, ok := w.End(); ok {
		return fmt.Sprintf("[%d, %d)", w.Start, end)
	}
	return fmt.Sprintf("[%d, ∞)", w.Start)
}

// SecondsToFrames rounds a duration in seconds to whole frames.
func SecondsToFrames(seconds float64, fps int) int {
	return int(math.Round(seconds * float64(fps)))
}

// FramesToSeconds converts a frame count to seconds at fps.
func FramesToSeconds(frames, fps int) float64 {
	return float64(frames) / float64(fps)
}
