// Package animation holds the frame-driven primitives every element is built
// on: piecewise-linear interpolation over breakpoints and a damped spring.
// Everything here is a pure function of its arguments.
package animation

import (
	"fmt"
	"math"
	"sort"
)

// Extrapolate selects what happens outside the breakpoint range.
type Extrapolate int

const (
	// Extend continues the slope of the outermost segment.
	Extend Extrapolate = iota
	// Clamp holds the outermost output value.
	Clamp
	// Identity returns the input frame unchanged.
	Identity
)

func (e Extrapolate) String() string {
	switch e {
	case Clamp:
		return "clamp"
	case Identity:
		return "identity"
	default:
		return "extend"
	}
}

// ParseExtrapolate maps a composition file value onto an Extrapolate mode.
func ParseExtrapolate(s string) (Extrapolate, error) {
	switch s {
	case "", "extend":
		return Extend, nil
	case "clamp":
		return Clamp, nil
	case "identity":
		return Identity, nil
	default:
		return Extend, fmt.Errorf("unknown extrapolation %q", s)
	}
}

// Options controls range policy and easing of an interpolation.
type Options struct {
	ExtrapolateLeft  Extrapolate
	ExtrapolateRight Extrapolate
	Easing           EasingFunc // nil means linear
}

// Clamped is the policy most elements use: hold both ends.
var Clamped = Options{ExtrapolateLeft: Clamp, ExtrapolateRight: Clamp}

// Interpolate maps frame through the piecewise-linear function defined by
// the parallel input/output breakpoints.
func Interpolate(frame float64, input, output []float64, opts Options) (float64, error) {
	if err := ValidateBreakpoints(input, output); err != nil {
		return 0, err
	}
	return interpolate(frame, input, output, opts), nil
}

// ValidateBreakpoints checks that input is strictly increasing, has at least
// two points and is as long as output, and that every value is finite.
func ValidateBreakpoints(input, output []float64) error {
	if len(input) != len(output) {
		return fmt.Errorf("%w: input has %d points, output has %d", ErrInvalidBreakpoints, len(input), len(output))
	}
	if len(input) < 2 {
		return fmt.Errorf("%w: need at least 2 points, got %d", ErrInvalidBreakpoints, len(input))
	}
	for i := range input {
		if !finite(input[i]) || !finite(output[i]) {
			return fmt.Errorf("%w: non-finite value at index %d", ErrInvalidBreakpoints, i)
		}
		if i > 0 && input[i] <= input[i-1] {
			return fmt.Errorf("%w: input must be strictly increasing (%g at %d after %g)",
				ErrInvalidBreakpoints, input[i], i, input[i-1])
		}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// interpolate assumes validated breakpoints.
func interpolate(frame float64, input, output []float64, opts Options) float64 {
	// Segment whose right edge is the first breakpoint above frame; frames
	// outside the range use the outermost segment.
	seg := sort.SearchFloat64s(input, frame)
	if seg < len(input) && input[seg] == frame {
		return output[seg]
	}
	if seg < 1 {
		seg = 1
	}
	if seg > len(input)-1 {
		seg = len(input) - 1
	}

	inMin, inMax := input[seg-1], input[seg]
	outMin, outMax := output[seg-1], output[seg]

	x := frame
	if x < inMin {
		switch opts.ExtrapolateLeft {
		case Identity:
			return x
		case Clamp:
			x = inMin
		}
	}
	if x > inMax {
		switch opts.ExtrapolateRight {
		case Identity:
			return x
		case Clamp:
			x = inMax
		}
	}

	if outMin == outMax {
		return outMin
	}

	t := (x - inMin) / (inMax - inMin)
	if opts.Easing != nil {
		t = opts.Easing(t)
	}
	return outMin + (outMax-outMin)*t
}

// Curve is a validated interpolation, built once while a composition is
// loaded and evaluated for every frame afterwards.
type Curve struct {
	input  []float64
	output []float64
	opts   Options
}

// NewCurve validates and copies the breakpoints.
func NewCurve(input, output []float64, opts Options) (*Curve, error) {
	if err := ValidateBreakpoints(input, output); err != nil {
		return nil, err
	}
	c := &Curve{
		input:  append([]float64(nil), input...),
		output: append([]float64(nil), output...),
		opts:   opts,
	}
	return c, nil
}

// MustCurve is NewCurve for breakpoints fixed in code.
func MustCurve(input, output []float64, opts Options) *Curve {
	c, err := NewCurve(input, output, opts)
	if err != nil {
		panic(err)
	}
	return c
}

// At evaluates the curve at frame.
func (c *Curve) At(frame float64) float64 {
	return interpolate(frame, c.input, c.output, c.opts)
}

// Span returns the first and last input breakpoints.
func (c *Curve) Span() (float64, float64) {
	return c.input[0], c.input[len(c.input)-1]
}

// FadeEnvelope builds the fade-in, hold, fade-out opacity curve used by most
// scenes. Degenerate lengths are widened by one frame so the breakpoints
// stay strictly increasing.
func FadeEnvelope(duration, fadeIn, fadeOut float64) *Curve {
	in := math.Max(fadeIn, 1)
	outStart := math.Max(duration-fadeOut, in+1)
	end := math.Max(duration, outStart+1)
	return MustCurve([]float64{0, in, outStart, end}, []float64{0, 1, 1, 0}, Clamped)
}
