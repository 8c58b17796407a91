package animation

import (
	"errors"
	"math"
	"testing"
)

func TestInterpolateEndpoints(t *testing.T) {
	ranges := []struct {
		in  []float64
		out []float64
	}{
		{[]float64{0, 10}, []float64{0, 1}},
		{[]float64{-20, 3}, []float64{5, -5}},
		{[]float64{100, 100.5}, []float64{1, 1}},
		{[]float64{7, 1000}, []float64{-40, 0}},
	}
	policies := []Options{
		{ExtrapolateLeft: Clamp, ExtrapolateRight: Clamp},
		{ExtrapolateLeft: Extend, ExtrapolateRight: Extend},
		{ExtrapolateLeft: Clamp, ExtrapolateRight: Extend},
		{ExtrapolateLeft: Identity, ExtrapolateRight: Identity},
	}

	for _, r := range ranges {
		for _, p := range policies {
			first, err := Interpolate(r.in[0], r.in, r.out, p)
			if err != nil {
				t.Fatalf("Interpolate failed: %v", err)
			}
			last, _ := Interpolate(r.in[1], r.in, r.out, p)
			if first != r.out[0] {
				t.Errorf("range %v policy %v/%v: expected %g at first breakpoint, got %g", r.in, p.ExtrapolateLeft, p.ExtrapolateRight, r.out[0], first)
			}
			if last != r.out[1] {
				t.Errorf("range %v policy %v/%v: expected %g at last breakpoint, got %g", r.in, p.ExtrapolateLeft, p.ExtrapolateRight, r.out[1], last)
			}
		}
	}
}

func TestInterpolatePolicies(t *testing.T) {
	in := []float64{0, 10}
	out := []float64{0, 1}
	extend := Options{ExtrapolateLeft: Extend, ExtrapolateRight: Extend}

	tests := []struct {
		name     string
		frame    float64
		opts     Options
		expected float64
	}{
		{"midpoint", 5, Clamped, 0.5},
		{"midpoint extend", 5, extend, 0.5},
		{"clamp below", -5, Clamped, 0},
		{"clamp above", 15, Clamped, 1},
		{"extend below", -5, extend, -0.5},
		{"extend above", 15, extend, 1.5},
		{"default extends", 20, Options{}, 2},
		{"identity below", -3, Options{ExtrapolateLeft: Identity}, -3},
		{"identity above", 42, Options{ExtrapolateRight: Identity}, 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Interpolate(tt.frame, in, out, tt.opts)
			if err != nil {
				t.Fatalf("Interpolate failed: %v", err)
			}
			if math.Abs(got-tt.expected) > 1e-12 {
				t.Errorf("expected %g, got %g", tt.expected, got)
			}
		})
	}
}

func TestInterpolateMultiSegment(t *testing.T) {
	in := []float64{0, 15, 100, 110}
	out := []float64{0, 1, 1, 0}

	tests := []struct {
		frame    float64
		expected float64
	}{
		{-10, 0},
		{0, 0},
		{3, 0.2},
		{7.5, 0.5},
		{15, 1},
		{50, 1},
		{100, 1},
		{102.5, 0.75},
		{105, 0.5},
		{110, 0},
		{200, 0},
	}

	for _, tt := range tests {
		got, err := Interpolate(tt.frame, in, out, Clamped)
		if err != nil {
			t.Fatalf("Interpolate failed: %v", err)
		}
		if math.Abs(got-tt.expected) > 1e-12 {
			t.Errorf("frame %g: expected %g, got %g", tt.frame, tt.expected, got)
		}
	}
}

func TestFadeEnvelope(t *testing.T) {
	// start=0, fadeIn=15, hold until 100, fadeOut=10, total=110
	c := FadeEnvelope(110, 15, 10)

	checks := map[float64]float64{0: 0, 15: 1, 100: 1, 110: 0, 5: 1.0 / 3, 105: 0.5}
	for frame, expected := range checks {
		if got := c.At(frame); math.Abs(got-expected) > 1e-12 {
			t.Errorf("frame %g: expected opacity %g, got %g", frame, expected, got)
		}
	}

	// Linear ramps: equal steps between consecutive frames.
	for f := 1.0; f < 15; f++ {
		step := c.At(f) - c.At(f-1)
		if math.Abs(step-1.0/15) > 1e-12 {
			t.Errorf("fade-in step at %g: expected %g, got %g", f, 1.0/15, step)
		}
	}
	for f := 101.0; f <= 110; f++ {
		step := c.At(f) - c.At(f-1)
		if math.Abs(step+0.1) > 1e-12 {
			t.Errorf("fade-out step at %g: expected -0.1, got %g", f, step)
		}
	}
}

func TestFadeEnvelopeDegenerate(t *testing.T) {
	// Fades longer than the clip must still produce a valid curve.
	c := FadeEnvelope(10, 20, 20)
	lo, hi := c.Span()
	if lo != 0 || hi <= 1 {
		t.Errorf("unexpected span %g..%g", lo, hi)
	}
}

func TestInterpolateInvalidBreakpoints(t *testing.T) {
	tests := []struct {
		name string
		in   []float64
		out  []float64
	}{
		{"empty", nil, nil},
		{"single", []float64{0}, []float64{1}},
		{"length mismatch", []float64{0, 1, 2}, []float64{0, 1}},
		{"not increasing", []float64{0, 5, 5}, []float64{0, 1, 2}},
		{"decreasing", []float64{10, 0}, []float64{0, 1}},
		{"nan", []float64{0, math.NaN()}, []float64{0, 1}},
		{"negative infinite input", []float64{math.Inf(-1), 0}, []float64{0, 1}},
		{"infinite input", []float64{0, math.Inf(1)}, []float64{0, 1}},
		{"infinite output", []float64{0, 10}, []float64{0, math.Inf(1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Interpolate(1, tt.in, tt.out, Clamped)
			if !errors.Is(err, ErrInvalidBreakpoints) {
				t.Errorf("expected ErrInvalidBreakpoints, got %v", err)
			}
			if _, err := NewCurve(tt.in, tt.out, Clamped); !errors.Is(err, ErrInvalidBreakpoints) {
				t.Errorf("NewCurve: expected ErrInvalidBreakpoints, got %v", err)
			}
		})
	}
}

func TestInterpolateEasing(t *testing.T) {
	opts := Options{ExtrapolateLeft: Clamp, ExtrapolateRight: Clamp, Easing: Out(Cubic)}
	got, _ := Interpolate(10, []float64{0, 20}, []float64{0, 100}, opts)
	// out-cubic at t=0.5 is 1 - 0.5^3
	if math.Abs(got-87.5) > 1e-9 {
		t.Errorf("expected 87.5, got %g", got)
	}
}

func TestInterpolateDeterministic(t *testing.T) {
	in := []float64{0, 13, 27, 90}
	out := []float64{3, -1, 8, 8.5}
	for f := -20.0; f < 120; f += 0.37 {
		a, _ := Interpolate(f, in, out, Options{Easing: InOut(Sin)})
		b, _ := Interpolate(f, in, out, Options{Easing: InOut(Sin)})
		if math.Float64bits(a) != math.Float64bits(b) {
			t.Fatalf("frame %g: %v != %v", f, a, b)
		}
	}
}

func TestCurveCopiesBreakpoints(t *testing.T) {
	in := []float64{0, 10}
	out := []float64{0, 1}
	c, err := NewCurve(in, out, Clamped)
	if err != nil {
		t.Fatal(err)
	}
	in[1] = 1000
	out[1] = 50
	if got := c.At(5); got != 0.5 {
		t.Errorf("curve changed with caller's slice: got %g", got)
	}
}

func TestParseExtrapolate(t *testing.T) {
	for _, s := range []string{"", "extend", "clamp", "identity"} {
		if _, err := ParseExtrapolate(s); err != nil {
			t.Errorf("%q: unexpected error %v", s, err)
		}
	}
	if _, err := ParseExtrapolate("wrap"); err == nil {
		t.Error("expected error for unknown mode")
	}
}
