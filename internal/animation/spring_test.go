package animation

import (
	"errors"
	"math"
	"sync"
	"testing"
)

func TestSpringBeforeStart(t *testing.T) {
	configs := []SpringConfig{
		DefaultSpring,
		{Damping: 8, Stiffness: 150, Mass: 0.8},
		{Damping: 200, Stiffness: 10, Mass: 3, InitialVelocity: 4},
	}
	for _, cfg := range configs {
		for _, f := range []float64{-1, -0.25, -1000} {
			got, err := Spring(f, 30, cfg)
			if err != nil {
				t.Fatalf("Spring failed: %v", err)
			}
			if got != 0 {
				t.Errorf("config %+v frame %g: expected 0, got %g", cfg, f, got)
			}
		}
	}
}

func TestSpringAtStart(t *testing.T) {
	got, _ := Spring(0, 30, DefaultSpring)
	if got != 0 {
		t.Errorf("expected 0 at release, got %g", got)
	}
}

func TestSpringNoOvershootWhenDamped(t *testing.T) {
	tests := []struct {
		name string
		cfg  SpringConfig
	}{
		{"critical", SpringConfig{Damping: 20, Stiffness: 100, Mass: 1}},
		{"over", SpringConfig{Damping: 60, Stiffness: 100, Mass: 1}},
		{"smooth preset", presets["smooth"]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.cfg.DampingRatio() < 1 {
				t.Fatalf("test config is underdamped: zeta=%g", tt.cfg.DampingRatio())
			}
			prev := 0.0
			for f := 0; f <= 600; f++ {
				v, _ := Spring(float64(f), 30, tt.cfg)
				if v < prev-1e-12 {
					t.Fatalf("frame %d: decreased from %g to %g", f, prev, v)
				}
				if v > 1+1e-12 {
					t.Fatalf("frame %d: overshoot %g", f, v)
				}
				prev = v
			}
			if math.Abs(prev-1) > DefaultSettleThreshold {
				t.Errorf("not settled after 600 frames: %g", prev)
			}
		})
	}
}

func TestSpringUnderdampedOvershoots(t *testing.T) {
	cfg := presets["bouncy"]
	if cfg.DampingRatio() >= 1 {
		t.Fatalf("bouncy preset is not underdamped: zeta=%g", cfg.DampingRatio())
	}

	peak := 0.0
	for f := 0; f <= 90; f++ {
		v, _ := Spring(float64(f), 30, cfg)
		peak = math.Max(peak, v)
	}
	if peak <= 1 {
		t.Errorf("expected overshoot above 1, peak was %g", peak)
	}

	late, _ := Spring(900, 30, cfg)
	if math.Abs(late-1) > DefaultSettleThreshold {
		t.Errorf("expected settle near 1, got %g", late)
	}
}

func TestSpringOvershootClamping(t *testing.T) {
	cfg := presets["bouncy"]
	cfg.OvershootClamping = true
	for f := 0; f <= 120; f++ {
		v, _ := Spring(float64(f), 30, cfg)
		if v < 0 || v > 1 {
			t.Fatalf("frame %d: %g outside [0,1]", f, v)
		}
	}
}

func TestSpringQueryOrderIndependent(t *testing.T) {
	// Distinct parameters so no other test has warmed the cache.
	cfg := SpringConfig{Damping: 7.25, Stiffness: 173, Mass: 0.9}

	reverse := make([]float64, 400)
	for f := 399; f >= 0; f-- {
		reverse[f], _ = Spring(float64(f)+0.5, 24, cfg)
	}
	trajectories.Delete(trajectoryKey{24, cfg.Damping, cfg.Stiffness, cfg.Mass, cfg.InitialVelocity})

	for f := 0; f < 400; f++ {
		v, _ := Spring(float64(f)+0.5, 24, cfg)
		if math.Float64bits(v) != math.Float64bits(reverse[f]) {
			t.Fatalf("frame %d: forward %v, reverse %v", f, v, reverse[f])
		}
	}
}

func TestSpringIdempotent(t *testing.T) {
	cfg := presets["snappy"]
	for f := -3.0; f < 200; f += 0.7 {
		a, _ := Spring(f, 60, cfg)
		b, _ := Spring(f, 60, cfg)
		if math.Float64bits(a) != math.Float64bits(b) {
			t.Fatalf("frame %g: %v != %v", f, a, b)
		}
	}
}

func TestSpringConcurrent(t *testing.T) {
	cfg := SpringConfig{Damping: 11, Stiffness: 140, Mass: 1.1}
	want := make([]float64, 300)
	for f := range want {
		want[f], _ = Spring(float64(f), 30, cfg)
	}

	var wg sync.WaitGroup
	errs := make(chan int, 8)
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(offset int) {
			defer wg.Done()
			for i := 0; i < len(want); i++ {
				f := (i*7 + offset) % len(want)
				v, _ := Spring(float64(f), 30, cfg)
				if v != want[f] {
					errs <- f
					return
				}
			}
		}(w)
	}
	wg.Wait()
	close(errs)
	for f := range errs {
		t.Errorf("frame %d differs under concurrent access", f)
	}
}

func TestSpringFractionalFrame(t *testing.T) {
	cfg := SpringConfig{Damping: 20, Stiffness: 100, Mass: 1}
	lo, _ := Spring(10, 30, cfg)
	mid, _ := Spring(10.5, 30, cfg)
	hi, _ := Spring(11, 30, cfg)
	if !(lo < mid && mid < hi) {
		t.Errorf("expected %g < %g < %g", lo, mid, hi)
	}
}

func TestSpringInvalidParameters(t *testing.T) {
	tests := []struct {
		name string
		cfg  SpringConfig
		fps  int
	}{
		{"zero mass", SpringConfig{Damping: 10, Stiffness: 100, Mass: 0}, 30},
		{"negative damping", SpringConfig{Damping: -1, Stiffness: 100, Mass: 1}, 30},
		{"zero stiffness", SpringConfig{Damping: 10, Stiffness: 0, Mass: 1}, 30},
		{"infinite velocity", SpringConfig{Damping: 10, Stiffness: 100, Mass: 1, InitialVelocity: math.Inf(1)}, 30},
		{"zero fps", DefaultSpring, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Spring(5, tt.fps, tt.cfg); !errors.Is(err, ErrInvalidSpringParameters) {
				t.Errorf("Spring: expected ErrInvalidSpringParameters, got %v", err)
			}
			if _, err := MeasureSpring(tt.fps, tt.cfg, 0); !errors.Is(err, ErrInvalidSpringParameters) {
				t.Errorf("MeasureSpring: expected ErrInvalidSpringParameters, got %v", err)
			}
		})
	}
}

func TestMeasureSpring(t *testing.T) {
	for _, name := range PresetNames() {
		cfg, _ := Preset(name)
		n, err := MeasureSpring(30, cfg, 0)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if n <= 0 {
			t.Errorf("%s: expected positive settle frame, got %d", name, n)
		}
		before, _ := Spring(float64(n-1), 30, cfg)
		if math.Abs(before-1) < DefaultSettleThreshold {
			t.Errorf("%s: frame %d already within threshold (%g)", name, n-1, before)
		}
		for f := n; f < n+200; f++ {
			v, _ := Spring(float64(f), 30, cfg)
			if math.Abs(v-1) >= DefaultSettleThreshold {
				t.Errorf("%s: frame %d outside threshold after settle frame %d: %g", name, f, n, v)
				break
			}
		}
		t.Logf("%s settles after %d frames", name, n)
	}
}

func TestPreset(t *testing.T) {
	if _, err := Preset("gentle"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if cfg, _ := Preset(""); cfg != DefaultSpring {
		t.Errorf("expected default spring for empty name, got %+v", cfg)
	}
	if _, err := Preset("wobbly"); !errors.Is(err, ErrInvalidSpringParameters) {
		t.Errorf("expected ErrInvalidSpringParameters, got %v", err)
	}
	if len(PresetNames()) != 5 {
		t.Errorf("expected 5 presets, got %v", PresetNames())
	}
}

func TestOscillatorMatchesSpring(t *testing.T) {
	cfg := presets["quick"]
	osc, err := NewOscillator(30, cfg)
	if err != nil {
		t.Fatal(err)
	}
	for f := -2.0; f < 60; f += 1.5 {
		want, _ := Spring(f, 30, cfg)
		if got := osc.At(f); got != want {
			t.Errorf("frame %g: oscillator %g, spring %g", f, got, want)
		}
	}
	if _, err := NewOscillator(30, SpringConfig{}); !errors.Is(err, ErrInvalidSpringParameters) {
		t.Errorf("expected ErrInvalidSpringParameters, got %v", err)
	}
}

func TestSpringFramesBeyondInt(t *testing.T) {
	cfg := presets["snappy"]
	osc, _ := NewOscillator(30, cfg)
	for _, f := range []float64{1e6, 1e19, 1e300, math.Inf(1)} {
		got, err := Spring(f, 30, cfg)
		if err != nil {
			t.Fatalf("frame %g: %v", f, err)
		}
		if got != 1 {
			t.Errorf("frame %g: expected 1, got %g", f, got)
		}
		if got := osc.At(f); got != 1 {
			t.Errorf("frame %g: oscillator expected 1, got %g", f, got)
		}
	}
}

func TestSpringLightDampingStaysBounded(t *testing.T) {
	cfg := SpringConfig{Damping: 1e-6, Stiffness: 100, Mass: 1}
	for _, f := range []float64{maxCachedFrames + 100.5, 1e8, 1e19} {
		v, err := Spring(f, 30, cfg)
		if err != nil {
			t.Fatalf("frame %g: %v", f, err)
		}
		if math.IsNaN(v) || math.Abs(v-1) > 1+1e-6 {
			t.Errorf("frame %g: value %g outside the oscillation envelope", f, v)
		}
	}
	if v, _ := Spring(math.Inf(1), 30, cfg); v != 1 {
		t.Errorf("expected 1 at infinity, got %g", v)
	}
	if n := len(trajectoryFor(30, cfg).pos); n > maxCachedFrames {
		t.Errorf("trajectory cached %d samples, bound is %d", n, maxCachedFrames)
	}
	if _, err := MeasureSpring(30, cfg, 0); !errors.Is(err, ErrSpringNotSettled) {
		t.Errorf("expected ErrSpringNotSettled, got %v", err)
	}
}

func TestSpringPastCacheIndependentOfOrder(t *testing.T) {
	cfg := SpringConfig{Damping: 2e-6, Stiffness: 50, Mass: 1}
	frame := float64(maxCachedFrames) + 1234.25
	first, _ := Spring(frame, 30, cfg)
	for _, f := range []float64{10, 5e7, 3, maxCachedFrames - 1} {
		Spring(f, 30, cfg)
	}
	if again, _ := Spring(frame, 30, cfg); again != first {
		t.Errorf("frame %g: %g, then %g after other queries", frame, first, again)
	}
}
