package animation

import (
	"fmt"
	"math"
	"sync"

	"github.com/charmbracelet/harmonica"
)

// DefaultSettleThreshold is the displacement from 1 under which a spring
// counts as settled.
const DefaultSettleThreshold = 0.001

// Below this the trajectory snaps to rest at exactly 1.
const restEpsilon = 1e-9

// SpringConfig describes the physical oscillator.
type SpringConfig struct {
	Damping           float64 `yaml:"damping"`
	Stiffness         float64 `yaml:"stiffness"`
	Mass              float64 `yaml:"mass"`
	InitialVelocity   float64 `yaml:"initialVelocity,omitempty"`
	OvershootClamping bool    `yaml:"overshootClamping,omitempty"`
}

// Validate rejects configurations the oscillator cannot simulate.
func (c SpringConfig) Validate() error {
	fields := []struct {
		name  string
		value float64
	}{
		{"damping", c.Damping},
		{"stiffness", c.Stiffness},
		{"mass", c.Mass},
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) || f.value <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %g", ErrInvalidSpringParameters, f.name, f.value)
		}
	}
	if math.IsNaN(c.InitialVelocity) || math.IsInf(c.InitialVelocity, 0) {
		return fmt.Errorf("%w: initial velocity must be finite", ErrInvalidSpringParameters)
	}
	return nil
}

// DampingRatio is zeta: below 1 the spring overshoots.
func (c SpringConfig) DampingRatio() float64 {
	return c.Damping / (2 * math.Sqrt(c.Stiffness*c.Mass))
}

// AngularFrequency is the undamped natural frequency in rad/s.
func (c SpringConfig) AngularFrequency() float64 {
	return math.Sqrt(c.Stiffness / c.Mass)
}

// Spring returns the progress of a spring released at frame 0 and moving
// from 0 toward 1, sampled frame/fps seconds later. Negative frames are 0.
func Spring(frame float64, fps int, cfg SpringConfig) (float64, error) {
	if err := cfg.Validate(); err != nil {
		return 0, err
	}
	if fps <= 0 {
		return 0, fmt.Errorf("%w: fps must be positive, got %d", ErrInvalidSpringParameters, fps)
	}
	if math.IsNaN(frame) {
		return 0, fmt.Errorf("%w: frame is NaN", ErrInvalidSpringParameters)
	}
	return spring(frame, fps, cfg), nil
}

// spring assumes a validated configuration.
func spring(frame float64, fps int, cfg SpringConfig) float64 {
	if frame < 0 || math.IsNaN(frame) {
		return 0
	}
	pos := trajectoryFor(fps, cfg).sample(frame)
	if cfg.OvershootClamping {
		pos = math.Max(0, math.Min(1, pos))
	}
	return pos
}

// MeasureSpring returns how many frames pass before the displacement from 1
// stays below threshold for good. A non-positive threshold uses
// DefaultSettleThreshold. Springs too lightly damped to settle within
// maxCachedFrames return ErrSpringNotSettled.
func MeasureSpring(fps int, cfg SpringConfig, threshold float64) (int, error) {
	if err := cfg.Validate(); err != nil {
		return 0, err
	}
	if fps <= 0 {
		return 0, fmt.Errorf("%w: fps must be positive, got %d", ErrInvalidSpringParameters, fps)
	}
	if threshold <= 0 {
		threshold = DefaultSettleThreshold
	}
	return trajectoryFor(fps, cfg).settleFrame(threshold)
}

// maxCachedFrames bounds a trajectory's memory. Later frames are one
// closed-form step from the last cached sample.
const maxCachedFrames = 1 << 16

type trajectoryKey struct {
	fps       int
	damping   float64
	stiffness float64
	mass      float64
	velocity  float64
}

// trajectory memoizes one spring sampled at whole frames. Samples are always
// produced in order from frame 0, so a value never depends on which frames
// were asked for first.
type trajectory struct {
	mu   sync.Mutex
	fps  float64
	freq float64
	zeta float64
	step harmonica.Spring
	pos  []float64
	vel  []float64
	rest int // first frame at exact rest, -1 while still moving
}

var trajectories sync.Map // trajectoryKey -> *trajectory

func trajectoryFor(fps int, cfg SpringConfig) *trajectory {
	key := trajectoryKey{fps, cfg.Damping, cfg.Stiffness, cfg.Mass, cfg.InitialVelocity}
	if tr, ok := trajectories.Load(key); ok {
		return tr.(*trajectory)
	}
	tr := &trajectory{
		fps:  float64(fps),
		freq: cfg.AngularFrequency(),
		zeta: cfg.DampingRatio(),
		step: harmonica.NewSpring(1/float64(fps), cfg.AngularFrequency(), cfg.DampingRatio()),
		pos:  []float64{0},
		vel:  []float64{cfg.InitialVelocity},
		rest: -1,
	}
	actual, _ := trajectories.LoadOrStore(key, tr)
	return actual.(*trajectory)
}

// sample returns the position at a non-negative frame.
func (t *trajectory) sample(frame float64) float64 {
	if math.IsInf(frame, 1) {
		return 1
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	t.extend(int(math.Min(frame, maxCachedFrames-1)))
	if t.rest >= 0 && frame >= float64(t.rest) {
		return 1
	}
	n := int(math.Min(math.Floor(frame), float64(len(t.pos)-1)))
	pos, vel := t.pos[n], t.vel[n]
	if d := frame - float64(n); d > 0 {
		pos, _ = harmonica.NewSpring(d/t.fps, t.freq, t.zeta).Update(pos, vel, 1)
	}
	return pos
}

// extend fills samples up to frame n, stopping at rest or at the cache
// bound.
func (t *trajectory) extend(n int) {
	n = min(n, maxCachedFrames-1)
	for t.rest < 0 && len(t.pos) <= n {
		last := len(t.pos) - 1
		p, v := t.step.Update(t.pos[last], t.vel[last], 1)
		if math.Abs(p-1) < restEpsilon && math.Abs(v) < restEpsilon {
			p, v = 1, 0
			t.rest = last + 1
		}
		t.pos = append(t.pos, p)
		t.vel = append(t.vel, v)
	}
}

// settleFrame is the frame after the last sample at or above threshold.
// Without a rest frame in the cache, the last quarter of it must already
// be settled: the displacement envelope only decays.
func (t *trajectory) settleFrame(threshold float64) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.extend(maxCachedFrames - 1)
	end := len(t.pos)
	if t.rest >= 0 {
		end = t.rest
	}
	i := end
	for ; i > 0; i-- {
		if math.Abs(t.pos[i-1]-1) >= threshold {
			break
		}
	}
	if t.rest < 0 && i > end-end/4 {
		return 0, fmt.Errorf("%w: still above %g after %d frames", ErrSpringNotSettled, threshold, end)
	}
	return i, nil
}

// Oscillator is a spring validated once and bound to a frame rate, for
// elements that evaluate it every frame.
type Oscillator struct {
	cfg SpringConfig
	fps int
}

// NewOscillator validates cfg and fps once.
func NewOscillator(fps int, cfg SpringConfig) (*Oscillator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if fps <= 0 {
		return nil, fmt.Errorf("%w: fps must be positive, got %d", ErrInvalidSpringParameters, fps)
	}
	return &Oscillator{cfg: cfg, fps: fps}, nil
}

// At is Spring without the per-call validation.
func (o *Oscillator) At(frame float64) float64 {
	return spring(frame, o.fps, o.cfg)
}
