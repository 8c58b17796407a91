package effects

import (
	"math"

	"github.com/ivlev/framereel/internal/animation"
)

func oscillatorFor(spec Spec, fallback animation.SpringConfig) (*animation.Oscillator, error) {
	cfg, err := springFor(spec.Motion, fallback)
	if err != nil {
		return nil, err
	}
	return animation.NewOscillator(spec.FPS, cfg)
}

// barGrow raises chart bars one after another.
type barGrow struct {
	osc     *animation.Oscillator
	first   int
	stagger int
}

func newBarGrow(spec Spec) (Effect, error) {
	osc, err := oscillatorFor(spec, animation.SpringConfig{Damping: 20, Stiffness: 100, Mass: 0.8})
	if err != nil {
		return nil, err
	}
	m := spec.Motion
	stagger := orDefault(m.Stagger, 8)
	return &barGrow{osc: osc, first: m.Delay + m.Index*stagger, stagger: stagger}, nil
}

func (e *barGrow) Evaluate(frame, index int) (Style, bool) {
	p := e.osc.At(float64(frame - e.first - index*e.stagger))
	s := base()
	s.Progress = p
	s.Opacity = math.Min(p*2, 1)
	return s, true
}

// popIn is the spring entrance shared by chat bubbles and report fragments:
// nothing before the delay, then a short rise while fading in.
type popIn struct {
	osc      *animation.Oscillator
	delay    int
	distance float64
}

func newPopIn(spec Spec, fallback animation.SpringConfig, distance float64) (Effect, error) {
	osc, err := oscillatorFor(spec, fallback)
	if err != nil {
		return nil, err
	}
	return &popIn{osc: osc, delay: spec.Motion.Delay, distance: orDefaultF(spec.Motion.Distance, distance)}, nil
}

func newChatMessage(spec Spec) (Effect, error) {
	return newPopIn(spec, animation.SpringConfig{Damping: 20, Stiffness: 200, Mass: 0.5}, 10)
}

func newReportFragment(spec Spec) (Effect, error) {
	return newPopIn(spec, animation.SpringConfig{Damping: 20, Stiffness: 150, Mass: 0.6}, 15)
}

func (e *popIn) Evaluate(frame, _ int) (Style, bool) {
	if frame < e.delay {
		return Style{}, false
	}
	p := e.osc.At(float64(frame - e.delay))
	s := base()
	s.Opacity = p
	s.TranslateY = (1 - p) * e.distance
	return s, true
}

// pinDrop drops map pins in sequence, each with an expanding ring.
type pinDrop struct {
	osc       *animation.Oscillator
	first     int
	stagger   int
	ringScale *animation.Curve
	ringAlpha *animation.Curve
	ringLen   int
}

// Pins mount a few frames before their spring starts.
const pinLead = 5

func newPinDrop(spec Spec) (Effect, error) {
	osc, err := oscillatorFor(spec, animation.SpringConfig{Damping: 12, Stiffness: 200, Mass: 0.4})
	if err != nil {
		return nil, err
	}
	m := spec.Motion
	stagger := orDefault(m.Stagger, 3)
	ringLen := orDefault(m.Length, 20)
	span := []float64{0, float64(ringLen)}
	return &pinDrop{
		osc:       osc,
		first:     m.Delay + m.Index*stagger,
		stagger:   stagger,
		ringScale: animation.MustCurve(span, []float64{1, 3}, animation.Clamped),
		ringAlpha: animation.MustCurve(span, []float64{0.6, 0}, animation.Clamped),
		ringLen:   ringLen,
	}, nil
}

func (e *pinDrop) Evaluate(frame, index int) (Style, bool) {
	pf := frame - e.first - index*e.stagger
	if pf < -pinLead {
		return Style{}, false
	}
	p := e.osc.At(float64(pf))
	s := base()
	s.Progress = p
	s.Scale = p
	s.Opacity = math.Min(1, math.Max(0, p))
	if pf > 0 && pf < e.ringLen {
		s.RingScale = e.ringScale.At(float64(pf))
		s.RingAlpha = e.ringAlpha.At(float64(pf))
	}
	return s, true
}

// workflowStep reveals steps one per length, spinning the step icon once
// and marking it done late in its slot.
type workflowStep struct {
	osc    *animation.Oscillator
	first  int
	length int
	spin   *animation.Curve
}

func newWorkflowStep(spec Spec) (Effect, error) {
	osc, err := oscillatorFor(spec, animation.SpringConfig{Damping: 15, Stiffness: 200, Mass: 0.5})
	if err != nil {
		return nil, err
	}
	m := spec.Motion
	length := orDefault(m.Length, 60)
	return &workflowStep{
		osc:    osc,
		first:  m.Delay + m.Index*length,
		length: length,
		spin:   animation.MustCurve([]float64{0, float64(length)}, []float64{0, 360}, animation.Clamped),
	}, nil
}

func (e *workflowStep) Evaluate(frame, index int) (Style, bool) {
	rel := frame - e.first - index*e.length
	if rel < 0 {
		return Style{}, false
	}
	p := e.osc.At(float64(rel))
	s := base()
	s.Opacity = math.Min(1, p)
	s.Scale = p
	s.Rotation = e.spin.At(float64(rel))
	s.Progress = 0
	if float64(rel) >= 0.7*float64(e.length) {
		s.Progress = 1
	}
	return s, true
}
