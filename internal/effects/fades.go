package effects

import (
	"math"

	"github.com/ivlev/framereel/internal/animation"
)

type static struct{}

func newStatic(Spec) (Effect, error) { return static{}, nil }

func (static) Evaluate(int, int) (Style, bool) { return base(), true }

// fadeIn fades and lifts text into place, linearly or on a spring.
type fadeIn struct {
	opacity  *animation.Curve
	offset   *animation.Curve
	osc      *animation.Oscillator
	delay    int
	distance float64
}

func newFadeIn(spec Spec) (Effect, error) {
	m := spec.Motion
	e := &fadeIn{delay: m.Delay, distance: orDefaultF(m.Distance, 20)}

	if m.Spring != "" {
		cfg, err := animation.Preset(m.Spring)
		if err != nil {
			return nil, err
		}
		if e.osc, err = animation.NewOscillator(spec.FPS, cfg); err != nil {
			return nil, err
		}
		return e, nil
	}

	easing, err := animation.ParseEasing(m.Easing)
	if err != nil {
		return nil, err
	}
	opts := animation.Options{ExtrapolateLeft: animation.Clamp, ExtrapolateRight: animation.Clamp, Easing: easing}
	window := []float64{float64(m.Delay), float64(m.Delay + orDefault(m.Length, 20))}
	if e.opacity, err = animation.NewCurve(window, []float64{0, 1}, opts); err != nil {
		return nil, err
	}
	if e.offset, err = animation.NewCurve(window, []float64{e.distance, 0}, opts); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *fadeIn) Evaluate(frame, _ int) (Style, bool) {
	s := base()
	if e.osc != nil {
		p := e.osc.At(float64(frame - e.delay))
		s.Opacity = p
		s.TranslateY = (1 - p) * e.distance
		return s, true
	}
	s.Opacity = e.opacity.At(float64(frame))
	s.TranslateY = e.offset.At(float64(frame))
	return s, true
}

type slideUp struct {
	progress *animation.Curve
	distance float64
}

func newSlideUp(spec Spec) (Effect, error) {
	m := spec.Motion
	easing := animation.Out(animation.Cubic)
	if m.Easing != "" {
		var err error
		if easing, err = animation.ParseEasing(m.Easing); err != nil {
			return nil, err
		}
	}
	c, err := animation.NewCurve(
		[]float64{float64(m.Delay), float64(m.Delay + orDefault(m.Length, 20))},
		[]float64{0, 1},
		animation.Options{ExtrapolateLeft: animation.Clamp, ExtrapolateRight: animation.Clamp, Easing: easing},
	)
	if err != nil {
		return nil, err
	}
	return &slideUp{progress: c, distance: orDefaultF(m.Distance, 30)}, nil
}

func (e *slideUp) Evaluate(frame, _ int) (Style, bool) {
	p := e.progress.At(float64(frame))
	s := base()
	s.Opacity = p
	s.TranslateY = (1 - p) * e.distance
	return s, true
}

// sceneFade fades a whole scene in at its start and out at its end.
type sceneFade struct {
	envelope *animation.Curve
}

func newSceneFade(spec Spec) (Effect, error) {
	dur, err := requireDuration(spec)
	if err != nil {
		return nil, err
	}
	m := spec.Motion
	env := animation.FadeEnvelope(float64(dur), float64(orDefault(m.FadeIn, 20)), float64(orDefault(m.FadeOut, 20)))
	return &sceneFade{envelope: env}, nil
}

func (e *sceneFade) Evaluate(frame, _ int) (Style, bool) {
	s := base()
	s.Opacity = e.envelope.At(float64(frame))
	return s, true
}

// staggered reveals item i after i*stagger frames.
type staggered struct {
	fade    *animation.Curve
	first   int
	stagger int
}

func newStaggered(spec Spec) (Effect, error) {
	m := spec.Motion
	c, err := animation.NewCurve([]float64{0, float64(orDefault(m.FadeIn, 15))}, []float64{0, 1}, animation.Clamped)
	if err != nil {
		return nil, err
	}
	return &staggered{fade: c, first: m.Delay + m.Index*orDefault(m.Stagger, 10), stagger: orDefault(m.Stagger, 10)}, nil
}

func (e *staggered) Evaluate(frame, index int) (Style, bool) {
	s := base()
	s.Opacity = e.fade.At(float64(frame - e.first - index*e.stagger))
	return s, true
}

type drawLine struct {
	progress *animation.Curve
}

func newDrawLine(spec Spec) (Effect, error) {
	m := spec.Motion
	c, err := animation.NewCurve(
		[]float64{float64(m.Delay), float64(m.Delay + orDefault(m.Length, 30))},
		[]float64{0, 1},
		animation.Clamped,
	)
	if err != nil {
		return nil, err
	}
	return &drawLine{progress: c}, nil
}

func (e *drawLine) Evaluate(frame, _ int) (Style, bool) {
	s := base()
	s.Progress = e.progress.At(float64(frame))
	return s, true
}

type typewriter struct {
	delay         int
	charsPerFrame float64
}

func newTypewriter(spec Spec) (Effect, error) {
	m := spec.Motion
	if m.CharsPerFrame < 0 {
		return nil, errNegative("charsPerFrame")
	}
	return &typewriter{delay: m.Delay, charsPerFrame: orDefaultF(m.CharsPerFrame, 1)}, nil
}

// Evaluate leaves capping Chars at the text length to the renderer; the
// cursor blinks on a fixed frame phase.
func (e *typewriter) Evaluate(frame, _ int) (Style, bool) {
	s := base()
	elapsed := math.Max(0, float64(frame-e.delay))
	s.Chars = int(math.Floor(elapsed * e.charsPerFrame))
	s.Cursor = math.Sin(float64(frame)*0.4) > 0
	return s, true
}

// kenBurns slowly zooms and pans a backdrop while fading it in.
type kenBurns struct {
	scale, panX, panY, opacity *animation.Curve
}

func newKenBurns(spec Spec) (Effect, error) {
	m := spec.Motion
	length := float64(orDefault(m.Length, 200))
	pan := orDefaultF(m.Distance, 80)
	span := []float64{0, length}
	e := &kenBurns{
		scale: animation.MustCurve(span, []float64{1, 1.15}, animation.Clamped),
		panX:  animation.MustCurve(span, []float64{0, -pan}, animation.Clamped),
		panY:  animation.MustCurve(span, []float64{0, -pan / 2}, animation.Clamped),
	}
	var err error
	e.opacity, err = animation.NewCurve([]float64{0, float64(orDefault(m.FadeIn, 30))}, []float64{0, 1}, animation.Clamped)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (e *kenBurns) Evaluate(frame, _ int) (Style, bool) {
	f := float64(frame)
	s := base()
	s.Scale = e.scale.At(f)
	s.TranslateX = e.panX.At(f)
	s.TranslateY = e.panY.At(f)
	s.Opacity = e.opacity.At(f)
	return s, true
}

// lowerThird is a caption strip that is absent outside its own window.
type lowerThird struct {
	delay    int
	duration int
	envelope *animation.Curve
	slide    *animation.Curve
}

func newLowerThird(spec Spec) (Effect, error) {
	dur, err := requireDuration(spec)
	if err != nil {
		return nil, err
	}
	m := spec.Motion
	if m.Length > 0 {
		dur = m.Length
	}
	fadeIn := orDefault(m.FadeIn, 15)
	slide, err := animation.NewCurve([]float64{0, float64(fadeIn)}, []float64{-orDefaultF(m.Distance, 40), 0}, animation.Clamped)
	if err != nil {
		return nil, err
	}
	return &lowerThird{
		delay:    m.Delay,
		duration: dur,
		envelope: animation.FadeEnvelope(float64(dur), float64(fadeIn), float64(orDefault(m.FadeOut, 10))),
		slide:    slide,
	}, nil
}

func (e *lowerThird) Evaluate(frame, _ int) (Style, bool) {
	rel := frame - e.delay
	if rel < 0 || rel > e.duration {
		return Style{}, false
	}
	s := base()
	s.Opacity = e.envelope.At(float64(rel))
	s.TranslateX = e.slide.At(float64(rel))
	return s, true
}
