package animation

import (
	"fmt"
	"math"
)

// EasingFunc remaps linear progress t (normally in [0,1]).
type EasingFunc func(t float64) float64

func Linear(t float64) float64 { return t }

func Quad(t float64) float64 { return t * t }

func Cubic(t float64) float64 { return t * t * t }

func Sin(t float64) float64 { return 1 - math.Cos(t*math.Pi/2) }

func Circle(t float64) float64 { return 1 - math.Sqrt(1-t*t) }

func Exp(t float64) float64 {
	if t == 0 {
		return 0
	}
	return math.Pow(2, 10*(t-1))
}

// Back overshoots slightly before moving forward.
func Back(s float64) EasingFunc {
	return func(t float64) float64 {
		return t * t * ((s+1)*t - s)
	}
}

// In runs easing forwards.
func In(easing EasingFunc) EasingFunc {
	return easing
}

// Out runs easing backwards.
func Out(easing EasingFunc) EasingFunc {
	return func(t float64) float64 {
		return 1 - easing(1-t)
	}
}

// InOut makes easing symmetrical around the midpoint.
func InOut(easing EasingFunc) EasingFunc {
	return func(t float64) float64 {
		if t < 0.5 {
			return easing(t*2) / 2
		}
		return 1 - easing((1-t)*2)/2
	}
}

// EaseInOutCubic is the camera easing: slow start, slow stop.
func EaseInOutCubic(t float64) float64 {
	if t < 0.5 {
		return 4 * t * t * t
	}
	return 1 - math.Pow(-2*t+2, 3)/2
}

// Bezier returns a CSS-style cubic-bezier timing function through
// (0,0), (x1,y1), (x2,y2), (1,1).
func Bezier(x1, y1, x2, y2 float64) EasingFunc {
	if x1 == y1 && x2 == y2 {
		return Linear
	}
	ax := 1 - 3*x2 + 3*x1
	bx := 3*x2 - 6*x1
	cx := 3 * x1
	ay := 1 - 3*y2 + 3*y1
	by := 3*y2 - 6*y1
	cy := 3 * y1

	sampleX := func(u float64) float64 { return ((ax*u+bx)*u + cx) * u }
	sampleY := func(u float64) float64 { return ((ay*u+by)*u + cy) * u }
	slopeX := func(u float64) float64 { return (3*ax*u+2*bx)*u + cx }

	return func(t float64) float64 {
		if t <= 0 || t >= 1 {
			return t
		}
		// Newton first, bisection if the slope flattens out.
		u := t
		for i := 0; i < 8; i++ {
			dx := sampleX(u) - t
			if math.Abs(dx) < 1e-7 {
				return sampleY(u)
			}
			d := slopeX(u)
			if math.Abs(d) < 1e-6 {
				break
			}
			u -= dx / d
		}
		lo, hi := 0.0, 1.0
		u = t
		for i := 0; i < 50; i++ {
			x := sampleX(u)
			if math.Abs(x-t) < 1e-7 {
				break
			}
			if x < t {
				lo = u
			} else {
				hi = u
			}
			u = (lo + hi) / 2
		}
		return sampleY(u)
	}
}

var easings = map[string]EasingFunc{
	"linear":         Linear,
	"quad":           Quad,
	"cubic":          Cubic,
	"sin":            Sin,
	"circle":         Circle,
	"exp":            Exp,
	"back":           Back(1.70158),
	"ease-in-out":    EaseInOutCubic,
	"out-cubic":      Out(Cubic),
	"in-out-cubic":   InOut(Cubic),
	"out-quad":       Out(Quad),
	"in-out-sin":     InOut(Sin),
	"out-back":       Out(Back(1.70158)),
	"ease":           Bezier(0.25, 0.1, 0.25, 1),
	"ease-out":       Bezier(0, 0, 0.58, 1),
	"ease-in":        Bezier(0.42, 0, 1, 1),
	"ease-in-out-bz": Bezier(0.42, 0, 0.58, 1),
}

// ParseEasing looks up an easing by its composition file name. The empty
// name is linear.
func ParseEasing(name string) (EasingFunc, error) {
	if name == "" {
		return nil, nil
	}
	e, ok := easings[name]
	if !ok {
		return nil, fmt.Errorf("unknown easing %q", name)
	}
	return e, nil
}
