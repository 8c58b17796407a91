// Package effects turns a node's local frame into render-ready style values.
// Each effect is compiled once from the composition (so bad parameters fail
// at load time) and then evaluated as a pure function of the frame.
package effects

import (
	"fmt"
	"sort"

	"github.com/ivlev/framereel/internal/animation"
	"github.com/ivlev/framereel/internal/timeline"
)

// Style is what the renderer needs to draw one element on one frame.
type Style struct {
	Opacity    float64
	TranslateX float64
	TranslateY float64
	Scale      float64
	Rotation   float64 // degrees
	Progress   float64 // element-specific fill: bar height, stroke length, pin drop
	Chars      int     // typewriter: characters revealed, -1 for all
	Cursor     bool
	RingScale  float64
	RingAlpha  float64
}

func base() Style {
	return Style{Opacity: 1, Scale: 1, Progress: 1, Chars: -1}
}

// Effect evaluates an element at a local frame. index selects the item of
// multi-item elements (bars, rows, pins) and is 0 otherwise. present=false
// means the element is not drawn at all on this frame.
type Effect interface {
	Evaluate(frame, index int) (s Style, present bool)
}

// Spec is everything an effect is compiled from.
type Spec struct {
	Motion   timeline.Motion
	Duration *int // node duration, nil when open-ended
	FPS      int
}

type factory func(Spec) (Effect, error)

var registry = map[string]factory{
	"":                newStatic,
	"static":          newStatic,
	"fade-in":         newFadeIn,
	"slide-up":        newSlideUp,
	"scene-fade":      newSceneFade,
	"staggered":       newStaggered,
	"draw-line":       newDrawLine,
	"typewriter":      newTypewriter,
	"ken-burns":       newKenBurns,
	"lower-third":     newLowerThird,
	"bar-grow":        newBarGrow,
	"chat-message":    newChatMessage,
	"report-fragment": newReportFragment,
	"pin-drop":        newPinDrop,
	"workflow-step":   newWorkflowStep,
}

// New compiles the named effect.
func New(name string, spec Spec) (Effect, error) {
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown effect: %s", name)
	}
	if spec.FPS <= 0 {
		return nil, fmt.Errorf("effect %s: fps must be positive", name)
	}
	eff, err := f(spec)
	if err != nil {
		return nil, fmt.Errorf("effect %s: %w", name, err)
	}
	return eff, nil
}

// Names lists the registered effects.
func Names() []string {
	var names []string
	for name := range registry {
		if name != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func orDefaultF(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}

// springFor resolves the motion's preset, falling back to the element's
// own tuning when none is named.
func springFor(m timeline.Motion, fallback animation.SpringConfig) (animation.SpringConfig, error) {
	if m.Spring == "" {
		return fallback, fallback.Validate()
	}
	return animation.Preset(m.Spring)
}

func errNegative(field string) error {
	return fmt.Errorf("%s must not be negative", field)
}

func requireDuration(spec Spec) (int, error) {
	if spec.Duration == nil {
		return 0, fmt.Errorf("needs a node duration")
	}
	return *spec.Duration, nil
}
