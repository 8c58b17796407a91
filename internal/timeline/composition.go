package timeline

import (
	"fmt"
	"strings"
)

// Composition is one renderable video: output format plus the node tree.
type Composition struct {
	Version    string  `yaml:"version"`
	ID         string  `yaml:"id"`
	FPS        int     `yaml:"fps"`
	Width      int     `yaml:"width"`
	Height     int     `yaml:"height"`
	Duration   int     `yaml:"duration"` // total frames
	Background string  `yaml:"background,omitempty"`
	Nodes      []*Node `yaml:"nodes"`
}

// Node is one interval of the tree. From is relative to the parent's start.
type Node struct {
	Name     string   `yaml:"name"`
	From     int      `yaml:"from,omitempty"`
	Duration *int     `yaml:"duration,omitempty"`
	Element  *Element `yaml:"element,omitempty"`
	Audio    *Audio   `yaml:"audio,omitempty"`
	Children []*Node  `yaml:"children,omitempty"`
}

// Element is the visual payload of a node. Its fields are content, not
// engine state; the renderer compiles them once at load time.
type Element struct {
	Type   string   `yaml:"type"` // rect, text, image, document, qr, bars, particles
	Effect string   `yaml:"effect,omitempty"`
	Motion Motion   `yaml:"motion,omitempty"`
	X      int      `yaml:"x,omitempty"`
	Y      int      `yaml:"y,omitempty"`
	W      int      `yaml:"w,omitempty"`
	H      int      `yaml:"h,omitempty"`
	Color  string   `yaml:"color,omitempty"`
	Text   string   `yaml:"text,omitempty"`
	Scale  int      `yaml:"scale,omitempty"` // text pixel scale
	Src    string   `yaml:"src,omitempty"`
	Page   int      `yaml:"page,omitempty"`
	Bars   []Bar    `yaml:"bars,omitempty"`
	Count  int      `yaml:"count,omitempty"`
	Seed   int64    `yaml:"seed,omitempty"`
	Camera []Shot   `yaml:"camera,omitempty"`
	Tour   bool     `yaml:"tour,omitempty"`  // plan camera shots over detected content when Camera is empty
	Alpha  *float64 `yaml:"alpha,omitempty"` // base opacity, nil means 1
}

// Motion parameterizes the element's effect. Frames are local to the node.
type Motion struct {
	Delay         int     `yaml:"delay,omitempty"`
	FadeIn        int     `yaml:"fadeIn,omitempty"`
	FadeOut       int     `yaml:"fadeOut,omitempty"`
	Length        int     `yaml:"length,omitempty"`
	Distance      float64 `yaml:"distance,omitempty"`
	Stagger       int     `yaml:"stagger,omitempty"`
	Index         int     `yaml:"index,omitempty"`
	Spring        string  `yaml:"spring,omitempty"`
	Easing        string  `yaml:"easing,omitempty"`
	CharsPerFrame float64 `yaml:"charsPerFrame,omitempty"`
}

// Bar is one column of a bar chart.
type Bar struct {
	Label     string  `yaml:"label"`
	Value     float64 `yaml:"value"`
	Highlight bool    `yaml:"highlight,omitempty"`
}

// Shot is a camera keyframe: zoom on the point (X, Y) of the element's
// bitmap at a local frame.
type Shot struct {
	Frame int     `yaml:"frame"`
	Zoom  float64 `yaml:"zoom"`
	X     float64 `yaml:"x"`
	Y     float64 `yaml:"y"`
}

// Audio is a sound track that plays while its node is active.
type Audio struct {
	Src          string  `yaml:"src"`
	PlaybackRate float64 `yaml:"playbackRate,omitempty"`
	Volume       float64 `yaml:"volume,omitempty"`
	FadeIn       int     `yaml:"fadeIn,omitempty"`
	FadeOut      int     `yaml:"fadeOut,omitempty"`
}

// Activation is a node that is mounted at the queried frame.
type Activation struct {
	Node       *Node
	Path       string
	Depth      int
	Start      int // resolved absolute start
	LocalFrame int // frame relative to Start
}

// Span is a node with its absolute windows. Effective is the declared
// window clipped by every ancestor; Reachable is false when that clip is
// empty and the node can never mount.
type Span struct {
	Node      *Node
	Path      string
	Depth     int
	Window    Window
	Effective Window
	Reachable bool
}

// Overlap is a pair of sibling windows that share frames.
type Overlap struct {
	A, B   string
	Window Window
}

// Validate checks the composition once, before any frame is evaluated.
func (c *Composition) Validate() error {
	if c.FPS <= 0 {
		return fmt.Errorf("%w: fps must be positive, got %d", ErrInvalidComposition, c.FPS)
	}
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("%w: size %dx%d", ErrInvalidComposition, c.Width, c.Height)
	}
	if c.Duration <= 0 {
		return fmt.Errorf("%w: duration must be positive, got %d", ErrInvalidComposition, c.Duration)
	}
	return validateNodes(c.Nodes, "")
}

func validateNodes(nodes []*Node, parent string) error {
	seen := make(map[string]bool, len(nodes))
	for i, n := range nodes {
		if n == nil {
			return fmt.Errorf("%w: nil node %d under %q", ErrInvalidComposition, i, parent)
		}
		if n.Name == "" {
			return fmt.Errorf("%w: node %d under %q has no name", ErrInvalidComposition, i, parent)
		}
		if strings.Contains(n.Name, "/") {
			return fmt.Errorf("%w: node name %q contains '/'", ErrInvalidComposition, n.Name)
		}
		path := joinPath(parent, n.Name)
		if seen[n.Name] {
			return fmt.Errorf("%w: duplicate node %q", ErrInvalidComposition, path)
		}
		seen[n.Name] = true

		if _, err := NewWindow(n.From, n.Duration); err != nil {
			return fmt.Errorf("node %q: %w", path, err)
		}
		if n.Element != nil && n.Audio != nil {
			return fmt.Errorf("%w: node %q has both element and audio", ErrInvalidComposition, path)
		}
		if a := n.Audio; a != nil {
			if a.Src == "" {
				return fmt.Errorf("%w: audio node %q has no src", ErrInvalidComposition, path)
			}
			if a.PlaybackRate < 0 || a.Volume < 0 || a.FadeIn < 0 || a.FadeOut < 0 {
				return fmt.Errorf("%w: audio node %q has negative parameters", ErrInvalidComposition, path)
			}
		}
		if err := validateNodes(n.Children, path); err != nil {
			return err
		}
	}
	return nil
}

func joinPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "/" + name
}

// ActiveAt returns the nodes mounted at frame in paint order (parents
// before children, siblings in declaration order). A node whose parent is
// not mounted is absent regardless of its own window.
func (c *Composition) ActiveAt(frame int) []Activation {
	var out []Activation
	var offsets []int
	var walk func(nodes []*Node, parent string, depth int)
	walk = func(nodes []*Node, parent string, depth int) {
		for _, n := range nodes {
			offsets = append(offsets, n.From)
			local := ResolveLocalFrame(frame, offsets)
			start := frame - local
			if IsActive(frame, start, n.Duration) {
				path := joinPath(parent, n.Name)
				out = append(out, Activation{
					Node:       n,
					Path:       path,
					Depth:      depth,
					Start:      start,
					LocalFrame: local,
				})
				walk(n.Children, path, depth+1)
			}
			offsets = offsets[:len(offsets)-1]
		}
	}
	walk(c.Nodes, "", 0)
	return out
}

// Flatten lists every node with its resolved windows, in declaration order.
func (c *Composition) Flatten() []Span {
	var out []Span
	var walk func(nodes []*Node, parent string, depth, base int, clip Window, reachable bool)
	walk = func(nodes []*Node, parent string, depth, base int, clip Window, reachable bool) {
		for _, n := range nodes {
			w := Window{Start: base + n.From, Duration: n.Duration}
			eff, ok := w.Intersect(clip)
			span := Span{
				Node:      n,
				Path:      joinPath(parent, n.Name),
				Depth:     depth,
				Window:    w,
				Effective: eff,
				Reachable: reachable && ok,
			}
			out = append(out, span)
			walk(n.Children, span.Path, depth+1, w.Start, eff, span.Reachable)
		}
	}
	walk(c.Nodes, "", 0, 0, Window{Start: 0, Duration: Frames(c.Duration)}, true)
	return out
}

// Crossfades reports sibling nodes whose windows overlap. Overlap is legal;
// this is for inspection.
func (c *Composition) Crossfades() []Overlap {
	var out []Overlap
	var walk func(nodes []*Node, parent string, base int)
	walk = func(nodes []*Node, parent string, base int) {
		for i := 0; i < len(nodes); i++ {
			wi := Window{Start: base + nodes[i].From, Duration: nodes[i].Duration}
			for j := i + 1; j < len(nodes); j++ {
				wj := Window{Start: base + nodes[j].From, Duration: nodes[j].Duration}
				if ov, ok := wi.Intersect(wj); ok {
					out = append(out, Overlap{
						A:      joinPath(parent, nodes[i].Name),
						B:      joinPath(parent, nodes[j].Name),
						Window: ov,
					})
				}
			}
			walk(nodes[i].Children, joinPath(parent, nodes[i].Name), wi.Start)
		}
	}
	walk(c.Nodes, "", 0)
	return out
}

// Warnings lists nodes that validate but can never mount inside the
// composition's frame range.
func (c *Composition) Warnings() []string {
	var out []string
	for _, s := range c.Flatten() {
		if !s.Reachable {
			out = append(out, fmt.Sprintf("node %q window %s never mounts", s.Path, s.Window))
		}
	}
	return out
}
