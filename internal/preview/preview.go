// Package preview is a terminal scrubber for compositions: one bar per
// node window, a frame cursor, and what is mounted under it.
package preview

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"

	"github.com/ivlev/framereel/internal/effects"
	"github.com/ivlev/framereel/internal/timeline"
)

const nameWidth = 28

var (
	styleDefault = tcell.StyleDefault
	styleHeader  = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	styleWindow  = tcell.StyleDefault.Foreground(tcell.ColorTeal)
	styleActive  = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	styleCursor  = tcell.StyleDefault.Foreground(tcell.ColorWhite).Reverse(true)
	styleDim     = tcell.StyleDefault.Foreground(tcell.ColorGray)
)

// Model is the scrubber state: a composition and a frame.
type Model struct {
	Comp    *timeline.Composition
	Frame   int
	spans   []timeline.Span
	effects map[*timeline.Node]effects.Effect
}

// NewModel compiles the element effects so the active list can show
// opacity. Elements whose effect does not compile show no opacity.
func NewModel(comp *timeline.Composition) (*Model, error) {
	if err := comp.Validate(); err != nil {
		return nil, err
	}
	m := &Model{Comp: comp, spans: comp.Flatten(), effects: make(map[*timeline.Node]effects.Effect)}
	for _, s := range m.spans {
		el := s.Node.Element
		if el == nil {
			continue
		}
		eff, err := effects.New(el.Effect, effects.Spec{Motion: el.Motion, Duration: s.Node.Duration, FPS: comp.FPS})
		if err == nil {
			m.effects[s.Node] = eff
		}
	}
	return m, nil
}

// Seek moves the cursor by delta frames, staying inside the composition.
func (m *Model) Seek(delta int) {
	m.Frame = max(0, min(m.Comp.Duration-1, m.Frame+delta))
}

// HandleKey applies a key press and reports whether the user quit.
func (m *Model) HandleKey(ev *tcell.EventKey) bool {
	step := 1
	if ev.Modifiers()&tcell.ModShift != 0 {
		step = m.Comp.FPS
	}
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return true
	case tcell.KeyLeft:
		m.Seek(-step)
	case tcell.KeyRight:
		m.Seek(step)
	case tcell.KeyUp:
		m.Seek(m.Comp.FPS)
	case tcell.KeyDown:
		m.Seek(-m.Comp.FPS)
	case tcell.KeyHome:
		m.Frame = 0
	case tcell.KeyEnd:
		m.Frame = m.Comp.Duration - 1
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'q':
			return true
		case 'h':
			m.Seek(-1)
		case 'l':
			m.Seek(1)
		}
	}
	return false
}

// Run draws and handles events until the user quits. The caller owns the
// screen's Init and Fini.
func Run(s tcell.Screen, m *Model) {
	for {
		Draw(s, m)
		switch ev := s.PollEvent().(type) {
		case nil:
			return
		case *tcell.EventResize:
			s.Sync()
		case *tcell.EventKey:
			if m.HandleKey(ev) {
				return
			}
		}
	}
}

// Draw renders the model. It reads nothing but the composition and frame.
func Draw(s tcell.Screen, m *Model) {
	s.Clear()
	w, h := s.Size()
	comp := m.Comp

	header := fmt.Sprintf("frame %d/%d  %.2fs  %dx%d@%d", m.Frame, comp.Duration-1,
		timeline.FramesToSeconds(m.Frame, comp.FPS), comp.Width, comp.Height, comp.FPS)
	drawText(s, 0, 0, styleHeader, header)
	drawText(s, 0, 1, styleDim, "←/→ frame  shift/↑/↓ second  home/end  q quit")

	barX := nameWidth + 1
	barW := w - barX
	cursorCol := -1
	if barW > 0 {
		cursorCol = barX + m.Frame*barW/comp.Duration
	}

	row := 3
	for _, span := range m.spans {
		if row >= h {
			break
		}
		name := strings.Repeat(" ", span.Depth*2) + span.Node.Name
		active := span.Reachable && span.Effective.Contains(m.Frame)
		nameStyle := styleDefault
		if active {
			nameStyle = styleActive
		} else if !span.Reachable {
			nameStyle = styleDim
		}
		drawText(s, 0, row, nameStyle, truncate(name, nameWidth))

		for col := 0; col < barW; col++ {
			// Half-open column range of frames [lo, hi).
			lo := col * comp.Duration / barW
			hi := (col + 1) * comp.Duration / barW
			ch, st := '·', styleDim
			if span.Reachable && overlaps(span.Effective, lo, hi) {
				ch, st = '█', styleWindow
				if active {
					st = styleActive
				}
			}
			if barX+col == cursorCol {
				st = styleCursor
			}
			s.SetContent(barX+col, row, ch, nil, st)
		}
		row++
	}

	row++
	if row < h {
		drawText(s, 0, row, styleHeader, "active:")
		row++
	}
	for _, a := range comp.ActiveAt(m.Frame) {
		if row >= h {
			break
		}
		line := fmt.Sprintf("%-*s local %5d", nameWidth, truncate(a.Path, nameWidth), a.LocalFrame)
		if eff, ok := m.effects[a.Node]; ok {
			if st, present := eff.Evaluate(a.LocalFrame, 0); present {
				line += fmt.Sprintf("  opacity %.2f", st.Opacity)
			} else {
				line += "  hidden"
			}
		} else if a.Node.Audio != nil {
			line += "  audio " + a.Node.Audio.Src
		}
		drawText(s, 0, row, styleDefault, line)
		row++
	}
	s.Show()
}

func overlaps(w timeline.Window, lo, hi int) bool {
	if hi <= lo {
		hi = lo + 1
	}
	end, _ := w.End()
	return w.Start < hi && lo < end
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func drawText(s tcell.Screen, x, y int, style tcell.Style, text string) {
	for _, r := range text {
		s.SetContent(x, y, r, nil, style)
		x++
	}
}
