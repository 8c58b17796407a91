// Package audio mixes the composition's audio nodes into one WAV track
// that the encoder muxes under the video.
package audio

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/mp3"
	"github.com/gopxl/beep/wav"

	"github.com/ivlev/framereel/internal/animation"
	"github.com/ivlev/framereel/internal/timeline"
)

const SampleRate = beep.SampleRate(48000)

// resampleQuality is beep's interpolation window; 4 is its recommended default.
const resampleQuality = 4

// Track is an audio node placed on the absolute timeline. Origin is the
// node's own start (its local frame 0); Start and Duration are the part of
// the window its ancestors let play. A window clipped at the front skips
// the source by the same lead.
type Track struct {
	Path     string
	Origin   int
	Start    int
	Duration *int // nil plays until the source or the composition ends
	Rate     float64
	Volume   float64
	envelope *animation.Curve // over local frames
}

// Lead is how many local frames were cut from the front of the window.
func (t Track) Lead() int {
	return t.Start - t.Origin
}

// Tracks lists the audio nodes that can ever play, each clipped by its
// ancestors' windows.
func Tracks(comp *timeline.Composition) []Track {
	var out []Track
	for _, s := range comp.Flatten() {
		a := s.Node.Audio
		if a == nil || !s.Reachable {
			continue
		}
		t := Track{
			Path:     a.Src,
			Origin:   s.Window.Start,
			Start:    s.Effective.Start,
			Duration: s.Effective.Duration,
			Rate:     a.PlaybackRate,
			Volume:   a.Volume,
		}
		if t.Rate == 0 {
			t.Rate = 1
		}
		if t.Volume == 0 {
			t.Volume = 1
		}

		// Fades are measured on the node's own window, not the clipped one.
		length := -1
		switch {
		case s.Window.Duration != nil:
			length = *s.Window.Duration
		case t.Duration != nil:
			length = t.Lead() + *t.Duration
		}
		switch {
		case length >= 0 && (a.FadeIn > 0 || a.FadeOut > 0):
			t.envelope = animation.FadeEnvelope(float64(length), float64(a.FadeIn), float64(a.FadeOut))
		case a.FadeIn > 0:
			t.envelope = animation.MustCurve([]float64{0, float64(a.FadeIn)}, []float64{0, 1}, animation.Clamped)
		}
		out = append(out, t)
	}
	return out
}

// Gain is the track's amplitude factor on an absolute, possibly
// fractional, frame. It is zero outside the playable window.
func (t Track) Gain(frame float64) float64 {
	if frame < float64(t.Start) || (t.Duration != nil && frame >= float64(t.Start+*t.Duration)) {
		return 0
	}
	if t.envelope == nil {
		return t.Volume
	}
	return t.Volume * t.envelope.At(frame-float64(t.Origin))
}

// gained applies a track's gain sample by sample.
type gained struct {
	s     beep.Streamer
	track Track
	spf   float64 // output samples per video frame
	pos   int
}

func (g *gained) Stream(samples [][2]float64) (int, bool) {
	n, ok := g.s.Stream(samples)
	for i := 0; i < n; i++ {
		gain := g.track.Gain(float64(g.track.Start) + float64(g.pos)/g.spf)
		samples[i][0] *= gain
		samples[i][1] *= gain
		g.pos++
	}
	return n, ok
}

func (g *gained) Err() error { return g.s.Err() }

// Mix writes the composition's audio as 16-bit stereo WAV. It reports
// false, writing nothing, when the composition has no audio.
func Mix(comp *timeline.Composition, root string, w io.WriteSeeker) (bool, error) {
	tracks := Tracks(comp)
	if len(tracks) == 0 {
		return false, nil
	}

	spf := float64(SampleRate) / float64(comp.FPS)
	mixer := &beep.Mixer{}
	var closers []io.Closer
	defer func() {
		for _, c := range closers {
			c.Close()
		}
	}()

	for _, t := range tracks {
		path := t.Path
		if !filepath.IsAbs(path) && root != "" {
			path = filepath.Join(root, path)
		}
		s, format, err := decode(path)
		if err != nil {
			return false, fmt.Errorf("audio %s: %w", t.Path, err)
		}
		closers = append(closers, s)

		if lead := t.Lead(); lead > 0 {
			skip := int(math.Round(float64(lead) / float64(comp.FPS) * t.Rate * float64(format.SampleRate)))
			if err := s.Seek(min(skip, s.Len())); err != nil {
				return false, fmt.Errorf("audio %s: skip clipped lead: %w", t.Path, err)
			}
		}

		var stream beep.Streamer = s
		ratio := float64(format.SampleRate) / float64(SampleRate) * t.Rate
		if ratio != 1 {
			stream = beep.ResampleRatio(resampleQuality, ratio, stream)
		}
		stream = &gained{s: stream, track: t, spf: spf}
		if t.Duration != nil {
			stream = beep.Take(int(math.Round(float64(*t.Duration)*spf)), stream)
		}
		mixer.Add(beep.Seq(beep.Silence(int(math.Round(float64(t.Start)*spf))), stream))
	}

	total := int(math.Round(float64(comp.Duration) * spf))
	format := beep.Format{SampleRate: SampleRate, NumChannels: 2, Precision: 2}
	if err := wav.Encode(w, beep.Take(total, mixer), format); err != nil {
		return false, fmt.Errorf("encode mix: %w", err)
	}
	return true, nil
}

// MixToFile is Mix into a new file at path.
func MixToFile(comp *timeline.Composition, root, path string) (bool, error) {
	f, err := os.Create(path)
	if err != nil {
		return false, err
	}
	ok, err := Mix(comp, root, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil || !ok {
		os.Remove(path)
	}
	return ok, err
}

func decode(path string) (beep.StreamSeekCloser, beep.Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, beep.Format{}, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		s, format, err := wav.Decode(f)
		if err != nil {
			f.Close()
		}
		return s, format, err
	case ".mp3":
		return mp3.Decode(f)
	default:
		f.Close()
		return nil, beep.Format{}, fmt.Errorf("unsupported audio format %s", filepath.Ext(path))
	}
}
