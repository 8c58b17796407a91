package effects

import (
	"math"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// Particle is one steam puff on one frame, in element pixels.
type Particle struct {
	X, Y    float64
	Size    float64
	Opacity float64
}

type puff struct {
	startX, startY float64
	speed          float64
	wobbleFreq     float64
	wobbleAmp      float64
	size           float64
	opacity        float64
	phase          float64
}

// SteamField is a fixed set of rising, wobbling puffs. The puffs are drawn
// from seeded noise, so a field is the same on every run and every worker.
type SteamField struct {
	w, h  float64
	puffs []puff
}

const steamMargin = 200

func NewSteamField(w, h, count int, seed int64) *SteamField {
	if count <= 0 {
		count = 25
	}
	noise := opensimplex.NewNormalized(seed)
	// sample draws a value in [0,1) for puff i, property k.
	sample := func(i, k int) float64 {
		return noise.Eval2(float64(i)*1.618+0.5, float64(k)*7.31+0.25)
	}

	f := &SteamField{w: float64(w), h: float64(h), puffs: make([]puff, count)}
	for i := range f.puffs {
		f.puffs[i] = puff{
			startX:     sample(i, 0) * f.w,
			startY:     f.h + sample(i, 1)*steamMargin,
			speed:      0.8 + sample(i, 2)*1.2,
			wobbleFreq: 0.02 + sample(i, 3)*0.03,
			wobbleAmp:  20 + sample(i, 4)*40,
			size:       7 + sample(i, 5)*8,
			opacity:    0.05 + sample(i, 6)*0.12,
			phase:      sample(i, 7) * 2 * math.Pi,
		}
	}
	return f
}

// At places every puff on a local frame. Puffs wrap from the top back to
// below the bottom edge and fade out over the top rows.
func (f *SteamField) At(frame int) []Particle {
	fr := float64(frame)
	period := f.h + 2*steamMargin
	out := make([]Particle, len(f.puffs))
	for i, p := range f.puffs {
		y := p.startY - fr*p.speed
		y = math.Mod(math.Mod(y, period)+period, period) - steamMargin
		out[i] = Particle{
			X:       p.startX + math.Sin(fr*p.wobbleFreq+p.phase)*p.wobbleAmp,
			Y:       y,
			Size:    p.size,
			Opacity: p.opacity * topFade(y),
		}
	}
	return out
}

func topFade(y float64) float64 {
	return clamp(y/200, 0, 1)
}
