// Package engine runs a whole render: frames in parallel segments, audio
// mixdown, final assembly, stats and history.
package engine

import (
	"context"
	"fmt"
	"image/png"
	"log"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/ivlev/framereel/internal/audio"
	"github.com/ivlev/framereel/internal/config"
	"github.com/ivlev/framereel/internal/history"
	"github.com/ivlev/framereel/internal/render"
	"github.com/ivlev/framereel/internal/source"
	"github.com/ivlev/framereel/internal/system"
	"github.com/ivlev/framereel/internal/timeline"
	"github.com/ivlev/framereel/internal/video"
)

type Project struct {
	Config   *config.Config
	Comp     *timeline.Composition
	Renderer *render.Renderer
	Encoder  video.VideoEncoder
	History  *history.DB // nil disables run history
	tempDir  string
}

func NewProject(cfg *config.Config, comp *timeline.Composition, r *render.Renderer, ve video.VideoEncoder) *Project {
	return &Project{
		Config:   cfg,
		Comp:     comp,
		Renderer: r,
		Encoder:  ve,
	}
}

// Load reads the composition named by cfg and compiles it for rendering.
func Load(cfg *config.Config) (*Project, error) {
	comp, err := timeline.ReadComposition(cfg.CompositionPath)
	if err != nil {
		return nil, fmt.Errorf("read composition: %w", err)
	}
	if cfg.AssetsDir == "" {
		cfg.AssetsDir = filepath.Dir(cfg.CompositionPath)
	}
	r, err := render.New(comp, source.NewCache(cfg.AssetsDir, cfg.DPI))
	if err != nil {
		return nil, err
	}
	return NewProject(cfg, comp, r, &video.FFmpegEncoder{}), nil
}

// Run renders the composition to cfg.OutputVideo.
func (p *Project) Run(ctx context.Context) (err error) {
	startTime := time.Now()
	cfg := p.Config
	comp := p.Comp

	run := &history.Run{
		Composition: cfg.CompositionPath,
		Output:      cfg.OutputVideo,
		Frames:      comp.Duration,
		FPS:         comp.FPS,
		Build:       cfg.BuildVersion,
		StartedUnix: startTime.UnixNano(),
	}
	defer func() { p.record(run, startTime, err) }()

	p.tempDir, err = os.MkdirTemp("", "framereel_")
	if err != nil {
		return err
	}
	defer os.RemoveAll(p.tempDir)

	workers := cfg.Workers
	if workers <= 0 {
		workers = system.ReadHostStats().DefaultWorkers(comp.Width * comp.Height * 4)
	}
	encoder := cfg.VideoEncoder
	if encoder == "" {
		encoder = "libx264"
	}
	segFrames := cfg.SegmentFrames
	if segFrames <= 0 {
		segFrames = comp.FPS * 2
	}
	segments := config.Segments(comp.Duration, segFrames, comp.Width, comp.Height, comp.FPS)
	run.Workers, run.Encoder = workers, encoder

	fmt.Println("--- [PROJECT: FRAMEREEL] ---")
	fmt.Printf("[*] Composition: %s | Frames: %s (%.2fs)\n", cfg.CompositionPath, humanize.Comma(int64(comp.Duration)), timeline.FramesToSeconds(comp.Duration, comp.FPS))
	fmt.Printf("[*] Resolution: %dx%d @ %d FPS | Segments: %d | Workers: %d | Encoder: %s\n",
		comp.Width, comp.Height, comp.FPS, len(segments), workers, encoder)
	fmt.Println("-----------------------------")
	for _, w := range comp.Warnings() {
		log.Printf("[!] %s", w)
	}

	results := make([]string, len(segments))
	var done atomic.Int32
	var audioPath string

	renderStart := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	g.Go(func() error {
		path := filepath.Join(p.tempDir, "mix.wav")
		ok, err := audio.MixToFile(comp, cfg.AssetsDir, path)
		if err != nil {
			return fmt.Errorf("audio mixdown: %w", err)
		}
		if ok {
			audioPath = path
			fmt.Println("[*] Audio mixed")
		}
		return nil
	})

	for i, seg := range segments {
		i, seg := i, seg // per-iteration copies; go.mod targets go1.21 loop semantics
		g.Go(func() error {
			segPath := filepath.Join(p.tempDir, fmt.Sprintf("s%04d.mp4", i))
			if err := p.Encoder.EncodeSegment(gctx, p.Renderer, segPath, seg, encoder, cfg.Quality); err != nil {
				return fmt.Errorf("segment %d [%d, %d): %w", i, seg.First, seg.Last(), err)
			}
			results[i] = segPath
			fmt.Printf("[>] Ready: %d/%d\n", done.Add(1), len(segments))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	renderTime := time.Since(renderStart)

	fmt.Println("[*] Assembling the final video...")
	concatStart := time.Now()
	if err := p.Encoder.Concatenate(ctx, results, cfg.OutputVideo, p.tempDir, audioPath, *cfg); err != nil {
		return fmt.Errorf("final assembly failed: %w", err)
	}
	concatTime := time.Since(concatStart)
	run.RenderSeconds = renderTime.Seconds()

	if cfg.ShowStats {
		totalTime := time.Since(startTime)
		size := "?"
		if fi, err := os.Stat(cfg.OutputVideo); err == nil {
			size = humanize.Bytes(uint64(fi.Size()))
		}
		fmt.Printf("--- [PERFORMANCE REPORT] ---\n"+
			"Build: %s\n"+
			"Host: %s\n"+
			"Total Time: %.2fs\n"+
			"Rendering + Encoding: %.2fs\n"+
			"Concatenation: %.2fs\n"+
			"Effective FPS: %.2f\n"+
			"Output: %s (%s)\n"+
			"----------------------------\n",
			cfg.BuildVersion, system.ReadHostStats(), totalTime.Seconds(), renderTime.Seconds(),
			concatTime.Seconds(), float64(comp.Duration)/totalTime.Seconds(), cfg.OutputVideo, size,
		)
	}

	fmt.Printf("[+++] Done: %s\n", cfg.OutputVideo)
	return nil
}

func (p *Project) record(run *history.Run, start time.Time, err error) {
	if p.History == nil {
		return
	}
	run.TotalSeconds = time.Since(start).Seconds()
	run.Status = history.StatusOK
	if err != nil {
		run.Status = history.StatusFailed
		run.Error = err.Error()
	}
	if rerr := p.History.Record(run); rerr != nil {
		log.Printf("[!] Could not record run history: %v", rerr)
	}
}

// Still renders one frame to a PNG. Any frame can be rendered on its own.
func (p *Project) Still(frame int, path string) error {
	img, err := p.Renderer.RenderFrame(frame)
	if err != nil {
		return err
	}
	defer p.Renderer.Release(img)

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode png: %w", err)
	}
	return f.Close()
}
