package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gdamore/tcell/v2"

	"github.com/ivlev/framereel/internal/analyzer"
	"github.com/ivlev/framereel/internal/animation"
	"github.com/ivlev/framereel/internal/config"
	"github.com/ivlev/framereel/internal/director"
	"github.com/ivlev/framereel/internal/engine"
	"github.com/ivlev/framereel/internal/history"
	"github.com/ivlev/framereel/internal/preview"
	"github.com/ivlev/framereel/internal/source"
	"github.com/ivlev/framereel/internal/system"
	"github.com/ivlev/framereel/internal/timeline"
)

var buildVersion = "dev"

const (
	compositionsDir = "compositions"
	outputDir       = "output"
	historyFile     = "output/history.db"
)

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: framereel <command> [flags]

Commands:
  render    render a composition to video
  still     render one frame to PNG
  inspect   print node windows, crossfades and warnings
  preview   scrub a composition in the terminal
  presets   list spring presets and their settle time
  history   list recent renders
  tour      write a composition touring the content of a PDF page or image
`)
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	cmd, args := os.Args[1], os.Args[2:]

	var err error
	switch cmd {
	case "render":
		err = runRender(args)
	case "still":
		err = runStill(args)
	case "inspect":
		err = runInspect(args)
	case "preview":
		err = runPreview(args)
	case "presets":
		err = runPresets(args)
	case "history":
		err = runHistory(args)
	case "tour":
		err = runTour(args)
	case "-h", "--help", "help":
		usage()
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("[-] Error: %v", err)
	}
}

// compositionArg returns the composition named on the command line or the
// newest one in compositions/.
func compositionArg(fs *flag.FlagSet) (string, error) {
	if fs.NArg() > 0 {
		return fs.Arg(0), nil
	}
	latest, err := timeline.LatestComposition(compositionsDir)
	if err != nil {
		return "", fmt.Errorf("%v: pass a composition or put one in %s/", err, compositionsDir)
	}
	fmt.Printf("[*] Using composition: %s\n", latest)
	return latest, nil
}

func runRender(args []string) error {
	fs := flag.NewFlagSet("render", flag.ExitOnError)
	outputPtr := fs.String("output", "", "Output video (default: generated in output/)")
	assetsPtr := fs.String("assets", "", "Asset directory (default: the composition's directory)")
	workersPtr := fs.Int("workers", 0, "Parallel segments (0: sized from CPU and free memory)")
	segmentPtr := fs.Int("segment", 0, "Frames per segment (0: two seconds)")
	dpiPtr := fs.Int("dpi", 150, "PDF rasterization DPI")
	qualityPtr := fs.Int("quality", 0, "Video quality (0: auto; x264: CRF 1-51, VideoToolbox: bitrate = Q*100kbit/s)")
	encoderPtr := fs.String("encoder", "", "ffmpeg H.264 encoder (default: best available)")
	statsPtr := fs.Bool("stats", false, "Print a performance report")
	historyPtr := fs.String("history", historyFile, "Run history database (empty disables)")
	fs.Parse(args)

	system.InitResourceLimits()
	os.MkdirAll(outputDir, 0755)

	compPath, err := compositionArg(fs)
	if err != nil {
		return err
	}

	finalOutput := *outputPtr
	if finalOutput == "" {
		base := strings.TrimSuffix(filepath.Base(compPath), filepath.Ext(compPath))
		cleanName := strings.ReplaceAll(base, " ", "_")
		timestamp := time.Now().Format("2006-01-02_15-04-05")
		finalOutput = filepath.Join(outputDir, fmt.Sprintf("%s_%s.mp4", cleanName, timestamp))
	}

	encoderName := *encoderPtr
	if encoderName == "" {
		encoderName = system.GetBestH264Encoder()
		if encoderName != "libx264" {
			fmt.Printf("[*] Hardware acceleration detected: %s\n", encoderName)
		}
	}

	quality := *qualityPtr
	if quality == 0 {
		switch encoderName {
		case "h264_videotoolbox":
			quality = 75
		case "h264_nvenc":
			quality = 28
		default:
			quality = 23
		}
	}

	cfg := &config.Config{
		CompositionPath: compPath,
		AssetsDir:       *assetsPtr,
		OutputVideo:     finalOutput,
		Workers:         *workersPtr,
		SegmentFrames:   *segmentPtr,
		DPI:             *dpiPtr,
		VideoEncoder:    encoderName,
		Quality:         quality,
		ShowStats:       *statsPtr,
		HistoryPath:     *historyPtr,
		BuildVersion:    buildVersion,
	}

	project, err := engine.Load(cfg)
	if err != nil {
		return err
	}
	if cfg.HistoryPath != "" {
		db, err := history.Open(cfg.HistoryPath)
		if err != nil {
			log.Printf("[!] Run history disabled: %v", err)
		} else {
			defer db.Close()
			project.History = db
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return project.Run(ctx)
}

func runStill(args []string) error {
	fs := flag.NewFlagSet("still", flag.ExitOnError)
	framePtr := fs.Int("frame", 0, "Frame to render")
	outputPtr := fs.String("output", "", "Output PNG (default: output/<name>_<frame>.png)")
	assetsPtr := fs.String("assets", "", "Asset directory (default: the composition's directory)")
	dpiPtr := fs.Int("dpi", 150, "PDF rasterization DPI")
	fs.Parse(args)

	compPath, err := compositionArg(fs)
	if err != nil {
		return err
	}
	project, err := engine.Load(&config.Config{CompositionPath: compPath, AssetsDir: *assetsPtr, DPI: *dpiPtr})
	if err != nil {
		return err
	}

	out := *outputPtr
	if out == "" {
		os.MkdirAll(outputDir, 0755)
		base := strings.TrimSuffix(filepath.Base(compPath), filepath.Ext(compPath))
		out = filepath.Join(outputDir, fmt.Sprintf("%s_%05d.png", base, *framePtr))
	}
	if err := project.Still(*framePtr, out); err != nil {
		return err
	}
	fmt.Printf("[+++] Frame %d: %s\n", *framePtr, out)
	return nil
}

func runInspect(args []string) error {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	framePtr := fs.Int("frame", -1, "Also list the nodes mounted at this frame")
	fs.Parse(args)

	compPath, err := compositionArg(fs)
	if err != nil {
		return err
	}
	comp, err := timeline.ReadComposition(compPath)
	if err != nil {
		return err
	}

	fmt.Printf("[*] %s: %dx%d @ %d FPS, %s frames (%.2fs)\n", compPath, comp.Width, comp.Height, comp.FPS,
		humanize.Comma(int64(comp.Duration)), timeline.FramesToSeconds(comp.Duration, comp.FPS))
	fmt.Println("--- [NODES] ---")
	for _, s := range comp.Flatten() {
		kind := "group"
		switch {
		case s.Node.Element != nil:
			kind = s.Node.Element.Type
			if s.Node.Element.Effect != "" {
				kind += "/" + s.Node.Element.Effect
			}
		case s.Node.Audio != nil:
			kind = "audio"
		}
		eff := s.Effective.String()
		if !s.Reachable {
			eff = "never"
		}
		fmt.Printf("%-40s %-22s declared %-14s effective %s\n",
			strings.Repeat("  ", s.Depth)+s.Node.Name, kind, s.Window, eff)
	}

	if xs := comp.Crossfades(); len(xs) > 0 {
		fmt.Println("--- [CROSSFADES] ---")
		for _, o := range xs {
			fmt.Printf("%s x %s: %s\n", o.A, o.B, o.Window)
		}
	}
	for _, w := range comp.Warnings() {
		log.Printf("[!] %s", w)
	}

	if *framePtr >= 0 {
		fmt.Printf("--- [FRAME %d] ---\n", *framePtr)
		for _, a := range comp.ActiveAt(*framePtr) {
			fmt.Printf("%-40s start %5d local %5d\n", a.Path, a.Start, a.LocalFrame)
		}
	}
	return nil
}

func runPreview(args []string) error {
	fs := flag.NewFlagSet("preview", flag.ExitOnError)
	framePtr := fs.Int("frame", 0, "Starting frame")
	fs.Parse(args)

	compPath, err := compositionArg(fs)
	if err != nil {
		return err
	}
	comp, err := timeline.ReadComposition(compPath)
	if err != nil {
		return err
	}
	m, err := preview.NewModel(comp)
	if err != nil {
		return err
	}
	m.Seek(*framePtr)

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("terminal: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("terminal: %w", err)
	}
	defer screen.Fini()
	preview.Run(screen, m)
	return nil
}

func runPresets(args []string) error {
	fs := flag.NewFlagSet("presets", flag.ExitOnError)
	fpsPtr := fs.Int("fps", 30, "Frame rate to measure at")
	thresholdPtr := fs.Float64("threshold", animation.DefaultSettleThreshold, "Settle threshold")
	fs.Parse(args)

	names := append([]string{""}, animation.PresetNames()...)
	for _, name := range names {
		cfg, err := animation.Preset(name)
		if err != nil {
			return err
		}
		frames, err := animation.MeasureSpring(*fpsPtr, cfg, *thresholdPtr)
		if err != nil {
			return err
		}
		if name == "" {
			name = "default"
		}
		fmt.Printf("%-8s damping %5.1f stiffness %6.1f mass %4.2f  zeta %.2f  settles in %3d frames (%.2fs)\n",
			name, cfg.Damping, cfg.Stiffness, cfg.Mass, cfg.DampingRatio(), frames,
			timeline.FramesToSeconds(frames, *fpsPtr))
	}
	return nil
}

func runHistory(args []string) error {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	dbPtr := fs.String("db", historyFile, "Run history database")
	limitPtr := fs.Int("n", 20, "Number of runs")
	fs.Parse(args)

	db, err := history.Open(*dbPtr)
	if err != nil {
		return err
	}
	defer db.Close()

	if fs.NArg() > 0 {
		r, err := db.Get(fs.Arg(0))
		if err != nil {
			return err
		}
		fmt.Printf("ID:          %s\nComposition: %s\nOutput:      %s\nStarted:     %s\nFrames:      %s @ %d FPS\n"+
			"Workers:     %d (%s)\nBuild:       %s\nRender:      %.2fs\nTotal:       %.2fs (%.2f FPS)\nStatus:      %s %s\n",
			r.ID, r.Composition, r.Output, r.Started().Format(time.RFC3339), humanize.Comma(int64(r.Frames)), r.FPS,
			r.Workers, r.Encoder, r.Build, r.RenderSeconds, r.TotalSeconds, r.FPSAchieved(), r.Status, r.Error)
		return nil
	}

	runs, err := db.Recent(*limitPtr)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("[*] No runs recorded")
		return nil
	}
	for _, r := range runs {
		fmt.Printf("%s  %-16s %-6s %8s frames %7.2fs %6.1f FPS  %s\n",
			r.ID[:8], humanize.Time(r.Started()), r.Status, humanize.Comma(int64(r.Frames)),
			r.TotalSeconds, r.FPSAchieved(), r.Composition)
	}
	return nil
}

func runTour(args []string) error {
	fs := flag.NewFlagSet("tour", flag.ExitOnError)
	pagePtr := fs.Int("page", 0, "Page index (PDF or image directory)")
	secondsPtr := fs.Float64("seconds", 10, "Length of the tour")
	fpsPtr := fs.Int("fps", 30, "FPS")
	widthPtr := fs.Int("width", 1280, "Width")
	heightPtr := fs.Int("height", 720, "Height")
	dpiPtr := fs.Int("dpi", 150, "PDF rasterization DPI")
	detectorPtr := fs.String("detector", "contrast", "Content detector")
	outputPtr := fs.String("output", "", "Composition file (default: compositions/<name>_tour.yaml)")
	fs.Parse(args)

	arg := fs.Arg(0)
	if arg == "" {
		latest, err := system.FindLatest("input", ".pdf", ".png", ".jpg", ".jpeg")
		if err != nil {
			return fmt.Errorf("%v: pass a PDF or image", err)
		}
		fmt.Printf("[*] Using source: %s\n", latest)
		arg = latest
	}
	srcPath, err := filepath.Abs(arg)
	if err != nil {
		return err
	}
	det, err := analyzer.NewDetector(*detectorPtr)
	if err != nil {
		return err
	}

	img, err := source.NewCache(filepath.Dir(srcPath), *dpiPtr).Page(filepath.Base(srcPath), *pagePtr)
	if err != nil {
		return err
	}
	frames := timeline.SecondsToFrames(*secondsPtr, *fpsPtr)
	shots, err := director.New(*fpsPtr).Plan(det, img, frames)
	if err != nil {
		return err
	}
	fmt.Printf("[*] Page %d: %dx%d, %d shots over %d frames\n", *pagePtr, img.Bounds().Dx(), img.Bounds().Dy(), len(shots), frames)

	kind := "image"
	if strings.EqualFold(filepath.Ext(srcPath), ".pdf") {
		kind = "document"
	}
	base := strings.TrimSuffix(filepath.Base(srcPath), filepath.Ext(srcPath))
	comp := &timeline.Composition{
		Version:    "1",
		ID:         strings.ReplaceAll(base, " ", "_") + "_tour",
		FPS:        *fpsPtr,
		Width:      *widthPtr,
		Height:     *heightPtr,
		Duration:   frames,
		Background: "#000000",
		Nodes: []*timeline.Node{{
			Name: "page",
			Element: &timeline.Element{
				Type:   kind,
				Src:    srcPath,
				Page:   *pagePtr,
				Camera: shots,
			},
		}},
	}

	out := *outputPtr
	if out == "" {
		os.MkdirAll(compositionsDir, 0755)
		out = filepath.Join(compositionsDir, comp.ID+".yaml")
	}
	if err := timeline.WriteComposition(comp, out); err != nil {
		return err
	}
	fmt.Printf("[+++] Composition written: %s\n", out)
	return nil
}
