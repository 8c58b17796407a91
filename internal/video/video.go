// Package video drives ffmpeg: raw frames in, H.264 segments out, then one
// final file with the mixed audio.
package video

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/ivlev/framereel/internal/config"
)

// FrameSource renders absolute frames. Release is called once a frame has
// been written to the encoder.
type FrameSource interface {
	RenderFrame(frame int) (*image.RGBA, error)
	Release(img *image.RGBA)
}

type VideoEncoder interface {
	EncodeSegment(ctx context.Context, frames FrameSource, videoPath string, params config.SegmentParams, encoderName string, quality int) error
	Concatenate(ctx context.Context, segmentPaths []string, finalPath string, tmpDir string, audioPath string, cfg config.Config) error
}

type FFmpegEncoder struct{}

// EncodeSegment renders params.Count frames starting at params.First and
// pipes them to ffmpeg as raw RGBA.
func (e *FFmpegEncoder) EncodeSegment(
	ctx context.Context,
	frames FrameSource,
	videoPath string,
	params config.SegmentParams,
	encoderName string,
	quality int,
) error {
	args := e.buildFFmpegArgs(videoPath, params, encoderName, quality)

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe error: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("ffmpeg start error: %w", err)
	}

	writeErr := e.writeFrames(ctx, stdin, frames, params)
	stdin.Close()
	waitErr := cmd.Wait()

	if writeErr != nil {
		return fmt.Errorf("segment %d: %w", params.Index, writeErr)
	}
	if waitErr != nil {
		return fmt.Errorf("ffmpeg wait error: %w\n%s", waitErr, out.String())
	}
	return nil
}

func (e *FFmpegEncoder) writeFrames(ctx context.Context, w io.Writer, frames FrameSource, params config.SegmentParams) error {
	for f := params.First; f < params.Last(); f++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		img, err := frames.RenderFrame(f)
		if err != nil {
			return fmt.Errorf("render frame %d: %w", f, err)
		}
		err = writeRawRGBA(w, img)
		frames.Release(img)
		if err != nil {
			return fmt.Errorf("write frame %d: %w", f, err)
		}
	}
	return nil
}

func (e *FFmpegEncoder) buildFFmpegArgs(
	videoPath string,
	params config.SegmentParams,
	encoderName string,
	quality int,
) []string {
	args := []string{
		"-y",
		"-f", "rawvideo",
		"-pixel_format", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", params.Width, params.Height),
		"-framerate", strconv.Itoa(params.FPS),
		"-i", "-",
		"-frames:v", strconv.Itoa(params.Count),
		"-pix_fmt", "yuv420p",
		"-c:v", encoderName,
	}
	args = append(args, qualityArgs(encoderName, quality)...)
	args = append(args, videoPath)
	return args
}

// qualityArgs maps one 0-100-ish quality knob onto each encoder's own
// rate control.
func qualityArgs(encoderName string, quality int) []string {
	switch encoderName {
	case "h264_videotoolbox":
		// VideoToolbox does not take -q:v everywhere; use a bitrate. 75 -> 7.5 Mbit/s.
		return []string{"-b:v", fmt.Sprintf("%dk", quality*100)}
	case "h264_nvenc":
		return []string{"-cq", strconv.Itoa(quality)}
	default: // libx264
		return []string{"-crf", strconv.Itoa(quality), "-preset", "medium"}
	}
}

// writeRawRGBA writes tightly packed RGBA rows, copying only when the
// buffer has padding or a non-zero origin.
func writeRawRGBA(w io.Writer, img *image.RGBA) error {
	b := img.Bounds()
	if img.Stride == b.Dx()*4 && b.Min == (image.Point{}) {
		_, err := w.Write(img.Pix[:b.Dy()*img.Stride])
		return err
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		off := img.PixOffset(b.Min.X, y)
		if _, err := w.Write(img.Pix[off : off+b.Dx()*4]); err != nil {
			return err
		}
	}
	return nil
}

// Concatenate joins segments in order with the concat demuxer. Segments
// share codec settings, so the video is stream-copied; the mix, when
// present, is encoded to AAC alongside.
func (e *FFmpegEncoder) Concatenate(ctx context.Context, segmentPaths []string, finalPath string, tmpDir string, audioPath string, cfg config.Config) error {
	concatFilePath := filepath.Join(tmpDir, "inputs.txt")
	if err := writeConcatList(concatFilePath, segmentPaths); err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", concatArgs(concatFilePath, audioPath, finalPath)...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg concat error: %v, output: %s", err, string(out))
	}
	return nil
}

func concatArgs(listPath, audioPath, finalPath string) []string {
	args := []string{"-y", "-f", "concat", "-safe", "0", "-i", listPath}
	if audioPath == "" {
		return append(args, "-c", "copy", finalPath)
	}
	return append(args,
		"-i", audioPath,
		"-map", "0:v", "-map", "1:a",
		"-c:v", "copy", "-c:a", "aac", "-b:a", "192k",
		finalPath,
	)
}

func writeConcatList(path string, segmentPaths []string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	for _, p := range segmentPaths {
		absPath, err := filepath.Abs(p)
		if err != nil {
			f.Close()
			return err
		}
		fmt.Fprintf(f, "file '%s'\n", absPath)
	}
	return f.Close()
}
