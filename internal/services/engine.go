package services

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/ModawnAI/hydra-compose-runpod/internal/models"
	"github.com/ModawnAI/hydra-compose-runpod/internal/timing"
)

// ---------------------------------------------------------------------------
// Render Engine
// Drives ffmpeg/ffprobe to turn still images plus an audio track into the
// final vertical video: per-image motion segments, transitions, audio mix
// with hook envelope and fades, color grade, subtitle burn-in, and the
// H.264 encode (NVENC when a GPU is present, libx264 otherwise).
// ---------------------------------------------------------------------------

const (
	videoFPS = 30

	// Hook envelope: the first two seconds of audio are ducked so the drop
	// hits harder.
	hookDuckSeconds = 2.0
	hookDuckVolume  = 0.7

	audioFadeIn  = 1.0
	audioFadeOut = 2.0
)

type Engine struct {
	tempDir  string
	useNVENC bool
}

func NewEngine(tempDir string, useNVENC bool) *Engine {
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		panic(fmt.Sprintf("failed to create temp dir: %v", err))
	}
	return &Engine{tempDir: tempDir, useNVENC: useNVENC}
}

// JobDir creates and returns a scratch directory for one job.
func (e *Engine) JobDir(jobID string) (string, error) {
	dir := filepath.Join(e.tempDir, jobID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create job dir: %w", err)
	}
	return dir, nil
}

// CleanupJob removes a job's scratch directory and everything in it.
func (e *Engine) CleanupJob(jobID string) {
	if err := os.RemoveAll(filepath.Join(e.tempDir, jobID)); err != nil {
		log.Printf("[Engine] [%s] cleanup failed: %v", jobID, err)
	}
}

// RenderSegment turns one still image into a motion video segment of the
// given duration at the target resolution.
func (e *Engine) RenderSegment(ctx context.Context, imagePath, outputPath string, duration float64, motion models.MotionStyle, width, height int) error {
	vf := buildMotionFilter(motion, duration, width, height)

	args := []string{
		"-i", imagePath,
		"-vf", vf,
		"-t", fmt.Sprintf("%.3f", duration),
		"-pix_fmt", "yuv420p",
		"-an",
	}
	args = append(args, e.videoCodecArgs()...)
	args = append(args, "-y", outputPath)

	if err := e.runFFmpeg(ctx, args); err != nil {
		return fmt.Errorf("ffmpeg segment render failed (motion=%s): %w", motion, err)
	}
	return nil
}

// buildMotionFilter constructs the zoompan-based filter chain for one
// segment. Images are first scaled with enough headroom that the pan/zoom
// never reveals an edge.
func buildMotionFilter(motion models.MotionStyle, duration float64, width, height int) string {
	totalFrames := int(duration*videoFPS) + 1
	if totalFrames < videoFPS {
		totalFrames = videoFPS
	}

	var zExpr, xExpr, yExpr string
	switch motion {
	case models.MotionZoomIn:
		zExpr = fmt.Sprintf("1.0+0.25*on/%d", totalFrames)
		xExpr = "iw/2-(iw/zoom/2)"
		yExpr = "ih/2-(ih/zoom/2)"
	case models.MotionZoomOut:
		zExpr = fmt.Sprintf("1.25-0.25*on/%d", totalFrames)
		xExpr = "iw/2-(iw/zoom/2)"
		yExpr = "ih/2-(ih/zoom/2)"
	case models.MotionPan:
		zExpr = "1.15"
		xExpr = fmt.Sprintf("(iw-iw/zoom)*on/%d", totalFrames)
		yExpr = "ih/2-(ih/zoom/2)"
	default: // static
		zExpr = "1.0"
		xExpr = "iw/2-(iw/zoom/2)"
		yExpr = "ih/2-(ih/zoom/2)"
	}

	// Oversample before zoompan so subpixel motion stays smooth, then crop
	// to the output frame.
	return fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d,zoompan=z='%s':x='%s':y='%s':d=%d:s=%dx%d:fps=%d",
		width*2, height*2, width*2, height*2,
		zExpr, xExpr, yExpr,
		totalFrames,
		width, height,
		videoFPS,
	)
}

// Concatenate joins rendered segments. Cut-style transitions use the
// stream-copy concat demuxer; crossfade-family transitions re-encode with
// xfade at each boundary.
func (e *Engine) Concatenate(ctx context.Context, segmentPaths []string, segments []timing.Segment, transition models.TransitionKind, transitionDuration float64, outputPath string) error {
	if len(segmentPaths) == 0 {
		return fmt.Errorf("no segments to concatenate")
	}
	if len(segmentPaths) == 1 {
		return copyFile(segmentPaths[0], outputPath)
	}

	if transition == models.TransitionCut || transitionDuration <= 0 {
		return e.concatCopy(ctx, segmentPaths, outputPath)
	}
	return e.concatXfade(ctx, segmentPaths, segments, transition, transitionDuration, outputPath)
}

func (e *Engine) concatCopy(ctx context.Context, segmentPaths []string, outputPath string) error {
	listPath := filepath.Join(filepath.Dir(outputPath), "concat_list.txt")
	f, err := os.Create(listPath)
	if err != nil {
		return fmt.Errorf("failed to create concat list: %w", err)
	}
	for _, p := range segmentPaths {
		fmt.Fprintf(f, "file '%s'\n", p)
	}
	f.Close()
	defer os.Remove(listPath)

	args := []string{
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		"-y", outputPath,
	}
	if err := e.runFFmpeg(ctx, args); err != nil {
		return fmt.Errorf("ffmpeg concat failed: %w", err)
	}
	return nil
}

func (e *Engine) concatXfade(ctx context.Context, segmentPaths []string, segments []timing.Segment, transition models.TransitionKind, td float64, outputPath string) error {
	args := make([]string, 0, len(segmentPaths)*2+8)
	for _, p := range segmentPaths {
		args = append(args, "-i", p)
	}

	xfade := xfadeName(transition)

	// Chain xfades pairwise; each transition eats td seconds of overlap, so
	// offsets accumulate against the shrinking running duration.
	var fc strings.Builder
	prev := "[0:v]"
	elapsed := segments[0].Duration()
	for i := 1; i < len(segmentPaths); i++ {
		out := fmt.Sprintf("[x%d]", i)
		if i == len(segmentPaths)-1 {
			out = "[v]"
		}
		offset := elapsed - td
		if offset < 0 {
			offset = 0
		}
		fc.WriteString(fmt.Sprintf("%s[%d:v]xfade=transition=%s:duration=%.3f:offset=%.3f%s;",
			prev, i, xfade, td, offset, out))
		prev = out
		elapsed = offset + td + segments[i].Duration() - td
	}
	filterComplex := strings.TrimSuffix(fc.String(), ";")

	args = append(args, "-filter_complex", filterComplex, "-map", "[v]")
	args = append(args, e.videoCodecArgs()...)
	args = append(args, "-pix_fmt", "yuv420p", "-y", outputPath)

	if err := e.runFFmpeg(ctx, args); err != nil {
		return fmt.Errorf("ffmpeg xfade concat failed (transition=%s): %w", transition, err)
	}
	return nil
}

// xfadeName maps a transition kind to the closest ffmpeg xfade transition.
func xfadeName(t models.TransitionKind) string {
	switch t {
	case models.TransitionCrossfade:
		return "fade"
	case models.TransitionBounce:
		return "smoothup"
	case models.TransitionSlide:
		return "slideleft"
	case models.TransitionZoomBeat:
		return "zoomin"
	default:
		return "fade"
	}
}

// ComposeOptions bundles the parameters of the final mux pass.
type ComposeOptions struct {
	VideoPath     string
	AudioPath     string
	SubtitlePath  string
	OutputPath    string
	AudioStart    float64
	VideoDuration float64
	Grade         models.ColorGrade
}

// Compose runs the final pass: trims the audio window, applies the hook
// envelope and fades, burns in subtitles, applies the color grade, and
// encodes the deliverable.
func (e *Engine) Compose(ctx context.Context, opts ComposeOptions) error {
	vf := gradeFilter(opts.Grade)
	if opts.SubtitlePath != "" {
		if vf != "" {
			vf += ","
		}
		vf += fmt.Sprintf("ass='%s'", escapeFilterPath(opts.SubtitlePath))
	}

	fadeOutStart := opts.VideoDuration - audioFadeOut
	if fadeOutStart < 0 {
		fadeOutStart = 0
	}
	af := fmt.Sprintf(
		"volume=enable='lt(t,%.1f)':volume=%.2f,afade=t=in:st=0:d=%.1f,afade=t=out:st=%.3f:d=%.1f",
		hookDuckSeconds, hookDuckVolume, audioFadeIn, fadeOutStart, audioFadeOut,
	)

	args := []string{
		"-i", opts.VideoPath,
		"-ss", fmt.Sprintf("%.3f", opts.AudioStart),
		"-t", fmt.Sprintf("%.3f", opts.VideoDuration),
		"-i", opts.AudioPath,
	}
	if vf != "" {
		args = append(args, "-vf", vf)
	}
	args = append(args,
		"-af", af,
		"-map", "0:v", "-map", "1:a",
		"-c:a", "aac",
		"-b:a", "192k",
		"-shortest",
	)
	args = append(args, e.videoCodecArgs()...)
	args = append(args, "-pix_fmt", "yuv420p", "-movflags", "+faststart", "-y", opts.OutputPath)

	if err := e.runFFmpeg(ctx, args); err != nil {
		return fmt.Errorf("ffmpeg compose failed: %w", err)
	}
	return nil
}

// gradeFilter maps a color grade to an eq/curves filter chain. Natural
// means no grading pass at all.
func gradeFilter(g models.ColorGrade) string {
	switch g {
	case models.GradeVibrant:
		return "eq=saturation=1.3:contrast=1.1"
	case models.GradeBright:
		return "eq=brightness=0.06:saturation=1.15"
	case models.GradeCinematic:
		return "curves=preset=medium_contrast,eq=saturation=0.9"
	case models.GradeMoody:
		return "eq=brightness=-0.05:saturation=0.8:contrast=1.15"
	default:
		return ""
	}
}

// videoCodecArgs returns the encoder profile. NVENC for GPU boxes, libx264
// elsewhere.
func (e *Engine) videoCodecArgs() []string {
	if e.useNVENC {
		return []string{
			"-c:v", "h264_nvenc",
			"-preset", "p4",
			"-tune", "hq",
			"-rc", "vbr",
			"-cq", "19",
			"-r", fmt.Sprintf("%d", videoFPS),
		}
	}
	return []string{
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "20",
		"-r", fmt.Sprintf("%d", videoFPS),
	}
}

// ProbeDuration returns a media file's duration in seconds via ffprobe.
func (e *Engine) ProbeDuration(ctx context.Context, path string) (float64, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}

	cmd := exec.CommandContext(ctx, "ffprobe", args...)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed for %s: %w", path, err)
	}

	var duration float64
	if _, err := fmt.Sscanf(strings.TrimSpace(string(output)), "%f", &duration); err != nil {
		return 0, fmt.Errorf("failed to parse duration: %w", err)
	}
	return duration, nil
}

func (e *Engine) runFFmpeg(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: %s", err, tail(stderr.String(), 500))
	}
	return nil
}

// escapeFilterPath escapes characters the ffmpeg filter parser treats
// specially in file paths.
func escapeFilterPath(path string) string {
	path = strings.ReplaceAll(path, "\\", "\\\\")
	path = strings.ReplaceAll(path, ":", "\\:")
	path = strings.ReplaceAll(path, "'", "'\\''")
	return path
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", src, err)
	}
	if err := os.WriteFile(dst, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", dst, err)
	}
	return nil
}

// tail returns the last n bytes of s for error messages.
func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
