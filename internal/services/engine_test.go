package services

import (
	"strings"
	"testing"

	"github.com/ModawnAI/hydra-compose-runpod/internal/models"
)

func TestBuildMotionFilter(t *testing.T) {
	tests := []struct {
		motion models.MotionStyle
		wants  []string
	}{
		{models.MotionZoomIn, []string{"zoompan", "1.0+0.25*on/"}},
		{models.MotionZoomOut, []string{"zoompan", "1.25-0.25*on/"}},
		{models.MotionPan, []string{"zoompan", "z='1.15'", "(iw-iw/zoom)*on/"}},
		{models.MotionStatic, []string{"zoompan", "z='1.0'"}},
	}
	for _, tt := range tests {
		vf := buildMotionFilter(tt.motion, 3.0, 1080, 1920)
		for _, want := range tt.wants {
			if !strings.Contains(vf, want) {
				t.Errorf("%s: filter %q missing %q", tt.motion, vf, want)
			}
		}
		if !strings.Contains(vf, "s=1080x1920") {
			t.Errorf("%s: filter missing output size: %q", tt.motion, vf)
		}
	}
}

func TestXfadeName(t *testing.T) {
	tests := []struct {
		kind models.TransitionKind
		want string
	}{
		{models.TransitionCrossfade, "fade"},
		{models.TransitionBounce, "smoothup"},
		{models.TransitionSlide, "slideleft"},
		{models.TransitionZoomBeat, "zoomin"},
	}
	for _, tt := range tests {
		if got := xfadeName(tt.kind); got != tt.want {
			t.Errorf("xfadeName(%s) = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestGradeFilter(t *testing.T) {
	if gradeFilter(models.GradeNatural) != "" {
		t.Error("natural grade should be a no-op")
	}
	for _, g := range []models.ColorGrade{
		models.GradeVibrant, models.GradeBright, models.GradeCinematic, models.GradeMoody,
	} {
		if gradeFilter(g) == "" {
			t.Errorf("grade %s produced no filter", g)
		}
	}
}

func TestVideoCodecArgs(t *testing.T) {
	gpu := &Engine{useNVENC: true}
	cpu := &Engine{useNVENC: false}

	gpuArgs := strings.Join(gpu.videoCodecArgs(), " ")
	if !strings.Contains(gpuArgs, "h264_nvenc") || !strings.Contains(gpuArgs, "-cq 19") {
		t.Errorf("unexpected NVENC profile: %s", gpuArgs)
	}

	cpuArgs := strings.Join(cpu.videoCodecArgs(), " ")
	if !strings.Contains(cpuArgs, "libx264") || !strings.Contains(cpuArgs, "-crf 20") {
		t.Errorf("unexpected libx264 profile: %s", cpuArgs)
	}
}

func TestEscapeFilterPath(t *testing.T) {
	got := escapeFilterPath(`C:\tmp\it's.ass`)
	if strings.Contains(got, "C:") && !strings.Contains(got, `C\:`) {
		t.Errorf("colon not escaped: %q", got)
	}
	if !strings.Contains(got, `\\`) {
		t.Errorf("backslash not escaped: %q", got)
	}
}

func TestTail(t *testing.T) {
	if got := tail("short", 10); got != "short" {
		t.Errorf("tail = %q", got)
	}
	long := strings.Repeat("a", 20) + "end"
	got := tail(long, 5)
	if !strings.HasPrefix(got, "...") || !strings.HasSuffix(got, "end") || len(got) != 8 {
		t.Errorf("tail = %q", got)
	}
}
