package preset

import (
	"testing"

	"github.com/ModawnAI/hydra-compose-runpod/internal/models"
)

func TestByVibe(t *testing.T) {
	tests := []struct {
		vibe       models.Vibe
		pacing     models.PacingStyle
		transition models.TransitionKind
		base       float64
	}{
		{models.VibeExciting, models.PacingFast, models.TransitionZoomBeat, 2.5},
		{models.VibePop, models.PacingMedium, models.TransitionBounce, 3.0},
		{models.VibeMinimal, models.PacingMedium, models.TransitionCut, 3.5},
		{models.VibeEmotional, models.PacingSlow, models.TransitionCrossfade, 4.5},
	}

	for _, tt := range tests {
		p := ByVibe(tt.vibe)
		if p.Pacing != tt.pacing {
			t.Errorf("%s: pacing = %q, want %q", tt.vibe, p.Pacing, tt.pacing)
		}
		if p.Transition != tt.transition {
			t.Errorf("%s: transition = %q, want %q", tt.vibe, p.Transition, tt.transition)
		}
		if p.BaseImageDuration != tt.base {
			t.Errorf("%s: base duration = %v, want %v", tt.vibe, p.BaseImageDuration, tt.base)
		}
		if p.MinDuration <= 0 || p.MaxDuration <= p.MinDuration {
			t.Errorf("%s: bad duration range [%v, %v]", tt.vibe, p.MinDuration, p.MaxDuration)
		}
	}
}

func TestByVibeUnknownFallsBack(t *testing.T) {
	p := ByVibe(models.Vibe("Glitch"))
	if p.Name != "Minimal" {
		t.Errorf("unknown vibe resolved to %q, want Minimal", p.Name)
	}
}

func TestAllStableOrder(t *testing.T) {
	all := All()
	if len(all) != 4 {
		t.Fatalf("All() returned %d presets, want 4", len(all))
	}
	want := []string{"Exciting", "Pop", "Minimal", "Emotional"}
	for i, name := range want {
		if all[i].Name != name {
			t.Errorf("All()[%d] = %q, want %q", i, all[i].Name, name)
		}
	}
}
