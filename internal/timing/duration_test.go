package timing

import (
	"testing"

	"github.com/ModawnAI/hydra-compose-runpod/internal/models"
	"github.com/ModawnAI/hydra-compose-runpod/internal/preset"
)

func TestPlanDuration(t *testing.T) {
	pop := preset.ByVibe(models.VibePop)           // 15-20s
	exciting := preset.ByVibe(models.VibeExciting) // 10-15s

	tests := []struct {
		name       string
		preset     preset.StylePreset
		images     int
		audio      float64
		requested  float64
		want       float64
		wantForced bool
	}{
		{"ideal fits range", pop, 6, 60, 0, 18, false},
		{"ideal clamped to preset max", pop, 8, 60, 0, 20, false},
		{"ideal raised to preset min", pop, 3, 60, 0, 15, false},
		{"requested honored", pop, 5, 60, 16, 16, false},
		{"requested raised to image floor", pop, 9, 60, 12, 18, false},
		{"requested capped by audio", pop, 5, 14, 18, 14, false},
		{"audio shorter than floor forces", exciting, 6, 10, 0, 10, true},
		{"floor beats preset max", exciting, 8, 60, 0, 16, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, forced := PlanDuration(tt.preset, tt.images, tt.audio, tt.requested)
			if got != tt.want {
				t.Errorf("target = %v, want %v", got, tt.want)
			}
			if forced != tt.wantForced {
				t.Errorf("forced = %v, want %v", forced, tt.wantForced)
			}
		})
	}
}
