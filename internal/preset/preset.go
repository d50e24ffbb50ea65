package preset

import (
	"github.com/ModawnAI/hydra-compose-runpod/internal/models"
)

// StylePreset is an immutable bundle of style parameters selected by a
// caller-supplied vibe. The BPM range is descriptive only; the duration
// range bounds how long clips of this vibe normally run.
type StylePreset struct {
	Name               string                `json:"name"`
	BPMRange           [2]int                `json:"bpm_range"`
	Pacing             models.PacingStyle    `json:"cut_style"`
	BaseImageDuration  float64               `json:"base_cut_duration"`
	Transition         models.TransitionKind `json:"transition_type"`
	TransitionDuration float64               `json:"transition_duration"`
	Motion             models.MotionStyle    `json:"motion_style"`
	ColorGrade         models.ColorGrade     `json:"color_grade"`
	TextStyle          models.TextStyle      `json:"text_style"`
	Effects            []string              `json:"effects"`
	MinDuration        float64               `json:"min_duration"`
	MaxDuration        float64               `json:"max_duration"`
}

var presets = map[models.Vibe]StylePreset{
	models.VibeExciting: {
		Name:               "Exciting",
		BPMRange:           [2]int{120, 140},
		Pacing:             models.PacingFast,
		BaseImageDuration:  2.5,
		Transition:         models.TransitionZoomBeat,
		TransitionDuration: 0.15,
		Motion:             models.MotionZoomIn,
		ColorGrade:         models.GradeVibrant,
		TextStyle:          models.TextBoldPop,
		Effects:            []string{"shake_on_beat", "flash_transition", "glow"},
		MinDuration:        10,
		MaxDuration:        15,
	},
	models.VibePop: {
		Name:               "Pop",
		BPMRange:           [2]int{100, 120},
		Pacing:             models.PacingMedium,
		BaseImageDuration:  3.0,
		Transition:         models.TransitionBounce,
		TransitionDuration: 0.25,
		Motion:             models.MotionZoomOut,
		ColorGrade:         models.GradeBright,
		TextStyle:          models.TextSlideIn,
		Effects:            []string{"color_pop", "soft_glow"},
		MinDuration:        15,
		MaxDuration:        20,
	},
	models.VibeMinimal: {
		Name:               "Minimal",
		BPMRange:           [2]int{80, 120},
		Pacing:             models.PacingMedium,
		BaseImageDuration:  3.5,
		Transition:         models.TransitionCut,
		TransitionDuration: 0.0,
		Motion:             models.MotionStatic,
		ColorGrade:         models.GradeNatural,
		TextStyle:          models.TextMinimal,
		Effects:            nil,
		MinDuration:        15,
		MaxDuration:        25,
	},
	models.VibeEmotional: {
		Name:               "Emotional",
		BPMRange:           [2]int{60, 80},
		Pacing:             models.PacingSlow,
		BaseImageDuration:  4.5,
		Transition:         models.TransitionCrossfade,
		TransitionDuration: 1.0,
		Motion:             models.MotionPan,
		ColorGrade:         models.GradeCinematic,
		TextStyle:          models.TextFadeIn,
		Effects:            []string{"film_grain", "vignette", "slight_desaturate"},
		MinDuration:        20,
		MaxDuration:        30,
	},
}

// ByVibe returns the preset for a vibe. Unknown vibes fall back to Minimal;
// boundary validation already rejects them, so this is a safety net only.
func ByVibe(v models.Vibe) StylePreset {
	if p, ok := presets[v]; ok {
		return p
	}
	return presets[models.VibeMinimal]
}

// All returns every shipped preset, in a stable order.
func All() []StylePreset {
	return []StylePreset{
		presets[models.VibeExciting],
		presets[models.VibePop],
		presets[models.VibeMinimal],
		presets[models.VibeEmotional],
	}
}
