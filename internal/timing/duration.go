// Package timing holds the pure planning math for a compose job: how long
// the final video should run, where image cuts land relative to the audio's
// beat grid, and when caption lines appear on screen.
package timing

import (
	"github.com/ModawnAI/hydra-compose-runpod/internal/preset"
)

const (
	// MinImageDuration is the hard floor for any single image's screen time.
	MinImageDuration = 2.0
	// MaxImageDuration caps a single image's screen time.
	MaxImageDuration = 6.0
	// IdealPerImage is the target screen time per image when the caller
	// does not request an explicit duration.
	IdealPerImage = 3.0
)

// PlanDuration picks the target video duration for a job. requested <= 0
// means "no preference". forced reports that the image count could not fit
// the chosen duration at MinImageDuration per image and the floor won; the
// per-image minimum will be bent downstream.
func PlanDuration(p preset.StylePreset, imageCount int, audioDuration, requested float64) (target float64, forced bool) {
	minRequired := float64(imageCount) * MinImageDuration

	if requested > 0 {
		target = requested
		if target < minRequired {
			target = minRequired
		}
	} else {
		target = float64(imageCount) * IdealPerImage
		lo := p.MinDuration
		if minRequired > lo {
			lo = minRequired
		}
		if target < lo {
			target = lo
		}
	}

	if target > p.MaxDuration {
		target = p.MaxDuration
	}
	if target > audioDuration {
		target = audioDuration
	}

	// The clamps above can push below what the image count needs. Take the
	// smaller of the floor and the audio length and flag it so the caller
	// can log the bent per-image minimum.
	if target < minRequired {
		target = minRequired
		if target > audioDuration {
			target = audioDuration
		}
		forced = true
	}

	return target, forced
}
