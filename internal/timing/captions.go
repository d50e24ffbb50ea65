package timing

import (
	"github.com/ModawnAI/hydra-compose-runpod/internal/models"
)

const (
	// MinSubtitleDuration is the shortest a retimed caption line may show.
	MinSubtitleDuration = 1.5
	// MaxSubtitleDuration caps a retimed caption line's screen time.
	MaxSubtitleDuration = 4.0
	// SubtitleGap is the preferred silence between consecutive lines; under
	// pressure it compresses down to its 0.2s floor.
	SubtitleGap = 0.5

	captionLead    = 0.3
	trailingMargin = 0.3
	windowMargin   = 0.5
	dropThreshold  = 1.0
)

// RetimeCaptions redistributes caption lines across the final video
// duration, discarding the incoming timings. Lines that cannot keep at
// least one second of screen time near the end of the video are dropped.
func RetimeCaptions(lines []models.CaptionLine, videoDuration float64) []models.CaptionLine {
	if len(lines) == 0 {
		return nil
	}

	if len(lines) == 1 {
		dur := videoDuration - 1.0
		if dur > MaxSubtitleDuration {
			dur = MaxSubtitleDuration
		}
		return []models.CaptionLine{{Text: lines[0].Text, Start: 0.5, Duration: dur}}
	}

	n := float64(len(lines))
	available := videoDuration - windowMargin
	gap := SubtitleGap
	gaps := (n - 1) * gap

	per := (available - gaps) / n
	if per < MinSubtitleDuration {
		per = MinSubtitleDuration
	}
	if per > MaxSubtitleDuration {
		per = MaxSubtitleDuration
	}

	// If even the minimum duration overflows the window, shrink the gaps
	// instead of the lines, down to the gap floor.
	if per*n+gaps > available {
		per = MinSubtitleDuration
		gap = (available - per*n) / (n - 1)
		if gap < 0.2 {
			gap = 0.2
		}
	}

	out := make([]models.CaptionLine, 0, len(lines))
	current := captionLead
	for _, line := range lines {
		start := current
		dur := per
		if start+dur > videoDuration-trailingMargin {
			dur = videoDuration - trailingMargin - start
			if dur < dropThreshold {
				continue
			}
		}
		out = append(out, models.CaptionLine{Text: line.Text, Start: start, Duration: dur})
		current = start + dur + gap
	}
	return out
}
