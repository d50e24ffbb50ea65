package services

import (
	"fmt"
	"os"
	"strings"

	"github.com/ModawnAI/hydra-compose-runpod/internal/models"
)

// ---------------------------------------------------------------------------
// ASS Caption Generator
// Renders retimed caption lines into an ASS (Advanced SubStation Alpha)
// file for ffmpeg burn-in. The visual treatment follows the job's text
// style: bold_pop gets heavy outlined uppercase, fade_in gets soft \fad
// transitions, slide_in enters from the side, minimal is plain.
// ---------------------------------------------------------------------------

const (
	captionFontName = "Noto Sans"

	// ASS colors are &HAABBGGRR (hex, BGR not RGB)
	assColorWhite     = "&H00FFFFFF"
	assColorBlack     = "&H00000000"
	assColorSemiBlack = "&H80000000"
	assColorYellow    = "&H0000E5FF" // #FFE500 in BGR
)

type assStyle struct {
	fontSize int
	primary  string
	outline  int
	bold     int
	marginV  int
	effect   string // per-line override tags, e.g. \fad
	upper    bool
}

// styleFor maps a text style to its ASS rendering parameters, scaled to the
// output height.
func styleFor(style models.TextStyle, height int) assStyle {
	base := height / 16 // ~120px on a 1920-high canvas
	switch style {
	case models.TextBoldPop:
		return assStyle{
			fontSize: base + base/4,
			primary:  assColorYellow,
			outline:  8,
			bold:     -1,
			marginV:  height / 5,
			effect:   "",
			upper:    true,
		}
	case models.TextFadeIn:
		return assStyle{
			fontSize: base,
			primary:  assColorWhite,
			outline:  4,
			bold:     0,
			marginV:  height / 5,
			effect:   `{\fad(400,400)}`,
		}
	case models.TextSlideIn:
		return assStyle{
			fontSize: base,
			primary:  assColorWhite,
			outline:  5,
			bold:     -1,
			marginV:  height / 5,
			effect:   `{\move(-200,0,0,0,0,300)\fad(150,150)}`,
		}
	default: // minimal
		return assStyle{
			fontSize: base - base/5,
			primary:  assColorWhite,
			outline:  3,
			bold:     0,
			marginV:  height / 6,
		}
	}
}

// GenerateASS writes an ASS subtitle file for retimed caption lines. Lines
// must already carry their final start/duration from the caption retimer.
func GenerateASS(lines []models.CaptionLine, style models.TextStyle, width, height int, outputPath string) error {
	if len(lines) == 0 {
		return fmt.Errorf("no caption lines to render")
	}

	st := styleFor(style, height)

	var sb strings.Builder
	sb.WriteString("[Script Info]\n")
	sb.WriteString("ScriptType: v4.00+\n")
	sb.WriteString(fmt.Sprintf("PlayResX: %d\n", width))
	sb.WriteString(fmt.Sprintf("PlayResY: %d\n", height))
	sb.WriteString("WrapStyle: 0\n")
	sb.WriteString("ScaledBorderAndShadow: yes\n")
	sb.WriteString("\n")

	sb.WriteString("[V4+ Styles]\n")
	sb.WriteString("Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding\n")
	sb.WriteString(fmt.Sprintf(
		"Style: Default,%s,%d,%s,%s,%s,%s,%d,0,0,0,100,100,1,0,1,%d,0,2,60,60,%d,1\n",
		captionFontName, st.fontSize,
		st.primary,
		assColorWhite,
		assColorBlack,
		assColorSemiBlack,
		st.bold,
		st.outline,
		st.marginV,
	))
	sb.WriteString("\n")

	sb.WriteString("[Events]\n")
	sb.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")

	for _, line := range lines {
		text := strings.TrimSpace(line.Text)
		if text == "" {
			continue
		}
		if st.upper {
			text = strings.ToUpper(text)
		}
		// ASS dialogue text must not contain raw newlines
		text = strings.ReplaceAll(text, "\n", `\N`)

		sb.WriteString(fmt.Sprintf(
			"Dialogue: 0,%s,%s,Default,,0,0,0,,%s%s\n",
			formatASSTime(line.Start),
			formatASSTime(line.Start+line.Duration),
			st.effect,
			text,
		))
	}

	if err := os.WriteFile(outputPath, []byte(sb.String()), 0644); err != nil {
		return fmt.Errorf("failed to write ASS file: %w", err)
	}
	return nil
}

// formatASSTime converts seconds to the ASS timestamp format H:MM:SS.CC.
func formatASSTime(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	hours := int(seconds) / 3600
	minutes := (int(seconds) % 3600) / 60
	secs := int(seconds) % 60
	centiseconds := int((seconds - float64(int(seconds))) * 100)
	return fmt.Sprintf("%d:%02d:%02d.%02d", hours, minutes, secs, centiseconds)
}
