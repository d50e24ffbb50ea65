package timing

import (
	"math"
	"testing"

	"github.com/ModawnAI/hydra-compose-runpod/internal/models"
)

func captionLines(texts ...string) []models.CaptionLine {
	lines := make([]models.CaptionLine, len(texts))
	for i, s := range texts {
		lines[i] = models.CaptionLine{Text: s, Start: float64(i) * 99, Duration: 99}
	}
	return lines
}

func TestRetimeCaptionsEmpty(t *testing.T) {
	if got := RetimeCaptions(nil, 15); got != nil {
		t.Errorf("got %+v, want nil", got)
	}
}

func TestRetimeCaptionsSingleLine(t *testing.T) {
	got := RetimeCaptions(captionLines("hello"), 12)
	if len(got) != 1 {
		t.Fatalf("got %d lines, want 1", len(got))
	}
	if got[0].Start != 0.5 || got[0].Duration != 4.0 {
		t.Errorf("got start=%v dur=%v, want start=0.5 dur=4", got[0].Start, got[0].Duration)
	}

	short := RetimeCaptions(captionLines("hi"), 4)
	if short[0].Duration != 3.0 {
		t.Errorf("short video: dur=%v, want 3", short[0].Duration)
	}
}

func TestRetimeCaptionsThreeLinesNineSeconds(t *testing.T) {
	got := RetimeCaptions(captionLines("one", "two", "three"), 9)
	if len(got) != 3 {
		t.Fatalf("got %d lines, want 3", len(got))
	}

	// available = 8.5, gaps = 1.0, per = 2.5
	wantStarts := []float64{0.3, 3.3, 6.3}
	for i, line := range got {
		if math.Abs(line.Start-wantStarts[i]) > 1e-9 {
			t.Errorf("line %d starts at %v, want %v", i, line.Start, wantStarts[i])
		}
		if math.Abs(line.Duration-2.5) > 1e-9 {
			t.Errorf("line %d runs %v, want 2.5", i, line.Duration)
		}
	}
	last := got[len(got)-1]
	if last.Start+last.Duration > 9-trailingMargin+1e-9 {
		t.Errorf("last line ends at %v, past the %v margin", last.Start+last.Duration, 9-trailingMargin)
	}
}

func TestRetimeCaptionsTightWindowCompressesGaps(t *testing.T) {
	got := RetimeCaptions(captionLines("a", "b", "c", "d"), 8)
	if len(got) == 0 {
		t.Fatal("all lines dropped")
	}
	// available = 7.5; four lines at the 1.5s minimum need 6.0, leaving
	// 1.5 across three gaps.
	for i := 1; i < len(got); i++ {
		gap := got[i].Start - (got[i-1].Start + got[i-1].Duration)
		if gap < 0.2-1e-9 {
			t.Errorf("gap before line %d is %v, below the 0.2 floor", i, gap)
		}
	}
	for i, line := range got {
		if line.Duration < dropThreshold-1e-9 {
			t.Errorf("line %d kept with %vs of screen time", i, line.Duration)
		}
	}
}

func TestRetimeCaptionsDropsOverflowingTail(t *testing.T) {
	got := RetimeCaptions(captionLines("a", "b", "c", "d", "e", "f"), 6)
	if len(got) >= 6 {
		t.Fatalf("kept all %d lines in a 6s video", len(got))
	}
	for i, line := range got {
		if line.Start+line.Duration > 6-trailingMargin+1e-9 {
			t.Errorf("line %d ends at %v, past the trailing margin", i, line.Start+line.Duration)
		}
		if line.Duration < dropThreshold-1e-9 {
			t.Errorf("line %d runs %v, below the drop threshold", i, line.Duration)
		}
	}
}

func TestRetimeCaptionsIgnoresIncomingTimings(t *testing.T) {
	a := RetimeCaptions(captionLines("x", "y"), 10)
	shuffled := []models.CaptionLine{
		{Text: "x", Start: 42, Duration: 0.1},
		{Text: "y", Start: 3, Duration: 77},
	}
	b := RetimeCaptions(shuffled, 10)
	for i := range a {
		if a[i].Start != b[i].Start || a[i].Duration != b[i].Duration {
			t.Errorf("line %d retimed differently: %+v vs %+v", i, a[i], b[i])
		}
	}
}
