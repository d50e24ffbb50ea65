package timing

import (
	"math"
	"sort"

	"github.com/ModawnAI/hydra-compose-runpod/internal/models"
)

// Segment is a half-open [Start, End) window on the video timeline, in
// seconds. Segments produced by CalculateCuts tile [0, target] exactly.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Duration returns the segment length in seconds.
func (s Segment) Duration() float64 { return s.End - s.Start }

// CalculateCuts places imageCount cut points across [0, target] so that
// every interior cut lands on a detected beat when one is reachable, while
// never letting any image run shorter than MinImageDuration. With no usable
// beats, or a target too short to give every image the minimum, the
// timeline is split evenly instead.
func CalculateCuts(beats []float64, imageCount int, target float64, pacing models.PacingStyle) []Segment {
	if imageCount <= 0 || target <= 0 {
		return nil
	}
	if imageCount == 1 {
		return []Segment{{Start: 0, End: target}}
	}
	// A forced-floor duration can be shorter than imageCount minimums. The
	// constrained walk has no feasible window then, so split evenly instead
	// and let every image run equally short.
	if target < float64(imageCount)*MinImageDuration {
		return EvenSegments(imageCount, target)
	}

	candidates := cutCandidates(beats, target)
	if len(candidates) < imageCount+1 {
		return EvenSegments(imageCount, target)
	}

	n := float64(imageCount)
	cuts := make([]float64, 0, imageCount+1)
	cuts = append(cuts, 0)

	for i := 1; i < imageCount; i++ {
		ideal := float64(i) * target / n
		lower := cuts[len(cuts)-1] + MinImageDuration
		upper := target - float64(imageCount-i)*MinImageDuration

		var feasible []float64
		for _, c := range candidates {
			if c >= lower && c <= upper {
				feasible = append(feasible, c)
			}
		}
		if len(feasible) == 0 {
			// No beat fits the hard per-image bounds; fall back to the
			// ideal position clamped into the feasible window.
			c := math.Min(math.Max(lower, ideal), upper)
			cuts = append(cuts, c)
			continue
		}
		cuts = append(cuts, pickCut(feasible, ideal, pacing))
	}
	cuts = append(cuts, target)

	segs := make([]Segment, imageCount)
	for i := 0; i < imageCount; i++ {
		segs[i] = Segment{Start: cuts[i], End: cuts[i+1]}
	}
	return segs
}

// pickCut chooses among feasible candidates (sorted ascending) according to
// the pacing style. Fast pacing cuts early, slow pacing lets images linger,
// medium snaps to the nearest beat.
func pickCut(feasible []float64, ideal float64, pacing models.PacingStyle) float64 {
	switch pacing {
	case models.PacingFast:
		// Latest beat at or before the ideal point, else the earliest one.
		best := feasible[0]
		found := false
		for _, c := range feasible {
			if c <= ideal {
				best = c
				found = true
			}
		}
		if !found {
			best = feasible[0]
		}
		return best
	case models.PacingSlow:
		// Earliest beat at or after the ideal point, else the latest one.
		for _, c := range feasible {
			if c >= ideal {
				return c
			}
		}
		return feasible[len(feasible)-1]
	default:
		best := feasible[0]
		for _, c := range feasible[1:] {
			if math.Abs(c-ideal) < math.Abs(best-ideal) {
				best = c
			}
		}
		return best
	}
}

// cutCandidates returns {0} ∪ {beats strictly inside (0, target)} ∪ {target},
// sorted and deduplicated.
func cutCandidates(beats []float64, target float64) []float64 {
	out := make([]float64, 0, len(beats)+2)
	out = append(out, 0)
	for _, b := range beats {
		if b > 0 && b < target {
			out = append(out, b)
		}
	}
	out = append(out, target)
	sort.Float64s(out)

	dedup := out[:1]
	for _, v := range out[1:] {
		if v != dedup[len(dedup)-1] {
			dedup = append(dedup, v)
		}
	}
	return dedup
}

// EvenSegments splits [0, target] into imageCount equal segments.
func EvenSegments(imageCount int, target float64) []Segment {
	if imageCount <= 0 || target <= 0 {
		return nil
	}
	per := target / float64(imageCount)
	segs := make([]Segment, imageCount)
	for i := range segs {
		segs[i] = Segment{Start: float64(i) * per, End: float64(i+1) * per}
	}
	segs[imageCount-1].End = target
	return segs
}

// NearestBeat returns the beat closest to t, or t itself when the beat list
// is empty.
func NearestBeat(beats []float64, t float64) float64 {
	if len(beats) == 0 {
		return t
	}
	best := beats[0]
	for _, b := range beats[1:] {
		if math.Abs(b-t) < math.Abs(best-t) {
			best = b
		}
	}
	return best
}

// SnapToBeats moves each time to its nearest beat when that beat is within
// tolerance seconds; times with no close beat pass through unchanged.
func SnapToBeats(times, beats []float64, tolerance float64) []float64 {
	out := make([]float64, len(times))
	for i, t := range times {
		b := NearestBeat(beats, t)
		if math.Abs(b-t) <= tolerance {
			out[i] = b
		} else {
			out[i] = t
		}
	}
	return out
}

// EnergyAt linearly interpolates the energy curve at time t. Outside the
// curve's range it clamps to the nearest endpoint; an empty curve reads a
// neutral 0.5.
func EnergyAt(curve []models.EnergyPoint, t float64) float64 {
	if len(curve) == 0 {
		return 0.5
	}
	if t <= curve[0].Time {
		return curve[0].Energy
	}
	last := curve[len(curve)-1]
	if t >= last.Time {
		return last.Energy
	}
	for i := 1; i < len(curve); i++ {
		if t <= curve[i].Time {
			p, q := curve[i-1], curve[i]
			if q.Time == p.Time {
				return q.Energy
			}
			frac := (t - p.Time) / (q.Time - p.Time)
			return p.Energy + frac*(q.Energy-p.Energy)
		}
	}
	return last.Energy
}
