package pipeline

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/ModawnAI/hydra-compose-runpod/internal/jobstore"
	"github.com/ModawnAI/hydra-compose-runpod/internal/models"
	"github.com/ModawnAI/hydra-compose-runpod/internal/preset"
	"github.com/ModawnAI/hydra-compose-runpod/internal/storage"
)

const (
	autoMinImages = 3
	autoLowImages = 6
	autoMaxImages = 12
)

// Progressively relaxed minimum resolutions for image search. The first
// tier that yields enough usable images wins.
var searchResolutionTiers = []int{720, 480, 360}

// AutoCompose builds a render request from a search query instead of
// caller-supplied images: search, verify candidates, pick the audio hook,
// then hand off to Render. Search runs before the render gate so a full
// gate doesn't stall cheap HTTP work.
func (o *Orchestrator) AutoCompose(ctx context.Context, req *models.AutoComposeRequest) (string, error) {
	renderReq := &models.RenderRequest{
		JobID:       req.JobID,
		Audio:       models.AudioAsset{URL: req.AudioURL},
		Captions:    req.Captions,
		Settings:    req.Settings,
		Output:      models.OutputSettings{Key: storage.OutputKey(req.CampaignID, req.JobID)},
		CallbackURL: req.CallbackURL,
	}

	if o.search == nil {
		return "", o.fail(renderReq, fmt.Errorf("image search is not configured"))
	}

	o.step(renderReq, models.JobStatusQueued, 0, "Searching for images", true)

	urls, err := o.findImages(ctx, req)
	if err != nil {
		return "", o.fail(renderReq, err)
	}

	count := len(urls)
	if count > autoMaxImages {
		count = autoMaxImages
	}
	if count < autoLowImages {
		log.Printf("[Pipeline] [%s] only %d verified images for %q, proceeding below the preferred minimum",
			req.JobID, count, req.SearchQuery)
	}
	urls = urls[:count]

	renderReq.Images = make([]models.ImageAsset, count)
	for i, u := range urls {
		renderReq.Images[i] = models.ImageAsset{URL: u, Order: i}
	}

	o.pickAudioWindow(ctx, req, renderReq)

	return o.Render(ctx, renderReq)
}

// findImages searches across resolution tiers and verifies candidates with
// HEAD requests, returning deduplicated image URLs.
func (o *Orchestrator) findImages(ctx context.Context, req *models.AutoComposeRequest) ([]string, error) {
	queries := searchQueries(req)

	var candidates []models.ImageCandidate
	seen := make(map[string]bool)

	for _, minRes := range searchResolutionTiers {
		for _, q := range queries {
			found, err := o.search.Search(ctx, q, autoMaxImages, minRes)
			if err != nil {
				log.Printf("[Pipeline] [%s] search %q failed: %v", req.JobID, q, err)
				continue
			}
			for _, c := range found {
				if seen[c.SourceURL] {
					continue
				}
				seen[c.SourceURL] = true
				candidates = append(candidates, c)
			}
			if len(candidates) >= autoMaxImages*2 {
				break
			}
		}
		if len(candidates) >= autoMaxImages {
			break
		}
		log.Printf("[Pipeline] [%s] %d candidates at %dpx, relaxing resolution", req.JobID, len(candidates), minRes)
	}

	if len(candidates) < autoMinImages {
		return nil, fmt.Errorf("not enough images found for %q: %d candidates, need at least %d",
			req.SearchQuery, len(candidates), autoMinImages)
	}

	verified := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if len(verified) == autoMaxImages {
			break
		}
		if o.fetcher.Verify(ctx, c.SourceURL) {
			verified = append(verified, c.SourceURL)
		}
	}

	if len(verified) < autoMinImages {
		return nil, fmt.Errorf("not enough reachable images for %q: %d of %d candidates verified, need at least %d",
			req.SearchQuery, len(verified), len(candidates), autoMinImages)
	}
	return verified, nil
}

func searchQueries(req *models.AutoComposeRequest) []string {
	queries := []string{req.SearchQuery}
	for _, tag := range req.SearchTags {
		tag = strings.TrimSpace(tag)
		if tag != "" {
			queries = append(queries, req.SearchQuery+" "+tag)
		}
	}
	return queries
}

// pickAudioWindow asks the analyzer for the most energetic stretch of the
// track so the video rides the hook. Failures just mean starting at zero.
func (o *Orchestrator) pickAudioWindow(ctx context.Context, req *models.AutoComposeRequest, renderReq *models.RenderRequest) {
	if o.analyzer == nil {
		return
	}

	p := preset.ByVibe(req.Settings.Vibe)
	target := req.Settings.TargetDuration
	if target <= 0 {
		target = p.MaxDuration
	}

	seg, err := o.analyzer.FindBestSegment(ctx, req.AudioURL, target)
	if err != nil {
		log.Printf("[Pipeline] [%s] best-segment lookup failed (%v), using track start", req.JobID, err)
		return
	}

	renderReq.Audio.StartTime = seg.Start
	window := seg.End - seg.Start
	if window > 0 {
		renderReq.Audio.Duration = &window
	}
	if err := o.store.Update(ctx, req.JobID, jobstore.Update{
		Metadata: map[string]interface{}{"audio_start": seg.Start, "audio_end": seg.End},
	}); err != nil {
		log.Printf("[Pipeline] [%s] failed to record audio window: %v", req.JobID, err)
	}
}

func storeMetadata(callID, backendName string) jobstore.Update {
	return jobstore.Update{
		Metadata: map[string]interface{}{
			"call_id": callID,
			"backend": backendName,
		},
	}
}
