package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Enums
//
// Every request-level option is a closed type parsed exactly once at the API
// boundary. Unknown values are a ValidationError, never a silent default.

type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether a status is absorbing: once a job reaches it,
// no further transition is allowed.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

type Vibe string

const (
	VibeExciting  Vibe = "Exciting"
	VibeEmotional Vibe = "Emotional"
	VibePop       Vibe = "Pop"
	VibeMinimal   Vibe = "Minimal"
)

type PacingStyle string

const (
	PacingFast   PacingStyle = "fast"
	PacingMedium PacingStyle = "medium"
	PacingSlow   PacingStyle = "slow"
)

type TransitionKind string

const (
	TransitionZoomBeat  TransitionKind = "zoom_beat"
	TransitionCrossfade TransitionKind = "crossfade"
	TransitionBounce    TransitionKind = "bounce"
	TransitionSlide     TransitionKind = "slide"
	TransitionCut       TransitionKind = "cut"
)

type MotionStyle string

const (
	MotionZoomIn  MotionStyle = "zoom_in"
	MotionZoomOut MotionStyle = "zoom_out"
	MotionPan     MotionStyle = "pan"
	MotionStatic  MotionStyle = "static"
)

type ColorGrade string

const (
	GradeVibrant   ColorGrade = "vibrant"
	GradeCinematic ColorGrade = "cinematic"
	GradeBright    ColorGrade = "bright"
	GradeNatural   ColorGrade = "natural"
	GradeMoody     ColorGrade = "moody"
)

type TextStyle string

const (
	TextBoldPop TextStyle = "bold_pop"
	TextFadeIn  TextStyle = "fade_in"
	TextSlideIn TextStyle = "slide_in"
	TextMinimal TextStyle = "minimal"
)

type AspectRatio string

const (
	AspectPortrait  AspectRatio = "9:16"
	AspectLandscape AspectRatio = "16:9"
	AspectSquare    AspectRatio = "1:1"
)

// Resolution returns the output pixel dimensions for an aspect ratio.
func (a AspectRatio) Resolution() (width, height int) {
	switch a {
	case AspectLandscape:
		return 1920, 1080
	case AspectSquare:
		return 1080, 1080
	default:
		return 1080, 1920
	}
}

// ValidationError reports a request field that failed boundary validation.
type ValidationError struct {
	Field   string
	Value   string
	Allowed []string
}

func (e *ValidationError) Error() string {
	if len(e.Allowed) == 0 {
		return fmt.Sprintf("invalid %s: %q", e.Field, e.Value)
	}
	return fmt.Sprintf("invalid %s: %q (allowed: %s)", e.Field, e.Value, strings.Join(e.Allowed, ", "))
}

func ParseVibe(s string) (Vibe, error) {
	switch s {
	case "":
		return VibePop, nil
	case string(VibeExciting), string(VibeEmotional), string(VibePop), string(VibeMinimal):
		return Vibe(s), nil
	}
	return "", &ValidationError{Field: "vibe", Value: s, Allowed: []string{"Exciting", "Emotional", "Pop", "Minimal"}}
}

// ParseTransition accepts the request-level effect presets. "minimal" is the
// documented alias for a hard cut.
func ParseTransition(s string) (TransitionKind, error) {
	switch s {
	case "":
		return TransitionZoomBeat, nil
	case "minimal":
		return TransitionCut, nil
	case string(TransitionZoomBeat), string(TransitionCrossfade), string(TransitionBounce):
		return TransitionKind(s), nil
	}
	return "", &ValidationError{Field: "effect_preset", Value: s, Allowed: []string{"zoom_beat", "crossfade", "bounce", "minimal"}}
}

func ParseColorGrade(s string) (ColorGrade, error) {
	switch s {
	case "":
		return GradeVibrant, nil
	case string(GradeVibrant), string(GradeCinematic), string(GradeBright), string(GradeNatural), string(GradeMoody):
		return ColorGrade(s), nil
	}
	return "", &ValidationError{Field: "color_grade", Value: s, Allowed: []string{"vibrant", "cinematic", "bright", "natural", "moody"}}
}

// ParseTextStyle accepts "none" as the documented alias for minimal.
func ParseTextStyle(s string) (TextStyle, error) {
	switch s {
	case "":
		return TextBoldPop, nil
	case "none":
		return TextMinimal, nil
	case string(TextBoldPop), string(TextFadeIn), string(TextSlideIn), string(TextMinimal):
		return TextStyle(s), nil
	}
	return "", &ValidationError{Field: "text_style", Value: s, Allowed: []string{"bold_pop", "fade_in", "slide_in", "minimal", "none"}}
}

func ParseAspectRatio(s string) (AspectRatio, error) {
	switch s {
	case "":
		return AspectPortrait, nil
	case string(AspectPortrait), string(AspectLandscape), string(AspectSquare):
		return AspectRatio(s), nil
	}
	return "", &ValidationError{Field: "aspect_ratio", Value: s, Allowed: []string{"9:16", "16:9", "1:1"}}
}

// Render request

// ImageAsset is one source image. Order fixes chronological sequencing
// regardless of arrival order; orders must be contiguous from 0.
type ImageAsset struct {
	URL   string `json:"url"`
	Order int    `json:"order"`
}

// AudioAsset is the single audio track. StartTime and Duration are optional
// overrides; when absent the whole track (clamped to the planned video
// duration) is used.
type AudioAsset struct {
	URL       string   `json:"url"`
	StartTime float64  `json:"start_time"`
	Duration  *float64 `json:"duration,omitempty"`
}

// CaptionLine is one line of overlay text. The requested timing is advisory;
// the caption retimer is authoritative for the final windows.
type CaptionLine struct {
	Text     string  `json:"text"`
	Start    float64 `json:"timing"`
	Duration float64 `json:"duration"`
}

type RenderSettings struct {
	Vibe           Vibe
	Transition     TransitionKind
	AspectRatio    AspectRatio
	TargetDuration float64
	TextStyle      TextStyle
	ColorGrade     ColorGrade
}

type OutputSettings struct {
	Bucket string `json:"s3_bucket"`
	Key    string `json:"s3_key"`
}

// RenderRequest is the fully validated form of a render submission. Build it
// through RenderInput.Parse; never from raw wire strings.
type RenderRequest struct {
	JobID       string
	Images      []ImageAsset
	Audio       AudioAsset
	Captions    []CaptionLine
	Settings    RenderSettings
	Output      OutputSettings
	CallbackURL string
}

// RenderInput is the wire shape of a render submission: enum fields are raw
// strings, validated by Parse.
type RenderInput struct {
	JobID    string        `json:"job_id"`
	Images   []ImageAsset  `json:"images"`
	Audio    AudioAsset    `json:"audio"`
	Captions []CaptionLine `json:"script,omitempty"`
	Settings struct {
		Vibe           string  `json:"vibe"`
		EffectPreset   string  `json:"effect_preset"`
		AspectRatio    string  `json:"aspect_ratio"`
		TargetDuration float64 `json:"target_duration"`
		TextStyle      string  `json:"text_style"`
		ColorGrade     string  `json:"color_grade"`
	} `json:"settings"`
	Output      OutputSettings `json:"output"`
	CallbackURL string         `json:"callback_url,omitempty"`
}

// Parse validates the wire input and produces a typed RenderRequest.
// A missing job id gets a generated one; any invalid enum value or
// non-contiguous image ordering fails fast with a ValidationError.
func (in *RenderInput) Parse() (*RenderRequest, error) {
	if len(in.Images) == 0 {
		return nil, &ValidationError{Field: "images", Value: "[]"}
	}
	if in.Audio.URL == "" {
		return nil, &ValidationError{Field: "audio.url", Value: ""}
	}
	if in.Output.Key == "" {
		return nil, &ValidationError{Field: "output.s3_key", Value: ""}
	}

	// Orders must cover 0..n-1 exactly.
	seen := make(map[int]bool, len(in.Images))
	for _, img := range in.Images {
		if img.Order < 0 || img.Order >= len(in.Images) || seen[img.Order] {
			return nil, &ValidationError{Field: "images.order", Value: fmt.Sprintf("%d", img.Order)}
		}
		seen[img.Order] = true
	}

	vibe, err := ParseVibe(in.Settings.Vibe)
	if err != nil {
		return nil, err
	}
	transition, err := ParseTransition(in.Settings.EffectPreset)
	if err != nil {
		return nil, err
	}
	aspect, err := ParseAspectRatio(in.Settings.AspectRatio)
	if err != nil {
		return nil, err
	}
	textStyle, err := ParseTextStyle(in.Settings.TextStyle)
	if err != nil {
		return nil, err
	}
	grade, err := ParseColorGrade(in.Settings.ColorGrade)
	if err != nil {
		return nil, err
	}

	jobID := in.JobID
	if jobID == "" {
		jobID = uuid.New().String()
	}

	return &RenderRequest{
		JobID:    jobID,
		Images:   in.Images,
		Audio:    in.Audio,
		Captions: in.Captions,
		Settings: RenderSettings{
			Vibe:           vibe,
			Transition:     transition,
			AspectRatio:    aspect,
			TargetDuration: in.Settings.TargetDuration,
			TextStyle:      textStyle,
			ColorGrade:     grade,
		},
		Output:      in.Output,
		CallbackURL: in.CallbackURL,
	}, nil
}

// Auto-compose request

// AutoComposeInput is the wire shape of a search-driven compose submission.
type AutoComposeInput struct {
	JobID          string        `json:"job_id"`
	SearchQuery    string        `json:"search_query"`
	SearchTags     []string      `json:"search_tags"`
	AudioURL       string        `json:"audio_url"`
	Vibe           string        `json:"vibe"`
	EffectPreset   string        `json:"effect_preset"`
	ColorGrade     string        `json:"color_grade"`
	TextStyle      string        `json:"text_style"`
	AspectRatio    string        `json:"aspect_ratio"`
	TargetDuration float64       `json:"target_duration"`
	CampaignID     string        `json:"campaign_id,omitempty"`
	CallbackURL    string        `json:"callback_url,omitempty"`
	Captions       []CaptionLine `json:"script_lines,omitempty"`
}

// AutoComposeRequest is the validated form of an auto-compose submission.
type AutoComposeRequest struct {
	JobID       string
	SearchQuery string
	SearchTags  []string
	AudioURL    string
	Settings    RenderSettings
	CampaignID  string
	CallbackURL string
	Captions    []CaptionLine
}

func (in *AutoComposeInput) Parse() (*AutoComposeRequest, error) {
	if in.SearchQuery == "" {
		return nil, &ValidationError{Field: "search_query", Value: ""}
	}
	if len(in.SearchTags) == 0 {
		return nil, &ValidationError{Field: "search_tags", Value: "[]"}
	}
	if in.AudioURL == "" {
		return nil, &ValidationError{Field: "audio_url", Value: ""}
	}

	vibe, err := ParseVibe(in.Vibe)
	if err != nil {
		return nil, err
	}
	transition, err := ParseTransition(in.EffectPreset)
	if err != nil {
		return nil, err
	}
	grade, err := ParseColorGrade(in.ColorGrade)
	if err != nil {
		return nil, err
	}
	textStyle, err := ParseTextStyle(in.TextStyle)
	if err != nil {
		return nil, err
	}
	aspect, err := ParseAspectRatio(in.AspectRatio)
	if err != nil {
		return nil, err
	}

	jobID := in.JobID
	if jobID == "" {
		jobID = uuid.New().String()
	}

	return &AutoComposeRequest{
		JobID:       jobID,
		SearchQuery: in.SearchQuery,
		SearchTags:  in.SearchTags,
		AudioURL:    in.AudioURL,
		Settings: RenderSettings{
			Vibe:           vibe,
			Transition:     transition,
			AspectRatio:    aspect,
			TargetDuration: in.TargetDuration,
			TextStyle:      textStyle,
			ColorGrade:     grade,
		},
		CampaignID:  in.CampaignID,
		CallbackURL: in.CallbackURL,
		Captions:    in.Captions,
	}, nil
}

// Job records

// JobRecord is the stored state of one render job. Mutated only through the
// job store's read-modify-write update; last writer wins.
type JobRecord struct {
	JobID       string                 `json:"job_id"`
	Status      JobStatus              `json:"status"`
	Progress    int                    `json:"progress"`
	CurrentStep string                 `json:"current_step,omitempty"`
	OutputURL   string                 `json:"output_url,omitempty"`
	Error       string                 `json:"error,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// JobStatusResponse is the API view of a job record.
type JobStatusResponse struct {
	JobID       string    `json:"job_id"`
	Status      JobStatus `json:"status"`
	Progress    int       `json:"progress"`
	CurrentStep string    `json:"current_step,omitempty"`
	OutputURL   string    `json:"output_url,omitempty"`
	Error       string    `json:"error,omitempty"`
}

// WebhookPayload is posted to a job's callback URL on status transitions.
type WebhookPayload struct {
	JobID     string    `json:"job_id"`
	Status    JobStatus `json:"status"`
	OutputURL string    `json:"output_url,omitempty"`
	Error     string    `json:"error,omitempty"`
	Progress  int       `json:"progress,omitempty"`
}

// Audio analysis

type EnergyPoint struct {
	Time   float64 `json:"t"`
	Energy float64 `json:"e"`
}

// AudioAnalysis is the audio-analysis collaborator's result.
type AudioAnalysis struct {
	BPM           int           `json:"bpm"`
	BeatTimes     []float64     `json:"beat_times"`
	EnergyCurve   []EnergyPoint `json:"energy_curve"`
	Duration      float64       `json:"duration"`
	SuggestedVibe string        `json:"suggested_vibe,omitempty"`
}

// AudioSegment is a (start, end) window within an audio track.
type AudioSegment struct {
	Start float64 `json:"start_time"`
	End   float64 `json:"end_time"`
}

// Image search

type ImageCandidate struct {
	SourceURL    string `json:"source_url"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	Title        string `json:"title,omitempty"`
	Domain       string `json:"domain,omitempty"`
	Width        int    `json:"width,omitempty"`
	Height       int    `json:"height,omitempty"`
}

type ImageSearchResult struct {
	Candidates []ImageCandidate `json:"candidates"`
	TotalFound int              `json:"total_found"`
	Filtered   int              `json:"filtered"`
	Query      string           `json:"query"`
}

// API responses

type RenderResponse struct {
	Status  string `json:"status"`
	JobID   string `json:"job_id"`
	Message string `json:"message,omitempty"`
}

type AutoComposeResponse struct {
	Status  string `json:"status"`
	JobID   string `json:"job_id"`
	Message string `json:"message,omitempty"`
}
