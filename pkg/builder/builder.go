// Package builder turns raw, user-entered generation options into a
// canonical models.GenerationRequest.
//
// Numeric fields are coerced from text and clamped into their documented
// ranges; an empty prompt, an unknown style or text that is not a number is
// rejected with a *ValidationError naming the field. Build has no side
// effects and returns the same request for the same input.
package builder

import (
	"math"
	"strconv"
	"strings"

	"github.com/psantana5/vidgen/pkg/models"
)

// RawInput is a snapshot of the generate form. Numeric fields hold whatever
// text the user typed; an empty string selects the default.
type RawInput struct {
	Prompt           string
	Style            string
	NumScenes        string
	DurationPerScene string
	FPS              string
	AddMusic         bool
	AddTTS           bool
	Voice            string
	Seed             string
}

// DefaultInput returns the form as it looks before the user edits anything
func DefaultInput() RawInput {
	return RawInput{
		Style:            string(models.DefaultStyle),
		NumScenes:        strconv.Itoa(models.DefaultNumScenes),
		DurationPerScene: strconv.FormatFloat(models.DefaultDurationPerScene, 'f', -1, 64),
		FPS:              strconv.Itoa(models.DefaultFPS),
		AddMusic:         models.DefaultAddMusic,
		AddTTS:           models.DefaultAddTTS,
		Voice:            models.DefaultVoice,
	}
}

// Build validates and normalizes in
func Build(in RawInput) (models.GenerationRequest, error) {
	var req models.GenerationRequest

	prompt := strings.TrimSpace(in.Prompt)
	if prompt == "" {
		return req, &ValidationError{Field: "prompt", Reason: "must not be empty"}
	}

	style, err := parseStyle(in.Style)
	if err != nil {
		return req, err
	}

	numScenes, err := parseInt("num_scenes", in.NumScenes, models.DefaultNumScenes, models.MinScenes, models.MaxScenes)
	if err != nil {
		return req, err
	}

	duration, err := parseDuration(in.DurationPerScene)
	if err != nil {
		return req, err
	}

	fps, err := parseInt("fps", in.FPS, models.DefaultFPS, models.MinFPS, models.MaxFPS)
	if err != nil {
		return req, err
	}

	seed, err := parseSeed(in.Seed)
	if err != nil {
		return req, err
	}

	voice := strings.TrimSpace(in.Voice)
	if voice == "" {
		voice = models.DefaultVoice
	}

	return models.GenerationRequest{
		Prompt:           prompt,
		Style:            style,
		NumScenes:        numScenes,
		DurationPerScene: duration,
		FPS:              fps,
		AddMusic:         in.AddMusic,
		AddTTS:           in.AddTTS,
		Voice:            voice,
		Seed:             seed,
	}, nil
}

// Validate checks an already typed request without clamping. The reference
// service uses it on decoded request bodies.
func Validate(req models.GenerationRequest) error {
	if strings.TrimSpace(req.Prompt) == "" {
		return &ValidationError{Field: "prompt", Reason: "must not be empty"}
	}
	if _, ok := models.ParseStylePreset(string(req.Style)); !ok {
		return &ValidationError{Field: "style", Reason: "unknown preset", Value: string(req.Style)}
	}
	if req.NumScenes < models.MinScenes || req.NumScenes > models.MaxScenes {
		return rangeError("num_scenes", float64(req.NumScenes), models.MinScenes, models.MaxScenes)
	}
	if req.DurationPerScene < models.MinDurationPerScene || req.DurationPerScene > models.MaxDurationPerScene {
		return rangeError("duration_per_scene", req.DurationPerScene, models.MinDurationPerScene, models.MaxDurationPerScene)
	}
	if req.FPS < models.MinFPS || req.FPS > models.MaxFPS {
		return rangeError("fps", float64(req.FPS), models.MinFPS, models.MaxFPS)
	}
	if req.Seed != nil && *req.Seed < 0 {
		return &ValidationError{Field: "seed", Reason: "must not be negative", Value: strconv.FormatInt(*req.Seed, 10)}
	}
	return nil
}

func parseStyle(raw string) (models.StylePreset, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return models.DefaultStyle, nil
	}
	style, ok := models.ParseStylePreset(raw)
	if !ok {
		return "", &ValidationError{Field: "style", Reason: "unknown preset", Value: raw}
	}
	return style, nil
}

// parseNumber coerces text the way a number input does: surrounding space is
// ignored and NaN or infinities are rejected
func parseNumber(field, raw string) (float64, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false, &ValidationError{Field: field, Reason: "not a number", Value: raw}
	}
	return v, true, nil
}

func parseInt(field, raw string, def, lo, hi int) (int, error) {
	v, ok, err := parseNumber(field, raw)
	if err != nil {
		return 0, err
	}
	if !ok {
		return def, nil
	}
	if v != math.Trunc(v) {
		return 0, &ValidationError{Field: field, Reason: "must be a whole number", Value: strings.TrimSpace(raw)}
	}
	return int(clamp(v, float64(lo), float64(hi))), nil
}

func parseDuration(raw string) (float64, error) {
	v, ok, err := parseNumber("duration_per_scene", raw)
	if err != nil {
		return 0, err
	}
	if !ok {
		return models.DefaultDurationPerScene, nil
	}
	v = math.Round(v/models.DurationStep) * models.DurationStep
	return clamp(v, models.MinDurationPerScene, models.MaxDurationPerScene), nil
}

func parseSeed(raw string) (*int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, &ValidationError{Field: "seed", Reason: "not an integer", Value: raw}
	}
	if v < 0 {
		return nil, &ValidationError{Field: "seed", Reason: "must not be negative", Value: raw}
	}
	return &v, nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
