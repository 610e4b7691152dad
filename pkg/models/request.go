package models

// StylePreset names one of the fixed rendering styles understood by the
// generation service
type StylePreset string

const (
	StyleCinematic  StylePreset = "cinematic"
	StyleAnime      StylePreset = "anime"
	StyleNeon       StylePreset = "neon"
	StyleWatercolor StylePreset = "watercolor"
	StylePhotoreal  StylePreset = "photoreal"
)

// StylePrompt is the text a style adds to every scene prompt, plus what it
// asks the renderer to avoid
type StylePrompt struct {
	Add      string `json:"add"`
	Negative string `json:"negative"`
}

var stylePresets = []StylePreset{
	StyleCinematic,
	StyleAnime,
	StyleNeon,
	StyleWatercolor,
	StylePhotoreal,
}

var stylePrompts = map[StylePreset]StylePrompt{
	StyleCinematic: {
		Add:      "cinematic, moody lighting, high detail, 4k, shallow depth of field",
		Negative: "text, watermark, logo, signature, face, person, human, hands",
	},
	StyleAnime: {
		Add:      "anime style, clean lines, cel shading, vibrant colors",
		Negative: "realistic face, text, watermark, logo, signature, photorealistic",
	},
	StyleNeon: {
		Add:      "neon glow, cyberpunk, high contrast, vibrant lights",
		Negative: "face, watermark, text, logo, blurry",
	},
	StyleWatercolor: {
		Add:      "watercolor painting, soft brush strokes, pastel tones",
		Negative: "face, text, watermark, logo, photorealistic",
	},
	StylePhotoreal: {
		Add:      "photorealistic, high detail, 50mm lens, volumetric light",
		Negative: "face, person, text, watermark, logo, deformed",
	},
}

// StylePresets returns the known presets in display order
func StylePresets() []StylePreset {
	out := make([]StylePreset, len(stylePresets))
	copy(out, stylePresets)
	return out
}

// ParseStylePreset matches s against the known presets
func ParseStylePreset(s string) (StylePreset, bool) {
	p := StylePreset(s)
	_, ok := stylePrompts[p]
	return p, ok
}

// Prompt returns the prompt additions for the preset. Unknown presets fall
// back to cinematic, which is what the service does too.
func (s StylePreset) Prompt() StylePrompt {
	if p, ok := stylePrompts[s]; ok {
		return p
	}
	return stylePrompts[StyleCinematic]
}

// Request bounds
const (
	MinScenes           = 1
	MaxScenes           = 10
	MinDurationPerScene = 1.0
	MaxDurationPerScene = 15.0
	DurationStep        = 0.5
	MinFPS              = 8
	MaxFPS              = 60
)

// Request defaults, matching the values the generate form starts with
const (
	DefaultStyle            = StyleCinematic
	DefaultNumScenes        = 5
	DefaultDurationPerScene = 3.0
	DefaultFPS              = 24
	DefaultAddMusic         = true
	DefaultAddTTS           = false
	DefaultVoice            = "en"
)

// GenerationRequest is the canonical payload sent to POST /api/generate-video.
// Values are built once per submission by the builder package and treated as
// immutable afterwards.
type GenerationRequest struct {
	Prompt           string      `json:"prompt"`
	Style            StylePreset `json:"style"`
	NumScenes        int         `json:"num_scenes"`
	DurationPerScene float64     `json:"duration_per_scene"`
	FPS              int         `json:"fps"`
	AddMusic         bool        `json:"add_music"`
	AddTTS           bool        `json:"add_tts"`
	Voice            string      `json:"voice"`
	Seed             *int64      `json:"seed,omitempty"`
}

// TotalDuration returns the nominal video length in seconds, ignoring
// crossfades
func (r GenerationRequest) TotalDuration() float64 {
	return float64(r.NumScenes) * r.DurationPerScene
}

// SeedFor returns the seed for scene i, or nil when no seed was requested.
// Scenes get consecutive seeds so a fixed request renders reproducibly.
func (r GenerationRequest) SeedFor(i int) *int64 {
	if r.Seed == nil {
		return nil
	}
	s := *r.Seed + int64(i)
	return &s
}
