package analysis

import "os"

// Gemini Model IDs
//
// | Model Name                  | API Model ID                 | Use Case                       |
// |-----------------------------|------------------------------|--------------------------------|
// | Gemini 2.0 Flash            | gemini-2.0-flash             | Fast multimodal video analysis |
// | Gemini 2.5 Flash            | gemini-2.5-flash             | Stable, balanced performance   |
// | Gemini 2.5 Pro              | gemini-2.5-pro               | High-reasoning tasks           |
// | Gemini 2.5 Flash TTS        | gemini-2.5-flash-preview-tts | Low-latency speech synthesis   |
const (
	// ModelGemini20Flash is the fast multimodal model used for video analysis.
	ModelGemini20Flash = "gemini-2.0-flash"

	// ModelGemini25Flash is stable, balanced performance.
	ModelGemini25Flash = "gemini-2.5-flash"

	// ModelGemini25Pro is for high-reasoning tasks.
	ModelGemini25Pro = "gemini-2.5-pro"

	// ModelGemini25FlashTTS is the low-latency text-to-speech model.
	ModelGemini25FlashTTS = "gemini-2.5-flash-preview-tts"
)

// DefaultModelName is the default analysis model.
// Can be overridden via the GEMINI_MODEL environment variable.
const DefaultModelName = ModelGemini20Flash

// GetModelName returns the analysis model to use, resolved from:
// 1. GEMINI_MODEL environment variable (if set)
// 2. Default: gemini-2.0-flash
func GetModelName() string {
	if env := os.Getenv("GEMINI_MODEL"); env != "" {
		return env
	}
	return DefaultModelName
}
