package voice

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/sebumatt/Sentin/internal/metrics"
)

// voiceName is the fixed prebuilt voice identity used for every alert.
const voiceName = "Kore"

// Generate synthesizes the alert text into a decoded audio buffer. It
// returns nil on any failure or when the response carries no audio payload:
// the voice alert is advisory, so callers must treat nil as "skip playback",
// never as fatal. Failures are logged here and do not propagate.
func Generate(ctx context.Context, client *genai.Client, model, text string) *Buffer {
	log.Debug().Str("model", model).Int("text_length", len(text)).Msg("Requesting voice alert synthesis")

	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: voiceName},
			},
		},
	}

	contents := []*genai.Content{{
		Role:  "user",
		Parts: []*genai.Part{{Text: text}},
	}}

	start := time.Now()
	resp, err := client.Models.GenerateContent(ctx, model, contents, config)
	elapsed := time.Since(start)

	m := metrics.New("SentinCare").
		Dimension("Operation", "tts").
		Metric("GeminiApiLatencyMs", float64(elapsed.Milliseconds()), metrics.UnitMilliseconds).
		Count("GeminiApiCalls")
	if err != nil {
		m.Count("GeminiApiErrors")
	}
	m.Flush()

	if err != nil {
		log.Error().Err(err).Dur("duration", elapsed).Msg("TTS generation failed")
		return nil
	}

	pcm := extractAudio(resp)
	if len(pcm) == 0 {
		log.Warn().Dur("duration", elapsed).Msg("TTS: no audio data returned from model")
		return nil
	}

	buf := DecodePCM(pcm)
	if buf == nil {
		log.Warn().Int("payload_bytes", len(pcm)).Msg("TTS: audio payload too short to decode")
		return nil
	}

	log.Info().
		Float64("seconds", buf.Duration()).
		Dur("duration", elapsed).
		Msg("Voice alert synthesized")
	return buf
}

// extractAudio returns the first inline audio payload in the response, or
// nil when none is present.
func extractAudio(resp *genai.GenerateContentResponse) []byte {
	if resp == nil {
		return nil
	}
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return part.InlineData.Data
			}
		}
	}
	return nil
}
