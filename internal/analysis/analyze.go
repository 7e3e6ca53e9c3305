package analysis

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/sebumatt/Sentin/internal/experiment"
	"github.com/sebumatt/Sentin/internal/jsonutil"
	"github.com/sebumatt/Sentin/internal/metrics"
)

// analysisInstruction is the fixed user-turn instruction sent with every
// video. The variant-specific forensic context travels separately as the
// system instruction.
const analysisInstruction = "Analyze this video. List hazards. Provide a strict second-by-second chronological log of actions (e.g. 0:01 - Entered)."

// Client performs video analysis calls. Each call selects a prompt variant,
// issues exactly one request, and appends an experiment run record
// regardless of outcome. Calls are never retried.
type Client struct {
	genai      *genai.Client
	model      string
	selector   *experiment.Selector
	runs       experiment.RunLogger
	clientInfo string
}

// NewClient wires an analysis client over an authenticated Gemini client.
// runs may be nil to disable experiment logging.
func NewClient(g *genai.Client, model string, selector *experiment.Selector, runs experiment.RunLogger) *Client {
	return &Client{
		genai:      g,
		model:      model,
		selector:   selector,
		runs:       runs,
		clientInfo: fmt.Sprintf("sentin-web %s %s/%s", runtime.Version(), runtime.GOOS, runtime.GOARCH),
	}
}

// Analyze sends the raw video bytes to the model and returns the parsed
// result together with the prompt variant that produced it. A network
// failure, empty response, or parse failure is unrecoverable for this call
// and is propagated to the caller.
func (c *Client) Analyze(ctx context.Context, video []byte, mimeType string) (*Result, experiment.Variant, error) {
	variant := c.selector.Pick()

	log.Info().
		Str("model", c.model).
		Str("variant", string(variant.ID)).
		Int("video_bytes", len(video)).
		Str("mime", mimeType).
		Msg("Starting Gemini video analysis")

	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: variant.Instruction}},
		},
		ResponseMIMEType: "application/json",
		ResponseSchema:   resultSchema,
	}

	contents := []*genai.Content{{
		Role: "user",
		Parts: []*genai.Part{
			{InlineData: &genai.Blob{MIMEType: mimeType, Data: video}},
			{Text: analysisInstruction},
		},
	}}

	start := time.Now()
	resp, err := c.genai.Models.GenerateContent(ctx, c.model, contents, config)
	elapsed := time.Since(start)

	m := metrics.New("SentinCare").
		Dimension("Operation", "analysis").
		Dimension("Variant", string(variant.ID)).
		Metric("GeminiApiLatencyMs", float64(elapsed.Milliseconds()), metrics.UnitMilliseconds).
		Count("GeminiApiCalls")
	if err != nil {
		m.Count("GeminiApiErrors")
	}
	if resp != nil && resp.UsageMetadata != nil {
		m.Metric("GeminiInputTokens", float64(resp.UsageMetadata.PromptTokenCount), metrics.UnitCount)
		m.Metric("GeminiOutputTokens", float64(resp.UsageMetadata.CandidatesTokenCount), metrics.UnitCount)
	}
	m.Flush()

	if err != nil {
		log.Error().Err(err).Dur("duration", elapsed).Msg("Gemini analysis call failed")
		c.logRun(variant, elapsed, false, err.Error())
		return nil, variant, fmt.Errorf("failed to generate content: %w", err)
	}

	raw := resp.Text()
	if raw == "" {
		log.Warn().Dur("duration", elapsed).Msg("Received empty response from Gemini")
		c.logRun(variant, elapsed, false, "empty response")
		return nil, variant, fmt.Errorf("received empty response from Gemini API")
	}

	result, err := parseResult(raw)
	if err != nil {
		log.Error().Err(err).Int("response_length", len(raw)).Msg("Failed to parse analysis response")
		c.logRun(variant, elapsed, false, err.Error())
		return nil, variant, fmt.Errorf("analysis response: %w", err)
	}

	c.logRun(variant, elapsed, true, "")

	log.Info().
		Int("events", len(result.Events)).
		Int("hazards", len(result.Hazards)).
		Int("log_lines", len(result.Logs)).
		Dur("duration", elapsed).
		Msg("Video analysis complete")

	return result, variant, nil
}

// parseResult strips optional code fences and unmarshals the model output.
func parseResult(raw string) (*Result, error) {
	result, err := jsonutil.Parse[Result](raw)
	if err != nil {
		return nil, err
	}
	result.normalize()
	return &result, nil
}

func (c *Client) logRun(variant experiment.Variant, elapsed time.Duration, success bool, errText string) {
	if c.runs == nil {
		return
	}
	c.runs.LogRun(experiment.RunRecord{
		VariantID:  variant.ID,
		Timestamp:  time.Now(),
		DurationMs: elapsed.Milliseconds(),
		Success:    success,
		Error:      errText,
		ClientInfo: c.clientInfo,
	})
}
