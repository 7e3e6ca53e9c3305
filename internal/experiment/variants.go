// Package experiment implements the prompt A/B testing framework: weighted
// selection of system-instruction variants for the analysis model, and a
// write-only run log for offline comparison.
package experiment

import (
	"math/rand"
	"sync"
	"time"
)

// VariantID identifies one of the fixed prompt variants.
type VariantID string

const (
	VariantBaseline    VariantID = "baseline"
	VariantFewShot     VariantID = "few-shot"
	VariantChainOfThought VariantID = "chain-of-thought"
	VariantUncertainty VariantID = "uncertainty-aware"
)

// Variant is an immutable prompt template sent as the system instruction of
// an analysis request.
type Variant struct {
	ID          VariantID
	Name        string
	Instruction string
}

const baselineInstruction = `
You are an advanced medical AI assistant specializing in elderly care and fall detection.
Your task is to analyze video footage of a resident in their home with forensic precision.

CRITICAL OBJECTIVES:
1. **Fall Detection**: Identify falls by looking for rapid descent, sudden loss of balance, or the subject ending up on the floor. Mark the exact timestamp of impact.
2. **Gait Analysis**: Detect specific abnormalities such as shuffling, staggering, hesitation, or clutching furniture for support.
3. **Chronological Log**: Provide a second-by-second (or key event based) log of what is happening. E.g., "0:01 - Resident enters", "0:02 - Walks towards chair", "0:03 - Trips on rug".
4. **Environmental Hazards**: Identify specific objects in the room (e.g., Rugs, Cables, Furniture) that pose a trip hazard. Classify risk as High/Medium/Low. Keep descriptions extremely concise (e.g. "Loose Rug", "Coffee Table").
5. **Vitals Estimation**: Estimate heart rate and activity level.

OUTPUT FORMAT:
Return a raw JSON object. Do not use Markdown.
Structure:
{
  "vitals": { ... },
  "events": [ ... ],
  "hazards": [ ... ],
  "logs": [
    { "timeOffset": number, "timestamp": string, "description": string }
  ],
  "summary": string,
  "riskAssessment": { ... }
}
`

const fewShotAddition = `
EXAMPLES:
- Input: [Video of subject stumbling over carpet edge]
  Output Event: { "type": "UNSTEADY", "confidence": 85, "description": "Toe catch on rug edge causing forward stumble." }
- Input: [Video of subject collapsing slowly against wall]
  Output Event: { "type": "FALL", "confidence": 92, "description": "Controlled slide against wall to seated position." }
- Input: [Video of subject walking normally]
  Output Hazard: { "label": "Power Cord", "riskLevel": "High", "description": "Black cable spanning walkway." }
`

const chainOfThoughtAddition = `
INSTRUCTION:
Before generating the final JSON structure, think step-by-step about the physics of the movement observed.
1. Analyze the Center of Mass (CoM) trajectory.
2. Check for points of contact with the ground (knees, hands, head).
3. Evaluate recovery attempts.
4. Synthesize these observations into the final 'summary' field before populating specific events.
`

const uncertaintyAddition = `
INSTRUCTION:
Be extremely conservative with confidence scores.
- If the subject is partially occluded (e.g., behind sofa), reduce confidence by 20%.
- If video motion blur is high, mark events as 'UNSTEADY' rather than 'FALL' unless ground contact is clearly visible.
- In your descriptions, explicitly state any factors reducing your certainty.
`

// weightedVariant pairs a variant with the upper bound of its allocation in
// [0,1). A single draw is compared against the cumulative bounds in order.
type weightedVariant struct {
	cumulative float64
	variant    Variant
}

// Allocation: baseline 50%, few-shot 25%, chain-of-thought 15%,
// uncertainty-aware 10%.
var allocation = []weightedVariant{
	{0.50, Variant{VariantBaseline, "Baseline Forensic", baselineInstruction}},
	{0.75, Variant{VariantFewShot, "Few-Shot Examples", baselineInstruction + "\n" + fewShotAddition}},
	{0.90, Variant{VariantChainOfThought, "Chain-of-Thought", baselineInstruction + "\n" + chainOfThoughtAddition}},
	{1.00, Variant{VariantUncertainty, "Uncertainty Breakdown", baselineInstruction + "\n" + uncertaintyAddition}},
}

// Selector chooses a prompt variant per analysis request by weighted random
// draw. Safe for concurrent use.
type Selector struct {
	mu   sync.Mutex
	rand *rand.Rand
}

// NewSelector creates a Selector seeded from the current time.
func NewSelector() *Selector {
	return &Selector{rand: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// Pick returns the variant for one analysis request.
func (s *Selector) Pick() Variant {
	s.mu.Lock()
	draw := s.rand.Float64()
	s.mu.Unlock()
	return pickAt(draw)
}

// pickAt maps a draw in [0,1) onto the allocation table.
func pickAt(draw float64) Variant {
	for _, wv := range allocation {
		if draw < wv.cumulative {
			return wv.variant
		}
	}
	return allocation[len(allocation)-1].variant
}
