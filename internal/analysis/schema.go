package analysis

import "google.golang.org/genai"

// resultSchema constrains the model to emit exactly the Result shape. The
// schema is attached to every analysis request alongside the JSON response
// MIME type.
var resultSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"vitals": {
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"heartRate":   {Type: genai.TypeNumber},
				"oxygenLevel": {Type: genai.TypeNumber},
				"activityLevel": {
					Type: genai.TypeString,
					Enum: []string{"High", "Moderate", "Low", "Sedentary"},
				},
			},
			Required: []string{"heartRate", "oxygenLevel", "activityLevel"},
		},
		"events": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"timeOffset": {Type: genai.TypeNumber},
					"type": {
						Type: genai.TypeString,
						Enum: []string{"FALL", "UNSTEADY", "INACTIVITY", "NORMAL"},
					},
					"confidence":  {Type: genai.TypeNumber},
					"description": {Type: genai.TypeString},
				},
				Required: []string{"timeOffset", "type", "confidence", "description"},
			},
		},
		"hazards": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"label": {Type: genai.TypeString},
					"riskLevel": {
						Type: genai.TypeString,
						Enum: []string{"High", "Medium", "Low"},
					},
					"description": {Type: genai.TypeString},
				},
				Required: []string{"label", "riskLevel", "description"},
			},
		},
		"logs": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"timeOffset":  {Type: genai.TypeNumber},
					"timestamp":   {Type: genai.TypeString},
					"description": {Type: genai.TypeString},
				},
				Required: []string{"timeOffset", "timestamp", "description"},
			},
		},
		"summary": {Type: genai.TypeString},
		"riskAssessment": {
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"fallRisk": {
					Type: genai.TypeString,
					Enum: []string{"High", "Medium", "Low"},
				},
				"mobilityScore": {Type: genai.TypeNumber},
			},
			Required: []string{"fallRisk", "mobilityScore"},
		},
	},
	Required: []string{"vitals", "events", "hazards", "logs", "summary", "riskAssessment"},
}
