package coach

import "github.com/abhisek/drillsergeant/internal/llm"

// DrillSchema is the shape of a generated passage with its questions.
var DrillSchema = &llm.Schema{
	Name:        "gre-drill",
	Description: "A GRE reading comprehension passage with multiple-choice questions",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title": map[string]any{
				"type":        "string",
				"description": "Passage title",
			},
			"text": map[string]any{
				"type":        "string",
				"description": "The full academic passage",
			},
			"questions": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"id": map[string]any{
							"type":        "integer",
							"description": "Question number, starting at 1",
						},
						"text": map[string]any{
							"type":        "string",
							"description": "Question stem",
						},
						"options": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"A": map[string]any{"type": "string"},
								"B": map[string]any{"type": "string"},
								"C": map[string]any{"type": "string"},
								"D": map[string]any{"type": "string"},
								"E": map[string]any{"type": "string"},
							},
							"required":             []any{"A", "B", "C", "D", "E"},
							"additionalProperties": false,
						},
						"correct_option": map[string]any{
							"type": "string",
							"enum": []any{"A", "B", "C", "D", "E"},
						},
					},
					"required":             []any{"id", "text", "options", "correct_option"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []any{"title", "text", "questions"},
		"additionalProperties": false,
	},
}

// DiagnosisSchema is the shape of one mistake diagnosis.
var DiagnosisSchema = &llm.Schema{
	Name:        "mistake-diagnosis",
	Description: "Why a reading comprehension answer was wrong",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"trap_type": map[string]any{
				"type":        "string",
				"description": "One of: Out of Scope, Distortion, Extreme Language, True but Irrelevant, Opposite",
			},
			"hint_for_retry": map[string]any{
				"type":        "string",
				"description": "A short hint that does not reveal the answer",
			},
			"full_explanation": map[string]any{
				"type":        "string",
				"description": "Why the chosen answer is wrong and the correct one is right",
			},
		},
		"required":             []any{"trap_type", "hint_for_retry", "full_explanation"},
		"additionalProperties": false,
	},
}

// CoachSchema is the shape of the end-of-drill message.
var CoachSchema = &llm.Schema{
	Name:        "coach-message",
	Description: "A short tough-love coach summary",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"headline": map[string]any{
				"type":        "string",
				"description": "Short punchy headline",
			},
			"body": map[string]any{
				"type":        "string",
				"description": "Two or three sentences of feedback",
			},
		},
		"required":             []any{"headline", "body"},
		"additionalProperties": false,
	},
}
