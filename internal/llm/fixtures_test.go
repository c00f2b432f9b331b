package llm

// Test copies of the coach schemas. The coach package imports llm, so the
// real ones cannot be used here.

var diagnosisSchema = &Schema{
	Name:        "mistake-diagnosis",
	Description: "Why a reading comprehension answer was wrong",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"trap_type":        map[string]any{"type": "string"},
			"hint_for_retry":   map[string]any{"type": "string"},
			"full_explanation": map[string]any{"type": "string"},
		},
		"required":             []any{"trap_type", "hint_for_retry", "full_explanation"},
		"additionalProperties": false,
	},
}

var drillSessionSchema = &Schema{
	Name:        "gre-drill",
	Description: "A GRE reading comprehension passage with multiple-choice questions",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title": map[string]any{"type": "string"},
			"text":  map[string]any{"type": "string"},
			"questions": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"id":   map[string]any{"type": "integer"},
						"text": map[string]any{"type": "string"},
						"options": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"A": map[string]any{"type": "string"},
								"B": map[string]any{"type": "string"},
								"C": map[string]any{"type": "string"},
								"D": map[string]any{"type": "string"},
								"E": map[string]any{"type": "string"},
							},
							"required": []any{"A", "B", "C", "D", "E"},
						},
						"correct_option": map[string]any{
							"type": "string",
							"enum": []any{"A", "B", "C", "D", "E"},
						},
					},
					"required": []any{"id", "text", "options", "correct_option"},
				},
			},
		},
		"required": []any{"title", "text", "questions"},
	},
}

const diagnosisJSON = `{"trap_type":"Extreme Language","hint_for_retry":"Look at the word 'always'.","full_explanation":"The passage never claims the effect is universal."}`

const drillSessionJSON = `{"title":"On Glaciers","text":"Glaciers advance and retreat over centuries.",` +
	`"questions":[{"id":1,"text":"The author's primary purpose is to","options":` +
	`{"A":"describe","B":"refute","C":"praise","D":"predict","E":"compare"},"correct_option":"A"}]}`
