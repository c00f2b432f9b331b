package coach

import (
	"bytes"
	"text/template"
)

const generateSystemPrompt = `You are a GRE exam content generator. You write original academic passages in the style of the GRE Verbal Reasoning section and reading comprehension questions about them.

Rules:
- Each question has exactly five options keyed A to E and exactly one correct option.
- Wrong options should be plausible traps: out of scope, distortion, extreme language, true but irrelevant, or opposite.
- Number the questions 1, 2, 3 and so on.
- Output valid JSON only.`

var generateUserTemplate = template.Must(template.New("generate").Parse(
	`Generate a GRE Reading Comprehension passage and between {{.Min}} and {{.Max}} questions (choose the number yourself).
Difficulty: {{.Difficulty}}
{{- if .ExamDate}}
The student sits the exam on {{.ExamDate}}.
{{- end}}`))

const diagnoseSystemPrompt = `You are a GRE tutor. A student answered a reading comprehension question incorrectly. Identify the trap they fell into, give a hint that leads back to the passage without revealing the answer, and explain the mistake in full. Output valid JSON only.`

var diagnoseUserTemplate = template.Must(template.New("diagnose").Parse(
	`Passage: {{.Excerpt}}

Question: {{.Question}}
{{range .Options}}{{.Key}}. {{.Text}}
{{end}}
Student answer: {{.Chosen}} (incorrect)
Correct answer: {{.Correct}}`))

const summarySystemPrompt = `You are a tough GRE drill sergeant. You give short, honest, motivating feedback after a practice drill. Output valid JSON only.`

var summaryUserTemplate = template.Must(template.New("summary").Parse(
	`First attempt score: {{.OriginalScore}}
Final mastery after retries: {{.FinalMastery}}
{{- if .ExamDate}}
Exam date: {{.ExamDate}}
{{- end}}
Traps fallen into: {{if .Traps}}{{range $i, $t := .Traps}}{{if $i}}, {{end}}{{$t}}{{end}}{{else}}none{{end}}`))

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
