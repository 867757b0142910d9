// Package prompt renders the instructions sent to the generator.
package prompt

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"medidiet/internal/profile"
)

// PlanSystemInstruction constrains weekly plan generation to bare JSON.
const PlanSystemInstruction = `MANDATORY JSON RULES (FOLLOW STRICTLY): 1) Output ONLY valid JSON. 2) NO markdown, NO code blocks, NO explanations, NO comments. 3) NO newline characters inside strings. 4) Every array item must be a SINGLE-LINE string. 5) Double quotes only. 6) No trailing commas. 7) Follow the schema EXACTLY. 8) If you cannot comply, output exactly: {"error":"INVALID_FORMAT"}. You are an expert Indian clinical dietitian.`

// QASystemInstruction keeps answers short and grounded in the supplied plan.
const QASystemInstruction = `You are a helpful diet assistant. Provide concise, friendly advice based on the provided diet plan. Never provide medical diagnosis. Always suggest consulting a healthcare provider for medical concerns.`

// Rune budgets for substituted values.
const (
	shortFieldLimit   = 100
	medicalFieldLimit = 500
	QuestionLimit     = 1000
)

//go:embed templates/plan.tmpl
var planTemplateText string

//go:embed templates/qa.tmpl
var qaTemplateText string

var (
	planTemplate = template.Must(template.New("plan").Option("missingkey=error").Parse(planTemplateText))
	qaTemplate   = template.Must(template.New("qa").Option("missingkey=error").Parse(qaTemplateText))
)

var weekDays = []string{"day_1", "day_2", "day_3", "day_4", "day_5", "day_6", "day_7"}

// Prompt is a system instruction and the user prompt it applies to.
type Prompt struct {
	System string
	User   string
}

type planPromptData struct {
	Age            int
	Gender         string
	Height         string
	Weight         string
	MedicalHistory string
	Medications    string
	Allergies      string
	Preference     string
	Goal           string
	Days           []string
}

// BuildPlanPrompt renders the weekly plan prompt for a normalised profile.
func BuildPlanPrompt(p profile.HealthProfile) (Prompt, error) {
	data := planPromptData{
		Age:            p.Age,
		Gender:         Flatten(p.Gender, shortFieldLimit),
		Height:         Flatten(p.Height, shortFieldLimit),
		Weight:         Flatten(p.Weight, shortFieldLimit),
		MedicalHistory: Flatten(p.MedicalHistory, medicalFieldLimit),
		Medications:    Flatten(p.Medications, medicalFieldLimit),
		Allergies:      Flatten(p.Allergies, medicalFieldLimit),
		Preference:     Flatten(p.Preference, shortFieldLimit),
		Goal:           Flatten(p.Goal, shortFieldLimit),
		Days:           weekDays,
	}

	var buf bytes.Buffer
	if err := planTemplate.Execute(&buf, data); err != nil {
		return Prompt{}, fmt.Errorf("failed to execute plan template: %w", err)
	}
	return Prompt{System: PlanSystemInstruction, User: buf.String()}, nil
}

type qaPromptData struct {
	Plan     string
	Question string
}

// BuildQAPrompt renders the question prompt. plan is embedded as JSON
// indented with two spaces.
func BuildQAPrompt(plan any, question string) (Prompt, error) {
	planJSON, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return Prompt{}, fmt.Errorf("failed to encode plan context: %w", err)
	}

	var buf bytes.Buffer
	err = qaTemplate.Execute(&buf, qaPromptData{
		Plan:     string(planJSON),
		Question: Flatten(question, QuestionLimit),
	})
	if err != nil {
		return Prompt{}, fmt.Errorf("failed to execute qa template: %w", err)
	}
	return Prompt{System: QASystemInstruction, User: buf.String()}, nil
}

// Flatten collapses all whitespace runs (including CR, LF and tab) into
// single spaces and truncates the result to limit runes.
func Flatten(s string, limit int) string {
	out := strings.Join(strings.Fields(s), " ")
	if r := []rune(out); len(r) > limit {
		out = strings.TrimSpace(string(r[:limit]))
	}
	return out
}
