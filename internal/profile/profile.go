// Package profile turns a submitted health profile into the normalised form
// used for prompting and stored alongside every generated plan.
package profile

import (
	"strings"

	"medidiet/internal/apperr"
	"medidiet/internal/validation"
)

// DefaultNone replaces blank optional fields.
const DefaultNone = "None"

// Input is the raw submission. Pointers make absence detectable.
type Input struct {
	Age            *int    `json:"age"`
	Gender         *string `json:"gender"`
	Height         *string `json:"height"`
	Weight         *string `json:"weight"`
	MedicalHistory *string `json:"medical_history"`
	Medications    *string `json:"medications"`
	Allergies      *string `json:"allergies"`
	Preference     *string `json:"preference"`
	Goal           *string `json:"goal"`
}

// HealthProfile is a normalised profile: every field is non-empty.
type HealthProfile struct {
	Age            int    `json:"age" validate:"required,min=1,max=120"`
	Gender         string `json:"gender" validate:"required,oneof=Male Female Other"`
	Height         string `json:"height" validate:"required,max=50"`
	Weight         string `json:"weight" validate:"required,max=50"`
	MedicalHistory string `json:"medical_history" validate:"required,max=1000"`
	Medications    string `json:"medications" validate:"required,max=1000"`
	Allergies      string `json:"allergies" validate:"required,max=1000"`
	Preference     string `json:"preference" validate:"required,oneof=Veg Non-Veg Eggetarian"`
	Goal           string `json:"goal" validate:"required,max=200"`
}

var validate = validation.New()

// Normalize trims every field, defaults blank optional fields to "None" and
// validates the result. The InvalidInput error lists every failing field.
func Normalize(in Input) (HealthProfile, error) {
	p := HealthProfile{
		Gender:         trimmed(in.Gender),
		Height:         trimmed(in.Height),
		Weight:         trimmed(in.Weight),
		MedicalHistory: orNone(in.MedicalHistory),
		Medications:    orNone(in.Medications),
		Allergies:      orNone(in.Allergies),
		Preference:     trimmed(in.Preference),
		Goal:           trimmed(in.Goal),
	}
	if in.Age != nil {
		p.Age = *in.Age
	}

	if err := validate.Struct(p); err != nil {
		return HealthProfile{}, apperr.Wrap(apperr.KindInvalidInput, err, "Invalid input: "+validation.Describe(err))
	}
	return p, nil
}

func trimmed(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func orNone(s *string) string {
	if v := trimmed(s); v != "" {
		return v
	}
	return DefaultNone
}
