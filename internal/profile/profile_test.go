package profile

import (
	"strings"
	"testing"

	"medidiet/internal/apperr"
)

func ptr[T any](v T) *T { return &v }

func validInput() Input {
	return Input{
		Age:        ptr(30),
		Gender:     ptr("Male"),
		Height:     ptr("175cm"),
		Weight:     ptr("70kg"),
		Preference: ptr("Veg"),
		Goal:       ptr("weight_loss"),
	}
}

func TestNormalize(t *testing.T) {
	t.Run("DefaultsOptionalFields", func(t *testing.T) {
		p, err := Normalize(validInput())
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if p.MedicalHistory != DefaultNone || p.Medications != DefaultNone || p.Allergies != DefaultNone {
			t.Errorf("Expected optional fields to default to None, got %+v", p)
		}
		if p.Age != 30 || p.Gender != "Male" || p.Goal != "weight_loss" {
			t.Errorf("Unexpected profile %+v", p)
		}
	})

	t.Run("BlankOptionalBecomesNone", func(t *testing.T) {
		in := validInput()
		in.Allergies = ptr("   ")
		in.Medications = ptr(" Metformin ")
		p, err := Normalize(in)
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if p.Allergies != DefaultNone {
			t.Errorf("Expected 'None', got %q", p.Allergies)
		}
		if p.Medications != "Metformin" {
			t.Errorf("Expected trimmed value, got %q", p.Medications)
		}
	})

	t.Run("IsDeterministic", func(t *testing.T) {
		a, _ := Normalize(validInput())
		b, _ := Normalize(validInput())
		if a != b {
			t.Errorf("Expected identical output, got %+v and %+v", a, b)
		}
	})

	t.Run("RejectsInvalidFields", func(t *testing.T) {
		cases := []struct {
			name   string
			mutate func(*Input)
			field  string
		}{
			{"MissingAge", func(in *Input) { in.Age = nil }, "age"},
			{"AgeTooHigh", func(in *Input) { in.Age = ptr(121) }, "age"},
			{"AgeZero", func(in *Input) { in.Age = ptr(0) }, "age"},
			{"UnknownGender", func(in *Input) { in.Gender = ptr("male") }, "gender"},
			{"BlankHeight", func(in *Input) { in.Height = ptr("  ") }, "height"},
			{"MissingWeight", func(in *Input) { in.Weight = nil }, "weight"},
			{"UnknownPreference", func(in *Input) { in.Preference = ptr("Vegan") }, "preference"},
			{"MissingGoal", func(in *Input) { in.Goal = nil }, "goal"},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				in := validInput()
				tc.mutate(&in)
				_, err := Normalize(in)
				if !apperr.Is(err, apperr.KindInvalidInput) {
					t.Fatalf("Expected InvalidInput, got %v", err)
				}
				if !strings.Contains(apperr.MessageOf(err), tc.field+":") {
					t.Errorf("Expected message to name %q, got %q", tc.field, apperr.MessageOf(err))
				}
			})
		}
	})

	t.Run("ListsEveryFailingField", func(t *testing.T) {
		_, err := Normalize(Input{})
		msg := apperr.MessageOf(err)
		for _, field := range []string{"age", "gender", "height", "weight", "preference", "goal"} {
			if !strings.Contains(msg, field+":") {
				t.Errorf("Expected %q in %q", field, msg)
			}
		}
	})
}
