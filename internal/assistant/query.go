package assistant

import (
	"fmt"
	"strings"

	"medidiet/internal/validation"

	"github.com/go-playground/validator/v10"
)

// Query is the messaging webhook body.
type Query struct {
	Phone   string `json:"phone" validate:"required,min=10,phone"`
	Message string `json:"message" validate:"required,min=1,max=1000"`
}

var validate = validation.New()

// Validate returns the plain-text rejection for an invalid query, or "".
func (q *Query) Validate() string {
	q.Phone = strings.TrimSpace(q.Phone)
	err := validate.Struct(q)
	if err == nil {
		return ""
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return "Invalid input format. Issues: " + err.Error()
	}
	issues := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		issues = append(issues, fmt.Sprintf("%s - %s", fe.Field(), issue(fe)))
	}
	return "Invalid input format. Issues: " + strings.Join(issues, "; ")
}

func issue(fe validator.FieldError) string {
	switch fe.Field() + "." + fe.Tag() {
	case "phone.required", "phone.min":
		return "Phone number must be at least 10 digits"
	case "phone.phone":
		return "Invalid phone format (E.164 recommended)"
	case "message.required", "message.min":
		return "Message cannot be empty"
	case "message.max":
		return "Message too long"
	}
	return validation.Describe(validator.ValidationErrors{fe})
}
