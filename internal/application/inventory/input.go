package inventory

import (
	"errors"
	"fmt"
	"html"
	"reflect"
	"strings"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
)

// newValidator returns a validator reading the same `binding` tags gin uses,
// so requests that bypass the HTTP layer get the same checks.
func newValidator() *validator.Validate {
	v := validator.New()
	v.SetTagName("binding")
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validationError converts validator output into a domain validation error
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return shared.NewValidationError(err.Error())
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Field()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param()))
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s must have at least %s entries", fe.Field(), fe.Param()))
		case "email":
			msgs = append(msgs, fmt.Sprintf("%s must be a valid email address", fe.Field()))
		case "uuid":
			msgs = append(msgs, fmt.Sprintf("%s must be a valid UUID", fe.Field()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed on the '%s' rule", fe.Field(), fe.Tag()))
		}
	}
	return shared.NewValidationError(strings.Join(msgs, "; "))
}

// textSanitizer strips markup from free-text input. Entities produced by
// the policy are decoded again so "A & B" survives unchanged.
type textSanitizer struct {
	policy *bluemonday.Policy
}

func newTextSanitizer() textSanitizer {
	return textSanitizer{policy: bluemonday.StrictPolicy()}
}

func (t textSanitizer) clean(s string) string {
	if s == "" {
		return s
	}
	return strings.TrimSpace(html.UnescapeString(t.policy.Sanitize(s)))
}
