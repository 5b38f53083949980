package contextutils

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

// Slugs may contain interior spaces ("Базы данных") but no slashes and no outer whitespace.
var tagSlugPattern = regexp.MustCompile(`^[^/\s](?:[^/]*[^/\s])?$`)

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("tagslug", func(fl validator.FieldLevel) bool {
		return tagSlugPattern.MatchString(fl.Field().String())
	})
	return v
}

// Validator exposes the shared validator so gin bindings and services agree on custom tags.
func Validator() *validator.Validate {
	return validate
}

// IsValidRating reports whether s is one of the accepted difficulty ratings.
func IsValidRating(s string) bool {
	return validate.Var(s, "required,oneof=easy medium hard") == nil
}

// IsValidTagSlug reports whether s can be used as a tag slug.
func IsValidTagSlug(s string) bool {
	return validate.Var(s, "required,max=100,tagslug") == nil
}

// ValidateStruct runs struct-tag validation and converts failures to INVALID_INPUT.
func ValidateStruct(s interface{}) error {
	if err := validate.Struct(s); err != nil {
		return NewAppErrorWithCause(ErrorCodeInvalidInput, SeverityWarn, ErrInvalidInput.Message, err.Error(), err)
	}
	return nil
}
