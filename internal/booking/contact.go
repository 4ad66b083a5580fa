package booking

import (
	"regexp"
	"strings"
	"sync"

	validator "github.com/go-playground/validator/v10"
)

// Contact holds checkout contact details. Fields stay free text until
// validated; validity is derived, never stored.
type Contact struct {
	Name  string `json:"name" validate:"contact_name"`
	Email string `json:"email" validate:"contact_email"`
	Phone string `json:"phone" validate:"contact_phone"`
}

// Trimmed returns a copy with surrounding whitespace removed, the form the
// contact is sent to the backend in.
func (c Contact) Trimmed() Contact {
	return Contact{
		Name:  strings.TrimSpace(c.Name),
		Email: strings.TrimSpace(c.Email),
		Phone: strings.TrimSpace(c.Phone),
	}
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
var digitPattern = regexp.MustCompile(`\D`)

// ValidName requires at least two characters after trimming.
func ValidName(v string) bool {
	return len(strings.TrimSpace(v)) >= 2
}

// ValidEmail requires a local@domain.tld shape with no embedded whitespace
// and a dot after the at sign.
func ValidEmail(v string) bool {
	return emailPattern.MatchString(strings.TrimSpace(v))
}

// ValidPhone requires 8 to 15 digit characters once separators are stripped.
func ValidPhone(v string) bool {
	digits := digitPattern.ReplaceAllString(v, "")
	return len(digits) >= 8 && len(digits) <= 15
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func contactValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		_ = validate.RegisterValidation("contact_name", func(fl validator.FieldLevel) bool {
			return ValidName(fl.Field().String())
		})
		_ = validate.RegisterValidation("contact_email", func(fl validator.FieldLevel) bool {
			return ValidEmail(fl.Field().String())
		})
		_ = validate.RegisterValidation("contact_phone", func(fl validator.FieldLevel) bool {
			return ValidPhone(fl.Field().String())
		})
	})
	return validate
}

// ValidateContact runs the three field rules and returns field-level messages
// keyed by the JSON field name. An empty map means the contact is valid.
func ValidateContact(c Contact) map[string]string {
	problems := map[string]string{}
	err := contactValidator().Struct(c)
	if err == nil {
		return problems
	}
	invalid, ok := err.(validator.ValidationErrors)
	if !ok {
		problems["contact"] = "invalid contact details"
		return problems
	}
	for _, fieldErr := range invalid {
		switch fieldErr.Tag() {
		case "contact_name":
			problems["name"] = "Please enter your full name."
		case "contact_email":
			problems["email"] = "Enter a valid email."
		case "contact_phone":
			problems["phone"] = "Enter a valid phone (8-15 digits)."
		}
	}
	return problems
}
