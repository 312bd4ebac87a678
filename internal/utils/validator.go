package utils

import (
	"reflect"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/truemail-rb/truemail-go"
)

// Validator bundles struct validation, input sanitizing and the optional
// MX reachability check for email addresses.
type Validator struct {
	Validate    *validator.Validate
	VerifyEmail func(email string) bool

	strictPolicy *bluemonday.Policy
	ugcPolicy    *bluemonday.Policy
}

var (
	instance      *Validator
	validatorOnce sync.Once
	configuration *truemail.Configuration
)

// GetValidator returns the process-wide validator instance.
func GetValidator() *Validator {
	validatorOnce.Do(func() {
		configuration, _ = truemail.NewConfiguration(truemail.ConfigurationAttr{
			VerifierEmail:         "team@mail.verso-cms.tech",
			ValidationTypeDefault: "mx",
			SmtpFailFast:          true,
		})

		instance = &Validator{
			Validate:     validator.New(validator.WithRequiredStructEnabled()),
			VerifyEmail:  validateEmail,
			strictPolicy: bluemonday.StrictPolicy(),
			ugcPolicy:    bluemonday.UGCPolicy(),
		}

		registerCustomValidators(instance.Validate)
	})

	return instance
}

func validateEmail(email string) bool {
	return truemail.IsValid(email, configuration)
}

// SanitizeData strips markup from every exported string and []string field
// of the given struct pointer. Fields tagged `sanitize:"ugc"` keep
// user-generated HTML allowed by the UGC policy instead, fields tagged
// `sanitize:"-"` are left untouched.
func (v *Validator) SanitizeData(obj interface{}) error {
	value := reflect.ValueOf(obj)
	if value.Kind() != reflect.Ptr || value.Elem().Kind() != reflect.Struct {
		return nil
	}

	structValue := value.Elem()
	structType := structValue.Type()

	for i := 0; i < structValue.NumField(); i++ {
		field := structValue.Field(i)
		if !field.CanSet() {
			continue
		}

		policy := v.strictPolicy
		switch structType.Field(i).Tag.Get("sanitize") {
		case "-":
			continue
		case "ugc":
			policy = v.ugcPolicy
		}

		switch {
		case field.Kind() == reflect.String:
			field.SetString(policy.Sanitize(field.String()))
		case field.Kind() == reflect.Slice && field.Type().Elem().Kind() == reflect.String:
			for j := 0; j < field.Len(); j++ {
				elem := field.Index(j)
				elem.SetString(policy.Sanitize(elem.String()))
			}
		}
	}

	return nil
}

// SanitizeUGC runs the UGC policy over a standalone HTML fragment.
func (v *Validator) SanitizeUGC(html string) string {
	return v.ugcPolicy.Sanitize(html)
}

func registerCustomValidators(v *validator.Validate) {
	if err := v.RegisterValidation("password_validation", passwordValidation); err != nil {
		return
	}
}

// passwordValidation requires an ASCII password with at least one upper-case
// letter, one lower-case letter, one digit and one special character.
func passwordValidation(fl validator.FieldLevel) bool {
	var upperLetter, lowerLetter, number, specialChar bool

	value := fl.Field().String()
	for _, r := range value {
		if r > unicode.MaxASCII {
			return false
		}

		switch {
		case unicode.IsUpper(r):
			upperLetter = true
		case unicode.IsLower(r):
			lowerLetter = true
		case unicode.IsNumber(r):
			number = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			specialChar = true
		}
	}

	return upperLetter && lowerLetter && number && specialChar
}
