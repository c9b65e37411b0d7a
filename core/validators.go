package core

import (
	"reflect"
	"regexp"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var alphaNumUnderRegex = regexp.MustCompile(`^\w+$`)

// customTags are the validations shared by every package.
var customTags = []struct {
	tag  string
	fn   validator.Func
	text string
}{
	{"alphanum_", alphaNumUnderValidation, "only alphanumeric characters and underscores are allowed"},
	{"notblank", notBlankValidation, "this field cannot be blank"},
}

// overriddenTexts replace the default english translations.
var overriddenTexts = map[string]string{
	"required":      "this field is required",
	"required_with": "this field is required",
	"oneof":         "must be one of: {0}",
}

// InitValidators registers translations, JSON field names and the shared custom tags on `validate`.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = en_translations.RegisterDefaultTranslations(validate, translator)
	validate.RegisterTagNameFunc(jsonFieldName)

	for _, ct := range customTags {
		_ = validate.RegisterValidation(ct.tag, ct.fn)
		RegisterCustomTranslation(validate, translator, ct.tag, ct.text)
	}
	for tag, text := range overriddenTexts {
		RegisterCustomTranslation(validate, translator, tag, text, true)
	}
}

func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	return name
}

// RegisterCustomTranslation registers `text` as the message of `tag`.
// A {0} placeholder is replaced with the tag param (the allowed values of oneof).
func RegisterCustomTranslation(validate *validator.Validate, translator ut.Translator, tag, text string, override ...bool) {
	ovrd := len(override) > 0 && override[0]
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, strings.Join(strings.Fields(fe.Param()), ", "))
			return s
		},
	)
}

func alphaNumUnderValidation(fl validator.FieldLevel) bool {
	return alphaNumUnderRegex.MatchString(fl.Field().String())
}

func notBlankValidation(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}
