package client

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	validate   *validator.Validate
	translator ut.Translator
)

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	var ok bool
	translator, ok = ut.New(en.New(), en.New()).GetTranslator("en")
	if !ok {
		panic("client: failed to get 'en' translator")
	}

	if err := en_translations.RegisterDefaultTranslations(validate, translator); err != nil {
		panic(err)
	}

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}

		return name
	})
}

// validateConfig checks a resolved configuration against its declared tags.
func validateConfig(cfg RequestConfig) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}

	var verrors validator.ValidationErrors
	if !errors.As(err, &verrors) {
		return err
	}

	fields := make(FieldErrors, 0, len(verrors))
	for _, verror := range verrors {
		fields = append(fields, FieldError{
			Field: verror.Field(),
			Value: fmt.Sprint(verror.Value()),
			Err:   configErr(verror),
		})
	}

	return fields
}

// FieldError describes one rejected request setting.
type FieldError struct {
	Field string `json:"field"`
	Value string `json:"value,omitempty"`
	Err   string `json:"error"`
}

// FieldErrors is returned when a request configuration fails validation.
type FieldErrors []FieldError

func (fe FieldErrors) Error() string {
	parts := make([]string, len(fe))
	for i, f := range fe {
		parts[i] = f.Field + ": " + f.Err
	}
	return strings.Join(parts, "; ")
}

// Field returns the error for the named field, if any.
func (fe FieldErrors) Field(name string) (FieldError, bool) {
	for _, f := range fe {
		if f.Field == name {
			return f, true
		}
	}

	return FieldError{}, false
}

func configErr(verror validator.FieldError) string {
	switch verror.Tag() {
	case "required":
		return fmt.Sprintf("%s must be set", verror.Field())
	case "oneof":
		return fmt.Sprintf("%s %q is not supported, use one of %s",
			verror.Field(), fmt.Sprint(verror.Value()), strings.ReplaceAll(verror.Param(), " ", ", "))
	case "gte":
		return fmt.Sprintf("%s %v must not be negative", verror.Field(), verror.Value())
	default:
		return verror.Translate(translator)
	}
}
