package snapapi

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their wire name so messages match the API docs.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	v.RegisterStructValidation(screenshotSourceValidation, ScreenshotOptions{})
	return v
}

// screenshotSourceValidation enforces exactly one of url, html, markdown.
func screenshotSourceValidation(sl validator.StructLevel) {
	o := sl.Current().Interface().(ScreenshotOptions)
	n := 0
	for _, s := range []string{o.URL, o.HTML, o.Markdown} {
		if s != "" {
			n++
		}
	}
	if n != 1 {
		sl.ReportError(o.URL, "url", "URL", "source", "")
	}
}

// validateOptions runs struct validation and converts failures into a
// *ValidationError.
func validateOptions(opts any) error {
	err := validate.Struct(opts)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	ve := &ValidationError{Fields: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		field := fe.Namespace()
		if _, rest, ok := strings.Cut(field, "."); ok {
			field = rest
		}
		ve.Fields = append(ve.Fields, FieldError{
			Field:   field,
			Rule:    fe.Tag(),
			Message: fieldMessage(field, fe),
		})
	}
	return ve
}

func fieldMessage(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "source":
		return "exactly one of url, html or markdown is required"
	case "required":
		return field + " is required"
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must contain at least %s item(s)", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must contain at most %s item(s)", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "url":
		return field + " must be a valid URL"
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
