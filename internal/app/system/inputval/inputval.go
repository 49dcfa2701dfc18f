// Package inputval provides request input validation using waffle/pantry/validate.
//
// Define an input struct with validate tags, populate it from the decoded
// request, and call Validate to get client-facing error messages.
//
// Example:
//
//	type SignupInput struct {
//	    Name  string `validate:"required" label:"Name"`
//	    Photo string `validate:"omitempty,httpurl" label:"Profile picture URL"`
//	}
//
//	if res := inputval.Validate(input); res.HasErrors() {
//	    jsonutil.BadRequest(w, res.First())
//	    return
//	}
package inputval

import (
	"net/url"
	"reflect"
	"strings"
	"sync"

	"github.com/dalemusser/waffle/pantry/validate"
)

// Result holds validation results with client-facing messages.
type Result struct {
	Errors []FieldError
}

// FieldError is a validation failure for a single field.
type FieldError struct {
	Field   string
	Label   string
	Rule    string // the rule that failed, e.g. "required"
	Message string
}

// HasErrors returns true if there are any validation errors.
func (r *Result) HasErrors() bool {
	return len(r.Errors) > 0
}

// First returns the first error message, or empty string if no errors.
func (r *Result) First() string {
	if len(r.Errors) > 0 {
		return r.Errors[0].Message
	}
	return ""
}

// FirstRule returns the rule behind the first error, or empty string.
func (r *Result) FirstRule() string {
	if len(r.Errors) > 0 {
		return r.Errors[0].Rule
	}
	return ""
}

// All returns all error messages joined with "; ".
func (r *Result) All() string {
	if len(r.Errors) == 0 {
		return ""
	}
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Message
	}
	return strings.Join(msgs, "; ")
}

var (
	customValidator *validate.Validator
	validatorOnce   sync.Once
)

func getValidator() *validate.Validator {
	validatorOnce.Do(func() {
		customValidator = validate.New(validate.WithStopOnFirstError())

		// httpurl: absolute http or https URL
		customValidator.RegisterRuleFunc("httpurl", func(value any) bool {
			if s, ok := value.(string); ok {
				return IsValidHTTPURL(s)
			}
			return false
		}, "httpurl")
	})
	return customValidator
}

// Validate validates a struct and returns a Result with client-facing errors.
// Rules come from `validate` tags and field names from optional `label` tags.
// Validation stops at the first failing field, in declaration order.
//
// Supported rules (from pantry/validate): required, oneof=a b c, min=N,
// max=N (string length in characters), plus the custom httpurl rule, which
// requires a valid http:// or https:// URL.
func Validate(s any) *Result {
	result := &Result{}

	err := getValidator().Struct(s)
	if err == nil {
		return result
	}

	labels := getFieldLabels(s)

	if errs, ok := err.(validate.Errors); ok {
		for _, e := range errs {
			label := labels[e.Field]
			if label == "" {
				label = e.Field
			}
			result.Errors = append(result.Errors, FieldError{
				Field:   e.Field,
				Label:   label,
				Rule:    e.Rule,
				Message: formatMessage(label, e.Rule, e.Param),
			})
		}
		return result
	}

	// Not a struct: a programming error, surfaced as a generic failure.
	result.Errors = append(result.Errors, FieldError{Message: err.Error()})
	return result
}

// getFieldLabels maps field names (json tag when present) to their label tag.
func getFieldLabels(s any) map[string]string {
	labels := make(map[string]string)

	val := reflect.ValueOf(s)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return labels
	}

	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)

		fieldName := field.Name
		if jsonTag := field.Tag.Get("json"); jsonTag != "" {
			parts := strings.Split(jsonTag, ",")
			if parts[0] != "" && parts[0] != "-" {
				fieldName = parts[0]
			}
		}

		if label := field.Tag.Get("label"); label != "" {
			labels[fieldName] = label
		}
	}

	return labels
}

func formatMessage(label, rule, param string) string {
	switch rule {
	case "required":
		return label + " is required."
	case "oneof", "enum":
		return label + " must be one of: " + strings.ReplaceAll(param, " ", ", ") + "."
	case "min":
		return label + " must be at least " + param + " characters."
	case "max":
		return label + " must be at most " + param + " characters."
	case "httpurl":
		return label + " must be a valid URL starting with http:// or https://."
	default:
		return label + " is invalid."
	}
}

// IsValidHTTPURL checks if the given string is an absolute http or https URL.
func IsValidHTTPURL(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
