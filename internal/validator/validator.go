package validator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationError represents a single rejected field
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   any    `json:"value,omitempty"`
	Rule    string `json:"rule,omitempty"`
}

type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "validation failed"
	}
	if len(ve) == 1 {
		return fmt.Sprintf("validation failed: %s", ve[0].Message)
	}
	return fmt.Sprintf("validation failed: %d field errors", len(ve))
}

// Messages returns the human readable message of every error, without
// repeating a message.
func (ve ValidationErrors) Messages() []string {
	out := make([]string, 0, len(ve))
	seen := make(map[string]bool, len(ve))
	for _, e := range ve {
		if seen[e.Message] {
			continue
		}
		seen[e.Message] = true
		out = append(out, e.Message)
	}
	return out
}

// Validator wraps go-playground/validator with the portal's rules. Request
// structs may carry a `message` tag used whenever the field is rejected.
type Validator struct {
	validate *validator.Validate
	business *BusinessValidator
}

func New() *Validator {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	registerRules(validate)

	v := &Validator{validate: validate}
	v.business = &BusinessValidator{v: v}
	return v
}

func (v *Validator) GetBusinessValidator() *BusinessValidator {
	return v.business
}

// Validate runs the struct rules on s, a pointer to a request struct.
func (v *Validator) Validate(s any) ValidationErrors {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return ValidationErrors{{Field: "body", Message: err.Error(), Rule: "invalid"}}
	}

	t := reflect.TypeOf(s)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	var errs ValidationErrors
	for _, fe := range fieldErrs {
		errs = append(errs, ValidationError{
			Field:   fe.Field(),
			Message: fieldMessage(t, fe),
			Value:   fe.Value(),
			Rule:    fe.Tag(),
		})
	}
	return errs
}

// Decode fills dst, a pointer to a request struct, from a JSON object. Keys
// are decoded one at a time so that every value of the wrong type is
// reported, not just the first. In strict mode keys that name no field are
// rejected as one "Invalid fields" error.
func (v *Validator) Decode(body []byte, dst any, strict bool) ValidationErrors {
	if len(bytes.TrimSpace(body)) == 0 {
		body = []byte("{}")
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return ValidationErrors{{Field: "body", Message: "Request body must be a JSON object", Rule: "json"}}
	}

	t := reflect.TypeOf(dst).Elem()
	fields := jsonFields(t)

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var errs ValidationErrors
	var unknown []string
	for _, k := range keys {
		sf, ok := fields[k]
		if !ok {
			unknown = append(unknown, k)
			continue
		}
		target := reflect.ValueOf(dst).Elem().FieldByIndex(sf.Index)
		if err := json.Unmarshal(raw[k], target.Addr().Interface()); err != nil {
			msg := sf.Tag.Get("message")
			if msg == "" {
				msg = fmt.Sprintf("%s has an invalid type", k)
			}
			errs = append(errs, ValidationError{Field: k, Message: msg, Value: string(raw[k]), Rule: "type"})
		}
	}
	if strict && len(unknown) > 0 {
		errs = append(ValidationErrors{{
			Field:   strings.Join(unknown, ","),
			Message: "Invalid fields: " + strings.Join(unknown, ", "),
			Rule:    "allowed_fields",
		}}, errs...)
	}
	return errs
}

func jsonFields(t reflect.Type) map[string]reflect.StructField {
	out := make(map[string]reflect.StructField, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		name, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
		if name == "" || name == "-" || !sf.IsExported() {
			continue
		}
		out[name] = sf
	}
	return out
}

func fieldMessage(t reflect.Type, fe validator.FieldError) string {
	if t.Kind() == reflect.Struct {
		if sf, ok := t.FieldByName(fe.StructField()); ok {
			if msg := sf.Tag.Get("message"); msg != "" {
				return msg
			}
		}
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min", "trimmed_min":
		return fmt.Sprintf("%s must be at least %s characters long", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	}
	return fmt.Sprintf("%s is invalid", fe.Field())
}
