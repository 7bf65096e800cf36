package validator

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// FieldError is a single validation failure reported to the client.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

var messages = map[string]string{
	"required": "field is required",
	"notblank": "field must not be blank",
	"min":      "value is too short",
	"max":      "value is too long",
	"oneof":    "value is not allowed",
	"url":      "must be a valid URL",
	"datetime": "must be a time in HH:MM format",
	"gte":      "value is too small",
	"lte":      "value is too large",
}

var once sync.Once

// Setup registers the custom validations on gin's binding engine. Safe to call more than once.
func Setup() {
	once.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			Register(v)
		}
	})
}

// Register adds the custom tags and reports json field names in errors.
func Register(v *validator.Validate) {
	if err := v.RegisterValidation("notblank", notBlank); err != nil {
		panic(err)
	}
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
}

func notBlank(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() != reflect.String {
		return true
	}
	return strings.TrimSpace(field.String()) != ""
}

// Describe flattens a binding error into field errors. Non-validation errors
// (malformed JSON, wrong types) come back as a single entry for "body".
func Describe(err error) []FieldError {
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return []FieldError{{Field: "body", Message: err.Error()}}
	}

	out := make([]FieldError, 0, len(verrs))
	for _, e := range verrs {
		msg, ok := messages[e.Tag()]
		if !ok {
			msg = fmt.Sprintf("failed on %s", e.Tag())
		}
		out = append(out, FieldError{Field: strings.TrimPrefix(e.Namespace(), rootOf(e.Namespace())), Message: msg})
	}
	return out
}

// rootOf returns the leading "Struct." segment of a namespace.
func rootOf(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[:i+1]
	}
	return ""
}
