package validator

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string   `json:"name" validate:"required,notblank"`
	Times []string `json:"times" validate:"dive,datetime=15:04"`
}

func newValidate() *validator.Validate {
	v := validator.New()
	Register(v)
	return v
}

func TestNotBlank(t *testing.T) {
	v := newValidate()

	assert.NoError(t, v.Struct(sample{Name: "Metformin"}))

	err := v.Struct(sample{Name: "   "})
	require.Error(t, err)
	fields := Describe(err)
	require.Len(t, fields, 1)
	assert.Equal(t, FieldError{Field: "name", Message: "field must not be blank"}, fields[0])
}

func TestDescribeNestedField(t *testing.T) {
	v := newValidate()

	err := v.Struct(sample{Name: "x", Times: []string{"08:00", "8am"}})
	require.Error(t, err)

	fields := Describe(err)
	require.Len(t, fields, 1)
	assert.Equal(t, "times[1]", fields[0].Field)
	assert.Equal(t, "must be a time in HH:MM format", fields[0].Message)
}

func TestDescribeNonValidationError(t *testing.T) {
	fields := Describe(errors.New("unexpected EOF"))

	require.Len(t, fields, 1)
	assert.Equal(t, "body", fields[0].Field)
}
