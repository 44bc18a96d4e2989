package validator

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
)

type registerForm struct {
	Username string `validate:"required,min=3"`
	Email    string `validate:"required,email"`
	Role     string `validate:"oneof=student teacher"`
}

func TestFormatValidationError(t *testing.T) {
	v := validator.New()

	err := v.Struct(registerForm{Username: "ab", Email: "nope", Role: "admin"})
	assert.Equal(t,
		"Username must be at least 3 characters; Email must be a valid email; Role must be one of: student teacher",
		FormatValidationError(err),
	)

	err = v.Struct(registerForm{Email: "a@b.co", Role: "student"})
	assert.Equal(t, "Username is required", FormatValidationError(err))

	assert.Equal(t, "plain", FormatValidationError(errors.New("plain")))
}
