package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/dtroode/authkeeper/internal/api/http/response"
	"github.com/dtroode/authkeeper/internal/model"
)

const maxBodySize = 1 << 20

// fieldsError lists the request fields that failed validation.
type fieldsError struct {
	fields []response.FieldError
}

func (e *fieldsError) Error() string {
	names := make([]string, 0, len(e.fields))
	for _, f := range e.fields {
		names = append(names, f.Field)
	}
	return "request validation failed: " + strings.Join(names, ", ")
}

// Validator decodes JSON request bodies and validates them by struct tags.
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = validate.RegisterValidation("password", validatePassword)

	return &Validator{validate: validate}
}

// Decode reads r's body into dst. Failures are validation errors.
func (v *Validator) Decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return model.NewValidationErrorf("request body is empty")
		}
		return model.NewValidationErrorf("malformed request body: %v", err)
	}

	if err := v.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("failed to validate request: %w", err)
		}
		fe := &fieldsError{}
		for _, e := range verrs {
			fe.fields = append(fe.fields, response.FieldError{Field: e.Field(), Rule: e.Tag()})
		}
		return model.NewValidationError(fe)
	}

	return nil
}

// validatePassword requires upper and lower case letters, a digit and a symbol.
func validatePassword(fl validator.FieldLevel) bool {
	var upper, lower, digit, special bool
	for _, c := range fl.Field().String() {
		switch {
		case unicode.IsUpper(c):
			upper = true
		case unicode.IsLower(c):
			lower = true
		case unicode.IsDigit(c):
			digit = true
		case unicode.IsPunct(c) || unicode.IsSymbol(c):
			special = true
		}
	}
	return upper && lower && digit && special
}
