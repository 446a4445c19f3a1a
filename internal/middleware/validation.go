package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/shopspring/decimal"
)

// ErrMalformedBody is returned when the request body is empty or not valid JSON
var ErrMalformedBody = errors.New("request body is empty or invalid")

const (
	maxPriceIntegerDigits  = 8
	maxPriceFractionDigits = 2
)

// Validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()

	// Report fields by their JSON names
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	// Decimals are validated through their canonical string form
	validate.RegisterCustomTypeFunc(func(v reflect.Value) interface{} {
		if d, ok := v.Interface().(decimal.Decimal); ok {
			return d.String()
		}
		return nil
	}, decimal.Decimal{})

	validate.RegisterValidation("notblank", validators.NotBlank)
	validate.RegisterValidation("price", validatePrice)
}

// validatePrice accepts positive decimals with at most 8 integer and 2 fraction digits
func validatePrice(fl validator.FieldLevel) bool {
	d, err := decimal.NewFromString(fl.Field().String())
	if err != nil || !d.IsPositive() {
		return false
	}
	if d.Exponent() < -maxPriceFractionDigits {
		return false
	}
	return d.LessThan(decimal.New(1, maxPriceIntegerDigits))
}

// ValidateRequest validates the request body against a struct with validation tags
func ValidateRequest(v interface{}) error {
	return validate.Struct(v)
}

// DecodeAndValidate decodes JSON request body and validates it
func DecodeAndValidate(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	return ValidateRequest(v)
}

// RespondWithDecodeError reports a DecodeAndValidate failure as a 400
func RespondWithDecodeError(w http.ResponseWriter, err error) {
	if fields := FormatValidationErrors(err); len(fields) > 0 {
		RespondWithValidationErrors(w, fields)
		return
	}
	RespondWithError(w, http.StatusBadRequest, ErrMalformedBody.Error())
}

// FormatValidationErrors groups validator errors by JSON field name
func FormatValidationErrors(err error) map[string][]string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil
	}

	fields := make(map[string][]string, len(validationErrors))
	for _, e := range validationErrors {
		fields[e.Field()] = append(fields[e.Field()], getErrorMessage(e))
	}
	return fields
}

func getErrorMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required", "notblank":
		return "must not be blank"
	case "isbn":
		return "must be a valid ISBN-10 or ISBN-13"
	case "url":
		return "must be a valid URL"
	case "price":
		return fmt.Sprintf("must be greater than 0 with at most %d integer and %d fraction digits",
			maxPriceIntegerDigits, maxPriceFractionDigits)
	case "min":
		return fmt.Sprintf("must be at least %s characters", e.Param())
	case "max":
		return fmt.Sprintf("must not exceed %s characters", e.Param())
	case "gte":
		return "must be greater than or equal to " + e.Param()
	case "lte":
		return "must be less than or equal to " + e.Param()
	case "gt":
		return "must be greater than " + e.Param()
	case "lt":
		return "must be less than " + e.Param()
	default:
		return "is invalid"
	}
}
