// internal/utils/validator.go
package utils

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

var (
	ethAddrPattern = regexp.MustCompile("^0x[0-9a-fA-F]{40}$")
	txHashPattern  = regexp.MustCompile("^0x[0-9a-fA-F]{64}$")
)

func init() {
	validate = validator.New()
	validate.RegisterValidation("eth_addr", validateEthAddr)
	validate.RegisterValidation("tx_hash", validateTxHash)
}

func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}

func validateEthAddr(fl validator.FieldLevel) bool {
	return ethAddrPattern.MatchString(fl.Field().String())
}

func validateTxHash(fl validator.FieldLevel) bool {
	return txHashPattern.MatchString(fl.Field().String())
}

// Validation tags for common fields
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

func GetValidationErrors(err error) []ValidationError {
	var validationErrors []ValidationError

	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		for _, e := range validationErrs {
			validationErrors = append(validationErrors, ValidationError{
				Field:   strings.ToLower(e.Field()),
				Tag:     e.Tag(),
				Message: getValidationMessage(e),
			})
		}
	}

	return validationErrors
}

func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return e.Field() + " is required"
	case "min":
		return e.Field() + " must be at least " + e.Param()
	case "max":
		return e.Field() + " must be at most " + e.Param()
	case "eth_addr":
		return e.Field() + " must be a 0x-prefixed 40-hex-char address"
	case "tx_hash":
		return e.Field() + " must be a 0x-prefixed 64-hex-char transaction hash"
	case "oneof":
		return e.Field() + " must be one of: " + e.Param()
	default:
		return e.Field() + " is invalid"
	}
}
