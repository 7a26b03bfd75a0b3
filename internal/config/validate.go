package config

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator"
)

var (
	personNameRegex = regexp.MustCompile(`^[\p{L}\p{M}]+([ '.\-][\p{L}\p{M}]+)*$`)
	alphaSpaceRegex = regexp.MustCompile(`^[A-Za-z ]+$`)
	currencyRegex   = regexp.MustCompile(`^[A-Z]{3}$`)
)

// Validate is shared by every handler and service that checks input.
var Validate = NewValidator()

func NewValidator() *validator.Validate {
	v := validator.New()

	// Report fields by their json name so error details match the request body.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	v.RegisterValidation("personname", func(fl validator.FieldLevel) bool {
		return personNameRegex.MatchString(fl.Field().String())
	})
	v.RegisterValidation("alphaspace", func(fl validator.FieldLevel) bool {
		return alphaSpaceRegex.MatchString(fl.Field().String())
	})
	v.RegisterValidation("currency", func(fl validator.FieldLevel) bool {
		return currencyRegex.MatchString(fl.Field().String())
	})

	return v
}
