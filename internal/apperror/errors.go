package apperror

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type Kind int

const (
	Internal Kind = iota
	BadRequest
	Unauthorized
	Forbidden
	NotFound
	Conflict
	TooManyRequests
	Unavailable
)

func (k Kind) Status() int {
	switch k {
	case BadRequest:
		return fiber.StatusBadRequest
	case Unauthorized:
		return fiber.StatusUnauthorized
	case Forbidden:
		return fiber.StatusForbidden
	case NotFound:
		return fiber.StatusNotFound
	case Conflict:
		return fiber.StatusConflict
	case TooManyRequests:
		return fiber.StatusTooManyRequests
	case Unavailable:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

func (k Kind) String() string {
	switch k {
	case BadRequest:
		return "bad_request"
	case Unauthorized:
		return "unauthorized"
	case Forbidden:
		return "forbidden"
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	case TooManyRequests:
		return "too_many_requests"
	case Unavailable:
		return "unavailable"
	default:
		return "internal"
	}
}

// Error is a domain error that knows how it should be reported over HTTP.
type Error struct {
	Kind    Kind
	Message string
	Details map[string][]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap attaches a kind and client facing message to err.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func NewBadRequest(message string) *Error   { return New(BadRequest, message) }
func NewUnauthorized(message string) *Error { return New(Unauthorized, message) }
func NewForbidden(message string) *Error    { return New(Forbidden, message) }
func NewNotFound(message string) *Error     { return New(NotFound, message) }
func NewConflict(message string) *Error     { return New(Conflict, message) }
func NewUnavailable(message string) *Error  { return New(Unavailable, message) }

// Validation turns a validator error into a BadRequest carrying a field keyed
// detail map. Other errors become a plain BadRequest.
func Validation(err error) *Error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return Wrap(BadRequest, "Invalid request data", err)
	}

	details := make(map[string][]string, len(verrs))
	for _, fe := range verrs {
		details[fe.Field()] = append(details[fe.Field()], fieldMessage(fe))
	}

	return &Error{Kind: BadRequest, Message: "Invalid request data", Details: details, Err: err}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return "Invalid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	case "personname":
		return "Name can only contain unicode letters, spaces, dots, hyphens and apostrophes"
	case "alphaspace":
		return fmt.Sprintf("%s can only contain letters and spaces", fe.Field())
	case "currency":
		return "Currency code (ISO 4217) must be 3 uppercase characters"
	case "uuid":
		return fmt.Sprintf("%s must be a valid id", fe.Field())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

// KindOf classifies any error. Storage level duplicate keys become Conflict
// and missing records NotFound.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return kindFromStatus(fiberErr.Code)
	}

	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return Conflict
	case errors.Is(err, gorm.ErrRecordNotFound):
		return NotFound
	}

	return Internal
}

func kindFromStatus(status int) Kind {
	switch status {
	case fiber.StatusBadRequest, fiber.StatusUnprocessableEntity:
		return BadRequest
	case fiber.StatusUnauthorized:
		return Unauthorized
	case fiber.StatusForbidden:
		return Forbidden
	case fiber.StatusNotFound:
		return NotFound
	case fiber.StatusConflict:
		return Conflict
	case fiber.StatusTooManyRequests:
		return TooManyRequests
	case fiber.StatusServiceUnavailable:
		return Unavailable
	}
	return Internal
}
