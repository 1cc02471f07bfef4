package api

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/Skufu/healthrec/internal/logging"
)

// Error codes carried in the envelope's "error" field.
const (
	CodeInvalidPayload     = "invalid_payload"
	CodeValidationFailed   = "validation_failed"
	CodePayloadTooLarge    = "payload_too_large"
	CodeNotFound           = "not_found"
	CodeUsernameTaken      = "username_taken"
	CodeInvalidCredentials = "invalid_credentials"
	CodeForbidden          = "forbidden"
	CodeInvalidQuery       = "invalid_query"
	CodeInternal           = "internal_error"
)

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error   string         `json:"error"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// FieldError describes one rejected field of a request.
type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

func respondError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: code, Message: message})
}

func respondInternal(c *gin.Context, err error, msg string) {
	logging.Ctx(c.Request.Context()).Error().Err(err).Str("route", c.FullPath()).Msg(msg)
	_ = c.Error(err)
	respondError(c, http.StatusInternalServerError, CodeInternal, "internal server error")
}

func respondValidation(c *gin.Context, fields []FieldError) {
	messages := make([]string, len(fields))
	for i, f := range fields {
		messages[i] = f.Message
	}
	c.AbortWithStatusJSON(http.StatusUnprocessableEntity, ErrorResponse{
		Error:   CodeValidationFailed,
		Message: strings.Join(messages, "; "),
		Details: map[string]any{"fields": fields},
	})
}

// bindJSON decodes a JSON body into dst, answering 400 for malformed input,
// 413 for oversized bodies and 422 for validation failures.
func bindJSON(c *gin.Context, dst any) bool {
	return handleBindError(c, c.ShouldBindJSON(dst))
}

// bind picks JSON or form decoding from the Content-Type header.
func bind(c *gin.Context, dst any) bool {
	return handleBindError(c, c.ShouldBind(dst))
}

func handleBindError(c *gin.Context, err error) bool {
	if err == nil {
		return true
	}

	var verrs validator.ValidationErrors
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &verrs):
		respondValidation(c, translateValidation(verrs))
	case errors.As(err, &tooLarge):
		respondError(c, http.StatusRequestEntityTooLarge, CodePayloadTooLarge,
			fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
	default:
		respondError(c, http.StatusBadRequest, CodeInvalidPayload, "invalid payload: "+err.Error())
	}
	return false
}

func translateValidation(errs validator.ValidationErrors) []FieldError {
	out := make([]FieldError, len(errs))
	for i, fe := range errs {
		out[i] = FieldError{Field: fe.Field(), Tag: fe.Tag(), Message: fieldMessage(fe)}
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	field, param := fe.Field(), fe.Param()
	isString := fe.Kind() == reflect.String

	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, param)
	case "min":
		if isString {
			return fmt.Sprintf("%s must be at least %s characters", field, param)
		}
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		if isString {
			return fmt.Sprintf("%s must be at most %s characters", field, param)
		}
		return fmt.Sprintf("%s must be at most %s", field, param)
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

var registerTagNames sync.Once

// useJSONFieldNames makes validation errors report json names instead of Go
// field names.
func useJSONFieldNames() {
	registerTagNames.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
	})
}
