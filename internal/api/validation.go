package api

import (
	"encoding/json" // Body decode errors
	"errors"        // Error classification
	"net/http"      // HTTP status codes
	"reflect"       // Tag name lookup
	"strings"       // Message building
	"sync"          // One-time registration

	"reservily/internal/domain"   // Weekday names
	"reservily/internal/schedule" // HH:MM format

	"github.com/gin-gonic/gin"               // Gin web framework
	"github.com/gin-gonic/gin/binding"       // Gin validator engine
	"github.com/go-playground/validator/v10" // Validation library
)

var registerValidators sync.Once

// RegisterValidators installs the custom binding tags and makes messages use JSON names
func RegisterValidators() {
	registerValidators.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
			return schedule.ValidClock(fl.Field().String())
		})
		_ = v.RegisterValidation("weekday", func(fl validator.FieldLevel) bool {
			// Stored names are upper case; the body must use them as is
			day := domain.Weekday(fl.Field().String())
			return day.Index() >= 0
		})
	})
}

// normalizer is implemented by request bodies that clean their input before validation
type normalizer interface {
	normalize()
}

// bindJSON decodes, normalizes and validates the body, answering 422 on failure
func bindJSON(c *gin.Context, req any) bool {
	if err := decodeJSON(c.Request, req); err != nil {
		validationFailed(c, validationMessages(err))
		return false
	}
	if n, ok := req.(normalizer); ok {
		n.normalize()
	}
	if err := binding.Validator.ValidateStruct(req); err != nil {
		validationFailed(c, validationMessages(err))
		return false
	}
	return true
}

func decodeJSON(r *http.Request, req any) error {
	if r == nil || r.Body == nil {
		return errors.New("invalid request")
	}
	dec := json.NewDecoder(r.Body)
	if binding.EnableDecoderDisallowUnknownFields {
		dec.DisallowUnknownFields()
	}
	return dec.Decode(req)
}

func validationFailed(c *gin.Context, errs []string) {
	c.JSON(http.StatusUnprocessableEntity, gin.H{"success": false, "message": "Validation failed", "errors": errs})
}

func validationMessages(err error) []string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			out = append(out, fieldMessage(fe))
		}
		return out
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return []string{typeErr.Field + " has the wrong type"}
	}
	return []string{"Request body must be valid JSON"}
}

func fieldMessage(fe validator.FieldError) string {
	f := fe.Field()
	text := fe.Kind() == reflect.String
	switch fe.Tag() {
	case "required":
		return f + " is required"
	case "email":
		return f + " must be a valid email"
	case "min":
		if text {
			return f + " must be at least " + fe.Param() + " characters"
		}
		return f + " must be at least " + fe.Param()
	case "max":
		if text {
			return f + " must be at most " + fe.Param() + " characters"
		}
		return f + " must be at most " + fe.Param()
	case "gt":
		return f + " must be greater than " + fe.Param()
	case "gte":
		return f + " must be greater than or equal to " + fe.Param()
	case "oneof":
		return f + " must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "uuid":
		return f + " must be a valid UUID"
	case "uri", "url":
		return f + " must be a valid URI"
	case "hhmm":
		return f + " must be in HH:MM format"
	case "weekday":
		return f + " must be a valid day of the week"
	}
	return f + " is invalid"
}
