package models

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// predictPayload distinguishes an absent or null field from an empty string.
type predictPayload struct {
	Source      *string `json:"source" validate:"required"`
	URL         *string `json:"url" validate:"required"`
	Title       *string `json:"title" validate:"required"`
	Description *string `json:"description" validate:"required"`
}

// DecodePredictRequest parses and validates a predict payload.
// Any failure is returned as *ValidationError.
func DecodePredictRequest(data []byte) (PredictRequest, error) {
	var p predictPayload
	if err := json.Unmarshal(data, &p); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return PredictRequest{}, &ValidationError{Fields: []string{typeErr.Field}, Reason: "must be a string"}
		}
		return PredictRequest{}, &ValidationError{Reason: "body must be a JSON object"}
	}
	return p.toRequest()
}

// DecodePredictPayload validates an already decoded JSON value, as carried
// inside transport envelopes.
func DecodePredictPayload(raw json.RawMessage) (PredictRequest, error) {
	if len(raw) == 0 {
		return PredictRequest{}, &ValidationError{Reason: "missing request"}
	}
	return DecodePredictRequest(raw)
}

func (p predictPayload) toRequest() (PredictRequest, error) {
	if err := validate.Struct(p); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			return PredictRequest{}, &ValidationError{
				Fields: lo.Map(fieldErrs, func(fe validator.FieldError, _ int) string { return fe.Field() }),
				Reason: "field required",
			}
		}
		return PredictRequest{}, &ValidationError{Reason: err.Error()}
	}
	return PredictRequest{
		Source:      *p.Source,
		URL:         *p.URL,
		Title:       *p.Title,
		Description: *p.Description,
	}, nil
}
