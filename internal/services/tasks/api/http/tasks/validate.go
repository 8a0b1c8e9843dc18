package tasks

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	apperrors "github.com/louisbranch/tasks/internal/platform/errors"
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeTaskRequest reads and validates a task body. Only the JSON shape is
// checked; an empty or blank task string is accepted.
func (h *Handler) decodeTaskRequest(r *http.Request) (string, bool, error) {
	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return "", false, apperrors.Wrap(apperrors.CodeValidationFailed, "invalid request body", describeDecodeError(err))
	}
	if err := h.validate.Struct(req); err != nil {
		return "", false, apperrors.Wrap(apperrors.CodeValidationFailed, "invalid request body", describeValidationError(err))
	}
	return *req.Task, *req.Completed, nil
}

func describeDecodeError(err error) error {
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.Is(err, io.EOF):
		return errors.New("body is required")
	case errors.As(err, &typeErr) && typeErr.Field == "":
		return errors.New("body must be a JSON object")
	case errors.As(err, &typeErr):
		return fmt.Errorf("%s must be %s", typeErr.Field, expectedType(typeErr.Field))
	default:
		return err
	}
}

func expectedType(field string) string {
	switch field {
	case "task":
		return "a string"
	case "completed":
		return "a boolean"
	default:
		return "a valid value"
	}
}

func describeValidationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	missing := make([]string, 0, len(fieldErrs))
	for _, fieldErr := range fieldErrs {
		missing = append(missing, fieldErr.Field()+" is required")
	}
	return errors.New(strings.Join(missing, "; "))
}
