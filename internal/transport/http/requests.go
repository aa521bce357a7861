package http

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"

	"break-the-query/internal/domain"
	"github.com/go-playground/validator/v10"
)

type startRoundRequest struct {
	Text     string  `json:"text"`
	Schema   string  `json:"schema"`
	Duration float64 `json:"duration" validate:"required,gt=0"`
	Round    string  `json:"round" validate:"max=64"`
}

type showLeaderboardRequest struct {
	Round string `json:"round" validate:"max=64"`
}

type submitRequest struct {
	TeamID string          `json:"teamId" validate:"required,max=128"`
	Answer json.RawMessage `json:"answer" validate:"required"`
}

type setMarksRequest struct {
	ID    string          `json:"id" validate:"required"`
	Marks json.RawMessage `json:"marks" validate:"required"`
}

type registerTeamRequest struct {
	TeamID   string `json:"teamId" validate:"required,max=128"`
	TeamName string `json:"teamName" validate:"required,max=256"`
	Leader   string `json:"leader" validate:"max=256"`
	College  string `json:"college" validate:"max=256"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report JSON field names so clients can match errors to their payload.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validationError turns the first validator failure into a domain.ValidationError.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return domain.Invalid("", err.Error())
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return domain.Invalid(fe.Field(), "is required")
	case "gt":
		return domain.Invalid(fe.Field(), "must be greater than "+fe.Param())
	case "max":
		return domain.Invalid(fe.Field(), "must be at most "+fe.Param()+" characters")
	default:
		return domain.Invalid(fe.Field(), "failed "+fe.Tag()+" check")
	}
}
