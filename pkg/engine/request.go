package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/codeGROOVE-dev/orbit/pkg/behavior"
)

// ErrInvalidRequest wraps every validation failure.
var ErrInvalidRequest = errors.New("invalid request")

var validate = validator.New()

// Request asks for one intervention toward Goal.
type Request struct {
	Traits          map[string]float64      `json:"personality_traits,omitempty" validate:"omitempty,dive,gte=0,lte=1"`
	UserID          string                  `json:"user_id" validate:"required"`
	MotivationStyle string                  `json:"motivation_style,omitempty" validate:"omitempty,oneof=intrinsic extrinsic mixed"`
	Goal            behavior.Goal           `json:"goal"`
	Context         behavior.Context        `json:"context"`
	History         []behavior.HistoryEvent `json:"history,omitempty"`
}

// Validate checks required identifiers and value ranges before any scoring.
func (r *Request) Validate() error {
	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, describe(fe))
		}
		return fmt.Errorf("%w: %s", ErrInvalidRequest, strings.Join(msgs, "; "))
	}
	return nil
}

func describe(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.IndexByte(field, '.'); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %v", field, fe.Param(), fe.Value())
	case "gte", "lte":
		return fmt.Sprintf("%s must be between 0 and 1, got %v", field, fe.Value())
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}
