package tools

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/mamadbah2/dairy-mcp/internal/domain/models"
)

// DietRecommendationInput are the arguments of get_diet_recommendation.
type DietRecommendationInput struct {
	CattleInfo    models.CattleInfo      `json:"cattle_info" jsonschema:"animal description"`
	FeedSelection []models.FeedSelection `json:"feed_selection" jsonschema:"6 to 20 candidate feeds mixing forages and concentrates" validate:"min=6,max=20,dive"`
	CountryID     string                 `json:"country_id,omitempty" jsonschema:"country id; detected from the first feed when omitted"`
	UserID        string                 `json:"user_id,omitempty" jsonschema:"user id; ignored for email and pin sessions"`
}

// DietEvaluationInput are the arguments of evaluate_diet.
type DietEvaluationInput struct {
	CattleInfo     models.CattleInfo       `json:"cattle_info" jsonschema:"animal description"`
	FeedEvaluation []models.FeedEvaluation `json:"feed_evaluation" jsonschema:"feeds of the current ration with quantities and prices" validate:"min=1,dive"`
	CountryID      string                  `json:"country_id,omitempty" jsonschema:"country id; detected from the first feed when omitted"`
	Currency       string                  `json:"currency,omitempty" jsonschema:"ISO currency code of the prices" validate:"omitempty,len=3"`
	UserID         string                  `json:"user_id,omitempty" jsonschema:"user id; ignored for email and pin sessions"`
}

// FeedLookupInput are the arguments of get_feed_by_id.
type FeedLookupInput struct {
	FeedID string `json:"feed_id" jsonschema:"feed identifier" validate:"required"`
}

// FeedSearchInput are the arguments of search_feeds.
type FeedSearchInput struct {
	CountryID    string `json:"country_id,omitempty" jsonschema:"restrict to one country"`
	FeedType     string `json:"feed_type,omitempty" jsonschema:"Forage or Concentrate"`
	FeedCategory string `json:"feed_category,omitempty" jsonschema:"feed category such as Grain Crop Forage"`
	Limit        int    `json:"limit,omitempty" jsonschema:"maximum number of feeds (1-500)" validate:"omitempty,min=1,max=500"`
	Offset       int    `json:"offset,omitempty" jsonschema:"number of feeds to skip" validate:"min=0"`
}

// ListCountriesInput takes no arguments.
type ListCountriesInput struct{}

var validate = newValidator()

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

// validateInput checks in against its validate tags and renders violations with json field paths.
func validateInput(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("invalid arguments: %s", strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}

	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s needs at least %s entries", field, fe.Param())
		}
		return fmt.Sprintf("%s must be >= %s", field, fe.Param())
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s allows at most %s entries", field, fe.Param())
		}
		return fmt.Sprintf("%s must be <= %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be > %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "len":
		return fmt.Sprintf("%s must be %s characters", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}
