package models

// Topography classes accepted by the backend.
const (
	TopographyFlat        = "Flat"
	TopographyHilly       = "Hilly"
	TopographyMountainous = "Mountainous"
)

// CattleInfo describes the animal a diet is computed for. Values are forwarded to the
// backend unchanged; the validate tags mirror the ranges the backend accepts.
type CattleInfo struct {
	BodyWeight      float64  `json:"body_weight" jsonschema:"body weight in kg (100-1000)" validate:"min=100,max=1000"`
	Breed           string   `json:"breed" jsonschema:"breed name, e.g. Holstein or Crossbred" validate:"required"`
	Lactating       bool     `json:"lactating" jsonschema:"whether the cow is currently lactating"`
	MilkProduction  float64  `json:"milk_production" jsonschema:"milk yield in litres per day (0-100)" validate:"min=0,max=100"`
	DaysInMilk      int      `json:"days_in_milk" jsonschema:"days since calving (0-400)" validate:"min=0,max=400"`
	Parity          int      `json:"parity" jsonschema:"number of calvings (1-10)" validate:"min=1,max=10"`
	DaysOfPregnancy int      `json:"days_of_pregnancy" jsonschema:"days pregnant, 0 when open (0-300)" validate:"min=0,max=300"`
	MilkProtein     float64  `json:"milk_protein" jsonschema:"milk protein percent (2-5)" validate:"min=2,max=5"`
	MilkFat         float64  `json:"milk_fat" jsonschema:"milk fat percent (2-6)" validate:"min=2,max=6"`
	Temperature     float64  `json:"temperature" jsonschema:"ambient temperature in celsius (-10-50)" validate:"min=-10,max=50"`
	Topography      string   `json:"topography" jsonschema:"terrain: Flat, Hilly or Mountainous" validate:"oneof=Flat Hilly Mountainous"`
	Distance        float64  `json:"distance" jsonschema:"daily walking distance in km (0-10)" validate:"min=0,max=10"`
	CalvingInterval int      `json:"calving_interval" jsonschema:"calving interval in days (300-500)" validate:"min=300,max=500"`
	BodyWeightGain  *float64 `json:"bw_gain,omitempty" jsonschema:"target body weight gain in kg per day" validate:"omitempty,min=0,max=2"`
	BodyCondition   *float64 `json:"bc_score,omitempty" jsonschema:"body condition score (1-5)" validate:"omitempty,min=1,max=5"`
}

// FeedSelection is one candidate feed offered to the least-cost recommendation.
type FeedSelection struct {
	FeedID     string  `json:"feed_id" jsonschema:"feed identifier" validate:"required"`
	PricePerKg float64 `json:"price_per_kg" jsonschema:"price per kg in local currency" validate:"min=0"`
}

// FeedEvaluation is one feed of an existing ration submitted for evaluation.
type FeedEvaluation struct {
	FeedID        string  `json:"feed_id" jsonschema:"feed identifier" validate:"required"`
	QuantityAsFed float64 `json:"quantity_as_fed" jsonschema:"as-fed quantity in kg per day" validate:"gt=0"`
	PricePerKg    float64 `json:"price_per_kg" jsonschema:"price per kg in local currency" validate:"min=0"`
}
