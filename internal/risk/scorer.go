// Package risk turns standardized features into a churn risk score and
// simulates a binary churn label from it.
package risk

import (
	"fmt"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"churnsim/internal/dataset"
)

// DefaultFemaleLabel is the gender value that receives the positive adjustment.
const DefaultFemaleLabel = "Female"

// Weights are the coefficients of the linear risk model. Network quality is
// the only negative driver; age is a weak confound.
type Weights struct {
	Price   float64 `yaml:"price"`
	Tenure  float64 `yaml:"tenure"`
	Network float64 `yaml:"network"`
	Age     float64 `yaml:"age"`
	// Gender is added for the female label and subtracted otherwise.
	Gender float64 `yaml:"gender"`
}

// DefaultWeights returns the ground-truth coefficients.
func DefaultWeights() Weights {
	return Weights{
		Price:   1.8,
		Tenure:  1.2,
		Network: -2.5,
		Age:     0.1,
		Gender:  0.05,
	}
}

// Features holds the scaled inputs of one customer.
type Features struct {
	Price   float64
	Tenure  float64
	Network float64
	Age     float64
	Female  bool
}

// Score computes the risk of a single customer.
func (w Weights) Score(f Features) float64 {
	adjustment := -w.Gender
	if f.Female {
		adjustment = w.Gender
	}

	return f.Price*w.Price +
		f.Tenure*w.Tenure +
		f.Network*w.Network +
		f.Age*w.Age +
		adjustment
}

// Scorer adds the risk score column to a standardized table.
type Scorer struct {
	schema      dataset.Schema
	weights     Weights
	femaleLabel string
}

// NewScorer creates a scorer. An empty femaleLabel falls back to DefaultFemaleLabel.
func NewScorer(schema dataset.Schema, weights Weights, femaleLabel string) *Scorer {
	if femaleLabel == "" {
		femaleLabel = DefaultFemaleLabel
	}

	return &Scorer{
		schema:      schema,
		weights:     weights,
		femaleLabel: femaleLabel,
	}
}

// Score reads the scaled columns and the gender column and appends risk_score.
func (s *Scorer) Score(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	price, err := dataset.Floats(df, dataset.ColPriceScaled)
	if err != nil {
		return df, err
	}

	tenure, err := dataset.Floats(df, dataset.ColTenureScaled)
	if err != nil {
		return df, err
	}

	network, err := dataset.Floats(df, dataset.ColNetworkScaled)
	if err != nil {
		return df, err
	}

	age, err := dataset.Floats(df, dataset.ColAgeScaled)
	if err != nil {
		return df, err
	}

	genders, err := dataset.Strings(df, s.schema.Gender)
	if err != nil {
		return df, err
	}

	scores := make([]float64, df.Nrow())
	for i := range scores {
		scores[i] = s.weights.Score(Features{
			Price:   price[i],
			Tenure:  tenure[i],
			Network: network[i],
			Age:     age[i],
			Female:  genders[i] == s.femaleLabel,
		})
	}

	out := df.Mutate(series.New(scores, series.Float, dataset.ColRiskScore))
	if out.Err != nil {
		return df, fmt.Errorf("set column %s: %w", dataset.ColRiskScore, out.Err)
	}

	return out, nil
}
