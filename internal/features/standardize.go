package features

import (
	"fmt"
	"math"

	"github.com/go-gota/gota/dataframe"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"churnsim/internal/dataset"
)

// ScaleSpec names a source column and the scaled column derived from it.
type ScaleSpec struct {
	Source string
	Target string
}

// ScaleSpecs returns the four columns standardized for the risk model.
func ScaleSpecs(schema dataset.Schema) []ScaleSpec {
	return []ScaleSpec{
		{Source: schema.MonthlyCharge, Target: dataset.ColPriceScaled},
		{Source: schema.Tenure, Target: dataset.ColTenureScaled},
		{Source: schema.Age, Target: dataset.ColAgeScaled},
		{Source: schema.NetworkQuality, Target: dataset.ColNetworkScaled},
	}
}

// Standardize adds one z-score column per spec. Every column is scaled with
// its own sample mean and sample standard deviation.
func Standardize(df dataframe.DataFrame, specs []ScaleSpec) (dataframe.DataFrame, error) {
	for _, spec := range specs {
		values, err := dataset.Floats(df, spec.Source)
		if err != nil {
			return df, err
		}

		scaled, err := ZScores(values, spec.Source)
		if err != nil {
			return df, err
		}

		if df, err = mutate(df, spec.Target, scaled); err != nil {
			return df, err
		}
	}

	return df, nil
}

// ZScores returns (v - mean) / std for each value, using the sample
// (n-1) standard deviation. Fewer than two values or a constant column
// yield a *dataset.DegenerateInputError.
func ZScores(values []float64, column string) ([]float64, error) {
	if len(values) < 2 {
		return nil, &dataset.DegenerateInputError{
			Column: column,
			Reason: fmt.Sprintf("sample variance needs at least 2 rows, got %d", len(values)),
		}
	}

	if floats.Min(values) == floats.Max(values) {
		return nil, &dataset.DegenerateInputError{Column: column, Reason: "zero variance"}
	}

	mean, std := stat.MeanStdDev(values, nil)
	if std == 0 || math.IsNaN(std) || math.IsInf(std, 0) {
		return nil, &dataset.DegenerateInputError{Column: column, Reason: fmt.Sprintf("undefined standard deviation %g", std)}
	}

	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = (v - mean) / std
	}

	return out, nil
}
