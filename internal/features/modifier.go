// Package features applies the deterministic feature modifications and the
// per-column standardization that feed the risk model.
package features

import (
	"fmt"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"gonum.org/v1/gonum/floats"

	"churnsim/internal/dataset"
)

// DefaultMaxAgePriceBonus is the bonus added to the monthly charge of the
// oldest customer.
const DefaultMaxAgePriceBonus = 25.0

// CoveragePenalties maps a location label to the amount subtracted from the
// network quality score of customers living there. Unlisted locations are
// left unchanged.
type CoveragePenalties map[string]float64

// DefaultCoveragePenalties returns the penalties for poorly covered areas.
func DefaultCoveragePenalties() CoveragePenalties {
	return CoveragePenalties{
		"Rural":    0.8,
		"Suburban": 0.3,
	}
}

// Bounds is a closed interval.
type Bounds struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// DefaultNetworkBounds is the valid domain of the network quality score.
func DefaultNetworkBounds() Bounds {
	return Bounds{Min: 1.0, Max: 5.0}
}

// Clamp limits v to [b.Min, b.Max].
func (b Bounds) Clamp(v float64) float64 {
	return min(max(v, b.Min), b.Max)
}

// Modifier applies the coverage penalty and the age confound.
type Modifier struct {
	schema    dataset.Schema
	penalties CoveragePenalties
	bounds    Bounds
	maxBonus  float64
}

// NewModifier creates a modifier for tables laid out by schema.
func NewModifier(schema dataset.Schema, penalties CoveragePenalties, bounds Bounds, maxBonus float64) *Modifier {
	return &Modifier{
		schema:    schema,
		penalties: penalties,
		bounds:    bounds,
		maxBonus:  maxBonus,
	}
}

// Modify runs ApplyCoveragePenalty then InjectAgeConfound.
func (m *Modifier) Modify(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	df, err := m.ApplyCoveragePenalty(df)
	if err != nil {
		return df, fmt.Errorf("coverage penalty: %w", err)
	}

	df, err = m.InjectAgeConfound(df)
	if err != nil {
		return df, fmt.Errorf("age confound: %w", err)
	}

	return df, nil
}

// ApplyCoveragePenalty subtracts the location penalty from every network
// score, then clamps the whole column to the configured bounds. The clamp
// also applies to rows that received no penalty.
func (m *Modifier) ApplyCoveragePenalty(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	locations, err := dataset.Strings(df, m.schema.Location)
	if err != nil {
		return df, err
	}

	scores, err := dataset.Floats(df, m.schema.NetworkQuality)
	if err != nil {
		return df, err
	}

	adjusted := make([]float64, len(scores))
	for i, score := range scores {
		adjusted[i] = score - m.penalties[locations[i]]
	}

	for i, v := range adjusted {
		adjusted[i] = m.bounds.Clamp(v)
	}

	return mutate(df, m.schema.NetworkQuality, adjusted)
}

// InjectAgeConfound min-max normalizes age over the table, scales it by the
// maximum bonus and adds the result to the monthly charge. Charges are not
// capped. The intermediate values are kept as auxiliary columns.
func (m *Modifier) InjectAgeConfound(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	ages, err := dataset.Floats(df, m.schema.Age)
	if err != nil {
		return df, err
	}

	charges, err := dataset.Floats(df, m.schema.MonthlyCharge)
	if err != nil {
		return df, err
	}

	normalized, err := MinMaxNormalize(ages, m.schema.Age)
	if err != nil {
		return df, err
	}

	bonus := make([]float64, len(normalized))
	floats.ScaleTo(bonus, m.maxBonus, normalized)

	updated := make([]float64, len(charges))
	floats.AddTo(updated, charges, bonus)

	if df, err = mutate(df, dataset.ColAgeNormalized, normalized); err != nil {
		return df, err
	}

	if df, err = mutate(df, dataset.ColAgePriceBonus, bonus); err != nil {
		return df, err
	}

	return mutate(df, m.schema.MonthlyCharge, updated)
}

// MinMaxNormalize maps values onto [0, 1] using their own minimum and
// maximum. A zero range yields a *dataset.DegenerateInputError.
func MinMaxNormalize(values []float64, column string) ([]float64, error) {
	if len(values) == 0 {
		return nil, &dataset.DegenerateInputError{Column: column, Reason: "no values"}
	}

	lo, hi := floats.Min(values), floats.Max(values)
	if hi == lo {
		return nil, &dataset.DegenerateInputError{
			Column: column,
			Reason: fmt.Sprintf("zero range (min = max = %g)", lo),
		}
	}

	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = (v - lo) / (hi - lo)
	}

	return out, nil
}

// mutate replaces or appends a float column.
func mutate(df dataframe.DataFrame, name string, values []float64) (dataframe.DataFrame, error) {
	out := df.Mutate(series.New(values, series.Float, name))
	if out.Err != nil {
		return df, fmt.Errorf("set column %s: %w", name, out.Err)
	}

	return out, nil
}
