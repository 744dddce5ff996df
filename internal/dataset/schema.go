// Package dataset loads semi-structured customer records into a flat table
// and provides typed column access shared by the pipeline stages.
package dataset

import (
	"fmt"
	"math"
	"slices"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Auxiliary columns created during a run. None of them survive export.
const (
	ColAgeNormalized = "age_normalized"
	ColAgePriceBonus = "age_price_bonus"
	ColPriceScaled   = "price_scaled"
	ColTenureScaled  = "tenure_scaled"
	ColAgeScaled     = "age_scaled"
	ColNetworkScaled = "network_scaled"
	ColRiskScore     = "risk_score"
	ColChurnProb     = "churn_prob"
	ColRandomRoll    = "random_roll"
)

// AuxiliaryColumns lists every intermediate column in creation order.
var AuxiliaryColumns = []string{
	ColAgeNormalized,
	ColAgePriceBonus,
	ColPriceScaled,
	ColTenureScaled,
	ColAgeScaled,
	ColNetworkScaled,
	ColRiskScore,
	ColChurnProb,
	ColRandomRoll,
}

// Schema maps the attributes the pipeline needs to flattened column names.
type Schema struct {
	Location       string `yaml:"location"`
	Age            string `yaml:"age"`
	Gender         string `yaml:"gender"`
	NetworkQuality string `yaml:"network_quality"`
	MonthlyCharge  string `yaml:"monthly_charge"`
	Tenure         string `yaml:"tenure"`
	// ChurnSource is renamed to Churn on load when present.
	ChurnSource string `yaml:"churn_source"`
	Churn       string `yaml:"churn"`
}

// DefaultSchema returns the column names produced by flattening the telecom
// customer export with "_" as separator.
func DefaultSchema() Schema {
	return Schema{
		Location:       "personal_info_location",
		Age:            "personal_info_age",
		Gender:         "personal_info_gender",
		NetworkQuality: "customer_support_network_quality_score",
		MonthlyCharge:  "subscription_monthly_charges",
		Tenure:         "subscription_tenure_months",
		ChurnSource:    "additional_features_churn",
		Churn:          "churn",
	}
}

// NumericColumns returns the columns that must hold complete numeric data.
func (s Schema) NumericColumns() []string {
	return []string{s.Age, s.NetworkQuality, s.MonthlyCharge, s.Tenure}
}

// CategoricalColumns returns the columns that must hold complete labels.
func (s Schema) CategoricalColumns() []string {
	return []string{s.Location, s.Gender}
}

// Names returns every configured column name, churn source included.
func (s Schema) Names() []string {
	return []string{
		s.Location, s.Age, s.Gender, s.NetworkQuality,
		s.MonthlyCharge, s.Tenure, s.ChurnSource, s.Churn,
	}
}

// HasColumn reports whether df has a column called name.
func HasColumn(df dataframe.DataFrame, name string) bool {
	return slices.Contains(df.Names(), name)
}

// Floats returns the values of a numeric column. Absent, non-numeric or
// incomplete columns yield a SchemaError.
func Floats(df dataframe.DataFrame, name string) ([]float64, error) {
	if !HasColumn(df, name) {
		return nil, &SchemaError{Column: name, Reason: "column not found"}
	}

	col := df.Col(name)
	if col.Type() != series.Float && col.Type() != series.Int {
		return nil, &SchemaError{Column: name, Reason: fmt.Sprintf("expected numeric values, found %s", col.Type())}
	}

	values := col.Float()
	for i, v := range values {
		if math.IsNaN(v) {
			return nil, &SchemaError{Column: name, Reason: fmt.Sprintf("missing value at row %d", i)}
		}
	}

	return values, nil
}

// Strings returns the values of a categorical column. Absent or incomplete
// columns yield a SchemaError.
func Strings(df dataframe.DataFrame, name string) ([]string, error) {
	if !HasColumn(df, name) {
		return nil, &SchemaError{Column: name, Reason: "column not found"}
	}

	col := df.Col(name)
	values := col.Records()

	// Absent keys load as empty strings in string columns.
	for i, missing := range col.IsNaN() {
		if missing || values[i] == "" {
			return nil, &SchemaError{Column: name, Reason: fmt.Sprintf("missing value at row %d", i)}
		}
	}

	return values, nil
}
