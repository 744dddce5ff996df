package dataset

import (
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/stretchr/testify/require"
)

// threeCustomers is the reference input with one customer per location.
const threeCustomers = `[
  {
    "customer_id": "C-1",
    "personal_info": {"location": "Rural", "age": 70, "gender": "Female"},
    "subscription": {"monthly_charges": 50, "tenure_months": 24},
    "customer_support": {"network_quality_score": 3.0},
    "additional_features": {"churn": 0}
  },
  {
    "customer_id": "C-2",
    "personal_info": {"location": "Urban", "age": 20, "gender": "Male"},
    "subscription": {"monthly_charges": 50, "tenure_months": 24},
    "customer_support": {"network_quality_score": 3.0},
    "additional_features": {"churn": 1}
  },
  {
    "customer_id": "C-3",
    "personal_info": {"location": "Suburban", "age": 45, "gender": "Female"},
    "subscription": {"monthly_charges": 50, "tenure_months": 1},
    "customer_support": {"network_quality_score": 1.0},
    "additional_features": {"churn": 0}
  }
]`

func decode(t *testing.T, raw string) []map[string]any {
	t.Helper()

	records, err := DecodeRecords([]byte(raw))
	require.NoError(t, err)

	return records
}

func table(t *testing.T, raw string) dataframe.DataFrame {
	t.Helper()

	df, err := FromRecords(decode(t, raw), DefaultSeparator, DefaultSchema())
	require.NoError(t, err)

	return df
}
