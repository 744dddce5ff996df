package features

import (
	"math/rand/v2"
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"churnsim/internal/dataset"
)

type customer struct {
	location string
	age      float64
	charge   float64
	network  float64
	tenure   float64
	gender   string
}

// threeCustomers is the reference input with one customer per location.
var threeCustomers = []customer{
	{"Rural", 70, 50, 3.0, 24, "Female"},
	{"Urban", 20, 50, 3.0, 24, "Male"},
	{"Suburban", 45, 50, 1.0, 1, "Female"},
}

func frame(t *testing.T, customers []customer) dataframe.DataFrame {
	t.Helper()

	schema := dataset.DefaultSchema()

	var (
		locations, genders              []string
		ages, charges, network, tenures []float64
	)

	for _, c := range customers {
		locations = append(locations, c.location)
		genders = append(genders, c.gender)
		ages = append(ages, c.age)
		charges = append(charges, c.charge)
		network = append(network, c.network)
		tenures = append(tenures, c.tenure)
	}

	df := dataframe.New(
		series.New(locations, series.String, schema.Location),
		series.New(ages, series.Float, schema.Age),
		series.New(genders, series.String, schema.Gender),
		series.New(network, series.Float, schema.NetworkQuality),
		series.New(charges, series.Float, schema.MonthlyCharge),
		series.New(tenures, series.Float, schema.Tenure),
	)
	require.NoError(t, df.Err)

	return df
}

func column(t *testing.T, df dataframe.DataFrame, name string) []float64 {
	t.Helper()

	values, err := dataset.Floats(df, name)
	require.NoError(t, err)

	return values
}

func defaultModifier() *Modifier {
	return NewModifier(
		dataset.DefaultSchema(),
		DefaultCoveragePenalties(),
		DefaultNetworkBounds(),
		DefaultMaxAgePriceBonus,
	)
}

func TestApplyCoveragePenalty_ReferenceCustomers(t *testing.T) {
	df, err := defaultModifier().ApplyCoveragePenalty(frame(t, threeCustomers))
	require.NoError(t, err)

	network := column(t, df, dataset.DefaultSchema().NetworkQuality)
	assert.InDelta(t, 2.2, network[0], 1e-12)
	assert.InDelta(t, 3.0, network[1], 1e-12)
	assert.InDelta(t, 1.0, network[2], 1e-12)
}

func TestApplyCoveragePenalty_ClampsWholeColumn(t *testing.T) {
	customers := []customer{
		{"Urban", 30, 40, 5.4, 12, "Male"},
		{"Urban", 40, 40, 0.5, 12, "Male"},
		{"Rural", 50, 40, 1.2, 12, "Female"},
		{"Suburban", 60, 40, 4.0, 12, "Female"},
		{"Coastal", 70, 40, 2.5, 12, "Male"},
	}

	df, err := defaultModifier().ApplyCoveragePenalty(frame(t, customers))
	require.NoError(t, err)

	network := column(t, df, dataset.DefaultSchema().NetworkQuality)
	assert.InDelta(t, 5.0, network[0], 1e-12, "unpenalized score above range is clamped")
	assert.InDelta(t, 1.0, network[1], 1e-12, "unpenalized score below range is clamped")
	assert.InDelta(t, 1.0, network[2], 1e-12, "penalized score is floored")
	assert.InDelta(t, 3.7, network[3], 1e-12)
	assert.InDelta(t, 2.5, network[4], 1e-12, "unlisted location is untouched")

	for _, v := range network {
		assert.GreaterOrEqual(t, v, 1.0)
		assert.LessOrEqual(t, v, 5.0)
	}
}

func TestApplyCoveragePenalty_CustomTable(t *testing.T) {
	m := NewModifier(
		dataset.DefaultSchema(),
		CoveragePenalties{"Urban": 1.5},
		Bounds{Min: 0, Max: 10},
		DefaultMaxAgePriceBonus,
	)

	df, err := m.ApplyCoveragePenalty(frame(t, threeCustomers))
	require.NoError(t, err)

	network := column(t, df, dataset.DefaultSchema().NetworkQuality)
	assert.InDelta(t, 3.0, network[0], 1e-12)
	assert.InDelta(t, 1.5, network[1], 1e-12)
	assert.InDelta(t, 1.0, network[2], 1e-12)
}

func TestInjectAgeConfound_ReferenceCustomers(t *testing.T) {
	df, err := defaultModifier().InjectAgeConfound(frame(t, threeCustomers))
	require.NoError(t, err)

	assert.InDeltaSlice(t, []float64{1, 0, 0.5}, column(t, df, dataset.ColAgeNormalized), 1e-12)

	bonus := column(t, df, dataset.ColAgePriceBonus)
	assert.InDeltaSlice(t, []float64{25, 0, 12.5}, bonus, 1e-12)
	assert.Greater(t, bonus[0], bonus[1])

	charges := column(t, df, dataset.DefaultSchema().MonthlyCharge)
	assert.InDeltaSlice(t, []float64{75, 50, 62.5}, charges, 1e-12)
}

func TestInjectAgeConfound_BonusFollowsAge(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))

	customers := make([]customer, 60)
	for i := range customers {
		customers[i] = customer{
			location: "Urban",
			age:      float64(18 + rng.IntN(70)),
			charge:   20 + rng.Float64()*100,
			network:  3,
			tenure:   12,
			gender:   "Male",
		}
	}
	// Guarantee a non-zero range.
	customers[0].age, customers[1].age = 18, 90

	df, err := defaultModifier().InjectAgeConfound(frame(t, customers))
	require.NoError(t, err)

	bonus := column(t, df, dataset.ColAgePriceBonus)
	charges := column(t, df, dataset.DefaultSchema().MonthlyCharge)

	for i := range customers {
		assert.GreaterOrEqual(t, bonus[i], 0.0)
		assert.LessOrEqual(t, bonus[i], DefaultMaxAgePriceBonus)
		assert.InDelta(t, customers[i].charge+bonus[i], charges[i], 1e-9)

		for j := range customers {
			if customers[i].age > customers[j].age {
				assert.Greater(t, bonus[i], bonus[j], "age %v vs %v", customers[i].age, customers[j].age)
			}
		}
	}
}

func TestInjectAgeConfound_NoChargeCap(t *testing.T) {
	customers := []customer{
		{"Urban", 20, 200, 3, 12, "Male"},
		{"Urban", 80, 200, 3, 12, "Male"},
	}

	df, err := defaultModifier().InjectAgeConfound(frame(t, customers))
	require.NoError(t, err)

	assert.InDeltaSlice(t, []float64{200, 225}, column(t, df, dataset.DefaultSchema().MonthlyCharge), 1e-12)
}

func TestInjectAgeConfound_ConstantAge(t *testing.T) {
	customers := []customer{
		{"Urban", 40, 50, 3, 12, "Male"},
		{"Rural", 40, 60, 2, 10, "Female"},
	}

	_, err := defaultModifier().InjectAgeConfound(frame(t, customers))
	require.Error(t, err)

	var degenerate *dataset.DegenerateInputError
	require.ErrorAs(t, err, &degenerate)
	assert.Equal(t, dataset.DefaultSchema().Age, degenerate.Column)
	assert.ErrorIs(t, err, dataset.ErrDegenerateInput)
}

func TestModify_RunsBothSteps(t *testing.T) {
	df, err := defaultModifier().Modify(frame(t, threeCustomers))
	require.NoError(t, err)

	schema := dataset.DefaultSchema()
	assert.InDelta(t, 2.2, column(t, df, schema.NetworkQuality)[0], 1e-12)
	assert.InDelta(t, 75, column(t, df, schema.MonthlyCharge)[0], 1e-12)
}

func TestModify_WrapsStepErrors(t *testing.T) {
	df := frame(t, threeCustomers).Drop([]string{dataset.DefaultSchema().Location})

	_, err := defaultModifier().Modify(df)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "coverage penalty")
	assert.ErrorIs(t, err, dataset.ErrSchema)

	customers := []customer{
		{"Urban", 40, 50, 3, 12, "Male"},
		{"Rural", 40, 60, 2, 10, "Female"},
	}

	_, err = defaultModifier().Modify(frame(t, customers))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "age confound")
}

func TestMinMaxNormalize(t *testing.T) {
	out, err := MinMaxNormalize([]float64{10, 30, 20}, "x")
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0, 1, 0.5}, out, 1e-12)

	_, err = MinMaxNormalize(nil, "x")
	assert.ErrorIs(t, err, dataset.ErrDegenerateInput)
}

func TestBounds_Clamp(t *testing.T) {
	b := DefaultNetworkBounds()

	assert.Equal(t, 1.0, b.Clamp(-3))
	assert.Equal(t, 5.0, b.Clamp(9))
	assert.Equal(t, 2.5, b.Clamp(2.5))
}
