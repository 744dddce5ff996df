package risk

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"churnsim/internal/dataset"
)

// Sigmoid is the logistic function 1 / (1 + e^-x). Very large magnitudes
// round to exactly 0 or 1.
func Sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// Label returns 1 when prob beats the uniform draw roll, 0 otherwise.
func Label(prob, roll float64) int {
	if prob > roll {
		return 1
	}

	return 0
}

// NewRand returns a PCG-backed generator seeded with seed.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Simulator draws one Bernoulli trial per row using the churn probability
// as the success probability.
type Simulator struct {
	rng        *rand.Rand
	churnLabel string
}

// NewSimulator creates a simulator writing the label to churnLabel.
func NewSimulator(rng *rand.Rand, churnLabel string) *Simulator {
	return &Simulator{
		rng:        rng,
		churnLabel: churnLabel,
	}
}

// Simulate appends churn_prob and random_roll and sets the churn column.
// An existing churn column is overwritten in place.
func (s *Simulator) Simulate(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	scores, err := dataset.Floats(df, dataset.ColRiskScore)
	if err != nil {
		return df, err
	}

	probs := make([]float64, len(scores))
	rolls := make([]float64, len(scores))
	labels := make([]int, len(scores))

	for i, score := range scores {
		probs[i] = Sigmoid(score)
		rolls[i] = s.rng.Float64()
		labels[i] = Label(probs[i], rolls[i])
	}

	columns := []series.Series{
		series.New(probs, series.Float, dataset.ColChurnProb),
		series.New(rolls, series.Float, dataset.ColRandomRoll),
		series.New(labels, series.Int, s.churnLabel),
	}

	for _, col := range columns {
		out := df.Mutate(col)
		if out.Err != nil {
			return df, fmt.Errorf("set column %s: %w", col.Name, out.Err)
		}

		df = out
	}

	return df, nil
}
