package export

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"churnsim/internal/dataset"
	"churnsim/internal/formatter"
)

// LocationRate is the observed churn rate of one location.
type LocationRate struct {
	Location  string
	Customers int
	Churned   int
	Rate      float64
}

// Summary holds the verification figures of a finished run.
type Summary struct {
	ByLocation    []LocationRate
	Rows          int
	MaxPrice      float64
	MinNetwork    float64
	ChurnRate     float64
	MeanChurnProb float64
}

// BuildSummary computes the verification figures from a simulated table.
// It reads churn_prob, so it must run before DropAuxiliary.
func BuildSummary(df dataframe.DataFrame, schema dataset.Schema) (Summary, error) {
	prices, err := dataset.Floats(df, schema.MonthlyCharge)
	if err != nil {
		return Summary{}, err
	}

	network, err := dataset.Floats(df, schema.NetworkQuality)
	if err != nil {
		return Summary{}, err
	}

	churn, err := dataset.Floats(df, schema.Churn)
	if err != nil {
		return Summary{}, err
	}

	probs, err := dataset.Floats(df, dataset.ColChurnProb)
	if err != nil {
		return Summary{}, err
	}

	locations, err := dataset.Strings(df, schema.Location)
	if err != nil {
		return Summary{}, err
	}

	groups := make(map[string]*LocationRate)

	for i, loc := range locations {
		g, ok := groups[loc]
		if !ok {
			g = &LocationRate{Location: loc}
			groups[loc] = g
		}

		g.Customers++
		if churn[i] == 1 {
			g.Churned++
		}
	}

	byLocation := make([]LocationRate, 0, len(groups))
	for _, g := range groups {
		g.Rate = float64(g.Churned) / float64(g.Customers)
		byLocation = append(byLocation, *g)
	}

	sort.Slice(byLocation, func(i, j int) bool {
		return byLocation[i].Location < byLocation[j].Location
	})

	return Summary{
		ByLocation:    byLocation,
		Rows:          df.Nrow(),
		MaxPrice:      floats.Max(prices),
		MinNetwork:    floats.Min(network),
		ChurnRate:     stat.Mean(churn, nil),
		MeanChurnProb: stat.Mean(probs, nil),
	}, nil
}

// RenderReport formats the summary as a markdown document.
func RenderReport(s Summary) string {
	var sb strings.Builder

	sb.WriteString("# Churn dataset verification\n\n")

	sb.WriteString(formatter.Table(
		[]string{"Metric", "Value"},
		[][]string{
			{"Customers", strconv.Itoa(s.Rows)},
			{"Max monthly charge", fmt.Sprintf("%.2f", s.MaxPrice)},
			{"Min network score", fmt.Sprintf("%.2f", s.MinNetwork)},
			{"Churn rate", fmt.Sprintf("%.4f", s.ChurnRate)},
			{"Mean churn probability", fmt.Sprintf("%.4f", s.MeanChurnProb)},
		},
	))

	sb.WriteString("\n\n## Churn by location\n\n")

	rows := make([][]string, 0, len(s.ByLocation))
	for _, loc := range s.ByLocation {
		rows = append(rows, []string{
			loc.Location,
			strconv.Itoa(loc.Customers),
			strconv.Itoa(loc.Churned),
			fmt.Sprintf("%.4f", loc.Rate),
		})
	}

	sb.WriteString(formatter.Table([]string{"Location", "Customers", "Churned", "Rate"}, rows))
	sb.WriteString("\n")

	return formatter.FormatMarkdown(sb.String())
}
