package dataset

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/go-gota/gota/dataframe"
)

// DefaultSeparator joins nested keys into column names.
const DefaultSeparator = "_"

// ErrKeyCollision is returned when two key paths flatten to one column name.
var ErrKeyCollision = errors.New("flattened key collision")

// Flatten turns nested records into single-level rows. Nested object keys
// are joined with sep at any depth, arrays are stored as their JSON
// encoding and null leaves are left out so they load as missing values.
// The returned column list is in first-seen order, with the keys of each
// object visited in sorted order so nested groups stay together.
//
// Two different key paths that join to the same column name, such as a
// literal "a_b" and a nested "a" then "b", fail with ErrKeyCollision.
func Flatten(records []map[string]any, sep string) ([]map[string]any, []string, error) {
	rows := make([]map[string]any, 0, len(records))
	origins := make(map[string][]string)

	var columns []string

	for i, rec := range records {
		row := make(map[string]any)

		for _, l := range flattenInto(row, nil, rec, sep) {
			origin, seen := origins[l.name]
			if !seen {
				origins[l.name] = l.path
				columns = append(columns, l.name)

				continue
			}

			if !slices.Equal(origin, l.path) {
				return nil, nil, fmt.Errorf("%w: record %d: column %q comes from both %q and %q",
					ErrKeyCollision, i, l.name, origin, l.path)
			}
		}

		rows = append(rows, row)
	}

	return rows, columns, nil
}

// leaf is one flattened value: its column name and the key path it came from.
type leaf struct {
	name string
	path []string
}

// flattenInto writes the leaves of obj into row and returns them in visit
// order.
func flattenInto(row map[string]any, prefix []string, obj map[string]any, sep string) []leaf {
	var leaves []leaf

	for _, key := range slices.Sorted(maps.Keys(obj)) {
		path := append(slices.Clone(prefix), key)
		name := strings.Join(path, sep)

		switch v := obj[key].(type) {
		case nil:
			continue
		case map[string]any:
			leaves = append(leaves, flattenInto(row, path, v, sep)...)
			continue
		case []any:
			raw, err := json.Marshal(v)
			if err != nil {
				row[name] = fmt.Sprint(v)
			} else {
				row[name] = string(raw)
			}
		default:
			row[name] = v
		}

		leaves = append(leaves, leaf{name: name, path: path})
	}

	return leaves
}

// FromRecords flattens records into a table and renames schema.ChurnSource
// to schema.Churn when present. An existing schema.Churn column is replaced
// by the renamed one.
func FromRecords(records []map[string]any, sep string, schema Schema) (dataframe.DataFrame, error) {
	if len(records) == 0 {
		return dataframe.DataFrame{}, ErrNoRecords
	}

	rows, columns, err := Flatten(records, sep)
	if err != nil {
		return dataframe.DataFrame{}, err
	}

	// Only absent keys are missing; "NA" is a legitimate category.
	df := dataframe.LoadMaps(rows, dataframe.NaNValues(nil))
	if df.Err != nil {
		return df, fmt.Errorf("build table: %w", df.Err)
	}

	df = df.Select(columns)
	if df.Err != nil {
		return df, fmt.Errorf("order columns: %w", df.Err)
	}

	if schema.ChurnSource == "" || schema.ChurnSource == schema.Churn || !HasColumn(df, schema.ChurnSource) {
		return df, nil
	}

	if HasColumn(df, schema.Churn) {
		df = df.Drop([]string{schema.Churn})
	}

	df = df.Rename(schema.Churn, schema.ChurnSource)
	if df.Err != nil {
		return df, fmt.Errorf("rename %s: %w", schema.ChurnSource, df.Err)
	}

	return df, nil
}

// Load reads path and returns the flattened table. Read, parse and table
// construction failures are all reported as *DataSourceError.
func Load(path, sep string, schema Schema) (dataframe.DataFrame, error) {
	records, err := ReadRecords(path)
	if err != nil {
		return dataframe.DataFrame{}, err
	}

	df, err := FromRecords(records, sep, schema)
	if err != nil {
		return df, &DataSourceError{Path: path, Err: err}
	}

	return df, nil
}
