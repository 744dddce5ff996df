package dataset

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

// Reader errors.
var (
	ErrNoRecords   = errors.New("input contains no records")
	ErrNotAnObject = errors.New("record is not a JSON object")
)

// ReadRecords reads a JSON array of objects or a JSON Lines stream of
// objects from path. Every failure is reported as a *DataSourceError.
func ReadRecords(path string) ([]map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &DataSourceError{Path: path, Err: err}
	}

	records, err := DecodeRecords(data)
	if err != nil {
		return nil, &DataSourceError{Path: path, Err: err}
	}

	return records, nil
}

// DecodeRecords parses raw JSON content into records. Numbers are kept as
// json.Number so their textual form reaches the table unchanged.
func DecodeRecords(data []byte) ([]map[string]any, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, ErrNoRecords
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	var records []map[string]any

	if trimmed[0] == '[' {
		if err := dec.Decode(&records); err != nil {
			return nil, fmt.Errorf("decode record array: %w", err)
		}

		if dec.More() {
			return nil, errors.New("unexpected data after record array")
		}
	} else {
		for {
			var rec map[string]any

			err := dec.Decode(&rec)
			if errors.Is(err, io.EOF) {
				break
			}

			if err != nil {
				return nil, fmt.Errorf("decode record %d: %w", len(records)+1, err)
			}

			records = append(records, rec)
		}
	}

	for i, rec := range records {
		if rec == nil {
			return nil, fmt.Errorf("%w at index %d", ErrNotAnObject, i)
		}
	}

	if len(records) == 0 {
		return nil, ErrNoRecords
	}

	return records, nil
}
