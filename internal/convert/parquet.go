// Package convert turns tabular source files into columnar Parquet.
package convert

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/parquet-go/parquet-go"
)

const batchSize = 1024

// ParquetName replaces a trailing .csv extension with .parquet.
func ParquetName(name string) string {
	if strings.HasSuffix(strings.ToLower(name), ".csv") {
		return name[:len(name)-len(".csv")] + ".parquet"
	}
	return name + ".parquet"
}

// Columns normalizes a CSV header into unique, non-empty column names.
// Blank headers become column_N; repeats get a _2, _3, ... suffix.
func Columns(header []string) []string {
	cols := make([]string, len(header))
	seen := make(map[string]bool, len(header))
	for i, h := range header {
		name := strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if name == "" {
			name = "column_" + strconv.Itoa(i+1)
		}
		if seen[name] {
			for n := 2; ; n++ {
				candidate := name + "_" + strconv.Itoa(n)
				if !seen[candidate] {
					name = candidate
					break
				}
			}
		}
		seen[name] = true
		cols[i] = name
	}
	return cols
}

// CSVToParquet reads a CSV document with a header row and writes it as a
// Parquet file with every column stored as a UTF-8 string. It returns the
// number of data rows written.
func CSVToParquet(r io.Reader, w io.Writer) (int, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("csv has no header row")
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read csv header: %w", err)
	}
	cols := Columns(header)

	group := make(parquet.Group, len(cols))
	for _, c := range cols {
		group[c] = parquet.String()
	}
	schema := parquet.NewSchema("csv", group)

	// Leaf columns are ordered by name in the schema; map each CSV position
	// to its column index.
	index := make(map[string]int, len(cols))
	for i, f := range schema.Fields() {
		index[f.Name()] = i
	}
	colIndex := make([]int, len(cols))
	for i, c := range cols {
		colIndex[i] = index[c]
	}

	pw := parquet.NewWriter(w, schema)

	total := 0
	batch := make([]parquet.Row, 0, batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if _, err := pw.WriteRows(batch); err != nil {
			return fmt.Errorf("failed to write parquet rows: %w", err)
		}
		total += len(batch)
		batch = batch[:0]
		return nil
	}

	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return total, fmt.Errorf("failed to read csv row %d: %w", total+len(batch)+1, err)
		}

		row := make(parquet.Row, len(cols))
		for i, field := range rec {
			row[colIndex[i]] = parquet.ValueOf(field).Level(0, 0, colIndex[i])
		}
		batch = append(batch, row)

		if len(batch) == batchSize {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}
	if err := flush(); err != nil {
		return total, err
	}
	if err := pw.Close(); err != nil {
		return total, fmt.Errorf("failed to finish parquet file: %w", err)
	}
	return total, nil
}
