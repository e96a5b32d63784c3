// Package dataset loads search inputs from CSV files: a feature matrix, a
// binary label column and a protected-attribute column. It is a collaborator
// of the search core, not part of it; any other source of a bags.Dataset
// works just as well.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"gonum.org/v1/gonum/mat"

	"github.com/thalesfsp/bags"
)

// Load reads a CSV file with a header row and returns it as a search
// dataset.
//
// Parameters:
// - path: the CSV file
// - labelColumn: header name of the binary outcome column (values 0 or 1)
// - groupColumn: header name of the protected-attribute column (kept as a
//   string group label)
//
// Every remaining column is treated as a numeric feature.
func Load(path, labelColumn, groupColumn string) (*bags.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening dataset: %w", err)
	}
	defer f.Close()

	ds, err := Parse(f, labelColumn, groupColumn)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	return ds, nil
}

// Parse reads CSV content from r. See Load for the expected shape.
func Parse(r io.Reader, labelColumn, groupColumn string) (*bags.Dataset, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	labelIndex, groupIndex := -1, -1
	featureIndexes := make([]int, 0, len(header))

	for i, name := range header {
		switch name {
		case labelColumn:
			labelIndex = i
		case groupColumn:
			groupIndex = i
		default:
			featureIndexes = append(featureIndexes, i)
		}
	}

	if labelIndex == -1 {
		return nil, fmt.Errorf("label column %q not found", labelColumn)
	}

	if groupIndex == -1 {
		return nil, fmt.Errorf("group column %q not found", groupColumn)
	}

	if len(featureIndexes) == 0 {
		return nil, fmt.Errorf("no feature columns besides %q and %q", labelColumn, groupColumn)
	}

	var (
		features []float64
		labels   []int
		groups   []string
	)

	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		label, err := strconv.Atoi(record[labelIndex])
		if err != nil || (label != 0 && label != 1) {
			return nil, fmt.Errorf("line %d: label %q is not 0 or 1", line, record[labelIndex])
		}

		for _, idx := range featureIndexes {
			value, err := strconv.ParseFloat(record[idx], 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: feature %q: %w", line, header[idx], err)
			}

			features = append(features, value)
		}

		labels = append(labels, label)
		groups = append(groups, record[groupIndex])
	}

	if len(labels) == 0 {
		return nil, fmt.Errorf("no data rows")
	}

	ds := &bags.Dataset{
		X:      mat.NewDense(len(labels), len(featureIndexes), features),
		Y:      labels,
		Groups: groups,
	}

	if err := ds.Validate(); err != nil {
		return nil, err
	}

	return ds, nil
}
