// Package catalog reads car records from CSV source files. The header row is
// validated against a required schema before any data row is returned, so a
// malformed file is rejected before the indexer touches the vector store.
package catalog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/CarSeekAI/carseek-mvp/engine/domain"
)

// Schema lists the columns a CSV must carry.
type Schema struct {
	Required []string
}

// TextSchema is required by the text indexer.
var TextSchema = Schema{Required: []string{"car_label", "car_type", "fuel_type", "car_info", "image_url"}}

// ImageSchema is required by the image indexer.
var ImageSchema = Schema{Required: []string{"car_label", "car_info", "image_url"}}

// Load reads all car records from the CSV at path. Columns beyond the schema
// are ignored; missing required columns fail with a SchemaError; a file with
// a valid header but no data rows fails with ErrNoRows.
func Load(path string, schema Schema) ([]domain.CarRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: open %s: %w", path, err)
	}
	defer f.Close()
	return Read(f, path, schema)
}

// Read parses CSV content from r. The path argument is used for error
// context only.
func Read(r io.Reader, path string, schema Schema) ([]domain.CarRecord, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("catalog: read header of %s: %w", path, err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(strings.ToLower(name))] = i
	}

	var missing []string
	for _, name := range schema.Required {
		if _, ok := cols[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &domain.SchemaError{Path: path, Missing: missing}
	}

	field := func(rec []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var records []domain.CarRecord
	row := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("catalog: read %s row %d: %w", path, row+1, err)
		}
		row++
		records = append(records, domain.CarRecord{
			Label:     field(rec, "car_label"),
			CarType:   field(rec, "car_type"),
			FuelType:  field(rec, "fuel_type"),
			Info:      field(rec, "car_info"),
			ImageURLs: splitLocators(field(rec, "image_url")),
			Row:       row,
		})
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("catalog: %s: %w", path, domain.ErrNoRows)
	}
	return records, nil
}

// splitLocators splits a comma-separated image_url cell into locators.
func splitLocators(cell string) []string {
	if cell == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(cell, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
