// Package dataset holds the tabular data model shared by the drift
// detector, the retrainer and the monitor: a fixed feature schema, a
// column-oriented dataset and its CSV persistence format.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// FeatureKind declares how a feature is treated statistically. Kinds are
// assigned by the schema, never inferred from data.
type FeatureKind int

const (
	Continuous FeatureKind = iota
	Categorical
)

// LabelColumn is the name of the binary target column on labeled datasets.
const LabelColumn = "is_phishing"

// Feature is a named column with an explicit kind.
type Feature struct {
	Name string      `json:"name"`
	Kind FeatureKind `json:"kind"`
}

// Schema is the ordered feature declaration a dataset conforms to.
type Schema struct {
	Features []Feature `json:"features"`
}

// DefaultSchema is the URL feature schema produced by the extractor.
func DefaultSchema() Schema {
	return Schema{Features: []Feature{
		{Name: "url_length", Kind: Continuous},
		{Name: "num_special_chars", Kind: Continuous},
		{Name: "has_ip_address", Kind: Categorical},
		{Name: "https_token", Kind: Categorical},
	}}
}

// Names returns the declared feature names in schema order.
func (s Schema) Names() []string {
	names := make([]string, len(s.Features))
	for i, f := range s.Features {
		names[i] = f.Name
	}
	return names
}

// Dataset is a column-oriented collection of records conforming to a
// schema, optionally carrying a binary label column.
type Dataset struct {
	Schema  Schema
	columns map[string][]float64
	labels  []float64
}

// New creates an empty dataset for the schema.
func New(schema Schema) *Dataset {
	cols := make(map[string][]float64, len(schema.Features))
	for _, f := range schema.Features {
		cols[f.Name] = nil
	}
	return &Dataset{Schema: schema, columns: cols}
}

// Append adds one record. values must be keyed by every declared feature.
func (d *Dataset) Append(values map[string]float64, label float64, labeled bool) error {
	for _, f := range d.Schema.Features {
		v, ok := values[f.Name]
		if !ok {
			return fmt.Errorf("record missing feature %q", f.Name)
		}
		d.columns[f.Name] = append(d.columns[f.Name], v)
	}
	if labeled {
		d.labels = append(d.labels, label)
	}
	return nil
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	if len(d.Schema.Features) == 0 {
		return 0
	}
	return len(d.columns[d.Schema.Features[0].Name])
}

// Column returns the values of a feature, or an error if the feature is
// not present. Callers must not mutate the returned slice.
func (d *Dataset) Column(name string) ([]float64, error) {
	col, ok := d.columns[name]
	if !ok {
		return nil, fmt.Errorf("feature %q not present in dataset", name)
	}
	return col, nil
}

// SetColumn replaces a declared feature column wholesale. The length must
// match the current record count.
func (d *Dataset) SetColumn(name string, values []float64) error {
	if _, ok := d.columns[name]; !ok {
		return fmt.Errorf("feature %q not declared in schema", name)
	}
	if d.Len() != 0 && len(values) != d.Len() {
		return fmt.Errorf("column %q length %d does not match %d records", name, len(values), d.Len())
	}
	d.columns[name] = values
	return nil
}

// Labeled reports whether the dataset carries the label column.
func (d *Dataset) Labeled() bool {
	return d.labels != nil
}

// Labels returns the label column. Callers must not mutate it.
func (d *Dataset) Labels() ([]float64, error) {
	if d.labels == nil {
		return nil, fmt.Errorf("dataset has no %s column", LabelColumn)
	}
	return d.labels, nil
}

// WithoutLabels returns a view of the feature columns only. The columns are
// shared, not copied; the result is for read-only use.
func (d *Dataset) WithoutLabels() *Dataset {
	return &Dataset{Schema: d.Schema, columns: d.columns}
}

// FeatureMatrix returns the records as rows in schema feature order,
// for model training and prediction.
func (d *Dataset) FeatureMatrix() [][]float64 {
	n := d.Len()
	rows := make([][]float64, n)
	for i := 0; i < n; i++ {
		row := make([]float64, len(d.Schema.Features))
		for j, f := range d.Schema.Features {
			row[j] = d.columns[f.Name][i]
		}
		rows[i] = row
	}
	return rows
}

// WriteCSV writes the dataset with a header of feature names in schema
// order, appending the label column when present.
func (d *Dataset) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	header := d.Schema.Names()
	if d.Labeled() {
		header = append(header, LabelColumn)
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	n := d.Len()
	record := make([]string, len(header))
	for i := 0; i < n; i++ {
		for j, f := range d.Schema.Features {
			record[j] = strconv.FormatFloat(d.columns[f.Name][i], 'g', -1, 64)
		}
		if d.Labeled() {
			record[len(record)-1] = strconv.FormatFloat(d.labels[i], 'g', -1, 64)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write record %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a dataset written by WriteCSV. Every declared feature must
// appear in the header; a trailing label column is optional.
func ReadCSV(r io.Reader, schema Schema) (*Dataset, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[name] = i
	}
	for _, f := range schema.Features {
		if _, ok := index[f.Name]; !ok {
			return nil, fmt.Errorf("csv missing declared feature %q", f.Name)
		}
	}
	labelIdx, labeled := index[LabelColumn]

	d := New(schema)
	if labeled {
		d.labels = []float64{}
	}
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}
		for _, f := range schema.Features {
			v, err := strconv.ParseFloat(record[index[f.Name]], 64)
			if err != nil {
				return nil, fmt.Errorf("line %d, feature %q: %w", line, f.Name, err)
			}
			d.columns[f.Name] = append(d.columns[f.Name], v)
		}
		if labeled {
			v, err := strconv.ParseFloat(record[labelIdx], 64)
			if err != nil {
				return nil, fmt.Errorf("line %d, label: %w", line, err)
			}
			d.labels = append(d.labels, v)
		}
	}
	return d, nil
}
