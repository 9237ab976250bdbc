package datasets

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"
)

// ErrNotChronological is returned when timestamps are not strictly increasing.
var ErrNotChronological = errors.New("timestamps are not strictly increasing")

// Series is a univariate time series: one target value per timestamp.
// Missing or unparsable target cells are stored as NaN.
type Series struct {
	Name   string
	Times  []time.Time
	Values []float64
}

// Len returns the number of observations.
func (s *Series) Len() int {
	return len(s.Times)
}

// Start returns the first timestamp.
func (s *Series) Start() time.Time {
	return s.Times[0]
}

// End returns the last timestamp.
func (s *Series) End() time.Time {
	return s.Times[len(s.Times)-1]
}

// Slice returns the observations in [from, to) as a new Series sharing the
// backing arrays.
func (s *Series) Slice(from, to int) *Series {
	return &Series{
		Name:   s.Name,
		Times:  s.Times[from:to:to],
		Values: s.Values[from:to:to],
	}
}

// Resolution returns the smallest positive step between consecutive
// timestamps, or zero for series shorter than two observations.
func (s *Series) Resolution() time.Duration {
	var res time.Duration
	for i := 1; i < len(s.Times); i++ {
		d := s.Times[i].Sub(s.Times[i-1])
		if d > 0 && (res == 0 || d < res) {
			res = d
		}
	}
	return res
}

// MissingCount returns the number of NaN values.
func (s *Series) MissingCount() int {
	n := 0
	for _, v := range s.Values {
		if math.IsNaN(v) {
			n++
		}
	}
	return n
}

// timeLayouts are tried in order when parsing the index column.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
	"01/02/2006 15:04",
	"01/02/2006",
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// LoadSeriesCSV reads a CSV file whose first column holds timestamps and
// extracts targetCol as a Series.
func LoadSeriesCSV(path, targetCol string) (*Series, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV %s: %w", path, err)
	}
	defer file.Close()

	s, err := ReadSeriesCSV(file, targetCol)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// ReadSeriesCSV is LoadSeriesCSV over an arbitrary reader.
func ReadSeriesCSV(r io.Reader, targetCol string) (*Series, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	col := -1
	want := normalizeColumn(targetCol)
	for i, name := range header {
		if i > 0 && normalizeColumn(name) == want {
			col = i
			break
		}
	}
	if col == -1 {
		return nil, fmt.Errorf("target column %q not found in CSV", targetCol)
	}

	s := &Series{Name: targetCol}
	row := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", row, err)
		}
		row++

		ts, err := parseTimestamp(record[0])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
		if n := len(s.Times); n > 0 && !ts.After(s.Times[n-1]) {
			return nil, fmt.Errorf("row %d (%s): %w", row, ts.Format(time.RFC3339), ErrNotChronological)
		}

		value := math.NaN()
		if col < len(record) {
			if v, err := parseFloat64(record[col]); err == nil {
				value = v
			}
		}
		s.Times = append(s.Times, ts)
		s.Values = append(s.Values, value)
	}

	if s.Len() == 0 {
		return nil, errors.New("CSV has no data rows")
	}
	return s, nil
}

func normalizeColumn(name string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
}
