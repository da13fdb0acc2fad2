package extract

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	ErrColumnNotFound = errors.New("column not found")
	ErrTooFewColumns  = errors.New("source needs at least two columns")
	ErrNoHeader       = errors.New("source has no header row")
)

// candidate CSV delimiters, in order of preference on ties
var delimiters = []rune{',', ';', '\t'}

// ReadCSVColumns reads two columns from CSV text with a header row.
// Columns are matched by case-insensitive name; empty names select the
// first two columns not otherwise claimed.
func ReadCSVColumns(r io.Reader, xCol, yCol string) (*Columns, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = detectDelimiter(string(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	xi, yi, err := resolveColumns(header, xCol, yCol)
	if err != nil {
		return nil, err
	}

	cols := &Columns{
		XName: strings.TrimSpace(header[xi]),
		YName: strings.TrimSpace(header[yi]),
	}

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		if isBlankRecord(record) {
			continue
		}

		line, _ := reader.FieldPos(0)
		if xi >= len(record) || yi >= len(record) {
			return nil, fmt.Errorf("csv line %d: expected at least %d fields, got %d", line, max(xi, yi)+1, len(record))
		}
		cols.X = append(cols.X, strings.TrimSpace(record[xi]))
		cols.Y = append(cols.Y, strings.TrimSpace(record[yi]))
	}

	return cols, nil
}

// detectDelimiter picks the candidate that occurs most often in the header line
func detectDelimiter(sample string) rune {
	if i := strings.IndexByte(sample, '\n'); i >= 0 {
		sample = sample[:i]
	}

	best, bestCount := delimiters[0], 0
	for _, d := range delimiters {
		if c := strings.Count(sample, string(d)); c > bestCount {
			best, bestCount = d, c
		}
	}
	return best
}

func isBlankRecord(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// resolveColumns finds the x and y column indices in a header row
func resolveColumns(header []string, xCol, yCol string) (int, int, error) {
	if len(header) < 2 {
		return 0, 0, ErrTooFewColumns
	}

	find := func(name string) (int, error) {
		want := strings.ToLower(strings.TrimSpace(name))
		for i, h := range header {
			if strings.ToLower(strings.TrimSpace(h)) == want {
				return i, nil
			}
		}
		return -1, fmt.Errorf("%w: %q (have %s)", ErrColumnNotFound, name, strings.Join(header, ", "))
	}

	xi, yi := -1, -1
	var err error
	if strings.TrimSpace(xCol) != "" {
		if xi, err = find(xCol); err != nil {
			return 0, 0, err
		}
	}
	if strings.TrimSpace(yCol) != "" {
		if yi, err = find(yCol); err != nil {
			return 0, 0, err
		}
	}

	// Unnamed axes take the leftmost unclaimed columns
	next := func(skip int) int {
		for i := range header {
			if i != skip {
				return i
			}
		}
		return -1
	}
	if xi < 0 {
		xi = next(yi)
	}
	if yi < 0 {
		yi = next(xi)
	}
	if xi == yi {
		return 0, 0, fmt.Errorf("x and y refer to the same column %q", header[xi])
	}

	return xi, yi, nil
}
