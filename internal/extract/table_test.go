package extract

import (
	"errors"
	"reflect"
	"testing"
)

const samplePage = `
<html>
<body>
	<table class="infobox"><tr><th>Born</th><td>1900</td></tr></table>
	<table class="wikitable">
		<thead><tr><th>Year</th><th>Hours</th><th>Score</th></tr></thead>
		<tbody>
			<tr><td>2001</td><td>15</td><td>2<sup class="reference">[1]</sup></td></tr>
			<tr><td>2002</td><td> 14 </td><td>0</td></tr>
			<tr><td colspan="3">Totals omitted</td></tr>
			<tr><td>2003</td><td>17</td><td>3</td></tr>
		</tbody>
	</table>
	<table>
		<tr><td>a</td><td>b</td></tr>
		<tr><td>1</td><td><table><tr><td>nested</td></tr></table>2</td></tr>
	</table>
</body>
</html>
`

func TestReadHTMLTable(t *testing.T) {
	cols, err := ReadHTMLTable(samplePage, 0, "hours", "score")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if cols.XName != "Hours" || cols.YName != "Score" {
		t.Errorf("Unexpected column names: %q, %q", cols.XName, cols.YName)
	}
	if !reflect.DeepEqual(cols.X, []string{"15", "14", "17"}) {
		t.Errorf("Unexpected x: %v", cols.X)
	}
	if !reflect.DeepEqual(cols.Y, []string{"2", "0", "3"}) {
		t.Errorf("Expected citation markers stripped, got %v", cols.Y)
	}
}

func TestReadHTMLTable_SkipsNestedRows(t *testing.T) {
	cols, err := ReadHTMLTable(samplePage, 1, "", "")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(cols.X) != 1 {
		t.Fatalf("Expected 1 row, got %d (%v)", len(cols.X), cols.X)
	}
	if cols.X[0] != "1" {
		t.Errorf("Expected x=1, got %q", cols.X[0])
	}
}

func TestReadHTMLTable_Missing(t *testing.T) {
	_, err := ReadHTMLTable(samplePage, 5, "", "")
	if !errors.Is(err, ErrNoTable) {
		t.Errorf("Expected ErrNoTable, got %v", err)
	}

	_, err = ReadHTMLTable("<p>no tables</p>", 0, "", "")
	if !errors.Is(err, ErrNoTable) {
		t.Errorf("Expected ErrNoTable, got %v", err)
	}
}

func TestCountHTMLTables(t *testing.T) {
	n, err := CountHTMLTables(samplePage)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	// infobox is layout, the nested table counts
	if n != 3 {
		t.Errorf("Expected 3 data tables, got %d", n)
	}
}
