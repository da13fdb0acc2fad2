package llm

import (
	"errors"
	"reflect"
	"testing"
)

func TestExtractFigures(t *testing.T) {
	got := extractFigures("Slope 0.91, intercept −11.21 and R² of 58.8% over 1,024 rows; slope 0.91 again.")
	want := []string{"0.91", "−11.21", "58.8%", "1,024"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("extractFigures() = %v, want %v", got, want)
	}
}

func TestCheckFigures(t *testing.T) {
	report := sampleReport()
	allowed := ReportFigures(report)

	tests := []struct {
		name    string
		text    string
		wantErr bool
	}{
		{"slope two decimals", "The slope is 0.91.", false},
		{"slope one decimal", "Roughly 0.9 points per hour.", false},
		{"slope many decimals", "Exactly 0.913580 points.", false},
		{"negative intercept in equation", "y = 0.91x - 11.21", false},
		{"r squared percent", "The line explains 58.79% of the variance.", false},
		{"r squared rounded percent", "About 59% of the variance.", false},
		{"prediction", "At 20 hours the model predicts 7.06.", false},
		{"point count", "Based on 11 students.", false},
		{"small counts ignored", "Two or 3 points sit far from the line.", false},
		{"range", "Hours range from 13 to 17.", false},
		{"invented p-value", "The result is significant (p = 0.03).", true},
		{"wrong slope", "The slope is 0.95.", true},
		{"invented year", "Since 2019, scores have grown.", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkFigures(extractFigures(tt.text), allowed)
			if tt.wantErr && !errors.Is(err, ErrFigureLeak) {
				t.Errorf("Expected ErrFigureLeak, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Expected no error, got %v", err)
			}
		})
	}
}

func TestParseQuoted(t *testing.T) {
	tests := []struct {
		in       string
		value    float64
		decimals int
		ok       bool
	}{
		{"0.91", 0.91, 2, true},
		{"−11.21", -11.21, 2, true},
		{"58.8%", 58.8, 1, true},
		{"1,024", 1024, 0, true},
		{"1,5", 0, 0, false},
	}

	for _, tt := range tests {
		value, decimals, ok := parseQuoted(tt.in)
		if ok != tt.ok || (ok && (value != tt.value || decimals != tt.decimals)) {
			t.Errorf("parseQuoted(%q) = %v, %d, %v", tt.in, value, decimals, ok)
		}
	}
}

func TestVerifyNarrative_NotStrict(t *testing.T) {
	quoted, err := verifyNarrative("p = 0.03", nil, false)
	if err != nil {
		t.Fatalf("Expected lenient mode to accept, got %v", err)
	}
	if len(quoted) != 1 || quoted[0] != "0.03" {
		t.Errorf("Unexpected quoted figures: %v", quoted)
	}
}
