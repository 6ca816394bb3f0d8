package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func ptr(f float64) *float64 { return &f }

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{1234567, "1,234,567"},
		{-45000, "-45,000"},
	}
	for _, tt := range tests {
		if got := FormatNumber(tt.in); got != tt.want {
			t.Errorf("FormatNumber(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatAverage(t *testing.T) {
	if got := FormatAverage(nil); got != "n/a" {
		t.Errorf("FormatAverage(nil) = %q, want n/a", got)
	}
	if got := FormatAverage(ptr(312499.6)); got != "€312,500" {
		t.Errorf("FormatAverage = %q, want €312,500", got)
	}
}

func TestFormatCompactPrice(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{850, "€850"},
		{1234, "€1.2K"},
		{315000, "€315K"},
		{1250000, "€1.25M"},
	}
	for _, tt := range tests {
		if got := FormatCompactPrice(tt.in); got != tt.want {
			t.Errorf("FormatCompactPrice(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatCountAndOptional(t *testing.T) {
	if got := FormatCount(12); got != "12" {
		t.Errorf("FormatCount(12) = %q", got)
	}
	if got := FormatCount(2.5); got != "2.5" {
		t.Errorf("FormatCount(2.5) = %q", got)
	}
	if got := FormatOptional(nil, " m²"); got != "-" {
		t.Errorf("FormatOptional(nil) = %q", got)
	}
	if got := FormatOptional(ptr(85), " m²"); got != "85 m²" {
		t.Errorf("FormatOptional(85) = %q", got)
	}
	if got := FormatDate(time.Date(2023, 6, 24, 13, 0, 0, 0, time.UTC)); got != "2023-06-24" {
		t.Errorf("FormatDate = %q", got)
	}
	if got := FormatAge(time.Time{}); got != "never" {
		t.Errorf("FormatAge(zero) = %q", got)
	}
}

func TestRenderSparkline_Gaps(t *testing.T) {
	got := []rune(RenderSparkline([]*float64{ptr(1), nil, ptr(5), ptr(3)}))
	if len(got) != 4 {
		t.Fatalf("len = %d, want 4", len(got))
	}
	if got[0] != '▁' || got[1] != ' ' || got[2] != '█' {
		t.Errorf("sparkline = %q", string(got))
	}
	if RenderSparkline(nil) != "" {
		t.Error("empty input should render nothing")
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatTable, false},
		{"JSON", FormatJSON, false},
		{"yml", FormatYAML, false},
		{"csv", FormatCSV, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = (%q, %v)", tt.in, got, err)
		}
	}
}

func TestWriteStructuredAndCSV(t *testing.T) {
	v := struct {
		Date    string   `json:"date" yaml:"date"`
		Average *float64 `json:"average" yaml:"average"`
	}{Date: "2023-06-25"}

	var js bytes.Buffer
	if err := WriteStructured(&js, FormatJSON, v); err != nil {
		t.Fatalf("json: %v", err)
	}
	if !strings.Contains(js.String(), `"average": null`) {
		t.Errorf("undefined average not null in JSON: %s", js.String())
	}

	var ym bytes.Buffer
	if err := WriteStructured(&ym, FormatYAML, v); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	if !strings.Contains(ym.String(), "average: null") {
		t.Errorf("undefined average not null in YAML: %s", ym.String())
	}

	var cs bytes.Buffer
	err := WriteCSV(&cs, []string{"date", "group"}, [][]string{{"2023-06-25", "1170, Watermael"}, {"---"}})
	if err != nil {
		t.Fatalf("csv: %v", err)
	}
	want := "date,group\n2023-06-25,\"1170, Watermael\"\n"
	if cs.String() != want {
		t.Errorf("csv = %q, want %q", cs.String(), want)
	}
}
