package components

import (
	"strings"
	"testing"

	"github.com/sgdevreal/stimmo/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"
)

func init() {
	lipgloss.SetColorProfile(termenv.TrueColor)
}

func TestLayoutRow(t *testing.T) {
	tests := []struct {
		total, n int
		want     []int
	}{
		{100, 4, []int{25, 25, 25, 25}},
		{101, 4, []int{26, 25, 25, 25}},
		{79, 2, []int{40, 39}},
		{10, 0, nil},
	}
	for _, tt := range tests {
		got := LayoutRow(tt.total, tt.n)
		if len(got) != len(tt.want) {
			t.Fatalf("LayoutRow(%d, %d) = %v, want %v", tt.total, tt.n, got, tt.want)
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Fatalf("LayoutRow(%d, %d) = %v, want %v", tt.total, tt.n, got, tt.want)
			}
		}
	}
}

func TestMetricCardRowFillsWidth(t *testing.T) {
	theme.SetActive("flexoki-dark")

	row := MetricCardRow([]Metric{
		{Label: "Listings", Value: "1,204"},
		{Label: "Average price", Value: "€ 352k", Hint: "3 series"},
		{Label: "Matched rows", Value: "88 of 120"},
	}, 90)

	for i, line := range strings.Split(row, "\n") {
		if w := lipgloss.Width(line); w != 90 {
			t.Errorf("line %d width = %d, want 90", i, w)
		}
	}
	plain := ansi.Strip(row)
	for _, want := range []string{"Listings", "1,204", "€ 352k", "3 series", "88 of 120"} {
		if !strings.Contains(plain, want) {
			t.Errorf("metric row missing %q", want)
		}
	}
}

func TestCardRowPadsShorterChartCard(t *testing.T) {
	theme.SetActive("flexoki-dark")

	v := func(f float64) *float64 { return &f }
	labels := []string{"06-24", "06-25", "06-26"}
	avg := ContentCard("Average price",
		LineChart([]LineSeries{{Name: "average", Values: []*float64{v(250000), nil, v(300000)}}}, labels, 30, 6), 36)
	count := ContentCard("Properties", "3 extracts", 36)

	if lipgloss.Height(count) >= lipgloss.Height(avg) {
		t.Fatal("count card should be shorter than the chart card")
	}

	joined := CardRow([]string{avg, count})
	lines := strings.Split(joined, "\n")
	if len(lines) != lipgloss.Height(avg) {
		t.Fatalf("row height = %d, want %d", len(lines), lipgloss.Height(avg))
	}
	for i, line := range lines {
		if w := lipgloss.Width(line); w != 72 {
			t.Errorf("line %d width = %d, want 72", i, w)
		}
		// Padding below the short card keeps the app background.
		if i >= lipgloss.Height(count) && !strings.Contains(line, "\x1b[") {
			t.Errorf("line %d has no background styling", i)
		}
	}
}

func TestCardInnerWidth(t *testing.T) {
	if got := CardInnerWidth(40); got != 36 {
		t.Errorf("CardInnerWidth(40) = %d, want 36", got)
	}
	if got := CardInnerWidth(8); got != 10 {
		t.Errorf("CardInnerWidth(8) = %d, want 10", got)
	}
}
