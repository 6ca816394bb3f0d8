package components

import (
	"fmt"
	"math"
	"strings"

	"github.com/sgdevreal/stimmo/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// LineSeries is one line of a LineChart. A nil value is a gap: the line is
// not drawn through it.
type LineSeries struct {
	Name   string
	Values []*float64
	Color  lipgloss.Color
}

// Sparkline renders a unicode sparkline from values. Nil values render as
// blanks.
func Sparkline(values []*float64, color lipgloss.Color) string {
	if len(values) == 0 {
		return ""
	}
	t := theme.Active

	blocks := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	lo, hi, ok := bounds([][]*float64{values})
	style := lipgloss.NewStyle().Foreground(color).Background(t.Surface)
	if !ok {
		return style.Render(strings.Repeat(" ", len(values)))
	}
	span := hi - lo

	var buf strings.Builder
	buf.Grow(len(values) * 4)
	for _, v := range values {
		if v == nil {
			buf.WriteRune(' ')
			continue
		}
		idx := len(blocks) / 2
		if span > 0 {
			idx = int((*v - lo) / span * float64(len(blocks)-1))
		}
		idx = min(max(idx, 0), len(blocks)-1)
		buf.WriteRune(blocks[idx])
	}

	return style.Render(buf.String())
}

// LineChart plots one or more series against shared x labels. The y axis
// spans the observed minimum to maximum across all series. Adjacent non-nil
// points are joined; a nil breaks the line, and a point with no non-nil
// neighbour is drawn on its own.
func LineChart(series []LineSeries, labels []string, width, height int) string {
	t := theme.Active
	bg := lipgloss.NewStyle().Background(t.Surface)
	axisStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	all := make([][]*float64, 0, len(series))
	n := 0
	for _, s := range series {
		all = append(all, s.Values)
		n = max(n, len(s.Values))
	}
	lo, hi, ok := bounds(all)
	if !ok || n == 0 {
		return axisStyle.Render("no data")
	}
	if height < 3 {
		height = 3
	}
	if hi == lo {
		// Flat data: give the single level some headroom.
		pad := math.Max(math.Abs(hi)*0.05, 1)
		lo, hi = lo-pad, hi+pad
	}

	yLabels := map[int]string{
		0:          formatChartLabel(hi),
		height / 2: formatChartLabel((hi + lo) / 2),
		height - 1: formatChartLabel(lo),
	}
	yLabelW := 4
	for _, l := range yLabels {
		yLabelW = max(yLabelW, len(l)+1)
	}
	plotW := max(width-yLabelW-1, 5)

	// Column of each x index; with more points than columns, several
	// indexes share a column and the later one wins.
	col := func(i int) int {
		if n == 1 {
			return plotW / 2
		}
		return i * (plotW - 1) / (n - 1)
	}
	row := func(v float64) int {
		r := int(math.Round((hi - v) / (hi - lo) * float64(height-1)))
		return min(max(r, 0), height-1)
	}

	grid := make([][]rune, height)
	owner := make([][]int, height)
	for r := range grid {
		grid[r] = []rune(strings.Repeat(" ", plotW))
		owner[r] = make([]int, plotW)
		for c := range owner[r] {
			owner[r][c] = -1
		}
	}
	plot := func(r, c int, ch rune, si int) {
		if r < 0 || r >= height || c < 0 || c >= plotW {
			return
		}
		grid[r][c] = ch
		owner[r][c] = si
	}

	for si, s := range series {
		for i, v := range s.Values {
			if v == nil {
				continue
			}
			if i+1 < len(s.Values) && s.Values[i+1] != nil {
				c0, c1 := col(i), col(i+1)
				r0, r1 := row(*v), row(*s.Values[i+1])
				for c := c0; c <= c1; c++ {
					frac := 0.0
					if c1 > c0 {
						frac = float64(c-c0) / float64(c1-c0)
					}
					plot(int(math.Round(float64(r0)+frac*float64(r1-r0))), c, '·', si)
				}
			}
		}
		// Markers last so they sit on top of the joins.
		for i, v := range s.Values {
			if v != nil {
				plot(row(*v), col(i), '●', si)
			}
		}
	}

	var b strings.Builder
	for r := 0; r < height; r++ {
		b.WriteString(axisStyle.Render(fmt.Sprintf("%*s", yLabelW, yLabels[r])))
		b.WriteString(axisStyle.Render("│"))
		for c := 0; c < plotW; c++ {
			si := owner[r][c]
			if si < 0 {
				b.WriteString(bg.Render(" "))
				continue
			}
			style := lipgloss.NewStyle().Foreground(series[si].Color).Background(t.Surface)
			b.WriteString(style.Render(string(grid[r][c])))
		}
		b.WriteString("\n")
	}
	b.WriteString(axisStyle.Render(strings.Repeat(" ", yLabelW) + "└" + strings.Repeat("─", plotW)))

	if len(labels) > 0 {
		b.WriteString("\n")
		b.WriteString(bg.Render(strings.Repeat(" ", yLabelW+1)))
		b.WriteString(axisStyle.Render(xAxisLabels(labels, n, plotW, col)))
	}
	return b.String()
}

// Legend renders "● name" entries for each series.
func Legend(series []LineSeries) string {
	t := theme.Active
	parts := make([]string, 0, len(series))
	for _, s := range series {
		dot := lipgloss.NewStyle().Foreground(s.Color).Background(t.Surface).Render("●")
		name := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface).Render(" " + s.Name)
		parts = append(parts, dot+name)
	}
	return strings.Join(parts, lipgloss.NewStyle().Background(t.Surface).Render("  "))
}

// BarChart renders a bar chart. Nil values leave an empty slot.
func BarChart(values []*float64, labels []string, color lipgloss.Color, width, height int) string {
	if len(values) == 0 {
		return ""
	}
	if width < 15 || height < 3 {
		return Sparkline(values, color)
	}

	t := theme.Active

	maxVal := 0.0
	for _, v := range values {
		if v != nil && *v > maxVal {
			maxVal = *v
		}
	}
	if maxVal == 0 {
		maxVal = 1
	}

	// Y-axis: compute tick step and ceiling
	tickStep := chartTickStep(maxVal)
	maxIntervals := max(height/2, 2)
	for {
		n := int(math.Ceil(maxVal / tickStep))
		if n <= maxIntervals {
			break
		}
		tickStep *= 2
	}
	ceiling := math.Ceil(maxVal/tickStep) * tickStep
	numIntervals := max(int(math.Round(ceiling/tickStep)), 1)

	rowsPerTick := max(height/numIntervals, 2)
	chartH := rowsPerTick * numIntervals

	yLabelW := max(len(formatChartLabel(ceiling))+1, 4)
	tickLabels := make(map[int]string)
	for i := 1; i <= numIntervals; i++ {
		tickLabels[i*rowsPerTick] = formatChartLabel(tickStep * float64(i))
	}

	chartW := max(width-yLabelW-1, 5)
	n := len(values)

	gap := 1
	if n <= 1 {
		gap = 0
	}
	barW := chartW
	if n > 1 {
		barW = (chartW - (n - 1)) / n
	}
	if barW < 2 && n > 1 {
		maxN := max((chartW+1)/3, 2)
		sampled := make([]*float64, maxN)
		var sampledLabels []string
		if len(labels) == n {
			sampledLabels = make([]string, maxN)
		}
		for i := range sampled {
			srcIdx := i * (n - 1) / (maxN - 1)
			sampled[i] = values[srcIdx]
			if sampledLabels != nil {
				sampledLabels[i] = labels[srcIdx]
			}
		}
		values = sampled
		labels = sampledLabels
		n = maxN
		barW = 2
	}
	barW = min(barW, 6)
	axisLen := n*barW + max(0, n-1)*gap

	blocks := []rune{' ', '▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}
	axisStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	blank := lipgloss.NewStyle().Background(t.Surface)

	var b strings.Builder
	for row := chartH; row >= 1; row-- {
		rowTop := ceiling * float64(row) / float64(chartH)
		rowBottom := ceiling * float64(row-1) / float64(chartH)
		rowPct := float64(row) / float64(chartH)

		var barColor lipgloss.Color
		switch {
		case rowPct > 0.8:
			barColor = t.AccentBright
		case rowPct > 0.5:
			barColor = color
		default:
			barColor = t.Accent
		}
		barStyle := lipgloss.NewStyle().Foreground(barColor).Background(t.Surface)

		b.WriteString(axisStyle.Render(fmt.Sprintf("%*s", yLabelW, tickLabels[row])))
		b.WriteString(axisStyle.Render("│"))

		for i, v := range values {
			if i > 0 && gap > 0 {
				b.WriteString(blank.Render(strings.Repeat(" ", gap)))
			}
			switch {
			case v == nil:
				b.WriteString(blank.Render(strings.Repeat(" ", barW)))
			case *v >= rowTop:
				b.WriteString(barStyle.Render(strings.Repeat("█", barW)))
			case *v > rowBottom:
				frac := (*v - rowBottom) / (rowTop - rowBottom)
				idx := min(max(int(frac*8), 1), 8)
				b.WriteString(barStyle.Render(strings.Repeat(string(blocks[idx]), barW)))
			default:
				b.WriteString(blank.Render(strings.Repeat(" ", barW)))
			}
		}
		b.WriteString("\n")
	}

	b.WriteString(axisStyle.Render(fmt.Sprintf("%*s", yLabelW, "0")))
	b.WriteString(axisStyle.Render("└"))
	b.WriteString(axisStyle.Render(strings.Repeat("─", axisLen)))

	if len(labels) == n && n > 0 {
		b.WriteString("\n")
		b.WriteString(blank.Render(strings.Repeat(" ", yLabelW+1)))
		b.WriteString(axisStyle.Render(xAxisLabels(labels, n, axisLen, func(i int) int { return i * (barW + gap) })))
	}

	return b.String()
}

// xAxisLabels lays labels out under their columns, skipping any that would
// collide, and always tries to show the last one.
func xAxisLabels(labels []string, n, axisLen int, pos func(int) int) string {
	if len(labels) < n {
		n = len(labels)
	}
	buf := []byte(strings.Repeat(" ", axisLen))

	lastEnd := -1
	for i := 0; i < n; i++ {
		p := pos(i)
		lbl := labels[i]
		end := p + len(lbl)
		if p <= lastEnd || end > axisLen {
			continue
		}
		copy(buf[p:end], lbl)
		lastEnd = end + 1
	}
	if n > 1 {
		lbl := labels[n-1]
		p := pos(n - 1)
		if p+len(lbl) > axisLen {
			p = axisLen - len(lbl)
		}
		if p >= 0 && p > lastEnd {
			copy(buf[p:p+len(lbl)], lbl)
		}
	}
	return strings.TrimRight(string(buf), " ")
}

func bounds(series [][]*float64) (lo, hi float64, ok bool) {
	for _, s := range series {
		for _, v := range s {
			if v == nil || math.IsNaN(*v) {
				continue
			}
			if !ok {
				lo, hi, ok = *v, *v, true
				continue
			}
			lo = math.Min(lo, *v)
			hi = math.Max(hi, *v)
		}
	}
	return lo, hi, ok
}

// chartTickStep computes a nice tick interval targeting ~5 ticks.
func chartTickStep(maxVal float64) float64 {
	if maxVal <= 0 {
		return 1
	}
	rough := maxVal / 5
	exp := math.Floor(math.Log10(rough))
	base := math.Pow(10, exp)
	frac := rough / base

	switch {
	case frac < 1.5:
		return base
	case frac < 3.5:
		return 2 * base
	default:
		return 5 * base
	}
}

func formatChartLabel(v float64) string {
	a := math.Abs(v)
	switch {
	case a >= 1e9:
		if v == math.Trunc(v/1e9)*1e9 {
			return fmt.Sprintf("%.0fB", v/1e9)
		}
		return fmt.Sprintf("%.1fB", v/1e9)
	case a >= 1e6:
		if v == math.Trunc(v/1e6)*1e6 {
			return fmt.Sprintf("%.0fM", v/1e6)
		}
		return fmt.Sprintf("%.2fM", v/1e6)
	case a >= 1e3:
		return fmt.Sprintf("%.0fk", v/1e3)
	case a >= 1:
		return fmt.Sprintf("%.0f", v)
	default:
		return fmt.Sprintf("%.2f", v)
	}
}
