// Package tui provides the interactive Bubble Tea dashboard for stimmo.
package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sgdevreal/stimmo/internal/cli"
	"github.com/sgdevreal/stimmo/internal/model"
	"github.com/sgdevreal/stimmo/internal/pipeline"
	"github.com/sgdevreal/stimmo/internal/tui/components"
	"github.com/sgdevreal/stimmo/internal/tui/theme"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

// Engine computes the dashboard views. *pipeline.Service implements it.
type Engine interface {
	Config() pipeline.ServiceConfig
	TrendDomains(ctx context.Context) ([]model.Domain, error)
	DefaultTrendSelection(ctx context.Context) (model.Selection, error)
	Trend(ctx context.Context, sel model.Selection) (*pipeline.TrendView, error)
	ExploreDomains(ctx context.Context, ignore []string) ([]model.Domain, error)
	Explore(ctx context.Context, sel model.Selection, ignore []string) (*pipeline.ExploreView, error)
	Listings(ctx context.Context, sel model.Selection) (*pipeline.ListingsView, error)
	Invalidate()
}

// trendLoadedMsg carries a recomputed trend dashboard.
type trendLoadedMsg struct {
	domains   []model.Domain
	selection model.Selection
	view      *pipeline.TrendView
	err       error
	elapsed   time.Duration
}

// exploreLoadedMsg carries a recomputed explore dashboard. domains covers
// every column outside the configured ignore list.
type exploreLoadedMsg struct {
	domains []model.Domain
	view    *pipeline.ExploreView
	err     error
}

// listingsLoadedMsg carries a fresh listing sample.
type listingsLoadedMsg struct {
	view *pipeline.ListingsView
	err  error
}

const (
	tabTrend = iota
	tabExplore
	tabListings
)

// App is the root Bubble Tea model.
type App struct {
	engine Engine
	cfg    pipeline.ServiceConfig

	// Trend dashboard
	trendDomains []model.Domain
	trendSel     model.Selection
	trend        *pipeline.TrendView
	trendErr     error

	// Explore dashboard
	exploreDomains []model.Domain
	exploreSel     model.Selection
	exploreIgnore  []string // columns ignored this session, on top of the config
	explore        *pipeline.ExploreView
	exploreErr     error

	// Listing sample
	listings    *pipeline.ListingsView
	listingsErr error
	listTable   table.Model

	loaded   bool
	pending  int
	loadTime time.Duration

	// UI state
	width     int
	height    int
	activeTab int
	showHelp  bool

	// Filter forms (huh). Values live behind pointers so the bindings
	// survive the model being copied on every Update.
	form        *huh.Form
	formKind    formKind
	trendVals   *trendFormValues
	exploreVals *exploreFormValues
	ignoreVals  *ignoreFormValues

	spinner spinner.Model
}

const (
	minTerminalWidth = 80
	maxContentWidth  = 180
	minContentHeight = 5

	loadTimeout = 2 * time.Minute
)

// NewApp creates a dashboard backed by engine.
func NewApp(engine Engine) App {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Active.Accent).Background(theme.Active.Surface)

	return App{
		engine:    engine,
		cfg:       engine.Config(),
		listTable: newListingsTable(),
		spinner:   sp,
		pending:   2,
	}
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	return tea.Batch(
		tea.EnableMouseCellMotion,
		loadTrendCmd(a.engine, nil),
		loadExploreCmd(a.engine, a.exploreSel, a.exploreIgnore),
		a.spinner.Tick,
	)
}

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.listTable.SetWidth(min(a.width, maxContentWidth) - 4)
		a.listTable.SetHeight(max(a.height-12, 5))
		if a.form != nil {
			a.form = a.form.WithWidth(min(a.width, maxContentWidth)).WithHeight(a.height)
		}
		return a, nil

	case tea.MouseMsg:
		if !a.loaded || a.showHelp || a.form != nil {
			return a, nil
		}
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			if a.activeTab == tabListings {
				a.listTable.MoveUp(1)
			}
		case tea.MouseButtonWheelDown:
			if a.activeTab == tabListings {
				a.listTable.MoveDown(1)
			}
		case tea.MouseButtonLeft:
			// Tab bar is the first line.
			if msg.Y <= 1 {
				if tab := a.tabAtX(msg.X); tab >= 0 && tab < len(components.Tabs) {
					a.activeTab = tab
				}
			}
		}
		return a, nil

	case tea.KeyMsg:
		key := msg.String()
		if key == "ctrl+c" {
			return a, tea.Quit
		}
		if !a.loaded {
			return a, nil
		}
		if a.form != nil {
			return a.updateForm(msg)
		}
		if key == "?" {
			a.showHelp = !a.showHelp
			return a, nil
		}
		if a.showHelp {
			a.showHelp = false
			return a, nil
		}
		return a.handleKey(key, msg)

	case trendLoadedMsg:
		a.pending = max(a.pending-1, 0)
		a.loaded = true
		a.loadTime = msg.elapsed
		a.trendErr = msg.err
		if msg.domains != nil {
			a.trendDomains = msg.domains
		}
		if msg.err == nil {
			a.trendSel = msg.selection
			a.trend = msg.view
		}
		return a, nil

	case exploreLoadedMsg:
		a.pending = max(a.pending-1, 0)
		a.exploreErr = msg.err
		if msg.domains != nil {
			a.exploreDomains = msg.domains
		}
		if msg.err == nil {
			a.explore = msg.view
		}
		return a, nil

	case listingsLoadedMsg:
		a.pending = max(a.pending-1, 0)
		a.listingsErr = msg.err
		if msg.err == nil {
			a.listings = msg.view
			a.listTable.SetRows(listingRows(msg.view.Listings))
			a.listTable.GotoTop()
		}
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd
	}

	// Cursor blinks and the like belong to the open form.
	if a.form != nil {
		return a.updateForm(msg)
	}
	return a, nil
}

func (a App) handleKey(key string, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key {
	case "q":
		return a, tea.Quit

	case "left":
		a.activeTab = (a.activeTab - 1 + len(components.Tabs)) % len(components.Tabs)
		return a, nil
	case "right":
		a.activeTab = (a.activeTab + 1) % len(components.Tabs)
		return a, nil

	case "f":
		if a.activeTab == tabExplore {
			return a.openExploreForm()
		}
		return a.openTrendForm()

	case "i":
		if a.activeTab == tabExplore {
			return a.openIgnoreForm()
		}
		return a, nil

	case "c":
		switch a.activeTab {
		case tabTrend:
			a.trendSel.Cutoff = !a.trendSel.Cutoff
			return a.reloadTrend()
		case tabExplore:
			a.exploreSel.Cutoff = !a.exploreSel.Cutoff
			return a.reloadExplore()
		}
		return a, nil

	case "r":
		a.activeTab = tabListings
		a.pending++
		return a, tea.Batch(sampleListingsCmd(a.engine, a.trendSel), a.spinner.Tick)

	case "R":
		a.engine.Invalidate()
		a.pending += 2
		sel := a.trendSel
		return a, tea.Batch(
			loadTrendCmd(a.engine, &sel),
			loadExploreCmd(a.engine, a.exploreSel, a.exploreIgnore),
			a.spinner.Tick,
		)
	}

	if len(key) == 1 {
		if idx := components.TabIdxByKey(rune(key[0])); idx >= 0 {
			a.activeTab = idx
			return a, nil
		}
	}

	if a.activeTab == tabListings {
		var cmd tea.Cmd
		a.listTable, cmd = a.listTable.Update(msg)
		return a, cmd
	}
	return a, nil
}

func (a App) reloadTrend() (tea.Model, tea.Cmd) {
	a.pending++
	sel := a.trendSel
	return a, tea.Batch(loadTrendCmd(a.engine, &sel), a.spinner.Tick)
}

func (a App) reloadExplore() (tea.Model, tea.Cmd) {
	a.pending++
	return a, tea.Batch(loadExploreCmd(a.engine, a.exploreSel, a.exploreIgnore), a.spinner.Tick)
}

func (a App) contentWidth() int {
	return min(a.width, maxContentWidth)
}

// View implements tea.Model.
func (a App) View() string {
	if a.width == 0 {
		return ""
	}
	if a.width < minTerminalWidth {
		return a.viewTooNarrow()
	}
	if !a.loaded {
		return a.viewLoading()
	}
	if a.form != nil {
		return a.viewForm()
	}
	if a.showHelp {
		return a.viewHelp()
	}
	return a.viewMain()
}

func (a App) viewTooNarrow() string {
	h := max(a.height, 5)
	msg := fmt.Sprintf(
		"\n  Terminal too narrow (%d cols)\n\n  stimmo needs at least %d columns.\n",
		a.width,
		minTerminalWidth,
	)
	return padHeight(truncateHeight(msg, h), h)
}

func (a App) viewLoading() string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(2, 4)
	logoStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	subtitleStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	spinnerStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface)

	var b strings.Builder
	b.WriteString(logoStyle.Render("◈ stimmo"))
	b.WriteString(subtitleStyle.Render(" · Real estate trends"))
	b.WriteString("\n\n")
	b.WriteString(spinnerStyle.Render(a.spinner.View()))
	b.WriteString(subtitleStyle.Render(" Loading " + a.cfg.Trend.Table + "..."))

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(b.String()),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewForm() string {
	t := theme.Active
	titleStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Bold(true).Padding(1, 2, 0)
	return titleStyle.Render(a.formKind.title()) + "\n" + a.form.View()
}

func (a App) viewHelp() string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(1, 3)
	titleStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	sectionStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	keyStyle := lipgloss.NewStyle().Foreground(t.Cyan).Background(t.Surface).Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	var b strings.Builder
	b.WriteString(titleStyle.Render("◈ Keyboard Shortcuts"))
	b.WriteString("\n\n")

	sections := []struct {
		name     string
		bindings []struct{ key, desc string }
	}{
		{"Navigation", []struct{ key, desc string }{
			{"t e l", "Jump to tab"},
			{"← →", "Previous / Next tab"},
			{"j k", "Move through listings"},
		}},
		{"Actions", []struct{ key, desc string }{
			{"f", "Edit filters"},
			{"i", "Ignore columns (Explore)"},
			{"c", "Toggle date cutoff"},
			{"r", "Sample listings"},
			{"R", "Refetch from datastore"},
			{"Esc", "Close form"},
			{"?", "Toggle help"},
			{"q", "Quit"},
		}},
	}
	for i, s := range sections {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(sectionStyle.Render(s.name))
		b.WriteString("\n")
		for _, bind := range s.bindings {
			fmt.Fprintf(&b, "  %s  %s\n",
				keyStyle.Render(fmt.Sprintf("%-10s", bind.key)),
				descStyle.Render(bind.desc))
		}
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Press any key to close"))

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(b.String()),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewMain() string {
	t := theme.Active
	w := a.width
	cw := a.contentWidth()
	h := a.height

	pillStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	accentStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	rowStyle := lipgloss.NewStyle().Background(t.Surface).Width(w)

	var pills []string
	switch a.activeTab {
	case tabExplore:
		pills = selectionPills(a.exploreSel)
	default:
		pills = selectionPills(a.trendSel)
	}
	filterStr := pillStyle.Render(" ")
	for i, p := range pills {
		if i > 0 {
			filterStr += pillStyle.Render(" │ ")
		}
		filterStr += accentStyle.Render(p)
	}
	header := components.RenderTabBar(a.activeTab, w) + "\n" + rowStyle.Render(filterStr)

	statusBar := components.RenderStatusBar(w, a.status())

	contentH := max(h-lipgloss.Height(header)-lipgloss.Height(statusBar), minContentHeight)

	var content string
	switch a.activeTab {
	case tabTrend:
		content = a.renderTrendTab(cw)
	case tabExplore:
		content = a.renderExploreTab(cw)
	case tabListings:
		content = a.renderListingsTab(cw)
	}

	content = padHeight(truncateHeight(content, contentH), contentH)
	content = fillLinesWithBackground(content, cw, t.Background)
	content = lipgloss.Place(w, contentH, lipgloss.Center, lipgloss.Top, content,
		lipgloss.WithWhitespaceBackground(t.Background))

	output := lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
	return lipgloss.Place(w, h, lipgloss.Left, lipgloss.Top, output,
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) status() components.StatusInfo {
	info := components.StatusInfo{Hints: "[f]ilter  [c]utoff  [r] listings  [R]efetch  [?]help  [q]uit"}
	if a.activeTab == tabExplore {
		info.Hints = "[f]ilter  [i]gnore  [c]utoff  [R]efetch  [?]help  [q]uit"
	}
	if a.pending > 0 {
		info.Busy = a.spinner.View() + " loading"
	}
	if err := a.tabErr(); err != nil {
		info.Error = err.Error()
	}
	if snap, ok := a.snapshot(); ok {
		info.DataAge = fmt.Sprintf("%s · %s rows · fetched %s",
			snap.Partition, cli.FormatNumber(int64(snap.Rows)), cli.FormatAge(snap.FetchedAt))
	}
	return info
}

func (a App) tabErr() error {
	switch a.activeTab {
	case tabExplore:
		return a.exploreErr
	case tabListings:
		return a.listingsErr
	default:
		return a.trendErr
	}
}

func (a App) snapshot() (pipeline.Snapshot, bool) {
	if a.activeTab == tabExplore {
		if a.explore != nil {
			return a.explore.Snapshot, true
		}
		return pipeline.Snapshot{}, false
	}
	if a.trend != nil {
		return a.trend.Snapshot, true
	}
	return pipeline.Snapshot{}, false
}

// selectionPills summarizes a selection for the header line.
func selectionPills(sel model.Selection) []string {
	var out []string
	for _, f := range sel.Filters {
		name := shortColumn(f.Column)
		switch {
		case f.Kind == model.FilterRange:
			out = append(out, fmt.Sprintf("%s %s–%s", name, model.FormatNumber(f.Min), model.FormatNumber(f.Max)))
		case len(f.Values) == 0:
			out = append(out, name+" none")
		case len(f.Values) <= 3:
			out = append(out, name+" "+strings.Join(f.Values, ","))
		default:
			out = append(out, fmt.Sprintf("%s ×%d", name, len(f.Values)))
		}
	}
	if sel.Cutoff {
		out = append(out, "cutoff on")
	} else {
		out = append(out, "cutoff off")
	}
	return out
}

// ─── Commands ───────────────────────────────────────────────────

// loadTrendCmd recomputes the trend dashboard. A nil selection starts from
// the default one.
func loadTrendCmd(e Engine, sel *model.Selection) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()

		domains, err := e.TrendDomains(ctx)
		if err != nil {
			return trendLoadedMsg{err: err, elapsed: time.Since(start)}
		}
		var s model.Selection
		if sel != nil {
			s = *sel
		} else if s, err = e.DefaultTrendSelection(ctx); err != nil {
			return trendLoadedMsg{domains: domains, err: err, elapsed: time.Since(start)}
		}
		view, err := e.Trend(ctx, s)
		return trendLoadedMsg{domains: domains, selection: s, view: view, err: err, elapsed: time.Since(start)}
	}
}

func loadExploreCmd(e Engine, sel model.Selection, ignore []string) tea.Cmd {
	ignore = append([]string(nil), ignore...)
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()

		domains, err := e.ExploreDomains(ctx, nil)
		if err != nil {
			return exploreLoadedMsg{err: err}
		}
		view, err := e.Explore(ctx, sel, ignore)
		return exploreLoadedMsg{domains: domains, view: view, err: err}
	}
}

func sampleListingsCmd(e Engine, sel model.Selection) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()
		view, err := e.Listings(ctx, sel)
		return listingsLoadedMsg{view: view, err: err}
	}
}

// ─── Helpers ────────────────────────────────────────────────────

// chartDateLabels builds compact X-axis labels for an oldest-first date
// axis. The first label and month boundaries carry the month ("Jun"),
// everything else the day number.
func chartDateLabels(dates []time.Time) []string {
	labels := make([]string, len(dates))
	prevMonth := time.Month(0)
	for i, dt := range dates {
		if i == 0 || dt.Month() != prevMonth {
			labels[i] = dt.Format("Jan")
		} else {
			labels[i] = strconv.Itoa(dt.Day())
		}
		prevMonth = dt.Month()
	}
	return labels
}

// shortColumn drops the dotted prefix of nested column names
// ("property.location.postalCode" -> "postalCode").
func shortColumn(col string) string {
	if i := strings.LastIndex(col, "."); i >= 0 && i < len(col)-1 {
		return col[i+1:]
	}
	return col
}

func truncStr(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}

func truncateHeight(s string, limit int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= limit {
		return s
	}
	return strings.Join(lines[:limit], "\n")
}

func padHeight(s string, h int) string {
	lines := strings.Split(s, "\n")
	if len(lines) >= h {
		return s
	}
	return s + strings.Repeat("\n", h-len(lines))
}

// fillLinesWithBackground pads each line to width w with background color.
func fillLinesWithBackground(s string, w int, bg lipgloss.Color) string {
	lines := strings.Split(s, "\n")

	var result strings.Builder
	for i, line := range lines {
		result.WriteString(lipgloss.PlaceHorizontal(w, lipgloss.Left, line,
			lipgloss.WithWhitespaceBackground(bg)))
		if i < len(lines)-1 {
			result.WriteString("\n")
		}
	}
	return result.String()
}

// ─── Mouse Support ──────────────────────────────────────────────

// tabAtX returns the tab index at the given X coordinate, or -1 if none.
// Hitboxes are derived from the same width rules used by RenderTabBar.
func (a App) tabAtX(x int) int {
	pos := 0
	for i, tab := range components.Tabs {
		tabW := components.TabVisualWidth(tab, i == a.activeTab)
		if x >= pos && x < pos+tabW {
			return i
		}
		pos += tabW

		// Separator is one column between tabs.
		if i < len(components.Tabs)-1 {
			pos++
		}
	}
	return -1
}
