package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/driftwatch/driftwatch/internal/state"
	"github.com/driftwatch/driftwatch/models"
	"github.com/hako/durafmt"
)

// TargetsModel shows the per-target state table.
type TargetsModel struct {
	store    state.Store
	targets  []models.Target
	states   map[string]*models.MonitorState
	width    int
	height   int
	lastLoad time.Time
	loading  bool
}

// targetsLoadedMsg carries the freshly loaded state records.
type targetsLoadedMsg struct {
	states map[string]*models.MonitorState
}

// NewTargetsModel creates a TargetsModel.
func NewTargetsModel(targets []models.Target, store state.Store) TargetsModel {
	return TargetsModel{store: store, targets: targets, loading: true}
}

func (m TargetsModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m TargetsModel) loadCmd() tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		states := make(map[string]*models.MonitorState, len(m.targets))
		for _, t := range m.targets {
			st, err := m.store.Load(ctx, t.ID)
			if err != nil {
				continue
			}
			states[t.ID] = st
		}
		return targetsLoadedMsg{states: states}
	}
}

func (m TargetsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case targetsLoadedMsg:
		m.states = msg.states
		m.loading = false
		m.lastLoad = time.Now()
		// Refresh every 10 seconds.
		return m, tea.Tick(10*time.Second, func(t time.Time) tea.Msg {
			return m.loadCmd()()
		})
	case tea.KeyMsg:
		if msg.String() == "r" {
			m.loading = true
			return m, m.loadCmd()
		}
	}
	return m, nil
}

func (m *TargetsModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

func (m TargetsModel) View() string {
	if m.loading && m.states == nil {
		return panelStyle.Width(max(20, m.width-2)).Render("Loading target state...")
	}

	// Summary counts.
	tracking := 0
	for _, t := range m.targets {
		if st := m.states[t.ID]; st != nil && st.Initialized {
			tracking++
		}
	}
	neverRun := len(m.targets) - tracking

	cardW := 18
	if m.width >= 100 {
		cardW = 20
	}
	summary := lipgloss.JoinHorizontal(lipgloss.Top,
		renderCounter("Watched", len(m.targets), quietStyle, cardW),
		renderCounter("Tracking", tracking, healthcheckStyle, cardW),
		renderCounter("Never run", neverRun, changeStyle, cardW),
	)

	lineLimit := m.height - 12
	if lineLimit < 5 {
		lineLimit = 5
	}
	rows := ""
	for i, t := range m.targets {
		if i >= lineLimit {
			break
		}
		st := m.states[t.ID]

		badge := mutedBadgeStyle.Render("never run")
		value, checked, healthcheck := "—", "—", "—"
		if st != nil && st.Initialized {
			badge = lipgloss.NewStyle().Foreground(bgDark).Background(green).Padding(0, 1).Render("tracking")
			value = truncate(st.LastValue, 24)
			checked = age(st.LastCheckedAt)
			healthcheck = age(st.LastHealthcheckAt)
		}

		row := lipgloss.JoinHorizontal(lipgloss.Left,
			lipgloss.NewStyle().Width(20).Foreground(ink).Render(truncate(t.ID, 18)),
			lipgloss.NewStyle().Width(16).Foreground(slate).Render(t.Kind),
			lipgloss.NewStyle().Width(26).Foreground(ink).Render(value),
			lipgloss.NewStyle().Width(16).Foreground(slate).Render(checked),
			lipgloss.NewStyle().Width(16).Foreground(slate).Render(healthcheck),
			badge,
		)
		rows += row + "\n"
	}

	if len(m.targets) == 0 {
		rows = dimStyle.Render("No targets configured. Run: driftwatch init\n")
	}

	updated := "never"
	if !m.lastLoad.IsZero() {
		updated = m.lastLoad.Format("15:04:05")
	}
	refreshInfo := lipgloss.JoinHorizontal(lipgloss.Left,
		keycapStyle.Render("r"),
		" ",
		dimStyle.Render("refresh"),
		"   ",
		dimStyle.Render("updated "+updated),
	)

	return lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().Padding(0, 1).Render(summary),
		panelStyle.Width(max(20, m.width-2)).Render(
			lipgloss.JoinVertical(lipgloss.Left,
				panelHeaderStyle.Render("Targets"),
				dimStyle.Render("ID                  Kind            Value                     Checked         Healthcheck"),
				rows,
				refreshInfo,
			),
		),
	)
}

func renderCounter(label string, count int, style lipgloss.Style, width int) string {
	return boxStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Center,
			style.Bold(true).Render(fmt.Sprintf("%d", count)),
			dimStyle.Render(strings.ToUpper(label)),
		),
	) + "  "
}

// age renders a timestamp as a coarse single-unit "3 days ago".
func age(ts time.Time) string {
	if ts.IsZero() {
		return "never"
	}
	d := time.Since(ts)
	if d < 0 {
		d = 0
	}
	return durafmt.Parse(d.Round(time.Second)).LimitFirstN(1).String() + " ago"
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return "…" + s[len(s)-max+1:]
}
