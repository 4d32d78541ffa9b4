package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/driftwatch/driftwatch/internal/state"
	"github.com/driftwatch/driftwatch/models"
)

// EventsModel displays the tick history with kind filters.
type EventsModel struct {
	store   state.Store
	events  []models.Event
	width   int
	height  int
	cursor  int
	filter  string // "CHANGE" | "HEALTHCHECK" | "STARTUP" | "FETCH_FAILED" | "" (all)
	loading bool
}

type eventsLoadedMsg struct {
	events []models.Event
}

// NewEventsModel creates an EventsModel.
func NewEventsModel(store state.Store) EventsModel {
	return EventsModel{store: store, loading: true}
}

func (e EventsModel) Init() tea.Cmd {
	return e.loadCmd()
}

func (e EventsModel) loadCmd() tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		events, err := e.store.RecentEvents(ctx, 200)
		if err != nil {
			events = nil
		}
		return eventsLoadedMsg{events: events}
	}
}

func (e EventsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventsLoadedMsg:
		e.events = msg.events
		e.loading = false
		return e, tea.Tick(30*time.Second, func(t time.Time) tea.Msg {
			return e.loadCmd()()
		})

	case tea.KeyMsg:
		switch msg.String() {
		case "j", "down":
			e.cursor++
		case "k", "up":
			if e.cursor > 0 {
				e.cursor--
			}
		case "c":
			e.filter = string(models.EventChange)
			e.cursor = 0
		case "h":
			e.filter = string(models.EventHealthcheck)
			e.cursor = 0
		case "s":
			e.filter = string(models.EventStartup)
			e.cursor = 0
		case "f":
			e.filter = string(models.EventFetchFailed)
			e.cursor = 0
		case "0":
			e.filter = ""
			e.cursor = 0
		case "r":
			e.loading = true
			return e, e.loadCmd()
		}
	}
	e = e.clampCursor()
	return e, nil
}

func (e *EventsModel) SetSize(w, h int) {
	e.width = w
	e.height = h
}

func (e EventsModel) View() string {
	if e.loading && len(e.events) == 0 {
		return panelStyle.Width(max(20, e.width-2)).Render("Loading event history...")
	}

	visible := e.visibleEvents()

	lineLimit := e.height - 10
	if lineLimit < 5 {
		lineLimit = 5
	}
	rows := ""
	for i, ev := range visible {
		if i >= lineLimit {
			break
		}
		rows += e.renderRow(i, ev)
	}

	if rows == "" {
		rows = dimStyle.Render("No events recorded yet.\n")
	}

	filterBar := lipgloss.JoinHorizontal(lipgloss.Left,
		e.filterChip("All", "", len(e.events), "0"),
		" ",
		e.filterChip("Changes", string(models.EventChange), e.countKind(models.EventChange), "c"),
		" ",
		e.filterChip("Healthchecks", string(models.EventHealthcheck), e.countKind(models.EventHealthcheck), "h"),
		" ",
		e.filterChip("Startups", string(models.EventStartup), e.countKind(models.EventStartup), "s"),
		" ",
		e.filterChip("Failures", string(models.EventFetchFailed), e.countKind(models.EventFetchFailed), "f"),
		"  ",
		keycapStyle.Render("r"),
		" ",
		dimStyle.Render("refresh"),
	)

	return lipgloss.JoinVertical(lipgloss.Left,
		panelStyle.Width(max(20, e.width-2)).Render(
			lipgloss.JoinVertical(lipgloss.Left,
				panelHeaderStyle.Render("Event History"),
				filterBar,
				"",
				dimStyle.Render("When            Kind           Target              Detail"),
				rows,
				"",
				dimStyle.Render("j/k navigate  c changes  h healthchecks  s startups  f failures  0 all"),
			),
		),
	)
}

func (e EventsModel) renderRow(idx int, ev models.Event) string {
	cursor := " "
	if idx == e.cursor {
		cursor = "▌"
	}

	when := ev.CreatedAt
	if ts := ev.Time(); !ts.IsZero() {
		when = age(ts)
	}

	row := lipgloss.JoinHorizontal(lipgloss.Left,
		lipgloss.NewStyle().Width(2).Foreground(accent).Render(cursor),
		lipgloss.NewStyle().Width(16).Foreground(slate).Render(truncate(when, 14)),
		lipgloss.NewStyle().Width(15).Render(kindStyle(ev.Kind).Render(ev.Kind)),
		lipgloss.NewStyle().Width(20).Foreground(ink).Render(truncate(ev.TargetID, 18)),
		lipgloss.NewStyle().Foreground(slate).Render(truncate(ev.Message, 48)),
	)
	if idx == e.cursor {
		return selectedRowStyle.Width(max(20, e.width-6)).Render(row) + "\n"
	}
	return row + "\n"
}

func (e EventsModel) filterChip(label, value string, count int, key string) string {
	text := fmt.Sprintf("%s %d", label, count)
	if e.filter == value {
		return activeTabStyle.Render(text)
	}
	return tabStyle.Render(text + " [" + key + "]")
}

func (e EventsModel) visibleEvents() []models.Event {
	if e.filter == "" {
		return e.events
	}
	out := make([]models.Event, 0, len(e.events))
	for _, ev := range e.events {
		if string(models.ParseEventKind(ev.Kind)) == e.filter {
			out = append(out, ev)
		}
	}
	return out
}

func (e EventsModel) countKind(kind models.EventKind) int {
	n := 0
	for _, ev := range e.events {
		if models.ParseEventKind(ev.Kind) == kind {
			n++
		}
	}
	return n
}

func (e EventsModel) clampCursor() EventsModel {
	total := len(e.visibleEvents())
	if total == 0 {
		e.cursor = 0
		return e
	}
	if e.cursor < 0 {
		e.cursor = 0
	}
	if e.cursor >= total {
		e.cursor = total - 1
	}
	return e
}
