// Package ui renders the live terminal dashboard from aggregator
// snapshots on a fixed redraw cadence.
package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/eveflow/eveflow/internal/dashboard/aggregator"
)

const recentRows = 10

// tickMsg drives the redraw cadence.
type tickMsg time.Time

// Model is the bubbletea model for the dashboard view. It only ever
// reads aggregator snapshots, so rendering never blocks ingestion;
// the view is at most one refresh interval stale.
type Model struct {
	agg     *aggregator.Aggregator
	refresh time.Duration
	topN    int

	snap   aggregator.Snapshot
	width  int
	height int
}

// NewModel creates the dashboard model.
func NewModel(agg *aggregator.Aggregator, refresh time.Duration, topN int) Model {
	return Model{
		agg:     agg,
		refresh: refresh,
		topN:    topN,
		snap:    agg.Snapshot(topN),
	}
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.refresh, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return m.tick()
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.snap = m.agg.Snapshot(m.topN)
		return m, m.tick()
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	header := headerStyle.Render(" EveFlow Dashboard ") + "  " +
		totalStyle.Render(fmt.Sprintf("Total Received: %d", m.snap.Total))

	summary := m.summaryPanel()
	srcIPs := m.counterPanel(panelTitleStyle.Render("Top Source IPs"), m.snap.TopSrcIPs)
	destIPs := m.counterPanel(panelTitleStyle.Render("Top Dest IPs"), m.snap.TopDestIPs)
	alerts := m.counterPanel(alertTitleStyle.Render("Top Alerts"), m.snap.TopAlerts)
	recent := m.recentPanel()

	left := lipgloss.JoinVertical(lipgloss.Left, summary, srcIPs, destIPs)
	right := lipgloss.JoinVertical(lipgloss.Left, alerts, recent)
	body := lipgloss.JoinHorizontal(lipgloss.Top, left, " ", right)

	help := helpStyle.Render("q: quit")

	return lipgloss.JoinVertical(lipgloss.Left, header, "", body, help)
}

func (m Model) summaryPanel() string {
	var b strings.Builder
	b.WriteString(panelTitleStyle.Render("Summary"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("Total events  %s\n", countStyle.Render(fmt.Sprintf("%d", m.snap.Total))))
	if len(m.snap.EventTypes) == 0 {
		b.WriteString(dimStyle.Render("waiting for events..."))
	} else {
		parts := make([]string, 0, len(m.snap.EventTypes))
		for _, e := range m.snap.EventTypes {
			parts = append(parts, fmt.Sprintf("%s:%d", e.Key, e.Count))
		}
		b.WriteString("Event types   " + countStyle.Render(strings.Join(parts, " ")))
	}
	return panelStyle.Render(b.String())
}

func (m Model) counterPanel(title string, entries []aggregator.Entry) string {
	var b strings.Builder
	b.WriteString(title)
	b.WriteString("\n")
	if len(entries) == 0 {
		b.WriteString(dimStyle.Render("none"))
	}
	for i, e := range entries {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(fmt.Sprintf("%-40s %s", truncate(e.Key, 40), countStyle.Render(fmt.Sprintf("%6d", e.Count))))
	}
	return panelStyle.Render(b.String())
}

func (m Model) recentPanel() string {
	var b strings.Builder
	b.WriteString(recentTitleStyle.Render("Recent Events"))
	b.WriteString("\n")

	rows := m.snap.Recent
	if len(rows) > recentRows {
		rows = rows[:recentRows]
	}
	if len(rows) == 0 {
		b.WriteString(dimStyle.Render("none"))
	}
	for i, ev := range rows {
		if i > 0 {
			b.WriteString("\n")
		}
		ts := ev.Timestamp
		if ts == "" {
			ts = "-"
		}
		b.WriteString(fmt.Sprintf("%s %-10s %-18s %-18s %s",
			dimStyle.Render(truncate(ts, 22)),
			truncate(ev.EventType, 10),
			truncate(ev.SourceIP, 18),
			truncate(ev.DestIP, 18),
			truncate(ev.Info, 32),
		))
	}
	return panelStyle.Render(b.String())
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}

// Run starts the dashboard view and blocks until the user quits or
// ctx is cancelled.
func Run(ctx context.Context, agg *aggregator.Aggregator, refresh time.Duration, topN int) error {
	p := tea.NewProgram(NewModel(agg, refresh, topN), tea.WithAltScreen())

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			p.Quit()
		case <-done:
		}
	}()

	_, err := p.Run()
	return err
}
