package ui

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eveflow/eveflow/internal/dashboard/aggregator"
	"github.com/eveflow/eveflow/internal/models"
)

func seededAggregator(t *testing.T) *aggregator.Aggregator {
	t.Helper()
	agg := aggregator.New(100)
	events := make([]models.Event, 0, 3)
	for _, raw := range []string{
		`{"timestamp":"2024-01-01T12:00:00","event_type":"alert","src_ip":"1.2.3.4","dest_ip":"10.0.0.1","alert":{"signature":"ET SCAN probe"}}`,
		`{"event_type":"flow","src_ip":"1.2.3.4","dest_ip":"10.0.0.2"}`,
		`{"event_type":"dns","src_ip":"5.6.7.8","dest_ip":"10.0.0.1"}`,
	} {
		ev, err := models.ParseEvent([]byte(raw))
		require.NoError(t, err)
		events = append(events, ev)
	}
	agg.Add(events)
	return agg
}

func TestView_RendersPanels(t *testing.T) {
	m := NewModel(seededAggregator(t), time.Second, 10)

	view := m.View()
	assert.Contains(t, view, "Total Received: 3")
	assert.Contains(t, view, "Top Source IPs")
	assert.Contains(t, view, "Top Dest IPs")
	assert.Contains(t, view, "Top Alerts")
	assert.Contains(t, view, "Recent Events")
	assert.Contains(t, view, "1.2.3.4")
	assert.Contains(t, view, "ET SCAN probe")
}

func TestView_EmptyAggregator(t *testing.T) {
	m := NewModel(aggregator.New(10), time.Second, 10)

	view := m.View()
	assert.Contains(t, view, "Total Received: 0")
	assert.Contains(t, view, "waiting for events...")
}

func TestUpdate_TickRefreshesSnapshot(t *testing.T) {
	agg := aggregator.New(10)
	m := NewModel(agg, time.Second, 10)
	assert.NotContains(t, m.View(), "Total Received: 1")

	ev, err := models.ParseEvent([]byte(`{"event_type":"flow"}`))
	require.NoError(t, err)
	agg.Add([]models.Event{ev})

	updated, cmd := m.Update(tickMsg(time.Now()))
	m = updated.(Model)

	assert.NotNil(t, cmd, "tick must re-arm itself")
	assert.Contains(t, m.View(), "Total Received: 1")
}

func TestUpdate_QuitKeys(t *testing.T) {
	m := NewModel(aggregator.New(10), time.Second, 10)

	for _, key := range []string{"q", "ctrl+c", "esc"} {
		_, cmd := m.Update(keyMsg(key))
		require.NotNil(t, cmd, "key %q must quit", key)
		assert.Equal(t, tea.Quit(), cmd())
	}

	_, cmd := m.Update(keyMsg("x"))
	assert.Nil(t, cmd)
}

func keyMsg(key string) tea.KeyMsg {
	switch key {
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "exactly10!", truncate("exactly10!", 10))
	assert.Equal(t, "long stri…", truncate("long string here", 10))
	assert.Equal(t, "a", truncate("ab", 1))
}
