package aggregator

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eveflow/eveflow/internal/models"
)

func ev(t *testing.T, raw string) models.Event {
	t.Helper()
	event, err := models.ParseEvent([]byte(raw))
	require.NoError(t, err)
	return event
}

func TestAggregator_CountsAcrossBatches(t *testing.T) {
	a := New(100)

	n := a.Add([]models.Event{
		ev(t, `{"event_type":"alert","src_ip":"1.2.3.4","dest_ip":"10.0.0.1","alert":{"signature":"ET SCAN probe"}}`),
		ev(t, `{"event_type":"flow","src_ip":"1.2.3.4","dest_ip":"10.0.0.2"}`),
	})
	assert.Equal(t, 2, n)

	n = a.Add([]models.Event{
		ev(t, `{"event_type":"dns","src_ip":"5.6.7.8","dest_ip":"10.0.0.1"}`),
	})
	assert.Equal(t, 1, n)

	snap := a.Snapshot(10)
	assert.Equal(t, uint64(3), snap.Total)
	assert.Equal(t, []Entry{{Key: "1.2.3.4", Count: 2}, {Key: "5.6.7.8", Count: 1}}, snap.TopSrcIPs)
	assert.Equal(t, []Entry{{Key: "10.0.0.1", Count: 2}, {Key: "10.0.0.2", Count: 1}}, snap.TopDestIPs)
	assert.Equal(t, []Entry{{Key: "ET SCAN probe", Count: 1}}, snap.TopAlerts)
	assert.ElementsMatch(t, []Entry{
		{Key: "alert", Count: 1}, {Key: "flow", Count: 1}, {Key: "dns", Count: 1},
	}, snap.EventTypes)
}

func TestAggregator_TopNTruncatesAndBreaksTiesByFirstSeen(t *testing.T) {
	a := New(10)

	// b and c tie; b was seen first and must sort ahead of c on every
	// snapshot.
	a.Add([]models.Event{
		ev(t, `{"src_ip":"a"}`), ev(t, `{"src_ip":"a"}`), ev(t, `{"src_ip":"a"}`),
		ev(t, `{"src_ip":"b"}`), ev(t, `{"src_ip":"b"}`),
		ev(t, `{"src_ip":"c"}`), ev(t, `{"src_ip":"c"}`),
		ev(t, `{"src_ip":"d"}`),
	})

	for i := 0; i < 5; i++ {
		snap := a.Snapshot(3)
		require.Equal(t, []Entry{
			{Key: "a", Count: 3}, {Key: "b", Count: 2}, {Key: "c", Count: 2},
		}, snap.TopSrcIPs, "snapshot %d", i)
	}

	assert.Len(t, a.Snapshot(2).TopSrcIPs, 2)
	assert.Len(t, a.Snapshot(0).TopSrcIPs, 4, "n<=0 returns all keys")
}

func TestAggregator_MissingFieldsCountAsUnknown(t *testing.T) {
	a := New(10)
	a.Add([]models.Event{ev(t, `{"proto":"TCP"}`)})

	snap := a.Snapshot(10)
	assert.Equal(t, []Entry{{Key: "unknown", Count: 1}}, snap.TopSrcIPs)
	assert.Equal(t, []Entry{{Key: "unknown", Count: 1}}, snap.TopDestIPs)
	assert.Equal(t, []Entry{{Key: "unknown", Count: 1}}, snap.EventTypes)
}

func TestAggregator_AlertsCountedOnlyWithAlertBlock(t *testing.T) {
	a := New(10)
	a.Add([]models.Event{
		ev(t, `{"event_type":"alert","alert":{"signature":"SIG-1"}}`),
		ev(t, `{"event_type":"alert","alert":{}}`),
		ev(t, `{"event_type":"flow"}`),
	})

	snap := a.Snapshot(10)
	assert.ElementsMatch(t, []Entry{
		{Key: "SIG-1", Count: 1}, {Key: "unknown", Count: 1},
	}, snap.TopAlerts)
}

func TestAggregator_RecentRingNewestFirst(t *testing.T) {
	a := New(3)

	for i := 0; i < 5; i++ {
		a.Add([]models.Event{ev(t, fmt.Sprintf(`{"event_type":"ev%d"}`, i))})
	}

	snap := a.Snapshot(10)
	require.Len(t, snap.Recent, 3)
	assert.Equal(t, "ev4", snap.Recent[0].EventType)
	assert.Equal(t, "ev3", snap.Recent[1].EventType)
	assert.Equal(t, "ev2", snap.Recent[2].EventType)
}

func TestAggregator_RecentRingPartialFill(t *testing.T) {
	a := New(10)
	a.Add([]models.Event{
		ev(t, `{"event_type":"first"}`),
		ev(t, `{"event_type":"second"}`),
	})

	snap := a.Snapshot(10)
	require.Len(t, snap.Recent, 2)
	assert.Equal(t, "second", snap.Recent[0].EventType)
	assert.Equal(t, "first", snap.Recent[1].EventType)
}

func TestAggregator_SnapshotIsDetached(t *testing.T) {
	a := New(10)
	a.Add([]models.Event{ev(t, `{"src_ip":"1.1.1.1"}`)})

	snap := a.Snapshot(10)
	snap.TopSrcIPs[0].Count = 999

	assert.Equal(t, uint64(1), a.Snapshot(10).TopSrcIPs[0].Count)
}

func TestAggregator_SnapshotMarshalsStableJSON(t *testing.T) {
	a := New(10)
	a.Add([]models.Event{
		ev(t, `{"event_type":"alert","src_ip":"1.2.3.4","alert":{"signature":"SIG"}}`),
	})

	out, err := json.Marshal(a.Snapshot(10))
	require.NoError(t, err)
	assert.Contains(t, string(out), `"total_received":1`)
	assert.Contains(t, string(out), `"top_src_ips"`)
	assert.Contains(t, string(out), `"top_alerts"`)
}
