package seeder

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eveflow/eveflow/internal/models"
)

func TestGenerator_EventsParse(t *testing.T) {
	g := New(1)
	now := time.Now()

	for i := 0; i < 50; i++ {
		line := g.Event(now)
		require.True(t, bytes.HasSuffix(line, []byte("\n")))

		ev, err := models.ParseEvent(line)
		require.NoError(t, err)

		f := ev.Fields()
		assert.NotEqual(t, models.UnknownKey, f.EventType)
		assert.NotEqual(t, models.UnknownKey, f.SourceIP)
		assert.NotEqual(t, models.UnknownKey, f.DestIP)
		assert.NotEmpty(t, f.Timestamp)

		if f.EventType == "alert" {
			assert.True(t, ev.HasAlert())
			assert.NotEmpty(t, f.Signature)
		}
	}
}

func TestGenerator_Deterministic(t *testing.T) {
	now := time.Unix(1700000000, 0)

	g1, g2 := New(42), New(42)
	for i := 0; i < 10; i++ {
		// Same seed, same time, same stream.
		assert.Equal(t, string(g1.Event(now)), string(g2.Event(now)))
	}
}

func TestGenerator_ProducesAlerts(t *testing.T) {
	g := New(7)
	now := time.Now()

	alerts := 0
	for i := 0; i < 200; i++ {
		ev, err := models.ParseEvent(g.Event(now))
		require.NoError(t, err)
		if ev.HasAlert() {
			alerts++
		}
	}
	assert.Positive(t, alerts, "the event mix must include alerts")
	assert.Less(t, alerts, 200, "alerts must not dominate the mix")
}
