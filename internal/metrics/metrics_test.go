package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spok95/learning-platform-bot/internal/events"
)

func value(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	m := &dto.Metric{}
	require.NoError(t, c.Write(m))
	return m.GetCounter().GetValue()
}

func TestCountEvents(t *testing.T) {
	bus := events.NewBus()
	before := value(t, DomainEvents.WithLabelValues("progress"))

	stop := CountEvents(bus, events.TopicProgress)
	bus.Publish(events.Event{Topic: events.TopicProgress, UserID: 1})
	bus.Publish(events.Event{Topic: events.TopicCatalog})
	stop()
	bus.Publish(events.Event{Topic: events.TopicProgress, UserID: 1})

	assert.Equal(t, before+1, value(t, DomainEvents.WithLabelValues("progress")))
}

func TestObserveJob(t *testing.T) {
	before := value(t, JobRuns.WithLabelValues("test_job", "error"))
	ObserveJob("test_job", "error", 10*time.Millisecond)
	assert.Equal(t, before+1, value(t, JobRuns.WithLabelValues("test_job", "error")))
	assert.Zero(t, value(t, JobRuns.WithLabelValues("test_job", "ok")))
}
