package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := NewMetrics()
	m.IncrementCounter(CounterOrdersProcessed)
	m.IncrementCounterBy(CounterOrdersProcessed, 4)

	require.Equal(t, int64(5), m.GetCounters()[CounterOrdersProcessed])
}

func TestTimersTrackMinMaxAverage(t *testing.T) {
	m := NewMetrics()
	m.RecordTimer("pipeline_run", 100*time.Millisecond)
	m.RecordTimer("pipeline_run", 300*time.Millisecond)

	timer := m.GetTimers()["pipeline_run"]
	require.Equal(t, int64(2), timer.Count)
	require.Equal(t, int64(100), timer.MinTimeMs)
	require.Equal(t, int64(300), timer.MaxTimeMs)
	require.Equal(t, float64(200), timer.AverageTimeMs)
}

func TestConcurrentCounterUpdates(t *testing.T) {
	m := NewMetrics()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.IncrementCounter(CounterLabelsMock)
		}()
	}
	wg.Wait()

	require.Equal(t, int64(50), m.GetCounters()[CounterLabelsMock])
}

func TestGetAllMetricsShape(t *testing.T) {
	m := NewMetrics()
	m.SetHealth("ledger", true)

	all := m.GetAllMetrics()
	require.Contains(t, all, "uptime_seconds")
	require.Contains(t, all, "counters")
	require.Contains(t, all, "timers")
	require.Contains(t, all, "health_checks")
}
