package observability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/tasks", "GET", 200, time.Millisecond)
	m.RecordRequest("/tasks", "GET", 200, time.Millisecond)
	m.RecordError("/tasks", "POST", "FORBIDDEN")
	m.RecordNotification("complete", "sent")

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.Requests["/tasks|GET|200"])
	assert.Equal(t, int64(1), snap.Errors["/tasks|POST|FORBIDDEN"])
	assert.Equal(t, int64(1), snap.Notifications["complete|sent"])

	// Snapshot is a copy.
	snap.Requests["/tasks|GET|200"] = 99
	assert.Equal(t, int64(2), m.Snapshot().Requests["/tasks|GET|200"])
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordRequest("/", "GET", 200, 0)
	m.RecordNotification("create", "failed")
	assert.Empty(t, m.Snapshot().Requests)
}
