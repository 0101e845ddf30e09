package metrics_test

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/zsprackett/audioid-web/internal/metrics"
)

func TestObserveLine(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	m.ObserveLine(false)
	m.ObserveLine(true)

	if got := testutil.ToFloat64(m.LinesTotal); got != 2 {
		t.Errorf("lines: got %v want 2", got)
	}
	if got := testutil.ToFloat64(m.MalformedLinesTotal); got != 1 {
		t.Errorf("malformed: got %v want 1", got)
	}
}

func TestObserveMessage(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	m.ObserveMessage("new", 3, 1)
	m.ObserveMessage("update", 3, 1)
	m.ObserveMessage("new", 2, 2)

	if got := testutil.ToFloat64(m.EventsTotal.WithLabelValues("new")); got != 2 {
		t.Errorf("new events: got %v want 2", got)
	}
	if got := testutil.ToFloat64(m.MessagesDelivered); got != 8 {
		t.Errorf("delivered: got %v want 8", got)
	}
	if got := testutil.ToFloat64(m.HistoryLength); got != 2 {
		t.Errorf("history length: got %v want 2", got)
	}
}

func TestNotification(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	m.Notification("ntfy", nil)
	m.Notification("webhook", errors.New("boom"))

	if got := testutil.ToFloat64(m.NotificationsTotal.WithLabelValues("webhook", "error")); got != 1 {
		t.Errorf("webhook errors: got %v want 1", got)
	}
}

func TestNilMetricsIsNoOp(t *testing.T) {
	var m *metrics.Metrics
	m.ObserveLine(true)
	m.ObserveMessage("new", 1, 1)
	m.SetSubscribers(3)
	m.JournalDropped()
	m.Notification("ntfy", nil)
}
