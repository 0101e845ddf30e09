package webserver_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/zsprackett/audioid-web/internal/db"
	"github.com/zsprackett/audioid-web/internal/events"
	"github.com/zsprackett/audioid-web/internal/metrics"
	"github.com/zsprackett/audioid-web/internal/monitor"
	"github.com/zsprackett/audioid-web/internal/webserver"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeJournal struct {
	rows      []db.JournalEvent
	lastLimit int
	err       error
}

func (f *fakeJournal) RecentEvents(limit int) ([]db.JournalEvent, error) {
	f.lastLimit = limit
	return f.rows, f.err
}

type testEnv struct {
	mon   *monitor.Monitor
	lines chan string
	http  *httptest.Server
}

func newEnv(t *testing.T, journal webserver.Journal) *testEnv {
	t.Helper()
	reg := prometheus.NewRegistry()
	mon := monitor.New(monitor.Options{
		Capacity: 3,
		Metrics:  metrics.New(reg),
		Logger:   discardLogger(),
	})
	lines := make(chan string)
	ctx, cancel := context.WithCancel(context.Background())
	go mon.Run(ctx, lines)

	var j webserver.Journal
	if journal != nil {
		j = journal
	}
	srv := webserver.New(mon, j, reg, webserver.Config{Path: "/audioid"}, discardLogger())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		cancel()
	})
	return &testEnv{mon: mon, lines: lines, http: ts}
}

func (e *testEnv) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(e.http.URL, "http") + "/audioid"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) events.Envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var env events.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return env
}

func waitForSubscribers(t *testing.T, mon *monitor.Monitor, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		stats, err := mon.Stats(context.Background())
		if err == nil && stats.Subscribers == n {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected %d subscribers", n)
}

func TestSocket_SnapshotThenLiveUpdates(t *testing.T) {
	env := newEnv(t, nil)
	env.lines <- "1.0\ton\tgrinder\t0.5"
	env.lines <- "1.2\ton\tgrinder\t0.7"

	conn := env.dial(t)
	snap := readEnvelope(t, conn)
	if snap.Message != "recent" {
		t.Fatalf("first message: got %q want recent", snap.Message)
	}
	list, _ := snap.Events()
	if len(list) != 1 || list[0].Duration != 0.7 {
		t.Fatalf("unexpected snapshot: %+v", list)
	}

	env.lines <- "2.0\ton\tpump\t0.3"
	msg := readEnvelope(t, conn)
	if msg.Message != "new" {
		t.Fatalf("live message: got %q want new", msg.Message)
	}
	e, err := msg.Event()
	if err != nil {
		t.Fatal(err)
	}
	if e.Label != "pump" || e.Created.IsZero() {
		t.Errorf("unexpected event: %+v", e)
	}
}

func TestSocket_DisconnectUnsubscribes(t *testing.T) {
	env := newEnv(t, nil)
	conn := env.dial(t)
	readEnvelope(t, conn)
	waitForSubscribers(t, env.mon, 1)

	conn.Close()
	waitForSubscribers(t, env.mon, 0)

	// Publishing with no subscribers still works.
	env.lines <- "1\ton\tpump\t1"
}

func TestRecentEndpoint(t *testing.T) {
	env := newEnv(t, nil)
	env.lines <- "abc\tfoo"

	resp, err := http.Get(env.http.URL + "/api/recent")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body struct {
		Recent []map[string]any `json:"recent"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if len(body.Recent) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(body.Recent))
	}
	if body.Recent[0]["time"] != nil || body.Recent[0]["type"] != "foo" {
		t.Errorf("unexpected entry: %v", body.Recent[0])
	}
}

func TestEventsEndpoint_Disabled(t *testing.T) {
	env := newEnv(t, nil)
	resp, err := http.Get(env.http.URL + "/api/events")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != 404 {
		t.Errorf("expected 404 without journal, got %d", resp.StatusCode)
	}
}

func TestEventsEndpoint(t *testing.T) {
	journal := &fakeJournal{rows: []db.JournalEvent{{
		Event:   events.Event{ID: "x1", Time: 3, Type: "on", Label: "pump", Duration: 1, Created: time.UnixMilli(5000), Updated: time.UnixMilli(6000)},
		Updates: 2,
	}}}
	env := newEnv(t, journal)

	cases := []struct {
		query     string
		status    int
		wantLimit int
	}{
		{"", 200, 50},
		{"?limit=5", 200, 5},
		{"?limit=99999", 200, 1000},
		{"?limit=abc", 400, 0},
		{"?limit=0", 400, 0},
	}
	for _, tc := range cases {
		journal.lastLimit = 0
		resp, err := http.Get(env.http.URL + "/api/events" + tc.query)
		if err != nil {
			t.Fatal(err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if resp.StatusCode != tc.status {
			t.Errorf("%q: status %d want %d", tc.query, resp.StatusCode, tc.status)
			continue
		}
		if journal.lastLimit != tc.wantLimit {
			t.Errorf("%q: limit %d want %d", tc.query, journal.lastLimit, tc.wantLimit)
		}
		if tc.status == 200 && !strings.Contains(string(body), `"updates":2`) {
			t.Errorf("%q: unexpected body %s", tc.query, body)
		}
	}
}

func TestEventsEndpoint_StoreError(t *testing.T) {
	env := newEnv(t, &fakeJournal{err: errors.New("disk gone")})
	resp, err := http.Get(env.http.URL + "/api/events")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != 500 {
		t.Errorf("expected 500, got %d", resp.StatusCode)
	}
}

func TestHealthEndpoint(t *testing.T) {
	env := newEnv(t, nil)
	env.lines <- "1\ton\tpump\t1"

	resp, err := http.Get(env.http.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var body map[string]any
	json.NewDecoder(resp.Body).Decode(&body)
	if body["status"] != "ok" || body["history"] != float64(1) {
		t.Errorf("unexpected health body: %v", body)
	}
}

func TestHealthEndpoint_StoppedMonitor(t *testing.T) {
	mon := monitor.New(monitor.Options{Logger: discardLogger()})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	mon.Run(ctx, make(chan string))

	srv := webserver.New(mon, nil, nil, webserver.Config{}, discardLogger())
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type: got %q want application/json", ct)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["status"] == "" || body["status"] == "ok" {
		t.Errorf("unexpected status: %v", body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newEnv(t, nil)
	env.lines <- "1\ton\tpump\t1"
	env.mon.Stats(context.Background())

	resp, err := http.Get(env.http.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "audioid_analyzer_lines_total 1") {
		t.Errorf("expected lines counter in metrics output")
	}
}

func TestStaticIndex(t *testing.T) {
	env := newEnv(t, nil)
	resp, err := http.Get(env.http.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != 200 || !strings.Contains(string(body), "AudioID") {
		t.Errorf("expected embedded index page, got %d", resp.StatusCode)
	}
}
