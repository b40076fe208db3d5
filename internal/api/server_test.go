package api

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/net/websocket"

	"convsweep/internal/events"
	"convsweep/internal/metrics"
	"convsweep/internal/summary"
	"convsweep/internal/sweep"
)

type fakeSource struct {
	status sweep.Status
	rows   []summary.Row
}

func (f *fakeSource) Status() sweep.Status { return f.status }

func (f *fakeSource) Rows() []summary.Row { return f.rows }

func (f *fakeSource) Metrics() metrics.Snapshot {
	return metrics.Snapshot{TotalRuns: 2, SucceededRuns: 1, FailedRuns: 1, AverageWall: 1500 * time.Millisecond}
}

func newSource() *fakeSource {
	return &fakeSource{
		status: sweep.Status{
			SweepID:   "abc",
			Project:   "Box",
			Running:   true,
			Total:     6,
			Completed: 2,
			Current:   &events.Point{Project: "Box_Degree_4_Mesh_m03", Degree: "4", Mesh: "m03", Index: 3, Total: 6},
		},
		rows: []summary.Row{
			{Degree: "4", MeshName: "m01", L2: []float64{1e-3}, Linf: []float64{2e-3}, ProjectName: "Box_Degree_4_Mesh_m01", CostPerDOF: 1e-6, Wall: time.Second},
		},
	}
}

func TestHandleStatus(t *testing.T) {
	s := NewServer("", newSource(), nil)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := ts.Client().Get(ts.URL + "/api/status")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "abc", body["sweep_id"])
	assert.Equal(t, "Box", body["project"])
	assert.Equal(t, true, body["running"])
	assert.EqualValues(t, 6, body["total"])
	assert.EqualValues(t, 2, body["completed"])

	current, ok := body["current"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "m03", current["mesh"])
	assert.EqualValues(t, 3, current["index"])
}

func TestHandleRows(t *testing.T) {
	s := NewServer("", newSource(), nil)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := ts.Client().Get(ts.URL + "/api/rows")
	require.NoError(t, err)
	defer resp.Body.Close()

	var rows []RowResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "m01", rows[0].Mesh)
	assert.Equal(t, []float64{1e-3}, rows[0].L2)
	assert.Equal(t, "1s", rows[0].Wall)
}

func TestHandleMetrics(t *testing.T) {
	s := NewServer("", newSource(), nil)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := ts.Client().Get(ts.URL + "/api/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	var m MetricsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&m))
	assert.Equal(t, uint64(2), m.TotalRuns)
	assert.InDelta(t, 1500, m.AvgWallMs, 0.001)
}

func TestMethodNotAllowed(t *testing.T) {
	s := NewServer("", newSource(), nil)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	for _, path := range []string{"/api/status", "/api/rows", "/api/metrics"} {
		resp, err := ts.Client().Post(ts.URL+path, "application/json", strings.NewReader("{}"))
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode, path)
	}
}

func TestWebSocketReceivesEvents(t *testing.T) {
	bus := events.NewBus()
	defer bus.Close()

	s := NewServer("", newSource(), bus)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.ForwardEvents(ctx)
	}()
	defer func() {
		cancel()
		<-done
	}()

	ws, err := websocket.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", "", ts.URL)
	require.NoError(t, err)
	defer ws.Close()

	require.Eventually(t, func() bool {
		return s.ClientCount() == 1 && bus.SubscriberCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	bus.Publish(events.NewSweepStartedEvent("abc", "Box", 6))

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev events.Event
	require.NoError(t, websocket.JSON.Receive(ws, &ev))
	assert.Equal(t, events.EventSweepStarted, ev.Type)
	assert.Equal(t, "abc", ev.SweepID)
	assert.Equal(t, 6, ev.Data.Total)
}

func TestServeStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	bus := events.NewBus()
	defer bus.Close()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := NewServer(ln.Addr().String(), newSource(), bus)
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Serve(ctx, ln)
	}()

	transport := &http.Transport{}
	client := &http.Client{Transport: transport}
	require.Eventually(t, func() bool {
		resp, err := client.Get("http://" + ln.Addr().String() + "/api/status")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)
	transport.CloseIdleConnections()

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
	assert.Equal(t, 0, bus.SubscriberCount())
}
