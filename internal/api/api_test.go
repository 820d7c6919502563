package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/wayfinder/internal/grid"
)

func testServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	info := GridInfo{
		Rows:      3,
		Cols:      3,
		Start:     grid.Position{Row: 0, Col: 0},
		Goal:      grid.Position{Row: 2, Col: 2},
		Obstacles: []grid.Position{{Row: 1, Col: 1}},
	}
	status := Status{
		Name:     "wayfinder",
		Scenario: "custom",
		Episodes: 1,
		MaxSteps: 10,
		Position: info.Start,
		Goal:     info.Goal,
	}
	s := NewServer("", info, status)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func startSnapshot() Snapshot {
	return Snapshot{
		Episode:  1,
		Step:     0,
		Position: grid.Position{Row: 0, Col: 0},
		Path:     []grid.Position{{Row: 0, Col: 0}},
		Belief:   []float64{0.125, 0.125, 0.125, 0.125, 0.125, 0.125, 0.125, 0.125, 0},
		Entropy:  2.079,
		GoalMass: 0.125,
	}
}

func TestStatusAndGridEndpoints(t *testing.T) {
	s, ts := testServer(t)
	s.BeginEpisode(1, startSnapshot())
	client := NewClient(ts.URL)

	status, err := client.Status()
	require.NoError(t, err)
	assert.Equal(t, "wayfinder", status.Name)
	assert.True(t, status.Running)
	assert.Equal(t, 1, status.Episode)
	assert.Equal(t, 0, status.Step)
	assert.Equal(t, grid.Position{Row: 2, Col: 2}, status.Goal)

	info, err := client.Grid()
	require.NoError(t, err)
	assert.Equal(t, 3, info.Rows)
	assert.Equal(t, []grid.Position{{Row: 1, Col: 1}}, info.Obstacles)
}

func TestSnapshotBeforeFirstPublish(t *testing.T) {
	_, ts := testServer(t)
	client := NewClient(ts.URL)

	_, err := client.Snapshot()
	assert.Error(t, err)

	resp, err := http.Get(ts.URL + "/api/v1/snapshot")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPublishUpdatesSnapshotAndStatus(t *testing.T) {
	s, ts := testServer(t)
	s.BeginEpisode(1, startSnapshot())
	client := NewClient(ts.URL)

	target := grid.Position{Row: 0, Col: 1}
	s.Publish(Snapshot{
		Episode:     1,
		Step:        1,
		Action:      "right",
		Target:      &target,
		Observation: "free",
		Position:    target,
		Path:        []grid.Position{{Row: 0, Col: 0}, target},
		Belief:      []float64{0, 1, 0, 0, 0, 0, 0, 0, 0},
		GoalMass:    0,
	})

	snap, err := client.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Step)
	assert.Equal(t, "right", snap.Action)
	require.NotNil(t, snap.Target)
	assert.Equal(t, target, *snap.Target)
	assert.Len(t, snap.Belief, 9)

	status, err := client.Status()
	require.NoError(t, err)
	assert.Equal(t, 1, status.Step)
	assert.Equal(t, target, status.Position)
}

func TestFinishCarriesOutcome(t *testing.T) {
	s, ts := testServer(t)
	s.BeginEpisode(1, startSnapshot())
	client := NewClient(ts.URL)

	final := startSnapshot()
	final.Step = 4
	final.Position = grid.Position{Row: 2, Col: 2}
	s.Finish("goal reached in 4 steps", final)
	s.Stop()

	status, err := client.Status()
	require.NoError(t, err)
	assert.False(t, status.Running)
	assert.Equal(t, "goal reached in 4 steps", status.Outcome)

	snap, err := client.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, "goal reached in 4 steps", snap.Outcome)
}

func TestStreamPushesSnapshots(t *testing.T) {
	s, ts := testServer(t)
	s.BeginEpisode(1, startSnapshot())

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/stream"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	// The latest snapshot arrives immediately on connect.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var first Snapshot
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, 0, first.Step)

	s.Publish(Snapshot{
		Episode:  1,
		Step:     1,
		Action:   "down",
		Position: grid.Position{Row: 1, Col: 0},
		Path:     []grid.Position{{Row: 0, Col: 0}, {Row: 1, Col: 0}},
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var second Snapshot
	require.NoError(t, conn.ReadJSON(&second))
	assert.Equal(t, 1, second.Step)
	assert.Equal(t, "down", second.Action)
}

func TestWaitReady(t *testing.T) {
	_, ts := testServer(t)

	ready := NewClient(ts.URL)
	assert.NoError(t, ready.WaitReady(2*time.Second))

	dead := NewClient("http://127.0.0.1:1")
	assert.Error(t, dead.WaitReady(300*time.Millisecond))
}
