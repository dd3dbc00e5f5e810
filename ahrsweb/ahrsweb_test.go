package ahrsweb

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yin1008/paparazzi/ahrs"
	"github.com/yin1008/paparazzi/fixed"
	"github.com/yin1008/paparazzi/sim"
)

func startRoom(t *testing.T) (*Room, string) {
	t.Helper()
	r := NewRoom()
	ctx, cancel := context.WithCancel(context.Background())
	go r.Run(ctx)
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return r, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, u string) *websocket.Conn {
	t.Helper()
	c, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func waitClients(t *testing.T, r *Room, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return r.Len() == n }, 2*time.Second, 5*time.Millisecond)
}

func readData(t *testing.T, c *websocket.Conn) AttitudeData {
	t.Helper()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := c.ReadMessage()
	require.NoError(t, err)
	var d AttitudeData
	require.NoError(t, json.Unmarshal(msg, &d))
	return d
}

func TestPublisherToViewer(t *testing.T) {
	r, u := startRoom(t)
	viewer := dial(t, u)
	p, err := NewPublisher(u)
	require.NoError(t, err)
	defer p.Close()
	waitClients(t, r, 2)

	want := AttitudeData{T: 1.5, Status: "running", Aligned: true, Roll: 10, Pitch: -2, Heading: 179}
	require.NoError(t, p.Send(&want))
	assert.Equal(t, want, readData(t, viewer))
}

func TestBroadcast(t *testing.T) {
	r, u := startRoom(t)
	a, b := dial(t, u), dial(t, u)
	waitClients(t, r, 2)

	require.True(t, r.Broadcast([]byte(`{"T":3}`)))
	assert.Equal(t, 3.0, readData(t, a).T)
	assert.Equal(t, 3.0, readData(t, b).T)
}

func TestClientLeaves(t *testing.T) {
	r, u := startRoom(t)
	c := dial(t, u)
	waitClients(t, r, 1)
	c.Close()
	waitClients(t, r, 0)
}

func TestSlowClientMissesMessages(t *testing.T) {
	r := NewRoom()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	// a viewer that never drains its buffer
	stuck := &client{send: make(chan []byte, 1), room: r}
	r.join <- stuck
	for i := 0; i < 5; i++ {
		require.True(t, r.Broadcast([]byte(`{"T":1}`)))
	}
	assert.Equal(t, 1, r.Len())
	assert.Len(t, stuck.send, 1)
}

func TestRoomStops(t *testing.T) {
	r := NewRoom()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()
	cancel()
	<-done
	assert.False(t, r.Broadcast([]byte("late")))
}

func TestPublisherObserve(t *testing.T) {
	r, u := startRoom(t)
	viewer := dial(t, u)
	p, err := NewPublisher(u)
	require.NoError(t, err)
	defer p.Close()
	waitClients(t, r, 2)

	f, err := ahrs.New(ahrs.DefaultConfig())
	require.NoError(t, err)
	f.Align(fixed.RatesOfReal(0.01, 0, 0), fixed.AccelOfRealVect(0, 0, -9.81), fixed.MagOfRealVect(0.5, 0, 0.8))
	p.Filter = f
	p.Every = 2

	s := sim.Sample{
		T:        2,
		True:     [3]float64{0.1, 0, 0},
		Estimate: [3]float64{0.1, 0, 0},
		Reading: sim.Reading{
			Gyro:  fixed.RatesOfReal(0, 0, 0.1),
			Accel: fixed.AccelOfRealVect(0, 0, -9.81),
		},
	}
	require.NoError(t, p.Observe(s))
	s.T = 3
	require.NoError(t, p.Observe(s)) // skipped
	s.T = 4
	require.NoError(t, p.Observe(s))

	d := readData(t, viewer)
	assert.Equal(t, 2.0, d.T)
	assert.True(t, d.TrueValid)
	assert.InDelta(t, 0.1/ahrs.Deg, d.TrueRoll, 1e-9)
	assert.Equal(t, "running", d.Status)
	assert.InDelta(t, 0.01/ahrs.Deg, d.D1, 0.01)
	assert.InDelta(t, 0.1/ahrs.Deg, d.B3, 0.01)
	assert.InDelta(t, -9.81, d.A3, 1e-3)

	assert.Equal(t, 4.0, readData(t, viewer).T)
}

func TestNewPublisherError(t *testing.T) {
	_, err := NewPublisher("ws://127.0.0.1:1/ahrsweb")
	assert.Error(t, err)
}

func TestDefaultURL(t *testing.T) {
	assert.Equal(t, "ws://localhost:8000/ahrsweb", DefaultURL())
}
