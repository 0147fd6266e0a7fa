package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/djangbahevans/RainflowCycleCounting/internal/config"
	"github.com/djangbahevans/RainflowCycleCounting/internal/shared/testutil"
)

// mockConnection records writes and blocks reads until closed
type mockConnection struct {
	mu       sync.Mutex
	written  [][]byte
	types    []int
	closed   chan struct{}
	once     sync.Once
	writeErr error
}

func newMockConnection() *mockConnection {
	return &mockConnection{closed: make(chan struct{})}
}

func (m *mockConnection) WriteMessage(messageType int, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	m.types = append(m.types, messageType)
	m.written = append(m.written, append([]byte(nil), data...))
	return nil
}

func (m *mockConnection) ReadMessage() (int, []byte, error) {
	<-m.closed
	return 0, nil, &websocket.CloseError{Code: websocket.CloseNormalClosure}
}

func (m *mockConnection) Close() error {
	m.once.Do(func() { close(m.closed) })
	return nil
}

func (m *mockConnection) SetReadDeadline(time.Time) error { return nil }
func (m *mockConnection) SetWriteDeadline(time.Time) error { return nil }
func (m *mockConnection) SetReadLimit(int64) {}
func (m *mockConnection) SetPongHandler(func(string) error) {}

func (m *mockConnection) messages() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, 0, len(m.written))
	for i, data := range m.written {
		if m.types[i] == websocket.TextMessage {
			out = append(out, data)
		}
	}
	return out
}

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	hub := NewHub(logger, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-hub.Done()
	})
	return hub, cancel
}

func testTiming() Timing {
	return Timing{PingPeriod: time.Hour, PongWait: 2 * time.Hour}
}

func TestHubRegisterGreetsClient(t *testing.T) {
	hub, _ := startHub(t)
	conn := newMockConnection()
	client := NewClient(hub, conn, "127.0.0.1:1", "trace-1", testTiming(), nil)

	require.NoError(t, hub.Register(client))
	go client.WritePump()

	require.Eventually(t, func() bool { return len(conn.messages()) == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, hub.ClientCount())

	var event Event
	require.NoError(t, json.Unmarshal(conn.messages()[0], &event))
	assert.Equal(t, TypeConnection, event.Type)
	assert.Equal(t, "trace-1", event.TraceID)
}

func TestHubPublishBroadcasts(t *testing.T) {
	hub, _ := startHub(t)

	conns := []*mockConnection{newMockConnection(), newMockConnection()}
	for _, conn := range conns {
		client := NewClient(hub, conn, "", "", testTiming(), nil)
		require.NoError(t, hub.Register(client))
		go client.WritePump()
	}

	hub.Publish(context.Background(), Event{
		Type:       TypeAnalysisCompleted,
		AnalysisID: "a-1",
		Data:       map[string]int{"half_cycles": 8},
	})

	for _, conn := range conns {
		require.Eventually(t, func() bool { return len(conn.messages()) == 2 }, time.Second, 10*time.Millisecond)
		var event Event
		require.NoError(t, json.Unmarshal(conn.messages()[1], &event))
		assert.Equal(t, TypeAnalysisCompleted, event.Type)
		assert.Equal(t, "a-1", event.AnalysisID)
		assert.False(t, event.Timestamp.IsZero())
	}
}

func TestHubUnregister(t *testing.T) {
	hub, _ := startHub(t)
	conn := newMockConnection()
	client := NewClient(hub, conn, "", "", testTiming(), nil)
	require.NoError(t, hub.Register(client))

	go client.ReadPump()
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	_ = conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 10*time.Millisecond)
}

func TestHubStopped(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	hub := NewHub(logger, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	conn := newMockConnection()
	client := NewClient(hub, conn, "", "", testTiming(), nil)
	require.NoError(t, hub.Register(client))

	cancel()
	<-hub.Done()

	// send channel is closed on shutdown
	_, open := <-drain(client.send)
	assert.False(t, open)

	assert.ErrorIs(t, hub.Register(NewClient(hub, newMockConnection(), "", "", testTiming(), nil)), ErrHubStopped)
	hub.Unregister(client)
	hub.Publish(context.Background(), Event{Type: TypeAnalysisStarted})
}

// drain discards buffered messages and returns the channel for a final receive
func drain(ch chan []byte) chan []byte {
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				closed := make(chan []byte)
				close(closed)
				return closed
			}
		default:
			return ch
		}
	}
}

func TestWritePumpStopsOnWriteError(t *testing.T) {
	hub, _ := startHub(t)
	conn := newMockConnection()
	conn.writeErr = errors.New("broken pipe")
	client := NewClient(hub, conn, "", "", testTiming(), nil)
	require.NoError(t, hub.Register(client))

	done := make(chan struct{})
	go func() {
		client.WritePump()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("WritePump did not return")
	}
}

func TestTimingFrom(t *testing.T) {
	timing := TimingFrom(config.WebSocketConfig{})
	assert.Equal(t, config.DefaultWSPongWait, timing.PongWait)
	assert.Equal(t, config.DefaultWSPongWait*9/10, timing.PingPeriod)

	timing = TimingFrom(config.WebSocketConfig{PingPeriod: 5 * time.Second, PongWait: 10 * time.Second})
	assert.Equal(t, 5*time.Second, timing.PingPeriod)

	// ping period must stay under pong wait
	timing = TimingFrom(config.WebSocketConfig{PingPeriod: 20 * time.Second, PongWait: 10 * time.Second})
	assert.Equal(t, 9*time.Second, timing.PingPeriod)
}

func TestHandlerEndToEnd(t *testing.T) {
	hub, _ := startHub(t)
	logger, _ := testutil.NewTestLogger(t)

	server := httptest.NewServer(Handler(hub, config.WebSocketConfig{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}, logger))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var greeting Event
	require.NoError(t, conn.ReadJSON(&greeting))
	assert.Equal(t, TypeConnection, greeting.Type)

	hub.Publish(context.Background(), Event{Type: TypeAnalysisFailed, AnalysisID: "a-2"})

	var event Event
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, TypeAnalysisFailed, event.Type)
	assert.Equal(t, "a-2", event.AnalysisID)
}

func TestHandlerRejectsPlainHTTP(t *testing.T) {
	hub, _ := startHub(t)
	logger, _ := testutil.NewTestLogger(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/ws/analyses", nil)
	Handler(hub, config.WebSocketConfig{}, logger).ServeHTTP(rec, req)

	assert.Equal(t, 400, rec.Code)
	assert.Equal(t, 0, hub.ClientCount())
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	p.Publish(context.Background(), Event{Type: TypeAnalysisStarted})
}
