package websocket

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dataviewer2d/dataviewer/internal/config"
	"github.com/dataviewer2d/dataviewer/internal/storage"
	"github.com/dataviewer2d/dataviewer/pkg/scene"
)

// Compile-time interface check.
var _ storage.Backend = (*Backend)(nil)

var discard = slog.New(slog.DiscardHandler)

// testServer creates an httptest server that upgrades to WebSocket, records received
// messages and acks start_dataset/end_dataset when ack is true.
func testServer(t *testing.T, ack bool) (*httptest.Server, *messageLog) {
	t.Helper()
	ml := &messageLog{}

	upgrader := ws.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ml.setSecret(r.URL.Query().Get("secret"))
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer c.Close()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				return
			}

			var env Envelope
			if err := json.Unmarshal(msg, &env); err != nil {
				continue
			}
			ml.add(env)

			if ack && (env.Type == TypeStartDataset || env.Type == TypeEndDataset) {
				data, _ := json.Marshal(AckMessage{Type: "ack", For: env.Type})
				if err := c.WriteMessage(ws.TextMessage, data); err != nil {
					return
				}
			}
		}
	}))
	t.Cleanup(srv.Close)

	return srv, ml
}

type messageLog struct {
	mu       sync.Mutex
	messages []Envelope
	secret   string
}

func (m *messageLog) add(env Envelope) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, env)
}

func (m *messageLog) setSecret(s string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.secret = s
}

func (m *messageLog) all() []Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]Envelope, len(m.messages))
	copy(cp, m.messages)
	return cp
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func ptr[T any](v T) *T { return &v }

func newBackend(t *testing.T, cfg config.WebSocketConfig) *Backend {
	t.Helper()
	b, err := New(cfg, "run", discard)
	require.NoError(t, err)
	return b
}

func TestNew_RequiresURL(t *testing.T) {
	_, err := New(config.WebSocketConfig{}, "run", discard)
	assert.ErrorContains(t, err, "storage.websocket.url")
}

func TestStreamDataset(t *testing.T) {
	srv, ml := testServer(t, true)

	b := newBackend(t, config.WebSocketConfig{URL: wsURL(srv), Secret: "s3cret"})
	require.NoError(t, b.Init())

	line := scene.Shape{Kind: scene.KindLine, Point1: &scene.Point{X: 0, Y: 0}, Point2: &scene.Point{X: 1, Y: 1}}
	circle := scene.Shape{Kind: scene.KindCircle, Center: &scene.Point{X: 5, Y: 5}, Radius: ptr(2.0)}
	require.NoError(t, b.AppendFrame(0, scene.Scene{line, circle}))
	require.NoError(t, b.AppendFrame(1, nil))
	require.NoError(t, b.AppendFrame(3, scene.Scene{line}))
	require.NoError(t, b.Close())

	assert.Equal(t, storage.Summary{Frames: 3, Shapes: 3}, b.Summary())

	msgs := ml.all()
	require.Len(t, msgs, 5)
	assert.Equal(t, TypeStartDataset, msgs[0].Type)
	assert.Equal(t, TypeEndDataset, msgs[4].Type)

	var start StartDatasetPayload
	require.NoError(t, json.Unmarshal(msgs[0].Payload, &start))
	assert.Equal(t, "run", start.Name)

	var first FramePayload
	require.NoError(t, json.Unmarshal(msgs[1].Payload, &first))
	assert.Equal(t, 0, first.Frame)
	require.Len(t, first.Drawings, 2)
	assert.Equal(t, scene.KindCircle, first.Drawings[1].Kind)
	assert.Equal(t, 2.0, *first.Drawings[1].Radius)

	assert.JSONEq(t, `{"frame":1,"drawings":[]}`, string(msgs[2].Payload))

	var last FramePayload
	require.NoError(t, json.Unmarshal(msgs[3].Payload, &last))
	assert.Equal(t, 3, last.Frame)

	var end EndDatasetPayload
	require.NoError(t, json.Unmarshal(msgs[4].Payload, &end))
	assert.Equal(t, EndDatasetPayload{Frames: 3, Shapes: 3}, end)

	ml.mu.Lock()
	assert.Equal(t, "s3cret", ml.secret)
	ml.mu.Unlock()
}

func TestAppendFrame_Order(t *testing.T) {
	srv, _ := testServer(t, true)

	b := newBackend(t, config.WebSocketConfig{URL: wsURL(srv)})
	require.NoError(t, b.Init())
	defer b.Close()

	require.NoError(t, b.AppendFrame(2, nil))
	assert.ErrorIs(t, b.AppendFrame(1, nil), storage.ErrFrameOrder)
}

func TestAppendFrame_AfterClose(t *testing.T) {
	srv, _ := testServer(t, true)

	b := newBackend(t, config.WebSocketConfig{URL: wsURL(srv)})
	require.NoError(t, b.Init())
	require.NoError(t, b.Close())
	require.NoError(t, b.Close())

	assert.ErrorIs(t, b.AppendFrame(0, nil), storage.ErrClosed)
}

func TestAppendFrame_NotInitialized(t *testing.T) {
	b := newBackend(t, config.WebSocketConfig{URL: "ws://127.0.0.1:1/ingest"})
	assert.ErrorContains(t, b.AppendFrame(0, nil), "not initialized")
	assert.NoError(t, b.Close())
}

func TestInit_DialError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	b := newBackend(t, config.WebSocketConfig{URL: wsURL(srv)})
	assert.ErrorContains(t, b.Init(), "websocket dial failed")
}

func TestInit_AckTimeout(t *testing.T) {
	srv, ml := testServer(t, false)

	b := newBackend(t, config.WebSocketConfig{URL: wsURL(srv), AckTimeout: 100 * time.Millisecond})
	err := b.Init()
	assert.ErrorContains(t, err, `timeout waiting for ack of "start_dataset"`)

	assert.Eventually(t, func() bool { return len(ml.all()) == 1 }, time.Second, 10*time.Millisecond)
	assert.NoError(t, b.Close())
}

func TestMarshalEnvelope(t *testing.T) {
	data, err := marshalEnvelope(TypeEndDataset, EndDatasetPayload{Frames: 2, Shapes: 5})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"end_dataset","payload":{"frames":2,"shapes":5}}`, string(data))
}

func TestNew_InvalidURL(t *testing.T) {
	_, err := New(config.WebSocketConfig{URL: "ws://[::1"}, "run", discard)
	assert.ErrorContains(t, err, "invalid websocket URL")
}

func TestEndpointURL(t *testing.T) {
	got, err := endpointURL("ws://viewer:5000/ingest?v=2", "a b")
	require.NoError(t, err)
	assert.Equal(t, "ws://viewer:5000/ingest?secret=a+b&v=2", got)

	got, err = endpointURL("ws://viewer:5000/ingest", "")
	require.NoError(t, err)
	assert.Equal(t, "ws://viewer:5000/ingest", got)
}

func TestStream_RedialReplaysStart(t *testing.T) {
	ml := &messageLog{}
	var (
		mu    sync.Mutex
		conns int
	)
	upgrader := ws.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		mu.Lock()
		conns++
		first := conns == 1
		mu.Unlock()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				return
			}
			var env Envelope
			if err := json.Unmarshal(msg, &env); err != nil {
				continue
			}
			ml.add(env)
			if env.Type == TypeStartDataset || env.Type == TypeEndDataset {
				data, _ := json.Marshal(AckMessage{Type: "ack", For: env.Type})
				if err := c.WriteMessage(ws.TextMessage, data); err != nil {
					return
				}
			}
			if first {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	b := newBackend(t, config.WebSocketConfig{URL: wsURL(srv)})
	require.NoError(t, b.Init())

	starts := func() int {
		n := 0
		for _, m := range ml.all() {
			if m.Type == TypeStartDataset {
				n++
			}
		}
		return n
	}
	require.Eventually(t, func() bool { return starts() == 2 }, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, b.AppendFrame(0, nil))
	require.NoError(t, b.Close())

	msgs := ml.all()
	require.Len(t, msgs, 4)
	assert.Equal(t, []string{TypeStartDataset, TypeStartDataset, TypeFrame, TypeEndDataset},
		[]string{msgs[0].Type, msgs[1].Type, msgs[2].Type, msgs[3].Type})
}
