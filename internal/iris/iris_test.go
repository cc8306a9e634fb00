package iris

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func TestClientSendMessageAndConfig(t *testing.T) {
	var reply ReplyRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/reply":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&reply))
			w.WriteHeader(http.StatusOK)
		case "/config":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"port":3000,"pollingSpeed":100,"messageRate":50,"webserverEndpoint":"http://bot"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := NewClient(srv.URL+"/", nil)
	require.NoError(t, client.SendMessage(context.Background(), "room-1", "1: A"))
	require.Equal(t, ReplyRequest{Type: "text", Room: "room-1", Data: "1: A"}, reply)

	cfg, err := client.GetConfig(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3000, cfg.Port)
	require.True(t, client.Ping(context.Background()))
}

func TestClientErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := NewClient(srv.URL, nil).SendMessage(context.Background(), "room", "hi")
	require.Error(t, err)
	require.Contains(t, err.Error(), "Iris API error")
}

func TestMessageText(t *testing.T) {
	sender := "taro"
	m := &Message{Room: "r", Sender: &sender, JSON: &MessageJSON{Message: " ヘルプ ", ChatID: "123"}}
	require.Equal(t, "ヘルプ", m.Text())
	require.Equal(t, "taro", m.SenderName())
	require.Equal(t, "123", m.ChatID())

	var nilMsg *Message
	require.Empty(t, nilMsg.Text())
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestWebSocketDeliversFilteredMessages(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`not json`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"msg":"","room":"競馬部"}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"msg":"!ヘルプ","room":"雑談"}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"msg":"京都,05,06,11","room":"競馬部"}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"msg":"!京都,05,06,11","room":"雑談","json":{"chat_id":"42"}}`))
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	filter := Filter{Rooms: []string{"競馬部", "42"}, Prefix: "!"}
	ws := NewWebSocket(wsURL(srv), filter, nil).WithReconnect(0, time.Millisecond)
	received := make(chan *Message, 4)
	ws.OnMessage(func(m *Message) { received <- m })

	require.NoError(t, ws.Connect(context.Background()))
	defer func() { _ = ws.Disconnect() }()

	select {
	case m := <-received:
		require.Equal(t, "!京都,05,06,11", m.Text())
		require.Equal(t, "42", m.ChatID())
	case <-time.After(2 * time.Second):
		t.Fatal("no message delivered")
	}
	require.Empty(t, received)
}

func TestWebSocketRedialsDroppedSession(t *testing.T) {
	var dials atomic.Int32
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()
		if dials.Add(1) == 1 {
			return
		}
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"msg":"ヘルプ","room":"r"}`))
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	ws := NewWebSocket(wsURL(srv), Filter{}, nil).WithReconnect(3, 10*time.Millisecond)
	received := make(chan *Message, 1)
	ws.OnMessage(func(m *Message) { received <- m })

	require.NoError(t, ws.Connect(context.Background()))
	defer func() { _ = ws.Disconnect() }()

	select {
	case m := <-received:
		require.Equal(t, "ヘルプ", m.Text())
	case <-time.After(2 * time.Second):
		t.Fatal("no message after redial")
	}
	require.Equal(t, int32(2), dials.Load())
}

func TestWebSocketFailsWhenBudgetSpent(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		_ = conn.Close()
	}))

	ws := NewWebSocket(wsURL(srv), Filter{}, nil).WithReconnect(1, 10*time.Millisecond)
	failed := make(chan struct{})
	var once sync.Once
	stop := ws.OnStateChange(func(s WebSocketState) {
		if s == WSStateFailed {
			once.Do(func() { close(failed) })
		}
	})
	defer stop()

	require.NoError(t, ws.Connect(context.Background()))
	srv.Close()

	select {
	case <-failed:
	case <-time.After(2 * time.Second):
		t.Fatal("state never reached FAILED")
	}
	require.NoError(t, ws.Disconnect())
}

func TestWebSocketConnectError(t *testing.T) {
	ws := NewWebSocket("ws://127.0.0.1:1/ws", Filter{}, nil)
	require.Error(t, ws.Connect(context.Background()))
	require.NoError(t, ws.Disconnect())
}
