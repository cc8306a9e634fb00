package iris

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/annko/keiba-bot-go/internal/constants"
	"github.com/annko/keiba-bot-go/internal/util"
)

const (
	handshakeTimeout = 10 * time.Second
	stopTimeout      = 5 * time.Second
)

type MessageCallback func(message *Message)

type StateCallback func(state WebSocketState)

// Filter decides which KakaoTalk messages reach the bot. Rooms limits delivery to
// the listed chat ids or room names (all rooms when empty); Prefix drops messages
// that do not start with it.
type Filter struct {
	Rooms  []string
	Prefix string
}

func (f Filter) allows(m *Message) bool {
	if f.Prefix != "" && !strings.HasPrefix(m.Text(), f.Prefix) {
		return false
	}
	if len(f.Rooms) == 0 {
		return true
	}
	return util.Contains(f.Rooms, m.ChatID()) || util.Contains(f.Rooms, m.Room)
}

type subscription[T any] struct {
	id int
	fn func(T)
}

type subscribers[T any] struct {
	mu      sync.RWMutex
	next    int
	entries []subscription[T]
}

func (s *subscribers[T]) add(fn func(T)) func() {
	s.mu.Lock()
	s.next++
	id := s.next
	s.entries = append(s.entries, subscription[T]{id: id, fn: fn})
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, e := range s.entries {
			if e.id == id {
				s.entries = append(s.entries[:i], s.entries[i+1:]...)
				return
			}
		}
	}
}

func (s *subscribers[T]) notify(v T) {
	s.mu.RLock()
	entries := make([]subscription[T], len(s.entries))
	copy(entries, s.entries)
	s.mu.RUnlock()

	for _, e := range entries {
		e.fn(v)
	}
}

// WebSocket receives chat messages pushed by the Iris bridge. The first dial must
// succeed; a dropped session is redialed with capped exponential backoff until the
// attempt budget is spent, after which the state becomes FAILED.
type WebSocket struct {
	url       string
	filter    Filter
	attempts  int
	baseDelay time.Duration
	maxDelay  time.Duration
	logger    *zap.Logger

	messages subscribers[*Message]
	states   subscribers[WebSocketState]

	mu     sync.Mutex
	state  WebSocketState
	cancel context.CancelFunc
	done   chan struct{}
}

func NewWebSocket(wsURL string, filter Filter, logger *zap.Logger) *WebSocket {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebSocket{
		url:       wsURL,
		filter:    filter,
		attempts:  constants.WebSocketConfig.MaxReconnectAttempts,
		baseDelay: constants.WebSocketConfig.ReconnectDelay,
		maxDelay:  constants.WebSocketConfig.MaxReconnectDelay,
		logger:    logger,
		state:     WSStateDisconnected,
	}
}

// WithReconnect overrides the redial budget and the first backoff delay.
func (ws *WebSocket) WithReconnect(attempts int, delay time.Duration) *WebSocket {
	ws.attempts = attempts
	ws.baseDelay = delay
	if ws.maxDelay < delay {
		ws.maxDelay = delay
	}
	return ws
}

// OnMessage registers a handler for filtered messages; the returned func removes it.
func (ws *WebSocket) OnMessage(callback MessageCallback) func() {
	return ws.messages.add(callback)
}

func (ws *WebSocket) OnStateChange(callback StateCallback) func() {
	return ws.states.add(callback)
}

// Connect dials Iris and starts the read loop, which lives until ctx ends or
// Disconnect is called.
func (ws *WebSocket) Connect(ctx context.Context) error {
	ws.mu.Lock()
	if ws.cancel != nil {
		ws.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	ws.cancel, ws.done = cancel, done
	ws.mu.Unlock()

	ws.setState(WSStateConnecting)
	conn, err := ws.dial(runCtx)
	if err != nil {
		ws.setState(WSStateFailed)
		ws.mu.Lock()
		ws.cancel = nil
		ws.mu.Unlock()
		close(done)
		cancel()
		return fmt.Errorf("dial iris websocket: %w", err)
	}

	ws.setState(WSStateConnected)
	ws.logger.Info("Iris websocket connected", zap.String("url", ws.url))
	go ws.run(runCtx, conn, done)
	return nil
}

func (ws *WebSocket) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = handshakeTimeout
	conn, _, err := dialer.DialContext(ctx, ws.url, nil)
	return conn, err
}

func (ws *WebSocket) run(ctx context.Context, conn *websocket.Conn, done chan struct{}) {
	defer close(done)

	for conn != nil {
		err := ws.read(ctx, conn)
		if ctx.Err() != nil {
			return
		}
		ws.logger.Warn("Iris websocket dropped", zap.Error(err))
		conn = ws.redial(ctx)
	}
	if ctx.Err() == nil {
		ws.logger.Error("Iris websocket reconnect budget spent", zap.Int("attempts", ws.attempts))
		ws.setState(WSStateFailed)
	}
}

// read blocks on conn until it fails or ctx ends; the conn is closed either way.
func (ws *WebSocket) read(ctx context.Context, conn *websocket.Conn) error {
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer func() {
		stop()
		_ = conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		ws.deliver(data)
	}
}

func (ws *WebSocket) redial(ctx context.Context) *websocket.Conn {
	delay := ws.baseDelay
	for attempt := 1; attempt <= ws.attempts; attempt++ {
		ws.setState(WSStateReconnecting)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}

		conn, err := ws.dial(ctx)
		if err == nil {
			ws.setState(WSStateConnected)
			ws.logger.Info("Iris websocket reconnected", zap.Int("attempt", attempt))
			return conn
		}
		ws.logger.Warn("Iris redial failed",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		delay = min(delay*2, ws.maxDelay)
	}
	return nil
}

func (ws *WebSocket) deliver(data []byte) {
	var message Message
	if err := json.Unmarshal(data, &message); err != nil {
		ws.logger.Warn("Undecodable Iris frame",
			zap.Error(err),
			zap.String("data", util.TruncateString(string(data), 200)),
		)
		return
	}
	if message.Text() == "" {
		return
	}
	if !ws.filter.allows(&message) {
		ws.logger.Debug("Iris message filtered", zap.String("room", message.Room))
		return
	}
	ws.messages.notify(&message)
}

func (ws *WebSocket) setState(state WebSocketState) {
	ws.mu.Lock()
	prev := ws.state
	ws.state = state
	ws.mu.Unlock()

	if prev == state {
		return
	}
	ws.logger.Debug("Iris websocket state", zap.String("from", prev.String()), zap.String("to", state.String()))
	ws.states.notify(state)
}

// Disconnect stops the read loop and waits for it to exit.
func (ws *WebSocket) Disconnect() error {
	ws.mu.Lock()
	cancel, done := ws.cancel, ws.done
	ws.cancel = nil
	ws.mu.Unlock()
	if cancel == nil {
		return nil
	}

	cancel()
	defer ws.setState(WSStateDisconnected)
	select {
	case <-done:
		return nil
	case <-time.After(stopTimeout):
		return fmt.Errorf("iris listener did not stop within %s", stopTimeout)
	}
}
