package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gorilla/websocket"

	"github.com/curatewatch/engine/internal/store"
)

// Reconnection and heartbeat settings.
const (
	InitialBackoff = 1 * time.Second
	MaxBackoff     = 60 * time.Second
	BackoffFactor  = 2.0
	JitterPercent  = 0.2

	// Blocks arrive every few seconds on every chain we watch, so a minute of
	// silence means the subscription is dead.
	HeartbeatTimeout = 60 * time.Second
	PongTimeout      = 10 * time.Second

	WriteTimeout = 10 * time.Second
)

// HeadListener subscribes to newHeads over the RPC websocket and emits each
// block head.
type HeadListener struct {
	url       string
	headChan  chan<- store.Head
	status    func(string)
	conn      *websocket.Conn
	connMu    sync.Mutex
	backoff   time.Duration
	lastMsg   time.Time
	lastMsgMu sync.RWMutex
	stopChan  chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

// NewHeadListener creates a listener for the websocket endpoint url. status,
// when non-nil, is called with "connected", "reconnecting" or "disconnected".
func NewHeadListener(url string, headChan chan<- store.Head, status func(string)) *HeadListener {
	return &HeadListener{
		url:      url,
		headChan: headChan,
		status:   status,
		backoff:  InitialBackoff,
		stopChan: make(chan struct{}),
	}
}

// Start begins listening with automatic reconnection.
func (l *HeadListener) Start(ctx context.Context) {
	l.wg.Add(1)
	go l.runLoop(ctx)

	l.wg.Add(1)
	go l.heartbeatMonitor(ctx)
}

// Stop shuts the listener down and waits for its goroutines.
func (l *HeadListener) Stop() {
	l.stopOnce.Do(func() { close(l.stopChan) })
	l.closeConnection()
	l.wg.Wait()
}

func (l *HeadListener) runLoop(ctx context.Context) {
	defer l.wg.Done()

	for {
		select {
		case <-ctx.Done():
			slog.Info("ws_loop_stopping", "reason", "context cancelled")
			return
		case <-l.stopChan:
			slog.Info("ws_loop_stopping", "reason", "stop signal")
			return
		default:
		}

		if err := l.connect(ctx); err != nil {
			slog.Error("ws_connect_failed", "error", err, "backoff", l.backoff)
			l.setStatus("reconnecting")
			l.waitBackoff(ctx)
			continue
		}

		if err := l.readLoop(ctx); err != nil {
			slog.Warn("ws_read_error", "error", err)
		}

		l.closeConnection()

		select {
		case <-ctx.Done():
			return
		case <-l.stopChan:
			return
		default:
			l.setStatus("reconnecting")
			l.waitBackoff(ctx)
		}
	}
}

// connect dials the endpoint and sends the newHeads subscription.
func (l *HeadListener) connect(ctx context.Context) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, resp, err := dialer.DialContext(ctx, l.url, nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial failed with status %d: %w", resp.StatusCode, err)
		}
		return fmt.Errorf("dial failed: %w", err)
	}

	l.connMu.Lock()
	l.conn = conn
	l.connMu.Unlock()

	l.backoff = InitialBackoff

	if err := l.subscribe(); err != nil {
		return fmt.Errorf("subscribe failed: %w", err)
	}

	slog.Info("ws_connected")
	l.setStatus("connected")
	l.updateLastMsg()
	return nil
}

func (l *HeadListener) subscribe() error {
	l.connMu.Lock()
	defer l.connMu.Unlock()

	if l.conn == nil {
		return fmt.Errorf("connection is nil")
	}

	l.conn.SetWriteDeadline(time.Now().Add(WriteTimeout))
	if err := l.conn.WriteJSON(NewSubscribeRequest(1)); err != nil {
		return fmt.Errorf("failed to send subscribe message: %w", err)
	}
	return nil
}

func (l *HeadListener) readLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.stopChan:
			return nil
		default:
		}

		l.connMu.Lock()
		conn := l.conn
		l.connMu.Unlock()

		if conn == nil {
			return fmt.Errorf("connection is nil")
		}

		conn.SetReadDeadline(time.Now().Add(HeartbeatTimeout + PongTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read error: %w", err)
		}

		l.updateLastMsg()
		l.handleMessage(message)
	}
}

func (l *HeadListener) handleMessage(data []byte) {
	head, ok, err := ParseHeadMessage(data)
	if err != nil {
		slog.Debug("ws_parse_error", "error", err, "raw", truncate(string(data), 200))
		return
	}
	if !ok {
		return
	}

	select {
	case l.headChan <- head:
		slog.Debug("head_received", "number", head.Number, "timestamp", head.Timestamp)
	default:
		slog.Warn("head_channel_full", "dropped_head", head.Number)
	}
}

func (l *HeadListener) heartbeatMonitor(ctx context.Context) {
	defer l.wg.Done()

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-l.stopChan:
			return
		case <-ticker.C:
			l.checkHeartbeat()
		}
	}
}

func (l *HeadListener) checkHeartbeat() {
	l.lastMsgMu.RLock()
	lastMsg := l.lastMsg
	l.lastMsgMu.RUnlock()

	if lastMsg.IsZero() {
		return
	}

	elapsed := time.Since(lastMsg)
	if elapsed > HeartbeatTimeout {
		slog.Warn("ws_heartbeat_timeout", "elapsed", elapsed)

		l.connMu.Lock()
		conn := l.conn
		l.connMu.Unlock()

		if conn != nil {
			conn.SetWriteDeadline(time.Now().Add(WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				slog.Warn("ws_ping_failed", "error", err)
				l.closeConnection()
			}
		}
	}
}

func (l *HeadListener) updateLastMsg() {
	l.lastMsgMu.Lock()
	l.lastMsg = time.Now()
	l.lastMsgMu.Unlock()
}

func (l *HeadListener) closeConnection() {
	l.connMu.Lock()
	defer l.connMu.Unlock()

	if l.conn != nil {
		l.conn.Close()
		l.conn = nil
		slog.Info("ws_disconnected")
		l.setStatus("disconnected")
	}
}

func (l *HeadListener) setStatus(s string) {
	if l.status != nil {
		l.status(s)
	}
}

// waitBackoff waits for the backoff duration with jitter, then grows it.
func (l *HeadListener) waitBackoff(ctx context.Context) {
	jitter := time.Duration(float64(l.backoff) * JitterPercent * (rand.Float64()*2 - 1))
	wait := l.backoff + jitter

	slog.Debug("ws_waiting_backoff", "duration", wait)

	select {
	case <-ctx.Done():
	case <-l.stopChan:
	case <-time.After(wait):
	}

	l.backoff = time.Duration(float64(l.backoff) * BackoffFactor)
	if l.backoff > MaxBackoff {
		l.backoff = MaxBackoff
	}
}

// SubscribeRequest is a JSON-RPC eth_subscribe call.
type SubscribeRequest struct {
	JSONRPC string   `json:"jsonrpc"`
	ID      int      `json:"id"`
	Method  string   `json:"method"`
	Params  []string `json:"params"`
}

// NewSubscribeRequest builds the newHeads subscription.
func NewSubscribeRequest(id int) *SubscribeRequest {
	return &SubscribeRequest{
		JSONRPC: "2.0",
		ID:      id,
		Method:  "eth_subscribe",
		Params:  []string{"newHeads"},
	}
}

type rpcMessage struct {
	ID     *int            `json:"id"`
	Method string          `json:"method"`
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Params *struct {
		Subscription string `json:"subscription"`
		Result       struct {
			Number    string `json:"number"`
			Timestamp string `json:"timestamp"`
		} `json:"result"`
	} `json:"params"`
}

// ParseHeadMessage decodes a websocket frame. ok is true only for a
// newHeads notification; subscription acknowledgements return ok false.
func ParseHeadMessage(data []byte) (head store.Head, ok bool, err error) {
	var msg rpcMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return store.Head{}, false, fmt.Errorf("failed to unmarshal message: %w", err)
	}

	if msg.Error != nil {
		return store.Head{}, false, fmt.Errorf("rpc error %d: %s", msg.Error.Code, msg.Error.Message)
	}
	if msg.Method != "eth_subscription" || msg.Params == nil {
		return store.Head{}, false, nil
	}

	number, err := hexutil.DecodeUint64(msg.Params.Result.Number)
	if err != nil {
		return store.Head{}, false, fmt.Errorf("head number: %w", err)
	}
	ts, err := hexutil.DecodeUint64(msg.Params.Result.Timestamp)
	if err != nil {
		return store.Head{}, false, fmt.Errorf("head timestamp: %w", err)
	}

	return store.Head{Number: number, Timestamp: int64(ts)}, true, nil
}
