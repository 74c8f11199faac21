package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"vexoj/pkg/utils/logger"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 50 * time.Second

	sendBufferSize = 256
	maxMessageSize = 1 << 20
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Sender delivers envelopes to a connected client. Send never blocks;
// it drops the connection instead when the client cannot keep up.
type Sender interface {
	Send(env Envelope)
	Close()
}

// Conn wraps a WebSocket connection with a buffered outbound queue, a
// keepalive write loop, and a read loop that feeds a handler.
type Conn struct {
	ws   *websocket.Conn
	send chan []byte

	done      chan struct{}
	closeOnce sync.Once
}

// Upgrade upgrades an HTTP request and starts the write loop.
func Upgrade(w http.ResponseWriter, r *http.Request) (*Conn, error) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	c := &Conn{
		ws:   ws,
		send: make(chan []byte, sendBufferSize),
		done: make(chan struct{}),
	}
	go c.writeLoop()
	return c, nil
}

// Send queues an envelope for delivery. A full queue closes the
// connection: a reader that slow has already lost the stream.
func (c *Conn) Send(env Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		logger.Error(context.Background(), "marshal envelope failed", zap.Error(err))
		return
	}
	select {
	case c.send <- data:
	case <-c.done:
	default:
		logger.Warn(context.Background(), "send buffer full, dropping connection")
		c.Close()
	}
}

// Close tears the connection down. Safe to call more than once.
func (c *Conn) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// ReadLoop delivers inbound envelopes to handle until the connection
// drops or Close is called. It runs on the caller's goroutine.
func (c *Conn) ReadLoop(handle func(env Envelope)) {
	defer c.Close()

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var env Envelope
		if err := c.ws.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug(context.Background(), "ws read failed", zap.Error(err))
			}
			return
		}
		handle(env)
	}
}

func (c *Conn) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case data := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				c.Close()
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		case <-c.done:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.ws.WriteMessage(websocket.CloseMessage, nil)
			return
		}
	}
}

// Done reports connection teardown to session goroutines.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}
