package gameserver

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Client owns one websocket connection's outbound side: a buffered queue
// drained by a single writer goroutine, so game code never blocks on a
// slow client. Client implements character.Sink.
type Client struct {
	conn         *websocket.Conn
	send         chan []byte
	writeTimeout time.Duration
	logger       *zap.Logger

	closeOnce sync.Once
	done      chan struct{}
}

// NewClient wraps an upgraded connection and starts its writer goroutine.
//
// Precondition: conn must be an open websocket; sendBuffer >= 1.
func NewClient(conn *websocket.Conn, sendBuffer int, writeTimeout time.Duration, logger *zap.Logger) *Client {
	c := &Client{
		conn:         conn,
		send:         make(chan []byte, sendBuffer),
		writeTimeout: writeTimeout,
		logger:       logger,
		done:         make(chan struct{}),
	}
	go c.writeLoop()
	return c
}

func (c *Client) writeLoop() {
	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(time.Second))
				return
			}
			if c.writeTimeout > 0 {
				_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.logger.Debug("client write failed", zap.Error(err))
				return
			}
		case <-c.done:
			return
		}
	}
}

// Send queues a text-payload envelope of the given kind. A full queue drops
// the message rather than blocking the caller.
func (c *Client) Send(kind, text string) {
	msg, err := EncodeText(kind, text)
	if err != nil {
		c.logger.Error("encoding outbound message", zap.String("kind", kind), zap.Error(err))
		return
	}
	c.SendRaw(msg)
}

// SendRaw queues an already-encoded frame.
func (c *Client) SendRaw(msg []byte) {
	select {
	case c.send <- msg:
	case <-c.done:
	default:
		c.logger.Warn("outbound queue full, dropping message")
	}
}

// Close stops the writer and closes the connection. Safe to call more than
// once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}
