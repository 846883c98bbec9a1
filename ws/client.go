// Package ws implements the websocket connection lifecycle: dialing the
// chat server, the read/write pumps and automatic reconnection. The session
// behind the Handler never sees transport details, only raw payloads and
// connect/disconnect signals.
package ws

import (
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/tcriess/lightspeed-chat-client/config"
	"github.com/tcriess/lightspeed-chat-client/globals"
)

const (
	maxMessageSize  = 4096
	pongWait        = 2 * time.Minute
	pingPeriod      = time.Minute
	writeWait       = 10 * time.Second
	sendChannelSize = 1000
)

// Handler receives raw inbound payloads and connection lifecycle signals.
// Implemented by the session.
type Handler interface {
	HandleMessage(raw []byte)
	HandleConnected()
	HandleDisconnected(err error)
}

// Client is a middleman between the websocket connection and the session.
// The outbound channel survives reconnects, commands issued while offline
// are flushed once the connection is back.
type Client struct {
	cfg     *config.ServerConfig
	handler Handler

	// Buffered channel of outbound messages.
	send chan []byte

	doneChan  chan struct{}
	closeOnce sync.Once
}

func NewClient(cfg *config.ServerConfig, handler Handler) *Client {
	return &Client{
		cfg:      cfg,
		handler:  handler,
		send:     make(chan []byte, sendChannelSize),
		doneChan: make(chan struct{}),
	}
}

// Send queues one outbound payload. It never blocks, when the buffer is
// full (the server has been unreachable for a long time) the payload is
// dropped with a log message.
func (c *Client) Send(payload []byte) {
	select {
	case c.send <- payload:
	default:
		globals.AppLogger.Error("outbound buffer full, dropping command")
	}
}

func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.doneChan)
	})
}

// dialUrl appends the identity query parameters to the configured server
// url. The id token is forwarded as-is, validating it is the server's job.
func (c *Client) dialUrl() (string, error) {
	u, err := url.Parse(c.cfg.Url)
	if err != nil {
		return "", errors.Wrap(err, "could not parse server url")
	}
	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", errors.Errorf("unsupported server url scheme %q", u.Scheme)
	}
	q := u.Query()
	if c.cfg.IdToken != "" {
		q.Set("id_token", c.cfg.IdToken)
		q.Set("provider", c.cfg.Provider)
	}
	if c.cfg.Language != "" {
		q.Set("language", c.cfg.Language)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Run dials the server and keeps the connection alive, reconnecting with
// exponential backoff until Close is called. Run blocks, callers start it
// in its own goroutine.
func (c *Client) Run() error {
	dialUrl, err := c.dialUrl()
	if err != nil {
		return err
	}
	minDelay, maxDelay := c.cfg.ReconnectBackoff()
	delay := minDelay
	for {
		select {
		case <-c.doneChan:
			return nil
		default:
		}
		conn, _, err := websocket.DefaultDialer.Dial(dialUrl, nil)
		if err != nil {
			globals.AppLogger.Warn("could not connect", "error", err, "retry_in", delay)
			select {
			case <-time.After(delay):
			case <-c.doneChan:
				return nil
			}
			delay *= 2
			if delay > maxDelay {
				delay = maxDelay
			}
			continue
		}
		delay = minDelay
		c.handler.HandleConnected()
		err = c.pump(conn)
		c.handler.HandleDisconnected(err)
	}
}

// pump runs the read loop on the calling goroutine and the write loop on a
// second one, returning once the connection is gone.
func (c *Client) pump(conn *websocket.Conn) error {
	connDone := make(chan struct{})
	var once sync.Once
	closeConn := func() {
		once.Do(func() {
			close(connDone)
			conn.Close()
		})
	}
	defer closeConn()

	go c.writeLoop(conn, connDone, closeConn)

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error { conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	pingHandler := conn.PingHandler()
	conn.SetPingHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return pingHandler(appData)
	})
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				return errors.Wrap(err, "connection closed unexpectedly")
			}
			return err
		}
		c.handler.HandleMessage(raw)
	}
}

// writeLoop pumps queued payloads onto the connection and pings the server
// to keep intermediaries from dropping an idle connection.
func (c *Client) writeLoop(conn *websocket.Conn, connDone chan struct{}, closeConn func()) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		closeConn()
	}()
	for {
		select {
		case payload := <-c.send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				globals.AppLogger.Warn("could not write message", "error", err)
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-connDone:
			return

		case <-c.doneChan:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
