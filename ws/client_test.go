package ws

import (
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/tcriess/lightspeed-chat-client/config"
)

type recordingHandler struct {
	sync.Mutex
	messages     [][]byte
	connects     int
	disconnects  int
	onConnect    func()
	onDisconnect func()
}

func (h *recordingHandler) HandleMessage(raw []byte) {
	h.Lock()
	defer h.Unlock()
	h.messages = append(h.messages, raw)
}

func (h *recordingHandler) HandleConnected() {
	h.Lock()
	h.connects++
	cb := h.onConnect
	h.Unlock()
	if cb != nil {
		cb()
	}
}

func (h *recordingHandler) HandleDisconnected(err error) {
	h.Lock()
	h.disconnects++
	cb := h.onDisconnect
	h.Unlock()
	if cb != nil {
		cb()
	}
}

func (h *recordingHandler) received() [][]byte {
	h.Lock()
	defer h.Unlock()
	return append([][]byte(nil), h.messages...)
}

func (h *recordingHandler) counts() (int, int) {
	h.Lock()
	defer h.Unlock()
	return h.connects, h.disconnects
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func TestDialUrl(t *testing.T) {
	cfg := &config.ServerConfig{
		Url:      "https://chat.example.com/ws?keep=1",
		IdToken:  "tok",
		Provider: "google",
		Language: "de",
	}
	client := NewClient(cfg, &recordingHandler{})
	dialUrl, err := client.dialUrl()
	assert.NoError(t, err)
	u, err := url.Parse(dialUrl)
	assert.NoError(t, err)
	assert.Equal(t, "wss", u.Scheme)
	assert.Equal(t, "chat.example.com", u.Host)
	assert.Equal(t, "tok", u.Query().Get("id_token"))
	assert.Equal(t, "google", u.Query().Get("provider"))
	assert.Equal(t, "de", u.Query().Get("language"))
	assert.Equal(t, "1", u.Query().Get("keep"))

	cfg = &config.ServerConfig{Url: "ftp://nope"}
	client = NewClient(cfg, &recordingHandler{})
	_, err = client.dialUrl()
	assert.Error(t, err)
}

func TestClientRoundTrip(t *testing.T) {
	fromServer := make(chan []byte, 10)
	toServer := make(chan []byte, 10)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "testnick-token", r.URL.Query().Get("id_token"))
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		go func() {
			for payload := range fromServer {
				if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
					return
				}
			}
		}()
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				return
			}
			toServer <- raw
		}
	}))
	defer server.Close()

	cfg := &config.ServerConfig{
		Url:     "ws" + strings.TrimPrefix(server.URL, "http"),
		IdToken: "testnick-token",
	}
	handler := &recordingHandler{}
	connected := make(chan struct{}, 10)
	handler.onConnect = func() { connected <- struct{}{} }
	client := NewClient(cfg, handler)
	defer client.Close()
	go client.Run()

	select {
	case <-connected:
	case <-time.After(2 * time.Second):
		t.Fatal("connect timeout")
	}

	fromServer <- []byte(`{"chatroom":{"delete":{"chatroomID":"r1"}}}`)
	assert.Eventually(t, func() bool {
		return len(handler.received()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.JSONEq(t, `{"chatroom":{"delete":{"chatroomID":"r1"}}}`, string(handler.received()[0]))

	client.Send([]byte(`{"text":{"msg":"hello","chatroomID":"r1"}}`))
	select {
	case raw := <-toServer:
		assert.JSONEq(t, `{"text":{"msg":"hello","chatroomID":"r1"}}`, string(raw))
	case <-time.After(2 * time.Second):
		t.Fatal("send timeout")
	}
}

func TestClientReconnects(t *testing.T) {
	var serverConns int32
	dropFirst := make(chan struct{})
	var connMu sync.Mutex
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		connMu.Lock()
		serverConns++
		first := serverConns == 1
		connMu.Unlock()
		if first {
			// drop the first connection on demand
			<-dropFirst
			return
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	cfg := &config.ServerConfig{
		Url:               "ws" + strings.TrimPrefix(server.URL, "http"),
		ReconnectMinDelay: "10ms",
		ReconnectMaxDelay: "50ms",
	}
	handler := &recordingHandler{}
	client := NewClient(cfg, handler)
	defer client.Close()
	go client.Run()

	assert.Eventually(t, func() bool {
		connects, _ := handler.counts()
		return connects == 1
	}, 2*time.Second, 10*time.Millisecond)

	close(dropFirst)

	// the client notices the drop and dials again
	assert.Eventually(t, func() bool {
		connects, disconnects := handler.counts()
		return connects == 2 && disconnects == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func newListenerAt(t *testing.T, addr string) (net.Listener, error) {
	t.Helper()
	return net.Listen("tcp", addr)
}

func TestSendWhileDisconnectedFlushesOnConnect(t *testing.T) {
	received := make(chan []byte, 10)
	var server *httptest.Server
	serverUp := func() {
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			conn, err := upgrader.Upgrade(w, r, nil)
			if err != nil {
				return
			}
			defer conn.Close()
			for {
				_, raw, err := conn.ReadMessage()
				if err != nil {
					return
				}
				received <- raw
			}
		}))
	}
	serverUp()
	serverUrl := "ws" + strings.TrimPrefix(server.URL, "http")
	server.Close()

	cfg := &config.ServerConfig{
		Url:               serverUrl,
		ReconnectMinDelay: "10ms",
		ReconnectMaxDelay: "50ms",
	}
	handler := &recordingHandler{}
	client := NewClient(cfg, handler)
	defer client.Close()

	// queued before any connection exists
	client.Send([]byte(`{"text":{"msg":"queued","chatroomID":"r1"}}`))
	go client.Run()

	// now bring a server up on the same address
	listener, err := newListenerAt(t, strings.TrimPrefix(serverUrl, "ws://"))
	if err != nil {
		t.Skipf("could not rebind test address: %s", err)
	}
	restarted := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				return
			}
			received <- raw
		}
	})}
	go restarted.Serve(listener)
	defer restarted.Close()

	select {
	case raw := <-received:
		assert.JSONEq(t, `{"text":{"msg":"queued","chatroomID":"r1"}}`, string(raw))
	case <-time.After(3 * time.Second):
		t.Fatal("queued payload never arrived")
	}
}
