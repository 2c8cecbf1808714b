package network

import (
	"context"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	readLimit    = 1 << 20 // 1MB
	pongWait     = 60 * time.Second
	pingInterval = 25 * time.Second
	writeWait    = 10 * time.Second
	sendBuffer   = 64
)

var (
	ErrClosed         = errors.New("peer closed")
	ErrSendBufferFull = errors.New("send buffer full")
)

var upgrader = websocket.Upgrader{
	// For dev, allow all origins. Lock this down in prod.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Upgrade turns an HTTP request into a websocket connection.
func Upgrade(w http.ResponseWriter, r *http.Request) (*websocket.Conn, error) {
	return upgrader.Upgrade(w, r, nil)
}

// Dial connects to a websocket endpoint. It waits as long as ctx allows.
func Dial(ctx context.Context, url string) (*websocket.Conn, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	return conn, err
}

// Peer owns one websocket connection: a read loop handing frames to
// OnFrame, and a buffered writer so Send never blocks the caller.
type Peer struct {
	ID      string
	OnFrame func([]byte)
	OnClose func()
	Logger  *log.Logger

	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func NewPeer(id string, conn *websocket.Conn) *Peer {
	return &Peer{
		ID:   id,
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
}

func (p *Peer) logger() *log.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return log.Default()
}

// Start launches the read and write loops. Set the callbacks first.
func (p *Peer) Start() {
	go p.writeLoop()
	go p.readLoop()
}

// Send queues a frame. A full buffer drops the frame rather than wait.
func (p *Peer) Send(b []byte) error {
	select {
	case <-p.done:
		return ErrClosed
	default:
	}
	select {
	case p.send <- b:
		return nil
	default:
		return ErrSendBufferFull
	}
}

func (p *Peer) Close() error {
	p.closeOnce.Do(func() {
		close(p.done)
		_ = p.conn.Close()
		if p.OnClose != nil {
			p.OnClose()
		}
	})
	return nil
}

// Done is closed once the peer is closed.
func (p *Peer) Done() <-chan struct{} {
	return p.done
}

func (p *Peer) readLoop() {
	defer p.Close()

	// Basic timeouts + pong handling (keeps connections healthy)
	p.conn.SetReadLimit(readLimit)
	_ = p.conn.SetReadDeadline(time.Now().Add(pongWait))
	p.conn.SetPongHandler(func(string) error {
		_ = p.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, msg, err := p.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				p.logger().Println("read:", err)
			}
			return
		}
		_ = p.conn.SetReadDeadline(time.Now().Add(pongWait))
		if p.OnFrame != nil {
			p.OnFrame(msg)
		}
	}
}

func (p *Peer) writeLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	defer p.Close()

	for {
		select {
		case <-p.done:
			return
		case b := <-p.send:
			_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.conn.WriteMessage(websocket.BinaryMessage, b); err != nil {
				p.logger().Println("write:", err)
				return
			}
		case <-ticker.C:
			_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
