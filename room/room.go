package room

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"arena/network"
)

var (
	ErrRoomClosed  = errors.New("room closed")
	ErrDuplicateID = errors.New("identity already subscribed")
)

// Room relays frames between the participants of one session. It never
// looks inside a frame, so any wire codec passes through.
type Room struct {
	Inbox   chan any
	clients map[string]Conn
	count   atomic.Int32
	quit    chan struct{}
	stop    sync.Once

	Code    string            // room code (e.g. "ABC123")
	OnEmpty func(code string) // called when last subscriber leaves
	Logger  *log.Logger
}

func New() *Room {
	return &Room{
		Inbox:   make(chan any, 256),
		clients: make(map[string]Conn),
		quit:    make(chan struct{}),
	}
}

func (r *Room) Stop() {
	r.stop.Do(func() { close(r.quit) })
}

// NumPlayers returns the current number of subscribers.
func (r *Room) NumPlayers() int {
	return int(r.count.Load())
}

func (r *Room) logf(format string, args ...any) {
	if r.Logger != nil {
		r.Logger.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}

// Post hands a command to the room without blocking. It reports false
// once the room has stopped or its inbox is full.
func (r *Room) Post(cmd any) bool {
	select {
	case <-r.quit:
		return false
	default:
	}
	select {
	case r.Inbox <- cmd:
		return true
	case <-r.quit:
		return false
	default:
		return false
	}
}

// Join subscribes c under id and waits for the room to accept it.
func (r *Room) Join(id string, c Conn) error {
	reply := make(chan error, 1)
	select {
	case r.Inbox <- Subscribe{ID: id, Conn: c, Reply: reply}:
	case <-r.quit:
		return ErrRoomClosed
	}
	select {
	case err := <-reply:
		return err
	case <-r.quit:
		return ErrRoomClosed
	}
}

func (r *Room) Run() {
	for {
		select {
		case <-r.quit:
			return
		case cmd := <-r.Inbox:
			r.handleCommand(cmd)
		}
	}
}

func (r *Room) handleCommand(cmd any) {
	switch c := cmd.(type) {
	case Subscribe:
		if _, ok := r.clients[c.ID]; ok {
			c.Reply <- fmt.Errorf("%w: %s", ErrDuplicateID, c.ID)
			return
		}
		r.clients[c.ID] = c.Conn
		r.count.Store(int32(len(r.clients)))
		r.logf("room %s: %s joined (%d)", r.Code, c.ID, len(r.clients))
		c.Reply <- nil
	case Publish:
		if _, ok := r.clients[c.From]; !ok {
			return
		}
		r.broadcast(c.Frame)
	case Unsubscribe:
		r.handleLeave(c.ID)
	}
}

func (r *Room) handleLeave(id string) {
	c, ok := r.clients[id]
	if !ok {
		return
	}
	_ = c.Close()
	delete(r.clients, id)
	r.count.Store(int32(len(r.clients)))
	r.logf("room %s: %s left (%d)", r.Code, id, len(r.clients))
	if len(r.clients) == 0 && r.OnEmpty != nil && r.Code != "" {
		r.OnEmpty(r.Code)
	}
}

func (r *Room) broadcast(b []byte) {
	var failed []string
	for id, c := range r.clients {
		err := c.Send(b)
		if err == nil || errors.Is(err, network.ErrSendBufferFull) {
			// a slow subscriber loses this frame, the next snapshot replaces it
			continue
		}
		failed = append(failed, id)
	}
	for _, id := range failed {
		r.handleLeave(id)
	}
}
