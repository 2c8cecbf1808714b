package transport

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"sync"

	"arena/network"
	"arena/protocol"
	"arena/room"
)

type RelayOptions struct {
	URL    string // relay endpoint, e.g. ws://host:7351/relay
	Room   string // empty hosts a new room
	Codec  protocol.Codec
	Logger *log.Logger
}

// Relay is the shared-channel backend. Every frame published to the room
// comes back to every subscriber, the sender included, so frames carrying
// our own id are dropped on receipt.
type Relay struct {
	handlers

	host  bool
	id    string
	code  string
	codec protocol.Codec
	peer  *network.Peer

	mu   sync.Mutex
	seen map[string]struct{}
}

func DialRelay(ctx context.Context, opts RelayOptions) (*Relay, error) {
	if opts.Codec == nil {
		opts.Codec = protocol.JSON
	}
	r := &Relay{
		handlers: handlers{logger: opts.Logger},
		host:     opts.Room == "",
		id:       newIdentity(),
		code:     opts.Room,
		codec:    opts.Codec,
		seen:     make(map[string]struct{}),
	}
	if r.host {
		r.code = room.GenerateCode(room.CodeLength)
	}

	u, err := url.Parse(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("relay url: %w", err)
	}
	q := u.Query()
	q.Set("room", r.code)
	q.Set("id", r.id)
	u.RawQuery = q.Encode()

	conn, err := network.Dial(ctx, u.String())
	if err != nil {
		return nil, fmt.Errorf("relay dial: %w", err)
	}
	r.peer = network.NewPeer("relay", conn)
	r.peer.Logger = opts.Logger
	r.peer.OnFrame = r.receive
	r.peer.OnClose = func() {
		r.logf("relay connection closed")
		r.peersChanged(0)
	}
	r.peer.Start()
	if r.host {
		r.logf("hosting room %s via %s", r.code, opts.URL)
	}
	return r, nil
}

func (r *Relay) IsHost() bool  { return r.host }
func (r *Relay) MyID() string  { return r.id }
func (r *Relay) Token() string { return r.code }

func (r *Relay) Send(msgType string, payload any) error {
	b, err := protocol.Encode(r.codec, msgType, r.id, payload)
	if err != nil {
		return err
	}
	if err := r.peer.Send(b); err != nil {
		r.logf("send %s: %v", msgType, err)
	}
	return nil
}

func (r *Relay) Close() error {
	return r.peer.Close()
}

func (r *Relay) receive(b []byte) {
	env, err := protocol.DecodeEnvelope(r.codec, b)
	if err != nil || env.From == "" {
		return
	}
	if env.From == r.id {
		return
	}
	r.mu.Lock()
	_, known := r.seen[env.From]
	if !known {
		r.seen[env.From] = struct{}{}
	}
	n := len(r.seen)
	r.mu.Unlock()
	if !known {
		r.peersChanged(n)
	}
	r.deliver(env)
}
