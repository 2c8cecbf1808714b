package transport

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/url"
	"sync"

	"arena/network"
	"arena/protocol"
	"arena/room"
)

type MeshOptions struct {
	Listen    string // host only
	Advertise string // host only, defaults to the bound listen address
	Codec     protocol.Codec
	Logger    *log.Logger
}

// Mesh is the point-to-point backend. The host accepts one websocket per
// client and fans every Send out over all of them; a client talks to the
// host alone.
type Mesh struct {
	handlers

	host  bool
	id    string
	code  string
	token string
	codec protocol.Codec

	mu      sync.RWMutex
	peers   map[string]*network.Peer // host: one per client
	joining map[string]struct{}      // host: ids reserved while upgrading
	hostID  string                   // client: learned from hello

	upstream *network.Peer // client only
	srv      *http.Server  // host only
}

// ListenMesh starts hosting a new room.
func ListenMesh(ctx context.Context, opts MeshOptions) (*Mesh, error) {
	if opts.Codec == nil {
		opts.Codec = protocol.JSON
	}
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", opts.Listen)
	if err != nil {
		return nil, fmt.Errorf("mesh listen: %w", err)
	}
	advertise := opts.Advertise
	if advertise == "" {
		advertise = ln.Addr().String()
	}
	m := &Mesh{
		handlers: handlers{logger: opts.Logger},
		host:     true,
		id:       newIdentity(),
		code:     room.GenerateCode(room.CodeLength),
		codec:    opts.Codec,
		peers:    make(map[string]*network.Peer),
		joining:  make(map[string]struct{}),
	}
	m.hostID = m.id
	m.token = MeshToken(m.code, advertise)

	mux := http.NewServeMux()
	mux.HandleFunc("/mesh", m.serveClient)
	m.srv = &http.Server{Handler: mux}
	go func() {
		if err := m.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logf("mesh serve: %v", err)
		}
	}()
	m.logf("hosting room %s", m.token)
	return m, nil
}

// DialMesh joins the room named by a CODE@host:port token. It waits for the
// connection for as long as ctx allows.
func DialMesh(ctx context.Context, token string, opts MeshOptions) (*Mesh, error) {
	if opts.Codec == nil {
		opts.Codec = protocol.JSON
	}
	code, addr, err := ParseMeshToken(token)
	if err != nil {
		return nil, err
	}
	m := &Mesh{
		handlers: handlers{logger: opts.Logger},
		id:       newIdentity(),
		code:     code,
		token:    token,
		codec:    opts.Codec,
	}
	u := url.URL{
		Scheme:   "ws",
		Host:     addr,
		Path:     "/mesh",
		RawQuery: url.Values{"room": {code}, "id": {m.id}}.Encode(),
	}
	conn, err := network.Dial(ctx, u.String())
	if err != nil {
		return nil, fmt.Errorf("mesh dial %s: %w", addr, err)
	}
	p := network.NewPeer("host", conn)
	p.Logger = opts.Logger
	p.OnFrame = m.receiveFromHost
	p.OnClose = func() {
		m.logf("connection to host closed")
		m.peersChanged(0)
	}
	m.upstream = p
	p.Start()
	m.peersChanged(1)
	return m, nil
}

func (m *Mesh) IsHost() bool  { return m.host }
func (m *Mesh) MyID() string  { return m.id }
func (m *Mesh) Token() string { return m.token }

// HostID is the host's identity; on a client it is empty until hello.
func (m *Mesh) HostID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.hostID
}

func (m *Mesh) Send(msgType string, payload any) error {
	b, err := protocol.Encode(m.codec, msgType, m.id, payload)
	if err != nil {
		return err
	}
	if !m.host {
		if err := m.upstream.Send(b); err != nil {
			m.logf("send %s to host: %v", msgType, err)
		}
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for id, p := range m.peers {
		if err := p.Send(b); err != nil {
			m.logf("send %s to %s: %v", msgType, id, err)
		}
	}
	return nil
}

func (m *Mesh) Close() error {
	if !m.host {
		return m.upstream.Close()
	}
	err := m.srv.Close()
	m.mu.Lock()
	peers := m.peers
	m.peers = make(map[string]*network.Peer)
	m.mu.Unlock()
	for _, p := range peers {
		_ = p.Close()
	}
	return err
}

func (m *Mesh) serveClient(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	id := q.Get("id")
	if q.Get("room") != m.code {
		http.Error(w, "no such room", http.StatusNotFound)
		return
	}
	if id == "" || id == m.id {
		http.Error(w, "bad id", http.StatusBadRequest)
		return
	}
	if !m.reserve(id) {
		http.Error(w, "id already connected", http.StatusConflict)
		return
	}

	conn, err := network.Upgrade(w, r)
	if err != nil {
		m.mu.Lock()
		delete(m.joining, id)
		m.mu.Unlock()
		m.logf("upgrade: %v", err)
		return
	}
	p := network.NewPeer(id, conn)
	p.Logger = m.logger
	p.OnFrame = func(b []byte) { m.receiveFromClient(id, b) }
	p.OnClose = func() { m.dropPeer(id, p) }

	m.mu.Lock()
	delete(m.joining, id)
	m.peers[id] = p
	n := len(m.peers)
	m.mu.Unlock()

	p.Start()
	if b, err := protocol.Encode(m.codec, protocol.MsgHello, m.id, protocol.Hello{HostID: m.id, Room: m.code}); err == nil {
		_ = p.Send(b)
	}
	m.logf("client %s connected (%d)", id, n)
	m.peersChanged(n)
}

// reserve claims id for a connection being upgraded. It fails while the id
// is connected or another connection is claiming it.
func (m *Mesh) reserve(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.peers[id]; ok {
		return false
	}
	if _, ok := m.joining[id]; ok {
		return false
	}
	m.joining[id] = struct{}{}
	return true
}

func (m *Mesh) dropPeer(id string, p *network.Peer) {
	m.mu.Lock()
	cur, ok := m.peers[id]
	if ok && cur == p {
		delete(m.peers, id)
	}
	n := len(m.peers)
	m.mu.Unlock()
	if ok && cur == p {
		m.logf("client %s disconnected (%d)", id, n)
		m.peersChanged(n)
	}
}

func (m *Mesh) receiveFromClient(id string, b []byte) {
	env, err := protocol.DecodeEnvelope(m.codec, b)
	if err != nil {
		return
	}
	// the connection, not the payload, says who sent it
	env.From = id
	m.deliver(env)
}

func (m *Mesh) receiveFromHost(b []byte) {
	env, err := protocol.DecodeEnvelope(m.codec, b)
	if err != nil {
		return
	}
	if env.T == protocol.MsgHello {
		if h, err := protocol.DecodePayload[protocol.Hello](env); err == nil && h.HostID != "" {
			m.mu.Lock()
			m.hostID = h.HostID
			m.mu.Unlock()
		}
		return
	}
	m.mu.RLock()
	if m.hostID != "" {
		env.From = m.hostID
	}
	m.mu.RUnlock()
	m.deliver(env)
}
