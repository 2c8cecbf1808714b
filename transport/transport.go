// Package transport carries typed messages between the participants of a
// session. Two backends share one interface: a mesh where the host holds a
// websocket per client, and a relay where every participant subscribes to a
// shared room on a relay server.
package transport

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/google/uuid"

	"arena/config"
	"arena/protocol"
)

var ErrBadToken = errors.New("bad room token")

// Transport is what the session needs from the network. Send is
// fire-and-forget: only an encoding failure is returned, delivery failures
// are logged and dropped. Inbound callbacks run on network goroutines.
type Transport interface {
	IsHost() bool
	MyID() string
	Token() string
	Send(msgType string, payload any) error
	OnMessage(fn func(protocol.Envelope))
	OnPeersChange(fn func(n int))
	Close() error
}

// Open picks the backend named in cfg. An empty cfg.Room hosts a new room.
func Open(ctx context.Context, cfg config.Config, logger *log.Logger) (Transport, error) {
	codec, err := protocol.CodecByName(cfg.Codec)
	if err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case "mesh":
		if cfg.Room == "" {
			return ListenMesh(ctx, MeshOptions{
				Listen:    cfg.ListenAddr,
				Advertise: cfg.AdvertiseAddr,
				Codec:     codec,
				Logger:    logger,
			})
		}
		return DialMesh(ctx, cfg.Room, MeshOptions{Codec: codec, Logger: logger})
	case "relay":
		return DialRelay(ctx, RelayOptions{
			URL:    cfg.RelayURL,
			Room:   cfg.Room,
			Codec:  codec,
			Logger: logger,
		})
	}
	return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}

// newIdentity mints the participant's id for this connection.
func newIdentity() string {
	return uuid.NewString()
}

// MeshToken joins a room code and the host's reachable address.
func MeshToken(code, addr string) string {
	return code + "@" + addr
}

func ParseMeshToken(token string) (code, addr string, err error) {
	code, addr, ok := strings.Cut(token, "@")
	if !ok || code == "" || addr == "" {
		return "", "", fmt.Errorf("%w: %q, want CODE@host:port", ErrBadToken, token)
	}
	return code, addr, nil
}

type handlers struct {
	mu        sync.RWMutex
	onMessage func(protocol.Envelope)
	onPeers   func(int)
	logger    *log.Logger
}

func (h *handlers) OnMessage(fn func(protocol.Envelope)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onMessage = fn
}

func (h *handlers) OnPeersChange(fn func(int)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onPeers = fn
}

func (h *handlers) deliver(env protocol.Envelope) {
	h.mu.RLock()
	fn := h.onMessage
	h.mu.RUnlock()
	if fn != nil {
		fn(env)
	}
}

func (h *handlers) peersChanged(n int) {
	h.mu.RLock()
	fn := h.onPeers
	h.mu.RUnlock()
	if fn != nil {
		fn(n)
	}
}

func (h *handlers) logf(format string, args ...any) {
	if h.logger != nil {
		h.logger.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}
