package transport

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"arena/config"
	"arena/network"
	"arena/protocol"
	"arena/room"
)

var quiet = log.New(io.Discard, "", 0)

func collect(t Transport) chan protocol.Envelope {
	ch := make(chan protocol.Envelope, 16)
	t.OnMessage(func(env protocol.Envelope) { ch <- env })
	return ch
}

func waitEnvelope(t *testing.T, ch chan protocol.Envelope, typ string) protocol.Envelope {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case env := <-ch:
			if env.T == typ {
				return env
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %q", typ)
		}
	}
}

func expectSilence(t *testing.T, ch chan protocol.Envelope, d time.Duration) {
	t.Helper()
	select {
	case env := <-ch:
		t.Fatalf("unexpected %q from %q", env.T, env.From)
	case <-time.After(d):
	}
}

func ctx(t *testing.T) context.Context {
	c, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return c
}

func TestParseMeshToken(t *testing.T) {
	code, addr, err := ParseMeshToken("ABCDEF@127.0.0.1:7350")
	if err != nil || code != "ABCDEF" || addr != "127.0.0.1:7350" {
		t.Fatalf("ParseMeshToken = %q, %q, %v", code, addr, err)
	}
	for _, bad := range []string{"", "ABCDEF", "@host:1", "ABC@"} {
		if _, _, err := ParseMeshToken(bad); !errors.Is(err, ErrBadToken) {
			t.Fatalf("ParseMeshToken(%q) err = %v, want ErrBadToken", bad, err)
		}
	}
}

func TestMeshHostAndClientExchange(t *testing.T) {
	host, err := ListenMesh(ctx(t), MeshOptions{Listen: "127.0.0.1:0", Logger: quiet})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer host.Close()
	if !host.IsHost() || host.MyID() == "" {
		t.Fatalf("host role/id not set")
	}
	hostIn := collect(host)
	peers := make(chan int, 4)
	host.OnPeersChange(func(n int) { peers <- n })

	client, err := DialMesh(ctx(t), host.Token(), MeshOptions{Logger: quiet})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()
	if client.IsHost() {
		t.Fatalf("client should not be host")
	}
	if client.MyID() == host.MyID() {
		t.Fatalf("identities collide")
	}
	clientIn := collect(client)

	select {
	case n := <-peers:
		if n != 1 {
			t.Fatalf("peer count = %d, want 1", n)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("host never saw the client")
	}

	if err := client.Send(protocol.MsgJoin, protocol.Join{ID: client.MyID()}); err != nil {
		t.Fatalf("client send: %v", err)
	}
	env := waitEnvelope(t, hostIn, protocol.MsgJoin)
	if env.From != client.MyID() {
		t.Fatalf("join from %q, want %q", env.From, client.MyID())
	}

	if err := host.Send(protocol.MsgSnapshot, protocol.Snapshot{Rocks: []protocol.RockState{}, Players: []protocol.PlayerState{}}); err != nil {
		t.Fatalf("host send: %v", err)
	}
	env = waitEnvelope(t, clientIn, protocol.MsgSnapshot)
	if env.From != host.MyID() {
		t.Fatalf("snapshot from %q, want host %q", env.From, host.MyID())
	}
	if client.HostID() != host.MyID() {
		t.Fatalf("client learned host id %q, want %q", client.HostID(), host.MyID())
	}
}

func TestMeshClientCannotSpoofSender(t *testing.T) {
	host, err := ListenMesh(ctx(t), MeshOptions{Listen: "127.0.0.1:0", Logger: quiet})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer host.Close()
	hostIn := collect(host)

	client, err := DialMesh(ctx(t), host.Token(), MeshOptions{Logger: quiet})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()
	client.id = "someone-else" // outgoing From now lies
	_ = client.Send(protocol.MsgJoin, protocol.Join{ID: "someone-else"})

	env := waitEnvelope(t, hostIn, protocol.MsgJoin)
	if env.From == "someone-else" {
		t.Fatalf("host trusted the envelope's From over the connection")
	}
}

func TestMeshRejectsWrongRoom(t *testing.T) {
	host, err := ListenMesh(ctx(t), MeshOptions{Listen: "127.0.0.1:0", Logger: quiet})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer host.Close()
	_, addr, _ := ParseMeshToken(host.Token())
	if _, err := DialMesh(ctx(t), MeshToken("ZZZZZZ", addr), MeshOptions{Logger: quiet}); err == nil {
		t.Fatalf("expected dial to fail for an unknown room")
	}
}

func TestMeshAcceptsOneConnectionPerID(t *testing.T) {
	host, err := ListenMesh(ctx(t), MeshOptions{Listen: "127.0.0.1:0", Logger: quiet})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer host.Close()
	code, addr, _ := ParseMeshToken(host.Token())
	url := "ws://" + addr + "/mesh?room=" + code + "&id=same"

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		conns    []*websocket.Conn
		accepted atomic.Int32
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conn, err := network.Dial(ctx(t), url)
			if err != nil {
				return
			}
			accepted.Add(1)
			mu.Lock()
			conns = append(conns, conn)
			mu.Unlock()
		}()
	}
	wg.Wait()
	for _, c := range conns {
		c.Close()
	}
	if n := accepted.Load(); n != 1 {
		t.Fatalf("accepted %d connections for one id, want 1", n)
	}
}

func startRelay(t *testing.T) string {
	t.Helper()
	m := room.NewManager()
	m.Logger = quiet
	s := room.NewServer(m)
	s.Logger = quiet
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		srv.Close()
		m.Close()
	})
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/relay"
}

func TestRelayFiltersOwnBroadcasts(t *testing.T) {
	relayURL := startRelay(t)

	host, err := DialRelay(ctx(t), RelayOptions{URL: relayURL, Codec: protocol.Msgpack, Logger: quiet})
	if err != nil {
		t.Fatalf("host dial: %v", err)
	}
	defer host.Close()
	if !host.IsHost() || host.Token() == "" {
		t.Fatalf("host should mint a room token")
	}
	hostIn := collect(host)

	client, err := DialRelay(ctx(t), RelayOptions{URL: relayURL, Room: host.Token(), Codec: protocol.Msgpack, Logger: quiet})
	if err != nil {
		t.Fatalf("client dial: %v", err)
	}
	defer client.Close()
	if client.IsHost() {
		t.Fatalf("client with a token should not host")
	}
	clientIn := collect(client)

	// the relay registers subscribers asynchronously; retry the join until
	// the host hears it
	deadline := time.After(2 * time.Second)
	var join protocol.Envelope
	for got := false; !got; {
		_ = client.Send(protocol.MsgJoin, protocol.Join{ID: client.MyID()})
		select {
		case join = <-hostIn:
			got = true
		case <-time.After(50 * time.Millisecond):
		case <-deadline:
			t.Fatalf("host never received join")
		}
	}
	if join.T != protocol.MsgJoin || join.From != client.MyID() {
		t.Fatalf("host got %q from %q", join.T, join.From)
	}

	alive := true
	_ = host.Send(protocol.MsgSnapshot, protocol.Snapshot{Rocks: []protocol.RockState{}, Players: []protocol.PlayerState{{ID: host.MyID(), Pos: &protocol.Vec{}, Vel: &protocol.Vec{}, Alive: &alive}}})
	env := waitEnvelope(t, clientIn, protocol.MsgSnapshot)
	m, err := protocol.Parse(env)
	if err != nil {
		t.Fatalf("parse snapshot: %v", err)
	}
	if snap := m.(protocol.Snapshot); len(snap.Players) != 1 || snap.Players[0].ID != host.MyID() {
		t.Fatalf("snapshot = %+v", snap)
	}

	for {
		select {
		case env := <-hostIn:
			if env.From == host.MyID() {
				t.Fatalf("host received its own %q", env.T)
			}
			continue
		case <-time.After(150 * time.Millisecond):
		}
		break
	}
	expectSilence(t, clientIn, 50*time.Millisecond)
}

func TestOpenSelectsBackend(t *testing.T) {
	cfg := config.Defaults()
	cfg.ListenAddr = "127.0.0.1:0"
	cfg.AdvertiseAddr = ""
	tr, err := Open(ctx(t), cfg, quiet)
	if err != nil {
		t.Fatalf("open mesh host: %v", err)
	}
	defer tr.Close()
	if _, ok := tr.(*Mesh); !ok || !tr.IsHost() {
		t.Fatalf("Open returned %T host=%v", tr, tr.IsHost())
	}

	cfg.Backend = "relay"
	cfg.RelayURL = startRelay(t)
	cfg.Codec = "msgpack"
	rt, err := Open(ctx(t), cfg, quiet)
	if err != nil {
		t.Fatalf("open relay host: %v", err)
	}
	defer rt.Close()
	if _, ok := rt.(*Relay); !ok {
		t.Fatalf("Open returned %T, want *Relay", rt)
	}

	cfg.Codec = "xml"
	if _, err := Open(ctx(t), cfg, quiet); err == nil {
		t.Fatalf("expected error for unknown codec")
	}
}
