package network

import (
	"context"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func echoServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := Upgrade(w, r)
		if err != nil {
			return
		}
		p := NewPeer("server", conn)
		p.Logger = log.New(io.Discard, "", 0)
		p.OnFrame = func(b []byte) {
			if string(b) == "bye" {
				p.Close()
				return
			}
			_ = p.Send(append([]byte("echo:"), b...))
		}
		p.Start()
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dialPeer(t *testing.T, srv *httptest.Server) (*Peer, chan []byte, chan struct{}) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	conn, err := Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	frames := make(chan []byte, 8)
	closed := make(chan struct{})
	p := NewPeer("client", conn)
	p.Logger = log.New(io.Discard, "", 0)
	p.OnFrame = func(b []byte) { frames <- b }
	p.OnClose = func() { close(closed) }
	p.Start()
	t.Cleanup(func() { p.Close() })
	return p, frames, closed
}

func TestPeerSendReceive(t *testing.T) {
	srv := echoServer(t)
	p, frames, _ := dialPeer(t, srv)

	if err := p.Send([]byte("hi")); err != nil {
		t.Fatalf("send: %v", err)
	}
	select {
	case b := <-frames:
		if string(b) != "echo:hi" {
			t.Fatalf("got %q, want %q", b, "echo:hi")
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for echo")
	}
}

func TestPeerSendAfterClose(t *testing.T) {
	srv := echoServer(t)
	p, _, closed := dialPeer(t, srv)

	p.Close()
	p.Close()
	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatalf("OnClose not called")
	}
	if err := p.Send([]byte("late")); err != ErrClosed {
		t.Fatalf("send after close = %v, want ErrClosed", err)
	}
}

func TestPeerClosesWhenRemoteGoesAway(t *testing.T) {
	srv := echoServer(t)
	p, _, closed := dialPeer(t, srv)

	if err := p.Send([]byte("bye")); err != nil {
		t.Fatalf("send: %v", err)
	}
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatalf("peer did not notice remote close")
	}
}

func TestPeerSendNeverBlocks(t *testing.T) {
	p := NewPeer("unstarted", nil)
	var full bool
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < sendBuffer+10; i++ {
			if err := p.Send([]byte{byte(i)}); err == ErrSendBufferFull {
				full = true
			}
		}
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Send blocked on a stalled peer")
	}
	if !full {
		t.Fatalf("expected ErrSendBufferFull once the buffer filled")
	}
}
