package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"arena/game"
	"arena/session"
)

func testFrame() session.Frame {
	w := game.NewWorld()
	w.Players["me"] = &game.Player{ID: "me", Pos: game.Vec{X: 480, Y: 320}, Alive: true, Score: 30}
	w.Players["them"] = &game.Player{ID: "them", RespawnAt: 5 * time.Second}
	w.Rocks = []game.Rock{{Pos: game.Vec{X: 10, Y: 10}, Radius: 30}}
	return session.Frame{World: w, Self: "me", IsHost: true, Token: "ABCDEF@127.0.0.1:7350", Peers: 1}
}

func TestDrawShowsShipsRocksAndScores(t *testing.T) {
	out := Draw(testFrame())
	for _, want := range []string{"ABCDEF@127.0.0.1:7350", "role host", "@", "O", "30", "respawn in 5.0s"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
	if strings.Contains(out, "GAME OVER") {
		t.Fatal("game over shown while a player is alive")
	}
}

func TestDrawGameOver(t *testing.T) {
	f := testFrame()
	f.World.GameOver = true
	f.IsHost = false
	out := Draw(f)
	if !strings.Contains(out, "GAME OVER") {
		t.Fatal("missing game over banner")
	}
	if strings.Contains(out, "restart") {
		t.Fatal("clients cannot restart")
	}
}

func TestHUDThrottles(t *testing.T) {
	var buf bytes.Buffer
	now := time.Unix(0, 0)
	h := NewHUD(&buf, 100*time.Millisecond)
	h.now = func() time.Time { return now }

	h.Render(testFrame())
	first := buf.Len()
	if first == 0 {
		t.Fatal("first frame not drawn")
	}
	now = now.Add(50 * time.Millisecond)
	h.Render(testFrame())
	if buf.Len() != first {
		t.Fatal("frame drawn inside the interval")
	}
	now = now.Add(60 * time.Millisecond)
	h.Render(testFrame())
	if buf.Len() == first {
		t.Fatal("frame not drawn after the interval")
	}
	if strings.Contains(buf.String(), "\n") && !strings.Contains(buf.String(), "\r\n") {
		t.Fatal("raw mode output needs CRLF")
	}
}
