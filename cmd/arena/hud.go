package main

import (
	"fmt"
	"io"
	"maps"
	"math"
	"slices"
	"strings"
	"time"

	"arena/game"
	"arena/session"
)

const (
	gridCols = 64
	gridRows = 20
)

// HUD draws a coarse ASCII picture of the arena plus the scoreboard. It
// redraws at most every interval; frames in between are skipped.
type HUD struct {
	out      io.Writer
	interval time.Duration
	last     time.Time
	now      func() time.Time
}

func NewHUD(out io.Writer, interval time.Duration) *HUD {
	return &HUD{out: out, interval: interval, now: time.Now}
}

func (h *HUD) Render(f session.Frame) {
	now := h.now()
	if !h.last.IsZero() && now.Sub(h.last) < h.interval {
		return
	}
	h.last = now
	// raw mode: every line ends in \r\n
	fmt.Fprint(h.out, "\x1b[H\x1b[2J"+strings.ReplaceAll(Draw(f), "\n", "\r\n"))
}

func cell(v game.Vec) (int, int, bool) {
	c := int(v.X / game.ArenaWidth * gridCols)
	r := int(v.Y / game.ArenaHeight * gridRows)
	return c, r, c >= 0 && c < gridCols && r >= 0 && r < gridRows
}

// Draw renders one frame to text.
func Draw(f session.Frame) string {
	w := f.World
	grid := make([][]byte, gridRows)
	for i := range grid {
		grid[i] = []byte(strings.Repeat(" ", gridCols))
	}
	put := func(v game.Vec, ch byte) {
		if c, r, ok := cell(v); ok {
			grid[r][c] = ch
		}
	}
	for _, r := range w.Rocks {
		put(r.Pos, 'O')
		if r.Radius < 20 {
			put(r.Pos, 'o')
		}
	}
	ids := slices.Sorted(maps.Keys(w.Players))
	for _, id := range ids {
		p := w.Players[id]
		if !p.Alive {
			continue
		}
		for _, b := range p.Bullets {
			put(b.Pos, '.')
		}
		ship := byte('A')
		if id == f.Self {
			ship = '@'
		}
		put(p.Pos, ship)
	}

	var sb strings.Builder
	role := "client"
	if f.IsHost {
		role = "host"
	}
	fmt.Fprintf(&sb, "room %s  role %s  peers %d\n", f.Token, role, f.Peers)
	sb.WriteString("+" + strings.Repeat("-", gridCols) + "+\n")
	for _, row := range grid {
		sb.WriteString("|" + string(row) + "|\n")
	}
	sb.WriteString("+" + strings.Repeat("-", gridCols) + "+\n")
	for _, id := range ids {
		p := w.Players[id]
		marker := " "
		if id == f.Self {
			marker = "*"
		}
		status := "alive"
		if !p.Alive {
			left := math.Max(0, (p.RespawnAt - w.Clock).Seconds())
			status = fmt.Sprintf("respawn in %.1fs", left)
		}
		fmt.Fprintf(&sb, "%s %-8.8s %6d  %s\n", marker, id, p.Score, status)
	}
	if w.GameOver {
		sb.WriteString("GAME OVER")
		if f.IsHost {
			sb.WriteString("  press r to restart")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("w/a/s/d or arrows to fly, space to fire, q to quit\n")
	return sb.String()
}
