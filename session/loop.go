package session

import (
	"context"
	"time"

	"arena/game"
)

// InputSource supplies the controls held right now.
type InputSource interface {
	Controls() game.Controls
}

// Renderer presents a frame. It must not modify the World.
type Renderer interface {
	Render(f Frame)
}

type Frame struct {
	World  *game.World
	Self   string
	IsHost bool
	Token  string
	Peers  int
}

// Run drives the session at the frame rate until ctx ends: capture input,
// tick, render. A late frame is absorbed by the dt clamp, never replayed.
func (s *Session) Run(ctx context.Context, in InputSource, r Renderer) error {
	s.Start()
	ticker := time.NewTicker(s.frame)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			dt := now.Sub(last)
			last = now
			s.Tick(dt, in.Controls())
			r.Render(s.Frame())
		}
	}
}
