package game

import (
	"math"
	"time"
)

// Controls is one tick of captured input: held directional intents plus an
// optional pointer aim target.
type Controls struct {
	Up, Down, Left, Right bool
	Fire                  bool
	Restart               bool // host only, ends a game over
	Aim                   *Vec
}

// Steer applies controls to a ship's kinematics. The host runs it for its
// own ship, clients run it through Predict.
func Steer(p *Player, c Controls, dt time.Duration, edge EdgePolicy) {
	sec := ClampDt(dt).Seconds()
	p.Firing = c.Fire
	if c.Aim != nil {
		d := c.Aim.Sub(p.Pos)
		if d.X != 0 || d.Y != 0 {
			p.Heading = math.Atan2(d.Y, d.X)
		}
	} else {
		if c.Left {
			p.Heading -= TurnRate * sec
		}
		if c.Right {
			p.Heading += TurnRate * sec
		}
	}

	thrust := 0.0
	if c.Up {
		thrust += Thrust
	}
	if c.Down {
		thrust -= Thrust * ReverseThrustMult
	}
	p.Vel = p.Vel.Add(heading(p.Heading).Scale(thrust * sec))
	p.Vel = p.Vel.Scale(math.Pow(DragPerFrame, sec*DragFrameHz))
	p.Pos = p.Pos.Add(p.Vel.Scale(sec))
	if edge == EdgeWrap {
		p.Pos = wrapVec(p.Pos)
	} else {
		p.Pos = ClampToArena(p.Pos)
	}
}

// Predict advances only the local player between snapshots: ship
// kinematics, cooldown and cosmetic bullet travel. Rocks, other players and
// every collision wait for the host.
func Predict(w *World, id string, c Controls, dt time.Duration, edge EdgePolicy) {
	p, ok := w.Players[id]
	if !ok || !p.Alive || w.GameOver {
		return
	}
	dt = ClampDt(dt)
	Steer(p, c, dt, edge)
	p.Bullets = advanceBullets(p.Bullets, dt.Seconds(), edge)
	tickWeapon(p, dt.Seconds())
}
