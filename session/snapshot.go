package session

import (
	"maps"
	"slices"
	"time"

	"arena/game"
	"arena/protocol"
)

func vecToWire(v game.Vec) protocol.Vec   { return protocol.Vec{X: v.X, Y: v.Y} }
func vecFromWire(v protocol.Vec) game.Vec { return game.Vec{X: v.X, Y: v.Y} }

func ptr[T any](v T) *T { return &v }

// deref reads an optional wire field; Parse has already rejected snapshots
// missing the required ones.
func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

// BuildSnapshot describes the whole world, players in id order.
func BuildSnapshot(w *game.World) protocol.Snapshot {
	snap := protocol.Snapshot{
		GameOver: w.GameOver,
		ClockNs:  int64(w.Clock),
		Rocks:    make([]protocol.RockState, 0, len(w.Rocks)),
		Players:  make([]protocol.PlayerState, 0, len(w.Players)),
	}
	for _, r := range w.Rocks {
		snap.Rocks = append(snap.Rocks, protocol.RockState{
			Pos:    ptr(vecToWire(r.Pos)),
			Vel:    ptr(vecToWire(r.Vel)),
			Radius: ptr(r.Radius),
		})
	}
	for _, id := range slices.Sorted(maps.Keys(w.Players)) {
		p := w.Players[id]
		ps := protocol.PlayerState{
			ID:          p.ID,
			Pos:         ptr(vecToWire(p.Pos)),
			Vel:         ptr(vecToWire(p.Vel)),
			Heading:     p.Heading,
			Alive:       ptr(p.Alive),
			RespawnAtNs: int64(p.RespawnAt),
			Score:       p.Score,
			Color:       p.Color,
			Bullets:     make([]protocol.BulletState, 0, len(p.Bullets)),
			LastShot:    p.LastShotElapsed,
			Firing:      p.Firing,
		}
		for _, b := range p.Bullets {
			ps.Bullets = append(ps.Bullets, protocol.BulletState{
				Pos: vecToWire(b.Pos),
				Vel: vecToWire(b.Vel),
				Age: b.Age,
			})
		}
		snap.Players = append(snap.Players, ps)
	}
	return snap
}

// ApplySnapshot rebuilds rocks and players from a snapshot. Players missing
// from the snapshot are gone afterwards.
func ApplySnapshot(w *game.World, snap protocol.Snapshot) {
	w.GameOver = snap.GameOver
	w.Clock = time.Duration(snap.ClockNs)

	w.Rocks = make([]game.Rock, 0, len(snap.Rocks))
	for _, r := range snap.Rocks {
		w.Rocks = append(w.Rocks, game.Rock{
			Pos:    vecFromWire(deref(r.Pos)),
			Vel:    vecFromWire(deref(r.Vel)),
			Radius: deref(r.Radius),
		})
	}

	w.Players = make(map[string]*game.Player, len(snap.Players))
	for _, ps := range snap.Players {
		p := &game.Player{
			ID:              ps.ID,
			Pos:             vecFromWire(deref(ps.Pos)),
			Vel:             vecFromWire(deref(ps.Vel)),
			Heading:         ps.Heading,
			Alive:           deref(ps.Alive),
			RespawnAt:       time.Duration(ps.RespawnAtNs),
			Score:           ps.Score,
			Color:           ps.Color,
			LastShotElapsed: ps.LastShot,
			Firing:          ps.Firing,
		}
		for _, b := range ps.Bullets {
			p.Bullets = append(p.Bullets, game.Bullet{
				Pos: vecFromWire(b.Pos),
				Vel: vecFromWire(b.Vel),
				Age: b.Age,
			})
		}
		w.Players[ps.ID] = p
	}
}

func inputFrom(p *game.Player) protocol.Input {
	pos, vel, rot := vecToWire(p.Pos), vecToWire(p.Vel), p.Heading
	return protocol.Input{
		ID:       p.ID,
		Position: &pos,
		Velocity: &vel,
		Heading:  &rot,
		Shooting: p.Firing,
	}
}
