package game

import (
	"fmt"
	"maps"
	"math"
	"math/rand/v2"
	"slices"
	"time"
)

// EdgePolicy decides what happens to bullets and rocks leaving the arena.
type EdgePolicy uint8

const (
	EdgeWrap EdgePolicy = iota
	EdgeCull            // bullets are dropped, rocks respawn in place
)

func ParseEdgePolicy(s string) (EdgePolicy, error) {
	switch s {
	case "", "wrap":
		return EdgeWrap, nil
	case "cull":
		return EdgeCull, nil
	}
	return EdgeWrap, fmt.Errorf("unknown edge policy %q", s)
}

// Engine advances a World on the host. It owns the random source and the
// arena rules, the World itself is passed in.
type Engine struct {
	Edge      EdgePolicy
	RockCount int
	rng       *rand.Rand
}

// NewEngine returns an engine; a nil rng gets a randomly seeded source.
func NewEngine(edge EdgePolicy, rockCount int, rng *rand.Rand) *Engine {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Engine{Edge: edge, RockCount: rockCount, rng: rng}
}

// ClampDt bounds a frame delta so a stall never turns into one huge step.
func ClampDt(dt time.Duration) time.Duration {
	if dt < 0 {
		return 0
	}
	if dt > MaxFrameDt {
		return MaxFrameDt
	}
	return dt
}

func (e *Engine) between(a, b float64) float64 {
	return a + e.rng.Float64()*(b-a)
}

func (e *Engine) SpawnRocks(w *World, n int) {
	for i := 0; i < n; i++ {
		var r Rock
		e.respawnRock(&r)
		w.Rocks = append(w.Rocks, r)
	}
}

func (e *Engine) respawnRock(r *Rock) {
	r.Pos = Vec{e.between(0, ArenaWidth), e.between(0, ArenaHeight)}
	r.Vel = Vec{e.between(-RockMaxSpeed, RockMaxSpeed), e.between(-RockMaxSpeed, RockMaxSpeed)}
	r.Radius = e.between(RockMinSpawnRadius, RockMaxSpawnRadius)
}

func (e *Engine) spawnPoint() Vec {
	return Vec{
		e.between(SpawnMargin, ArenaWidth-SpawnMargin),
		e.between(SpawnMargin, ArenaHeight-SpawnMargin),
	}
}

// AddPlayer registers id if it is new and returns its Player. Calling it for
// a known id returns the existing Player untouched.
func (e *Engine) AddPlayer(w *World, id string) *Player {
	if p, ok := w.Players[id]; ok {
		return p
	}
	p := &Player{
		ID:      id,
		Pos:     e.spawnPoint(),
		Heading: e.between(0, 2*math.Pi),
		Alive:   true,
		Color:   fmt.Sprintf("hsl(%d 90%% 60%%)", shipHues[e.rng.IntN(len(shipHues))]),
	}
	w.Players[id] = p
	return p
}

func (e *Engine) revive(p *Player) {
	p.Alive = true
	p.Pos = e.spawnPoint()
	p.Vel = Vec{}
	p.Bullets = nil
	p.RespawnAt = 0
}

func kill(p *Player, now time.Duration) {
	p.Alive = false
	p.RespawnAt = now + RespawnDelay
	p.Bullets = nil
	p.Firing = false
}

// Restart ends a game over: every player is back in the arena (scores kept)
// and the rock field is rebuilt at RockCount.
func (e *Engine) Restart(w *World) {
	w.GameOver = false
	for _, id := range sortedIDs(w) {
		e.revive(w.Players[id])
	}
	w.Rocks = w.Rocks[:0]
	e.SpawnRocks(w, e.RockCount)
}

func sortedIDs(w *World) []string {
	return slices.Sorted(maps.Keys(w.Players))
}

// ClampToArena pins a client-reported position inside the arena.
func ClampToArena(v Vec) Vec {
	return Vec{
		X: math.Min(math.Max(v.X, 0), ArenaWidth),
		Y: math.Min(math.Max(v.Y, 0), ArenaHeight),
	}
}

func wrap(v, max float64) float64 {
	if v < 0 {
		return v + max
	}
	if v > max {
		return v - max
	}
	return v
}

func wrapVec(v Vec) Vec {
	return Vec{wrap(v.X, ArenaWidth), wrap(v.Y, ArenaHeight)}
}

// advanceBullets moves, ages and culls a bullet slice in place.
func advanceBullets(bs []Bullet, sec float64, edge EdgePolicy) []Bullet {
	out := bs[:0]
	for _, b := range bs {
		b.Pos = b.Pos.Add(b.Vel.Scale(sec))
		b.Age += sec
		if b.dead() {
			continue
		}
		if edge == EdgeWrap {
			b.Pos = wrapVec(b.Pos)
		} else if !b.Pos.InArena() {
			continue
		}
		out = append(out, b)
	}
	return out
}

func pruneBullets(bs []Bullet) []Bullet {
	out := bs[:0]
	for _, b := range bs {
		if !b.dead() {
			out = append(out, b)
		}
	}
	return out
}

// tickWeapon runs the shot cooldown and fires when the player wants to.
func tickWeapon(p *Player, sec float64) {
	p.LastShotElapsed += sec
	if p.Firing && p.LastShotElapsed > ShotCooldown {
		Fire(p)
	}
}

// Fire spawns a bullet at the ship's nose and restarts the cooldown.
func Fire(p *Player) {
	dir := heading(p.Heading)
	p.LastShotElapsed = 0
	p.Bullets = append(p.Bullets, Bullet{
		Pos: p.Pos.Add(dir.Scale(ShipNose)),
		Vel: dir.Scale(BulletSpeed),
	})
}

// Step advances the world by dt. Nothing moves while the game is over.
func (e *Engine) Step(w *World, dt time.Duration) {
	dt = ClampDt(dt)
	if dt == 0 || w.GameOver {
		return
	}
	sec := dt.Seconds()
	w.Clock += dt
	now := w.Clock
	ids := sortedIDs(w)

	for _, id := range ids {
		p := w.Players[id]
		p.Bullets = advanceBullets(p.Bullets, sec, e.Edge)
		if p.Alive {
			tickWeapon(p, sec)
		}
	}

	for i := range w.Rocks {
		r := &w.Rocks[i]
		r.Pos = r.Pos.Add(r.Vel.Scale(sec))
		if e.Edge == EdgeWrap {
			r.Pos = wrapVec(r.Pos)
		} else if !r.Pos.InArena() {
			e.respawnRock(r)
		}
	}

	// Bullets first so a rock shot apart this tick is already resized
	// before ships are tested against it.
	for _, id := range ids {
		p := w.Players[id]
		for i := range p.Bullets {
			b := &p.Bullets[i]
			for j := range w.Rocks {
				r := &w.Rocks[j]
				if b.Pos.Dist(r.Pos) >= r.Radius {
					continue
				}
				p.Score += ScorePerHit
				b.Age = deadBulletAge
				r.Radius *= RockShrink
				if r.Radius < RockMinRadius {
					e.respawnRock(r)
				}
				break
			}
		}
		p.Bullets = pruneBullets(p.Bullets)
	}

	for _, id := range ids {
		p := w.Players[id]
		if !p.Alive {
			continue
		}
		for _, r := range w.Rocks {
			if p.Pos.Dist(r.Pos) < r.Radius+ShipRadius {
				kill(p, now)
				break
			}
		}
	}

	for _, id := range ids {
		p := w.Players[id]
		if !p.Alive && now >= p.RespawnAt {
			e.revive(p)
		}
	}

	if len(ids) > 0 && w.AlivePlayers() == 0 {
		w.GameOver = true
	}
}
