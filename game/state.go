package game

import (
	"fmt"
	"math"
	"time"
)

// Internal truth authoritative game state

type Vec struct {
	X, Y float64
}

func (v Vec) Add(o Vec) Vec       { return Vec{v.X + o.X, v.Y + o.Y} }
func (v Vec) Sub(o Vec) Vec       { return Vec{v.X - o.X, v.Y - o.Y} }
func (v Vec) Scale(k float64) Vec { return Vec{v.X * k, v.Y * k} }
func (v Vec) Len() float64        { return math.Hypot(v.X, v.Y) }
func (v Vec) Dist(o Vec) float64  { return v.Sub(o).Len() }
func (v Vec) InArena() bool       { return v.X >= 0 && v.X <= ArenaWidth && v.Y >= 0 && v.Y <= ArenaHeight }
func heading(rad float64) Vec     { return Vec{math.Cos(rad), math.Sin(rad)} }
func (v Vec) String() string      { return fmt.Sprintf("(%.1f,%.1f)", v.X, v.Y) }

type World struct {
	Clock    time.Duration // simulation time, the sum of every clamped dt
	Players  map[string]*Player
	Rocks    []Rock
	GameOver bool
}

func NewWorld() *World {
	return &World{Players: make(map[string]*Player)}
}

type Player struct {
	ID        string
	Pos, Vel  Vec
	Heading   float64
	Alive     bool
	RespawnAt time.Duration // on the World clock, only meaningful while dead
	Score     uint32
	Color     string
	Bullets   []Bullet

	LastShotElapsed float64
	Firing          bool // latest fire intent, local controls or the owner's input
}

type Bullet struct {
	Pos, Vel Vec
	Age      float64
}

func (b Bullet) dead() bool { return b.Age > BulletLifetime }

type Rock struct {
	Pos, Vel Vec
	Radius   float64
}

// AlivePlayers counts players currently in the arena.
func (w *World) AlivePlayers() int {
	n := 0
	for _, p := range w.Players {
		if p.Alive {
			n++
		}
	}
	return n
}
