package game

import "time"

const (
	ArenaWidth         = 960.0
	ArenaHeight        = 640.0
	SpawnMargin        = 100.0 // players spawn at least this far from the edges
	ShipRadius         = 12.0
	ShipNose           = 14.0 // bullets leave from the tip of the hull
	TurnRate           = 3.0  // rad/s
	Thrust             = 160.0
	ReverseThrustMult  = 0.5
	DragPerFrame       = 0.99 // velocity kept per 1/DragFrameHz seconds
	DragFrameHz        = 60.0
	ShotCooldown       = 0.2 // seconds between shots
	BulletSpeed        = 320.0
	BulletLifetime     = 2.5 // seconds
	deadBulletAge      = 999.0
	RockMinSpawnRadius = 18.0
	RockMaxSpawnRadius = 38.0
	RockMaxSpeed       = 40.0 // per axis
	RockShrink         = 0.66
	RockMinRadius      = 12.0 // below this a hit rock respawns
	ScorePerHit        = 10
	DefaultRockCount   = 8
	RespawnDelay       = 7 * time.Second
	MaxFrameDt         = 50 * time.Millisecond
)

var shipHues = []int{0, 45, 90, 140, 200, 260, 300}
