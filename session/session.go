// Package session runs one participant: the host's authoritative tick or a
// client's prediction, the join/input/snapshot exchange, and the frame loop
// that ties them to input capture and rendering.
package session

import (
	"log"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"arena/game"
	"arena/protocol"
	"arena/transport"
)

const inboxSize = 256

type Options struct {
	Edge       game.EdgePolicy
	Rocks      int
	SnapshotHz int
	InputHz    int
	FrameHz    int
	Rand       *rand.Rand // nil for a randomly seeded source
	Logger     *log.Logger
}

func (o *Options) defaults() {
	if o.SnapshotHz <= 0 {
		o.SnapshotHz = protocol.SnapshotHz
	}
	if o.InputHz <= 0 {
		o.InputHz = protocol.InputHz
	}
	if o.FrameHz <= 0 {
		o.FrameHz = protocol.FrameHz
	}
	if o.Rocks < 0 {
		o.Rocks = 0
	}
}

// Session owns a participant's World. Inbound messages are queued by the
// transport's goroutines and applied at the start of the next Tick, so the
// World only ever changes on the loop's goroutine.
type Session struct {
	t      transport.Transport
	self   string
	host   bool
	world  *game.World
	engine *game.Engine
	logger *log.Logger

	inbox chan protocol.Envelope
	peers atomic.Int32

	frame          time.Duration
	snapshotPeriod time.Duration
	inputPeriod    time.Duration
	snapshotAcc    time.Duration
	inputAcc       time.Duration
	joined         bool
	hostID         string // client: sender of the snapshots we follow
}

func New(t transport.Transport, opts Options) *Session {
	opts.defaults()
	s := &Session{
		t:              t,
		self:           t.MyID(),
		host:           t.IsHost(),
		world:          game.NewWorld(),
		engine:         game.NewEngine(opts.Edge, opts.Rocks, opts.Rand),
		logger:         opts.Logger,
		inbox:          make(chan protocol.Envelope, inboxSize),
		frame:          protocol.Period(opts.FrameHz),
		snapshotPeriod: protocol.Period(opts.SnapshotHz),
		inputPeriod:    protocol.Period(opts.InputHz),
	}
	if s.logger == nil {
		s.logger = log.Default()
	}
	if s.host {
		s.engine.SpawnRocks(s.world, opts.Rocks)
	}
	s.engine.AddPlayer(s.world, s.self)
	t.OnMessage(s.enqueue)
	t.OnPeersChange(func(n int) { s.peers.Store(int32(n)) })
	return s
}

func (s *Session) IsHost() bool         { return s.host }
func (s *Session) Self() string         { return s.self }
func (s *Session) World() *game.World   { return s.world }
func (s *Session) Engine() *game.Engine { return s.engine }

// Start announces a client to the host. Hosts have nothing to announce.
func (s *Session) Start() {
	if s.host || s.joined {
		return
	}
	s.joined = true
	s.send(protocol.Join{ID: s.self})
}

// enqueue runs on transport goroutines; a full inbox drops the message,
// the protocol tolerates loss.
func (s *Session) enqueue(env protocol.Envelope) {
	select {
	case s.inbox <- env:
	default:
		s.logger.Printf("inbox full, dropped %s from %s", env.T, env.From)
	}
}

func (s *Session) send(m protocol.Message) {
	if err := s.t.Send(m.Type(), m); err != nil {
		s.logger.Printf("send %s: %v", m.Type(), err)
	}
}

// Tick is one loop iteration minus rendering: apply queued messages, then
// simulate (host) or predict (client), then emit on cadence.
func (s *Session) Tick(dt time.Duration, c game.Controls) {
	dt = game.ClampDt(dt)
	s.drain()
	if s.host {
		s.hostTick(dt, c)
	} else {
		s.clientTick(dt, c)
	}
}

func (s *Session) drain() {
	for {
		select {
		case env := <-s.inbox:
			s.handle(env)
		default:
			return
		}
	}
}

func (s *Session) hostTick(dt time.Duration, c game.Controls) {
	if c.Restart && s.world.GameOver {
		s.engine.Restart(s.world)
		s.broadcastSnapshot()
	}
	if me, ok := s.world.Players[s.self]; ok && me.Alive && !s.world.GameOver {
		game.Steer(me, c, dt, s.engine.Edge)
	}
	s.engine.Step(s.world, dt)

	s.snapshotAcc += dt
	if s.snapshotAcc >= s.snapshotPeriod {
		s.snapshotAcc = 0
		s.broadcastSnapshot()
	}
}

func (s *Session) clientTick(dt time.Duration, c game.Controls) {
	game.Predict(s.world, s.self, c, dt, s.engine.Edge)

	s.inputAcc += dt
	if s.inputAcc >= s.inputPeriod {
		s.inputAcc = 0
		if me, ok := s.world.Players[s.self]; ok {
			s.send(inputFrom(me))
		}
	}
}

// Frame is what the renderer gets each tick.
func (s *Session) Frame() Frame {
	return Frame{
		World:  s.world,
		Self:   s.self,
		IsHost: s.host,
		Token:  s.t.Token(),
		Peers:  int(s.peers.Load()),
	}
}
