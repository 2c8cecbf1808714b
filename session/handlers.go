package session

import (
	"arena/game"
	"arena/protocol"
)

func (s *Session) handle(env protocol.Envelope) {
	if env.From == s.self {
		return
	}
	m, err := protocol.Parse(env)
	if err != nil {
		return
	}
	switch m := m.(type) {
	case protocol.Join:
		if s.host && senderMatches(env, m.ID) {
			s.onJoin(m)
		}
	case protocol.Input:
		if s.host && senderMatches(env, m.ID) {
			s.onInput(m)
		}
	case protocol.Snapshot:
		if !s.host && s.fromHost(env) {
			s.applySnapshot(m)
		}
	}
}

// hostIdentity is implemented by transports that learn who the host is,
// such as the mesh client from the host's hello.
type hostIdentity interface {
	HostID() string
}

// fromHost accepts snapshots from one sender only: the host the transport
// knows, or else whoever sent the first snapshot.
func (s *Session) fromHost(env protocol.Envelope) bool {
	if h, ok := s.t.(hostIdentity); ok && h.HostID() != "" {
		return env.From == h.HostID()
	}
	if s.hostID == "" {
		s.hostID = env.From
	}
	return env.From == s.hostID
}

// senderMatches keeps a participant from speaking for another identity.
func senderMatches(env protocol.Envelope, id string) bool {
	return env.From == "" || env.From == id
}

// onJoin registers the newcomer and answers with a full snapshot at once
// so it is not blind until the next periodic broadcast.
func (s *Session) onJoin(m protocol.Join) {
	_, known := s.world.Players[m.ID]
	s.engine.AddPlayer(s.world, m.ID)
	if !known {
		s.logger.Printf("player %s joined (%d players)", m.ID, len(s.world.Players))
	}
	s.broadcastSnapshot()
}

// onInput overwrites the sender's ship with its prediction. Only the
// position is checked, and only against the arena bounds.
func (s *Session) onInput(m protocol.Input) {
	p, ok := s.world.Players[m.ID]
	if !ok {
		return
	}
	if !p.Alive || s.world.GameOver {
		p.Firing = false
		return
	}
	p.Pos = game.ClampToArena(vecFromWire(*m.Position))
	p.Vel = vecFromWire(*m.Velocity)
	p.Heading = *m.Heading
	p.Firing = m.Shooting
}

func (s *Session) broadcastSnapshot() {
	s.send(BuildSnapshot(s.world))
}

// applySnapshot replaces the replica wholesale. Our own entry is taken from
// the host as well, a visible snap is the accepted cost.
func (s *Session) applySnapshot(m protocol.Snapshot) {
	ApplySnapshot(s.world, m)
	if _, ok := s.world.Players[s.self]; !ok {
		s.engine.AddPlayer(s.world, s.self)
	}
}
