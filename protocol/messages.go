package protocol

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrMissingField = errors.New("missing field")
	ErrUnknownType  = errors.New("unknown message type")
)

type Vec struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (v Vec) finite() bool {
	return !math.IsNaN(v.X) && !math.IsInf(v.X, 0) && !math.IsNaN(v.Y) && !math.IsInf(v.Y, 0)
}

// Message is the closed set of gameplay messages: Join, Input, Snapshot.
type Message interface {
	Type() string
	validate() error
}

type Hello struct {
	HostID string `json:"hostId"`
	Room   string `json:"room"`
}

type Join struct {
	ID string `json:"id"`
}

// Input is a client's locally predicted ship, sent at InputHz. Pointer
// fields tell a missing value apart from a zero one.
type Input struct {
	ID       string   `json:"id"`
	Position *Vec     `json:"pos"`
	Velocity *Vec     `json:"vel"`
	Heading  *float64 `json:"rot"`
	Shooting bool     `json:"shooting,omitempty"`
}

// Snapshot is the entire world, never a delta.
type Snapshot struct {
	GameOver bool          `json:"gameOver"`
	ClockNs  int64         `json:"clock"`
	Rocks    []RockState   `json:"rocks"`
	Players  []PlayerState `json:"players"`
}

// PlayerState and RockState carry their kinematics as pointers for the same
// reason Input does: a snapshot missing them is dropped, not zeroed.
type PlayerState struct {
	ID          string        `json:"id"`
	Pos         *Vec          `json:"pos"`
	Vel         *Vec          `json:"vel"`
	Heading     float64       `json:"rot"`
	Alive       *bool         `json:"alive"`
	RespawnAtNs int64         `json:"respawnAt,omitempty"`
	Score       uint32        `json:"score"`
	Color       string        `json:"color"`
	Bullets     []BulletState `json:"bullets"`
	LastShot    float64       `json:"lastShot"`
	Firing      bool          `json:"firing,omitempty"`
}

type BulletState struct {
	Pos Vec     `json:"pos"`
	Vel Vec     `json:"vel"`
	Age float64 `json:"t"`
}

type RockState struct {
	Pos    *Vec     `json:"pos"`
	Vel    *Vec     `json:"vel"`
	Radius *float64 `json:"r"`
}

func (Join) Type() string     { return MsgJoin }
func (Input) Type() string    { return MsgInput }
func (Snapshot) Type() string { return MsgSnapshot }

func (j Join) validate() error {
	if j.ID == "" {
		return fmt.Errorf("%w: join.id", ErrMissingField)
	}
	return nil
}

func (in Input) validate() error {
	switch {
	case in.ID == "":
		return fmt.Errorf("%w: input.id", ErrMissingField)
	case !finiteVec(in.Position):
		return fmt.Errorf("%w: input.pos", ErrMissingField)
	case !finiteVec(in.Velocity):
		return fmt.Errorf("%w: input.vel", ErrMissingField)
	case in.Heading == nil || math.IsNaN(*in.Heading) || math.IsInf(*in.Heading, 0):
		return fmt.Errorf("%w: input.rot", ErrMissingField)
	}
	return nil
}

func finiteVec(v *Vec) bool { return v != nil && v.finite() }

func (s Snapshot) validate() error {
	if s.Players == nil {
		return fmt.Errorf("%w: snapshot.players", ErrMissingField)
	}
	if s.Rocks == nil {
		return fmt.Errorf("%w: snapshot.rocks", ErrMissingField)
	}
	for i, p := range s.Players {
		switch {
		case p.ID == "":
			return fmt.Errorf("%w: snapshot.players[%d].id", ErrMissingField, i)
		case !finiteVec(p.Pos):
			return fmt.Errorf("%w: snapshot.players[%d].pos", ErrMissingField, i)
		case !finiteVec(p.Vel):
			return fmt.Errorf("%w: snapshot.players[%d].vel", ErrMissingField, i)
		case p.Alive == nil:
			return fmt.Errorf("%w: snapshot.players[%d].alive", ErrMissingField, i)
		}
	}
	for i, r := range s.Rocks {
		switch {
		case !finiteVec(r.Pos):
			return fmt.Errorf("%w: snapshot.rocks[%d].pos", ErrMissingField, i)
		case !finiteVec(r.Vel):
			return fmt.Errorf("%w: snapshot.rocks[%d].vel", ErrMissingField, i)
		case r.Radius == nil || math.IsNaN(*r.Radius) || math.IsInf(*r.Radius, 0):
			return fmt.Errorf("%w: snapshot.rocks[%d].r", ErrMissingField, i)
		}
	}
	return nil
}

// Parse decodes and validates a gameplay message. Any error means the
// message should be dropped.
func Parse(env Envelope) (Message, error) {
	var (
		m   Message
		err error
	)
	switch env.T {
	case MsgJoin:
		m, err = DecodePayload[Join](env)
	case MsgInput:
		m, err = DecodePayload[Input](env)
	case MsgSnapshot:
		m, err = DecodePayload[Snapshot](env)
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownType, env.T)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", env.T, err)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return m, nil
}
