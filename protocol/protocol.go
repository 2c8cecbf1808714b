package protocol

import "time"

const (
	MsgHello    = "hello" // mesh host -> client on connect, consumed by the transport
	MsgJoin     = "join"
	MsgInput    = "input"
	MsgSnapshot = "snapshot"
)

const (
	FrameHz    = 60
	InputHz    = 15
	SnapshotHz = 12
)

// Period turns a rate into the accumulator threshold used by the loop.
func Period(hz int) time.Duration {
	if hz <= 0 {
		return 0
	}
	return time.Second / time.Duration(hz)
}

// Envelope is one message on the wire. From is the sender's identity; P
// stays encoded until DecodePayload so unknown types cost nothing.
type Envelope struct {
	T    string
	From string
	P    []byte

	codec Codec
}
