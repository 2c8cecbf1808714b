package room

type Conn interface {
	Send([]byte) error
	Close() error
}

// Subscribe: issued once per relay connection
type Subscribe struct {
	ID    string
	Conn  Conn
	Reply chan<- error
}

// Publish: one frame to fan out to every subscriber, the sender included
type Publish struct {
	From  string
	Frame []byte
}

// Unsubscribe: issued on disconnect
type Unsubscribe struct {
	ID string
}
