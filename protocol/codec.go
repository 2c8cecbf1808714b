package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Codec is a wire encoding for envelopes and their payloads. Both codecs
// share the json struct tags.
type Codec interface {
	Name() string
	encodeEnvelope(t, from string, payload any) ([]byte, error)
	decodeEnvelope(b []byte) (Envelope, error)
	unmarshal(p []byte, v any) error
}

var (
	JSON    Codec = jsonCodec{}
	Msgpack Codec = msgpackCodec{}
)

func CodecByName(name string) (Codec, error) {
	switch name {
	case "", "json":
		return JSON, nil
	case "msgpack":
		return Msgpack, nil
	}
	return nil, fmt.Errorf("unknown codec %q", name)
}

func Encode(c Codec, t, from string, payload any) ([]byte, error) {
	if t == "" {
		return nil, fmt.Errorf("trying to encode envelope type nil")
	}
	if payload == nil {
		return nil, fmt.Errorf("trying to encode nil payload")
	}
	return c.encodeEnvelope(t, from, payload)
}

func DecodeEnvelope(c Codec, b []byte) (Envelope, error) {
	if len(b) == 0 {
		return Envelope{}, fmt.Errorf("Error trying to decode Envelope with byte size 0")
	}
	e, err := c.decodeEnvelope(b)
	if err != nil {
		return Envelope{}, err
	}
	if e.T == "" {
		return Envelope{}, fmt.Errorf("%w: t", ErrMissingField)
	}
	e.codec = c
	return e, nil
}

func DecodePayload[T any](env Envelope) (T, error) {
	var out T
	if len(env.P) == 0 {
		return out, fmt.Errorf("empty payload for type %q", env.T)
	}
	c := env.codec
	if c == nil {
		c = JSON
	}
	err := c.unmarshal(env.P, &out)
	return out, err
}

type jsonCodec struct{}

type jsonEnvelope struct {
	T    string          `json:"t"`
	From string          `json:"from,omitempty"`
	P    json.RawMessage `json:"p"`
}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) encodeEnvelope(t, from string, payload any) ([]byte, error) {
	pb, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(jsonEnvelope{T: t, From: from, P: pb})
}

func (jsonCodec) decodeEnvelope(b []byte) (Envelope, error) {
	var e jsonEnvelope
	if err := json.Unmarshal(b, &e); err != nil {
		return Envelope{}, err
	}
	return Envelope{T: e.T, From: e.From, P: e.P}, nil
}

func (jsonCodec) unmarshal(p []byte, v any) error {
	return json.Unmarshal(p, v)
}

type msgpackCodec struct{}

type msgpackEnvelope struct {
	T    string             `json:"t"`
	From string             `json:"from,omitempty"`
	P    msgpack.RawMessage `json:"p"`
}

func (msgpackCodec) Name() string { return "msgpack" }

func (m msgpackCodec) encodeEnvelope(t, from string, payload any) ([]byte, error) {
	pb, err := m.marshal(payload)
	if err != nil {
		return nil, err
	}
	return m.marshal(msgpackEnvelope{T: t, From: from, P: pb})
}

func (m msgpackCodec) decodeEnvelope(b []byte) (Envelope, error) {
	var e msgpackEnvelope
	if err := m.unmarshal(b, &e); err != nil {
		return Envelope{}, err
	}
	return Envelope{T: e.T, From: e.From, P: e.P}, nil
}

func (msgpackCodec) marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (msgpackCodec) unmarshal(p []byte, v any) error {
	dec := msgpack.NewDecoder(bytes.NewReader(p))
	dec.SetCustomStructTag("json")
	return dec.Decode(v)
}
