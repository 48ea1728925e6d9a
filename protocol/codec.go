package protocol

import (
	"encoding/json"
	"mime"
	"strings"

	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
)

// Encode wraps payload in an Envelope of type t. Websocket frames are always JSON.
func Encode(t string, payload any) ([]byte, error) {
	if t == "" {
		return nil, errors.New("encode: empty envelope type")
	}
	if payload == nil {
		return nil, errors.Errorf("encode %s: nil payload", t)
	}
	pb, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrapf(err, "encode %s", t)
	}
	return json.Marshal(Envelope{T: t, P: pb})
}

func DecodeEnvelope(b []byte) (Envelope, error) {
	if len(b) == 0 {
		return Envelope{}, errors.New("decode: empty frame")
	}
	var e Envelope
	if err := json.Unmarshal(b, &e); err != nil {
		return Envelope{}, errors.Wrap(err, "decode envelope")
	}
	if e.T == "" {
		return Envelope{}, errors.New("decode: envelope without type")
	}
	return e, nil
}

// DecodePayload returns the zero value of T on failure.
func DecodePayload[T any](env Envelope) (T, error) {
	var out T
	if len(env.P) == 0 {
		return out, errors.Errorf("decode %s: empty payload", env.T)
	}
	if err := json.Unmarshal(env.P, &out); err != nil {
		return out, errors.Wrapf(err, "decode %s", env.T)
	}
	return out, nil
}

// Codec serializes HTTP bodies.
type Codec interface {
	ContentType() string
	Marshal(v any) ([]byte, error)
	Unmarshal(b []byte, v any) error
}

const (
	ContentTypeJSON    = "application/json"
	ContentTypeMsgpack = "application/msgpack"
)

var (
	JSON    Codec = jsonCodec{}
	Msgpack Codec = msgpackCodec{}
)

type jsonCodec struct{}

func (jsonCodec) ContentType() string { return ContentTypeJSON }
func (jsonCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }
func (jsonCodec) Unmarshal(b []byte, v any) error { return json.Unmarshal(b, v) }

type msgpackCodec struct{}

func (msgpackCodec) ContentType() string { return ContentTypeMsgpack }
func (msgpackCodec) Marshal(v any) ([]byte, error) { return msgpack.Marshal(v) }
func (msgpackCodec) Unmarshal(b []byte, v any) error { return msgpack.Unmarshal(b, v) }

// CodecByName resolves a configured codec name.
func CodecByName(name string) (Codec, error) {
	switch strings.ToLower(name) {
	case "", "json":
		return JSON, nil
	case "msgpack":
		return Msgpack, nil
	}
	return nil, errors.Errorf("unknown codec %q", name)
}

// Negotiate picks the response codec from an Accept or Content-Type header value.
// Anything that does not name msgpack gets JSON.
func Negotiate(header string) Codec {
	for _, part := range strings.Split(header, ",") {
		mt, _, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		if mt == ContentTypeMsgpack || mt == "application/x-msgpack" {
			return Msgpack
		}
	}
	return JSON
}
