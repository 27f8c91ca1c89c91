// Package stormcodec provides the storm codecs selectable for the gateway database.
package stormcodec

import (
	"bytes"

	"github.com/asdine/storm/v3/codec"
	"github.com/asdine/storm/v3/codec/json"
	"github.com/asdine/storm/v3/codec/msgpack"
	"github.com/pkg/errors"
	ucodec "github.com/ugorji/go/codec"
)

var (
	// CBOR encodes to and decodes from CBOR (Concise Binary Object Representation).
	// https://tools.ietf.org/html/rfc7049
	CBOR codec.MarshalUnmarshaler = &ugorji{name: "cbor", handle: &ucodec.CborHandle{}}
	// Binc encodes to and decodes from Binc.
	// See https://github.com/ugorji/binc
	Binc codec.MarshalUnmarshaler = &ugorji{name: "binc", handle: &ucodec.BincHandle{}}
)

// Default is the codec used when none is configured.
var Default = msgpack.Codec

// ByName returns the codec registered under the given name.
// An empty name returns the Default codec.
func ByName(name string) (codec.MarshalUnmarshaler, error) {
	switch name {
	case "":
		return Default, nil
	case msgpack.Codec.Name():
		return msgpack.Codec, nil
	case json.Codec.Name():
		return json.Codec, nil
	case CBOR.Name():
		return CBOR, nil
	case Binc.Name():
		return Binc, nil
	default:
		return nil, errors.Errorf("unknown codec: %s", name)
	}
}

type ugorji struct {
	name   string
	handle ucodec.Handle
}

func (c *ugorji) Marshal(v any) ([]byte, error) {
	var b bytes.Buffer
	enc := ucodec.NewEncoder(&b, c.handle)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

func (c *ugorji) Unmarshal(b []byte, v any) error {
	dec := ucodec.NewDecoder(bytes.NewReader(b), c.handle)
	return dec.Decode(v)
}

func (c *ugorji) Name() string {
	return c.name
}
