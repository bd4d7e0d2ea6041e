package main

import (
	"bytes"

	"github.com/vmihailenco/msgpack/v5"
)

// encodeMsgpack uses msgpack tags where present and json tags otherwise
func encodeMsgpack(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
