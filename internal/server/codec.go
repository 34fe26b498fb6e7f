package server

import (
	"encoding/json"
	"fmt"
)

// jsonCodec lets connect carry plain Go structs. It is registered under both
// JSON content-type names, replacing the built-in protojson codecs.
type jsonCodec struct {
	name string
}

var (
	jsonCodecPlain = jsonCodec{name: "json"}
	jsonCodecUTF8  = jsonCodec{name: "json; charset=utf-8"}
)

func (c jsonCodec) Name() string { return c.name }

func (jsonCodec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

func (jsonCodec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, msg); err != nil {
		return fmt.Errorf("failed to decode json message: %w", err)
	}
	return nil
}
