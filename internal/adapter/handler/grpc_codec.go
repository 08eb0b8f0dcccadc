package handler

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// jsonCodec lets the command service run over gRPC with plain Go structs
// instead of generated protobuf messages. Clients select it with
// grpc.CallContentSubtype("json").
type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Unmarshal(data []byte, v interface{}) error { return json.Unmarshal(data, v) }

func (jsonCodec) Name() string { return "json" }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
