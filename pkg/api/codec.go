// Package api defines the settleup.v1 Connect services: request and response
// messages, procedure names, handler constructors and typed clients.
//
// Messages are plain Go structs carried by a JSON codec, so any Connect or
// plain HTTP client can talk to the server with `Content-Type: application/json`.
package api

import (
	"encoding/json"
	"strings"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

// Codec marshals messages as JSON. Protobuf messages such as emptypb.Empty
// go through protojson, everything else through encoding/json.
type Codec struct{}

var _ connect.Codec = Codec{}

// Name implements connect.Codec. It replaces Connect's default JSON codec.
func (Codec) Name() string { return "json" }

// Marshal implements connect.Codec.
func (Codec) Marshal(v any) ([]byte, error) {
	if m, ok := v.(proto.Message); ok {
		return protojson.Marshal(m)
	}
	return json.Marshal(v)
}

// Unmarshal implements connect.Codec.
func (Codec) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	if m, ok := v.(proto.Message); ok {
		return protojson.UnmarshalOptions{DiscardUnknown: true}.Unmarshal(data, m)
	}
	return json.Unmarshal(data, v)
}

func handlerOptions(opts []connect.HandlerOption) []connect.HandlerOption {
	return append([]connect.HandlerOption{connect.WithCodec(Codec{})}, opts...)
}

func clientOptions(opts []connect.ClientOption) []connect.ClientOption {
	return append([]connect.ClientOption{connect.WithCodec(Codec{})}, opts...)
}

func trimBase(baseURL string) string {
	return strings.TrimRight(baseURL, "/")
}
