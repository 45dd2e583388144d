// Package adminrpc exposes a small control-plane surface over gRPC so an
// operator process can Start/Pause/Stop/GetVar/SetVar/Status an already
// initialized runtime running in a different process, grounded on the teacher's
// internal/server gRPC service.
//
// The request/response messages here are plain Go structs rather than
// protoc-generated types, so the wire encoding is handled by a small JSON
// codec (below) registered under the "json" content subtype instead of the
// default protobuf codec. This keeps the dependency on google.golang.org/grpc
// itself (transport, service registration, interceptors, deadlines) while
// avoiding a protoc-gen-go-grpc build step this repository cannot run.
package adminrpc

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc/encoding"
)

const codecName = "json"

type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("adminrpc: marshal: %w", err)
	}
	return b, nil
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("adminrpc: unmarshal: %w", err)
	}
	return nil
}

func (jsonCodec) Name() string { return codecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
