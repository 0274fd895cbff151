// Package grpc serves the appointments API over gRPC. Messages are plain Go
// structs carried by the "json" codec, so clients must call with the json
// content-subtype (grpc.CallContentSubtype("json") or grpc.ForceCodec(Codec{})).
// Stock protobuf clients cannot talk to this service.
package grpc

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc/encoding"
)

// CodecName is the content-subtype the appointments service speaks.
const CodecName = "json"

func init() {
	encoding.RegisterCodec(Codec{})
}

// Codec encodes messages as JSON. The service messages are plain Go structs,
// so the default proto codec cannot carry them.
type Codec struct{}

func (Codec) Marshal(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("json codec: marshal %T: %w", v, err)
	}
	return b, nil
}

func (Codec) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("json codec: unmarshal %T: %w", v, err)
	}
	return nil
}

func (Codec) Name() string {
	return CodecName
}
