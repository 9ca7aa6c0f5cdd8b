package worklogv1

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// CodecName は WorkEntryService のメッセージに使うコーデック名です。
// クライアントは grpc.CallContentSubtype(CodecName) を指定して呼び出します。
const CodecName = "json"

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return CodecName
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
