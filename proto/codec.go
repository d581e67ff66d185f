// Package proto 定義 ledger.LedgerService 的 gRPC 服務描述與訊息
//
// 訊息是手寫的 Go struct，不是 protoc 產生的 protobuf 型別；
// 線上格式為 JSON (content-type application/grpc+json)，不是 protobuf 二進位。
// 服務與方法名稱沿用 /ledger.LedgerService/<Method>，protobuf 客戶端無法直接互通，
// 需帶上 grpc.CallContentSubtype(CodecName) 或使用本套件的 NewLedgerServiceClient
package proto

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// CodecName 是 gRPC content-subtype，呼叫端需帶上 grpc.CallContentSubtype(CodecName)
const CodecName = "json"

// jsonCodec 以 JSON 編碼 gRPC 訊息 (application/grpc+json)
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return CodecName
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
