package grpcsvc

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// DTO витрины переводятся в structpb через их JSON-представление,
// поэтому поля в gRPC и HTTP ответах называются одинаково.
// Числа в structpb - double: цены и суммы точны до 2^53.

func toStruct(v any) (*structpb.Struct, error) {
	out := &structpb.Struct{}
	if err := jsonToProto(v, out); err != nil {
		return nil, err
	}
	return out, nil
}

func toListValue(v any) (*structpb.ListValue, error) {
	out := &structpb.ListValue{}
	if err := jsonToProto(v, out); err != nil {
		return nil, err
	}
	return out, nil
}

func jsonToProto(v any, out proto.Message) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal dto: %w", err)
	}
	if err := protojson.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode dto into %T: %w", out, err)
	}
	return nil
}

func fromProto(in proto.Message, v any) error {
	data, err := protojson.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal %T: %w", in, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %T into dto: %w", in, err)
	}
	return nil
}
