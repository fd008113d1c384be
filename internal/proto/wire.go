package proto

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers follow api.proto. Zero values are omitted on the wire,
// matching proto3 semantics.

func appendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	if !v {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, 1)
}

func appendMessage(b []byte, num protowire.Number, msg []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, msg)
}

// fieldScanner walks a protobuf buffer and hands every field to visit.
// Unknown fields are skipped, per proto3 decoding rules.
func scanFields(data []byte, visit func(num protowire.Number, typ protowire.Type, payload []byte) (int, error)) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}
		data = data[n:]

		used, err := visit(num, typ, data)
		if err != nil {
			return err
		}
		if used < 0 {
			used = protowire.ConsumeFieldValue(num, typ, data)
			if used < 0 {
				return protowire.ParseError(used)
			}
		}
		data = data[used:]
	}
	return nil
}

func consumeString(data []byte) (string, int, error) {
	v, n := protowire.ConsumeString(data)
	if n < 0 {
		return "", 0, protowire.ParseError(n)
	}
	return v, n, nil
}

func consumeBytes(data []byte) ([]byte, int, error) {
	v, n := protowire.ConsumeBytes(data)
	if n < 0 {
		return nil, 0, protowire.ParseError(n)
	}
	return v, n, nil
}

func consumeBool(data []byte) (bool, int, error) {
	v, n := protowire.ConsumeVarint(data)
	if n < 0 {
		return false, 0, protowire.ParseError(n)
	}
	return v != 0, n, nil
}

// stringFields marshals/unmarshals messages that are a flat run of string
// fields numbered 1..n, which covers all four input messages.
func marshalStrings(fields ...string) []byte {
	var b []byte
	for i, v := range fields {
		b = appendString(b, protowire.Number(i+1), v)
	}
	return b
}

func unmarshalStrings(data []byte, fields ...*string) error {
	return scanFields(data, func(num protowire.Number, typ protowire.Type, payload []byte) (int, error) {
		idx := int(num) - 1
		if idx < 0 || idx >= len(fields) || typ != protowire.BytesType {
			return -1, nil
		}
		v, n, err := consumeString(payload)
		if err != nil {
			return 0, err
		}
		*fields[idx] = v
		return n, nil
	})
}

// MarshalProto encodes the message per api.proto.
func (m *TopUpInput) MarshalProto() []byte {
	return marshalStrings(m.IdempotencyKey, m.UserID, m.Currency, m.Value, m.MerchantData)
}

// UnmarshalProto decodes the message per api.proto.
func (m *TopUpInput) UnmarshalProto(data []byte) error {
	return unmarshalStrings(data, &m.IdempotencyKey, &m.UserID, &m.Currency, &m.Value, &m.MerchantData)
}

// MarshalProto encodes the message per api.proto.
func (m *ReserveInput) MarshalProto() []byte {
	return marshalStrings(m.UserID, m.Currency, m.Value, m.OrderID, m.ItemID)
}

// UnmarshalProto decodes the message per api.proto.
func (m *ReserveInput) UnmarshalProto(data []byte) error {
	return unmarshalStrings(data, &m.UserID, &m.Currency, &m.Value, &m.OrderID, &m.ItemID)
}

// MarshalProto encodes the message per api.proto.
func (m *CommitInput) MarshalProto() []byte {
	return marshalStrings(m.UserID, m.Currency, m.Value, m.OrderID, m.ItemID)
}

// UnmarshalProto decodes the message per api.proto.
func (m *CommitInput) UnmarshalProto(data []byte) error {
	return unmarshalStrings(data, &m.UserID, &m.Currency, &m.Value, &m.OrderID, &m.ItemID)
}

// MarshalProto encodes the message per api.proto.
func (m *CancelInput) MarshalProto() []byte {
	return marshalStrings(m.UserID, m.OrderID, m.ItemID)
}

// UnmarshalProto decodes the message per api.proto.
func (m *CancelInput) UnmarshalProto(data []byte) error {
	return unmarshalStrings(data, &m.UserID, &m.OrderID, &m.ItemID)
}

// MarshalProto encodes the message per api.proto.
func (m *UserBalanceData) MarshalProto() []byte {
	var b []byte
	b = appendString(b, 1, m.UserID)
	b = appendString(b, 2, m.Currency)
	b = appendString(b, 3, m.Value)
	b = appendString(b, 4, m.ReservedValue)
	b = appendBool(b, 5, m.IsOverdraft)
	return b
}

// UnmarshalProto decodes the message per api.proto.
func (m *UserBalanceData) UnmarshalProto(data []byte) error {
	return scanFields(data, func(num protowire.Number, typ protowire.Type, payload []byte) (int, error) {
		switch {
		case num >= 1 && num <= 4 && typ == protowire.BytesType:
			v, n, err := consumeString(payload)
			if err != nil {
				return 0, err
			}
			switch num {
			case 1:
				m.UserID = v
			case 2:
				m.Currency = v
			case 3:
				m.Value = v
			case 4:
				m.ReservedValue = v
			}
			return n, nil
		case num == 5 && typ == protowire.VarintType:
			v, n, err := consumeBool(payload)
			if err != nil {
				return 0, err
			}
			m.IsOverdraft = v
			return n, nil
		}
		return -1, nil
	})
}

// MarshalProto encodes the error oneof per api.proto. The empty branches
// encode as an empty nested message, which is how proto3 distinguishes a
// present empty message from an absent one.
func (m *Error) MarshalProto() []byte {
	var b []byte
	switch {
	case m.UserNotFound != nil:
		b = appendMessage(b, 1, nil)
	case m.NotEnoughMoney != nil:
		b = appendMessage(b, 2, nil)
	case m.InvalidState != nil:
		b = appendMessage(b, 3, nil)
	case m.BadParameter != nil:
		b = appendMessage(b, 4, appendString(nil, 1, m.BadParameter.Name))
	}
	return b
}

// UnmarshalProto decodes the error oneof per api.proto.
func (m *Error) UnmarshalProto(data []byte) error {
	return scanFields(data, func(num protowire.Number, typ protowire.Type, payload []byte) (int, error) {
		if typ != protowire.BytesType || num < 1 || num > 4 {
			return -1, nil
		}
		body, n, err := consumeBytes(payload)
		if err != nil {
			return 0, err
		}
		switch num {
		case 1:
			m.UserNotFound = &UserNotFoundError{}
		case 2:
			m.NotEnoughMoney = &NotEnoughMoneyError{}
		case 3:
			m.InvalidState = &InvalidStateError{}
		case 4:
			bad := &BadParameterError{}
			if err := unmarshalStrings(body, &bad.Name); err != nil {
				return 0, fmt.Errorf("bad parameter error: %w", err)
			}
			m.BadParameter = bad
		}
		return n, nil
	})
}

// MarshalProto encodes the envelope per api.proto.
func (m *GenericOutput) MarshalProto() []byte {
	var b []byte
	if m.UserBalance != nil {
		b = appendMessage(b, 1, m.UserBalance.MarshalProto())
	}
	if m.Error != nil {
		b = appendMessage(b, 2, m.Error.MarshalProto())
	}
	return b
}

// UnmarshalProto decodes the envelope per api.proto.
func (m *GenericOutput) UnmarshalProto(data []byte) error {
	return scanFields(data, func(num protowire.Number, typ protowire.Type, payload []byte) (int, error) {
		if typ != protowire.BytesType || (num != 1 && num != 2) {
			return -1, nil
		}
		body, n, err := consumeBytes(payload)
		if err != nil {
			return 0, err
		}
		switch num {
		case 1:
			ub := &UserBalanceData{}
			if err := ub.UnmarshalProto(body); err != nil {
				return 0, fmt.Errorf("user balance: %w", err)
			}
			m.UserBalance = ub
		case 2:
			e := &Error{}
			if err := e.UnmarshalProto(body); err != nil {
				return 0, fmt.Errorf("error: %w", err)
			}
			m.Error = e
		}
		return n, nil
	})
}
