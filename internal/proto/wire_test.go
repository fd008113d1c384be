package proto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopUpInput_ProtoRoundTrip(t *testing.T) {
	in := &TopUpInput{
		IdempotencyKey: "key-1",
		UserID:         "user-1",
		Currency:       "USD",
		Value:          "100.50",
		MerchantData:   `{"source":"shop"}`,
	}

	var out TopUpInput
	require.NoError(t, out.UnmarshalProto(in.MarshalProto()))
	assert.Equal(t, *in, out)
}

func TestTopUpInput_ProtoOmitsEmptyFields(t *testing.T) {
	in := &TopUpInput{UserID: "user-1"}
	data := in.MarshalProto()

	var out TopUpInput
	require.NoError(t, out.UnmarshalProto(data))
	assert.Equal(t, "user-1", out.UserID)
	assert.Empty(t, out.IdempotencyKey)
	assert.Empty(t, out.MerchantData)
}

func TestReserveInput_ProtoRoundTrip(t *testing.T) {
	in := &ReserveInput{
		UserID:   "user-1",
		Currency: "EUR",
		Value:    "41.3",
		OrderID:  "order-7",
		ItemID:   "item-9",
	}

	var out ReserveInput
	require.NoError(t, out.UnmarshalProto(in.MarshalProto()))
	assert.Equal(t, *in, out)
}

func TestCancelInput_ProtoRoundTrip(t *testing.T) {
	in := &CancelInput{UserID: "user-1", OrderID: "order-7"}

	var out CancelInput
	require.NoError(t, out.UnmarshalProto(in.MarshalProto()))
	assert.Equal(t, *in, out)
}

func TestGenericOutput_BalanceRoundTrip(t *testing.T) {
	env := &GenericOutput{
		UserBalance: &UserBalanceData{
			UserID:        "user-1",
			Currency:      "EUR",
			Value:         "58.2",
			ReservedValue: "41.3",
			IsOverdraft:   true,
		},
	}

	var out GenericOutput
	require.NoError(t, out.UnmarshalProto(env.MarshalProto()))
	require.NotNil(t, out.UserBalance)
	assert.Nil(t, out.Error)
	assert.Equal(t, *env.UserBalance, *out.UserBalance)
}

func TestGenericOutput_ErrorRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		env  *GenericOutput
	}{
		{"user not found", NewUserNotFound()},
		{"not enough money", NewNotEnoughMoney()},
		{"invalid state", NewInvalidState()},
		{"bad parameter", NewBadParameter("currency")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out GenericOutput
			require.NoError(t, out.UnmarshalProto(tt.env.MarshalProto()))
			require.NotNil(t, out.Error)
			assert.Nil(t, out.UserBalance)
			assert.Equal(t, *tt.env.Error, *out.Error)
		})
	}
}

func TestGenericOutput_EmptyEnvelope(t *testing.T) {
	env := &GenericOutput{}
	data := env.MarshalProto()
	assert.Empty(t, data)

	var out GenericOutput
	require.NoError(t, out.UnmarshalProto(data))
	assert.Nil(t, out.UserBalance)
	assert.Nil(t, out.Error)
}

func TestGenericOutput_JSONShape(t *testing.T) {
	env := NewBadParameter("value")
	data, err := json.Marshal(env)
	require.NoError(t, err)
	assert.JSONEq(t, `{"error":{"badParameter":{"name":"value"}}}`, string(data))

	env = &GenericOutput{
		UserBalance: &UserBalanceData{
			UserID:        "u",
			Currency:      "USD",
			Value:         "10",
			ReservedValue: "0",
		},
	}
	data, err = json.Marshal(env)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"userBalance":{"userId":"u","currency":"USD","value":"10","reservedValue":"0","isOverdraft":false}}`,
		string(data))
}

func TestTopUpInput_JSONKeys(t *testing.T) {
	var in TopUpInput
	payload := `{"idempotencyKey":"k","userId":"u","currency":"USD","value":"5","merchantData":"{}"}`
	require.NoError(t, json.Unmarshal([]byte(payload), &in))
	assert.Equal(t, TopUpInput{
		IdempotencyKey: "k",
		UserID:         "u",
		Currency:       "USD",
		Value:          "5",
		MerchantData:   "{}",
	}, in)
}

func TestUnmarshalProto_SkipsUnknownFields(t *testing.T) {
	data := marshalStrings("u", "o")
	data = appendBool(data, 9, true)
	data = appendString(data, 10, "future")

	var cancel CancelInput
	require.NoError(t, cancel.UnmarshalProto(data))
	assert.Equal(t, CancelInput{UserID: "u", OrderID: "o"}, cancel)
}

func TestUnmarshalProto_Truncated(t *testing.T) {
	in := &ReserveInput{UserID: "user-1", Currency: "EUR", Value: "1", OrderID: "o"}
	data := in.MarshalProto()

	var out ReserveInput
	require.Error(t, out.UnmarshalProto(data[:len(data)-2]))
}
