// Package proto defines the wallet API wire messages. Every message has two
// encodings carrying identical fields: JSON with camelCase keys, and
// protobuf per api.proto. Decimal values travel as strings to avoid float
// precision loss.
package proto

// TopUpInput is the body of POST /top-up.
type TopUpInput struct {
	IdempotencyKey string `json:"idempotencyKey"`
	UserID         string `json:"userId"`
	Currency       string `json:"currency"`
	Value          string `json:"value"`
	MerchantData   string `json:"merchantData,omitempty"`
}

// ReserveInput is the body of POST /reserve.
type ReserveInput struct {
	UserID   string `json:"userId"`
	Currency string `json:"currency"`
	Value    string `json:"value"`
	OrderID  string `json:"orderId"`
	ItemID   string `json:"itemId,omitempty"`
}

// CommitInput is the body of POST /commit. Currency and value may override
// the reserved amount; left empty the reservation settles as reserved.
type CommitInput struct {
	UserID   string `json:"userId"`
	Currency string `json:"currency"`
	Value    string `json:"value"`
	OrderID  string `json:"orderId"`
	ItemID   string `json:"itemId,omitempty"`
}

// CancelInput is the body of POST /cancel.
type CancelInput struct {
	UserID  string `json:"userId"`
	OrderID string `json:"orderId"`
	ItemID  string `json:"itemId,omitempty"`
}

// UserBalanceData is the success payload of every endpoint.
type UserBalanceData struct {
	UserID        string `json:"userId"`
	Currency      string `json:"currency"`
	Value         string `json:"value"`
	ReservedValue string `json:"reservedValue"`
	IsOverdraft   bool   `json:"isOverdraft"`
}

// UserNotFoundError reports an unknown user id.
type UserNotFoundError struct{}

// NotEnoughMoneyError reports insufficient spendable funds.
type NotEnoughMoneyError struct{}

// InvalidStateError reports an order in the wrong lifecycle position.
type InvalidStateError struct{}

// BadParameterError names the request field that failed validation.
type BadParameterError struct {
	Name string `json:"name"`
}

// Error is a tagged union; exactly one branch is set.
type Error struct {
	UserNotFound   *UserNotFoundError   `json:"userNotFound,omitempty"`
	NotEnoughMoney *NotEnoughMoneyError `json:"notEnoughMoney,omitempty"`
	InvalidState   *InvalidStateError   `json:"invalidState,omitempty"`
	BadParameter   *BadParameterError   `json:"badParameter,omitempty"`
}

// GenericOutput is the response envelope: either a balance or an error.
type GenericOutput struct {
	UserBalance *UserBalanceData `json:"userBalance,omitempty"`
	Error       *Error           `json:"error,omitempty"`
}

// NewUserNotFound builds the user-not-found envelope.
func NewUserNotFound() *GenericOutput {
	return &GenericOutput{Error: &Error{UserNotFound: &UserNotFoundError{}}}
}

// NewNotEnoughMoney builds the insufficient-funds envelope.
func NewNotEnoughMoney() *GenericOutput {
	return &GenericOutput{Error: &Error{NotEnoughMoney: &NotEnoughMoneyError{}}}
}

// NewInvalidState builds the invalid-order-state envelope.
func NewInvalidState() *GenericOutput {
	return &GenericOutput{Error: &Error{InvalidState: &InvalidStateError{}}}
}

// NewBadParameter builds the bad-parameter envelope for the named field.
func NewBadParameter(name string) *GenericOutput {
	return &GenericOutput{Error: &Error{BadParameter: &BadParameterError{Name: name}}}
}
