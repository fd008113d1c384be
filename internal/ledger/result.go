package ledger

// Code classifies the in-band outcome of an engine operation. Business
// outcomes (unknown user, short funds, wrong order state) are results, not
// errors; the error return of an operation is reserved for infrastructure
// failures.
type Code int

const (
	CodeOK Code = iota
	CodeBadParameter
	CodeUserNotFound
	CodeNotEnoughMoney
	CodeInvalidState
)

// Result is the outcome of a mutating engine operation.
type Result struct {
	Code Code
	// Field names the offending parameter when Code is CodeBadParameter.
	Field string
	// TxID is the audit log id for operations that wrote (or replayed) a
	// transaction.
	TxID int64
}

func ok(txID int64) Result { return Result{Code: CodeOK, TxID: txID} }

func badParameter(field string) Result { return Result{Code: CodeBadParameter, Field: field} }

func (r Result) OK() bool { return r.Code == CodeOK }
