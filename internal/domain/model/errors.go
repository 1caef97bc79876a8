package model

import (
	"errors"
	"fmt"
)

// DomainError is a business-rule violation. Unlike system failures it is
// never retried; it is reported verbatim to the caller.
type DomainError struct {
	Code string
	Msg  string
}

func (e *DomainError) Error() string {
	return e.Code + ": " + e.Msg
}

func NewDomainError(code, format string, args ...any) *DomainError {
	return &DomainError{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// IsDomainError reports whether err is (or wraps) a business-rule violation.
func IsDomainError(err error) bool {
	var de *DomainError
	return errors.As(err, &de)
}

// ErrUnorderedTransactions marks an accumulation fold handed unsorted input.
// It is an integration defect, not a user error, and is never retried.
var ErrUnorderedTransactions = &DomainError{
	Code: "unordered-transactions",
	Msg:  "transactions must be sorted by trade date then sequence",
}
