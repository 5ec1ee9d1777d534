package service

import "errors"

var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrOrderNotFound  = errors.New("Order not found")
	ErrInvalidStatus  = errors.New("invalid status")
)

// ValidationError is a caller mistake; the message is safe to return to clients.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidRequest
}

func newValidationError(msg string) error {
	return &ValidationError{msg: msg}
}

var (
	ErrInvalidProvider        = &ValidationError{msg: "Invalid provider"}
	ErrInvalidAmount          = &ValidationError{msg: "Amount must be positive"}
	ErrInvalidAmountPrecision = &ValidationError{msg: "Amount must have at most 2 decimal places"}
	ErrOrderAlreadyPaid       = &ValidationError{msg: "Order is already paid"}
	ErrInvalidEmail           = &ValidationError{msg: "Email is invalid"}
)
