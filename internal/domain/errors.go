package domain

import "errors"

var (
	ErrInvalidAmount          = errors.New("amount must be positive with at most two decimal places")
	ErrSelfTransferNotAllowed = errors.New("cannot transfer to the same account")
	ErrAccountNotFound        = errors.New("account not found")
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrInvalidTransition      = errors.New("invalid transfer status transition")
	ErrNotFound               = errors.New("transfer not found")
	ErrUserNotFound           = errors.New("user not found")
)
