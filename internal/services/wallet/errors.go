package wallet

import "errors"

// Service errors
var (
	ErrInvalidAmount       = errors.New("amount must be greater than zero")
	ErrInvalidWalletNumber = errors.New("invalid wallet number")
	ErrRecipientNotFound   = errors.New("recipient wallet not found")
	ErrSelfTransfer        = errors.New("cannot transfer to own wallet")
	ErrInsufficientBalance = errors.New("insufficient wallet balance")
	ErrPaymentInitiation   = errors.New("payment initiation failed")
	ErrInvalidPin          = errors.New("pin must be at least 4 digits")
	ErrPinNotSet           = errors.New("transfer pin not set")
	ErrPinMismatch         = errors.New("transfer pin mismatch")
)
