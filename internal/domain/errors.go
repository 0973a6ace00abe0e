package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrUnsupportedPair   = errors.New("unsupported pair")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrQuoteExpired      = errors.New("quote expired")
	ErrQuoteConsumed     = errors.New("quote already consumed")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrSelfApproval      = errors.New("self-approval forbidden")
)
