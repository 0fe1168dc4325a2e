package store

import "errors"

var (
	ErrUserExists      = errors.New("username, account, or ID already exists")
	ErrUserNotFound    = errors.New("user not found")
	ErrSessionNotFound = errors.New("session not found")
	ErrPaymentNotFound = errors.New("payment not found or already processed")
)
