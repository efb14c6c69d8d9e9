package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrAlreadyExists   = errors.New("already exists")
	ErrMalformedTick   = errors.New("malformed feed message")
	ErrOrderRejected   = errors.New("order rejected")
	ErrOrderInFlight   = errors.New("order already in flight")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrWSDisconnect    = errors.New("websocket disconnected")
	ErrHistoryTooShort = errors.New("insufficient price history")
)
