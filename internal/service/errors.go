package service

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCredential    = errors.New("invalid credential")
	ErrAccountNotRegistered = errors.New("account not registered")
	ErrAccountBlocked       = errors.New("account blocked")
	ErrMaxSessionsReached   = errors.New("max sessions reached")
	ErrRateLimited          = errors.New("rate limited")
	ErrForbidden            = errors.New("forbidden")
	ErrUnauthenticated      = errors.New("unauthenticated")
	ErrSessionRevoked       = errors.New("session revoked")
	ErrStoreUnavailable     = errors.New("session store unavailable")
	ErrInvalidInput         = errors.New("invalid input")
)

// MaxSessionsError names the device limit that rejected a login.
type MaxSessionsError struct {
	Limit int
}

func (e *MaxSessionsError) Error() string {
	return fmt.Sprintf("maximum of %d active devices reached; sign out on another device first", e.Limit)
}

func (e *MaxSessionsError) Unwrap() error { return ErrMaxSessionsReached }
