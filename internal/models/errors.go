package models

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidMode        = errors.New("invalid mode")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrTokenRevoked       = errors.New("token revoked")
	ErrForbidden          = errors.New("forbidden")
	ErrAlreadyExists      = errors.New("already exists")
	ErrInvalidInput       = errors.New("invalid input")

	ErrNoQuantity         = errors.New("task has no remaining quantity")
	ErrTaskNotClaimable   = errors.New("task is not open for claims")
	ErrAlreadyClaimed     = errors.New("task already claimed by this user")
	ErrOwnTask            = errors.New("cannot claim own task")
	ErrReservationExpired = errors.New("reservation expired")
	ErrIllegalTransition  = errors.New("illegal status transition")
)
