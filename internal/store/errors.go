package store

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrEmailTaken    = errors.New("email already registered")
	ErrInvalidState  = errors.New("invalid booking state")
	ErrDatesConflict = errors.New("listing already booked for those dates")
	ErrInvalidStay   = errors.New("stay length or total out of range")
)
