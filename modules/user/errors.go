package user

import "errors"

var (
	ErrUserNotFound = errors.New("user not found")
	ErrUnavailable  = errors.New("user directory unavailable")
)
