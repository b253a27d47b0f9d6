package budget

import "errors"

var (
	ErrNotFound     = errors.New("budget entry not found")
	ErrInvalidInput = errors.New("invalid budget input")
	ErrStorage      = errors.New("budget storage unavailable")
)
