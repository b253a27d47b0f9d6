package ratelimiter

import "errors"

var ErrStoreUnavailable = errors.New("ratelimiter: store unavailable")
