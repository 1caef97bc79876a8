package svc

import "errors"

var ErrUnknownBackend = errors.New("unknown snapshot storage backend")

var ErrBusUnavailable = errors.New("invalidation bus requires redis")
