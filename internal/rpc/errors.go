package rpc

import "errors"

// ErrDaemonUnavailable indicates the index daemon could not be reached at
// its advertised endpoint.
var ErrDaemonUnavailable = errors.New("rpc: daemon unavailable")
