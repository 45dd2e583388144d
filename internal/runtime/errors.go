package runtime

import "errors"

// Sentinel errors the controller's public API can return, checked with
// errors.Is by callers (and wrapped with %w when additional context helps).
var (
	ErrNotInitialized = errors.New("runtime: not initialized")
	ErrAlreadyStarted = errors.New("runtime: already started")
	ErrNotStarted     = errors.New("runtime: not started")
	ErrConfiguration  = errors.New("runtime: invalid executable configuration")
	ErrUsage          = errors.New("runtime: invalid use of the runtime API")
	ErrProtocol       = errors.New("runtime: runtime service violated the wire protocol")
)
