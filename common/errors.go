package common

import "errors"

var (
	// ErrConfig is fatal and only returned while starting up.
	ErrConfig = errors.New("config error")

	ErrNetwork = errors.New("network error")
	ErrParse   = errors.New("parse error")

	// ErrAuth means the provider rejected the credentials. It will not go away until the
	// configuration is fixed.
	ErrAuth = errors.New("authentication rejected")

	ErrRateLimit = errors.New("rate limited")
	ErrNoRecord  = errors.New("record not found")
)
