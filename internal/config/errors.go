package config

import "errors"

// Sentinel errors for configuration.
var (
	// ErrInvalidConfig marks a setting that fails validation.
	ErrInvalidConfig = errors.New("config: invalid setting")
	// ErrLoadConfig marks a file or environment layer that could not be read.
	ErrLoadConfig = errors.New("config: load failed")
)
