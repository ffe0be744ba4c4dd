package service

import "errors"

// Sentinel errors returned by Service commands.
var (
	ErrNotStarted = errors.New("service: not started")
	ErrStopped    = errors.New("service: stopped")
	ErrBusy       = errors.New("service: command queue full")
)
