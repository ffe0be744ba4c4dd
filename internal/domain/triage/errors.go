package triage

import "errors"

// Sentinel errors for the triage pipeline.
var (
	ErrAlertNotFound  = errors.New("triage: alert not found")
	ErrMalformedAlert = errors.New("triage: malformed alert")
	ErrInvalidCommand = errors.New("triage: invalid command")
)
