// Package agent implements the canvas strategies, the router that picks one
// of them, and the tool harness they share.
package agent

import "errors"

var (
	// ErrUnknownAgent indicates a strategy identifier outside the closed set
	// or one with no registered strategy.
	ErrUnknownAgent = errors.New("unknown agent")

	// ErrInvalidToolInput indicates a tool was called without usable input.
	ErrInvalidToolInput = errors.New("invalid tool input")
)
