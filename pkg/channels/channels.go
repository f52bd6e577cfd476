// Package channels holds the generic channel plumbing behind the capture
// pipeline: guarded sends and a broadcaster that fans one stream out to
// named subscribers.
package channels

import (
	"errors"
)

var (
	ErrChannelClosed  = errors.New("channel closed")
	ErrChannelTimeout = errors.New("send timeout")
	ErrChannelFull    = errors.New("channel full")
)
