package slotpool

import (
	"fmt"

	"code.hybscloud.com/iox"
)

// ErrWouldBlock indicates the free lane was empty (TryAcquireFree) or the
// ready lane was full (PushReady).
var ErrWouldBlock = iox.ErrWouldBlock

// IsWouldBlock reports whether err is ErrWouldBlock.
func IsWouldBlock(err error) bool {
	return iox.IsWouldBlock(err)
}

// ErrInvalidConfig reports a malformed Config passed to New.
type ErrInvalidConfig struct {
	Reason string
}

func (e *ErrInvalidConfig) Error() string {
	return fmt.Sprintf("slotpool: invalid config: %s", e.Reason)
}
