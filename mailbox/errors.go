package mailbox

import (
	"fmt"

	"code.hybscloud.com/iox"
)

// ErrWouldBlock indicates no value is currently available to receive.
var ErrWouldBlock = iox.ErrWouldBlock

// IsWouldBlock reports whether err is ErrWouldBlock.
func IsWouldBlock(err error) bool {
	return iox.IsWouldBlock(err)
}

// ErrPayloadTooLarge reports a Send whose payload exceeds the mailbox's
// fixed capacity S — a build-time-discoverable, per-call fatal error.
type ErrPayloadTooLarge struct {
	Length   int
	Capacity int
}

func (e *ErrPayloadTooLarge) Error() string {
	return fmt.Sprintf("mailbox: payload length %d exceeds capacity %d", e.Length, e.Capacity)
}
