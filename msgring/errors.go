package msgring

import (
	"fmt"

	"code.hybscloud.com/iox"
)

// ErrWouldBlock indicates TryProduce found insufficient free capacity, or
// TryConsume found the ring empty. It is a control-flow signal, not a
// failure — callers retry via a submit policy, not by propagating it.
var ErrWouldBlock = iox.ErrWouldBlock

// IsWouldBlock reports whether err is ErrWouldBlock.
func IsWouldBlock(err error) bool {
	return iox.IsWouldBlock(err)
}

// ErrInvalidCapacity reports a ring capacity that is too small, not a
// power of two, or too small to hold a requested record — build-time
// fatal for ring construction, per-call fatal for an over-sized record.
type ErrInvalidCapacity struct {
	Requested uint32
	Minimum   uint32
}

func (e *ErrInvalidCapacity) Error() string {
	return fmt.Sprintf("msgring: invalid capacity %d, minimum %d", e.Requested, e.Minimum)
}
