//go:build unix

package region

import (
	"os"

	"golang.org/x/sys/unix"
)

// NewMmap creates or opens a shared-memory-backed Region at path, sized
// to size bytes, mapped MAP_SHARED so a separate worker process can map
// the same file and observe the same bytes — not just a goroutine in
// this process. Mirrors the /dev/shm-backed ring buffer idiom: open or
// create, truncate to the target size, then mmap PROT_READ|PROT_WRITE.
func NewMmap(path string, size int, alignment uint32) (*Region, error) {
	if err := validateCapacity(size, alignment); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, &ErrAllocationFailed{Size: uint32(size), Alignment: alignment}
	}
	defer f.Close()

	if err := f.Truncate(int64(size)); err != nil {
		return nil, &ErrAllocationFailed{Size: uint32(size), Alignment: alignment}
	}

	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, &ErrAllocationFailed{Size: uint32(size), Alignment: alignment}
	}

	return &Region{
		buf:       data,
		alignment: alignment,
		closer: func() error {
			return unix.Munmap(data)
		},
	}, nil
}
