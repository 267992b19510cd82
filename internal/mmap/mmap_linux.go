//go:build linux

package mmap

import (
	"os"

	"golang.org/x/sys/unix"
)

func mmap(f *os.File, size int) ([]byte, error) {
	// MAP_POPULATE pre-faults the mapping so first queries don't pay for
	// page faults.
	return unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED|unix.MAP_POPULATE)
}

func munmap(data []byte) error {
	return unix.Munmap(data)
}
