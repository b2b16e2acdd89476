//go:build !windows && !appengine
// +build !windows,!appengine

package maxminddb

import (
	"golang.org/x/sys/unix"
)

type memoryMap []byte

func mmap(fd int, length int) (data []byte, err error) {
	mmapData, err := unix.Mmap(fd, 0, length, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, err
	}
	return mmapData, nil
}

func munmap(b []byte) (err error) {
	return unix.Munmap(b)
}
