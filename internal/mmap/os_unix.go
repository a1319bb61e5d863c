//go:build unix

package mmap

import (
	"golang.org/x/sys/unix"
)

func osMapAnon(size int) ([]byte, func([]byte) error, error) {
	prot := unix.PROT_READ | unix.PROT_WRITE
	flags := unix.MAP_ANON | unix.MAP_PRIVATE

	data, err := unix.Mmap(-1, 0, size, prot, flags)
	if err != nil {
		return nil, nil, err
	}

	return data, unix.Munmap, nil
}

func osProtect(data []byte, prot Protection) error {
	if len(data) == 0 {
		return nil
	}
	mode := unix.PROT_READ
	if prot == ProtReadWrite {
		mode |= unix.PROT_WRITE
	}
	return unix.Mprotect(data, mode)
}
