//go:build linux

package platformexec

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"path/filepath"

	"golang.org/x/sys/unix"
)

// exec creates an anonymous in-memory file via memfd_create (named after
// argv[0] so /proc/self/exe-style introspection and process listings
// reveal the original program name), streams payload into it, and
// fexecve's it. On success this never returns.
func exec(argv []string, envp []string, payload []byte) error {
	name := "multivers-runner"
	if len(argv) > 0 {
		name = filepath.Base(argv[0])
	}

	fd, err := unix.MemfdCreate(name, unix.MFD_CLOEXEC)
	if err != nil {
		return err
	}
	defer unix.Close(fd)

	if err := unix.Ftruncate(fd, int64(len(payload))); err != nil {
		return err
	}
	if len(payload) > 0 {
		mapped, err := unix.Mmap(fd, 0, len(payload), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
		if err != nil {
			return err
		}
		copy(mapped, payload)
		if err := unix.Munmap(mapped); err != nil {
			return err
		}
	}

	return unix.Fexecve(fd, argv, envp)
}
