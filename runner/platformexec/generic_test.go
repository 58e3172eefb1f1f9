//go:build !linux

package platformexec

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExecSpawnsChildAndReportsExitCode(t *testing.T) {
	script := "#!/bin/sh\nexit 7\n"
	err := Exec([]string{filepath.Join(t.TempDir(), "placeholder-argv0")}, os.Environ(), []byte(script))
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	require.Equal(t, 7, exitErr.Code)
}
