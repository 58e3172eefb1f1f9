package util

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "exists.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

	exists, err := FileExists(file)
	require.NoError(t, err)
	require.True(t, exists)

	exists, err = FileExists(filepath.Join(dir, "missing.txt"))
	require.NoError(t, err)
	require.False(t, exists)

	_, err = FileExists(dir)
	require.Error(t, err)
}

func TestDirectoryExists(t *testing.T) {
	dir := t.TempDir()
	exists, err := DirectoryExists(dir)
	require.NoError(t, err)
	require.True(t, exists)

	exists, err = DirectoryExists(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	require.False(t, exists)
}

func TestCreateIfNotExists(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "a", "b")
	require.NoError(t, CreateIfNotExists(target, 0o755))
	exists, err := DirectoryExists(target)
	require.NoError(t, err)
	require.True(t, exists)
	// calling again is a no-op
	require.NoError(t, CreateIfNotExists(target, 0o755))
}

func TestStringInList(t *testing.T) {
	list := []string{"avx2", "bmi2", "sse4.2"}
	require.True(t, StringInList("bmi2", list))
	require.False(t, StringInList("avx512f", list))
}

func TestCopy(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	require.NoError(t, os.WriteFile(src, []byte("payload"), 0o755))
	dst := filepath.Join(dir, "dst.bin")
	require.NoError(t, Copy(src, dst))
	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	require.Equal(t, "payload", string(got))
}
