package packagemeta

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadMissingFile(t *testing.T) {
	m, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.Nil(t, m)
}

func TestLoadParsesOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, SidecarFileName)
	content := `
x86_64:
  cpus: [alderlake, skylake, sandybridge, ivybridge]
aarch64:
  cpus: [neoverse-n1]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	m, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, m)

	cpus, ok := m.CpusFor("x86_64")
	require.True(t, ok)
	require.Equal(t, []string{"alderlake", "skylake", "sandybridge", "ivybridge"}, cpus)

	_, ok = m.CpusFor("riscv64")
	require.False(t, ok)
}

func TestLoadEmptyDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, SidecarFileName)
	require.NoError(t, os.WriteFile(path, []byte(""), 0o644))

	m, err := Load(path)
	require.NoError(t, err)
	require.Nil(t, m)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, SidecarFileName)
	require.NoError(t, os.WriteFile(path, []byte("x86_64: [not, a, map]"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestCpusForOnNilMetadata(t *testing.T) {
	var m *Metadata
	cpus, ok := m.CpusFor("x86_64")
	require.False(t, ok)
	require.Nil(t, cpus)
}
