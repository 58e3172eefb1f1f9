package manifest

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"multivers/internal/features"
)

func TestNewSortsByCardinalityDescending(t *testing.T) {
	m, err := New(map[string]features.FeatureSet{
		"/tmp/a": features.New([]string{"sse4.2"}),
		"/tmp/b": features.New([]string{"avx2", "bmi2", "sse4.2"}),
		"/tmp/c": features.New([]string{"avx2"}),
	})
	require.NoError(t, err)
	require.Len(t, m.Records, 3)
	for i := 1; i < len(m.Records); i++ {
		require.LessOrEqual(t, len(m.Records[i].Features), len(m.Records[i-1].Features))
	}
	require.Equal(t, 3, len(m.Records[0].Features))
	require.Equal(t, 1, len(m.Records[2].Features))
}

func TestNewRejectsDuplicateFeatureSets(t *testing.T) {
	_, err := New(map[string]features.FeatureSet{
		"/tmp/a": features.New([]string{"avx2"}),
		"/tmp/b": features.New([]string{"avx2"}),
	})
	require.Error(t, err)
}

func TestBaseIsLeastDemanding(t *testing.T) {
	m, err := New(map[string]features.FeatureSet{
		"/tmp/a": features.New([]string{"avx2", "bmi2"}),
		"/tmp/b": features.New(nil),
	})
	require.NoError(t, err)
	base, ok := m.Base()
	require.True(t, ok)
	require.Equal(t, "/tmp/b", base.Path)
}

func TestBaseOnEmptyManifest(t *testing.T) {
	m := &Manifest{}
	_, ok := m.Base()
	require.False(t, ok)
}

func TestWriteReadRoundTrip(t *testing.T) {
	m, err := New(map[string]features.FeatureSet{
		"/opt/bin/a": features.New([]string{"avx2", "bmi2"}),
		"/opt/bin/b": features.New([]string{"sse4.2"}),
		"/opt/bin/c": features.New(nil),
	})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "manifest.json")
	require.NoError(t, m.Write(path))

	read, err := Read(path)
	require.NoError(t, err)
	require.Equal(t, m.Records, read.Records)
}

func TestReadIgnoresUnknownKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.json")
	content := `{"builds":[{"path":"/a","features":["avx2"],"checksum":"deadbeef"}],"schemaVersion":2}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	m, err := Read(path)
	require.NoError(t, err)
	require.Len(t, m.Records, 1)
	require.Equal(t, "/a", m.Records[0].Path)
}
