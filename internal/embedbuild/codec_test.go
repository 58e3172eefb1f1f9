package embedbuild

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	table := Table{
		Source: EmbeddedBuild{Compressed: []byte("base-bytes")},
		Patches: []EmbeddedBuild{
			{Compressed: []byte("patch-a"), Features: []string{"avx2"}},
			{Compressed: []byte("patch-b"), Features: []string{"avx2", "bmi2"}},
		},
	}

	data, err := Marshal(table)
	require.NoError(t, err)

	decoded, err := Unmarshal(data)
	require.NoError(t, err)

	require.Equal(t, table.Source.Compressed, decoded.Source.Compressed)
	require.Len(t, decoded.Patches, 2)
	for i, p := range decoded.Patches {
		require.Equal(t, table.Patches[i].Compressed, p.Compressed)
		require.Equal(t, table.Patches[i].Features, p.Features)
		require.NotNil(t, p.SourceRef)
		require.Equal(t, decoded.Source.Compressed, p.SourceRef.Compressed)
	}
}

func TestUnmarshalEmptyTable(t *testing.T) {
	data, err := Marshal(Table{})
	require.NoError(t, err)

	decoded, err := Unmarshal(data)
	require.NoError(t, err)
	require.Empty(t, decoded.Source.Compressed)
	require.Empty(t, decoded.Patches)
}
