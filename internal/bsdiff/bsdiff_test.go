package bsdiff

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDiffPatchRoundTrip(t *testing.T) {
	cases := []struct {
		name     string
		old, new []byte
	}{
		{"identical", []byte("the quick brown fox jumps over the lazy dog"), []byte("the quick brown fox jumps over the lazy dog")},
		{"small tweak", []byte("AAAAAAAAAABBBBBBBBBBCCCCCCCCCC"), []byte("AAAAAAAAAABBBBBXBBBBCCCCCCCCCC")},
		{"append", []byte("hello world"), []byte("hello world, and more besides")},
		{"truncate", []byte("hello world, and more besides"), []byte("hello world")},
		{"empty old", []byte{}, []byte("brand new content")},
		{"empty new", []byte("going away"), []byte{}},
		{"both empty", []byte{}, []byte{}},
		{"binary noise", randomBytes(2048, 1), mutate(randomBytes(2048, 1), 17)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			patch, err := Diff(tc.old, tc.new)
			require.NoError(t, err)

			got, err := Patch(tc.old, patch)
			require.NoError(t, err)
			require.True(t, bytes.Equal(tc.new, got))
		})
	}
}

func TestPatchRejectsBadMagic(t *testing.T) {
	_, err := Patch([]byte("old"), []byte("not a real patch, too short"))
	require.Error(t, err)
}

func TestPatchRejectsTruncatedPatch(t *testing.T) {
	patch, err := Diff([]byte("base content here"), []byte("base content there, extended"))
	require.NoError(t, err)

	_, err = Patch([]byte("base content here"), patch[:len(patch)-5])
	require.Error(t, err)
}

func randomBytes(n int, seed int64) []byte {
	r := rand.New(rand.NewSource(seed))
	buf := make([]byte, n)
	_, _ = r.Read(buf)
	return buf
}

func mutate(data []byte, n int) []byte {
	out := make([]byte, len(data))
	copy(out, data)
	r := rand.New(rand.NewSource(42))
	for i := 0; i < n; i++ {
		out[r.Intn(len(out))] = byte(r.Intn(256))
	}
	return out
}
