// Package bz2 compresses and decompresses the Runner's Base payload. The
// standard library's compress/bzip2 only decodes; this wraps
// github.com/dsnet/compress/bzip2, which implements both directions.
package bz2

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"bytes"
	"io"

	"github.com/dsnet/compress/bzip2"
	"github.com/pkg/errors"

	"multivers/internal/driverrors"
)

// MaxLevel is the highest bzip2 block size setting (900 KiB blocks), used
// for the Base payload where compression ratio matters more than speed.
const MaxLevel = bzip2.BestCompression

// Compress returns data compressed at level (1-9; use MaxLevel for the
// Base payload).
func Compress(data []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	w, err := bzip2.NewWriter(&buf, &bzip2.WriterConfig{Level: level})
	if err != nil {
		return nil, errors.Wrap(driverrors.ErrIOFailure, err.Error())
	}
	if _, err := w.Write(data); err != nil {
		return nil, errors.Wrap(driverrors.ErrIOFailure, err.Error())
	}
	if err := w.Close(); err != nil {
		return nil, errors.Wrap(driverrors.ErrIOFailure, err.Error())
	}
	return buf.Bytes(), nil
}

// Decompress inflates a bzip2 stream produced by Compress.
func Decompress(data []byte) ([]byte, error) {
	r, err := bzip2.NewReader(bytes.NewReader(data), nil)
	if err != nil {
		return nil, errors.Wrap(driverrors.ErrIOFailure, err.Error())
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(driverrors.ErrIOFailure, err.Error())
	}
	return out, nil
}
