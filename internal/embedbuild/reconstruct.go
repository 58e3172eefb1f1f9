package embedbuild

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"github.com/pkg/errors"

	"multivers/internal/bsdiff"
	"multivers/internal/bz2"
	"multivers/internal/driverrors"
)

// Reconstruct rebuilds the executable bytes for a selected EmbeddedBuild:
// if it has no SourceRef it IS the Base, so its Compressed field is a
// bzip2 blob decompressed directly; otherwise its Compressed field is a
// bsdiff patch applied against the decompressed Base.
func Reconstruct(selected *EmbeddedBuild) ([]byte, error) {
	if selected.SourceRef == nil {
		out, err := bz2.Decompress(selected.Compressed)
		if err != nil {
			return nil, errors.Wrap(err, "decompressing base")
		}
		return out, nil
	}

	base, err := bz2.Decompress(selected.SourceRef.Compressed)
	if err != nil {
		return nil, errors.Wrap(err, "decompressing base for patch")
	}
	out, err := bsdiff.Patch(base, selected.Compressed)
	if err != nil {
		return nil, errors.Wrap(driverrors.ErrPatchFailure, err.Error())
	}
	return out, nil
}
