package embedbuild

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"encoding/json"

	"github.com/pkg/errors"

	"multivers/internal/driverrors"
)

// wireBuild is the on-the-wire shape of one EmbeddedBuild: the
// self-referential SourceRef pointer has no JSON representation, so it is
// dropped and reconstructed on decode (every Patch always points at the
// one Source in its Table).
type wireBuild struct {
	Compressed []byte   `json:"compressed"`
	Features   []string `json:"features"`
}

type wireTable struct {
	Source  wireBuild   `json:"source"`
	Patches []wireBuild `json:"patches"`
}

// Marshal encodes table as the Runner's builds.bin payload, embedded via
// //go:embed and decoded once in the Runner's init(). JSON is used (over
// gob) so a valid empty placeholder can be committed to the repository
// and compiled before the Runner Build Step ever runs.
func Marshal(table Table) ([]byte, error) {
	wire := wireTable{
		Source: wireBuild{Compressed: table.Source.Compressed, Features: table.Source.Features},
	}
	for _, p := range table.Patches {
		wire.Patches = append(wire.Patches, wireBuild{Compressed: p.Compressed, Features: p.Features})
	}
	data, err := json.Marshal(wire)
	if err != nil {
		return nil, errors.Wrap(driverrors.ErrIOFailure, err.Error())
	}
	return data, nil
}

// Unmarshal decodes a builds.bin payload back into a Table, reconstructing
// the shared Source pointer every Patch's SourceRef points at.
func Unmarshal(data []byte) (Table, error) {
	var wire wireTable
	if err := json.Unmarshal(data, &wire); err != nil {
		return Table{}, errors.Wrap(driverrors.ErrIOFailure, err.Error())
	}
	table := Table{
		Source: EmbeddedBuild{Compressed: wire.Source.Compressed, Features: wire.Source.Features},
	}
	table.Patches = make([]EmbeddedBuild, len(wire.Patches))
	for i, p := range wire.Patches {
		table.Patches[i] = EmbeddedBuild{Compressed: p.Compressed, Features: p.Features, SourceRef: &table.Source}
	}
	return table, nil
}
