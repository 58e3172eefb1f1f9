// Package manifest defines the on-disk description the Driver hands to
// the Runner Build Step: an ordered list of (path, FeatureSet) records
// for the final, deduplicated set of compiled variants.
package manifest

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"encoding/json"
	"os"
	"sort"

	"github.com/pkg/errors"

	"multivers/internal/driverrors"
	"multivers/internal/features"
)

// Record is one compiled variant's entry: where it lives on disk, and the
// feature set it was compiled for.
type Record struct {
	Path     string   `json:"path"`
	Features []string `json:"features"`
}

// document is the JSON wire shape. Unknown top-level and per-record keys
// are silently ignored by encoding/json on read, satisfying forward
// compatibility with no extra code.
type document struct {
	Builds []Record `json:"builds"`
}

// Manifest is an ordered sequence of build records, sorted by feature
// cardinality descending: the most-demanding variant first, the least
// demanding (the Base) last. No two records share a feature set.
type Manifest struct {
	Records []Record
}

// New builds a Manifest from (path, FeatureSet) pairs, sorting them by
// descending cardinality and rejecting duplicate feature sets.
func New(entries map[string]features.FeatureSet) (*Manifest, error) {
	records := make([]Record, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))
	for path, fs := range entries {
		if _, dup := seen[fs.Key()]; dup {
			return nil, errors.Wrapf(driverrors.ErrIOFailure, "manifest: duplicate feature set %q", fs.Key())
		}
		seen[fs.Key()] = struct{}{}
		records = append(records, Record{Path: path, Features: fs.Features()})
	}
	sortRecords(records)
	return &Manifest{Records: records}, nil
}

func sortRecords(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		if len(records[i].Features) != len(records[j].Features) {
			return len(records[i].Features) > len(records[j].Features)
		}
		return recordKey(records[i]) < recordKey(records[j])
	})
}

func recordKey(r Record) string {
	fs := features.New(r.Features)
	return fs.Key()
}

// Base returns the least-demanding record — the last entry once sorted —
// or false if the Manifest is empty.
func (m *Manifest) Base() (Record, bool) {
	if len(m.Records) == 0 {
		return Record{}, false
	}
	return m.Records[len(m.Records)-1], true
}

// Write serializes the Manifest to path as
// `{"builds":[{"path":...,"features":[...]},...]}`.
func (m *Manifest) Write(path string) error {
	doc := document{Builds: m.Records}
	data, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(driverrors.ErrIOFailure, err.Error())
	}
	if err := os.WriteFile(path, data, 0o644); err != nil { // #nosec G306
		return errors.Wrapf(driverrors.ErrIOFailure, "writing manifest %s: %v", path, err)
	}
	return nil
}

// Read parses the Manifest at path. It re-sorts the records defensively
// after parsing, since the format makes no guarantee the writer ordered
// them correctly.
func Read(path string) (*Manifest, error) {
	data, err := os.ReadFile(path) // #nosec G304
	if err != nil {
		return nil, errors.Wrapf(driverrors.ErrIOFailure, "reading manifest %s: %v", path, err)
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrapf(driverrors.ErrIOFailure, "parsing manifest %s: %v", path, err)
	}
	sortRecords(doc.Builds)
	return &Manifest{Records: doc.Builds}, nil
}
