// Package bsdiff implements Colin Percival's binary diff/patch algorithm
// (the classic suffix-sort-based construction, as used by the bsdiff(1)
// reference implementation) against two arbitrary byte slices.
//
// No third-party bsdiff/bspatch library appears anywhere in the example
// corpus retrieved for this project, so this package is implemented
// directly against the standard library (sort, bytes) rather than an
// ecosystem dependency.
package bsdiff

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"bytes"
	"encoding/binary"
	"sort"

	"github.com/pkg/errors"

	"multivers/internal/driverrors"
)

const magic = "BSDIFF40"

// suffixArray builds the suffix array of data via a comparison sort over
// suffix byte slices. This favours clarity over the qsufsort algorithm
// the reference implementation uses; diff construction is an offline,
// one-shot operation per (base, target) pair, not a runtime hot path.
func suffixArray(data []byte) []int {
	n := len(data)
	sa := make([]int, n+1)
	for i := range sa {
		sa[i] = i
	}
	sort.Slice(sa, func(i, j int) bool {
		return bytes.Compare(data[sa[i]:], data[sa[j]:]) < 0
	})
	return sa
}

// matchLen returns how many leading bytes of a and b agree.
func matchLen(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

// search finds, within old's suffix array sa, the suffix with the longest
// common prefix against new[start:], returning that prefix length and the
// matching offset into old.
func search(sa []int, old, newData []byte, start int) (matchedLen, oldPos int) {
	lo, hi := 0, len(sa)
	for hi-lo > 1 {
		mid := (lo + hi) / 2
		if bytes.Compare(old[sa[mid]:], newData[start:]) < 0 {
			lo = mid
		} else {
			hi = mid
		}
	}
	bestLo := matchLen(old[sa[lo]:], newData[start:])
	bestHi := matchLen(old[sa[hi%len(sa)]:], newData[start:])
	if bestLo > bestHi {
		return bestLo, sa[lo]
	}
	return bestHi, sa[hi%len(sa)]
}

type control struct {
	add, copy, seek int
}

// Diff computes a bsdiff-format patch transforming old into newData.
func Diff(old, newData []byte) ([]byte, error) {
	sa := suffixArray(old)

	var controls []control
	var addBuf, extraBuf bytes.Buffer

	// pendingLiteral counts literal bytes already written to extraBuf
	// that no control entry has accounted for yet. Every byte landing in
	// extraBuf must eventually be claimed by some control's copy field,
	// or Patch has no way to know it exists.
	pendingLiteral := 0
	flushLiteral := func() {
		if pendingLiteral > 0 {
			controls = append(controls, control{copy: pendingLiteral})
			pendingLiteral = 0
		}
	}

	oldPos, newPos := 0, 0
	for newPos < len(newData) {
		matchedLen, matchPos := search(sa, old, newData, newPos)

		if matchedLen < 8 {
			// no usable match here; treat the next byte as extra data
			// and keep scanning until a match of length >= 8 resumes.
			extraBuf.WriteByte(newData[newPos])
			pendingLiteral++
			newPos++
			continue
		}
		flushLiteral()

		// the match found by search is used as is; it is not extended.
		scanStart := newPos
		scanLen := matchedLen
		scanOld := matchPos

		// add counts how many leading bytes of the match also agree with
		// old at oldPos, where the previous control left off; those go
		// through the add block. The rest of the matched bytes are
		// written verbatim to the extra block, and seek moves oldPos to
		// the end of the match in old.
		add := 0
		for add < scanLen && oldPos+add < len(old) && scanStart+add < len(newData) && old[oldPos+add] == newData[scanStart+add] {
			add++
		}

		controls = append(controls, control{add: add, copy: scanLen - add, seek: scanOld + scanLen - (oldPos + add)})
		for i := 0; i < add; i++ {
			addBuf.WriteByte(newData[scanStart+i] - old[oldPos+i])
		}
		extraBuf.Write(newData[scanStart+add : scanStart+scanLen])

		oldPos = scanOld + scanLen
		newPos = scanStart + scanLen
	}
	flushLiteral()

	return encode(controls, addBuf.Bytes(), extraBuf.Bytes(), len(newData))
}

func encode(controls []control, addData, extraData []byte, newLen int) ([]byte, error) {
	var ctrlBuf bytes.Buffer
	for _, c := range controls {
		var tmp [24]byte
		putInt64(tmp[0:8], int64(c.add))
		putInt64(tmp[8:16], int64(c.copy))
		putInt64(tmp[16:24], int64(c.seek))
		ctrlBuf.Write(tmp[:])
	}

	var out bytes.Buffer
	out.WriteString(magic)

	var h [24]byte
	binary.LittleEndian.PutUint64(h[0:8], uint64(ctrlBuf.Len()))
	binary.LittleEndian.PutUint64(h[8:16], uint64(len(addData)))
	binary.LittleEndian.PutUint64(h[16:24], uint64(newLen))
	out.Write(h[:])

	out.Write(ctrlBuf.Bytes())
	out.Write(addData)
	out.Write(extraData)
	return out.Bytes(), nil
}

func putInt64(dst []byte, v int64) {
	u := uint64(v)
	if v < 0 {
		u = uint64(-v) | (1 << 63)
	}
	binary.LittleEndian.PutUint64(dst, u)
}

func getInt64(src []byte) int64 {
	u := binary.LittleEndian.Uint64(src)
	neg := u&(1<<63) != 0
	u &^= 1 << 63
	if neg {
		return -int64(u)
	}
	return int64(u)
}

// Patch applies a bsdiff-format patch (produced by Diff) to old,
// reconstructing the target bytes.
func Patch(old, patch []byte) ([]byte, error) {
	if len(patch) < 32 || string(patch[:8]) != magic {
		return nil, errors.Wrap(driverrors.ErrPatchFailure, "bad patch header")
	}
	ctrlLen := int(binary.LittleEndian.Uint64(patch[8:16]))
	addLen := int(binary.LittleEndian.Uint64(patch[16:24]))
	newLen := int(binary.LittleEndian.Uint64(patch[24:32]))

	if ctrlLen%24 != 0 {
		return nil, errors.Wrap(driverrors.ErrPatchFailure, "control block size not a multiple of 24")
	}

	ctrlStart := 32
	addStart := ctrlStart + ctrlLen
	extraStart := addStart + addLen
	if extraStart > len(patch) {
		return nil, errors.Wrap(driverrors.ErrPatchFailure, "patch truncated")
	}

	ctrlBytes := patch[ctrlStart:addStart]
	addData := patch[addStart:extraStart]
	extraData := patch[extraStart:]

	out := make([]byte, 0, newLen)
	oldPos, addPos, extraPos := 0, 0, 0
	for i := 0; i+24 <= len(ctrlBytes); i += 24 {
		add := int(getInt64(ctrlBytes[i : i+8]))
		cp := int(getInt64(ctrlBytes[i+8 : i+16]))
		seek := int(getInt64(ctrlBytes[i+16 : i+24]))

		if add < 0 || cp < 0 || addPos+add > len(addData) || oldPos+add > len(old) {
			return nil, errors.Wrap(driverrors.ErrPatchFailure, "control entry out of range")
		}
		for j := 0; j < add; j++ {
			out = append(out, addData[addPos+j]+old[oldPos+j])
		}
		addPos += add
		oldPos += add

		if extraPos+cp > len(extraData) {
			return nil, errors.Wrap(driverrors.ErrPatchFailure, "extra data out of range")
		}
		out = append(out, extraData[extraPos:extraPos+cp]...)
		extraPos += cp

		oldPos += seek
	}

	if len(out) != newLen {
		return nil, errors.Wrapf(driverrors.ErrPatchFailure, "patch produced %d bytes, expected %d", len(out), newLen)
	}
	return out, nil
}
