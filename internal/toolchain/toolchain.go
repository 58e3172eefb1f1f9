// Package toolchain queries the native compiler toolchain (cargo rustc)
// for the host triple, the CPUs it knows about for a target, and the
// feature set it reports for a given (target, cpu) pair.
//
// The command-execution shape here (timeout, captured stdout/stderr, exit
// code) follows the same pattern as a local command runner — simplified
// to local-only since the Driver never targets a remote host.
package toolchain

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"multivers/internal/driverrors"
	"multivers/internal/features"
)

// legacy32BitCPUs enumerates pre-64-bit x86 micro-architectures that must
// be filtered out before feature probing on a 64-bit target, or the
// toolchain aborts with "LLVM ERROR: 64-bit code requested on a subtarget
// that doesn't support it!".
var legacy32BitCPUs = map[string]struct{}{
	"i386": {}, "i486": {}, "i586": {}, "i686": {},
	"pentium": {}, "pentium-mmx": {}, "pentium2": {}, "pentium3": {}, "pentium3m": {},
	"pentium4": {}, "pentium4m": {}, "pentium-m": {}, "pentiumpro": {}, "pentiumprescott": {},
	"prescott": {},
	"athlon": {}, "athlon-4": {}, "athlon-xp": {}, "athlon-mp": {}, "athlon-tbird": {},
	"c3": {}, "c3-2": {},
	"geode": {}, "k6": {}, "k6-2": {}, "k6-3": {},
	"lakemont":   {},
	"winchip-c6": {}, "winchip2": {},
	"yonah": {},
}

// Is64BitTarget reports whether the target triple names a 64-bit
// architecture, determined by the triple's first component.
func Is64BitTarget(target string) bool {
	arch, _, _ := strings.Cut(target, "-")
	switch arch {
	case "x86_64", "aarch64", "arm64", "riscv64", "powerpc64", "powerpc64le", "s390x":
		return true
	default:
		return false
	}
}

// Probe wraps one invocation of the native toolchain, caching CPUsFor and
// FeaturesFor results for its lifetime. A Probe is safe for concurrent use
// by the Variant Builder's parallel workers.
type Probe struct {
	// Command is the toolchain entry point, e.g. "cargo". Defaults to the
	// CARGO environment variable if set, else "cargo".
	Command string
	// Timeout bounds a single toolchain invocation; zero means no timeout.
	Timeout time.Duration

	mu          sync.Mutex
	cpuCache    map[string][]string
	featCache   map[string]features.FeatureSet
	experimentl *bool
}

// NewProbe returns a Probe using the CARGO environment variable, or
// "cargo" if unset.
func NewProbe() *Probe {
	cmd := os.Getenv("CARGO")
	if cmd == "" {
		cmd = "cargo"
	}
	return &Probe{
		Command:   cmd,
		Timeout:   2 * time.Minute,
		cpuCache:  make(map[string][]string),
		featCache: make(map[string]features.FeatureSet),
	}
}

func (p *Probe) run(args ...string) (stdout, stderr string, err error) {
	ctx := context.Background()
	var cancel context.CancelFunc
	if p.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}
	full := append([]string{"rustc", "--"}, args...)
	cmd := exec.CommandContext(ctx, p.Command, full...) // #nosec G204
	slog.Debug("running toolchain command", slog.String("cmd", cmd.String()))
	var outbuf, errbuf strings.Builder
	cmd.Stdout = &outbuf
	cmd.Stderr = &errbuf
	err = cmd.Run()
	stdout = outbuf.String()
	stderr = errbuf.String()
	if err != nil {
		return stdout, stderr, fmt.Errorf("%s %s (stderr: %s): %w: %w", p.Command, strings.Join(full, " "), strings.TrimSpace(stderr), driverrors.ErrToolchainFailure, err)
	}
	if strings.TrimSpace(stderr) != "" {
		return stdout, stderr, errors.Wrapf(driverrors.ErrToolchainFailure, "%s %s produced unexpected stderr: %s", p.Command, strings.Join(full, " "), strings.TrimSpace(stderr))
	}
	return stdout, stderr, nil
}

// DefaultTarget parses the toolchain's `-vV` output and returns the host
// triple line.
func (p *Probe) DefaultTarget() (string, error) {
	stdout, _, err := p.run("-vV")
	if err != nil {
		return "", err
	}
	scanner := bufio.NewScanner(strings.NewReader(stdout))
	for scanner.Scan() {
		line := scanner.Text()
		if rest, ok := strings.CutPrefix(line, "host: "); ok {
			return rest, nil
		}
	}
	return "", errors.Wrap(driverrors.ErrToolchainFailure, "failed to detect default target: no 'host:' line in -vV output")
}

// CPUsFor asks the toolchain for the list of CPUs it supports for target,
// filtering the pseudo-entry "native" and blank/annotation lines, and (on
// a 64-bit target) the legacy 32-bit micro-architectures that would fail
// feature probing. Results are cached for the Probe's lifetime.
func (p *Probe) CPUsFor(target string) ([]string, error) {
	p.mu.Lock()
	if cached, ok := p.cpuCache[target]; ok {
		p.mu.Unlock()
		return cached, nil
	}
	p.mu.Unlock()

	stdout, _, err := p.run("--print=target-cpus", "--target", target)
	if err != nil {
		return nil, err
	}

	var cpus []string
	scanner := bufio.NewScanner(strings.NewReader(stdout))
	first := true
	for scanner.Scan() {
		if first {
			// first line is a header ("Available CPUs for this target:")
			first = false
			continue
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line == "native" || strings.HasPrefix(line, "native ") {
			continue
		}
		// strip any trailing annotation, e.g. "alderlake - Select the alderlake processor."
		name, _, _ := strings.Cut(line, " ")
		if Is64BitTarget(target) {
			if _, legacy := legacy32BitCPUs[name]; legacy {
				continue
			}
		}
		cpus = append(cpus, name)
	}

	p.mu.Lock()
	p.cpuCache[target] = cpus
	p.mu.Unlock()
	return cpus, nil
}

// FeaturesFor asks the toolchain for the preprocessor-style feature
// configuration under -target-cpu=cpu, retaining tokens of the shape
// `target_feature="name"` and rejecting any whose name begins with "llvm"
// (internal pseudo-features).
func (p *Probe) FeaturesFor(target, cpu string) (features.FeatureSet, error) {
	cacheKey := target + "|" + cpu
	p.mu.Lock()
	if cached, ok := p.featCache[cacheKey]; ok {
		p.mu.Unlock()
		return cached, nil
	}
	p.mu.Unlock()

	stdout, _, err := p.run("--print=cfg", "--target", target, fmt.Sprintf("-Ctarget-cpu=%s", cpu))
	if err != nil {
		return features.FeatureSet{}, err
	}

	var tokens []string
	scanner := bufio.NewScanner(strings.NewReader(stdout))
	for scanner.Scan() {
		line := scanner.Text()
		rest, ok := strings.CutPrefix(line, `target_feature="`)
		if !ok {
			continue
		}
		name, ok := strings.CutSuffix(rest, `"`)
		if !ok {
			continue
		}
		if strings.HasPrefix(name, "llvm") {
			continue
		}
		tokens = append(tokens, name)
	}

	fs := features.New(tokens)
	p.mu.Lock()
	p.featCache[cacheKey] = fs
	p.mu.Unlock()
	return fs, nil
}

// IsHostToolchainExperimental is an advisory flag consulted by higher
// layers; it reports whether the toolchain's -vV output identifies a
// nightly/experimental release channel.
func (p *Probe) IsHostToolchainExperimental() bool {
	p.mu.Lock()
	cached := p.experimentl
	p.mu.Unlock()
	if cached != nil {
		return *cached
	}
	stdout, _, err := p.run("-vV")
	experimental := false
	if err == nil {
		scanner := bufio.NewScanner(strings.NewReader(stdout))
		for scanner.Scan() {
			if rest, ok := strings.CutPrefix(scanner.Text(), "release: "); ok {
				experimental = strings.Contains(rest, "nightly") || strings.Contains(rest, "beta")
			}
		}
	}
	p.mu.Lock()
	p.experimentl = &experimental
	p.mu.Unlock()
	return experimental
}
