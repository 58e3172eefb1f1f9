// Package app defines application-wide types, constants, and context
// that are shared across the driver's commands.
package app

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"os"
	"path/filepath"
)

// Name is the name of the driver executable.
var Name = filepath.Base(os.Args[0])

// Context represents the application context that can be accessed from all commands.
type Context struct {
	Timestamp    string // Timestamp is the timestamp when the driver run started.
	LocalTempDir string // LocalTempDir is the temp directory the driver created for this run.
	LogFilePath  string // LogFilePath is the path to the log file.
	Version      string // Version is the version of the driver.
	Debug        bool   // Debug is true if the driver is running in debug mode.
}

// Flag names for flags defined on the root command.
const (
	FlagDebugName         = "debug"
	FlagLogStdOutName     = "log-stdout"
	FlagTargetName        = "target"
	FlagPrintName         = "print"
	FlagCPUsName          = "cpus"
	FlagExcludeFeatures   = "exclude-cpu-features"
	FlagProfileName       = "profile"
	FlagColorName         = "color"
	FlagOutDirName        = "out-dir"
	FlagRunnerVersionName = "runner-version"
)

// PrintCPUFeatures is the only recognised value of --print today (spec.md §6).
const PrintCPUFeatures = "cpu-features"
