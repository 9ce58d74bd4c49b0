// SPDX-License-Identifier: MPL-2.0

// Package container abstracts container operations across the four runtimes
// venvoy supports: Docker, Apptainer, Singularity, and Podman.
//
// The package probes which runtime binaries are installed and working, picks
// one according to a fixed preference policy (daemonless runtimes first, so
// HPC login nodes work without a root Docker daemon), translates
// runtime-agnostic operations into the selected runtime's CLI dialect, and
// executes the resulting argument vectors as subprocesses. Apptainer and
// Singularity images are cached as flat .si files under a per-user cache
// directory.
//
// A Manager owns exactly one selected Runtime for its lifetime; all
// operations dispatch on that value and never mix dialects.
package container
