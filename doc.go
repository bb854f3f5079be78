// Copyright ©2019 The Gonum Authors. All rights reserved.
// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package guda is the device runtime underneath the strided reduction engine.
//
// The runtime models an accelerator on the host CPU:
//   - grids of independently scheduled blocks, run on a bounded worker group
//   - blocks of cooperating threads with SyncThreads barriers
//   - per-block shared memory sized at launch time
//   - ordered streams whose faults surface at Synchronize
//
// Array views live in package array, iteration descriptors in package
// indexer, and the reduction engine itself in package reduce.
package guda
