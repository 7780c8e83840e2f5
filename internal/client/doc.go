// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package client implements the sync15 command line client.
//
// It wires configuration, the local history database, the persisted state
// file and the sync manager into a single process, and exposes them as cobra
// commands: one-shot syncs, a scheduled sync loop and local engine
// maintenance.
package client
