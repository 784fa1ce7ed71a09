// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package state

import (
	"sync"

	"github.com/juju/cask/core/container"
)

// MemoryBackend is a Backend that keeps records in process memory. It is
// the backend of choice for tests and for deployments that accept losing
// lifecycle state on restart.
type MemoryBackend struct {
	mu      sync.Mutex
	records map[container.ID]container.Info
}

// NewMemoryBackend returns an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		records: make(map[container.ID]container.Info),
	}
}

// Put is part of the Backend interface.
func (b *MemoryBackend) Put(info container.Info) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.records[info.ID] = info
	return nil
}

// Load is part of the Backend interface.
func (b *MemoryBackend) Load() ([]container.Info, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	infos := make([]container.Info, 0, len(b.records))
	for _, info := range b.records {
		infos = append(infos, info)
	}
	return infos, nil
}
