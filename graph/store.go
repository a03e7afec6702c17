//
// Tencent is pleased to support the open source community by making trpc-flow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-flow-go is licensed under the Apache License Version 2.0.
//
//

package graph

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// defaultCleanupInterval is used when a TTL is configured without an
// explicit cleanup interval.
const defaultCleanupInterval = 5 * time.Minute

// GraphStore persists graph definitions.
type GraphStore interface {
	// PutGraph stores a graph under its ID, replacing any previous entry.
	PutGraph(ctx context.Context, g *Graph) error
	// GetGraph returns the graph with the given ID, or an error wrapping
	// ErrGraphNotFound.
	GetGraph(ctx context.Context, id string) (*Graph, error)
}

// RunStore persists run records.
type RunStore interface {
	// PutRun stores a run under its ID, replacing any previous entry.
	PutRun(ctx context.Context, r *Run) error
	// GetRun returns the run with the given ID, or an error wrapping
	// ErrRunNotFound.
	GetRun(ctx context.Context, id string) (*Run, error)
}

// storeOpts holds options shared by the in-memory stores.
type storeOpts struct {
	ttl             time.Duration
	cleanupInterval time.Duration
}

// StoreOption configures an in-memory store.
type StoreOption func(*storeOpts)

// WithTTL expires entries the given duration after insertion. Zero (the
// default) retains entries forever.
func WithTTL(ttl time.Duration) StoreOption {
	return func(opts *storeOpts) {
		opts.ttl = ttl
	}
}

// WithCleanupInterval sets the interval of the background cleanup routine.
// If a TTL is configured and no interval is set, cleanup runs every 5 minutes.
func WithCleanupInterval(interval time.Duration) StoreOption {
	return func(opts *storeOpts) {
		opts.cleanupInterval = interval
	}
}

func newStoreOpts(options []StoreOption) storeOpts {
	var opts storeOpts
	for _, option := range options {
		option(&opts)
	}
	if opts.cleanupInterval <= 0 && opts.ttl > 0 {
		opts.cleanupInterval = defaultCleanupInterval
	}
	return opts
}

// graphWithTTL wraps a graph with its expiration time.
type graphWithTTL struct {
	graph     *Graph
	expiredAt time.Time
}

// runWithTTL wraps a run with its expiration time.
type runWithTTL struct {
	run       *Run
	expiredAt time.Time
}

// isExpired checks if the given time has passed.
func isExpired(expiredAt time.Time) bool {
	return !expiredAt.IsZero() && time.Now().After(expiredAt)
}

// calculateExpiredAt calculates expiration time based on TTL.
func calculateExpiredAt(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{} // Zero time means no expiration
	}
	return time.Now().Add(ttl)
}

var (
	_ GraphStore = (*InMemoryGraphStore)(nil)
	_ RunStore   = (*InMemoryRunStore)(nil)
)

// InMemoryGraphStore is a map-backed GraphStore. Entries live forever unless
// a TTL is configured.
type InMemoryGraphStore struct {
	mu            sync.RWMutex
	graphs        map[string]*graphWithTTL
	opts          storeOpts
	cleanupTicker *time.Ticker
	cleanupDone   chan struct{}
	cleanupOnce   sync.Once
}

// NewInMemoryGraphStore creates an in-memory graph store.
func NewInMemoryGraphStore(options ...StoreOption) *InMemoryGraphStore {
	s := &InMemoryGraphStore{
		graphs:      make(map[string]*graphWithTTL),
		opts:        newStoreOpts(options),
		cleanupDone: make(chan struct{}),
	}
	if s.opts.cleanupInterval > 0 {
		s.cleanupTicker = time.NewTicker(s.opts.cleanupInterval)
		startCleanupRoutine(s.cleanupTicker, s.cleanupDone, s.cleanupExpired)
	}
	return s
}

// PutGraph stores a graph under its ID.
func (s *InMemoryGraphStore) PutGraph(ctx context.Context, g *Graph) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.graphs[g.ID] = &graphWithTTL{graph: g, expiredAt: calculateExpiredAt(s.opts.ttl)}
	return nil
}

// GetGraph returns the graph with the given ID.
func (s *InMemoryGraphStore) GetGraph(ctx context.Context, id string) (*Graph, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.graphs[id]
	if !ok || isExpired(entry.expiredAt) {
		return nil, fmt.Errorf("%w: %q", ErrGraphNotFound, id)
	}
	return entry.graph, nil
}

// cleanupExpired removes all expired graphs.
func (s *InMemoryGraphStore) cleanupExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, entry := range s.graphs {
		if isExpired(entry.expiredAt) {
			delete(s.graphs, id)
		}
	}
}

// Close stops the background cleanup routine.
func (s *InMemoryGraphStore) Close() error {
	s.cleanupOnce.Do(func() {
		if s.cleanupTicker != nil {
			close(s.cleanupDone)
			s.cleanupTicker = nil
		}
	})
	return nil
}

// InMemoryRunStore is a map-backed RunStore. Entries live forever unless a
// TTL is configured.
type InMemoryRunStore struct {
	mu            sync.RWMutex
	runs          map[string]*runWithTTL
	opts          storeOpts
	cleanupTicker *time.Ticker
	cleanupDone   chan struct{}
	cleanupOnce   sync.Once
}

// NewInMemoryRunStore creates an in-memory run store.
func NewInMemoryRunStore(options ...StoreOption) *InMemoryRunStore {
	s := &InMemoryRunStore{
		runs:        make(map[string]*runWithTTL),
		opts:        newStoreOpts(options),
		cleanupDone: make(chan struct{}),
	}
	if s.opts.cleanupInterval > 0 {
		s.cleanupTicker = time.NewTicker(s.opts.cleanupInterval)
		startCleanupRoutine(s.cleanupTicker, s.cleanupDone, s.cleanupExpired)
	}
	return s
}

// PutRun stores a run under its ID.
func (s *InMemoryRunStore) PutRun(ctx context.Context, r *Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[r.ID] = &runWithTTL{run: r, expiredAt: calculateExpiredAt(s.opts.ttl)}
	return nil
}

// GetRun returns the run with the given ID.
func (s *InMemoryRunStore) GetRun(ctx context.Context, id string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.runs[id]
	if !ok || isExpired(entry.expiredAt) {
		return nil, fmt.Errorf("%w: %q", ErrRunNotFound, id)
	}
	return entry.run, nil
}

// cleanupExpired removes all expired runs.
func (s *InMemoryRunStore) cleanupExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, entry := range s.runs {
		if isExpired(entry.expiredAt) {
			delete(s.runs, id)
		}
	}
}

// Close stops the background cleanup routine.
func (s *InMemoryRunStore) Close() error {
	s.cleanupOnce.Do(func() {
		if s.cleanupTicker != nil {
			close(s.cleanupDone)
			s.cleanupTicker = nil
		}
	})
	return nil
}

// startCleanupRoutine runs cleanup on each tick until done is closed.
func startCleanupRoutine(ticker *time.Ticker, done <-chan struct{}, cleanup func()) {
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				cleanup()
			case <-done:
				return
			}
		}
	}()
}
