package store

import (
	"context"
	"encoding/json"
	"sync"

	jsonpatch "github.com/evanphx/json-patch/v5"
)

// StateKey is the adapter key holding the state document.
const StateKey = "state"

// State holds the opaque side-channel state document of a thread.
// The document is replaced by snapshots and patched by RFC 6902 deltas.
type State struct {
	mu      sync.Mutex
	adapter Adapter
}

// NewState creates a State with the given adapter.
// If adapter is nil, a default in-memory adapter is used.
func NewState(adapter Adapter) *State {
	if adapter == nil {
		adapter = NewMemoryAdapter()
	}
	return &State{adapter: adapter}
}

// Get returns the current document. ok is false if no snapshot has arrived.
func (s *State) Get(ctx context.Context) (doc json.RawMessage, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.adapter.Get(ctx, StateKey)
}

// Snapshot replaces the document. doc must be valid JSON.
func (s *State) Snapshot(ctx context.Context, doc json.RawMessage) error {
	if !json.Valid(doc) {
		var v any
		return &SerializationError{Key: StateKey, Err: json.Unmarshal(doc, &v)}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.adapter.Set(ctx, StateKey, doc)
}

// Apply applies a JSON Patch to the document. A missing document is
// treated as the empty object. On failure the document is unchanged.
func (s *State) Apply(ctx context.Context, patch json.RawMessage) error {
	p, err := jsonpatch.DecodePatch(patch)
	if err != nil {
		return &PatchError{Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok, err := s.adapter.Get(ctx, StateKey)
	if err != nil {
		return err
	}
	if !ok {
		doc = json.RawMessage(`{}`)
	}

	patched, err := p.Apply(doc)
	if err != nil {
		return &PatchError{Err: err}
	}
	return s.adapter.Set(ctx, StateKey, patched)
}

// Decode unmarshals the document into v.
// Returns ErrKeyNotFound if no snapshot has arrived.
func (s *State) Decode(ctx context.Context, v any) error {
	doc, ok, err := s.Get(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return ErrKeyNotFound
	}
	if err := json.Unmarshal(doc, v); err != nil {
		return &SerializationError{Key: StateKey, Err: err}
	}
	return nil
}

// Reset discards the document.
func (s *State) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.adapter.Delete(ctx, StateKey)
}
