package core

import (
	"context"
	"fmt"
	"sync"
)

// MemoryCredentialStore keeps the token pair in process memory.
type MemoryCredentialStore struct {
	mu         sync.RWMutex
	credential Credential
}

func NewMemoryCredentialStore(initial ...Credential) *MemoryCredentialStore {
	store := &MemoryCredentialStore{}
	if len(initial) > 0 {
		store.credential = initial[0].normalized()
	}
	return store
}

func (s *MemoryCredentialStore) Load(context.Context) (Credential, error) {
	if s == nil {
		return Credential{}, fmt.Errorf("core: memory credential store is not configured")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.credential, nil
}

func (s *MemoryCredentialStore) Save(_ context.Context, credential Credential) error {
	if s == nil {
		return fmt.Errorf("core: memory credential store is not configured")
	}
	s.mu.Lock()
	s.credential = credential.normalized()
	s.mu.Unlock()
	return nil
}

func (s *MemoryCredentialStore) Clear(context.Context) error {
	if s == nil {
		return fmt.Errorf("core: memory credential store is not configured")
	}
	s.mu.Lock()
	s.credential = Credential{}
	s.mu.Unlock()
	return nil
}
