// Package sessionfakes provides an in-memory sessions.Store for tests.
package sessionfakes

import (
	"sync"

	"github.com/coursedeck/authgate/sessions"
)

// FakeStore is a mutex-guarded in-memory session store.
type FakeStore struct {
	mu         sync.Mutex
	rec        *sessions.Record
	SetCalls   int
	ClearCalls int
}

var _ sessions.Store = (*FakeStore)(nil)

func NewFakeStore(rec *sessions.Record) *FakeStore {
	return &FakeStore{rec: rec}
}

func (s *FakeStore) Get() *sessions.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec
}

func (s *FakeStore) Set(rec *sessions.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rec = rec
	s.SetCalls++
	return nil
}

func (s *FakeStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rec = nil
	s.ClearCalls++
}

func (s *FakeStore) AccessToken() string {
	if rec := s.Get(); rec != nil {
		return rec.AccessToken
	}
	return ""
}

func (s *FakeStore) RefreshToken() string {
	if rec := s.Get(); rec != nil {
		return rec.RefreshToken
	}
	return ""
}

func (s *FakeStore) Role() string {
	if rec := s.Get(); rec != nil {
		return rec.Role
	}
	return ""
}
