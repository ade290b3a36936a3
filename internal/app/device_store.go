package app

import (
	"sync"
	"time"
)

// DeviceCodeStore is an in-memory registry of in-flight device
// authorizations. Entries live for a fixed TTL; a process restart drops
// them all, which is acceptable because the provider's own authorization
// window is similarly short.
type DeviceCodeStore struct {
	mu    sync.Mutex
	codes map[string]time.Time // device_code -> issued_at
	ttl   time.Duration
	now   func() time.Time
}

// NewDeviceCodeStore creates a store whose entries expire after ttl.
func NewDeviceCodeStore(ttl time.Duration) *DeviceCodeStore {
	return &DeviceCodeStore{
		codes: make(map[string]time.Time),
		ttl:   ttl,
		now:   time.Now,
	}
}

// Register records the issuance time for a device code. Expired entries
// are pruned on the way in, bounding growth without a dedicated timer.
func (s *DeviceCodeStore) Register(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for c, issued := range s.codes {
		if now.Sub(issued) >= s.ttl {
			delete(s.codes, c)
		}
	}
	s.codes[code] = now
}

// IsLive reports whether the code is registered and within its TTL.
func (s *DeviceCodeStore) IsLive(code string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	issued, ok := s.codes[code]
	return ok && s.now().Sub(issued) < s.ttl
}

// Remove deletes a device code. Removing an unknown code is a no-op.
func (s *DeviceCodeStore) Remove(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.codes, code)
}
