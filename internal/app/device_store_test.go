package app

import (
	"testing"
	"time"
)

func TestDeviceCodeStore_LivenessWindow(t *testing.T) {
	t0 := time.Now()
	s := NewDeviceCodeStore(15 * time.Minute)
	s.now = func() time.Time { return t0 }

	s.Register("code-1")

	s.now = func() time.Time { return t0.Add(14*time.Minute + 59*time.Second) }
	if !s.IsLive("code-1") {
		t.Error("code should be live just inside the window")
	}

	s.now = func() time.Time { return t0.Add(15*time.Minute + time.Second) }
	if s.IsLive("code-1") {
		t.Error("code should not be live past the window")
	}
}

func TestDeviceCodeStore_UnknownCode(t *testing.T) {
	s := NewDeviceCodeStore(15 * time.Minute)
	if s.IsLive("never-registered") {
		t.Error("unregistered code must not be live")
	}
}

func TestDeviceCodeStore_RemoveImmediate(t *testing.T) {
	s := NewDeviceCodeStore(15 * time.Minute)
	s.Register("code-1")
	s.Remove("code-1")
	if s.IsLive("code-1") {
		t.Error("removed code must not be live regardless of elapsed time")
	}
	// Removing again is a no-op.
	s.Remove("code-1")
}

func TestDeviceCodeStore_RegisterPrunesExpired(t *testing.T) {
	t0 := time.Now()
	s := NewDeviceCodeStore(15 * time.Minute)
	s.now = func() time.Time { return t0 }

	s.Register("stale")

	s.now = func() time.Time { return t0.Add(16 * time.Minute) }
	s.Register("fresh")

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.codes["stale"]; ok {
		t.Error("registration should prune expired entries")
	}
	if _, ok := s.codes["fresh"]; !ok {
		t.Error("fresh entry should survive the prune")
	}
}
