package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"microblog/internal/domain"
)

func TestDB_UserLookups(t *testing.T) {
	ctx := context.Background()
	db := New()

	alice, err := db.Create(ctx, "alice", "Alice", "1001")
	if err != nil {
		t.Fatalf("create alice: %v", err)
	}
	bob, err := db.Create(ctx, "bob", "Bob", "")
	if err != nil {
		t.Fatalf("create bob: %v", err)
	}
	if alice.ID == bob.ID {
		t.Fatalf("ids not unique: %d", alice.ID)
	}

	got, err := db.GetByID(ctx, alice.ID)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if got == nil || got.Username != "alice" {
		t.Errorf("get by id = %+v", got)
	}

	got, err = db.GetByUsername(ctx, "bob")
	if err != nil {
		t.Fatalf("get by username: %v", err)
	}
	if got == nil || got.ID != bob.ID {
		t.Errorf("get by username = %+v", got)
	}

	got, err = db.GetByGitHubID(ctx, "1001")
	if err != nil {
		t.Fatalf("get by github id: %v", err)
	}
	if got == nil || got.ID != alice.ID {
		t.Errorf("get by github id = %+v", got)
	}
}

func TestDB_GetMissingUserReturnsNil(t *testing.T) {
	ctx := context.Background()
	db := New()
	if _, err := db.Create(ctx, "alice", "Alice", ""); err != nil {
		t.Fatalf("create: %v", err)
	}

	if got, err := db.GetByUsername(ctx, "nobody"); err != nil || got != nil {
		t.Errorf("GetByUsername = %+v, %v; want nil, nil", got, err)
	}
	if got, err := db.GetByID(ctx, 99); err != nil || got != nil {
		t.Errorf("GetByID = %+v, %v; want nil, nil", got, err)
	}
	// Alice has no linked provider id; an empty key must not match her.
	if got, err := db.GetByGitHubID(ctx, ""); err != nil || got != nil {
		t.Errorf("GetByGitHubID(\"\") = %+v, %v; want nil, nil", got, err)
	}
}

func TestSessionRepo_DuplicateToken(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepo(New())
	now := time.Now().UTC()

	if err := repo.Create(ctx, 1, "tok", now, now.Add(time.Hour)); err != nil {
		t.Fatalf("first create: %v", err)
	}
	err := repo.Create(ctx, 2, "tok", now, now.Add(time.Hour))
	if !errors.Is(err, domain.ErrTokenExists) {
		t.Fatalf("second create err = %v, want ErrTokenExists", err)
	}

	// The original session must survive the rejected insert.
	s, err := repo.GetByToken(ctx, "tok")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if s == nil || s.UserID != 1 {
		t.Errorf("session = %+v, want user 1", s)
	}
}

func TestSessionRepo_GetMissingReturnsNil(t *testing.T) {
	repo := NewSessionRepo(New())
	s, err := repo.GetByToken(context.Background(), "nope")
	if err != nil || s != nil {
		t.Errorf("GetByToken = %+v, %v; want nil, nil", s, err)
	}
}

func TestSessionRepo_DeleteIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepo(New())
	now := time.Now().UTC()

	if err := repo.Create(ctx, 1, "tok", now, now.Add(time.Hour)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.Delete(ctx, "tok"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := repo.Delete(ctx, "tok"); err != nil {
		t.Fatalf("repeat delete: %v", err)
	}
	if s, _ := repo.GetByToken(ctx, "tok"); s != nil {
		t.Errorf("session survived delete: %+v", s)
	}
}

func TestSessionRepo_DeleteExpired(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepo(New())
	now := time.Now().UTC()

	if err := repo.Create(ctx, 1, "old", now.Add(-2*time.Hour), now.Add(-time.Hour)); err != nil {
		t.Fatalf("create old: %v", err)
	}
	if err := repo.Create(ctx, 1, "live", now, now.Add(time.Hour)); err != nil {
		t.Fatalf("create live: %v", err)
	}

	n, err := repo.DeleteExpired(ctx, now)
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted %d sessions, want 1", n)
	}
	if s, _ := repo.GetByToken(ctx, "old"); s != nil {
		t.Errorf("expired session survived: %+v", s)
	}
	if s, _ := repo.GetByToken(ctx, "live"); s == nil {
		t.Error("live session was deleted")
	}

	n, err = repo.DeleteExpired(ctx, now)
	if err != nil {
		t.Fatalf("second delete expired: %v", err)
	}
	if n != 0 {
		t.Errorf("second sweep deleted %d sessions, want 0", n)
	}
}

func TestSessionRepo_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepo(New())
	now := time.Now().UTC()

	if err := repo.Create(ctx, 1, "tok", now, now.Add(time.Hour)); err != nil {
		t.Fatalf("create: %v", err)
	}
	s, _ := repo.GetByToken(ctx, "tok")
	s.UserID = 99

	again, _ := repo.GetByToken(ctx, "tok")
	if again.UserID != 1 {
		t.Errorf("mutation leaked into the store: user id = %d", again.UserID)
	}
}
