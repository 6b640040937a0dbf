package account

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"greenhome/internal/core/apperr"
	"greenhome/internal/domain"
	"greenhome/internal/repo"
)

func newTestService(t *testing.T) (*Service, *repo.MemAccountRepo) {
	t.Helper()
	r := repo.NewMemAccountRepo()
	return NewService(r, zap.NewNop()), r
}

func mustRegister(t *testing.T, s *Service, email string) *domain.Account {
	t.Helper()
	a, err := s.Register(context.Background(), RegisterInput{Email: email})
	if err != nil {
		t.Fatalf("Register(%s): %v", email, err)
	}
	return a
}

func makeAdmin(t *testing.T, r *repo.MemAccountRepo, email string) {
	t.Helper()
	if ok, err := r.SetRole(context.Background(), email, domain.RoleAdmin, testNow); !ok || err != nil {
		t.Fatalf("SetRole(%s) = %v, %v", email, ok, err)
	}
}

func wantKind(t *testing.T, err error, k apperr.Kind) {
	t.Helper()
	if !apperr.Is(err, k) {
		t.Fatalf("err = %v, want kind %v", err, k)
	}
}

func TestRegisterNormalizesAndRejectsDuplicate(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	a := mustRegister(t, s, "  Ann@Example.COM ")
	if a.Email != "ann@example.com" || a.Role != "" {
		t.Fatalf("account = %+v", a)
	}
	_, err := s.Register(ctx, RegisterInput{Email: "ANN@example.com"})
	wantKind(t, err, apperr.KindConflict)

	_, err = s.Register(ctx, RegisterInput{Email: "  "})
	wantKind(t, err, apperr.KindInvalidInput)
}

func TestResolveRole(t *testing.T) {
	s, r := newTestService(t)
	ctx := context.Background()
	mustRegister(t, s, "a@x.io")
	makeAdmin(t, r, "a@x.io")
	mustRegister(t, s, "b@x.io")

	tests := []struct {
		email string
		want  bool
	}{
		{"A@X.io", true},
		{"b@x.io", false},
		{"ghost@x.io", false},
	}
	for _, tt := range tests {
		got, err := s.ResolveRole(ctx, tt.email)
		if err != nil || got != tt.want {
			t.Errorf("ResolveRole(%s) = %v, %v; want %v", tt.email, got, err, tt.want)
		}
	}
}

func TestUpsertKeepsEditedProfile(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	a, created, err := s.UpsertFromProvider(ctx, "u@x.io", "Google Name", "g.png")
	if err != nil || !created || a.DisplayName != "Google Name" {
		t.Fatalf("first upsert = %+v, %v, %v", a, created, err)
	}
	if err := s.UpdateProfile(ctx, "u@x.io", "Custom", "c.png"); err != nil {
		t.Fatal(err)
	}
	a, created, err = s.UpsertFromProvider(ctx, "U@x.io", "Google Renamed", "g2.png")
	if err != nil || created {
		t.Fatalf("second upsert created=%v err=%v", created, err)
	}
	if a.DisplayName != "Custom" || a.PhotoURL != "c.png" || a.GoogleName != "Google Renamed" {
		t.Fatalf("account = %+v", a)
	}

	wantKind(t, s.UpdateProfile(ctx, "ghost@x.io", "x", ""), apperr.KindNotFound)
}

func TestGrantAdmin(t *testing.T) {
	s, r := newTestService(t)
	ctx := context.Background()
	mustRegister(t, s, "admin@x.io")
	makeAdmin(t, r, "admin@x.io")
	mustRegister(t, s, "user@x.io")

	_, err := s.GrantAdmin(ctx, "user@x.io", "admin@x.io")
	wantKind(t, err, apperr.KindForbidden)

	_, err = s.GrantAdmin(ctx, "admin@x.io", "ghost@x.io")
	wantKind(t, err, apperr.KindNotFound)

	changed, err := s.GrantAdmin(ctx, "admin@x.io", "USER@x.io")
	if err != nil || !changed {
		t.Fatalf("GrantAdmin = %v, %v", changed, err)
	}
	changed, err = s.GrantAdmin(ctx, "admin@x.io", "user@x.io")
	if err != nil || changed {
		t.Fatalf("repeat GrantAdmin = %v, %v; want no-op", changed, err)
	}
}

func TestRevokeAdminGuards(t *testing.T) {
	s, r := newTestService(t)
	ctx := context.Background()
	mustRegister(t, s, "a@x.io")
	mustRegister(t, s, "b@x.io")
	mustRegister(t, s, "plain@x.io")
	makeAdmin(t, r, "a@x.io")

	wantKind(t, s.RevokeAdmin(ctx, "plain@x.io", "a@x.io"), apperr.KindForbidden)
	wantKind(t, s.RevokeAdmin(ctx, "a@x.io", "ghost@x.io"), apperr.KindNotFound)
	wantKind(t, s.RevokeAdmin(ctx, "a@x.io", "plain@x.io"), apperr.KindInvalidState)
	// 只剩一个管理员时先命中 LastAdmin，即使是撤销自己
	wantKind(t, s.RevokeAdmin(ctx, "a@x.io", "a@x.io"), apperr.KindLastAdmin)

	makeAdmin(t, r, "b@x.io")
	wantKind(t, s.RevokeAdmin(ctx, "a@x.io", "a@x.io"), apperr.KindSelfRevoke)

	if err := s.RevokeAdmin(ctx, "a@x.io", "b@x.io"); err != nil {
		t.Fatalf("RevokeAdmin: %v", err)
	}
	if n, _ := r.CountAdmins(ctx); n != 1 {
		t.Fatalf("admins = %d, want 1", n)
	}
	b, _ := r.FindByEmail(ctx, "b@x.io")
	if b.Role != "" || b.UpdatedAt == nil {
		t.Fatalf("revoked account = %+v", b)
	}
	// 计数不缓存：b 被撤销后，a 再次命中 LastAdmin
	wantKind(t, s.RevokeAdmin(ctx, "a@x.io", "a@x.io"), apperr.KindLastAdmin)
}

func TestListRequiresAdmin(t *testing.T) {
	s, r := newTestService(t)
	ctx := context.Background()
	mustRegister(t, s, "a@x.io")
	mustRegister(t, s, "b@x.io")

	_, err := s.List(ctx, "b@x.io")
	wantKind(t, err, apperr.KindForbidden)

	makeAdmin(t, r, "a@x.io")
	items, err := s.List(ctx, "a@x.io")
	if err != nil || len(items) != 2 {
		t.Fatalf("List = %d items, %v", len(items), err)
	}
}

func TestBootstrapAdmin(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	wantKind(t, s.BootstrapAdmin(ctx, "ghost@x.io"), apperr.KindNotFound)

	mustRegister(t, s, "a@x.io")
	mustRegister(t, s, "b@x.io")
	if err := s.BootstrapAdmin(ctx, "A@x.io"); err != nil {
		t.Fatalf("BootstrapAdmin: %v", err)
	}
	wantKind(t, s.BootstrapAdmin(ctx, "b@x.io"), apperr.KindInvalidState)

	admins, err := s.Admins(ctx)
	if err != nil || len(admins) != 1 || admins[0].Email != "a@x.io" {
		t.Fatalf("Admins = %+v, %v", admins, err)
	}
}

var testNow = time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
