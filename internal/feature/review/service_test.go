package review

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"greenhome/internal/core/apperr"
	"greenhome/internal/domain"
	"greenhome/internal/repo"
	"greenhome/pkg/utils"
)

type fixture struct {
	svc      *Service
	reviews  *repo.MemReviewRepo
	accounts *repo.MemAccountRepo
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	f := fixture{reviews: repo.NewMemReviewRepo(), accounts: repo.NewMemAccountRepo()}
	f.svc = NewService(f.reviews, f.accounts, zap.NewNop())
	return f
}

func (f fixture) account(t *testing.T, email, name, photo string) *domain.Account {
	t.Helper()
	a := &domain.Account{Email: email, DisplayName: name, PhotoURL: photo}
	if err := f.accounts.Create(context.Background(), a); err != nil {
		t.Fatal(err)
	}
	return a
}

func wantKind(t *testing.T, err error, k apperr.Kind) {
	t.Helper()
	if !apperr.Is(err, k) {
		t.Fatalf("err = %v, want %v", err, k)
	}
}

func TestParseRating(t *testing.T) {
	good := []any{float64(1), float64(5), "3", json.Number("4"), 2}
	for _, v := range good {
		if _, err := ParseRating(v); err != nil {
			t.Errorf("ParseRating(%v) = %v", v, err)
		}
	}
	bad := []any{float64(0), float64(6), 3.5, "abc", nil, true}
	for _, v := range bad {
		if _, err := ParseRating(v); !apperr.Is(err, apperr.KindInvalidInput) {
			t.Errorf("ParseRating(%v) = %v, want InvalidInput", v, err)
		}
	}
}

func TestAddValidatesAndJoins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.account(t, "o@x.io", "Olive", "o.png")

	v, err := f.svc.Add(ctx, "O@x.io", "  lovely place  ", float64(5))
	if err != nil {
		t.Fatal(err)
	}
	if v.UserID != owner.ID || v.Text != "lovely place" || v.User.DisplayName != "Olive" || *v.User.PhotoURL != "o.png" {
		t.Fatalf("view = %+v", v)
	}

	_, err = f.svc.Add(ctx, "ghost@x.io", "hi", 3)
	wantKind(t, err, apperr.KindNotFound)
	_, err = f.svc.Add(ctx, "o@x.io", "   ", 3)
	wantKind(t, err, apperr.KindInvalidInput)
	_, err = f.svc.Add(ctx, "o@x.io", strings.Repeat("a", 1001), 3)
	wantKind(t, err, apperr.KindInvalidInput)
	_, err = f.svc.Add(ctx, "o@x.io", "ok", 0)
	wantKind(t, err, apperr.KindInvalidInput)
}

func TestOwnershipAndUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.account(t, "o@x.io", "Olive", "")
	f.account(t, "p@x.io", "Pat", "")

	v, err := f.svc.Add(ctx, "o@x.io", "good", 4)
	if err != nil {
		t.Fatal(err)
	}

	_, err = f.svc.Update(ctx, v.ID, "p@x.io", map[string]any{"rating": float64(3)})
	wantKind(t, err, apperr.KindForbidden)
	_, err = f.svc.Update(ctx, v.ID, "ghost@x.io", map[string]any{"rating": float64(3)})
	wantKind(t, err, apperr.KindUnauthorized)
	_, err = f.svc.Update(ctx, v.ID, "o@x.io", map[string]any{"rating": float64(6)})
	wantKind(t, err, apperr.KindInvalidInput)
	_, err = f.svc.Update(ctx, v.ID, "o@x.io", map[string]any{"userId": "x"})
	wantKind(t, err, apperr.KindInvalidInput)
	_, err = f.svc.Update(ctx, v.ID, "o@x.io", map[string]any{"rating": float64(4), "reviewtext": "good"})
	wantKind(t, err, apperr.KindNoChange)
	_, err = f.svc.Update(ctx, utils.NewID(), "o@x.io", map[string]any{"rating": float64(3)})
	wantKind(t, err, apperr.KindNotFound)
	_, err = f.svc.Update(ctx, "nope", "o@x.io", map[string]any{"rating": float64(3)})
	wantKind(t, err, apperr.KindInvalidID)

	updated, err := f.svc.Update(ctx, v.ID, "o@x.io", map[string]any{"rating": float64(3)})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Rating != 3 || updated.Text != "good" || updated.UpdatedAt == nil {
		t.Fatalf("updated = %+v", updated)
	}
	got, err := f.svc.GetByID(ctx, v.ID)
	if err != nil || got.Rating != 3 {
		t.Fatalf("GetByID = %+v, %v", got, err)
	}
}

func TestJoinSentinels(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	nameless := f.account(t, "n@x.io", "", "")
	gone := utils.NewID()

	now := time.Now().UTC()
	_ = f.reviews.Create(ctx, &domain.Review{UserID: nameless.ID, Text: "a", Rating: 3, CreatedAt: now})
	_ = f.reviews.Create(ctx, &domain.Review{UserID: gone, Text: "b", Rating: 2, CreatedAt: now.Add(time.Second)})

	views, err := f.svc.ListAll(ctx)
	if err != nil || len(views) != 2 {
		t.Fatalf("ListAll = %d, %v", len(views), err)
	}
	// 新的在前
	if views[0].User.DisplayName != deletedUser || views[0].User.PhotoURL != nil {
		t.Fatalf("deleted user view = %+v", views[0].User)
	}
	if views[1].User.DisplayName != unknownUser {
		t.Fatalf("nameless user view = %+v", views[1].User)
	}

	mine, err := f.svc.ListByUser(ctx, nameless.ID)
	if err != nil || len(mine) != 1 || mine[0].Text != "a" {
		t.Fatalf("ListByUser = %+v, %v", mine, err)
	}
	_, err = f.svc.ListByUser(ctx, "bad")
	wantKind(t, err, apperr.KindInvalidID)
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.account(t, "o@x.io", "Olive", "")
	v, _ := f.svc.Add(ctx, "o@x.io", "fine", 3)

	if err := f.svc.Delete(ctx, v.ID); err != nil {
		t.Fatal(err)
	}
	wantKind(t, f.svc.Delete(ctx, v.ID), apperr.KindNotFound)
	wantKind(t, f.svc.Delete(ctx, "zzz"), apperr.KindInvalidID)
}

func TestListPaginatedBoundaries(t *testing.T) {
	ctx := context.Background()
	seed := func(t *testing.T, n int) *Service {
		t.Helper()
		f := newFixture(t)
		a := f.account(t, "o@x.io", "Olive", "")
		base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		for i := 0; i < n; i++ {
			_ = f.reviews.Create(ctx, &domain.Review{UserID: a.ID, Text: "r", Rating: 4, CreatedAt: base.Add(time.Duration(i) * time.Minute)})
		}
		return f.svc
	}

	tests := []struct {
		name      string
		n, page   int
		wantItems int
		wantPages int64
		wantTotal int64
	}{
		{"empty", 0, 1, 0, 0, 0},
		{"exactly one page", 10, 1, 10, 1, 10},
		{"spills to page two", 11, 2, 1, 2, 11},
		{"past the end", 11, 3, 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := seed(t, tt.n).ListPaginated(ctx, tt.page, 10)
			if err != nil {
				t.Fatal(err)
			}
			if len(p.Items) != tt.wantItems || p.TotalPages != tt.wantPages || p.TotalCount != tt.wantTotal || p.CurrentPage != tt.page {
				t.Fatalf("page = items:%d pages:%d total:%d current:%d", len(p.Items), p.TotalPages, p.TotalCount, p.CurrentPage)
			}
			if p.Items == nil {
				t.Fatal("items must be an empty slice, not nil")
			}
		})
	}
}

func TestListPaginatedDefaults(t *testing.T) {
	f := newFixture(t)
	p, err := f.svc.ListPaginated(context.Background(), 0, 0)
	if err != nil || p.CurrentPage != 1 {
		t.Fatalf("page = %+v, %v", p, err)
	}
}
