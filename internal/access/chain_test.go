package access

import (
	"context"
	"errors"
	"testing"
	"time"

	"prepmaster/backend/internal/identity/domain"
	"prepmaster/backend/internal/identity/repository"
	"prepmaster/backend/internal/platform/apperr"
	"prepmaster/backend/internal/platform/rbac"
	"prepmaster/backend/internal/security"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type chainFixture struct {
	now    time.Time
	repo   *repository.MemoryRepository
	tokens *security.TokenCodec
	auth   *Authenticator
}

func newChainFixture(t *testing.T) *chainFixture {
	t.Helper()
	f := &chainFixture{now: t0}
	clock := func() time.Time { return f.now }
	f.repo = repository.NewMemoryRepository(clock)
	f.tokens = security.NewTestTokenCodec(clock)
	f.auth = NewAuthenticator(f.tokens, f.repo, clock)
	return f
}

func (f *chainFixture) seed(t *testing.T, id string, role rbac.Role) string {
	t.Helper()
	ident := &domain.Identity{
		ID: id, Email: id + "@example.com", Name: "User " + id, Role: role,
		StudentID: "S-" + id, EmailVerified: true, Active: true, CreatedAt: f.now,
	}
	if err := f.repo.Create(context.Background(), ident); err != nil {
		t.Fatalf("Create: %v", err)
	}
	token, _, err := f.tokens.Issue(id)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	return token
}

func assertDenied(t *testing.T, d Decision, stage Stage, kind error) {
	t.Helper()
	if d.Allowed() {
		t.Fatalf("expected denial at %s", stage)
	}
	if d.Stage() != stage {
		t.Errorf("stage = %q, want %q", d.Stage(), stage)
	}
	if !errors.Is(d.Err(), kind) {
		t.Errorf("err = %v, want %v", d.Err(), kind)
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer abc", "abc", true},
		{"BEARER   abc  ", "abc", true},
		{"", "", false},
		{"Bearer", "", false},
		{"Bearer   ", "", false},
		{"Basic abc", "", false},
		{"abc", "", false},
	}
	for _, tt := range tests {
		got, ok := BearerToken(tt.header)
		if got != tt.want || ok != tt.ok {
			t.Errorf("BearerToken(%q) = %q, %v; want %q, %v", tt.header, got, ok, tt.want, tt.ok)
		}
	}
}

func TestAuthenticate_Valid(t *testing.T) {
	f := newChainFixture(t)
	token := f.seed(t, "alice", rbac.RoleStudent)

	ident, d, err := f.auth.Authenticate(context.Background(), "Bearer "+token)
	if err != nil || !d.Allowed() {
		t.Fatalf("Authenticate = %v, %v", d.Err(), err)
	}
	if ident.ID != "alice" || ident.PasswordHash != "" {
		t.Errorf("identity = %+v", ident)
	}
}

func TestAuthenticate_Denials(t *testing.T) {
	ctx := context.Background()

	t.Run("missing header", func(t *testing.T) {
		f := newChainFixture(t)
		_, d, _ := f.auth.Authenticate(ctx, "")
		assertDenied(t, d, StageAuthenticate, apperr.ErrUnauthenticated)
	})

	t.Run("garbage token", func(t *testing.T) {
		f := newChainFixture(t)
		_, d, _ := f.auth.Authenticate(ctx, "Bearer not-a-token")
		assertDenied(t, d, StageAuthenticate, apperr.ErrUnauthenticated)
	})

	t.Run("expired token", func(t *testing.T) {
		f := newChainFixture(t)
		token := f.seed(t, "alice", rbac.RoleStudent)
		f.now = f.now.Add(24*time.Hour + time.Second)
		_, d, _ := f.auth.Authenticate(ctx, "Bearer "+token)
		assertDenied(t, d, StageAuthenticate, apperr.ErrUnauthenticated)
	})

	t.Run("identity deleted", func(t *testing.T) {
		f := newChainFixture(t)
		token, _, _ := f.tokens.Issue("ghost")
		_, d, _ := f.auth.Authenticate(ctx, "Bearer "+token)
		assertDenied(t, d, StageAuthenticate, apperr.ErrUnauthenticated)
	})

	t.Run("password changed after issue", func(t *testing.T) {
		f := newChainFixture(t)
		token := f.seed(t, "alice", rbac.RoleStudent)
		f.now = f.now.Add(time.Second)
		_ = f.repo.Update(ctx, "alice", domain.SetPasswordChangedAt(f.now))
		_, d, _ := f.auth.Authenticate(ctx, "Bearer "+token)
		assertDenied(t, d, StageAuthenticate, apperr.ErrUnauthenticated)
	})

	t.Run("password changed later in the issuing second", func(t *testing.T) {
		f := newChainFixture(t)
		f.now = t0.Add(100 * time.Millisecond)
		token := f.seed(t, "alice", rbac.RoleStudent)
		_ = f.repo.Update(ctx, "alice", domain.SetPasswordChangedAt(t0.Add(600*time.Millisecond)))
		f.now = t0.Add(700 * time.Millisecond)
		_, d, _ := f.auth.Authenticate(ctx, "Bearer "+token)
		assertDenied(t, d, StageAuthenticate, apperr.ErrUnauthenticated)

		fresh, _, _ := f.tokens.Issue("alice")
		if _, d, _ := f.auth.Authenticate(ctx, "Bearer "+fresh); !d.Allowed() {
			t.Errorf("token issued after the change: %v", d.Err())
		}
	})

	t.Run("locked", func(t *testing.T) {
		f := newChainFixture(t)
		token := f.seed(t, "bob", rbac.RoleStudent)
		until := f.now.Add(30 * time.Minute)
		_ = f.repo.Update(ctx, "bob", domain.SetLoginAttempts(5), domain.SetLockUntil(&until))
		_, d, _ := f.auth.Authenticate(ctx, "Bearer "+token)
		assertDenied(t, d, StageAuthenticate, apperr.ErrForbidden)

		f.now = until.Add(time.Second)
		if _, d, _ := f.auth.Authenticate(ctx, "Bearer "+token); !d.Allowed() {
			t.Errorf("lock expired, want allow, got %v", d.Err())
		}
	})

	t.Run("deactivated", func(t *testing.T) {
		f := newChainFixture(t)
		token := f.seed(t, "carol", rbac.RoleStaff)
		_ = f.repo.Update(ctx, "carol", domain.SetActive(false))
		_, d, _ := f.auth.Authenticate(ctx, "Bearer "+token)
		assertDenied(t, d, StageAuthenticate, apperr.ErrForbidden)
	})
}

type failingLoader struct{}

func (failingLoader) GetByID(context.Context, string) (*domain.Identity, error) {
	return nil, errors.New("connection refused")
}

func TestAuthenticate_StoreError(t *testing.T) {
	tokens := security.NewTestTokenCodec(nil)
	token, _, _ := tokens.Issue("alice")
	a := NewAuthenticator(tokens, failingLoader{}, nil)
	_, d, err := a.Authenticate(context.Background(), "Bearer "+token)
	if err == nil {
		t.Fatal("store failure must surface as an error")
	}
	if d.Allowed() {
		t.Error("store failure must not allow")
	}
}

func TestAuthorize(t *testing.T) {
	student := &domain.Identity{ID: "s", Role: rbac.RoleStudent}
	if d := Authorize(student, rbac.RoleStudent, rbac.RoleStaff); !d.Allowed() {
		t.Error("student should pass a student route")
	}
	assertDenied(t, Authorize(student, rbac.RoleStaff, rbac.RoleAdmin), StageAuthorize, apperr.ErrForbidden)
	assertDenied(t, Authorize(nil, rbac.RoleStudent), StageAuthorize, apperr.ErrUnauthenticated)
	assertDenied(t, Authorize(student), StageAuthorize, apperr.ErrForbidden)
}

func TestHasPermission(t *testing.T) {
	tests := []struct {
		role rbac.Role
		perm rbac.Permission
		want bool
	}{
		{rbac.RoleSuperAdmin, rbac.PermManageQuestions, true},
		{rbac.RoleSuperAdmin, rbac.Permission("anything"), true},
		{rbac.RoleAdmin, rbac.PermManageUsers, true},
		{rbac.RoleAdmin, rbac.PermAttemptQuestions, false},
		{rbac.RoleStaff, rbac.PermCreateQuestions, true},
		{rbac.RoleStaff, rbac.PermManageQuestions, false},
		{rbac.RoleStudent, rbac.PermAttemptQuestions, true},
		{rbac.RoleStudent, rbac.PermViewQuestions, false},
	}
	for _, tt := range tests {
		d := HasPermission(&domain.Identity{Role: tt.role}, tt.perm)
		if d.Allowed() != tt.want {
			t.Errorf("HasPermission(%s, %s) = %v, want %v", tt.role, tt.perm, d.Allowed(), tt.want)
		}
		if !tt.want {
			assertDenied(t, d, StagePermission, apperr.ErrForbidden)
		}
	}
}

type doc struct{ owner string }

func (d doc) OwnerID() string { return d.owner }

func TestCheckOwnership(t *testing.T) {
	ctx := context.Background()
	load := func(_ context.Context, id string) (Owned, error) {
		if id == "q1" {
			return doc{owner: "carol"}, nil
		}
		return nil, nil
	}
	owner := &domain.Identity{ID: "carol", Role: rbac.RoleStaff}
	other := &domain.Identity{ID: "dave", Role: rbac.RoleStaff}
	admin := &domain.Identity{ID: "root", Role: rbac.RoleAdmin}

	if res, d, _ := CheckOwnership(ctx, owner, load, "q1"); !d.Allowed() || res.OwnerID() != "carol" {
		t.Errorf("owner: %v %v", res, d.Err())
	}
	if _, d, _ := CheckOwnership(ctx, admin, load, "q1"); !d.Allowed() {
		t.Errorf("admin should pass: %v", d.Err())
	}
	_, d, _ := CheckOwnership(ctx, other, load, "q1")
	assertDenied(t, d, StageOwnership, apperr.ErrForbidden)

	_, d, _ = CheckOwnership(ctx, admin, load, "missing")
	assertDenied(t, d, StageOwnership, apperr.ErrNotFound)

	boom := func(context.Context, string) (Owned, error) { return nil, errors.New("boom") }
	if _, _, err := CheckOwnership(ctx, owner, boom, "q1"); err == nil {
		t.Error("loader error should be returned")
	}
}

func TestDecision_ZeroValueDenies(t *testing.T) {
	var d Decision
	if d.Allowed() {
		t.Fatal("zero Decision must deny")
	}
	if !errors.Is(d.Err(), apperr.ErrUnauthenticated) {
		t.Errorf("err = %v", d.Err())
	}
	if Allow().Err() != nil || Allow().Reason() != nil {
		t.Error("allow must carry no error")
	}
}
