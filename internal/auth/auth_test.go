package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/mirabellier/backend/internal/model"
	"github.com/mirabellier/backend/internal/store/sqlite"
)

func newTestService(t *testing.T, secret string) *Service {
	t.Helper()
	dsn := fmt.Sprintf("file:auth_%s?mode=memory&cache=shared", t.Name())
	st, err := sqlite.Open(dsn)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return NewService(st, secret)
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newTestService(t, "")
	ctx := context.Background()

	user, token, err := svc.Register(ctx, "mira", "hunter22")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if user.Username != "mira" || token == "" {
		t.Fatalf("unexpected registration result: %+v, token=%q", user, token)
	}
	if user.PasswordHash == "hunter22" {
		t.Fatal("password stored in plaintext")
	}

	got, err := svc.ResolveToken(ctx, token)
	if err != nil {
		t.Fatalf("ResolveToken failed: %v", err)
	}
	if got.ID != user.ID {
		t.Fatalf("token resolved to wrong user: %s", got.ID)
	}

	_, token2, err := svc.Login(ctx, "mira", "hunter22")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if token2 == token {
		t.Fatal("expected a fresh token per login")
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	svc := newTestService(t, "")
	ctx := context.Background()

	if _, _, err := svc.Register(ctx, "mira", "pw"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if _, _, err := svc.Register(ctx, "mira", "other"); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	svc := newTestService(t, "")
	ctx := context.Background()

	if _, _, err := svc.Register(ctx, "mira", "correct"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	_, _, errUnknown := svc.Login(ctx, "nobody", "whatever")
	_, _, errWrongPw := svc.Login(ctx, "mira", "wrong")
	if !errors.Is(errUnknown, ErrInvalidCredentials) {
		t.Fatalf("unknown user: expected ErrInvalidCredentials, got %v", errUnknown)
	}
	if !errors.Is(errWrongPw, ErrInvalidCredentials) {
		t.Fatalf("wrong password: expected ErrInvalidCredentials, got %v", errWrongPw)
	}
}

func TestSignedTokens(t *testing.T) {
	svc := newTestService(t, "test-secret")
	ctx := context.Background()

	user, token, err := svc.Register(ctx, "mira", "pw")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	id, sig, ok := strings.Cut(token, ".")
	if !ok || id == "" || sig == "" {
		t.Fatalf("expected signed token, got %q", token)
	}

	got, err := svc.ResolveToken(ctx, token)
	if err != nil {
		t.Fatalf("ResolveToken failed: %v", err)
	}
	if got.ID != user.ID {
		t.Fatalf("token resolved to wrong user: %s", got.ID)
	}

	if _, err := svc.ResolveToken(ctx, id+".deadbeef"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("tampered signature: expected ErrInvalidCredentials, got %v", err)
	}
	// The bare id is not a stored session; stripping the tag must not grant
	// access.
	if _, err := svc.ResolveToken(ctx, id); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("stripped signature: expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLegacyUnsignedTokenStillResolves(t *testing.T) {
	dsn := fmt.Sprintf("file:auth_%s?mode=memory&cache=shared", t.Name())
	st, err := sqlite.Open(dsn)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	ctx := context.Background()

	// A session created before any signing secret existed is a bare random
	// id. Configuring a secret later must not log those sessions out.
	unsigned := NewService(st, "")
	user, token, err := unsigned.Register(ctx, "mira", "pw")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if strings.Contains(token, ".") {
		t.Fatalf("expected bare token without secret, got %q", token)
	}

	signed := NewService(st, "test-secret")
	got, err := signed.ResolveToken(ctx, token)
	if err != nil {
		t.Fatalf("ResolveToken failed for legacy token: %v", err)
	}
	if got.ID != user.ID {
		t.Fatalf("legacy token resolved to wrong user: %s", got.ID)
	}
}

func TestResolveUnknownToken(t *testing.T) {
	svc := newTestService(t, "")

	if _, err := svc.ResolveToken(context.Background(), "no-such-token"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.ResolveToken(context.Background(), ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("empty token: expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLogout(t *testing.T) {
	svc := newTestService(t, "")
	ctx := context.Background()

	_, token, err := svc.Register(ctx, "mira", "pw")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := svc.Logout(ctx, token); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if _, err := svc.ResolveToken(ctx, token); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials after logout, got %v", err)
	}
}

func TestFindOrCreateDiscordUser(t *testing.T) {
	svc := newTestService(t, "")
	ctx := context.Background()

	profile := model.DiscordProfile{
		ID:       "111222333",
		Username: "mira",
		Avatar:   "https://cdn.discordapp.com/avatars/111222333/a.png",
	}
	created, err := svc.FindOrCreateDiscordUser(ctx, profile)
	if err != nil {
		t.Fatalf("FindOrCreateDiscordUser failed: %v", err)
	}
	if created.DiscordID != profile.ID || created.Avatar != profile.Avatar {
		t.Fatalf("unexpected account: %+v", created)
	}

	// Second login with the same Discord id reuses the account and refreshes
	// the avatar.
	profile.Avatar = "https://cdn.discordapp.com/avatars/111222333/b.png"
	again, err := svc.FindOrCreateDiscordUser(ctx, profile)
	if err != nil {
		t.Fatalf("FindOrCreateDiscordUser failed: %v", err)
	}
	if again.ID != created.ID {
		t.Fatalf("expected same account, got %s and %s", created.ID, again.ID)
	}
	if again.Avatar != profile.Avatar {
		t.Fatalf("avatar not refreshed: %s", again.Avatar)
	}
}

func TestFindOrCreateDiscordUserUsernameCollision(t *testing.T) {
	svc := newTestService(t, "")
	ctx := context.Background()

	if _, _, err := svc.Register(ctx, "mira", "pw"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	user, err := svc.FindOrCreateDiscordUser(ctx, model.DiscordProfile{ID: "444", Username: "mira"})
	if err != nil {
		t.Fatalf("FindOrCreateDiscordUser failed: %v", err)
	}
	if user.Username == "mira" {
		t.Fatalf("expected derived username, got %q", user.Username)
	}
	if !strings.HasPrefix(user.Username, "mira-") {
		t.Fatalf("expected suffixed username, got %q", user.Username)
	}
}

func TestCanCurate(t *testing.T) {
	if CanCurate(nil) {
		t.Fatal("nil user must not curate")
	}
	if CanCurate(&model.User{Role: ""}) {
		t.Fatal("regular user must not curate")
	}
	if !CanCurate(&model.User{Role: RoleCurator}) {
		t.Fatal("curator must curate")
	}
}
