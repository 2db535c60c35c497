package auth

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mirabellier/backend/internal/model"
	"github.com/mirabellier/backend/internal/store"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUsernameTaken      = errors.New("username taken")
)

const (
	// RoleCurator may edit the curated anime list.
	RoleCurator = "curator"

	bcryptCost = 10
)

// Service owns accounts and bearer-token sessions. The storage client is
// injected at construction.
type Service struct {
	store  store.Store
	secret []byte
}

// NewService builds an auth service. secret signs issued tokens; an empty
// secret disables signing and tokens are bare random ids.
func NewService(st store.Store, secret string) *Service {
	var key []byte
	if secret != "" {
		key = []byte(secret)
	}
	return &Service{store: st, secret: key}
}

// IssueToken mints a bearer token for the user and records the session.
func (s *Service) IssueToken(ctx context.Context, userID string) (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	token := hex.EncodeToString(buf)
	if s.secret != nil {
		token = token + "." + s.sign(token)
	}
	if err := s.store.CreateSession(ctx, token, userID); err != nil {
		return "", err
	}
	return token, nil
}

// ResolveToken maps a bearer token to its user. Any failure, whether a bad
// signature or an unknown session, resolves to ErrInvalidCredentials so
// callers treat the request as anonymous. Tokens minted before a secret was
// configured carry no signature tag and resolve by session lookup alone.
func (s *Service) ResolveToken(ctx context.Context, token string) (model.User, error) {
	if token == "" {
		return model.User{}, ErrInvalidCredentials
	}
	if s.secret != nil {
		if id, sig, ok := strings.Cut(token, "."); ok {
			want := s.sign(id)
			if !hmac.Equal([]byte(sig), []byte(want)) {
				return model.User{}, ErrInvalidCredentials
			}
		}
	}
	user, err := s.store.GetUserByToken(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return model.User{}, ErrInvalidCredentials
		}
		return model.User{}, err
	}
	return user, nil
}

// Logout removes the session for the given token. Unknown tokens are a no-op.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.store.DeleteSession(ctx, token)
}

// Register creates a password account and logs it in.
func (s *Service) Register(ctx context.Context, username, password string) (model.User, string, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return model.User{}, "", ErrInvalidCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return model.User{}, "", err
	}
	user := model.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
	}
	if err := s.store.CreateUser(ctx, &user); err != nil {
		if errors.Is(err, store.ErrDuplicateUsername) {
			return model.User{}, "", ErrUsernameTaken
		}
		return model.User{}, "", err
	}
	token, err := s.IssueToken(ctx, user.ID)
	if err != nil {
		return model.User{}, "", err
	}
	return user, token, nil
}

// Login verifies a password and issues a token. Unknown usernames and wrong
// passwords fail identically.
func (s *Service) Login(ctx context.Context, username, password string) (model.User, string, error) {
	user, err := s.store.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return model.User{}, "", ErrInvalidCredentials
		}
		return model.User{}, "", err
	}
	if user.PasswordHash == "" {
		// OAuth-only account, no password to check.
		return model.User{}, "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return model.User{}, "", ErrInvalidCredentials
	}
	token, err := s.IssueToken(ctx, user.ID)
	if err != nil {
		return model.User{}, "", err
	}
	return user, token, nil
}

// FindOrCreateDiscordUser links a Discord identity to an account. An existing
// link refreshes avatar and banner; otherwise a new account is created with a
// username derived from the Discord handle, suffixed until unique.
func (s *Service) FindOrCreateDiscordUser(ctx context.Context, profile model.DiscordProfile) (model.User, error) {
	user, err := s.store.GetUserByDiscordID(ctx, profile.ID)
	if err == nil {
		changed := false
		if profile.Avatar != "" && user.Avatar != profile.Avatar {
			user.Avatar = profile.Avatar
			changed = true
		}
		if profile.Banner != "" && user.Banner != profile.Banner {
			user.Banner = profile.Banner
			changed = true
		}
		if changed {
			if err := s.store.UpdateUser(ctx, &user); err != nil {
				return model.User{}, err
			}
		}
		return user, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return model.User{}, err
	}

	username := strings.TrimSpace(profile.Username)
	if username == "" {
		username = "discord-" + profile.ID
	}
	for i := 0; ; i++ {
		candidate := username
		if i > 0 {
			candidate = fmt.Sprintf("%s-%d", username, i)
		}
		user = model.User{
			ID:        uuid.NewString(),
			Username:  candidate,
			DiscordID: profile.ID,
			Avatar:    profile.Avatar,
			Banner:    profile.Banner,
			CreatedAt: time.Now(),
		}
		err := s.store.CreateUser(ctx, &user)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, store.ErrDuplicateUsername) {
			return model.User{}, err
		}
	}
}

// CanCurate reports whether the user may manage the curated anime list.
func CanCurate(user *model.User) bool {
	return user != nil && user.Role == RoleCurator
}

func (s *Service) sign(id string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(id))
	return hex.EncodeToString(mac.Sum(nil))
}
