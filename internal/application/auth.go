package application

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atvirokodosprendimai/carcrm/internal/domain"
)

// CreatePrincipal registers an identity that can own clients. It is an
// operator action; no credentials are attached until a token is issued.
func (s *PipelineService) CreatePrincipal(ctx context.Context, email, name string) (domain.Principal, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return domain.Principal{}, domain.InvalidInput("email is required")
	}
	if _, err := normalizeEmail(&email); err != nil {
		return domain.Principal{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = email
	}

	now := s.now()
	p, err := s.repo.CreatePrincipal(ctx, domain.Principal{Email: email, Name: name, CreatedAt: now, UpdatedAt: now})
	if err != nil {
		return domain.Principal{}, s.fail(ctx, "principal.create", 0, err)
	}

	s.done(ctx, p.ID, "principal.create", "principal", int64(p.ID), p.Email)
	return p, nil
}

// IssueAPIToken creates a bearer token for the principal with email and
// returns the plain token. Only its hash is stored.
func (s *PipelineService) IssueAPIToken(ctx context.Context, email, tokenName string, ttl *time.Duration) (domain.Principal, string, error) {
	p, err := s.repo.GetPrincipalByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return domain.Principal{}, "", s.fail(ctx, "auth.token", 0, err)
	}

	plain, hash, err := newTokenPair()
	if err != nil {
		return domain.Principal{}, "", err
	}

	now := s.now()
	var expiresAt *time.Time
	if ttl != nil {
		t := now.Add(*ttl)
		expiresAt = &t
	}

	_, err = s.repo.CreateAPIToken(ctx, domain.APIToken{
		PrincipalID: p.ID,
		Name:        defaultString(tokenName, "cli"),
		TokenHash:   hash,
		ExpiresAt:   expiresAt,
		CreatedAt:   now,
	})
	if err != nil {
		return domain.Principal{}, "", s.fail(ctx, "auth.token", p.ID, err)
	}

	s.done(ctx, p.ID, "auth.token", "principal", int64(p.ID), "api token issued")
	return p, plain, nil
}

// Authenticate resolves a bearer token to its principal.
func (s *PipelineService) Authenticate(ctx context.Context, token string) (domain.Principal, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.Principal{}, domain.Unauthorized("missing token")
	}
	apit, err := s.repo.GetAPITokenByTokenHash(ctx, hashToken(token))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Principal{}, domain.Unauthorized("unauthorized")
		}
		return domain.Principal{}, err
	}
	if apit.ExpiresAt != nil && apit.ExpiresAt.Before(s.clock.Now()) {
		return domain.Principal{}, domain.Unauthorized("token expired")
	}

	p, err := s.repo.GetPrincipalByID(ctx, apit.PrincipalID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Principal{}, domain.Unauthorized("unauthorized")
		}
		return domain.Principal{}, err
	}
	return p, nil
}

func newTokenPair() (string, string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", "", err
	}
	plain := base64.RawURLEncoding.EncodeToString(raw)
	return plain, hashToken(plain), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return fmt.Sprintf("%x", sum[:])
}

func defaultString(input, fallback string) string {
	if strings.TrimSpace(input) == "" {
		return fallback
	}
	return input
}
