package token

import (
	"errors"
	"testing"
	"time"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()

	m, err := NewManager(Config{
		AccessTTL:  30 * time.Minute,
		RefreshTTL: 720 * time.Hour,
		Secrets: map[Tier]SecretPair{
			TierDefault:  {Access: []byte("default-access-secret"), Refresh: []byte("default-refresh-secret")},
			TierElevated: {Access: []byte("elevated-access-secret"), Refresh: []byte("elevated-refresh-secret")},
		},
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	return m
}

func TestIssuePairRoundTrip(t *testing.T) {
	m := newTestManager(t)

	pair, err := m.IssuePair("u1", TierDefault)
	if err != nil {
		t.Fatalf("IssuePair failed: %v", err)
	}
	if pair.JTI == "" {
		t.Fatal("expected a generated jti")
	}
	if pair.Scheme != SchemeDefault {
		t.Fatalf("expected scheme %q, got %q", SchemeDefault, pair.Scheme)
	}

	access, err := m.Parse(pair.AccessToken, TierDefault, KindAccess)
	if err != nil {
		t.Fatalf("Parse access failed: %v", err)
	}
	refresh, err := m.Parse(pair.RefreshToken, TierDefault, KindRefresh)
	if err != nil {
		t.Fatalf("Parse refresh failed: %v", err)
	}

	if access.UserID() != "u1" || refresh.UserID() != "u1" {
		t.Fatalf("expected subject u1, got %q / %q", access.UserID(), refresh.UserID())
	}
	if access.ID != pair.JTI || refresh.ID != pair.JTI {
		t.Fatal("expected both tokens to share the pair jti")
	}
}

func TestParseRejectsWrongKind(t *testing.T) {
	m := newTestManager(t)

	pair, err := m.IssuePair("u1", TierDefault)
	if err != nil {
		t.Fatalf("IssuePair failed: %v", err)
	}

	if _, err := m.Parse(pair.AccessToken, TierDefault, KindRefresh); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed for access-as-refresh, got %v", err)
	}
	if _, err := m.Parse(pair.RefreshToken, TierDefault, KindAccess); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed for refresh-as-access, got %v", err)
	}
}

func TestParseRejectsWrongTier(t *testing.T) {
	m := newTestManager(t)

	pair, err := m.IssuePair("u1", TierDefault)
	if err != nil {
		t.Fatalf("IssuePair failed: %v", err)
	}

	if _, err := m.Parse(pair.AccessToken, TierElevated, KindAccess); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed across tiers, got %v", err)
	}

	elevated, err := m.IssuePair("admin", TierElevated)
	if err != nil {
		t.Fatalf("IssuePair elevated failed: %v", err)
	}
	if elevated.Scheme != SchemeElevated {
		t.Fatalf("expected scheme %q, got %q", SchemeElevated, elevated.Scheme)
	}
	if _, err := m.Parse(elevated.AccessToken, TierDefault, KindAccess); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed across tiers, got %v", err)
	}
	if _, err := m.Parse(elevated.AccessToken, TierElevated, KindAccess); err != nil {
		t.Fatalf("Parse under own tier failed: %v", err)
	}
}

func TestParseRejectsExpired(t *testing.T) {
	m := newTestManager(t)
	m.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	pair, err := m.IssuePair("u1", TierDefault)
	if err != nil {
		t.Fatalf("IssuePair failed: %v", err)
	}
	m.now = time.Now

	if _, err := m.Parse(pair.AccessToken, TierDefault, KindAccess); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed for expired access token, got %v", err)
	}
	if _, err := m.Parse(pair.RefreshToken, TierDefault, KindRefresh); err != nil {
		t.Fatalf("refresh token should still validate: %v", err)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	m := newTestManager(t)

	for _, raw := range []string{"", "not-a-token", "a.b.c"} {
		if _, err := m.Parse(raw, TierDefault, KindAccess); !errors.Is(err, ErrMalformed) {
			t.Fatalf("expected ErrMalformed for %q, got %v", raw, err)
		}
	}
}

func TestTierForScheme(t *testing.T) {
	if tier, ok := TierForScheme(SchemeDefault); !ok || tier != TierDefault {
		t.Fatal("Bearer must map to the default tier")
	}
	if tier, ok := TierForScheme(SchemeElevated); !ok || tier != TierElevated {
		t.Fatal("System must map to the elevated tier")
	}
	if _, ok := TierForScheme("Basic"); ok {
		t.Fatal("unknown schemes must be rejected")
	}
}

func TestNewManagerValidation(t *testing.T) {
	base := func() Config {
		return Config{
			AccessTTL:  time.Minute,
			RefreshTTL: time.Hour,
			Secrets: map[Tier]SecretPair{
				TierDefault:  {Access: []byte("a"), Refresh: []byte("b")},
				TierElevated: {Access: []byte("c"), Refresh: []byte("d")},
			},
		}
	}

	cfg := base()
	cfg.AccessTTL = 0
	if _, err := NewManager(cfg); err == nil {
		t.Fatal("expected error for zero access TTL")
	}

	cfg = base()
	cfg.RefreshTTL = time.Second
	if _, err := NewManager(cfg); err == nil {
		t.Fatal("expected error for refresh TTL below access TTL")
	}

	cfg = base()
	delete(cfg.Secrets, TierElevated)
	if _, err := NewManager(cfg); err == nil {
		t.Fatal("expected error for missing tier secrets")
	}
}
