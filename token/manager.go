package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Kind distinguishes the two tokens of a pair. A token only ever validates
// as the kind it was issued as: each kind is signed with its own secret and
// carries a kind-marker claim as a second fence.
type Kind string

const (
	// KindAccess is an exported constant or variable used by the token service.
	KindAccess Kind = "access"
	// KindRefresh is an exported constant or variable used by the token service.
	KindRefresh Kind = "refresh"
)

// Tier is the closed set of signature tiers.
type Tier int

const (
	// TierDefault signs tokens for ordinary accounts.
	TierDefault Tier = iota
	// TierElevated signs tokens for privileged accounts with separate secrets.
	TierElevated
)

const (
	// SchemeDefault is the authorization scheme prefix of the default tier.
	SchemeDefault = "Bearer"
	// SchemeElevated is the authorization scheme prefix of the elevated tier.
	SchemeElevated = "System"
)

// ErrMalformed is returned when a token cannot be parsed, fails signature or
// expiry validation, or validates as the wrong kind.
var ErrMalformed = errors.New("token: malformed or invalid token")

// SecretPair holds the two signing secrets of one tier.
type SecretPair struct {
	Access  []byte
	Refresh []byte
}

// Config defines the signing secrets and lifetimes for both tiers.
// The access lifetime is short and fixed; the refresh lifetime is long and
// also bounds how long a revocation ledger entry must outlive its token.
type Config struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Secrets    map[Tier]SecretPair
	Issuer     string
	Leeway     time.Duration
}

// Claims are the session token claims: subject = user ID, ID = jti shared by
// the pair, plus the kind marker.
type Claims struct {
	Kind string `json:"tkn"`
	jwt.RegisteredClaims
}

// UserID returns the subject claim.
func (c *Claims) UserID() string {
	return c.Subject
}

// Pair is a freshly issued access/refresh token pair sharing one jti.
// Scheme is the authorization prefix the holder must present the tokens
// under; it encodes the tier the pair was signed with.
type Pair struct {
	AccessToken  string
	RefreshToken string
	JTI          string
	Scheme       string
	IssuedAt     time.Time
}

// Manager issues and parses tier-signed token pairs.
//
// Manager instances are configured during initialization and treated as
// immutable afterwards; all methods are safe for concurrent use.
type Manager struct {
	config Config
	now    func() time.Time
}

// NewManager validates the configuration and returns a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.RefreshTTL < cfg.AccessTTL {
		return nil, errors.New("refresh TTL must cover access TTL")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	for _, tier := range []Tier{TierDefault, TierElevated} {
		pair, ok := cfg.Secrets[tier]
		if !ok || len(pair.Access) == 0 || len(pair.Refresh) == 0 {
			return nil, errors.New("missing signing secrets for tier")
		}
	}

	return &Manager{config: cfg, now: time.Now}, nil
}

// TierForScheme maps an authorization scheme prefix to its tier. Unknown
// prefixes are rejected here, before any cryptographic attempt.
func TierForScheme(scheme string) (Tier, bool) {
	switch scheme {
	case SchemeDefault:
		return TierDefault, true
	case SchemeElevated:
		return TierElevated, true
	default:
		return 0, false
	}
}

// SchemeForTier returns the scheme prefix clients must present for a tier.
func SchemeForTier(tier Tier) string {
	if tier == TierElevated {
		return SchemeElevated
	}
	return SchemeDefault
}

// IssuePair signs a fresh access/refresh pair under the tier. Both tokens
// share one generated jti so a single ledger entry revokes both.
func (m *Manager) IssuePair(userID string, tier Tier) (*Pair, error) {
	secrets, ok := m.config.Secrets[tier]
	if !ok {
		return nil, errors.New("unknown signature tier")
	}

	jti := uuid.NewString()
	now := m.now()

	access, err := m.sign(userID, jti, KindAccess, secrets.Access, m.config.AccessTTL, now)
	if err != nil {
		return nil, err
	}
	refresh, err := m.sign(userID, jti, KindRefresh, secrets.Refresh, m.config.RefreshTTL, now)
	if err != nil {
		return nil, err
	}

	return &Pair{
		AccessToken:  access,
		RefreshToken: refresh,
		JTI:          jti,
		Scheme:       SchemeForTier(tier),
		IssuedAt:     now,
	}, nil
}

// Parse verifies the raw token against the declared tier and kind. A token
// of the other kind, the other tier, or any foreign signature fails with
// ErrMalformed; expiry and not-before are enforced by the parser.
func (m *Manager) Parse(raw string, tier Tier, kind Kind) (*Claims, error) {
	secrets, ok := m.config.Secrets[tier]
	if !ok {
		return nil, ErrMalformed
	}
	secret := secrets.Access
	if kind == KindRefresh {
		secret = secrets.Refresh
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuedAt(),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	parsed, err := parser.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil {
		return nil, ErrMalformed
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrMalformed
	}
	if claims.Kind != string(kind) {
		return nil, ErrMalformed
	}
	if claims.Subject == "" || claims.ID == "" || claims.IssuedAt == nil {
		return nil, ErrMalformed
	}

	return claims, nil
}

// RefreshTTL exposes the configured refresh lifetime; revocation entries are
// kept for issued-at + RefreshTTL, after which the token is dead on its own.
func (m *Manager) RefreshTTL() time.Duration {
	return m.config.RefreshTTL
}

func (m *Manager) sign(userID, jti string, kind Kind, secret []byte, ttl time.Duration, now time.Time) (string, error) {
	claims := Claims{
		Kind: string(kind),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if m.config.Issuer != "" {
		claims.Issuer = m.config.Issuer
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
