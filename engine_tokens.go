package authcore

import (
	"context"
	"errors"
	"strings"

	"github.com/veilapp/authcore/directory"
	"github.com/veilapp/authcore/token"
)

// IssuePair signs a fresh access/refresh pair for the account. The tier
// follows the role: ordinary users get "Bearer" pairs, every other role
// gets "System" pairs signed under the elevated secrets. Both tokens share
// one jti so a single revocation kills the pair.
func (e *Engine) IssuePair(ctx context.Context, user *directory.User) (*token.Pair, error) {
	pair, err := e.tokens.IssuePair(user.ID, tierForRole(user.Role))
	if err != nil {
		return nil, err
	}
	e.metricInc(MetricPairIssued)
	return pair, nil
}

// Verify authenticates an authorization value end to end: scheme to tier,
// signature and expiry under that tier's secret for the declared kind,
// revocation ledger, account existence, and credential-change staleness.
// It returns the live account and the token claims.
func (e *Engine) Verify(ctx context.Context, authorization string, kind token.Kind) (*directory.User, *token.Claims, error) {
	start := e.now()

	user, claims, err := e.verify(ctx, authorization, kind)
	if err != nil {
		e.metricInc(MetricVerifyFailure)
		return nil, nil, err
	}

	e.metricInc(MetricVerifySuccess)
	e.metrics.Observe(MetricVerifyLatency, e.now().Sub(start))
	return user, claims, nil
}

func (e *Engine) verify(ctx context.Context, authorization string, kind token.Kind) (*directory.User, *token.Claims, error) {
	scheme, raw, ok := splitAuthorization(authorization)
	if !ok {
		return nil, nil, ErrInvalidToken
	}
	tier, ok := token.TierForScheme(scheme)
	if !ok {
		return nil, nil, ErrInvalidToken
	}

	claims, err := e.tokens.Parse(raw, tier, kind)
	if err != nil {
		return nil, nil, ErrInvalidToken
	}

	revoked, err := e.revocations.Contains(ctx, claims.ID)
	if err != nil {
		return nil, nil, err
	}
	if revoked {
		return nil, nil, ErrRevokedToken
	}

	user, err := e.directory.FindByID(ctx, claims.UserID())
	if errors.Is(err, directory.ErrNotFound) {
		return nil, nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	if user.Deleted() {
		return nil, nil, ErrAccountNotFound
	}

	if user.ChangeCredentialsAt != nil && claims.IssuedAt.Time.Before(*user.ChangeCredentialsAt) {
		return nil, nil, ErrStaleCredentials
	}

	return user, claims, nil
}

// RevokeCurrent writes the claims' jti to the ledger, killing both tokens of the
// pair at once. The entry outlives the refresh token: it expires at
// issued-at plus the refresh TTL. Revoking an already revoked pair is a
// no-op.
func (e *Engine) RevokeCurrent(ctx context.Context, claims *token.Claims) error {
	expiresAt := claims.IssuedAt.Time.Add(e.tokens.RefreshTTL())
	if err := e.revocations.Insert(ctx, claims.ID, claims.UserID(), expiresAt); err != nil {
		return err
	}
	e.metricInc(MetricTokenRevoked)
	return nil
}

// Refresh verifies a refresh-kind authorization and issues a fresh pair
// for the same account. The old pair keeps validating until it expires or
// an explicit logout revokes it.
func (e *Engine) Refresh(ctx context.Context, authorization string) (*token.Pair, error) {
	user, _, err := e.Verify(ctx, authorization, token.KindRefresh)
	if err != nil {
		return nil, err
	}

	pair, err := e.IssuePair(ctx, user)
	if err != nil {
		return nil, err
	}
	e.metricInc(MetricRefreshSuccess)
	return pair, nil
}

// Logout verifies an access-kind authorization and revokes its pair.
func (e *Engine) Logout(ctx context.Context, authorization string) error {
	_, claims, err := e.Verify(ctx, authorization, token.KindAccess)
	if err != nil {
		return err
	}
	return e.RevokeCurrent(ctx, claims)
}

// LogoutAll verifies an access-kind authorization and stamps the account's
// credential-change time, invalidating every token issued before now across
// all sessions and devices.
func (e *Engine) LogoutAll(ctx context.Context, authorization string) error {
	user, _, err := e.Verify(ctx, authorization, token.KindAccess)
	if err != nil {
		return err
	}
	if err := e.directory.TouchCredentialChange(ctx, user.ID, e.now()); err != nil {
		return err
	}
	e.metricInc(MetricLogoutAll)
	return nil
}

// splitAuthorization separates "<Scheme> <token>". Surrounding whitespace
// is tolerated; anything without exactly one separating space is rejected.
func splitAuthorization(authorization string) (scheme, raw string, ok bool) {
	scheme, raw, ok = strings.Cut(strings.TrimSpace(authorization), " ")
	if !ok || scheme == "" || raw == "" || strings.ContainsRune(raw, ' ') {
		return "", "", false
	}
	return scheme, raw, true
}
