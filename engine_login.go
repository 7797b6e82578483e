package authcore

import (
	"context"
	"errors"

	"github.com/veilapp/authcore/directory"
	"github.com/veilapp/authcore/token"
)

// Login authenticates a local account by password and issues a token pair.
// An unknown email and a wrong password report the same error so the
// response does not reveal which accounts exist; federated accounts have
// no password and fail the same way.
func (e *Engine) Login(ctx context.Context, email, pass string) (*token.Pair, error) {
	user, err := e.findByEmail(ctx, email, ErrInvalidCredentials)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			e.metricInc(MetricLoginFailure)
		}
		return nil, err
	}

	if user.PasswordHash == "" {
		e.metricInc(MetricLoginFailure)
		return nil, ErrInvalidCredentials
	}
	ok, err := e.hasher.Verify(pass, user.PasswordHash)
	if err != nil {
		return nil, err
	}
	if !ok {
		e.metricInc(MetricLoginFailure)
		return nil, ErrInvalidCredentials
	}

	if !user.Confirmed() {
		return nil, ErrEmailUnconfirmed
	}
	if user.Deleted() {
		return nil, ErrAccountDeleted
	}

	pair, err := e.IssuePair(ctx, user)
	if err != nil {
		return nil, err
	}
	e.metricInc(MetricLoginSuccess)
	return pair, nil
}

// tierForRole maps an account role onto a signature tier. Only ordinary
// users sign under the default tier; every privileged role uses the
// elevated secrets.
func tierForRole(role directory.Role) token.Tier {
	if role == directory.RoleUser {
		return token.TierDefault
	}
	return token.TierElevated
}
