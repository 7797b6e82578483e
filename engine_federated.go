package authcore

import (
	"context"
	"errors"

	"github.com/veilapp/authcore/directory"
	"github.com/veilapp/authcore/token"
)

// FederatedLogin verifies an external identity assertion and signs the
// account in, creating it on first contact. The assertion's email must be
// verified by the provider; federated accounts are therefore born
// confirmed. An email already held by a local account is rejected with
// ErrEmailTaken rather than merged.
func (e *Engine) FederatedLogin(ctx context.Context, assertion string) (*directory.User, *token.Pair, error) {
	if e.identity == nil {
		return nil, nil, ErrEngineNotReady
	}

	id, err := e.identity.Verify(ctx, assertion)
	if err != nil || id == nil {
		return nil, nil, ErrInvalidAssertion
	}
	if !id.EmailVerified || id.Email == "" {
		return nil, nil, ErrInvalidAssertion
	}

	user, err := e.directory.FindByEmail(ctx, id.Email)
	switch {
	case err == nil:
		if user.Provider != directory.ProviderFederated {
			return nil, nil, ErrEmailTaken
		}
		if user.Deleted() {
			return nil, nil, ErrAccountDeleted
		}

	case errors.Is(err, directory.ErrNotFound):
		now := e.now()
		user = &directory.User{
			Email:       id.Email,
			FullName:    id.DisplayName,
			PictureURL:  id.PictureURL,
			Role:        directory.RoleUser,
			Provider:    directory.ProviderFederated,
			ConfirmedAt: &now,
		}
		if err := e.directory.Create(ctx, user); err != nil {
			if errors.Is(err, directory.ErrDuplicateEmail) {
				// Lost a first-contact race; the other request owns the email.
				return nil, nil, ErrEmailTaken
			}
			return nil, nil, err
		}

	default:
		return nil, nil, err
	}

	pair, err := e.IssuePair(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	e.metricInc(MetricFederatedLogin)
	return user, pair, nil
}
