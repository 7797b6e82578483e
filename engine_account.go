package authcore

import (
	"context"

	"github.com/veilapp/authcore/directory"
	"github.com/veilapp/authcore/token"
)

// DeleteAccount soft-deletes the target account. The caller authenticates
// with an access token and may delete itself; deleting another account
// requires an admin role. The record is kept with a deletion marker and
// the actor's identity; verification rejects tokens for deleted accounts,
// so no separate revocation is needed.
func (e *Engine) DeleteAccount(ctx context.Context, authorization, targetID string) error {
	actor, _, err := e.Verify(ctx, authorization, token.KindAccess)
	if err != nil {
		return err
	}

	if targetID == "" {
		targetID = actor.ID
	}
	if targetID != actor.ID {
		if actor.Role != directory.RoleAdmin {
			return ErrForbidden
		}
		target, err := e.directory.FindByID(ctx, targetID)
		if err != nil {
			return ErrAccountNotFound
		}
		if target.Deleted() {
			return ErrAccountNotFound
		}
	}

	if err := e.directory.SoftDelete(ctx, targetID, actor.ID, e.now()); err != nil {
		return err
	}

	e.metricInc(MetricAccountDeleted)
	return nil
}

// Phone decrypts the account's stored phone number. It returns an empty
// string when no phone was provided at signup.
func (e *Engine) Phone(user *directory.User) (string, error) {
	if user == nil || user.PhoneEnc == "" {
		return "", nil
	}
	return e.cipher.Decrypt(user.PhoneEnc)
}
