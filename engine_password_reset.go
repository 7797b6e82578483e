package authcore

import (
	"context"
	"errors"

	"github.com/veilapp/authcore/directory"
)

// ForgotPassword issues a password-reset code. Only local, confirmed,
// non-deleted accounts are eligible; everything else reports
// ErrAccountNotFound without revealing which condition failed.
func (e *Engine) ForgotPassword(ctx context.Context, email string) error {
	user, err := e.resetEligible(ctx, email)
	if err != nil {
		return err
	}

	if err := e.challenges.Issue(ctx, user, directory.PurposePasswordReset); err != nil {
		return mapChallengeError(err)
	}

	e.metricInc(MetricPasswordResetRequest)
	return nil
}

// VerifyForgotPassword checks a reset code without consuming it, so a
// client can validate the code before asking the user for a new password.
// The same code stays valid for the following ResetPassword call; wrong
// guesses here still count toward the ban threshold.
func (e *Engine) VerifyForgotPassword(ctx context.Context, email, code string) error {
	user, err := e.resetEligible(ctx, email)
	if err != nil {
		return err
	}

	if err := e.challenges.Peek(ctx, user, directory.PurposePasswordReset, code); err != nil {
		e.metricInc(MetricCodeRejected)
		return mapChallengeError(err)
	}
	return nil
}

// ResetPassword validates the reset code and replaces the password. The
// hash write, the credential-change stamp, and the code removal land in one
// directory update; whether the reset applied is decided by that update's
// own result, so a racing reset that consumed the code first surfaces as
// ErrOTPNotFound here.
func (e *Engine) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	user, err := e.resetEligible(ctx, email)
	if err != nil {
		return err
	}

	if len(newPassword) < e.config.Password.MinLength {
		return ErrPasswordPolicy
	}

	if err := e.challenges.Consume(ctx, user, directory.PurposePasswordReset, code); err != nil {
		e.metricInc(MetricCodeRejected)
		return mapChallengeError(err)
	}

	hash, err := e.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	err = e.directory.ResetPassword(ctx, user.ID, hash, e.now())
	if errors.Is(err, directory.ErrChallengeNotPending) {
		return ErrOTPNotFound
	}
	if err != nil {
		return err
	}

	e.metricInc(MetricPasswordResetSuccess)
	return nil
}

func (e *Engine) resetEligible(ctx context.Context, email string) (*directory.User, error) {
	user, err := e.findByEmail(ctx, email, ErrAccountNotFound)
	if err != nil {
		return nil, err
	}
	if user.Provider != directory.ProviderLocal || !user.Confirmed() || user.Deleted() {
		return nil, ErrAccountNotFound
	}
	return user, nil
}
