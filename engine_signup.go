package authcore

import (
	"context"
	"errors"
	"log"

	"github.com/veilapp/authcore/directory"
)

// Signup registers a local account. The password is hashed, the phone
// number (when given) is encrypted, and an email-confirmation code is
// issued immediately. A failure to issue or deliver that code does not
// roll the account back: it exists unconfirmed and can request a resend.
func (e *Engine) Signup(ctx context.Context, in SignupInput) (*directory.User, error) {
	if len(in.Password) < e.config.Password.MinLength {
		return nil, ErrPasswordPolicy
	}

	if _, err := e.directory.FindByEmail(ctx, in.Email); err == nil {
		e.metricInc(MetricSignupDuplicate)
		return nil, ErrEmailTaken
	} else if !errors.Is(err, directory.ErrNotFound) {
		return nil, err
	}

	hash, err := e.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	var phoneEnc string
	if in.Phone != "" {
		phoneEnc, err = e.cipher.Encrypt(in.Phone)
		if err != nil {
			return nil, err
		}
	}

	user := &directory.User{
		Email:        in.Email,
		FullName:     in.FullName,
		PasswordHash: hash,
		PhoneEnc:     phoneEnc,
		Role:         directory.RoleUser,
		Provider:     directory.ProviderLocal,
	}

	if err := e.directory.Create(ctx, user); err != nil {
		if errors.Is(err, directory.ErrDuplicateEmail) {
			e.metricInc(MetricSignupDuplicate)
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	e.metricInc(MetricSignupSuccess)

	if err := e.challenges.Issue(ctx, user, directory.PurposeConfirmEmail); err != nil {
		log.Print("authcore: confirmation code issue failed after signup")
	} else {
		e.metricInc(MetricOTPIssued)
	}

	return user, nil
}

// ConfirmEmail consumes a pending email-confirmation code and stamps the
// account confirmed.
func (e *Engine) ConfirmEmail(ctx context.Context, email, code string) error {
	user, err := e.findByEmail(ctx, email, ErrAccountNotFound)
	if err != nil {
		return err
	}

	if err := e.challenges.Consume(ctx, user, directory.PurposeConfirmEmail, code); err != nil {
		e.metricInc(MetricCodeRejected)
		return mapChallengeError(err)
	}

	e.metricInc(MetricEmailConfirmed)
	return nil
}

// ResendConfirmOTP issues a fresh email-confirmation code. It refuses for
// already-confirmed accounts, inside the reissue cool-down, and during an
// open ban window.
func (e *Engine) ResendConfirmOTP(ctx context.Context, email string) error {
	user, err := e.findByEmail(ctx, email, ErrAccountNotFound)
	if err != nil {
		return err
	}

	if err := e.challenges.Issue(ctx, user, directory.PurposeConfirmEmail); err != nil {
		return mapChallengeError(err)
	}

	e.metricInc(MetricOTPIssued)
	return nil
}
