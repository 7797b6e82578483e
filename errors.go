package authcore

import "errors"

var (
	// ErrInvalidCredentials is returned by Login when the email is unknown
	// or the password does not match. The two cases are deliberately
	// indistinguishable.
	ErrInvalidCredentials = errors.New("authcore: invalid credentials")
	// ErrEmailTaken is returned when an email address is already registered,
	// on signup and on federated login against a local account.
	ErrEmailTaken = errors.New("authcore: email already registered")
	// ErrEmailUnconfirmed is returned by Login before the email address has
	// been confirmed.
	ErrEmailUnconfirmed = errors.New("authcore: email not confirmed")
	// ErrAccountDeleted is returned by Login for soft-deleted accounts.
	ErrAccountDeleted = errors.New("authcore: account deleted")
	// ErrAccountNotFound is returned when an operation targets an account
	// that does not exist or has been soft-deleted.
	ErrAccountNotFound = errors.New("authcore: account not found")
	// ErrPasswordPolicy is returned when a new password is shorter than the
	// configured minimum.
	ErrPasswordPolicy = errors.New("authcore: password policy violation")

	// ErrInvalidToken is returned when an authorization value is malformed,
	// carries an unknown scheme, fails signature or expiry validation, or
	// validates as the wrong kind or tier.
	ErrInvalidToken = errors.New("authcore: invalid token")
	// ErrRevokedToken is returned when the token's pair has been revoked.
	ErrRevokedToken = errors.New("authcore: token revoked")
	// ErrStaleCredentials is returned when the token predates the account's
	// last credential change.
	ErrStaleCredentials = errors.New("authcore: token predates credential change")

	// ErrAlreadySatisfied is returned when a challenge is requested for a
	// goal that is already met, such as confirming a confirmed email.
	ErrAlreadySatisfied = errors.New("authcore: already satisfied")
	// ErrTemporarilyBanned is returned while the account's OTP ban window
	// is open; both issuing and verifying codes refuse during it.
	ErrTemporarilyBanned = errors.New("authcore: temporarily banned")
	// ErrNotYetExpired is returned when a new code is requested while the
	// previous one is still inside the reissue cool-down.
	ErrNotYetExpired = errors.New("authcore: previous code still valid")
	// ErrOTPNotFound is returned when no challenge is pending for the
	// requested purpose.
	ErrOTPNotFound = errors.New("authcore: no pending code")
	// ErrOTPExpired is returned when the pending code has outlived its
	// validity window.
	ErrOTPExpired = errors.New("authcore: code expired")
	// ErrInvalidCode is returned on an OTP mismatch. The attempt that
	// reaches the failure threshold still reports this; the ban surfaces on
	// the next attempt.
	ErrInvalidCode = errors.New("authcore: invalid code")

	// ErrInvalidAssertion is returned by FederatedLogin when the identity
	// assertion cannot be verified or its email is unverified upstream.
	ErrInvalidAssertion = errors.New("authcore: invalid identity assertion")
	// ErrForbidden is returned when the authenticated account may not
	// perform the requested operation.
	ErrForbidden = errors.New("authcore: operation not permitted")
	// ErrEngineNotReady is returned when an operation needs a dependency
	// the engine was built without, such as an identity verifier.
	ErrEngineNotReady = errors.New("authcore: engine dependency not configured")
)
