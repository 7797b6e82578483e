package directory

import "time"

// Role selects the signature tier a user's tokens are signed under.
type Role string

const (
	// RoleUser is an exported constant or variable used by the credential directory.
	RoleUser Role = "user"
	// RoleAdmin is an exported constant or variable used by the credential directory.
	RoleAdmin Role = "admin"
)

// Provider records how an account authenticates: a local password or a
// federated identity provider.
type Provider string

const (
	// ProviderLocal is an exported constant or variable used by the credential directory.
	ProviderLocal Provider = "local"
	// ProviderFederated is an exported constant or variable used by the credential directory.
	ProviderFederated Provider = "federated"
)

// Purpose names an OTP challenge lane. Challenge hashes and created-at
// timestamps are kept per purpose; the failure counter and ban window are
// shared across purposes.
type Purpose string

const (
	// PurposeConfirmEmail is an exported constant or variable used by the credential directory.
	PurposeConfirmEmail Purpose = "confirm_email"
	// PurposePasswordReset is an exported constant or variable used by the credential directory.
	PurposePasswordReset Purpose = "password_reset"
)

// User is the full account record held by the directory.
//
// Invariant: exactly one of {PasswordHash set, Provider == ProviderFederated}
// holds. [Store.Create] rejects records that violate it.
type User struct {
	ID           string
	Email        string
	FullName     string
	PasswordHash string
	PhoneEnc     string
	PictureURL   string
	Role         Role
	Provider     Provider

	ConfirmedAt         *time.Time
	ConfirmOTPHash      string
	ConfirmOTPCreatedAt *time.Time
	ResetOTPHash        string
	ResetOTPCreatedAt   *time.Time
	OTPFailedAttempts   int64
	OTPBannedUntil      *time.Time

	ChangeCredentialsAt *time.Time

	DeletedAt *time.Time
	DeletedBy string

	CreatedAt time.Time
}

// Confirmed reports whether the account's email address has been verified.
func (u *User) Confirmed() bool {
	return u != nil && u.ConfirmedAt != nil
}

// Deleted reports whether the account carries a soft-delete marker.
func (u *User) Deleted() bool {
	return u != nil && u.DeletedAt != nil
}

// BannedAt reports whether the shared OTP ban window covers the given instant.
func (u *User) BannedAt(now time.Time) bool {
	return u != nil && u.OTPBannedUntil != nil && u.OTPBannedUntil.After(now)
}

// Challenge returns the stored OTP hash and issuance time for a purpose.
// The hash is empty when no challenge is pending.
func (u *User) Challenge(purpose Purpose) (string, *time.Time) {
	if u == nil {
		return "", nil
	}
	switch purpose {
	case PurposePasswordReset:
		return u.ResetOTPHash, u.ResetOTPCreatedAt
	default:
		return u.ConfirmOTPHash, u.ConfirmOTPCreatedAt
	}
}
