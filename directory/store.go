package directory

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no live record matches the lookup.
	ErrNotFound = errors.New("directory: user not found")
	// ErrDuplicateEmail is returned by Create when the email is already registered.
	ErrDuplicateEmail = errors.New("directory: email already registered")
	// ErrChallengeNotPending is returned by the consuming updates when no
	// challenge hash exists for the targeted purpose.
	ErrChallengeNotPending = errors.New("directory: no pending challenge")
	// ErrInvalidRecord is returned by Create when the record violates the
	// password-or-federated invariant.
	ErrInvalidRecord = errors.New("directory: invalid user record")
	// ErrUnavailable wraps transport failures from the backing store.
	ErrUnavailable = errors.New("directory: backend unavailable")
)

// Store is the credential directory consumed by the engine. Every method is
// a single-document operation; RegisterChallengeFailure in particular must be
// one atomic conditional update so concurrent wrong-code verifications cannot
// lose increments or skip the ban threshold.
type Store interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)

	// Create persists a new user and assigns its ID. Fails with
	// ErrDuplicateEmail when the email is taken and ErrInvalidRecord when
	// the password/provider invariant does not hold.
	Create(ctx context.Context, u *User) error

	// StoreChallenge writes a freshly issued OTP hash and its issuance time
	// for the purpose, resets the shared failure counter, and clears any
	// lapsed ban marker.
	StoreChallenge(ctx context.Context, userID string, purpose Purpose, codeHash string, at time.Time) error

	// RegisterChallengeFailure atomically increments the shared failure
	// counter; when the counter reaches maxAttempts it imposes a ban until
	// bannedUntil and resets the counter to zero. Returns the counter value
	// observed by this attempt and whether this attempt triggered the ban.
	RegisterChallengeFailure(ctx context.Context, userID string, maxAttempts int, bannedUntil time.Time) (attempts int64, banned bool, err error)

	// CompleteEmailChallenge consumes a pending email-confirmation OTP:
	// clears its hash and timestamp, resets the failure counter, and stamps
	// the confirmation time. Fails with ErrChallengeNotPending when no
	// confirmation OTP exists, so racing confirmations settle to one winner.
	CompleteEmailChallenge(ctx context.Context, userID string, at time.Time) error

	// ResetPassword consumes a pending password-reset OTP and applies the
	// new credential in the same update: sets the password hash, stamps the
	// credential-change time (invalidating outstanding tokens), and clears
	// the reset OTP. Fails with ErrChallengeNotPending when no reset OTP
	// exists.
	ResetPassword(ctx context.Context, userID, passwordHash string, at time.Time) error

	// TouchCredentialChange stamps the credential-change time, invalidating
	// every token issued before it.
	TouchCredentialChange(ctx context.Context, userID string, at time.Time) error

	// SoftDelete marks the account deleted without destroying the record.
	SoftDelete(ctx context.Context, userID, deletedBy string, at time.Time) error
}
