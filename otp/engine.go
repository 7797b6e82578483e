package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
	"time"

	"github.com/veilapp/authcore/directory"
)

var (
	// ErrAlreadySatisfied is returned by Issue when the purpose's goal is
	// already met and no challenge is needed.
	ErrAlreadySatisfied = errors.New("otp: challenge goal already satisfied")
	// ErrTemporarilyBanned is returned while the user's ban window is open.
	ErrTemporarilyBanned = errors.New("otp: temporarily banned")
	// ErrNotYetExpired is returned by Issue while a prior code is still
	// inside the reissue cool-down.
	ErrNotYetExpired = errors.New("otp: previous code still valid")
	// ErrNotFound is returned when no challenge is pending for the purpose.
	ErrNotFound = errors.New("otp: no pending challenge")
	// ErrExpired is returned when the pending code has outlived its window.
	ErrExpired = errors.New("otp: code expired")
	// ErrInvalidCode is returned on a hash mismatch.
	ErrInvalidCode = errors.New("otp: invalid code")
)

// Hasher is the one-way hash dependency; satisfied by password.Hasher.
type Hasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, encodedHash string) (bool, error)
}

// Config carries the challenge policy. All of it is deliberately tunable:
// the defaults (2m validity and cool-down, 5 attempts, 5m ban) trade strict
// abuse-resistance for usability.
type Config struct {
	Digits         int
	TTL            time.Duration
	ResendCooldown time.Duration
	MaxAttempts    int
	BanDuration    time.Duration
}

// Engine runs the challenge state machine per (user, purpose). It holds no
// state of its own; every mutation is a single-document update against the
// directory, and the failure count-and-ban step is one atomic store update.
type Engine struct {
	config     Config
	store      directory.Store
	hasher     Hasher
	dispatcher *Dispatcher
	now        func() time.Time
}

// NewEngine returns a challenge engine over the given store and hasher.
// The dispatcher may be nil when no notifications should leave the process.
func NewEngine(cfg Config, store directory.Store, hasher Hasher, dispatcher *Dispatcher) *Engine {
	return &Engine{
		config:     cfg,
		store:      store,
		hasher:     hasher,
		dispatcher: dispatcher,
		now:        time.Now,
	}
}

// Issue generates a fresh code for the purpose, persists its hash and
// issuance time, and dispatches exactly one notification. It refuses while
// the goal is already met (email purpose), while a ban is open, and while a
// prior code is younger than the reissue cool-down.
func (e *Engine) Issue(ctx context.Context, user *directory.User, purpose directory.Purpose) error {
	now := e.now()

	if purpose == directory.PurposeConfirmEmail && user.Confirmed() {
		return ErrAlreadySatisfied
	}
	if user.BannedAt(now) {
		return ErrTemporarilyBanned
	}
	if hash, createdAt := user.Challenge(purpose); hash != "" && createdAt != nil {
		if now.Sub(*createdAt) < e.config.ResendCooldown {
			return ErrNotYetExpired
		}
	}

	code, err := newCode(e.config.Digits)
	if err != nil {
		return err
	}
	codeHash, err := e.hasher.Hash(code)
	if err != nil {
		return err
	}

	if err := e.store.StoreChallenge(ctx, user.ID, purpose, codeHash, now); err != nil {
		return err
	}

	e.dispatcher.Dispatch(Delivery{Purpose: purpose, Address: user.Email, Code: code})
	return nil
}

// Consume verifies the submitted code and, on a match, settles the
// challenge. A mismatch registers one atomic failure against the store; the
// attempt that reaches the threshold imposes the ban but still reports
// ErrInvalidCode, and every attempt inside the ban window reports
// ErrTemporarilyBanned before the code is even compared.
//
// For the email purpose a match also stamps the account verified and clears
// the challenge. For the reset purpose the clear is deferred: the caller's
// password update removes the code in the same store write that applies the
// new credential.
func (e *Engine) Consume(ctx context.Context, user *directory.User, purpose directory.Purpose, code string) error {
	if err := e.check(ctx, user, purpose, code, true); err != nil {
		return err
	}

	if purpose == directory.PurposeConfirmEmail {
		err := e.store.CompleteEmailChallenge(ctx, user.ID, e.now())
		if errors.Is(err, directory.ErrChallengeNotPending) {
			// A concurrent confirmation won the race.
			return ErrNotFound
		}
		return err
	}
	return nil
}

// Peek runs the same checks as Consume but writes nothing: no consumption,
// no failure counting. It lets a client confirm a reset code before
// submitting a new password while the code stays valid for the reset call.
func (e *Engine) Peek(ctx context.Context, user *directory.User, purpose directory.Purpose, code string) error {
	return e.check(ctx, user, purpose, code, false)
}

func (e *Engine) check(ctx context.Context, user *directory.User, purpose directory.Purpose, code string, countFailures bool) error {
	now := e.now()

	hash, createdAt := user.Challenge(purpose)
	if hash == "" {
		return ErrNotFound
	}
	if user.BannedAt(now) {
		return ErrTemporarilyBanned
	}
	if createdAt == nil || now.Sub(*createdAt) > e.config.TTL {
		// The code is not deleted on expiry; it simply stops validating
		// until a reissue overwrites it.
		return ErrExpired
	}

	ok, err := e.hasher.Verify(code, hash)
	if err != nil {
		return err
	}
	if !ok {
		if countFailures {
			bannedUntil := now.Add(e.config.BanDuration)
			if _, _, err := e.store.RegisterChallengeFailure(ctx, user.ID, e.config.MaxAttempts, bannedUntil); err != nil {
				return err
			}
		}
		return ErrInvalidCode
	}
	return nil
}

func newCode(digits int) (string, error) {
	if digits < 4 || digits > 10 {
		return "", errors.New("otp: invalid code length")
	}

	var b strings.Builder
	b.Grow(digits)

	max := big.NewInt(10)
	for i := 0; i < digits; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}

	return b.String(), nil
}
