package authcore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/veilapp/authcore/cipher"
	"github.com/veilapp/authcore/directory"
	"github.com/veilapp/authcore/ledger"
	"github.com/veilapp/authcore/otp"
	"github.com/veilapp/authcore/password"
	"github.com/veilapp/authcore/token"
)

// Engine is the credential-lifecycle core. It is safe for concurrent use;
// all mutable state lives in the backing stores, so multiple instances over
// the same Redis behave as one.
type Engine struct {
	config      Config
	directory   directory.Store
	tokens      *token.Manager
	revocations *ledger.RedisStore
	sweeper     *ledger.Sweeper
	challenges  *otp.Engine
	dispatcher  *otp.Dispatcher
	hasher      *password.Hasher
	cipher      *cipher.Cipher
	identity    IdentityVerifier
	metrics     *Metrics

	now func() time.Time
}

// Close stops the background workers: queued OTP deliveries are drained
// and the ledger sweeper finishes any in-flight sweep.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.dispatcher.Close()
	e.sweeper.Close()
}

// Metrics exposes the engine's counters.
func (e *Engine) Metrics() *Metrics {
	return e.metrics
}

// NotificationsDropped reports how many OTP deliveries were discarded on a
// full dispatch queue.
func (e *Engine) NotificationsDropped() uint64 {
	return e.dispatcher.Dropped()
}

func (e *Engine) metricInc(id MetricID) {
	e.metrics.Inc(id)
}

// mapChallengeError translates the OTP engine's sentinels into the public
// taxonomy. Unrecognized errors pass through wrapped.
func mapChallengeError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, otp.ErrAlreadySatisfied):
		return ErrAlreadySatisfied
	case errors.Is(err, otp.ErrTemporarilyBanned):
		return ErrTemporarilyBanned
	case errors.Is(err, otp.ErrNotYetExpired):
		return ErrNotYetExpired
	case errors.Is(err, otp.ErrNotFound):
		return ErrOTPNotFound
	case errors.Is(err, otp.ErrExpired):
		return ErrOTPExpired
	case errors.Is(err, otp.ErrInvalidCode):
		return ErrInvalidCode
	default:
		return fmt.Errorf("challenge: %w", err)
	}
}

// findByEmail loads an account, folding the directory's not-found into the
// caller's sentinel.
func (e *Engine) findByEmail(ctx context.Context, email string, missing error) (*directory.User, error) {
	user, err := e.directory.FindByEmail(ctx, email)
	if errors.Is(err, directory.ErrNotFound) {
		return nil, missing
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}
