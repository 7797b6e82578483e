package authcore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/veilapp/authcore/directory"
	"github.com/veilapp/authcore/otp"
	"github.com/veilapp/authcore/token"
)

// channelNotifier forwards every delivery to a channel so tests can read
// plaintext codes back out of the asynchronous dispatch path.
type channelNotifier struct {
	deliveries chan otp.Delivery
}

func newChannelNotifier() *channelNotifier {
	return &channelNotifier{deliveries: make(chan otp.Delivery, 16)}
}

func (n *channelNotifier) Send(_ context.Context, purpose directory.Purpose, address, code string) error {
	n.deliveries <- otp.Delivery{Purpose: purpose, Address: address, Code: code}
	return nil
}

// waitCode pops deliveries until one matches the purpose.
func (n *channelNotifier) waitCode(t *testing.T, purpose directory.Purpose) string {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case d := <-n.deliveries:
			if d.Purpose == purpose {
				return d.Code
			}
		case <-deadline:
			t.Fatalf("no %s delivery arrived", purpose)
		}
	}
}

func testConfig() Config {
	cfg := defaultConfig()
	cfg.Token.DefaultAccessSecret = []byte("default-access-secret")
	cfg.Token.DefaultRefreshSecret = []byte("default-refresh-secret")
	cfg.Token.ElevatedAccessSecret = []byte("elevated-access-secret")
	cfg.Token.ElevatedRefreshSecret = []byte("elevated-refresh-secret")
	cfg.Cipher.Key = []byte("0123456789abcdef0123456789abcdef")
	cfg.Password.Memory = 8192
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Password.SaltLength = 16
	cfg.Password.KeyLength = 16
	return cfg
}

func newAuthTest(t *testing.T) (*Engine, *channelNotifier, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	notifier := newChannelNotifier()

	engine, err := New().
		WithConfig(testConfig()).
		WithRedis(client).
		WithNotifier(notifier).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return engine, notifier, client
}

func signupConfirmed(t *testing.T, engine *Engine, notifier *channelNotifier, email, pass string) *directory.User {
	t.Helper()

	ctx := context.Background()
	user, err := engine.Signup(ctx, SignupInput{
		FullName: "Alice Example",
		Email:    email,
		Password: pass,
		Phone:    "+15551234567",
	})
	if err != nil {
		t.Fatalf("Signup failed: %v", err)
	}

	code := notifier.waitCode(t, directory.PurposeConfirmEmail)
	if err := engine.ConfirmEmail(ctx, email, code); err != nil {
		t.Fatalf("ConfirmEmail failed: %v", err)
	}
	return user
}

// checkCredentialInvariant asserts that exactly one of {password set,
// federated provider} holds for the stored record.
func checkCredentialInvariant(t *testing.T, engine *Engine, email string) {
	t.Helper()

	user, err := engine.directory.FindByEmail(context.Background(), email)
	if err != nil {
		t.Fatalf("FindByEmail failed: %v", err)
	}
	hasPassword := user.PasswordHash != ""
	if hasPassword == (user.Provider == directory.ProviderFederated) {
		t.Fatalf("credential invariant violated: password=%v provider=%s", hasPassword, user.Provider)
	}
}

func TestSignupConfirmLoginFlow(t *testing.T) {
	engine, notifier, _ := newAuthTest(t)
	ctx := context.Background()

	user, err := engine.Signup(ctx, SignupInput{
		FullName: "Alice Example",
		Email:    "a@test.com",
		Password: "correct horse battery",
		Phone:    "+15551234567",
	})
	if err != nil {
		t.Fatalf("Signup failed: %v", err)
	}
	if user.ID == "" || user.Confirmed() {
		t.Fatalf("fresh signups are unconfirmed with an assigned ID: %+v", user)
	}
	checkCredentialInvariant(t, engine, "a@test.com")

	// The phone number is stored encrypted and decrypts back.
	stored, err := engine.directory.FindByEmail(ctx, "a@test.com")
	if err != nil {
		t.Fatalf("FindByEmail failed: %v", err)
	}
	if stored.PhoneEnc == "" || stored.PhoneEnc == "+15551234567" {
		t.Fatalf("phone must be stored encrypted, got %q", stored.PhoneEnc)
	}
	phone, err := engine.Phone(stored)
	if err != nil || phone != "+15551234567" {
		t.Fatalf("phone decryption failed: %q %v", phone, err)
	}

	// Login before confirmation is refused even with the right password.
	if _, err := engine.Login(ctx, "a@test.com", "correct horse battery"); !errors.Is(err, ErrEmailUnconfirmed) {
		t.Fatalf("expected ErrEmailUnconfirmed, got %v", err)
	}

	code := notifier.waitCode(t, directory.PurposeConfirmEmail)
	if err := engine.ConfirmEmail(ctx, "a@test.com", code); err != nil {
		t.Fatalf("ConfirmEmail failed: %v", err)
	}

	pair, err := engine.Login(ctx, "a@test.com", "correct horse battery")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if pair.Scheme != "Bearer" {
		t.Fatalf("ordinary users get Bearer pairs, got %q", pair.Scheme)
	}

	verified, _, err := engine.Verify(ctx, pair.Scheme+" "+pair.AccessToken, token.KindAccess)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if verified.ID != user.ID {
		t.Fatalf("verified subject mismatch: %q vs %q", verified.ID, user.ID)
	}

	if got := engine.Metrics().Value(MetricLoginSuccess); got != 1 {
		t.Fatalf("expected 1 successful login counted, got %d", got)
	}
}

func TestSignupRejections(t *testing.T) {
	engine, _, _ := newAuthTest(t)
	ctx := context.Background()

	if _, err := engine.Signup(ctx, SignupInput{Email: "a@test.com", Password: "short"}); !errors.Is(err, ErrPasswordPolicy) {
		t.Fatalf("expected ErrPasswordPolicy, got %v", err)
	}

	if _, err := engine.Signup(ctx, SignupInput{Email: "a@test.com", Password: "long enough password"}); err != nil {
		t.Fatalf("Signup failed: %v", err)
	}
	if _, err := engine.Signup(ctx, SignupInput{Email: "a@test.com", Password: "another long password"}); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	if got := engine.Metrics().Value(MetricSignupDuplicate); got != 1 {
		t.Fatalf("expected 1 duplicate counted, got %d", got)
	}
}

func TestLoginRejections(t *testing.T) {
	engine, notifier, _ := newAuthTest(t)
	ctx := context.Background()

	signupConfirmed(t, engine, notifier, "a@test.com", "correct horse battery")

	if _, err := engine.Login(ctx, "nobody@test.com", "whatever password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
	if _, err := engine.Login(ctx, "a@test.com", "wrong password here"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong password, got %v", err)
	}
}

func TestResendConfirmOTP(t *testing.T) {
	engine, notifier, _ := newAuthTest(t)
	ctx := context.Background()

	if _, err := engine.Signup(ctx, SignupInput{Email: "a@test.com", Password: "long enough password"}); err != nil {
		t.Fatalf("Signup failed: %v", err)
	}
	notifier.waitCode(t, directory.PurposeConfirmEmail)

	// A resend right after signup is inside the cool-down.
	if err := engine.ResendConfirmOTP(ctx, "a@test.com"); !errors.Is(err, ErrNotYetExpired) {
		t.Fatalf("expected ErrNotYetExpired, got %v", err)
	}
	if err := engine.ResendConfirmOTP(ctx, "nobody@test.com"); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestConfirmWrongCodeBansAccount(t *testing.T) {
	engine, notifier, _ := newAuthTest(t)
	ctx := context.Background()

	if _, err := engine.Signup(ctx, SignupInput{Email: "a@test.com", Password: "long enough password"}); err != nil {
		t.Fatalf("Signup failed: %v", err)
	}
	code := notifier.waitCode(t, directory.PurposeConfirmEmail)
	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}

	for i := 1; i <= 5; i++ {
		if err := engine.ConfirmEmail(ctx, "a@test.com", wrong); !errors.Is(err, ErrInvalidCode) {
			t.Fatalf("attempt %d: expected ErrInvalidCode, got %v", i, err)
		}
	}

	// The ban now refuses even the correct code.
	if err := engine.ConfirmEmail(ctx, "a@test.com", code); !errors.Is(err, ErrTemporarilyBanned) {
		t.Fatalf("expected ErrTemporarilyBanned, got %v", err)
	}
	if err := engine.ResendConfirmOTP(ctx, "a@test.com"); !errors.Is(err, ErrTemporarilyBanned) {
		t.Fatalf("expected ErrTemporarilyBanned on resend, got %v", err)
	}
}

func TestResendAfterConfirmIsAlreadySatisfied(t *testing.T) {
	engine, notifier, _ := newAuthTest(t)
	ctx := context.Background()

	signupConfirmed(t, engine, notifier, "a@test.com", "correct horse battery")

	if err := engine.ResendConfirmOTP(ctx, "a@test.com"); !errors.Is(err, ErrAlreadySatisfied) {
		t.Fatalf("expected ErrAlreadySatisfied, got %v", err)
	}
	if err := engine.ConfirmEmail(ctx, "a@test.com", "123456"); !errors.Is(err, ErrOTPNotFound) {
		t.Fatalf("expected ErrOTPNotFound after confirmation, got %v", err)
	}
}
