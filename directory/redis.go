package directory

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "cd"

const (
	fieldEmail              = "email"
	fieldFullName           = "full_name"
	fieldPasswordHash       = "password_hash"
	fieldPhoneEnc           = "phone_enc"
	fieldPictureURL         = "picture_url"
	fieldRole               = "role"
	fieldProvider           = "provider"
	fieldConfirmedAt        = "confirmed_at"
	fieldConfirmOTPHash     = "confirm_otp_hash"
	fieldConfirmOTPIssuedAt = "confirm_otp_created_at"
	fieldResetOTPHash       = "reset_otp_hash"
	fieldResetOTPIssuedAt   = "reset_otp_created_at"
	fieldFailedAttempts     = "otp_failed_attempts"
	fieldBannedUntil        = "otp_banned_until"
	fieldCredentialChange   = "change_credentials_at"
	fieldDeletedAt          = "deleted_at"
	fieldDeletedBy          = "deleted_by"
	fieldCreatedAt          = "created_at"
)

const createUserScript = `
if redis.call("SETNX", KEYS[1], ARGV[1]) == 0 then
  return 0
end
for i = 2, #ARGV, 2 do
  redis.call("HSET", KEYS[2], ARGV[i], ARGV[i + 1])
end
return 1
`

const storeChallengeScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
redis.call("HSET", KEYS[1], ARGV[1], ARGV[2])
redis.call("HSET", KEYS[1], ARGV[3], ARGV[4])
redis.call("HSET", KEYS[1], "otp_failed_attempts", "0")
redis.call("HDEL", KEYS[1], "otp_banned_until")
return 1
`

const challengeFailureScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return {-1, 0}
end
local attempts = redis.call("HINCRBY", KEYS[1], "otp_failed_attempts", 1)
if attempts >= tonumber(ARGV[1]) then
  redis.call("HSET", KEYS[1], "otp_failed_attempts", "0")
  redis.call("HSET", KEYS[1], "otp_banned_until", ARGV[2])
  return {attempts, 1}
end
return {attempts, 0}
`

const completeEmailScript = `
if redis.call("HEXISTS", KEYS[1], "confirm_otp_hash") == 0 then
  return 0
end
redis.call("HDEL", KEYS[1], "confirm_otp_hash")
redis.call("HDEL", KEYS[1], "confirm_otp_created_at")
redis.call("HSET", KEYS[1], "otp_failed_attempts", "0")
redis.call("HSET", KEYS[1], "confirmed_at", ARGV[1])
return 1
`

const resetPasswordScript = `
if redis.call("HEXISTS", KEYS[1], "reset_otp_hash") == 0 then
  return 0
end
redis.call("HDEL", KEYS[1], "reset_otp_hash")
redis.call("HDEL", KEYS[1], "reset_otp_created_at")
redis.call("HSET", KEYS[1], "otp_failed_attempts", "0")
redis.call("HSET", KEYS[1], "password_hash", ARGV[1])
redis.call("HSET", KEYS[1], "change_credentials_at", ARGV[2])
return 1
`

const patchUserScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
for i = 1, #ARGV, 2 do
  redis.call("HSET", KEYS[1], ARGV[i], ARGV[i + 1])
end
return 1
`

var (
	createUserLua       = redis.NewScript(createUserScript)
	storeChallengeLua   = redis.NewScript(storeChallengeScript)
	challengeFailureLua = redis.NewScript(challengeFailureScript)
	completeEmailLua    = redis.NewScript(completeEmailScript)
	resetPasswordLua    = redis.NewScript(resetPasswordScript)
	patchUserLua        = redis.NewScript(patchUserScript)
)

// RedisStore is a Redis-backed Store. Each user is one hash keyed by ID with
// a plain string key as the unique email index; all mutations run as Lua
// scripts so each is a single atomic round trip.
type RedisStore struct {
	redis  *redis.Client
	prefix string
}

// NewRedisStore returns a RedisStore on the given client. An empty prefix
// selects the default "cd" namespace.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RedisStore{redis: client, prefix: prefix}
}

func (s *RedisStore) userKey(id string) string {
	return s.prefix + ":u:" + id
}

func (s *RedisStore) emailKey(email string) string {
	return s.prefix + ":e:" + normalizeEmail(email)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// FindByEmail resolves the email index and loads the record.
func (s *RedisStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	id, err := s.redis.Get(ctx, s.emailKey(email)).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return s.FindByID(ctx, id)
}

// FindByID loads the record stored under the user ID.
func (s *RedisStore) FindByID(ctx context.Context, id string) (*User, error) {
	fields, err := s.redis.HGetAll(ctx, s.userKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}
	return decodeUser(id, fields), nil
}

// Create persists the user and assigns a fresh ID. The email index arbitrates
// duplicate signups racing on the same address.
func (s *RedisStore) Create(ctx context.Context, u *User) error {
	hasPassword := u.PasswordHash != ""
	if hasPassword == (u.Provider == ProviderFederated) {
		return ErrInvalidRecord
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = RoleUser
	}
	if u.Provider == "" {
		u.Provider = ProviderLocal
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	u.Email = normalizeEmail(u.Email)

	args := []interface{}{u.ID}
	args = append(args, encodeUser(u)...)

	res, err := createUserLua.Run(ctx, s.redis, []string{s.emailKey(u.Email), s.userKey(u.ID)}, args...).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if res == 0 {
		return ErrDuplicateEmail
	}
	return nil
}

// StoreChallenge writes the purpose's OTP hash and issuance time, resets the
// failure counter, and drops any lapsed ban marker.
func (s *RedisStore) StoreChallenge(ctx context.Context, userID string, purpose Purpose, codeHash string, at time.Time) error {
	hashField, createdField := challengeFields(purpose)

	res, err := storeChallengeLua.Run(ctx, s.redis, []string{s.userKey(userID)},
		hashField, codeHash, createdField, encodeTime(at)).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if res == 0 {
		return ErrNotFound
	}
	return nil
}

// RegisterChallengeFailure runs the count-and-maybe-ban step as one script so
// two racing wrong-code attempts can never both observe the pre-ban counter.
func (s *RedisStore) RegisterChallengeFailure(ctx context.Context, userID string, maxAttempts int, bannedUntil time.Time) (int64, bool, error) {
	res, err := challengeFailureLua.Run(ctx, s.redis, []string{s.userKey(userID)},
		maxAttempts, encodeTime(bannedUntil)).Int64Slice()
	if err != nil {
		return 0, false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(res) != 2 || res[0] < 0 {
		return 0, false, ErrNotFound
	}
	return res[0], res[1] == 1, nil
}

// CompleteEmailChallenge consumes the pending confirmation OTP and stamps the
// account verified. Exactly one of any number of racing confirmations wins.
func (s *RedisStore) CompleteEmailChallenge(ctx context.Context, userID string, at time.Time) error {
	res, err := completeEmailLua.Run(ctx, s.redis, []string{s.userKey(userID)}, encodeTime(at)).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if res == 0 {
		return ErrChallengeNotPending
	}
	return nil
}

// ResetPassword applies the new hash, stamps the credential-change time, and
// clears the reset OTP in one atomic update. The returned error is the sole
// signal for whether the password update applied.
func (s *RedisStore) ResetPassword(ctx context.Context, userID, passwordHash string, at time.Time) error {
	res, err := resetPasswordLua.Run(ctx, s.redis, []string{s.userKey(userID)},
		passwordHash, encodeTime(at)).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if res == 0 {
		return ErrChallengeNotPending
	}
	return nil
}

// TouchCredentialChange stamps the global invalidation time.
func (s *RedisStore) TouchCredentialChange(ctx context.Context, userID string, at time.Time) error {
	return s.patch(ctx, userID, fieldCredentialChange, encodeTime(at))
}

// SoftDelete marks the account deleted.
func (s *RedisStore) SoftDelete(ctx context.Context, userID, deletedBy string, at time.Time) error {
	return s.patch(ctx, userID, fieldDeletedAt, encodeTime(at), fieldDeletedBy, deletedBy)
}

func (s *RedisStore) patch(ctx context.Context, userID string, pairs ...interface{}) error {
	res, err := patchUserLua.Run(ctx, s.redis, []string{s.userKey(userID)}, pairs...).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if res == 0 {
		return ErrNotFound
	}
	return nil
}

func challengeFields(purpose Purpose) (hashField, createdField string) {
	if purpose == PurposePasswordReset {
		return fieldResetOTPHash, fieldResetOTPIssuedAt
	}
	return fieldConfirmOTPHash, fieldConfirmOTPIssuedAt
}

func encodeTime(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

func decodeTime(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || ms == 0 {
		return nil
	}
	t := time.UnixMilli(ms)
	return &t
}

func encodeUser(u *User) []interface{} {
	pairs := []interface{}{
		fieldEmail, u.Email,
		fieldFullName, u.FullName,
		fieldRole, string(u.Role),
		fieldProvider, string(u.Provider),
		fieldFailedAttempts, strconv.FormatInt(u.OTPFailedAttempts, 10),
		fieldCreatedAt, encodeTime(u.CreatedAt),
	}
	if u.PasswordHash != "" {
		pairs = append(pairs, fieldPasswordHash, u.PasswordHash)
	}
	if u.PhoneEnc != "" {
		pairs = append(pairs, fieldPhoneEnc, u.PhoneEnc)
	}
	if u.PictureURL != "" {
		pairs = append(pairs, fieldPictureURL, u.PictureURL)
	}
	if u.ConfirmedAt != nil {
		pairs = append(pairs, fieldConfirmedAt, encodeTime(*u.ConfirmedAt))
	}
	if u.ConfirmOTPHash != "" {
		pairs = append(pairs, fieldConfirmOTPHash, u.ConfirmOTPHash)
	}
	if u.ConfirmOTPCreatedAt != nil {
		pairs = append(pairs, fieldConfirmOTPIssuedAt, encodeTime(*u.ConfirmOTPCreatedAt))
	}
	return pairs
}

func decodeUser(id string, fields map[string]string) *User {
	u := &User{
		ID:                  id,
		Email:               fields[fieldEmail],
		FullName:            fields[fieldFullName],
		PasswordHash:        fields[fieldPasswordHash],
		PhoneEnc:            fields[fieldPhoneEnc],
		PictureURL:          fields[fieldPictureURL],
		Role:                Role(fields[fieldRole]),
		Provider:            Provider(fields[fieldProvider]),
		ConfirmOTPHash:      fields[fieldConfirmOTPHash],
		ResetOTPHash:        fields[fieldResetOTPHash],
		DeletedBy:           fields[fieldDeletedBy],
		ConfirmedAt:         decodeTime(fields[fieldConfirmedAt]),
		ConfirmOTPCreatedAt: decodeTime(fields[fieldConfirmOTPIssuedAt]),
		ResetOTPCreatedAt:   decodeTime(fields[fieldResetOTPIssuedAt]),
		OTPBannedUntil:      decodeTime(fields[fieldBannedUntil]),
		ChangeCredentialsAt: decodeTime(fields[fieldCredentialChange]),
		DeletedAt:           decodeTime(fields[fieldDeletedAt]),
	}
	if raw := fields[fieldFailedAttempts]; raw != "" {
		u.OTPFailedAttempts, _ = strconv.ParseInt(raw, 10, 64)
	}
	if created := decodeTime(fields[fieldCreatedAt]); created != nil {
		u.CreatedAt = *created
	}
	return u
}
