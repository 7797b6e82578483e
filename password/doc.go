// Package password provides one-way hashing with constant-time verification.
// The engine uses it for account passwords and for OTP codes; only hashes are
// ever persisted. Output is a PHC-formatted argon2id string that embeds its
// own parameters, so stored hashes stay verifiable after a parameter change.
package password
