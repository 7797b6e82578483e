// Package otp is the one-time-passcode challenge engine. It governs issuance
// (cool-down, resend), verification (expiry, failure counting, temporary
// bans), and consumption of numeric codes per (user, purpose), persisting
// only code hashes through the credential directory. Plaintext codes are
// handed to an asynchronous notification dispatcher and never stored.
package otp
