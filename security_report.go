package authcore

import "time"

// SecurityReport is a safe summary of the engine's effective security
// posture for operators. It carries policy values only, never secrets or
// key material.
type SecurityReport struct {
	SigningAlgorithm string
	AccessTTL        time.Duration
	RefreshTTL       time.Duration
	Argon2           PasswordConfigReport
	OTPDigits        int
	OTPTTL           time.Duration
	OTPMaxAttempts   int
	OTPBanDuration   time.Duration
	SweepEnabled     bool
	SweepInterval    time.Duration
	MetricsEnabled   bool
}

// PasswordConfigReport mirrors the active argon2id cost parameters.
type PasswordConfigReport struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// SecurityReport reports the engine's effective configuration.
func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	return SecurityReport{
		SigningAlgorithm: "HS256",
		AccessTTL:        e.config.Token.AccessTTL,
		RefreshTTL:       e.config.Token.RefreshTTL,
		Argon2: PasswordConfigReport{
			Memory:      e.config.Password.Memory,
			Time:        e.config.Password.Time,
			Parallelism: e.config.Password.Parallelism,
			SaltLength:  e.config.Password.SaltLength,
			KeyLength:   e.config.Password.KeyLength,
		},
		OTPDigits:      e.config.OTP.Digits,
		OTPTTL:         e.config.OTP.TTL,
		OTPMaxAttempts: e.config.OTP.MaxAttempts,
		OTPBanDuration: e.config.OTP.BanDuration,
		SweepEnabled:   e.sweeper != nil,
		SweepInterval:  e.config.Ledger.SweepInterval,
		MetricsEnabled: e.metrics.Enabled(),
	}
}
