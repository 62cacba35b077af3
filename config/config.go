package config

import (
	"time"

	"github.com/pitabwire/frame"
)

type AccountConfig struct {
	frame.ConfigurationDefault

	// Error handling configuration
	// When true, detailed error messages are shown to callers (useful for development)
	// When false, generic messages are shown and details are only logged
	ExposeErrors bool `envDefault:"false" env:"EXPOSE_ERRORS"`

	ProfileServiceURI string `envDefault:"127.0.0.1:7020" env:"PROFILE_SERVICE_URI"`

	// Endpoint one time codes are posted to for delivery.
	CodeDeliveryURI string `envDefault:"" env:"CODE_DELIVERY_URI"`

	// Signing key pair for premature session tokens, PEM encoded.
	TokenPrivateKeyPEM   string `envDefault:"" env:"TOKEN_PRIVATE_KEY_PEM"`
	TokenPublicKeyPEM    string `envDefault:"" env:"TOKEN_PUBLIC_KEY_PEM"`
	TokenIssuer          string `envDefault:"https://account.antinvestor.com" env:"TOKEN_ISSUER"`
	TokenAuthorizedParty string `envDefault:"service_account" env:"TOKEN_AUTHORIZED_PARTY"`

	SignInTokenDurationSeconds int64 `envDefault:"604800" env:"SIGN_IN_TOKEN_DURATION_SECONDS"`
	FlowTokenDurationSeconds   int64 `envDefault:"900" env:"FLOW_TOKEN_DURATION_SECONDS"`

	OtpCodeWindowSeconds     int64  `envDefault:"60" env:"OTP_CODE_WINDOW_SECONDS"`
	VerificationAttemptLimit uint32 `envDefault:"5" env:"VERIFICATION_ATTEMPT_LIMIT"`
	AttemptLockSeconds       int64  `envDefault:"3600" env:"ATTEMPT_LOCK_SECONDS"`
	ResendCadenceSeconds     int64  `envDefault:"60" env:"RESEND_CADENCE_SECONDS"`

	// Server held symmetric key protecting authenticator secrets at rest.
	TwoFactorEncryptionKey string `envDefault:"" env:"TWO_FACTOR_ENCRYPTION_KEY"`

	WalletVerifierEvmURI       string `envDefault:"" env:"WALLET_VERIFIER_EVM_URI"`
	WalletVerifierSolanaURI    string `envDefault:"" env:"WALLET_VERIFIER_SOLANA_URI"`
	WalletVerifyTimeoutSeconds int64  `envDefault:"10" env:"WALLET_VERIFY_TIMEOUT_SECONDS"`

	SecureCookieHashKey  string `envDefault:"d1f4f1a3b8d84f79e6d4b8b5c3f04725a8a7d6b4c2f9a987d5e4f3a2b1c086d1" env:"SECURE_COOKIE_HASH_KEY"`
	SecureCookieBlockKey string `envDefault:"a7e7b4f8d2e5a3c1f0b6d9d4f3a5c20798d1c1e7c4f6a3e4b0e5c2f4a7d6b301" env:"SECURE_COOKIE_BLOCK_KEY"`
}

func (c *AccountConfig) SignInTokenDuration() time.Duration {
	return time.Duration(c.SignInTokenDurationSeconds) * time.Second
}

func (c *AccountConfig) FlowTokenDuration() time.Duration {
	return time.Duration(c.FlowTokenDurationSeconds) * time.Second
}

func (c *AccountConfig) AttemptLockDuration() time.Duration {
	return time.Duration(c.AttemptLockSeconds) * time.Second
}

func (c *AccountConfig) ResendCadence() time.Duration {
	return time.Duration(c.ResendCadenceSeconds) * time.Second
}

func (c *AccountConfig) WalletVerifyTimeout() time.Duration {
	return time.Duration(c.WalletVerifyTimeoutSeconds) * time.Second
}
