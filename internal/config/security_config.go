package config

// fallbackEncryptionKey is used when ENCRYPTION_KEY is unset. It exists so
// local development works out of the box. INSECURE: never rely on it in
// production; every deployment must set its own key.
const fallbackEncryptionKey = "authgate-dev-fallback-key"

type SecurityConfig interface {
	GetEncryptionKey() string
	GetJWTSecret() string
	GetSessionCodec() string
}

type Security struct{}

var _ SecurityConfig = Security{}

// GetEncryptionKey returns the secret keying the session cookie codec.
func (Security) GetEncryptionKey() string {
	return GetEnv("ENCRYPTION_KEY", fallbackEncryptionKey)
}

// GetJWTSecret returns the access-token verification key. An empty value is
// valid: token validation then degrades to expiry-only checking.
func (Security) GetJWTSecret() string {
	return GetEnv("JWT_SECRET", "")
}

// GetSessionCodec selects the cookie codec: "xor" (obfuscation, the default)
// or "aead" (authenticated encryption).
func (Security) GetSessionCodec() string {
	return GetEnv("SESSION_CODEC", "xor")
}
