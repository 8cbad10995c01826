package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// envFile is the dotenv file loaded before reading the environment.
// Overridable so tests can point at a fixture.
var envFile = ".env"

// parseEnv overlays Config fields from environment variables. An optional
// .env file in the working directory is loaded first; variables already
// present in the environment win over the file, per godotenv semantics.
//
// Recognized variables:
//
//	MOODLENS_HTTP_ADDR        HTTP bind address
//	MOODLENS_DATABASE_DSN     PostgreSQL DSN
//	MOODLENS_REDIS_ADDR       Redis address (empty disables Redis)
//	MOODLENS_GEMINI_API_KEY   classification backend API key
//	MOODLENS_ENCRYPTION_KEY   base64-encoded 32-byte AES key
//	MOODLENS_SECRET_KEY       JWT HMAC secret
//	MOODLENS_TOKEN_VALIDITY   token validity, minutes
func parseEnv(config *Config) {
	// Missing file is the normal case, not an error.
	_ = godotenv.Load(envFile)

	overlay := func(name string, target *string) {
		if v, ok := os.LookupEnv(name); ok {
			*target = v
		}
	}

	overlay("MOODLENS_HTTP_ADDR", &config.EndpointAddrHTTP)
	overlay("MOODLENS_DATABASE_DSN", &config.DatabaseDSN)
	overlay("MOODLENS_GEMINI_API_KEY", &config.GeminiAPIKey)
	overlay("MOODLENS_ENCRYPTION_KEY", &config.EncryptionKeyBase64)
	overlay("MOODLENS_SECRET_KEY", &config.SecretKey)

	if v, ok := os.LookupEnv("MOODLENS_REDIS_ADDR"); ok {
		config.RedisAddr = v
	}

	if v, ok := os.LookupEnv("MOODLENS_TOKEN_VALIDITY"); ok {
		if minutes, err := strconv.Atoi(v); err == nil {
			config.TokenValidityDuration = time.Duration(minutes) * time.Minute
		}
	}
}
