package config

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"

	"golang.org/x/crypto/scrypt"
)

// Secret names understood by the bot. Names are env-var shaped because each
// falls back to the environment variable of the same name when the encrypted
// file does not carry it.
const (
	SecretDiscordToken    = "TAI_DISCORD_TOKEN"
	SecretTrackerAPIKey   = "TRACKER_API_KEY"
	SecretAnthropicAPIKey = "ANTHROPIC_API_KEY"
	SecretOpenAIAPIKey    = "OPENAI_API_KEY"
	SecretGoogleAPIKey    = "GOOGLE_API_KEY"
)

// PassphraseEnv names the env var holding the secrets-file passphrase.
const PassphraseEnv = "TAI_SECRETS_KEY"

// Secrets file crypto parameters. The file layout is
// [salt][nonce][ciphertext+tag]: scrypt derives an AES-256 key from the
// passphrase, AES-GCM seals the JSON payload.
const (
	saltSize  = 16
	nonceSize = 12
	scryptN   = 32768 // 2^15
	scryptR   = 8
	scryptP   = 1
	keySize   = 32 // AES-256
)

// Secrets holds the decrypted secrets file in memory. Lookup falls back to
// environment variables, so an empty store still serves env-only setups.
type Secrets struct {
	values map[string]string
}

// LoadSecrets opens and decrypts the secrets file at path. An empty path
// returns an env-only store. A configured path requires the passphrase env
// var and an existing, decryptable file.
func LoadSecrets(path string) (*Secrets, error) {
	if path == "" {
		return &Secrets{values: map[string]string{}}, nil
	}
	password := os.Getenv(PassphraseEnv)
	if password == "" {
		return nil, fmt.Errorf("secrets file %s configured but %s is not set", path, PassphraseEnv)
	}
	values, err := DecryptSecretsFile(path, password)
	if err != nil {
		return nil, err
	}
	return &Secrets{values: values}, nil
}

// Get returns a secret value by name. The decrypted file wins; an
// environment variable of the same name is the fallback.
func (s *Secrets) Get(name string) (string, error) {
	if s.values != nil {
		if value, exists := s.values[name]; exists && value != "" {
			return value, nil
		}
	}
	if value := os.Getenv(name); value != "" {
		return value, nil
	}
	return "", fmt.Errorf("secret %s not found in secrets file or environment", name)
}

// GetOptional returns the secret or an empty string when absent.
func (s *Secrets) GetOptional(name string) string {
	value, err := s.Get(name)
	if err != nil {
		return ""
	}
	return value
}

// UpdateSecretFile sets one secret in the file at path, creating the file
// when absent and re-encrypting the merged set otherwise. Used by the
// --set-secret flow.
func UpdateSecretFile(path, password, name, value string) error {
	if name == "" {
		return fmt.Errorf("secret name cannot be empty")
	}
	secrets := map[string]string{}
	if _, err := os.Stat(path); err == nil {
		existing, derr := DecryptSecretsFile(path, password)
		if derr != nil {
			return derr
		}
		secrets = existing
	}
	secrets[name] = value
	return EncryptSecretsFile(path, password, secrets)
}

// wipe zeroes sensitive byte slices once they are no longer needed.
func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// deriveKey stretches the passphrase into an AES key via scrypt. The
// passphrase copy is wiped before returning.
func deriveKey(password string, salt []byte) ([]byte, error) {
	pw := []byte(password)
	defer wipe(pw)
	return scrypt.Key(pw, salt, scryptN, scryptR, scryptP, keySize)
}

func gcmFor(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

// EncryptSecretsFile encrypts and saves secrets to path with 0600 perms.
func EncryptSecretsFile(path, password string, secrets map[string]string) error {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}

	key, err := deriveKey(password, salt)
	if err != nil {
		return fmt.Errorf("failed to derive encryption key: %w", err)
	}
	defer wipe(key)

	plaintext, err := json.Marshal(secrets)
	if err != nil {
		return fmt.Errorf("failed to marshal secrets: %w", err)
	}

	gcm, err := gcmFor(key)
	if err != nil {
		return err
	}
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := gcm.Seal(nil, nonce, plaintext, nil)

	out := make([]byte, 0, saltSize+nonceSize+len(sealed))
	out = append(out, salt...)
	out = append(out, nonce...)
	out = append(out, sealed...)

	if err := os.WriteFile(path, out, 0600); err != nil {
		return fmt.Errorf("failed to write secrets file: %w", err)
	}
	return nil
}

// DecryptSecretsFile decrypts and returns the secrets stored at path.
func DecryptSecretsFile(path, password string) (map[string]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat secrets file: %w", err)
	}

	// Loose permissions on a secrets file are a risk; tighten them in place.
	if info.Mode().Perm() != 0600 {
		if chmodErr := os.Chmod(path, 0600); chmodErr != nil {
			return nil, fmt.Errorf("failed to fix file permissions: %w", chmodErr)
		}
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read secrets file: %w", err)
	}

	const gcmTagSize = 16
	if len(raw) < saltSize+nonceSize+gcmTagSize {
		return nil, fmt.Errorf("secrets file is corrupted or invalid format (too small)")
	}

	salt := raw[:saltSize]
	nonce := raw[saltSize : saltSize+nonceSize]
	sealed := raw[saltSize+nonceSize:]

	key, err := deriveKey(password, salt)
	if err != nil {
		return nil, fmt.Errorf("failed to derive decryption key: %w", err)
	}
	defer wipe(key)

	gcm, err := gcmFor(key)
	if err != nil {
		return nil, err
	}
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("decryption failed (wrong password or corrupted file)")
	}

	var secrets map[string]string
	if err := json.Unmarshal(plaintext, &secrets); err != nil {
		return nil, fmt.Errorf("failed to parse secrets: %w", err)
	}
	return secrets, nil
}
