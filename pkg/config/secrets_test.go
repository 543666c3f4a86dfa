package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEncryptDecryptSecretsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.enc")

	password := "hunter2-but-longer"
	secrets := map[string]string{
		"TRACKER_API_KEY":   "trk_9f8e7d6c",
		"ANTHROPIC_API_KEY": "sk-ant-roundtrip",
		"TAI_DISCORD_TOKEN": "discord.token.value",
	}

	if err := EncryptSecretsFile(path, password, secrets); err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("secrets file missing after encrypt: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("file mode = %04o, want 0600", info.Mode().Perm())
	}

	decrypted, err := DecryptSecretsFile(path, password)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if len(decrypted) != len(secrets) {
		t.Errorf("decrypted %d secrets, want %d", len(decrypted), len(secrets))
	}
	for name, want := range secrets {
		if got := decrypted[name]; got != want {
			t.Errorf("secret %s = %q, want %q", name, got, want)
		}
	}
}

func TestDecryptWithWrongPassword(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.enc")

	if err := EncryptSecretsFile(path, "correct-password", map[string]string{
		"TRACKER_API_KEY": "trk_9f8e7d6c",
	}); err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	_, err := DecryptSecretsFile(path, "wrong-password")
	if err == nil {
		t.Fatal("decrypt succeeded with the wrong password")
	}
	if err.Error() != "decryption failed (wrong password or corrupted file)" {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestUpdateSecretFileMergesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.enc")
	password := "pw"

	if err := UpdateSecretFile(path, password, "TRACKER_API_KEY", "first"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := UpdateSecretFile(path, password, "TAI_DISCORD_TOKEN", "second"); err != nil {
		t.Fatalf("update: %v", err)
	}

	decrypted, err := DecryptSecretsFile(path, password)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if decrypted["TRACKER_API_KEY"] != "first" {
		t.Errorf("existing secret lost on update: %q", decrypted["TRACKER_API_KEY"])
	}
	if decrypted["TAI_DISCORD_TOKEN"] != "second" {
		t.Errorf("new secret not stored: %q", decrypted["TAI_DISCORD_TOKEN"])
	}
}

func TestSecretsGetPrecedence(t *testing.T) {
	os.Setenv("TEST_SECRET", "from-env-var")
	defer os.Unsetenv("TEST_SECRET")

	// File value wins over the env var.
	s := &Secrets{values: map[string]string{"TEST_SECRET": "from-secrets-file"}}
	got, err := s.Get("TEST_SECRET")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "from-secrets-file" {
		t.Errorf("Get = %q, want the file value", got)
	}

	// Env var serves names the file doesn't carry.
	got, err = (&Secrets{values: map[string]string{}}).Get("TEST_SECRET")
	if err != nil {
		t.Fatalf("Get via env: %v", err)
	}
	if got != "from-env-var" {
		t.Errorf("Get via env = %q, want the env value", got)
	}

	if _, err := (&Secrets{}).Get("TEST_SECRET_MISSING"); err == nil {
		t.Error("Get of an unset secret should fail")
	}
}

func TestLoadSecretsEnvOnly(t *testing.T) {
	s, err := LoadSecrets("")
	if err != nil {
		t.Fatalf("LoadSecrets with empty path: %v", err)
	}

	os.Setenv("TRACKER_API_KEY", "env-key")
	defer os.Unsetenv("TRACKER_API_KEY")

	if got := s.GetOptional("TRACKER_API_KEY"); got != "env-key" {
		t.Errorf("GetOptional = %q, want the env value", got)
	}
}

func TestLoadSecretsRequiresPassphrase(t *testing.T) {
	os.Unsetenv(PassphraseEnv)
	path := filepath.Join(t.TempDir(), "secrets.enc")
	if err := os.WriteFile(path, []byte("ignored"), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := LoadSecrets(path); err == nil {
		t.Errorf("LoadSecrets should fail without %s set", PassphraseEnv)
	}
}

func TestCorruptedSecretsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.enc")
	if err := os.WriteFile(path, []byte("corrupted"), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}

	_, err := DecryptSecretsFile(path, "any-password")
	if err == nil {
		t.Fatal("decrypt of a truncated file should fail")
	}
	if err.Error() != "secrets file is corrupted or invalid format (too small)" {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestEmptySecrets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.enc")
	password := "pw"

	if err := EncryptSecretsFile(path, password, map[string]string{}); err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	decrypted, err := DecryptSecretsFile(path, password)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if len(decrypted) != 0 {
		t.Errorf("decrypted %d secrets from an empty file, want 0", len(decrypted))
	}
}
