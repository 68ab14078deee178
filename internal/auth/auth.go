// Package auth provides optional HTTP Basic Auth backed by a single
// "user:$argon2id$..." credentials file.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters (OWASP recommended)
const (
	argon2Time    = 1
	argon2Memory  = 64 * 1024
	argon2Threads = 4
	argon2KeyLen  = 32
	saltLen       = 16
)

const realm = "Seattle Events"

var (
	ErrAuthFileExists = errors.New("auth file already exists")
	errInvalidHash    = errors.New("invalid hash format")
)

// Credentials is the parsed auth file. The zero value disables auth.
type Credentials struct {
	User string
	Hash string
}

func (c Credentials) Enabled() bool {
	return c.User != "" && c.Hash != ""
}

func HashPassword(password string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	hash := argon2.IDKey([]byte(password), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argon2Memory, argon2Time, argon2Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash)), nil
}

// VerifyPassword checks password against an encoded Argon2id hash in
// constant time.
func VerifyPassword(password, encoded string) (bool, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return false, errInvalidHash
	}
	if parts[1] != "argon2id" {
		return false, fmt.Errorf("unsupported hash algorithm %q", parts[1])
	}

	var memory, iterations uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &threads); err != nil {
		return false, fmt.Errorf("parse hash parameters: %w", err)
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, fmt.Errorf("decode salt: %w", err)
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, fmt.Errorf("decode hash: %w", err)
	}

	got := argon2.IDKey([]byte(password), salt, iterations, memory, threads, uint32(len(want)))
	return subtle.ConstantTimeCompare(want, got) == 1, nil
}

// LoadFile reads the credentials file. An empty path disables auth.
func LoadFile(path string) (Credentials, error) {
	if path == "" {
		return Credentials{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Credentials{}, fmt.Errorf("read auth file: %w", err)
	}
	return parseCredentials(string(data))
}

func parseCredentials(s string) (Credentials, error) {
	user, hash, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || user == "" || hash == "" {
		return Credentials{}, errors.New("invalid auth file format (expected: username:hash)")
	}
	if !strings.HasPrefix(hash, "$argon2id$") {
		return Credentials{}, errInvalidHash
	}
	return Credentials{User: user, Hash: hash}, nil
}

// WriteFile hashes password and stores "user:hash" at path with 0600
// permissions. An existing file is kept unless overwrite is set.
func WriteFile(path, user, password string, overwrite bool) error {
	if strings.ContainsAny(user, ":\n") || user == "" {
		return fmt.Errorf("invalid username %q", user)
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return ErrAuthFileExists
		}
	}
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, []byte(user+":"+hash+"\n"), 0o600); err != nil {
		return fmt.Errorf("write auth file: %w", err)
	}
	return nil
}

// Middleware enforces Basic Auth on every route except the paths in open.
// Disabled credentials pass every request through.
func Middleware(creds Credentials, next http.Handler, open ...string) http.Handler {
	if !creds.Enabled() {
		return next
	}
	skip := make(map[string]bool, len(open))
	for _, p := range open {
		skip[p] = true
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if skip[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		user, pass, ok := r.BasicAuth()
		userMatch := subtle.ConstantTimeCompare([]byte(user), []byte(creds.User)) == 1
		passMatch := false
		if ok && userMatch {
			var err error
			passMatch, err = VerifyPassword(pass, creds.Hash)
			if err != nil {
				slog.Error("verify password", "error", err)
			}
		}

		if !ok || !userMatch || !passMatch {
			slog.Warn("failed auth attempt", "remote_addr", r.RemoteAddr, "user", user)
			w.Header().Set("WWW-Authenticate", `Basic realm="`+realm+`"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
