package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrMissingKey = errors.New("missing API key")
	ErrInvalidKey = errors.New("invalid API key")
)

// KeyVerifier checks bearer API keys against a bcrypt hash. The plain key is
// never kept; the last accepted key is remembered so repeated polls skip the
// bcrypt cost.
type KeyVerifier struct {
	hash []byte

	mu       sync.RWMutex
	accepted string
}

// NewKeyVerifier hashes key for later comparison
func NewKeyVerifier(key string) (*KeyVerifier, error) {
	if key == "" {
		return nil, ErrMissingKey
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash API key: %w", err)
	}
	return &KeyVerifier{hash: hash}, nil
}

// NewKeyVerifierFromHash uses an existing bcrypt hash
func NewKeyVerifierFromHash(hash string) (*KeyVerifier, error) {
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return nil, fmt.Errorf("invalid bcrypt hash: %w", err)
	}
	return &KeyVerifier{hash: []byte(hash)}, nil
}

// Verify validates an API key
func (v *KeyVerifier) Verify(key string) error {
	if key == "" {
		return ErrMissingKey
	}

	v.mu.RLock()
	cached := v.accepted
	v.mu.RUnlock()
	if cached != "" && SecureCompare(cached, key) {
		return nil
	}

	if err := bcrypt.CompareHashAndPassword(v.hash, []byte(key)); err != nil {
		return ErrInvalidKey
	}

	v.mu.Lock()
	v.accepted = key
	v.mu.Unlock()
	return nil
}

// Middleware rejects requests without a valid key. Paths listed in public
// are served without one.
func (v *KeyVerifier) Middleware(public ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions || isPublic(r.URL.Path, public) {
				next.ServeHTTP(w, r)
				return
			}

			if err := v.Verify(KeyFromRequest(r)); err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("WWW-Authenticate", `Bearer realm="vidgen"`)
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]string{"detail": err.Error()})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// KeyFromRequest reads the key from "Authorization: Bearer" or X-API-Key
func KeyFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return strings.TrimSpace(r.Header.Get("X-API-Key"))
}

func isPublic(path string, public []string) bool {
	for _, p := range public {
		if strings.HasSuffix(p, "/") {
			if strings.HasPrefix(path, p) {
				return true
			}
		} else if path == p {
			return true
		}
	}
	return false
}

// GenerateAPIKey generates a new random API key
func GenerateAPIKey() (string, error) {
	keyBytes := make([]byte, 32)
	if _, err := rand.Read(keyBytes); err != nil {
		return "", fmt.Errorf("failed to generate API key: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(keyBytes), nil
}

// SecureCompare performs constant-time comparison
func SecureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
