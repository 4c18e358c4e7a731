// Package auth fetches and caches OAuth2 access tokens for the bearer-token
// filter.
package auth

import (
	"sync"
	"time"
)

// expiryBuffer is how long before its expiry a token is treated as expired.
const expiryBuffer = 30 * time.Second

// Token is an OAuth2 token response.
type Token struct {
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresIn    int       `json:"expires_in,omitempty"`
	Scope        string    `json:"scope,omitempty"`
	ExpiresAt    time.Time `json:"-"`
}

// Valid reports whether the token can be used for at least expiryBuffer.
// A token without expiry never expires.
func (t *Token) Valid() bool {
	if t == nil || t.AccessToken == "" {
		return false
	}

	if t.ExpiresAt.IsZero() {
		return true
	}

	return time.Now().Add(expiryBuffer).Before(t.ExpiresAt)
}

// TokenStore holds the current token.
type TokenStore struct {
	mutex sync.RWMutex
	token *Token
}

// NewTokenStore creates an empty store.
func NewTokenStore() *TokenStore {
	return &TokenStore{}
}

// Get returns the current token, or nil.
func (s *TokenStore) Get() *Token {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.token
}

// Set replaces the current token.
func (s *TokenStore) Set(token *Token) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.token = token
}

// Clear drops the current token.
func (s *TokenStore) Clear() {
	s.Set(nil)
}
